package marketapi

// Upstream wire types. The marketplace exposes a GraphQL-style envelope over
// plain HTTP POST; responses below mirror the subset of fields the pipeline
// consumes.

type graphQLRequest struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// CategoryNode is one node of the upstream category tree, with the
// per-category retrievable product total.
type CategoryNode struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	ProductAmount int            `json:"productAmount"`
	Children      []CategoryNode `json:"children"`
}

type categoryTreeResponse struct {
	Data struct {
		CategoryTree []CategoryNode `json:"categoryTree"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// SearchItem is one catalog card returned by paginated search. Title and
// characteristics ride along for the localized catalog variant.
type SearchItem struct {
	CatalogCard struct {
		ProductID       int64  `json:"productId"`
		Title           string `json:"title"`
		CharacteristicValues []struct {
			Title string `json:"title"`
			Value string `json:"value"`
		} `json:"characteristicValues"`
	} `json:"catalogCard"`
}

type searchResponse struct {
	Data struct {
		MakeSearch struct {
			Total int          `json:"total"`
			Items []SearchItem `json:"items"`
		} `json:"makeSearch"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// ProductPayload is the full product detail document.
type ProductPayload struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	IsAdult       bool    `json:"adultCategory"`
	IsEco         bool    `json:"isEco"`
	IsPerishable  bool    `json:"isPerishable"`
	HasBonus      bool    `json:"bonusProduct"`
	OrdersAmount  int64   `json:"ordersAmount"`
	ReviewsAmount int64   `json:"reviewsAmount"`
	Rating        float64 `json:"rating"`

	Attributes []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"attributes"`

	Characteristics []PayloadCharacteristic `json:"characteristics"`

	Photos []struct {
		URL string `json:"photo"`
	} `json:"photos"`

	Category struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		ParentID *int64 `json:"parentId"`
	} `json:"category"`

	Seller SellerPayload `json:"seller"`

	Badges []BadgePayload `json:"badges"`

	SkuList []SkuPayload `json:"skuList"`

	Campaigns []struct {
		Title string `json:"title"`
	} `json:"promotions"`
}

// PayloadCharacteristic is the product-level characteristic schema the SKU
// index pairs resolve against.
type PayloadCharacteristic struct {
	Title  string `json:"title"`
	Values []struct {
		Title string `json:"title"`
		Value string `json:"value"`
	} `json:"values"`
}

type SellerPayload struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Link             string  `json:"link"`
	Description      string  `json:"description"`
	AccountID        int64   `json:"sellerAccountId"`
	RegistrationMs   int64   `json:"registrationDate"` // unix millis
	TotalProducts    int64   `json:"totalProducts"`
	TotalOrders      int64   `json:"totalOrders"`
	TotalReviews     int64   `json:"totalReviews"`
	Rating           float64 `json:"rating"`
}

type BadgePayload struct {
	ID              int64  `json:"id"`
	Text            string `json:"text"`
	Type            string `json:"type"`
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
	Description     string `json:"description"`
}

type SkuPayload struct {
	ID              int64         `json:"id"`
	AvailableAmount int64         `json:"availableAmount"`
	FullPrice       int64         `json:"fullPrice"`
	PurchasePrice   int64         `json:"purchasePrice"`
	DiscountBadge   *BadgePayload `json:"discountBadge"`
	Characteristics []SkuCharacteristicIndex `json:"characteristics"`
}

// SkuCharacteristicIndex is an (characteristic, value) index pair into the
// parent product's characteristic schema.
type SkuCharacteristicIndex struct {
	CharIndex  int `json:"charIndex"`
	ValueIndex int `json:"valueIndex"`
}

type productResponse struct {
	Data struct {
		ProductPage struct {
			Product ProductPayload `json:"product"`
		} `json:"productPage"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// SimilarItem comes from the plain-REST similar-products endpoint.
type SimilarItem struct {
	ProductID int64  `json:"productId"`
	Title     string `json:"title"`
}

type similarResponse struct {
	Items []SimilarItem `json:"items"`
}

// Review comes from the plain-REST reviews endpoint.
type Review struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"productId"`
	Rating    float64 `json:"rating"`
	Text      string  `json:"text"`
	DateMs    int64   `json:"date"`
}

type reviewsResponse struct {
	Payload []Review `json:"payload"`
}

// PageRequest describes one paginated search request against a category.
type PageRequest struct {
	CategoryID int64
	Offset     int
	Limit      int
}
