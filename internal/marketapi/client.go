package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	categoryTreeQuery = `query getCategoryTree { categoryTree { id title productAmount children { id title productAmount children { id title productAmount children { id title productAmount } } } } }`
	makeSearchQuery   = `query getMakeSearch($queryInput: MakeSearchQueryInput!) { makeSearch(query: $queryInput) { total items { catalogCard { productId title characteristicValues { title value } } } } }`
	productPageQuery  = `query getProductPage($id: Int!) { productPage(id: $id) { product { id title description adultCategory isEco isPerishable bonusProduct ordersAmount reviewsAmount rating attributes { name value } characteristics { title values { title value } } photos { photo } category { id title parentId } seller { id title link description sellerAccountId registrationDate totalProducts totalOrders totalReviews rating } badges { id text type backgroundColor textColor description } skuList { id availableAmount fullPrice purchasePrice discountBadge { id text type backgroundColor textColor description } characteristics { charIndex valueIndex } } promotions { title } } } }`
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

// retryableStatus reports whether the upstream signalled a transient failure
// worth backing off and retrying.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Client talks to the marketplace API. Every request carries a randomized
// User-Agent and a fresh correlation ID, is paced by the shared limiter, and
// is retried with exponential backoff up to the retry ceiling.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter

	retryCeiling int
	retryBase    time.Duration
}

type ClientOptions struct {
	BaseURL           string
	Token             string
	RequestTimeout    time.Duration
	RequestsPerMinute int
	RetryCeiling      int
	RetryBaseDelay    time.Duration
}

func NewClient(opts ClientOptions) *Client {
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.RequestsPerMinute == 0 {
		opts.RequestsPerMinute = 600
	}
	if opts.RetryCeiling == 0 {
		opts.RetryCeiling = 3
	}
	if opts.RetryBaseDelay == 0 {
		opts.RetryBaseDelay = 500 * time.Millisecond
	}
	return &Client{
		httpClient:   &http.Client{Timeout: opts.RequestTimeout},
		baseURL:      opts.BaseURL,
		token:        opts.Token,
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), opts.RequestsPerMinute/10+1),
		retryCeiling: opts.RetryCeiling,
		retryBase:    opts.RetryBaseDelay,
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Basic "+c.token)
	}
}

// doWithRetry issues the request built by build, retrying transient failures
// with base*2^attempt backoff. The request is rebuilt on each attempt so the
// correlation ID and User-Agent stay fresh.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retryCeiling; attempt++ {
		if attempt > 0 {
			delay := c.retryBase * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := build()
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return body, nil
		}
		lastErr = fmt.Errorf("unexpected status %s", resp.Status)
		if !retryableStatus(resp.StatusCode) {
			return nil, lastErr
		}
		log.Printf("market api: transient status %s, attempt %d/%d", resp.Status, attempt+1, c.retryCeiling+1)
	}
	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

func (c *Client) postGraphQL(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{OperationName: operation, Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", operation, err)
	}
	body, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	})
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", operation, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// CategoryTree fetches the full nested category tree with per-category
// product totals.
func (c *Client) CategoryTree(ctx context.Context) ([]CategoryNode, error) {
	var resp categoryTreeResponse
	if err := c.postGraphQL(ctx, "getCategoryTree", categoryTreeQuery, map[string]any{}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("category tree: %s", resp.Errors[0].Message)
	}
	return resp.Data.CategoryTree, nil
}

// SearchPage fetches one page of catalog cards for a category.
func (c *Client) SearchPage(ctx context.Context, page PageRequest) ([]SearchItem, error) {
	vars := map[string]any{
		"queryInput": map[string]any{
			"categoryId": page.CategoryID,
			"pagination": map[string]any{"offset": page.Offset, "limit": page.Limit},
			"showAdultContent": "TRUE",
		},
	}
	var resp searchResponse
	if err := c.postGraphQL(ctx, "getMakeSearch", makeSearchQuery, vars, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("search category %d offset %d: %s", page.CategoryID, page.Offset, resp.Errors[0].Message)
	}
	return resp.Data.MakeSearch.Items, nil
}

// ProductDetails fetches the full product payload by external ID.
func (c *Client) ProductDetails(ctx context.Context, productID int64) (*ProductPayload, error) {
	var resp productResponse
	if err := c.postGraphQL(ctx, "getProductPage", productPageQuery, map[string]any{"id": productID}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("product %d: %s", productID, resp.Errors[0].Message)
	}
	if resp.Data.ProductPage.Product.ID == 0 {
		return nil, fmt.Errorf("product %d: empty payload", productID)
	}
	return &resp.Data.ProductPage.Product, nil
}

// SimilarItems fetches the similar-products list for a product (plain GET).
func (c *Client) SimilarItems(ctx context.Context, productID int64) ([]SimilarItem, error) {
	var resp similarResponse
	url := fmt.Sprintf("%s/v2/product/%d/similar", c.baseURL, productID)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("similar items for %d: %w", productID, err)
	}
	return resp.Items, nil
}

// Reviews fetches the review page for a product (plain GET).
func (c *Client) Reviews(ctx context.Context, productID int64) ([]Review, error) {
	var resp reviewsResponse
	url := fmt.Sprintf("%s/v2/product/%d/reviews?amount=100", c.baseURL, productID)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("reviews for %d: %w", productID, err)
	}
	return resp.Payload, nil
}
