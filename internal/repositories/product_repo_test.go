package repositories

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"marketscan/internal/models"
)

type ProductRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    ProductRepository
	context context.Context
}

func (suite *ProductRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewProductRepository(mock)
	suite.context = context.Background()
}

func (suite *ProductRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestProductRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ProductRepoTestSuite))
}

func (suite *ProductRepoTestSuite) TestExistingIDs() {
	ids := []int64{1, 2, 3}
	rows := pgxmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(3))
	suite.mock.ExpectQuery(`SELECT id FROM products WHERE id = ANY\(\$1\)`).
		WithArgs(ids).
		WillReturnRows(rows)

	existing, err := suite.repo.ExistingIDs(suite.context, ids)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), existing[1])
	assert.False(suite.T(), existing[2])
	assert.True(suite.T(), existing[3])
}

func (suite *ProductRepoTestSuite) TestUpdate() {
	product := &models.Product{
		ID:         42,
		Title:      "Ceramic mug",
		ShopID:     7,
		CategoryID: 3,
	}

	suite.mock.ExpectExec(`UPDATE products`).
		WithArgs(product.Title, product.Description, product.IsAdult, product.IsEco,
			product.IsPerishable, product.HasBonus, product.Attributes, product.Characteristics,
			product.Photos, product.ShopID, product.CategoryID, product.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.Update(suite.context, product)
	assert.NoError(suite.T(), err)
}

func (suite *ProductRepoTestSuite) TestStaleIDs_OrderPreserved() {
	before := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id"}).AddRow(int64(9)).AddRow(int64(4))
	suite.mock.ExpectQuery(`SELECT p\.id`).
		WithArgs(before, 100).
		WillReturnRows(rows)

	ids, err := suite.repo.StaleIDs(suite.context, before, 100)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []int64{9, 4}, ids)
}

type AnalyticsRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    AnalyticsRepository
	context context.Context
}

func (suite *AnalyticsRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewAnalyticsRepository(mock)
	suite.context = context.Background()
}

func (suite *AnalyticsRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestAnalyticsRepoTestSuite(t *testing.T) {
	suite.Run(t, new(AnalyticsRepoTestSuite))
}

func (suite *AnalyticsRepoTestSuite) TestCleanupDuplicates_SumsAcrossTables() {
	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	suite.mock.ExpectExec(`DELETE FROM product_analytics`).WithArgs(date).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	suite.mock.ExpectExec(`DELETE FROM sku_analytics`).WithArgs(date).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	suite.mock.ExpectExec(`DELETE FROM shop_analytics`).WithArgs(date).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	suite.mock.ExpectExec(`DELETE FROM category_analytics`).WithArgs(date).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	deleted, err := suite.repo.CleanupDuplicates(suite.context, date)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(6), deleted)
}

func (suite *AnalyticsRepoTestSuite) TestLatestProduct() {
	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	ids := []int64{10, 20}
	rows := pgxmock.NewRows([]string{"product_id", "date", "orders_amount", "orders_money"}).
		AddRow(int64(10), date, int64(100), int64(500))
	suite.mock.ExpectQuery(`SELECT DISTINCT ON \(product_id\)`).
		WithArgs(ids).
		WillReturnRows(rows)

	stats, err := suite.repo.LatestProduct(suite.context, ids)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), stats, 1)
	assert.Equal(suite.T(), int64(100), stats[10].OrdersAmount)
	assert.Nil(suite.T(), stats[20])
}
