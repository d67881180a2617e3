package repositories

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type RollupRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    RollupRepository
	context context.Context
}

func (suite *RollupRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewRollupRepository(mock)
	suite.context = context.Background()
}

func (suite *RollupRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestRollupRepoTestSuite(t *testing.T) {
	suite.Run(t, new(RollupRepoTestSuite))
}

// Positions must come from RANK(): ties share a position and the next
// distinct value resumes at row-count+1, for all three partitions.
func (suite *RollupRepoTestSuite) TestRankProducts_UsesGappedRank() {
	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	suite.mock.ExpectExec(`RANK\(\) OVER \(ORDER BY pa\.orders_amount DESC\)`).
		WithArgs(date).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))

	ranked, err := suite.repo.RankProducts(suite.context, date)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(4), ranked)
}

func (suite *RollupRepoTestSuite) TestRankProducts_PartitionsByCategoryAndShop() {
	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	suite.mock.ExpectExec(`PARTITION BY p\.category_id(?s).*PARTITION BY p\.shop_id`).
		WithArgs(date).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := suite.repo.RankProducts(suite.context, date)
	assert.NoError(suite.T(), err)
}

// Stock-depletion sales clamp restocks to zero sold units.
func (suite *RollupRepoTestSuite) TestRollupSkuSales() {
	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	suite.mock.ExpectExec(`GREATEST\(prev\.available_amount - cur\.available_amount, 0\)`).
		WithArgs(date).
		WillReturnResult(pgxmock.NewResult("UPDATE", 7))

	updated, err := suite.repo.RollupSkuSales(suite.context, date)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(7), updated)
}
