package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"marketscan/internal/models"
)

type SkuRepository interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Sku, error)
	Update(ctx context.Context, sku *models.Sku) error
	BulkInsert(ctx context.Context, skus []*models.Sku) (int, int, error)
}

type skuRepo struct {
	db DB
}

func NewSkuRepository(db DB) SkuRepository {
	return &skuRepo{db: db}
}

func (r *skuRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Sku, error) {
	query := `
		SELECT id, product_id, characteristics, discount_badge_id, created_at, updated_at
		FROM skus
		WHERE id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skus := make(map[int64]*models.Sku, len(ids))
	for rows.Next() {
		s := &models.Sku{}
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Characteristics, &s.DiscountBadgeID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		skus[s.ID] = s
	}
	return skus, rows.Err()
}

func (r *skuRepo) Update(ctx context.Context, sku *models.Sku) error {
	query := `UPDATE skus SET product_id = $1, characteristics = $2, discount_badge_id = $3, updated_at = NOW() WHERE id = $4`
	_, err := r.db.Exec(ctx, query, sku.ProductID, sku.Characteristics, sku.DiscountBadgeID, sku.ID)
	return err
}

func (r *skuRepo) BulkInsert(ctx context.Context, skus []*models.Sku) (int, int, error) {
	batch := &pgx.Batch{}
	query := `
		INSERT INTO skus (id, product_id, characteristics, discount_badge_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
	`
	for _, s := range skus {
		batch.Queue(query, s.ID, s.ProductID, s.Characteristics, s.DiscountBadgeID)
	}
	return execBatch(ctx, r.db, batch, len(skus))
}
