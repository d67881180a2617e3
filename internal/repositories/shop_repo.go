package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"marketscan/internal/models"
)

type ShopRepository interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Shop, error)
	Update(ctx context.Context, shop *models.Shop) error
	BulkInsert(ctx context.Context, shops []*models.Shop) (int, int, error)
}

type shopRepo struct {
	db DB
}

func NewShopRepository(db DB) ShopRepository {
	return &shopRepo{db: db}
}

func (r *shopRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Shop, error) {
	query := `
		SELECT id, title, link, description, account_id, registration_date, created_at, updated_at
		FROM shops
		WHERE id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shops := make(map[int64]*models.Shop, len(ids))
	for rows.Next() {
		s := &models.Shop{}
		if err := rows.Scan(&s.ID, &s.Title, &s.Link, &s.Description, &s.AccountID, &s.RegistrationDate, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		shops[s.ID] = s
	}
	return shops, rows.Err()
}

func (r *shopRepo) Update(ctx context.Context, shop *models.Shop) error {
	query := `UPDATE shops SET title = $1, link = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.Exec(ctx, query, shop.Title, shop.Link, shop.ID)
	return err
}

func (r *shopRepo) BulkInsert(ctx context.Context, shops []*models.Shop) (int, int, error) {
	batch := &pgx.Batch{}
	query := `
		INSERT INTO shops (id, title, link, description, account_id, registration_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
	`
	for _, s := range shops {
		batch.Queue(query, s.ID, s.Title, s.Link, s.Description, s.AccountID, s.RegistrationDate)
	}
	return execBatch(ctx, r.db, batch, len(shops))
}
