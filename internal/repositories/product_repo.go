package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"marketscan/internal/models"
)

type ProductRepository interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
	ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
	Update(ctx context.Context, product *models.Product) error
	BulkInsert(ctx context.Context, products []*models.Product) (int, int, error)
	StaleIDs(ctx context.Context, before time.Time, limit int) ([]int64, error)
}

type productRepo struct {
	db DB
}

func NewProductRepository(db DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	query := `
		SELECT id, title, description, is_adult, is_eco, is_perishable, has_bonus,
		       attributes, characteristics, photos, shop_id, category_id, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[int64]*models.Product, len(ids))
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.IsAdult, &p.IsEco, &p.IsPerishable, &p.HasBonus,
			&p.Attributes, &p.Characteristics, &p.Photos, &p.ShopID, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

func (r *productRepo) ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = true
	}
	return existing, rows.Err()
}

func (r *productRepo) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET title = $1, description = $2, is_adult = $3, is_eco = $4, is_perishable = $5, has_bonus = $6,
		    attributes = $7, characteristics = $8, photos = $9, shop_id = $10, category_id = $11, updated_at = NOW()
		WHERE id = $12
	`
	_, err := r.db.Exec(ctx, query, product.Title, product.Description, product.IsAdult, product.IsEco,
		product.IsPerishable, product.HasBonus, product.Attributes, product.Characteristics, product.Photos,
		product.ShopID, product.CategoryID, product.ID)
	return err
}

func (r *productRepo) BulkInsert(ctx context.Context, products []*models.Product) (int, int, error) {
	batch := &pgx.Batch{}
	query := `
		INSERT INTO products (id, title, description, is_adult, is_eco, is_perishable, has_bonus,
		                      attributes, characteristics, photos, shop_id, category_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
	`
	for _, p := range products {
		batch.Queue(query, p.ID, p.Title, p.Description, p.IsAdult, p.IsEco, p.IsPerishable, p.HasBonus,
			p.Attributes, p.Characteristics, p.Photos, p.ShopID, p.CategoryID)
	}
	return execBatch(ctx, r.db, batch, len(products))
}

// StaleIDs returns product IDs with no snapshot on or after the given day,
// oldest last-snapshot first (never-snapshotted products lead).
func (r *productRepo) StaleIDs(ctx context.Context, before time.Time, limit int) ([]int64, error) {
	query := `
		SELECT p.id
		FROM products p
		LEFT JOIN (
			SELECT product_id, MAX(date) AS last_date
			FROM product_analytics
			GROUP BY product_id
		) pa ON pa.product_id = p.id
		WHERE pa.last_date IS NULL OR pa.last_date < $1
		ORDER BY pa.last_date ASC NULLS FIRST
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
