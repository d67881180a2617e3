package repositories

import (
	"context"

	"marketscan/internal/models"
)

type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
	Upsert(ctx context.Context, category *models.Category) error
	UpdateDescendants(ctx context.Context, id int64, descendantIDs string) error
}

type categoryRepo struct {
	db DB
}

func NewCategoryRepository(db DB) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	category := &models.Category{}
	query := `
		SELECT id, title, parent_id, descendant_ids, created_at, updated_at
		FROM categories
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&category.ID, &category.Title, &category.ParentID, &category.DescendantIDs, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (r *categoryRepo) List(ctx context.Context) ([]*models.Category, error) {
	query := `
		SELECT id, title, parent_id, descendant_ids, created_at, updated_at
		FROM categories
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category := &models.Category{}
		if err := rows.Scan(&category.ID, &category.Title, &category.ParentID, &category.DescendantIDs, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *categoryRepo) Upsert(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (id, title, parent_id, descendant_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, parent_id = EXCLUDED.parent_id, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, category.ID, category.Title, category.ParentID, category.DescendantIDs)
	return err
}

func (r *categoryRepo) UpdateDescendants(ctx context.Context, id int64, descendantIDs string) error {
	query := `UPDATE categories SET descendant_ids = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, descendantIDs, id)
	return err
}
