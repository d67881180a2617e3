package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"marketscan/internal/models"
)

// BadgeRepository covers the auxiliary entities attached to products:
// badges (external ID), campaigns (title natural key), banners (external ID).
type BadgeRepository interface {
	AllIDs(ctx context.Context) (map[int64]bool, error)
	BulkInsert(ctx context.Context, badges []*models.Badge) (int, int, error)
	EnsureCampaign(ctx context.Context, title string, date time.Time) (int64, error)
	EnsureBanner(ctx context.Context, banner *models.Banner) error
}

type badgeRepo struct {
	db DB
}

func NewBadgeRepository(db DB) BadgeRepository {
	return &badgeRepo{db: db}
}

func (r *badgeRepo) AllIDs(ctx context.Context) (map[int64]bool, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM badges`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (r *badgeRepo) BulkInsert(ctx context.Context, badges []*models.Badge) (int, int, error) {
	batch := &pgx.Batch{}
	query := `
		INSERT INTO badges (id, text, type, background_color, text_color, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO NOTHING
	`
	for _, b := range badges {
		batch.Queue(query, b.ID, b.Text, b.Type, b.BackgroundColor, b.TextColor, b.Description)
	}
	return execBatch(ctx, r.db, batch, len(badges))
}

// EnsureCampaign creates the campaign by title if unseen and returns its ID
// either way.
func (r *badgeRepo) EnsureCampaign(ctx context.Context, title string, date time.Time) (int64, error) {
	var id int64
	query := `
		INSERT INTO campaigns (title, date, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (title) DO UPDATE SET date = EXCLUDED.date
		RETURNING id
	`
	if err := r.db.QueryRow(ctx, query, title, date).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *badgeRepo) EnsureBanner(ctx context.Context, banner *models.Banner) error {
	query := `
		INSERT INTO banners (id, title, link, image, date, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, banner.ID, banner.Title, banner.Link, banner.Image, banner.Date)
	return err
}
