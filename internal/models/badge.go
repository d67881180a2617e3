package models

import "time"

// Badge is created idempotently by its external ID.
type Badge struct {
	ID              int64     `json:"id" db:"id"`
	Text            string    `json:"text" db:"text"`
	Type            string    `json:"type" db:"type"`
	BackgroundColor string    `json:"background_color" db:"background_color"`
	TextColor       string    `json:"text_color" db:"text_color"`
	Description     string    `json:"description" db:"description"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Campaign is created idempotently by its title (natural key).
type Campaign struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Date      time.Time `json:"date" db:"date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Banner is created idempotently by its external ID.
type Banner struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Link      string    `json:"link" db:"link"`
	Image     string    `json:"image" db:"image"`
	Date      time.Time `json:"date" db:"date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
