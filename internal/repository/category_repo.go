package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/appgrove/ingest-api/internal/models"
)

// SQLiteCategoryRepository implements CategoryRepository for SQLite.
type SQLiteCategoryRepository struct {
	db *sql.DB
}

// NewSQLiteCategoryRepository creates a new SQLite category repository.
func NewSQLiteCategoryRepository(db *sql.DB) *SQLiteCategoryRepository {
	return &SQLiteCategoryRepository{db: db}
}

// GetOrCreateByURL returns the category for a listing URL, creating it on
// first sight. The name is refreshed when the listing page reports a
// different one (the URL is the stable key, names drift).
func (r *SQLiteCategoryRepository) GetOrCreateByURL(ctx context.Context, name, url string) (*models.Category, error) {
	existing, err := r.GetByURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if name != "" && name != existing.Name {
			if _, err := r.db.ExecContext(ctx,
				`UPDATE categories SET name = ? WHERE id = ?`, name, existing.ID); err != nil {
				return nil, fmt.Errorf("failed to update category name: %w", err)
			}
			existing.Name = name
		}
		return existing, nil
	}

	category := &models.Category{
		ID:        ulid.Make().String(),
		Name:      name,
		URL:       url,
		CreatedAt: time.Now().UTC(),
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, url, created_at) VALUES (?, ?, ?, ?)`,
		category.ID, category.Name, category.URL, category.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (r *SQLiteCategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	return r.scanCategory(r.db.QueryRowContext(ctx,
		`SELECT id, name, url, created_at FROM categories WHERE id = ?`, id))
}

func (r *SQLiteCategoryRepository) GetByURL(ctx context.Context, url string) (*models.Category, error) {
	return r.scanCategory(r.db.QueryRowContext(ctx,
		`SELECT id, name, url, created_at FROM categories WHERE url = ?`, url))
}

func (r *SQLiteCategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, url, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.URL, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

func (r *SQLiteCategoryRepository) scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	var createdAt string
	err := row.Scan(&c.ID, &c.Name, &c.URL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}
