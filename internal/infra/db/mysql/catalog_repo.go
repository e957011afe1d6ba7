package mysql

import (
	"context"
	"database/sql"
	"fmt"

	domain "github.com/ngocminh/chudau-catalog/internal/domain/catalog"
)

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  title VARCHAR(255) NOT NULL,
  category VARCHAR(128) NOT NULL DEFAULT '',
  status VARCHAR(64) NOT NULL DEFAULT '',
  priority VARCHAR(32) NOT NULL DEFAULT '',
  description MEDIUMTEXT,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
	`CREATE TABLE IF NOT EXISTS categories (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  name VARCHAR(128) NOT NULL,
  icon VARCHAR(64) NOT NULL DEFAULT '',
  color VARCHAR(16) NOT NULL DEFAULT ''
);`,
	`CREATE TABLE IF NOT EXISTS logs (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  action VARCHAR(32) NOT NULL,
  record_id BIGINT NOT NULL,
  details TEXT,
  timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
	`CREATE TABLE IF NOT EXISTS community_posts (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  title VARCHAR(255) NOT NULL,
  content TEXT NOT NULL,
  author VARCHAR(128) NOT NULL DEFAULT '',
  image_url VARCHAR(512) NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
}

// Migrate creates the four collections and seeds the fixed category
// list on first startup if the table is empty.
func (r *CatalogRepository) Migrate(ctx context.Context) error {
	for _, q := range schema {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		for _, c := range domain.SeedCategories() {
			if _, err := r.db.ExecContext(ctx,
				`INSERT INTO categories (name, icon, color) VALUES (?,?,?)`,
				c.Name, c.Icon, c.Color); err != nil {
				return err
			}
		}
	}
	return nil
}

// Records returns all entries, newest first
func (r *CatalogRepository) Records(ctx context.Context) ([]*domain.Record, error) {
	const q = `
SELECT id, title, category, status, priority, description, created_at, updated_at
FROM records
ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		var rec domain.Record
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Category, &rec.Status,
			&rec.Priority, &rec.Description, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// CreateRecord inserts the record and appends the audit row; the audit
// entry is this layer's responsibility, not the caller's.
func (r *CatalogRepository) CreateRecord(ctx context.Context, f domain.NewRecordFields) (domain.RecordID, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO records (title, category, status, priority, description) VALUES (?,?,?,?,?)`,
		f.Title, f.Category, f.Status, f.Priority, f.Description)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO logs (action, record_id, details) VALUES (?,?,?)`,
		domain.ActionCreateRecord, id, fmt.Sprintf("Created record: %s", f.Title))
	if err != nil {
		return 0, err
	}
	return domain.RecordID(id), nil
}

func (r *CatalogRepository) Categories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, icon, color FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) Community(ctx context.Context) ([]*domain.CommunityPost, error) {
	const q = `
SELECT id, title, content, author, image_url, created_at
FROM community_posts
ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.CommunityPost
	for rows.Next() {
		var p domain.CommunityPost
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.Author, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) CreateCommunityPost(ctx context.Context, f domain.NewPostFields) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO community_posts (title, content, author, image_url) VALUES (?,?,?,?)`,
		f.Title, f.Content, f.Author, f.ImageURL)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO logs (action, record_id, details) VALUES (?,?,?)`,
		domain.ActionCreatePost, id, fmt.Sprintf("Created post: %s", f.Title))
	if err != nil {
		return 0, err
	}
	return id, nil
}
