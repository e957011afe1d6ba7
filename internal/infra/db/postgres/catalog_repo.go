package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	domain "github.com/ngocminh/chudau-catalog/internal/domain/catalog"
)

type CatalogRepository struct{ db *sql.DB }

func NewCatalogRepository(db *sql.DB) *CatalogRepository { return &CatalogRepository{db: db} }

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
  id BIGSERIAL PRIMARY KEY,
  title TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT '',
  priority TEXT NOT NULL DEFAULT '',
  description TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	`CREATE TABLE IF NOT EXISTS categories (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  icon TEXT NOT NULL DEFAULT '',
  color TEXT NOT NULL DEFAULT ''
);`,
	`CREATE TABLE IF NOT EXISTS logs (
  id BIGSERIAL PRIMARY KEY,
  action TEXT NOT NULL,
  record_id BIGINT NOT NULL,
  details TEXT,
  timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	`CREATE TABLE IF NOT EXISTS community_posts (
  id BIGSERIAL PRIMARY KEY,
  title TEXT NOT NULL,
  content TEXT NOT NULL,
  author TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
}

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
				`INSERT INTO categories (name, icon, color) VALUES ($1,$2,$3)`,
				c.Name, c.Icon, c.Color); err != nil {
				return err
			}
		}
	}
	return nil
}

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

func (r *CatalogRepository) CreateRecord(ctx context.Context, f domain.NewRecordFields) (domain.RecordID, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO records (title, category, status, priority, description)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		f.Title, f.Category, f.Status, f.Priority, f.Description).Scan(&id)
	if err != nil {
		return 0, err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO logs (action, record_id, details) VALUES ($1,$2,$3)`,
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
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO community_posts (title, content, author, image_url)
VALUES ($1,$2,$3,$4) RETURNING id`,
		f.Title, f.Content, f.Author, f.ImageURL).Scan(&id)
	if err != nil {
		return 0, err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO logs (action, record_id, details) VALUES ($1,$2,$3)`,
		domain.ActionCreatePost, id, fmt.Sprintf("Created post: %s", f.Title))
	if err != nil {
		return 0, err
	}
	return id, nil
}
