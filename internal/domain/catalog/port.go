package catalog

import "context"

// Repository port (interface untuk persistence). One implementation is
// chosen at startup — server-backed SQL or the embedded local store —
// and never switched per call.
type Repository interface {
	Records(ctx context.Context) ([]*Record, error)
	CreateRecord(ctx context.Context, f NewRecordFields) (RecordID, error)
	Categories(ctx context.Context) ([]Category, error)
	Community(ctx context.Context) ([]*CommunityPost, error)
	CreateCommunityPost(ctx context.Context, f NewPostFields) (int64, error)
}

// ImageStore port (interface untuk penyimpanan gambar bài viết)
type ImageStore interface {
	UploadImage(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
