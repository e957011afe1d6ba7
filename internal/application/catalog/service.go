package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	domain "github.com/ngocminh/chudau-catalog/internal/domain/catalog"
)

// Service implements use-cases for the artifact library and the
// community board over whichever Repository was injected at startup.
type Service struct {
	Repo   domain.Repository
	Images domain.ImageStore // nil when no object store is configured
}

func (s *Service) Records(ctx context.Context) ([]*domain.Record, error) {
	return s.Repo.Records(ctx)
}

func (s *Service) CreateRecord(ctx context.Context, f domain.NewRecordFields) (domain.RecordID, error) {
	if strings.TrimSpace(f.Title) == "" {
		return 0, fmt.Errorf("title is required")
	}
	return s.Repo.CreateRecord(ctx, f)
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.Repo.Categories(ctx)
}

func (s *Service) Community(ctx context.Context) ([]*domain.CommunityPost, error) {
	return s.Repo.Community(ctx)
}

// CreateCommunityPost stores an optional attached image first, then
// the post itself with the resulting public URL.
func (s *Service) CreateCommunityPost(ctx context.Context, f domain.NewPostFields, image []byte, contentType string) (int64, error) {
	if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Content) == "" {
		return 0, fmt.Errorf("title and content are required")
	}
	if len(image) > 0 {
		if s.Images == nil {
			return 0, fmt.Errorf("image uploads are not configured")
		}
		key := fmt.Sprintf("community/%s%s", uuid.New().String(), extByContentType(contentType))
		url, err := s.Images.UploadImage(ctx, key, image, contentType)
		if err != nil {
			return 0, err
		}
		f.ImageURL = url
	}
	return s.Repo.CreateCommunityPost(ctx, f)
}

func extByContentType(ct string) string {
	switch ct {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
