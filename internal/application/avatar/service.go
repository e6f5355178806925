package avatar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/go-todo-api/internal/domain"
	"github.com/go-todo-api/internal/pkg/id"
)

// MaxSize is the upload cap for avatar images.
const MaxSize = 5 << 20

const fieldImage = "image"

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type UploadInput struct {
	Reader      io.Reader
	ContentType string
	Size        int64
}

type Service interface {
	// Upload stores a new avatar image and points the user's image field at
	// it. The previous image object, if any, is removed best-effort.
	Upload(ctx context.Context, userID string, input UploadInput) (*domain.User, error)
	// Remove deletes the user's avatar image and clears the image field.
	Remove(ctx context.Context, userID string) (*domain.User, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type service struct {
	objects objectStore
	users   userStore
}

type ServiceDeps struct {
	ObjectStore objectStore
	UserRepo    userStore
}

func NewService(deps ServiceDeps) Service {
	return &service{objects: deps.ObjectStore, users: deps.UserRepo}
}

func (s *service) Upload(ctx context.Context, userID string, input UploadInput) (*domain.User, error) {
	ext, ok := allowedTypes[input.ContentType]
	if !ok {
		return nil, fmt.Errorf("unsupported image type %q: %w", input.ContentType, domain.ErrBadRequest)
	}
	if input.Size > MaxSize {
		return nil, fmt.Errorf("image exceeds 5MB limit: %w", domain.ErrBadRequest)
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := "avatars/" + id.New() + ext
	url, err := s.objects.Upload(ctx, key, io.LimitReader(input.Reader, MaxSize), input.ContentType)
	if err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{fieldImage: url}); err != nil {
		return nil, err
	}

	if old := objectKey(u.Image); old != "" {
		if err := s.objects.Delete(ctx, old); err != nil {
			slog.Warn("failed to delete previous avatar", "key", old, "err", err)
		}
	}

	u.Image = &url
	return u, nil
}

func (s *service) Remove(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{fieldImage: nil}); err != nil {
		return nil, err
	}
	if old := objectKey(u.Image); old != "" {
		if err := s.objects.Delete(ctx, old); err != nil {
			slog.Warn("failed to delete avatar", "key", old, "err", err)
		}
	}
	u.Image = nil
	return u, nil
}

// objectKey extracts the bucket-relative key from an s3:// image URL.
// Externally hosted images return "" and are left alone.
func objectKey(imageURL *string) string {
	if imageURL == nil || !strings.HasPrefix(*imageURL, "s3://") {
		return ""
	}
	parts := strings.SplitN(strings.TrimPrefix(*imageURL, "s3://"), "/", 2)
	if len(parts) != 2 || !strings.HasPrefix(parts[1], "avatars/") {
		return ""
	}
	return path.Clean(parts[1])
}
