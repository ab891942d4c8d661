package usecase

import (
	"context"

	"github.com/pixelfall/pixelfall"
)

// AlbumRepository defines persistence/lookup for albums.
type AlbumRepository interface {
	Create(ctx context.Context, album pixelfall.Album) (pixelfall.Album, error)
	Get(ctx context.Context, albumID string) (pixelfall.Album, error)
	List(ctx context.Context) ([]pixelfall.Album, error)
	Exists(ctx context.Context, albumID string) (bool, error)
	Delete(ctx context.Context, albumID string) error
}

// MediaRepository defines storage operations for media items. ListByAlbum
// returns ascending display order with the uploadedAt fallback for rows
// missing an order value.
type MediaRepository interface {
	Insert(ctx context.Context, media pixelfall.Media) (pixelfall.Media, error)
	Get(ctx context.Context, mediaID string) (pixelfall.Media, error)
	ListByAlbum(ctx context.Context, albumID string) ([]pixelfall.Media, error)
	MaxOrder(ctx context.Context, albumID string) (int64, error)
	CountByIDs(ctx context.Context, albumID string, mediaIDs []string) (int64, error)
	CountByURL(ctx context.Context, albumID string, url string) (int64, error)
	BulkSetOrder(ctx context.Context, albumID string, orders []pixelfall.MediaOrder) (int64, error)
	Delete(ctx context.Context, mediaID string) error
	SetPublished(ctx context.Context, mediaID string, published bool) error
	SetFavorite(ctx context.Context, mediaID string, favorite bool) error
}

// BlobStore encapsulates the external blob storage collaborator.
type BlobStore interface {
	Put(ctx context.Context, pathname string, contentType string, content []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// Publisher emits album events for realtime subscribers.
type Publisher interface {
	Publish(ctx context.Context, event pixelfall.Event) error
}
