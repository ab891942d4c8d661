package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pixelfall/pixelfall"
)

// AlbumUsecase covers album lifecycle: creation, reads, and the cascading
// deletion that also sweeps blobs.
type AlbumUsecase struct {
	albums AlbumRepository
	media  MediaRepository
	blobs  BlobStore
}

func NewAlbumUsecase(albums AlbumRepository, media MediaRepository, blobs BlobStore) *AlbumUsecase {
	return &AlbumUsecase{albums: albums, media: media, blobs: blobs}
}

func (uc *AlbumUsecase) Create(ctx context.Context, title, description, coverURL string) (pixelfall.Album, error) {
	now := time.Now()
	album := pixelfall.Album{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		CoverURL:    coverURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return uc.albums.Create(ctx, album)
}

func (uc *AlbumUsecase) List(ctx context.Context) ([]pixelfall.Album, error) {
	return uc.albums.List(ctx)
}

// Detail returns the album and its media in ascending display order.
func (uc *AlbumUsecase) Detail(ctx context.Context, albumID string) (pixelfall.AlbumDetail, error) {
	album, err := uc.albums.Get(ctx, albumID)
	if err != nil {
		return pixelfall.AlbumDetail{}, err
	}

	media, err := uc.media.ListByAlbum(ctx, albumID)
	if err != nil {
		return pixelfall.AlbumDetail{}, err
	}

	return pixelfall.AlbumDetail{Album: album, Media: media}, nil
}

// Delete removes the album and its media rows, then best-effort deletes
// the blobs that backed them. Blob failures are logged and never undo the
// metadata deletion.
func (uc *AlbumUsecase) Delete(ctx context.Context, albumID string) error {
	ctx, span := tracer.Start(ctx, "Album.Usecase.Delete")
	defer span.End()

	if _, err := uc.albums.Get(ctx, albumID); err != nil {
		return err
	}

	items, err := uc.media.ListByAlbum(ctx, albumID)
	if err != nil {
		return err
	}

	if err := uc.albums.Delete(ctx, albumID); err != nil {
		return err
	}

	if uc.blobs == nil {
		return nil
	}

	seen := make(map[string]bool)
	for _, m := range items {
		if seen[m.URL] {
			continue
		}
		seen[m.URL] = true
		if err := uc.blobs.Delete(ctx, m.URL); err != nil {
			slog.WarnContext(
				ctx, "failed to delete blob",
				slog.String("url", m.URL),
				slog.String("error", err.Error()),
				slog.String("module", "album"),
			)
		}
	}

	return nil
}
