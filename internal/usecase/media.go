package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/pixelfall/pixelfall"
	"github.com/pixelfall/pixelfall/internal/domain"
)

// MediaUsecase covers single-item operations: explicit delete and the
// published/favorite toggles.
type MediaUsecase struct {
	media  MediaRepository
	blobs  BlobStore
	signal Publisher
}

func NewMediaUsecase(media MediaRepository, blobs BlobStore, signal Publisher) *MediaUsecase {
	return &MediaUsecase{media: media, blobs: blobs, signal: signal}
}

// dropBlobIfUnreferenced deletes the blob behind url once no media row in
// the album references it. Best effort: failures are logged and never
// block the metadata deletion that already happened.
func dropBlobIfUnreferenced(ctx context.Context, media MediaRepository, blobs BlobStore, albumID, url string) {
	if blobs == nil {
		return
	}

	remaining, err := media.CountByURL(ctx, albumID, url)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to count blob references",
			slog.String("url", url),
			slog.String("error", err.Error()),
			slog.String("module", "media"),
		)
		return
	}
	if remaining > 0 {
		return
	}

	if err := blobs.Delete(ctx, url); err != nil {
		slog.WarnContext(
			ctx, "failed to delete blob",
			slog.String("url", url),
			slog.String("error", err.Error()),
			slog.String("module", "media"),
		)
	}
}

// Delete removes the media row and best-effort deletes the blob behind it.
func (uc *MediaUsecase) Delete(ctx context.Context, mediaID string) error {
	ctx, span := tracer.Start(ctx, "Media.Usecase.Delete")
	defer span.End()

	m, err := uc.media.Get(ctx, mediaID)
	if err != nil {
		return err
	}

	if err := uc.media.Delete(ctx, mediaID); err != nil {
		return err
	}

	dropBlobIfUnreferenced(ctx, uc.media, uc.blobs, m.AlbumID, m.URL)

	if uc.signal != nil {
		err := uc.signal.Publish(ctx, pixelfall.Event{
			Type:      domain.EventMediaDeleted,
			AlbumID:   m.AlbumID,
			Body:      map[string]any{"mediaId": mediaID},
			Timestamp: time.Now(),
		})
		if err != nil {
			slog.WarnContext(
				ctx, "failed to publish event",
				slog.String("error", err.Error()),
				slog.String("module", "media"),
			)
		}
	}

	return nil
}

// ToggleFavorite flips the favorite flag and returns the new state.
func (uc *MediaUsecase) ToggleFavorite(ctx context.Context, mediaID string) (bool, error) {
	m, err := uc.media.Get(ctx, mediaID)
	if err != nil {
		return false, err
	}

	next := !m.Favorite
	if err := uc.media.SetFavorite(ctx, mediaID, next); err != nil {
		return false, err
	}
	return next, nil
}

// TogglePublish flips the published flag and returns the new state.
func (uc *MediaUsecase) TogglePublish(ctx context.Context, mediaID string) (bool, error) {
	m, err := uc.media.Get(ctx, mediaID)
	if err != nil {
		return false, err
	}

	next := !m.Published
	if err := uc.media.SetPublished(ctx, mediaID, next); err != nil {
		return false, err
	}
	return next, nil
}
