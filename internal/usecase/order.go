package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pixelfall/pixelfall"
	"github.com/pixelfall/pixelfall/internal/domain"
)

var tracer = otel.Tracer("usecase")

// OrderUsecase is the order ledger: the sole writer of the order field.
// Every other component routes order mutations through here.
type OrderUsecase struct {
	albums AlbumRepository
	media  MediaRepository
	signal Publisher
}

func NewOrderUsecase(albums AlbumRepository, media MediaRepository, signal Publisher) *OrderUsecase {
	return &OrderUsecase{albums: albums, media: media, signal: signal}
}

// SetOrder applies a validated batch of order assignments. The gate's
// storage-backed checks (album existence, ownership count) run here,
// before any write; one violation rejects the whole batch. Returns the
// number of rows actually modified.
func (uc *OrderUsecase) SetOrder(ctx context.Context, albumID string, orders []pixelfall.MediaOrder) (int64, error) {
	ctx, span := tracer.Start(ctx, "Order.Usecase.SetOrder")
	defer span.End()
	span.SetAttributes(attribute.Int("orders", len(orders)))

	exists, err := uc.albums.Exists(ctx, albumID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, domain.NotFoundError{Resource: "album"}
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.MediaID)
	}

	count, err := uc.media.CountByIDs(ctx, albumID, ids)
	if err != nil {
		return 0, err
	}
	if count != int64(len(orders)) {
		return 0, domain.OwnershipError{}
	}

	updated, err := uc.media.BulkSetOrder(ctx, albumID, orders)
	if err != nil {
		return 0, err
	}

	uc.publish(ctx, pixelfall.Event{
		Type:      domain.EventOrderCommitted,
		AlbumID:   albumID,
		Body:      map[string]any{"updatedCount": updated},
		Timestamp: time.Now(),
	})

	return updated, nil
}

// GetOrdered returns the album's media ascending by order, falling back
// to uploadedAt for legacy rows without one. Never fails on a missing
// order value.
func (uc *OrderUsecase) GetOrdered(ctx context.Context, albumID string) ([]pixelfall.Media, error) {
	return uc.media.ListByAlbum(ctx, albumID)
}

// MaxOrder returns the highest order currently assigned in the album,
// or -1 when the album has no ordered media.
func (uc *OrderUsecase) MaxOrder(ctx context.Context, albumID string) (int64, error) {
	return uc.media.MaxOrder(ctx, albumID)
}

// Commit is the ledger's insertion path: persists a committed item with
// append semantics (currentMax+1) unless the caller supplies an explicit
// submission-index-derived order.
func (uc *OrderUsecase) Commit(ctx context.Context, albumID, url, pathname, contentType string, explicit *int64) (pixelfall.Media, error) {
	ctx, span := tracer.Start(ctx, "Order.Usecase.Commit")
	defer span.End()

	if explicit != nil && *explicit < 0 {
		return pixelfall.Media{}, domain.ValidationError{Message: "order must be >= 0"}
	}

	exists, err := uc.albums.Exists(ctx, albumID)
	if err != nil {
		return pixelfall.Media{}, err
	}
	if !exists {
		return pixelfall.Media{}, domain.NotFoundError{Resource: "album"}
	}

	var order int64
	if explicit != nil {
		order = *explicit
	} else {
		max, err := uc.media.MaxOrder(ctx, albumID)
		if err != nil {
			return pixelfall.Media{}, err
		}
		order = max + 1
	}

	media := pixelfall.Media{
		ID:         uuid.NewString(),
		AlbumID:    albumID,
		URL:        url,
		Filename:   pathname,
		Type:       pixelfall.MediaTypeOf(contentType),
		Order:      &order,
		UploadedAt: time.Now(),
	}

	return uc.media.Insert(ctx, media)
}

func (uc *OrderUsecase) publish(ctx context.Context, event pixelfall.Event) {
	if uc.signal == nil {
		return
	}
	if err := uc.signal.Publish(ctx, event); err != nil {
		slog.WarnContext(
			ctx, "failed to publish event",
			slog.String("error", err.Error()),
			slog.String("module", "order"),
		)
	}
}
