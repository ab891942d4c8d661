package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/zeebo/xxh3"
	"gorm.io/gorm"

	"github.com/pixelfall/pixelfall"
	"github.com/pixelfall/pixelfall/internal/domain"
	"github.com/pixelfall/pixelfall/internal/infra/database/models"
)

const listCacheTTL = 60 // seconds

// Memcache is the slice of the memcached client the repositories use.
type Memcache interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

type MediaRepository struct {
	db *gorm.DB
	mc Memcache
}

func NewMediaRepository(db *gorm.DB, mc Memcache) *MediaRepository {
	return &MediaRepository{db: db, mc: mc}
}

func (r *MediaRepository) Insert(ctx context.Context, media pixelfall.Media) (pixelfall.Media, error) {
	record := mediaToModel(media)

	err := r.db.WithContext(ctx).Create(&record).Error
	if err != nil {
		return pixelfall.Media{}, err
	}

	r.invalidate(media.AlbumID)

	return mediaFromModel(record), nil
}

func (r *MediaRepository) Get(ctx context.Context, mediaID string) (pixelfall.Media, error) {
	var record models.Media
	err := r.db.WithContext(ctx).
		Where("id = ?", mediaID).
		Take(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pixelfall.Media{}, domain.NotFoundError{Resource: "media"}
		}
		return pixelfall.Media{}, err
	}

	return mediaFromModel(record), nil
}

// ListByAlbum returns the album's media in display order: explicit order
// ascending, rows without one trailing by upload time. Results are served
// from memcached when a fresh copy exists.
func (r *MediaRepository) ListByAlbum(ctx context.Context, albumID string) ([]pixelfall.Media, error) {
	key := listCacheKey(albumID)

	if r.mc != nil {
		item, err := r.mc.Get(key)
		if err == nil {
			var cached []pixelfall.Media
			if err := json.Unmarshal(item.Value, &cached); err == nil {
				return cached, nil
			}
		} else if err != memcache.ErrCacheMiss {
			slog.WarnContext(
				ctx, "memcached read failed",
				slog.String("error", err.Error()),
				slog.String("module", "repository"),
			)
		}
	}

	var records []models.Media
	err := r.db.WithContext(ctx).
		Where("album_id = ?", albumID).
		Order(`"order" ASC NULLS LAST, uploaded_at ASC, id ASC`).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	media := make([]pixelfall.Media, 0, len(records))
	for _, record := range records {
		media = append(media, mediaFromModel(record))
	}

	if r.mc != nil {
		if value, err := json.Marshal(media); err == nil {
			r.mc.Set(&memcache.Item{Key: key, Value: value, Expiration: listCacheTTL})
		}
	}

	return media, nil
}

// MaxOrder returns -1 when no row in the album carries an order value.
func (r *MediaRepository) MaxOrder(ctx context.Context, albumID string) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("album_id = ?", albumID).
		Select(`COALESCE(MAX("order"), -1)`).
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r *MediaRepository) CountByIDs(ctx context.Context, albumID string, mediaIDs []string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("album_id = ? AND id IN ?", albumID, mediaIDs).
		Count(&count).Error
	return count, err
}

func (r *MediaRepository) CountByURL(ctx context.Context, albumID string, url string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("album_id = ? AND url = ?", albumID, url).
		Count(&count).Error
	return count, err
}

// BulkSetOrder applies each assignment individually, scoped to the album,
// and reports the number of rows actually modified. Ownership is checked
// by the caller before this runs.
func (r *MediaRepository) BulkSetOrder(ctx context.Context, albumID string, orders []pixelfall.MediaOrder) (int64, error) {
	var updated int64
	for _, o := range orders {
		result := r.db.WithContext(ctx).
			Model(&models.Media{}).
			Where("id = ? AND album_id = ?", o.MediaID, albumID).
			Update("order", o.Order)
		if result.Error != nil {
			return updated, result.Error
		}
		updated += result.RowsAffected
	}

	r.invalidate(albumID)

	return updated, nil
}

func (r *MediaRepository) Delete(ctx context.Context, mediaID string) error {
	var record models.Media
	err := r.db.WithContext(ctx).
		Where("id = ?", mediaID).
		Take(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.NotFoundError{Resource: "media"}
		}
		return err
	}

	err = r.db.WithContext(ctx).Delete(&models.Media{}, "id = ?", mediaID).Error
	if err != nil {
		return err
	}

	r.invalidate(record.AlbumID)

	return nil
}

func (r *MediaRepository) SetPublished(ctx context.Context, mediaID string, published bool) error {
	return r.setFlag(ctx, mediaID, "published", published)
}

func (r *MediaRepository) SetFavorite(ctx context.Context, mediaID string, favorite bool) error {
	return r.setFlag(ctx, mediaID, "favorite", favorite)
}

func (r *MediaRepository) setFlag(ctx context.Context, mediaID string, column string, value bool) error {
	var record models.Media
	err := r.db.WithContext(ctx).
		Where("id = ?", mediaID).
		Take(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.NotFoundError{Resource: "media"}
		}
		return err
	}

	err = r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("id = ?", mediaID).
		Update(column, value).Error
	if err != nil {
		return err
	}

	r.invalidate(record.AlbumID)

	return nil
}

func (r *MediaRepository) invalidate(albumID string) {
	invalidateListCache(r.mc, albumID)
}

// invalidateListCache drops the album's cached ordered read. Shared with
// the album repository: deleting an album cascades its media rows, so the
// list key must go with them.
func invalidateListCache(mc Memcache, albumID string) {
	if mc == nil {
		return
	}
	err := mc.Delete(listCacheKey(albumID))
	if err != nil && err != memcache.ErrCacheMiss {
		slog.Warn(
			"memcached invalidation failed",
			slog.String("error", err.Error()),
			slog.String("module", "repository"),
		)
	}
}

func listCacheKey(albumID string) string {
	return fmt.Sprintf("pf:media:%016x", xxh3.HashString(albumID))
}

func mediaToModel(media pixelfall.Media) models.Media {
	return models.Media{
		ID:         media.ID,
		AlbumID:    media.AlbumID,
		URL:        media.URL,
		Filename:   media.Filename,
		Type:       string(media.Type),
		Order:      media.Order,
		UploadedAt: media.UploadedAt,
		Published:  media.Published,
		Favorite:   media.Favorite,
	}
}

func mediaFromModel(record models.Media) pixelfall.Media {
	return pixelfall.Media{
		ID:         record.ID,
		AlbumID:    record.AlbumID,
		URL:        record.URL,
		Filename:   record.Filename,
		Type:       pixelfall.MediaType(record.Type),
		Order:      record.Order,
		UploadedAt: record.UploadedAt,
		Published:  record.Published,
		Favorite:   record.Favorite,
	}
}
