package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pixelfall/pixelfall"
	"github.com/pixelfall/pixelfall/internal/domain"
	"github.com/pixelfall/pixelfall/internal/infra/database/models"
)

type AlbumRepository struct {
	db *gorm.DB
	mc Memcache
}

func NewAlbumRepository(db *gorm.DB, mc Memcache) *AlbumRepository {
	return &AlbumRepository{db: db, mc: mc}
}

func (r *AlbumRepository) Create(ctx context.Context, album pixelfall.Album) (pixelfall.Album, error) {
	record := models.Album{
		ID:          album.ID,
		Title:       album.Title,
		Description: album.Description,
		CoverURL:    album.CoverURL,
		CreatedAt:   album.CreatedAt,
		UpdatedAt:   album.UpdatedAt,
	}

	err := r.db.WithContext(ctx).Create(&record).Error
	if err != nil {
		return pixelfall.Album{}, err
	}

	return albumFromModel(record), nil
}

func (r *AlbumRepository) Get(ctx context.Context, albumID string) (pixelfall.Album, error) {
	var record models.Album
	err := r.db.WithContext(ctx).
		Where("id = ?", albumID).
		Take(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pixelfall.Album{}, domain.NotFoundError{Resource: "album"}
		}
		return pixelfall.Album{}, err
	}

	return albumFromModel(record), nil
}

func (r *AlbumRepository) List(ctx context.Context) ([]pixelfall.Album, error) {
	var records []models.Album
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	albums := make([]pixelfall.Album, 0, len(records))
	for _, record := range records {
		albums = append(albums, albumFromModel(record))
	}
	return albums, nil
}

func (r *AlbumRepository) Exists(ctx context.Context, albumID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Album{}).
		Where("id = ?", albumID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes the album row; media rows go with it via the cascade
// constraint on the foreign key, so the cached media list must be dropped
// here too.
func (r *AlbumRepository) Delete(ctx context.Context, albumID string) error {
	result := r.db.WithContext(ctx).Delete(&models.Album{}, "id = ?", albumID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "album"}
	}

	invalidateListCache(r.mc, albumID)

	return nil
}

func albumFromModel(record models.Album) pixelfall.Album {
	return pixelfall.Album{
		ID:          record.ID,
		Title:       record.Title,
		Description: record.Description,
		CoverURL:    record.CoverURL,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}
