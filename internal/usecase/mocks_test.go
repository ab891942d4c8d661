package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pixelfall/pixelfall"
	"github.com/pixelfall/pixelfall/internal/domain"
)

// memStore is an in-memory AlbumRepository + MediaRepository.
type memStore struct {
	mu         sync.Mutex
	albums     map[string]pixelfall.Album
	media      map[string]pixelfall.Media
	bulkCalls  int
	lastOrders []pixelfall.MediaOrder
}

func newMemStore() *memStore {
	return &memStore{
		albums: make(map[string]pixelfall.Album),
		media:  make(map[string]pixelfall.Media),
	}
}

func (s *memStore) Create(ctx context.Context, album pixelfall.Album) (pixelfall.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.albums[album.ID] = album
	return album, nil
}

func (s *memStore) Get(ctx context.Context, id string) (pixelfall.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	album, ok := s.albums[id]
	if !ok {
		return pixelfall.Album{}, domain.NotFoundError{Resource: "album"}
	}
	return album, nil
}

func (s *memStore) List(ctx context.Context) ([]pixelfall.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []pixelfall.Album{}
	for _, a := range s.albums {
		out = append(out, a)
	}
	return out, nil
}

func (s *memStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.albums[id]
	return ok, nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.albums, id)
	for mid, m := range s.media {
		if m.AlbumID == id {
			delete(s.media, mid)
		}
	}
	return nil
}

func (s *memStore) Insert(ctx context.Context, media pixelfall.Media) (pixelfall.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media[media.ID] = media
	return media, nil
}

func (s *memStore) GetMedia(ctx context.Context, id string) (pixelfall.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.media[id]
	if !ok {
		return pixelfall.Media{}, domain.NotFoundError{Resource: "media"}
	}
	return m, nil
}

func (s *memStore) ListByAlbum(ctx context.Context, albumID string) ([]pixelfall.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []pixelfall.Media{}
	for _, m := range s.media {
		if m.AlbumID == albumID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].Order, out[j].Order
		if oi != nil && oj != nil && *oi != *oj {
			return *oi < *oj
		}
		if (oi == nil) != (oj == nil) {
			return oi != nil
		}
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.Before(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) MaxOrder(ctx context.Context, albumID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := int64(-1)
	for _, m := range s.media {
		if m.AlbumID == albumID && m.Order != nil && *m.Order > max {
			max = *m.Order
		}
	}
	return max, nil
}

func (s *memStore) CountByIDs(ctx context.Context, albumID string, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, id := range ids {
		if m, ok := s.media[id]; ok && m.AlbumID == albumID {
			count++
		}
	}
	return count, nil
}

func (s *memStore) CountByURL(ctx context.Context, albumID string, url string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, m := range s.media {
		if m.AlbumID == albumID && m.URL == url {
			count++
		}
	}
	return count, nil
}

func (s *memStore) BulkSetOrder(ctx context.Context, albumID string, orders []pixelfall.MediaOrder) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkCalls++
	s.lastOrders = append([]pixelfall.MediaOrder(nil), orders...)

	var modified int64
	for _, o := range orders {
		m, ok := s.media[o.MediaID]
		if !ok || m.AlbumID != albumID {
			continue
		}
		if m.Order != nil && *m.Order == o.Order {
			continue
		}
		v := o.Order
		m.Order = &v
		s.media[o.MediaID] = m
		modified++
	}
	return modified, nil
}

func (s *memStore) DeleteMedia(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.media, id)
	return nil
}

func (s *memStore) SetPublished(ctx context.Context, id string, published bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.media[id]
	if !ok {
		return domain.NotFoundError{Resource: "media"}
	}
	m.Published = published
	s.media[id] = m
	return nil
}

func (s *memStore) SetFavorite(ctx context.Context, id string, favorite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.media[id]
	if !ok {
		return domain.NotFoundError{Resource: "media"}
	}
	m.Favorite = favorite
	s.media[id] = m
	return nil
}

// mediaPort adapts memStore to the MediaRepository interface, whose Get
// and Delete names collide with the album methods.
type mediaPort struct{ *memStore }

func (p mediaPort) Get(ctx context.Context, id string) (pixelfall.Media, error) {
	return p.GetMedia(ctx, id)
}

func (p mediaPort) Delete(ctx context.Context, id string) error {
	return p.DeleteMedia(ctx, id)
}

// memBlobs is an in-memory BlobStore with optional per-file delays and
// failures to simulate slow or broken transfers.
type memBlobs struct {
	mu      sync.Mutex
	deleted []string
	delays  map[string]time.Duration
	fail    map[string]bool
}

func newMemBlobs() *memBlobs {
	return &memBlobs{
		delays: make(map[string]time.Duration),
		fail:   make(map[string]bool),
	}
}

func (b *memBlobs) Put(ctx context.Context, pathname, contentType string, content []byte) (string, error) {
	b.mu.Lock()
	delay := b.delays[pathname]
	shouldFail := b.fail[pathname]
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if shouldFail {
		return "", domain.ValidationError{Message: "simulated transfer failure"}
	}
	return "https://blob.test/" + pathname, nil
}

func (b *memBlobs) Delete(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, url)
	return nil
}

type memSignal struct {
	mu     sync.Mutex
	events []pixelfall.Event
}

func (s *memSignal) Publish(ctx context.Context, event pixelfall.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func seedAlbum(s *memStore, id string) {
	s.albums[id] = pixelfall.Album{ID: id, Title: "test", CreatedAt: time.Now(), UpdatedAt: time.Now()}
}

// seedLegacyMedia inserts a row without an order value, as rows created
// before the order column existed.
func seedLegacyMedia(s *memStore, id, albumID, url string, uploadedAt time.Time) {
	s.media[id] = pixelfall.Media{
		ID:         id,
		AlbumID:    albumID,
		URL:        url,
		Filename:   id + ".jpg",
		Type:       pixelfall.MediaTypeImage,
		UploadedAt: uploadedAt,
	}
}

func seedMedia(s *memStore, id, albumID, url string, order int64, uploadedAt time.Time) {
	v := order
	s.media[id] = pixelfall.Media{
		ID:         id,
		AlbumID:    albumID,
		URL:        url,
		Filename:   id + ".jpg",
		Type:       pixelfall.MediaTypeImage,
		Order:      &v,
		UploadedAt: uploadedAt,
	}
}
