package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pixelfall/pixelfall"
	"github.com/pixelfall/pixelfall/internal/domain"
	"github.com/pixelfall/pixelfall/internal/present/rest/middleware"
	"github.com/pixelfall/pixelfall/internal/usecase"
)

const (
	testAlbumID  = "3e4666bf-d5e5-4aa7-b8ce-cefe41c7568a"
	otherAlbumID = "16fd2706-8baf-433b-82eb-8c7fada847da"
	mediaIDA     = "6ba7b810-9dad-11d1-80b4-00c04fd430c1"
	mediaIDB     = "6ba7b811-9dad-11d1-80b4-00c04fd430c2"
	foreignID    = "6ba7b812-9dad-11d1-80b4-00c04fd430c3"
	adminToken   = "test-admin-token"
)

type fakeStore struct {
	albums map[string]pixelfall.Album
	media  map[string]pixelfall.Media
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		albums: map[string]pixelfall.Album{},
		media:  map[string]pixelfall.Media{},
	}
}

func (s *fakeStore) Create(ctx context.Context, album pixelfall.Album) (pixelfall.Album, error) {
	s.albums[album.ID] = album
	return album, nil
}

func (s *fakeStore) Get(ctx context.Context, albumID string) (pixelfall.Album, error) {
	album, ok := s.albums[albumID]
	if !ok {
		return pixelfall.Album{}, domain.NotFoundError{Resource: "album"}
	}
	return album, nil
}

func (s *fakeStore) List(ctx context.Context) ([]pixelfall.Album, error) {
	out := []pixelfall.Album{}
	for _, a := range s.albums {
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeStore) Exists(ctx context.Context, albumID string) (bool, error) {
	_, ok := s.albums[albumID]
	return ok, nil
}

func (s *fakeStore) Delete(ctx context.Context, albumID string) error {
	if _, ok := s.albums[albumID]; !ok {
		return domain.NotFoundError{Resource: "album"}
	}
	delete(s.albums, albumID)
	for id, m := range s.media {
		if m.AlbumID == albumID {
			delete(s.media, id)
		}
	}
	return nil
}

type fakeMedia struct {
	*fakeStore
}

func (s fakeMedia) Insert(ctx context.Context, media pixelfall.Media) (pixelfall.Media, error) {
	s.media[media.ID] = media
	return media, nil
}

func (s fakeMedia) Get(ctx context.Context, mediaID string) (pixelfall.Media, error) {
	m, ok := s.media[mediaID]
	if !ok {
		return pixelfall.Media{}, domain.NotFoundError{Resource: "media"}
	}
	return m, nil
}

func (s fakeMedia) ListByAlbum(ctx context.Context, albumID string) ([]pixelfall.Media, error) {
	out := []pixelfall.Media{}
	for _, m := range s.media {
		if m.AlbumID == albumID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].Order, out[j].Order
		if oi == nil || oj == nil {
			if oi == nil && oj == nil {
				return out[i].UploadedAt.Before(out[j].UploadedAt)
			}
			return oi != nil
		}
		return *oi < *oj
	})
	return out, nil
}

func (s fakeMedia) MaxOrder(ctx context.Context, albumID string) (int64, error) {
	max := int64(-1)
	for _, m := range s.media {
		if m.AlbumID == albumID && m.Order != nil && *m.Order > max {
			max = *m.Order
		}
	}
	return max, nil
}

func (s fakeMedia) CountByIDs(ctx context.Context, albumID string, mediaIDs []string) (int64, error) {
	var count int64
	for _, id := range mediaIDs {
		if m, ok := s.media[id]; ok && m.AlbumID == albumID {
			count++
		}
	}
	return count, nil
}

func (s fakeMedia) CountByURL(ctx context.Context, albumID string, url string) (int64, error) {
	var count int64
	for _, m := range s.media {
		if m.AlbumID == albumID && m.URL == url {
			count++
		}
	}
	return count, nil
}

func (s fakeMedia) BulkSetOrder(ctx context.Context, albumID string, orders []pixelfall.MediaOrder) (int64, error) {
	var updated int64
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
		updated++
	}
	return updated, nil
}

func (s fakeMedia) Delete(ctx context.Context, mediaID string) error {
	if _, ok := s.media[mediaID]; !ok {
		return domain.NotFoundError{Resource: "media"}
	}
	delete(s.media, mediaID)
	return nil
}

func (s fakeMedia) SetPublished(ctx context.Context, mediaID string, published bool) error {
	m, ok := s.media[mediaID]
	if !ok {
		return domain.NotFoundError{Resource: "media"}
	}
	m.Published = published
	s.media[mediaID] = m
	return nil
}

func (s fakeMedia) SetFavorite(ctx context.Context, mediaID string, favorite bool) error {
	m, ok := s.media[mediaID]
	if !ok {
		return domain.NotFoundError{Resource: "media"}
	}
	m.Favorite = favorite
	s.media[mediaID] = m
	return nil
}

func newTestServer(t *testing.T) (*echo.Echo, *fakeStore) {
	t.Helper()

	store := newFakeStore()
	media := fakeMedia{store}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	require.NoError(t, err)

	config := domain.Config{
		AdminTokenHash: string(hash),
		UploadTimeout:  time.Second,
		PersistTimeout: time.Second,
		DebounceWindow: 50 * time.Millisecond,
	}

	order := usecase.NewOrderUsecase(store, media, nil)
	dedup := usecase.NewDedupUsecase(media, nil, nil)
	mediaUC := usecase.NewMediaUsecase(media, nil, nil)
	albumUC := usecase.NewAlbumUsecase(store, media, nil)
	upload := usecase.NewUploadReconciler(order, nil, nil, config.UploadTimeout, config.PersistTimeout)

	h := NewHandler(config, order, dedup, mediaUC, albumUC, upload, nil)

	e := echo.New()
	h.RegisterRoutes(e, middleware.NewAuthMiddleware(config))

	return e, store
}

func seed(store *fakeStore) {
	store.albums[testAlbumID] = pixelfall.Album{ID: testAlbumID, Title: "test"}
	store.albums[otherAlbumID] = pixelfall.Album{ID: otherAlbumID, Title: "other"}

	now := time.Now()
	for i, id := range []string{mediaIDA, mediaIDB} {
		v := int64(i)
		store.media[id] = pixelfall.Media{
			ID:         id,
			AlbumID:    testAlbumID,
			URL:        "https://blob.test/" + id,
			Filename:   id + ".jpg",
			Type:       pixelfall.MediaTypeImage,
			Order:      &v,
			UploadedAt: now.Add(time.Duration(i) * time.Second),
		}
	}
	store.media[foreignID] = pixelfall.Media{
		ID:      foreignID,
		AlbumID: otherAlbumID,
		URL:     "https://blob.test/" + foreignID,
	}
}

func doRequest(e *echo.Echo, method, path, body string, authed bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestReorderRequiresAuth(t *testing.T) {
	e, store := newTestServer(t)
	seed(store)

	rec := doRequest(e, http.MethodPatch, "/api/admin/albums/"+testAlbumID+"/reorder", `{}`, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReorderInvalidAlbumID(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doRequest(e, http.MethodPatch, "/api/admin/albums/not-a-uuid/reorder", `{}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid album ID format", errorOf(t, rec))
}

func TestReorderInvalidJSON(t *testing.T) {
	e, store := newTestServer(t)
	seed(store)

	rec := doRequest(e, http.MethodPatch, "/api/admin/albums/"+testAlbumID+"/reorder", `{"mediaOrders": [`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid JSON in request body", errorOf(t, rec))
}

func TestReorderBodyGate(t *testing.T) {
	e, store := newTestServer(t)
	seed(store)
	path := "/api/admin/albums/" + testAlbumID + "/reorder"

	rec := doRequest(e, http.MethodPatch, path, `{"mediaOrders": {}}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "mediaOrders must be an array", errorOf(t, rec))

	rec = doRequest(e, http.MethodPatch, path, `{"mediaOrders": []}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "mediaOrders array cannot be empty", errorOf(t, rec))

	rec = doRequest(e, http.MethodPatch, path, `{"mediaOrders": [{"mediaId": "oops", "order": 0}]}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid mediaId format: oops", errorOf(t, rec))

	rec = doRequest(e, http.MethodPatch, path, `{"mediaOrders": [{"mediaId": "`+mediaIDA+`", "order": -2}]}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Each item must have a valid order number (>= 0)", errorOf(t, rec))
}

func TestReorderAlbumNotFound(t *testing.T) {
	e, store := newTestServer(t)
	seed(store)

	missing := "0f0e0d0c-0b0a-4908-8706-050403020100"
	body := `{"mediaOrders": [{"mediaId": "` + mediaIDA + `", "order": 0}]}`
	rec := doRequest(e, http.MethodPatch, "/api/admin/albums/"+missing+"/reorder", body, true)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Album not found", errorOf(t, rec))
}

func TestReorderOwnershipRejection(t *testing.T) {
	e, store := newTestServer(t)
	seed(store)

	body := `{"mediaOrders": [
		{"mediaId": "` + mediaIDA + `", "order": 0},
		{"mediaId": "` + foreignID + `", "order": 1}
	]}`
	rec := doRequest(e, http.MethodPatch, "/api/admin/albums/"+testAlbumID+"/reorder", body, true)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "One or more media items do not belong to this album", errorOf(t, rec))
}

func TestReorderSuccess(t *testing.T) {
	e, store := newTestServer(t)
	seed(store)

	body := `{"mediaOrders": [
		{"mediaId": "` + mediaIDA + `", "order": 1},
		{"mediaId": "` + mediaIDB + `", "order": 0}
	]}`
	rec := doRequest(e, http.MethodPatch, "/api/admin/albums/"+testAlbumID+"/reorder", body, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success      bool  `json:"success"`
		UpdatedCount int64 `json:"updatedCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, int64(2), resp.UpdatedCount)

	require.Equal(t, int64(1), *store.media[mediaIDA].Order)
	require.Equal(t, int64(0), *store.media[mediaIDB].Order)
}

func TestAlbumDetailOrdering(t *testing.T) {
	e, store := newTestServer(t)
	seed(store)

	rec := doRequest(e, http.MethodGet, "/api/albums/"+testAlbumID, "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail pixelfall.AlbumDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Media, 2)
	require.Equal(t, mediaIDA, detail.Media[0].ID)
	require.Equal(t, mediaIDB, detail.Media[1].ID)
}

func TestAlbumDetailNotFound(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/api/albums/0f0e0d0c-0b0a-4908-8706-050403020100", "", false)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Album not found", errorOf(t, rec))
}

func TestCheckDuplicatesEndpoint(t *testing.T) {
	e, store := newTestServer(t)
	seed(store)

	dup := store.media[mediaIDB]
	dup.URL = store.media[mediaIDA].URL
	store.media[mediaIDB] = dup

	rec := doRequest(e, http.MethodGet, "/api/admin/albums/"+testAlbumID+"/check-duplicates", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var report pixelfall.DuplicateReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, 2, report.TotalMedia)
	require.Equal(t, 1, report.DuplicateCount)
}

func TestCompleteUploadAppends(t *testing.T) {
	e, store := newTestServer(t)
	seed(store)

	body := `{"url": "https://blob.test/extra.jpg", "pathname": "extra.jpg", "contentType": "image/jpeg"}`
	rec := doRequest(e, http.MethodPost, "/api/admin/albums/"+testAlbumID+"/complete-upload", body, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var media pixelfall.Media
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &media))
	require.NotNil(t, media.Order)
	require.Equal(t, int64(2), *media.Order)
}

func TestCompleteUploadRejectsNegativeOrder(t *testing.T) {
	e, store := newTestServer(t)
	seed(store)

	body := `{"url": "https://blob.test/extra.jpg", "pathname": "extra.jpg", "contentType": "image/jpeg", "order": -1}`
	rec := doRequest(e, http.MethodPost, "/api/admin/albums/"+testAlbumID+"/complete-upload", body, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "order must be >= 0", errorOf(t, rec))
}

func TestToggleFavorite(t *testing.T) {
	e, store := newTestServer(t)
	seed(store)

	rec := doRequest(e, http.MethodPatch, "/api/admin/media/"+mediaIDA+"/favorite", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Favorite bool `json:"favorite"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Favorite)
	require.True(t, store.media[mediaIDA].Favorite)
}

func TestDeleteMediaNotFound(t *testing.T) {
	e, store := newTestServer(t)
	seed(store)

	rec := doRequest(e, http.MethodDelete, "/api/admin/media/0f0e0d0c-0b0a-4908-8706-050403020100", "", true)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Media not found", errorOf(t, rec))
}
