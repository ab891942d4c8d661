package rest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/pixelfall/pixelfall"
	"github.com/pixelfall/pixelfall/internal/domain"
	"github.com/pixelfall/pixelfall/internal/present/rest/middleware"
	"github.com/pixelfall/pixelfall/internal/present/rest/presenter"
	"github.com/pixelfall/pixelfall/internal/service"
	"github.com/pixelfall/pixelfall/internal/usecase"
)

type Handler struct {
	config domain.Config
	order  *usecase.OrderUsecase
	dedup  *usecase.DedupUsecase
	media  *usecase.MediaUsecase
	album  *usecase.AlbumUsecase
	upload *usecase.UploadReconciler
	signal *service.SignalService
}

func NewHandler(
	config domain.Config,
	order *usecase.OrderUsecase,
	dedup *usecase.DedupUsecase,
	media *usecase.MediaUsecase,
	album *usecase.AlbumUsecase,
	upload *usecase.UploadReconciler,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		config: config,
		order:  order,
		dedup:  dedup,
		media:  media,
		album:  album,
		upload: upload,
		signal: signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, auth *middleware.AuthMiddleware) {
	e.Use(auth.IdentifyAdmin)

	e.GET("/api/albums", h.handleListAlbums)
	e.GET("/api/albums/:albumId", h.handleAlbumDetail)
	e.GET("/api/realtime", h.handleRealtime)

	admin := e.Group("/api/admin", auth.RequireAdmin)
	admin.POST("/albums", h.handleCreateAlbum)
	admin.DELETE("/albums/:albumId", h.handleDeleteAlbum)
	admin.PATCH("/albums/:albumId/reorder", h.handleReorder)
	admin.GET("/albums/:albumId/check-duplicates", h.handleCheckDuplicates)
	admin.POST("/albums/:albumId/cleanup-duplicates", h.handleCleanupDuplicates)
	admin.POST("/albums/:albumId/complete-upload", h.handleCompleteUpload)
	admin.POST("/albums/:albumId/media", h.handleBatchUpload)
	admin.DELETE("/media/:mediaId", h.handleDeleteMedia)
	admin.PATCH("/media/:mediaId/favorite", h.handleToggleFavorite)
	admin.PATCH("/media/:mediaId/publish", h.handleTogglePublish)
}

func (h *Handler) handleListAlbums(c echo.Context) error {
	ctx := c.Request().Context()

	albums, err := h.album.List(ctx)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, albums)
}

func (h *Handler) handleAlbumDetail(c echo.Context) error {
	ctx := c.Request().Context()

	albumID := c.Param("albumId")
	if !usecase.IsValidID(albumID) {
		return presenter.BadRequestMessage(c, "Invalid album ID format")
	}

	detail, err := h.album.Detail(ctx, albumID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "Album not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, detail)
}

func (h *Handler) handleCreateAlbum(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		CoverURL    string `json:"coverUrl"`
	}
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "Invalid JSON in request body")
	}
	if req.Title == "" {
		return presenter.BadRequestMessage(c, "title is required")
	}

	album, err := h.album.Create(ctx, req.Title, req.Description, req.CoverURL)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, album)
}

func (h *Handler) handleDeleteAlbum(c echo.Context) error {
	ctx := c.Request().Context()

	albumID := c.Param("albumId")
	if !usecase.IsValidID(albumID) {
		return presenter.BadRequestMessage(c, "Invalid album ID format")
	}

	err := h.album.Delete(ctx, albumID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "Album not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, echo.Map{"success": true})
}

// handleReorder is the bulk order commit. Shape checks run before any
// storage access; the first violation answers immediately.
func (h *Handler) handleReorder(c echo.Context) error {
	ctx := c.Request().Context()

	albumID := c.Param("albumId")
	if !usecase.IsValidID(albumID) {
		return presenter.BadRequestMessage(c, "Invalid album ID format")
	}

	var body any
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return presenter.BadRequestMessage(c, "Invalid JSON in request body")
	}

	gate := usecase.ValidateReorderBody(body)
	if !gate.Valid {
		return presenter.Message(c, gate.Status, gate.Message)
	}

	updated, err := h.order.SetOrder(ctx, albumID, gate.Orders)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "Album not found")
		}
		if errors.Is(err, domain.ErrOwnership) {
			return presenter.Forbidden(c, "One or more media items do not belong to this album")
		}
		return presenter.InternalError(c, err)
	}

	return presenter.OK(c, echo.Map{"success": true, "updatedCount": updated})
}

func (h *Handler) handleCheckDuplicates(c echo.Context) error {
	ctx := c.Request().Context()

	albumID := c.Param("albumId")
	if !usecase.IsValidID(albumID) {
		return presenter.BadRequestMessage(c, "Invalid album ID format")
	}

	report, err := h.dedup.CheckDuplicates(ctx, albumID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "Album not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, report)
}

func (h *Handler) handleCleanupDuplicates(c echo.Context) error {
	ctx := c.Request().Context()

	albumID := c.Param("albumId")
	if !usecase.IsValidID(albumID) {
		return presenter.BadRequestMessage(c, "Invalid album ID format")
	}

	report, err := h.dedup.CleanupDuplicates(ctx, albumID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "Album not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, report)
}

// handleCompleteUpload registers metadata for a blob the client already
// transferred on its own. Without an explicit order the item appends to
// the end of the album.
func (h *Handler) handleCompleteUpload(c echo.Context) error {
	ctx := c.Request().Context()

	albumID := c.Param("albumId")
	if !usecase.IsValidID(albumID) {
		return presenter.BadRequestMessage(c, "Invalid album ID format")
	}

	var req struct {
		URL         string `json:"url"`
		Pathname    string `json:"pathname"`
		ContentType string `json:"contentType"`
		Order       *int64 `json:"order"`
	}
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "Invalid JSON in request body")
	}
	if req.URL == "" || req.Pathname == "" {
		return presenter.BadRequestMessage(c, "url and pathname are required")
	}

	media, err := h.order.Commit(ctx, albumID, req.URL, req.Pathname, req.ContentType, req.Order)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return presenter.BadRequestMessage(c, err.Error())
		}
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "Album not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, media)
}

func (h *Handler) handleBatchUpload(c echo.Context) error {
	ctx := c.Request().Context()

	albumID := c.Param("albumId")
	if !usecase.IsValidID(albumID) {
		return presenter.BadRequestMessage(c, "Invalid album ID format")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return presenter.BadRequestMessage(c, "multipart form is required")
	}

	parts := form.File["files"]
	if len(parts) == 0 {
		return presenter.BadRequestMessage(c, "files field cannot be empty")
	}

	files := make([]pixelfall.UploadFile, 0, len(parts))
	for _, part := range parts {
		src, err := part.Open()
		if err != nil {
			return presenter.BadRequestMessage(c, "failed to read uploaded file")
		}
		content, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return presenter.BadRequestMessage(c, "failed to read uploaded file")
		}

		files = append(files, pixelfall.UploadFile{
			Filename:    part.Filename,
			ContentType: part.Header.Get("Content-Type"),
			Content:     content,
		})
	}

	report, err := h.upload.Reconcile(ctx, albumID, files)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "Album not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, report)
}

func (h *Handler) handleDeleteMedia(c echo.Context) error {
	ctx := c.Request().Context()

	mediaID := c.Param("mediaId")
	if !usecase.IsValidID(mediaID) {
		return presenter.BadRequestMessage(c, "Invalid media ID format")
	}

	err := h.media.Delete(ctx, mediaID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "Media not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, echo.Map{"success": true})
}

func (h *Handler) handleToggleFavorite(c echo.Context) error {
	ctx := c.Request().Context()

	mediaID := c.Param("mediaId")
	if !usecase.IsValidID(mediaID) {
		return presenter.BadRequestMessage(c, "Invalid media ID format")
	}

	favorite, err := h.media.ToggleFavorite(ctx, mediaID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "Media not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, echo.Map{"success": true, "favorite": favorite})
}

func (h *Handler) handleTogglePublish(c echo.Context) error {
	ctx := c.Request().Context()

	mediaID := c.Param("mediaId")
	if !usecase.IsValidID(mediaID) {
		return presenter.BadRequestMessage(c, "Invalid media ID format")
	}

	published, err := h.media.TogglePublish(ctx, mediaID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "Media not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, echo.Map{"success": true, "published": published})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type   string   `json:"type"`
	Albums []string `json:"albums"`
	IDs    []string `json:"ids"`
	Sort   string   `json:"sort"`
}

// handleRealtime serves one websocket session: album event fanout plus
// the session's reorder intents. Drag intents debounce through a
// per-session coordinator so a burst commits once.
func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	input := make(chan []string)
	defer close(input)
	output := make(chan pixelfall.Event)
	defer close(output)

	go h.signal.Realtime(ctx, input, output)

	var coordinator *usecase.ReorderCoordinator

	quit := make(chan struct{})

	go func() {
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				if coordinator != nil {
					coordinator.Flush()
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				input <- req.Albums
				if len(req.Albums) > 0 && usecase.IsValidID(req.Albums[0]) {
					coordinator = usecase.NewReorderCoordinator(h.order, req.Albums[0], h.config.DebounceWindow)
					if baseline, err := h.order.GetOrdered(ctx, req.Albums[0]); err == nil {
						coordinator.SetBaseline(baseline)
					}
				}
			case "reorder":
				if coordinator != nil {
					coordinator.ApplyIDs(req.IDs)
				}
			case "sort":
				if coordinator != nil {
					switch req.Sort {
					case "name":
						coordinator.SortBy(usecase.SortByName)
					case "size":
						coordinator.SortBy(usecase.SortBySize)
					default:
						coordinator.SortBy(usecase.SortByUploadedAt)
					}
				}
			case "flush":
				if coordinator != nil {
					coordinator.Flush()
				}
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
