package pixelfall

import (
	"strings"
	"time"
)

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// MediaTypeOf derives the media type from an upload's content type.
// Anything that is not an image is treated as video, matching the
// behaviour of the upload intake.
func MediaTypeOf(contentType string) MediaType {
	if strings.HasPrefix(contentType, "image/") {
		return MediaTypeImage
	}
	return MediaTypeVideo
}

// Media is a single photo/video record. Order is nullable: legacy rows
// predate the order column and fall back to UploadedAt when listing.
type Media struct {
	ID         string    `json:"id"`
	AlbumID    string    `json:"albumId"`
	URL        string    `json:"url"`
	Filename   string    `json:"filename"`
	Type       MediaType `json:"type"`
	Order      *int64    `json:"order,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
	Published  bool      `json:"published"`
	Favorite   bool      `json:"favorite"`
}

type Album struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AlbumDetail is the read-path payload: the album plus its media in
// ascending display order.
type AlbumDetail struct {
	Album Album   `json:"album"`
	Media []Media `json:"media"`
}

// MediaOrder is one entry of a bulk reorder request.
type MediaOrder struct {
	MediaID string `json:"mediaId"`
	Order   int64  `json:"order"`
}

type DuplicateGroup struct {
	URL   string   `json:"url"`
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

// DuplicateReport is the read-only duplicate check result.
type DuplicateReport struct {
	TotalMedia     int              `json:"totalMedia"`
	UniqueURLs     int              `json:"uniqueUrls"`
	DuplicateCount int              `json:"duplicateCount"`
	Duplicates     []DuplicateGroup `json:"duplicates"`
}

// CleanupReport is the mutating duplicate cleanup result.
type CleanupReport struct {
	TotalMedia        int      `json:"totalMedia"`
	DuplicatesFound   int      `json:"duplicatesFound"`
	DuplicatesRemoved int      `json:"duplicatesRemoved"`
	DeletedIDs        []string `json:"deletedIds"`
}

// UploadFile is one file of an upload batch as received at intake.
type UploadFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

type UploadFailure struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// BatchReport is the outcome of one upload batch. Media is ordered by
// submission index, never by completion order. Refetched is set when the
// final assembly failed and the list was re-read from storage instead.
type BatchReport struct {
	Media     []Media         `json:"media"`
	Failed    []UploadFailure `json:"failed"`
	Refetched bool            `json:"refetched,omitempty"`
}

// Event is published over redis and fanned out to realtime subscribers.
type Event struct {
	Type      string    `json:"type"`
	AlbumID   string    `json:"albumId"`
	Body      any       `json:"body,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
