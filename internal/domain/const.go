package domain

const (
	EventOrderCommitted    = "order.committed"
	EventUploadSettled     = "upload.settled"
	EventDuplicatesRemoved = "duplicates.removed"
	EventMediaDeleted      = "media.deleted"
)

const (
	AdminAuthedCtxKey = "pf-adminAuthed"
)

// AlbumChannel is the redis pub/sub channel carrying one album's events.
func AlbumChannel(albumID string) string {
	return "pixelfall:album:" + albumID
}
