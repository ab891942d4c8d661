package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/pixelfall/pixelfall"
	"github.com/pixelfall/pixelfall/internal/domain"
)

// DedupUsecase groups an album's media by content locator and resolves
// duplicate groups with the retain-oldest policy.
type DedupUsecase struct {
	media  MediaRepository
	blobs  BlobStore
	signal Publisher
}

func NewDedupUsecase(media MediaRepository, blobs BlobStore, signal Publisher) *DedupUsecase {
	return &DedupUsecase{media: media, blobs: blobs, signal: signal}
}

// groupByURL buckets media by locator, preserving first-seen URL order.
func groupByURL(items []pixelfall.Media) ([]string, map[string][]pixelfall.Media) {
	urls := make([]string, 0, len(items))
	byURL := make(map[string][]pixelfall.Media)
	for _, m := range items {
		if _, seen := byURL[m.URL]; !seen {
			urls = append(urls, m.URL)
		}
		byURL[m.URL] = append(byURL[m.URL], m)
	}
	return urls, byURL
}

// CheckDuplicates is the read-only detection pass.
func (uc *DedupUsecase) CheckDuplicates(ctx context.Context, albumID string) (pixelfall.DuplicateReport, error) {
	ctx, span := tracer.Start(ctx, "Dedup.Usecase.CheckDuplicates")
	defer span.End()

	items, err := uc.media.ListByAlbum(ctx, albumID)
	if err != nil {
		return pixelfall.DuplicateReport{}, err
	}

	urls, byURL := groupByURL(items)

	duplicates := []pixelfall.DuplicateGroup{}
	for _, url := range urls {
		group := byURL[url]
		if len(group) <= 1 {
			continue
		}
		ids := make([]string, 0, len(group))
		for _, m := range group {
			ids = append(ids, m.ID)
		}
		duplicates = append(duplicates, pixelfall.DuplicateGroup{
			URL:   url,
			Count: len(group),
			IDs:   ids,
		})
	}

	return pixelfall.DuplicateReport{
		TotalMedia:     len(items),
		UniqueURLs:     len(byURL),
		DuplicateCount: len(duplicates),
		Duplicates:     duplicates,
	}, nil
}

// CleanupDuplicates resolves every duplicate group by keeping the oldest
// member (uploadedAt ascending, id as the stable tiebreak) and deleting
// the rest. The delete list is fixed from the snapshot before any delete
// executes, so an item committed mid-run is never touched. Idempotent: a
// second run finds only single-member groups.
func (uc *DedupUsecase) CleanupDuplicates(ctx context.Context, albumID string) (pixelfall.CleanupReport, error) {
	ctx, span := tracer.Start(ctx, "Dedup.Usecase.CleanupDuplicates")
	defer span.End()

	items, err := uc.media.ListByAlbum(ctx, albumID)
	if err != nil {
		return pixelfall.CleanupReport{}, err
	}

	// oldest first, then creation order
	sorted := make([]pixelfall.Media, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].UploadedAt.Equal(sorted[j].UploadedAt) {
			return sorted[i].UploadedAt.Before(sorted[j].UploadedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	urls, byURL := groupByURL(sorted)

	duplicatesFound := 0
	toDelete := []pixelfall.Media{}
	for _, url := range urls {
		group := byURL[url]
		if len(group) <= 1 {
			continue
		}
		duplicatesFound += len(group) - 1
		toDelete = append(toDelete, group[1:]...)
	}

	report := pixelfall.CleanupReport{
		TotalMedia:      len(items),
		DuplicatesFound: duplicatesFound,
		DeletedIDs:      []string{},
	}

	for _, m := range toDelete {
		if err := uc.media.Delete(ctx, m.ID); err != nil {
			slog.WarnContext(
				ctx, "failed to delete duplicate media",
				slog.String("mediaId", m.ID),
				slog.String("error", err.Error()),
				slog.String("module", "dedup"),
			)
			continue
		}
		dropBlobIfUnreferenced(ctx, uc.media, uc.blobs, m.AlbumID, m.URL)
		report.DeletedIDs = append(report.DeletedIDs, m.ID)
		report.DuplicatesRemoved++
	}

	if uc.signal != nil && report.DuplicatesRemoved > 0 {
		err := uc.signal.Publish(ctx, pixelfall.Event{
			Type:      domain.EventDuplicatesRemoved,
			AlbumID:   albumID,
			Body:      report,
			Timestamp: time.Now(),
		})
		if err != nil {
			slog.WarnContext(
				ctx, "failed to publish event",
				slog.String("error", err.Error()),
				slog.String("module", "dedup"),
			)
		}
	}

	return report, nil
}
