package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pixelfall/pixelfall"
	"github.com/pixelfall/pixelfall/internal/domain"
)

// Ledger is the slice of the order ledger the reconciler needs.
type Ledger interface {
	MaxOrder(ctx context.Context, albumID string) (int64, error)
	Commit(ctx context.Context, albumID, url, pathname, contentType string, explicit *int64) (pixelfall.Media, error)
	GetOrdered(ctx context.Context, albumID string) ([]pixelfall.Media, error)
}

// UploadReconciler runs a batch of uploads as one concurrent task per
// file and merges the results by submission index, so the final order
// never depends on which file happened to finish first.
type UploadReconciler struct {
	ledger Ledger
	blobs  BlobStore
	signal Publisher

	uploadTimeout  time.Duration
	persistTimeout time.Duration
}

func NewUploadReconciler(ledger Ledger, blobs BlobStore, signal Publisher, uploadTimeout, persistTimeout time.Duration) *UploadReconciler {
	return &UploadReconciler{
		ledger:         ledger,
		blobs:          blobs,
		signal:         signal,
		uploadTimeout:  uploadTimeout,
		persistTimeout: persistTimeout,
	}
}

type uploadOutcome struct {
	index int
	media pixelfall.Media
	err   error
}

// Reconcile uploads the batch and returns the per-file report. Individual
// failures and timeouts are isolated: they never cancel sibling tasks and
// never abort the batch.
func (r *UploadReconciler) Reconcile(ctx context.Context, albumID string, files []pixelfall.UploadFile) (pixelfall.BatchReport, error) {
	ctx, span := tracer.Start(ctx, "Upload.Reconciler.Reconcile")
	defer span.End()
	span.SetAttributes(attribute.Int("files", len(files)))

	if len(files) == 0 {
		return pixelfall.BatchReport{Media: []pixelfall.Media{}, Failed: []pixelfall.UploadFailure{}}, nil
	}

	base, err := r.ledger.MaxOrder(ctx, albumID)
	if err != nil {
		return pixelfall.BatchReport{}, errors.Wrap(err, "UploadReconciler: failed to read current max order")
	}

	// Optimistic placeholders at currentMax+index+1; this is the
	// client-visible list until tasks settle.
	placeholders := make([]pixelfall.Media, len(files))
	for i, f := range files {
		order := base + int64(i) + 1
		placeholders[i] = pixelfall.Media{
			ID:         fmt.Sprintf("placeholder-%d", i),
			AlbumID:    albumID,
			URL:        "pending://" + f.Filename,
			Filename:   f.Filename,
			Type:       pixelfall.MediaTypeOf(f.ContentType),
			Order:      &order,
			UploadedAt: time.Now(),
		}
	}

	results := make(chan uploadOutcome, len(files))
	for i, f := range files {
		go r.runTask(ctx, albumID, base, i, f, results)
	}

	// Settle all tasks. Each task is bounded by its own timeouts, so a
	// slow file delays only its own slot, never the channel drain.
	outcomes := make([]uploadOutcome, len(files))
	for range files {
		o := <-results
		outcomes[o.index] = o
	}

	report := r.assemble(ctx, albumID, files, placeholders, outcomes)

	if r.signal != nil {
		err := r.signal.Publish(ctx, pixelfall.Event{
			Type:      domain.EventUploadSettled,
			AlbumID:   albumID,
			Body:      report,
			Timestamp: time.Now(),
		})
		if err != nil {
			slog.WarnContext(
				ctx, "failed to publish event",
				slog.String("error", err.Error()),
				slog.String("module", "upload"),
			)
		}
	}

	return report, nil
}

// runTask performs one file's transfer and persist. The upload phase and
// the persist phase carry separate deadlines; expiry converts to a
// failure outcome, not an error that could touch siblings.
func (r *UploadReconciler) runTask(ctx context.Context, albumID string, base int64, index int, file pixelfall.UploadFile, results chan<- uploadOutcome) {
	order := base + int64(index) + 1

	upCtx, cancelUp := context.WithTimeout(ctx, r.uploadTimeout)
	defer cancelUp()

	url, err := r.blobs.Put(upCtx, file.Filename, file.ContentType, file.Content)
	if err != nil {
		results <- uploadOutcome{index: index, err: errors.Wrap(err, "blob transfer failed")}
		return
	}

	persistCtx, cancelPersist := context.WithTimeout(ctx, r.persistTimeout)
	defer cancelPersist()

	media, err := r.ledger.Commit(persistCtx, albumID, url, file.Filename, file.ContentType, &order)
	if err != nil {
		results <- uploadOutcome{index: index, err: errors.Wrap(err, "metadata persist failed")}
		return
	}

	results <- uploadOutcome{index: index, media: media}
}

// assemble drops the placeholders and appends successes ordered by
// submission index. If assembly itself blows up, the in-memory merge is
// discarded and the list is re-read from the ledger instead.
func (r *UploadReconciler) assemble(ctx context.Context, albumID string, files []pixelfall.UploadFile, placeholders []pixelfall.Media, outcomes []uploadOutcome) (report pixelfall.BatchReport) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(
				ctx, "upload reconciliation failed, refetching from ledger",
				slog.Any("panic", rec),
				slog.String("module", "upload"),
			)
			fresh, err := r.ledger.GetOrdered(ctx, albumID)
			if err != nil {
				fresh = []pixelfall.Media{}
			}
			report = pixelfall.BatchReport{
				Media:     fresh,
				Failed:    []pixelfall.UploadFailure{},
				Refetched: true,
			}
		}
	}()

	merged := make([]pixelfall.Media, 0, len(placeholders))
	failed := []pixelfall.UploadFailure{}
	for i, o := range outcomes {
		if o.err != nil {
			failed = append(failed, pixelfall.UploadFailure{
				Index:    i,
				Filename: files[i].Filename,
				Reason:   o.err.Error(),
			})
			continue
		}
		merged = append(merged, o.media)
	}

	return pixelfall.BatchReport{Media: merged, Failed: failed}
}
