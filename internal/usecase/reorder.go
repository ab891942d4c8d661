package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pixelfall/pixelfall"
	"github.com/pixelfall/pixelfall/internal/utils"
)

// OrderPort is the slice of the order ledger the coordinator commits to.
type OrderPort interface {
	SetOrder(ctx context.Context, albumID string, orders []pixelfall.MediaOrder) (int64, error)
	GetOrdered(ctx context.Context, albumID string) ([]pixelfall.Media, error)
}

// CommitState tracks the coordinator's pending-commit state machine:
// Idle → Scheduled → Committing → Idle, with Reverting on failure.
type CommitState int

const (
	StateIdle CommitState = iota
	StateScheduled
	StateCommitting
	StateReverting
)

type SortKey int

const (
	SortByUploadedAt SortKey = iota
	SortByName
	SortBySize
)

// ReorderCoordinator collapses a burst of reorder intents from one client
// session into a single ledger commit via trailing-edge debounce, keeping
// an optimistic local snapshot in between. It provides single-flight
// behaviour per session only; two sessions reordering the same album race
// and the last commit wins.
type ReorderCoordinator struct {
	ledger  OrderPort
	albumID string
	window  time.Duration

	deferred *utils.Deferred

	mu    sync.Mutex
	local []pixelfall.Media
	state CommitState
}

func NewReorderCoordinator(ledger OrderPort, albumID string, window time.Duration) *ReorderCoordinator {
	return &ReorderCoordinator{
		ledger:   ledger,
		albumID:  albumID,
		window:   window,
		deferred: utils.NewDeferred(),
		state:    StateIdle,
	}
}

// SetBaseline seeds the local snapshot, typically from GetOrdered.
func (c *ReorderCoordinator) SetBaseline(media []pixelfall.Media) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local = append([]pixelfall.Media(nil), media...)
}

// Snapshot returns a copy of the current optimistic local state.
func (c *ReorderCoordinator) Snapshot() []pixelfall.Media {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]pixelfall.Media(nil), c.local...)
}

func (c *ReorderCoordinator) State() CommitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ApplyPermutation installs the new permutation locally and (re)schedules
// the deferred commit. Intents arriving inside the window replace the
// pending one, so only the latest permutation reaches the ledger.
func (c *ReorderCoordinator) ApplyPermutation(perm []pixelfall.Media) {
	c.mu.Lock()
	c.local = append([]pixelfall.Media(nil), perm...)
	c.state = StateScheduled
	c.mu.Unlock()

	c.deferred.Schedule(c.window, c.commit)
}

// ApplyIDs applies a permutation expressed as an ordered id list. Ids not
// present locally are ignored; local items missing from the list keep
// their relative order at the tail.
func (c *ReorderCoordinator) ApplyIDs(ids []string) {
	c.mu.Lock()
	byID := make(map[string]pixelfall.Media, len(c.local))
	for _, m := range c.local {
		byID[m.ID] = m
	}

	perm := make([]pixelfall.Media, 0, len(c.local))
	taken := make(map[string]bool, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok && !taken[id] {
			perm = append(perm, m)
			taken[id] = true
		}
	}
	for _, m := range c.local {
		if !taken[m.ID] {
			perm = append(perm, m)
		}
	}
	c.mu.Unlock()

	c.ApplyPermutation(perm)
}

// SortBy computes one full permutation with a stable sort (equal keys
// preserve prior relative order) and feeds it through the same path as a
// manual drag.
func (c *ReorderCoordinator) SortBy(key SortKey) {
	c.mu.Lock()
	perm := append([]pixelfall.Media(nil), c.local...)
	c.mu.Unlock()

	switch key {
	case SortByUploadedAt:
		sort.SliceStable(perm, func(i, j int) bool {
			return perm[i].UploadedAt.Before(perm[j].UploadedAt)
		})
	case SortByName:
		sort.SliceStable(perm, func(i, j int) bool {
			return perm[i].Filename < perm[j].Filename
		})
	case SortBySize:
		// locator length stands in for byte size
		sort.SliceStable(perm, func(i, j int) bool {
			return len(perm[i].URL) < len(perm[j].URL)
		})
	}

	c.ApplyPermutation(perm)
}

// Flush commits a pending permutation immediately instead of waiting for
// the debounce window to elapse.
func (c *ReorderCoordinator) Flush() {
	if c.deferred.Stop() {
		c.commit()
	}
}

func (c *ReorderCoordinator) commit() {
	c.mu.Lock()
	perm := append([]pixelfall.Media(nil), c.local...)
	c.state = StateCommitting
	c.mu.Unlock()

	orders := make([]pixelfall.MediaOrder, 0, len(perm))
	for i, m := range perm {
		orders = append(orders, pixelfall.MediaOrder{MediaID: m.ID, Order: int64(i)})
	}

	ctx := context.Background()
	_, err := c.ledger.SetOrder(ctx, c.albumID, orders)
	if err != nil {
		slog.Warn(
			"reorder commit failed, resynchronizing",
			slog.String("albumId", c.albumID),
			slog.String("error", err.Error()),
			slog.String("module", "reorder"),
		)
		c.revert(ctx)
		return
	}

	c.mu.Lock()
	c.local = reconcile(c.local, orders)
	c.state = StateIdle
	c.mu.Unlock()
}

// revert discards the optimistic state and re-reads server truth.
func (c *ReorderCoordinator) revert(ctx context.Context) {
	c.mu.Lock()
	c.state = StateReverting
	c.mu.Unlock()

	fresh, err := c.ledger.GetOrdered(ctx, c.albumID)

	c.mu.Lock()
	if err == nil {
		c.local = fresh
	}
	c.state = StateIdle
	c.mu.Unlock()
}

// reconcile merges the committed order assignments into the local
// snapshot and re-sorts by them, rather than patching state ad hoc.
func reconcile(local []pixelfall.Media, committed []pixelfall.MediaOrder) []pixelfall.Media {
	byID := make(map[string]int64, len(committed))
	for _, o := range committed {
		byID[o.MediaID] = o.Order
	}

	merged := make([]pixelfall.Media, 0, len(local))
	for _, m := range local {
		if order, ok := byID[m.ID]; ok {
			v := order
			m.Order = &v
		}
		merged = append(merged, m)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		oi, oj := merged[i].Order, merged[j].Order
		if oi == nil || oj == nil {
			return oj == nil && oi != nil
		}
		return *oi < *oj
	})

	return merged
}
