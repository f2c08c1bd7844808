package collection

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/HendryAvila/spiderlog/internal/feeding"
)

// SpiderLister is the read side the Roster needs.
type SpiderLister interface {
	ListSpiders(ctx context.Context, opts ListOptions) ([]Spider, error)
}

// Roster is an in-memory snapshot of the collection. It is filled only by
// Reload; callers decide when the snapshot is refreshed.
type Roster struct {
	src SpiderLister

	mu       sync.RWMutex
	spiders  []Spider
	loadedAt time.Time
}

// NewRoster creates an empty roster backed by src.
func NewRoster(src SpiderLister) *Roster {
	return &Roster{src: src}
}

// Reload re-reads every spider from the store. On failure the previous
// snapshot is kept.
func (r *Roster) Reload(ctx context.Context) error {
	list, err := r.src.ListSpiders(ctx, ListOptions{SortBy: SortByName})
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.spiders = list
	r.loadedAt = timeNow()
	r.mu.Unlock()
	return nil
}

// Spiders returns a copy of the snapshot.
func (r *Roster) Spiders() []Spider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.spiders)
}

// LoadedAt reports when the snapshot was last reloaded; zero if never.
func (r *Roster) LoadedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedAt
}

// Badge summarizes feeding status across the collection.
type Badge struct {
	Hungry    int `json:"hungry"`
	FeedToday int `json:"feed_today"`
	NotHungry int `json:"not_hungry"`
	Unknown   int `json:"unknown"`
	// Due lists hungry spiders first, then those due today.
	Due []Spider `json:"due,omitempty"`
}

// Count is the number of spiders that need feeding.
func (b Badge) Count() int {
	return b.Hungry + b.FeedToday
}

// Overview derives each spider's status as of now from the snapshot.
func (r *Roster) Overview(now time.Time) Badge {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b Badge
	for _, sp := range r.spiders {
		st, ok := feeding.StatusAt(sp.LastFed, sp.FeedingFrequency, now)
		if !ok {
			b.Unknown++
			continue
		}
		sp.Status = st
		switch st {
		case feeding.Hungry:
			b.Hungry++
			b.Due = append(b.Due, sp)
		case feeding.FeedToday:
			b.FeedToday++
			b.Due = append(b.Due, sp)
		default:
			b.NotHungry++
		}
	}
	slices.SortStableFunc(b.Due, func(a, c Spider) int {
		return cmp.Or(
			cmp.Compare(a.Status.Rank(), c.Status.Rank()),
			cmp.Compare(a.LastFed, c.LastFed),
		)
	})
	return b
}
