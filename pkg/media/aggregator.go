package media

import (
	"context"
	"sync"
	"time"

	"github.com/tinyland-inc/tinyrelay/pkg/logger"
)

// Submission is the aggregated result of one logical media post.
type Submission struct {
	Caption string
	Images  []ContentPart
}

// Aggregator groups a burst of related inbound events (an album delivered
// as N independent messages sharing a media group id) into one Submission.
//
// The platform sends no "last part" marker, so the only strategy that
// preserves correctness is optimistic debounced aggregation: every handler
// contributes its part, sleeps for the debounce window, then races to claim
// the bucket. Exactly one handler wins the claim and owns the Submission;
// the rest drop out. A part that arrives after the window closed is lost by
// design, not retried.
type Aggregator struct {
	mu     sync.Mutex
	groups map[string]*pendingGroup

	debounce   time.Duration
	staleAfter time.Duration
}

type pendingGroup struct {
	images    []ContentPart
	caption   string
	createdAt time.Time
	claimed   bool
}

func NewAggregator(debounce, staleAfter time.Duration) *Aggregator {
	return &Aggregator{
		groups:     make(map[string]*pendingGroup),
		debounce:   debounce,
		staleAfter: staleAfter,
	}
}

// Submit contributes one event to the group identified by scope and waits
// out the debounce window. It returns (submission, true) for exactly one
// caller per scope; every other caller gets (zero, false) and must produce
// no further effect. An empty scope means the event is not part of a group:
// it is packaged and returned immediately.
//
// caption overwrites the group caption when non-empty; images are appended
// in arrival order.
func (a *Aggregator) Submit(ctx context.Context, scope, caption string, images []ContentPart) (Submission, bool) {
	if scope == "" {
		return Submission{Caption: caption, Images: images}, true
	}

	a.mu.Lock()
	g, ok := a.groups[scope]
	if !ok {
		g = &pendingGroup{createdAt: time.Now()}
		a.groups[scope] = g
	}
	if g.claimed {
		// Another handler already consumed this group.
		a.mu.Unlock()
		return Submission{}, false
	}
	g.images = append(g.images, images...)
	if caption != "" {
		g.caption = caption
	}
	a.mu.Unlock()

	// Wait for the rest of the album to trickle in.
	select {
	case <-time.After(a.debounce):
	case <-ctx.Done():
		return Submission{}, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	g, ok = a.groups[scope]
	if !ok || g.claimed {
		return Submission{}, false
	}
	g.claimed = true
	delete(a.groups, scope)

	return Submission{Caption: g.caption, Images: g.images}, true
}

// RunSweeper periodically discards unclaimed groups whose closing events
// never arrived, so abandoned buckets do not accumulate. It blocks until
// ctx is canceled.
func (a *Aggregator) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sweep(time.Now()); n > 0 {
				logger.DebugCF("media", "Swept stale media groups", map[string]any{"count": n})
			}
		}
	}
}

// sweep removes groups older than the staleness threshold and returns how
// many were discarded. It shares the claim lock with Submit, so a sweep
// cannot race a legitimate late claim.
func (a *Aggregator) sweep(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for scope, g := range a.groups {
		if now.Sub(g.createdAt) > a.staleAfter {
			delete(a.groups, scope)
			n++
		}
	}
	return n
}

// PendingGroups reports how many unclaimed buckets exist. Used by tests
// and the gateway status output.
func (a *Aggregator) PendingGroups() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}
