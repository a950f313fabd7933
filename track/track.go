// Package track drives several template aligners against a shared stream of frames, e.g. one
// aligner per tracked planar target.
package track

import (
	"context"
	"image"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"go.viam.com/imagealign/align"
	"go.viam.com/imagealign/logging"
	"go.viam.com/imagealign/rimage"
	"go.viam.com/imagealign/rimage/transform"
)

// Result is the outcome of one member's update for one frame. A refused or failed update is
// reported through Err with Signal set to align.FailedUpdate.
type Result struct {
	Name       string
	Signal     float64
	Homography transform.Homography
	Err        error
}

// Group owns a named set of aligners and steps all of them on every frame. Members run
// concurrently with each other, but a Group serializes its own Update calls since an aligner is
// not safe for concurrent use.
type Group struct {
	logger logging.Logger

	mu      sync.Mutex
	members map[string]align.Aligner

	frames atomic.Int64
}

// NewGroup returns an empty group.
func NewGroup(logger logging.Logger) *Group {
	if logger == nil {
		logger = logging.NewBlankLogger("track")
	}
	return &Group{
		logger:  logger,
		members: map[string]align.Aligner{},
	}
}

// Add registers an initialized aligner under name.
func (g *Group) Add(name string, a align.Aligner) error {
	if a == nil {
		return errors.Errorf("cannot track nil aligner %q", name)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.members[name]; ok {
		return errors.Errorf("aligner %q already tracked", name)
	}
	g.members[name] = a
	return nil
}

// Remove drops the named aligner and reports whether it was present.
func (g *Group) Remove(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.members[name]
	delete(g.members, name)
	return ok
}

// Names returns the tracked names in sorted order.
func (g *Group) Names() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.namesLocked()
}

func (g *Group) namesLocked() []string {
	names := lo.Keys(g.members)
	sort.Strings(names)
	return names
}

// Frames returns how many frames Update has completed.
func (g *Group) Frames() int64 {
	return g.frames.Load()
}

// Update runs one alignment step of every member against frame and returns one Result per member
// ordered by name. Member failures are reported per Result; the returned error is set only when
// the frame cannot be used at all or ctx ends before every member ran.
func (g *Group) Update(ctx context.Context, frame image.Image) ([]Result, error) {
	if frame == nil {
		return nil, align.ErrNilImage
	}
	// converted once and shared read-only by every member
	shared, err := rimage.ToFloatImage(frame)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	names := g.namesLocked()
	results := make([]Result, len(names))
	eg, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		a := g.members[name]
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			signal, err := a.UpdateHomography(shared)
			results[i] = Result{Name: name, Signal: signal, Homography: a.Homography(), Err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	n := g.frames.Inc()
	for _, name := range Failed(results) {
		g.logger.Warnw("aligner update failed", "aligner", name, "frame", n)
	}
	g.logger.Debugw("frame aligned", "frame", n, "aligners", len(results))
	return results, nil
}

// Failed returns the names of the results that carry an error.
func Failed(results []Result) []string {
	return lo.FilterMap(results, func(r Result, _ int) (string, bool) {
		return r.Name, r.Err != nil
	})
}

// Converged reports whether every result succeeded with a signal below threshold.
func Converged(results []Result, threshold float64) bool {
	return lo.EveryBy(results, func(r Result) bool {
		return r.Err == nil && r.Signal < threshold
	})
}
