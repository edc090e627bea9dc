package usecase_queue

import (
	"math/rand"

	"github.com/reelmatch/core/internal/model"
)

// Builder holds one participant's committed queue plus the filter/sort state
// it was derived from, and a cursor into it. Staged-but-not-applied
// semantics: an apply that fails validation leaves the committed queue and
// cursor untouched.
type Builder struct {
	catalog []model.MovieMeta

	filters model.FilterState
	sort    model.SortState
	queue   []model.MovieID
	cursor  int

	// seed source, swappable in tests
	newSeed func() int64
}

func NewBuilder(catalog []model.MovieMeta) *Builder {
	b := &Builder{
		catalog: catalog,
		filters: model.DefaultFilters(),
		sort:    model.DefaultSort(),
		newSeed: rand.Int63,
	}
	// Defaults always validate.
	b.queue, _ = BuildQueue(catalog, b.filters, b.sort)
	return b
}

// ApplyFilters rebuilds the queue under new filters. The random permutation
// seed is kept: re-filtering without re-choosing random must not reshuffle.
func (b *Builder) ApplyFilters(f model.FilterState) error {
	queue, err := BuildQueue(b.catalog, f, b.sort)
	if err != nil {
		return err
	}
	b.filters = f
	b.commit(queue)
	return nil
}

// ApplySort rebuilds the queue under a new sort key/direction. Choosing
// random draws a fresh seed for this apply action.
func (b *Builder) ApplySort(key model.SortKey, dir model.SortDirection) error {
	next := model.SortState{Key: key, Dir: dir, Seed: b.sort.Seed}
	if key == model.SortRandom {
		next.Seed = b.newSeed()
	}

	queue, err := BuildQueue(b.catalog, b.filters, next)
	if err != nil {
		return err
	}
	b.sort = next
	b.commit(queue)
	return nil
}

// Shuffle is the explicit re-shuffle action: switch to random order under a
// fresh permutation.
func (b *Builder) Shuffle() error {
	return b.ApplySort(model.SortRandom, b.sort.Dir)
}

// Reset restores default filters and sort.
func (b *Builder) Reset() error {
	if err := b.ApplyFilters(model.DefaultFilters()); err != nil {
		return err
	}
	return b.ApplySort(model.DefaultSort().Key, model.DefaultSort().Dir)
}

func (b *Builder) commit(queue []model.MovieID) {
	b.queue = queue
	b.cursor = 0
}

func (b *Builder) Filters() model.FilterState { return b.filters }
func (b *Builder) Sort() model.SortState      { return b.sort }

// Queue returns a copy of the committed queue.
func (b *Builder) Queue() []model.MovieID {
	return append([]model.MovieID(nil), b.queue...)
}

// Current returns the movie under the cursor.
func (b *Builder) Current() (model.MovieID, bool) {
	if b.cursor >= len(b.queue) {
		return model.EmptyMovieID, false
	}
	return b.queue[b.cursor], true
}

// Advance moves the cursor past the current movie and returns the next one.
func (b *Builder) Advance() (model.MovieID, bool) {
	if b.cursor < len(b.queue) {
		b.cursor++
	}
	return b.Current()
}
