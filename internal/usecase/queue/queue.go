package usecase_queue

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/reelmatch/core/internal/model"
)

var ErrInvalidFilterRange = errors.New("invalid filter range")

// When an item carries no language, it filters as English.
const defaultLanguage = "en"

// BuildQueue maps (catalog, filters, sort) to an ordered list of movie IDs.
// It is pure and deterministic: the random order is fully determined by
// sort.Seed, so repeated calls with the same inputs yield the same queue.
func BuildQueue(catalog []model.MovieMeta, filters model.FilterState, sortState model.SortState) ([]model.MovieID, error) {
	if err := validate(filters); err != nil {
		return nil, err
	}

	filtered := make([]model.MovieMeta, 0, len(catalog))
	for _, m := range catalog {
		if matches(m, filters) {
			filtered = append(filtered, m)
		}
	}

	order(filtered, sortState)

	queue := make([]model.MovieID, len(filtered))
	for i, m := range filtered {
		queue[i] = m.ID
	}
	return queue, nil
}

func validate(f model.FilterState) error {
	if f.YearRange[0] > f.YearRange[1] {
		return fmt.Errorf("%w: year %d > %d", ErrInvalidFilterRange, f.YearRange[0], f.YearRange[1])
	}
	if f.RatingRange[0] > f.RatingRange[1] {
		return fmt.Errorf("%w: rating %g > %g", ErrInvalidFilterRange, f.RatingRange[0], f.RatingRange[1])
	}
	return nil
}

func matches(m model.MovieMeta, f model.FilterState) bool {
	if !m.Released {
		return false
	}
	if len(f.Genres) > 0 && !hasAnyGenre(m.Genres, f.Genres) {
		return false
	}
	lang := m.Language
	if lang == "" {
		lang = defaultLanguage
	}
	if !strings.EqualFold(lang, f.Language) {
		return false
	}
	if m.Year < f.YearRange[0] || m.Year > f.YearRange[1] {
		return false
	}
	if m.Rating < f.RatingRange[0] || m.Rating > f.RatingRange[1] {
		return false
	}
	return true
}

func hasAnyGenre(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func order(movies []model.MovieMeta, s model.SortState) {
	if s.Key == model.SortRandom {
		shuffle(movies, s.Seed)
		return
	}

	less := lessFunc(s.Key)
	sort.SliceStable(movies, func(i, j int) bool {
		if s.Dir == model.SortDesc {
			i, j = j, i
		}
		return less(movies[i], movies[j])
	})
}

func lessFunc(key model.SortKey) func(a, b model.MovieMeta) bool {
	switch key {
	case model.SortByYear:
		return func(a, b model.MovieMeta) bool { return a.Year < b.Year }
	case model.SortByTitle:
		collator := collate.New(language.English, collate.IgnoreCase)
		return func(a, b model.MovieMeta) bool { return collator.CompareString(a.Title, b.Title) < 0 }
	case model.SortByPopularity:
		return func(a, b model.MovieMeta) bool { return a.Popularity < b.Popularity }
	case model.SortByDuration:
		return func(a, b model.MovieMeta) bool { return a.Duration < b.Duration }
	default:
		return func(a, b model.MovieMeta) bool { return a.Rating < b.Rating }
	}
}

// Fisher-Yates over the filtered set, seeded once per apply/shuffle action.
func shuffle(movies []model.MovieMeta, seed int64) {
	r := rand.New(rand.NewSource(seed))
	for i := len(movies) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		movies[i], movies[j] = movies[j], movies[i]
	}
}
