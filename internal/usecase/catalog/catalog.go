package usecase_catalog

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/reelmatch/core/internal/model"
)

var ErrCatalogUnavailable = errors.New("catalog unavailable")

// Source loads the local movie dataset. Two variants exist: a JSON file
// (infra/catalog/file) and postgres (infra/catalog/postgres).
type Source interface {
	Load(ctx context.Context) ([]model.MovieMeta, error)
}

// TitleFeed is the optional external popularity feed used to narrow the
// catalog. Titles come back lowercased.
type TitleFeed interface {
	FetchPopularTitles(ctx context.Context, pages int) ([]string, error)
}

// Store holds the immutable working set of movies for a session; loaded once,
// never mutated afterwards.
type Store struct {
	movies []model.MovieMeta
	logger *slog.Logger
}

// Load reads the dataset and, when a feed is configured, narrows it to
// movies whose titles appear in the popular list (case-insensitive). A feed
// failure is non-fatal: the full local set is kept. A source failure is
// fatal to starting a session.
func Load(ctx context.Context, src Source, feed TitleFeed, feedPages int) (*Store, error) {
	movies, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrCatalogUnavailable, err)
	}

	logger := slog.Default()
	if feed != nil {
		titles, err := feed.FetchPopularTitles(ctx, feedPages)
		if err != nil {
			logger.Warn("popular-title feed failed, keeping full catalog",
				"error", err, "movies", len(movies))
		} else {
			movies = narrow(movies, titles)
			logger.Info("catalog narrowed by popular titles",
				"movies", len(movies), "titles", len(titles))
		}
	}

	return &Store{movies: movies, logger: logger}, nil
}

func narrow(movies []model.MovieMeta, titles []string) []model.MovieMeta {
	allowed := make(map[string]bool, len(titles))
	for _, t := range titles {
		allowed[strings.ToLower(t)] = true
	}

	kept := make([]model.MovieMeta, 0, len(movies))
	for _, m := range movies {
		if allowed[strings.ToLower(m.Title)] {
			kept = append(kept, m)
		}
	}
	return kept
}

// ListAll returns a copy of the working set.
func (s *Store) ListAll() []model.MovieMeta {
	return append([]model.MovieMeta(nil), s.movies...)
}

func (s *Store) Len() int { return len(s.movies) }

// ByID resolves a movie by its stable identifier.
func (s *Store) ByID(id model.MovieID) (model.MovieMeta, bool) {
	for _, m := range s.movies {
		if m.ID == id {
			return m, true
		}
	}
	return model.MovieMeta{}, false
}

// Genres returns the sorted distinct genre list of the working set.
func (s *Store) Genres() []string {
	return distinct(s.movies, func(m model.MovieMeta) []string { return m.Genres })
}

// Languages returns the sorted distinct language list of the working set.
func (s *Store) Languages() []string {
	return distinct(s.movies, func(m model.MovieMeta) []string {
		if m.Language == "" {
			return []string{"en"}
		}
		return []string{strings.ToLower(m.Language)}
	})
}

func distinct(movies []model.MovieMeta, pick func(model.MovieMeta) []string) []string {
	seen := make(map[string]bool)
	for _, m := range movies {
		for _, v := range pick(m) {
			seen[v] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
