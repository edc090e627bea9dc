package infra_catalog_postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/reelmatch/core/internal/model"
)

// Source bulk-loads the movie dataset from postgres at session start. The
// catalog is immutable afterwards, so this is a single read, not a live
// repository.
type Source struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Source {
	return &Source{db: db}
}

func (s *Source) Load(ctx context.Context) ([]model.MovieMeta, error) {
	query := `
		SELECT id, title, year, genres, language, rating,
		       popularity, duration, released, poster_link, overview
		FROM movies
	`

	var dtos []movieDB
	if err := s.db.SelectContext(ctx, &dtos, query); err != nil {
		return nil, err
	}

	movies := make([]model.MovieMeta, len(dtos))
	for i, dto := range dtos {
		movies[i] = dto.toDomain()
	}
	return movies, nil
}
