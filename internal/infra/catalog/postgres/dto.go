package infra_catalog_postgres

import (
	"github.com/lib/pq"
	"github.com/reelmatch/core/internal/model"
)

type movieDB struct {
	ID         int64          `db:"id"`
	Title      string         `db:"title"`
	Year       int            `db:"year"`
	Genres     pq.StringArray `db:"genres"`
	Language   string         `db:"language"`
	Rating     float64        `db:"rating"`
	Popularity float64        `db:"popularity"`
	Duration   int            `db:"duration"`
	Released   bool           `db:"released"`
	PosterLink string         `db:"poster_link"`
	Overview   string         `db:"overview"`
}

func (m movieDB) toDomain() model.MovieMeta {
	return model.MovieMeta{
		ID:         model.MovieID(m.ID),
		Title:      m.Title,
		Year:       m.Year,
		Genres:     []string(m.Genres),
		Language:   m.Language,
		Rating:     m.Rating,
		Popularity: m.Popularity,
		Duration:   m.Duration,
		Released:   m.Released,
		PosterLink: m.PosterLink,
		Overview:   m.Overview,
	}
}
