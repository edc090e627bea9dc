package infra_catalog_file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/reelmatch/core/internal/model"
)

// Source loads the movie dataset from a local JSON file.
type Source struct {
	path string
}

func New(path string) *Source {
	return &Source{path: path}
}

type movieDTO struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Year       int      `json:"year"`
	Genre      []string `json:"genre"`
	Rating     float64  `json:"rating"`
	Duration   int      `json:"duration"`
	Released   bool     `json:"released"`
	Popularity float64  `json:"popularity"`
	Language   string   `json:"language"`
	Poster     string   `json:"poster"`
	Overview   string   `json:"description"`
}

func (dto movieDTO) toDomain() model.MovieMeta {
	return model.MovieMeta{
		ID:         model.MovieID(dto.ID),
		Title:      dto.Title,
		Year:       dto.Year,
		Genres:     dto.Genre,
		Language:   dto.Language,
		Rating:     dto.Rating,
		Popularity: dto.Popularity,
		Duration:   dto.Duration,
		Released:   dto.Released,
		PosterLink: dto.Poster,
		Overview:   dto.Overview,
	}
}

func (s *Source) Load(_ context.Context) ([]model.MovieMeta, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", s.path, err)
	}

	var dtos []movieDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", s.path, err)
	}

	movies := make([]model.MovieMeta, len(dtos))
	for i, dto := range dtos {
		movies[i] = dto.toDomain()
	}
	return movies, nil
}
