package model

import "time"

type SortKey string

const (
	SortByRating     SortKey = "rating"
	SortByYear       SortKey = "year"
	SortByTitle      SortKey = "title"
	SortByPopularity SortKey = "popularity"
	SortByDuration   SortKey = "duration"
	SortRandom       SortKey = "random"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortByRating, SortByYear, SortByTitle, SortByPopularity, SortByDuration, SortRandom:
		return true
	}
	return false
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// FilterState is per-participant local state; it never leaves the client's
// session. Genre matching is OR semantics, language is case-insensitive
// exact match, both ranges are inclusive.
type FilterState struct {
	Genres      []string   `json:"genres"`
	Language    string     `json:"language"`
	YearRange   [2]int     `json:"year_range"`
	RatingRange [2]float64 `json:"rating_range"`
}

// SortState is per-participant local state. Seed backs the random
// permutation and is re-drawn only when random is re-chosen or an explicit
// shuffle is requested, so repeated renders do not re-shuffle.
type SortState struct {
	Key  SortKey       `json:"key"`
	Dir  SortDirection `json:"dir"`
	Seed int64         `json:"seed"`
}

func DefaultFilters() FilterState {
	return FilterState{
		Language:    "en",
		YearRange:   [2]int{1900, time.Now().Year()},
		RatingRange: [2]float64{0, 10},
	}
}

func DefaultSort() SortState {
	return SortState{Key: SortByRating, Dir: SortDesc}
}
