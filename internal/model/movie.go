package model

import "strconv"

// MovieID is the stable catalog identifier a swipe refers to, regardless of
// how any participant has filtered or sorted their own view.
type MovieID int64

const EmptyMovieID MovieID = 0

func (id MovieID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func ParseMovieID(s string) (MovieID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return EmptyMovieID, err
	}
	return MovieID(v), nil
}

type MovieMeta struct {
	ID         MovieID  `json:"id"`
	Title      string   `json:"title"`
	Year       int      `json:"year"`
	Genres     []string `json:"genres"`
	Language   string   `json:"language,omitempty"`
	Rating     float64  `json:"rating"`
	Popularity float64  `json:"popularity,omitempty"`
	Duration   int      `json:"duration"`
	Released   bool     `json:"released"`

	PosterLink string `json:"poster_link,omitempty"`
	Overview   string `json:"overview,omitempty"`
}
