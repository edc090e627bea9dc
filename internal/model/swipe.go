package model

// SwipeEvent records a participant's like/dislike decision on one movie.
// At most one event exists per (participant, movie) pair; a later swipe on
// the same movie supersedes the earlier one by timestamp.
type SwipeEvent struct {
	ParticipantID string  `json:"participant_id"`
	MovieID       MovieID `json:"movie_id"`
	Liked         bool    `json:"liked"`
	Timestamp     int64   `json:"timestamp"`
}

type SwipeKey struct {
	ParticipantID string
	MovieID       MovieID
}

func (e SwipeEvent) Key() SwipeKey {
	return SwipeKey{ParticipantID: e.ParticipantID, MovieID: e.MovieID}
}

// Supersedes reports whether e wins over other under last-write-wins.
func (e SwipeEvent) Supersedes(other SwipeEvent) bool {
	return e.Timestamp >= other.Timestamp
}
