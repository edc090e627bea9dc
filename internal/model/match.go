package model

// Match is created exactly once per movie, the first time its distinct liker
// count reaches the room threshold. LikedBy may grow afterwards as late
// likers arrive; MatchedAt never changes after creation.
type Match struct {
	MovieID   MovieID  `json:"movie_id"`
	LikedBy   []string `json:"liked_by"`
	MatchedAt int64    `json:"matched_at"`
}
