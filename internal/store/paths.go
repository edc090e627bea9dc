package store

import (
	"strings"

	"github.com/reelmatch/core/internal/model"
)

// Path layout mirrors the shared keyspace:
//
//	rooms/{code}
//	rooms/{code}/users/{participantID}
//	rooms/{code}/swipes/{participantID}_{movieID}
//	rooms/{code}/matches/{movieID}

func RoomPath(code model.RoomCode) string {
	return "rooms/" + string(code)
}

func RoomPrefix(code model.RoomCode) string {
	return "rooms/" + string(code)
}

func UserPath(code model.RoomCode, participantID string) string {
	return RoomPath(code) + "/users/" + participantID
}

func UsersPrefix(code model.RoomCode) string {
	return RoomPath(code) + "/users/"
}

func SwipePath(code model.RoomCode, participantID string, movieID model.MovieID) string {
	return RoomPath(code) + "/swipes/" + participantID + "_" + movieID.String()
}

func SwipesPrefix(code model.RoomCode) string {
	return RoomPath(code) + "/swipes/"
}

func MatchPath(code model.RoomCode, movieID model.MovieID) string {
	return RoomPath(code) + "/matches/" + movieID.String()
}

func MatchesPrefix(code model.RoomCode) string {
	return RoomPath(code) + "/matches/"
}

// PathKind classifies a path within one room's subtree.
type PathKind int

const (
	KindUnknown PathKind = iota
	KindRoom
	KindUser
	KindSwipe
	KindMatch
)

// Classify splits a room-subtree path into its kind and trailing key segment.
func Classify(code model.RoomCode, path string) (kind PathKind, key string) {
	root := RoomPath(code)
	if path == root {
		return KindRoom, ""
	}
	rest, ok := strings.CutPrefix(path, root+"/")
	if !ok {
		return KindUnknown, ""
	}
	switch {
	case strings.HasPrefix(rest, "users/"):
		return KindUser, strings.TrimPrefix(rest, "users/")
	case strings.HasPrefix(rest, "swipes/"):
		return KindSwipe, strings.TrimPrefix(rest, "swipes/")
	case strings.HasPrefix(rest, "matches/"):
		return KindMatch, strings.TrimPrefix(rest, "matches/")
	}
	return KindUnknown, ""
}
