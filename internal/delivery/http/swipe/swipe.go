package http_swipe

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/reelmatch/core/internal/delivery/http/common"
	"github.com/reelmatch/core/internal/model"
	"github.com/reelmatch/core/internal/session"
)

const participantHeader = "X-participant-token"

type Controller struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func New(sessions *session.Manager) *Controller {
	return &Controller{
		sessions: sessions,
		logger:   slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	room := router.Group("/rooms/:room_code")
	{
		room.POST("/swipes", c.swipe)
		room.GET("/matches", c.matches)
	}
}

type SwipeRequestDTO struct {
	MovieID int64 `json:"movie_id" binding:"required"`
	Liked   *bool `json:"liked" binding:"required"`
}

type SwipeResponseDTO struct {
	NextMovieID int64 `json:"next_movie_id,omitempty"`
	QueueDone   bool  `json:"queue_done"`
}

// swipe records the decision and advances the participant's queue cursor.
// The ledger write is optimistic; a store failure shows up as a session
// event, never as a request error.
func (c *Controller) swipe(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}

	var req SwipeRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid request"})
		return
	}

	s.RecordSwipe(ctx, model.MovieID(req.MovieID), *req.Liked)

	next, more := s.Advance()
	resp := SwipeResponseDTO{QueueDone: !more}
	if more {
		resp.NextMovieID = int64(next)
	}
	ctx.JSON(http.StatusOK, resp)
}

type MatchDTO struct {
	MovieID   int64    `json:"movie_id"`
	LikedBy   []string `json:"liked_by"`
	MatchedAt int64    `json:"matched_at"`
}

func (c *Controller) matches(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}

	matches := s.Matches()
	out := make([]MatchDTO, len(matches))
	for i, m := range matches {
		out[i] = MatchDTO{MovieID: int64(m.MovieID), LikedBy: m.LikedBy, MatchedAt: m.MatchedAt}
	}
	ctx.JSON(http.StatusOK, out)
}

func (c *Controller) session(ctx *gin.Context) (*session.Session, bool) {
	token := ctx.GetHeader(participantHeader)
	if token == "" {
		ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{Message: participantHeader + " not found"})
		return nil, false
	}

	s, ok := c.sessions.Get(model.RoomCode(ctx.Param("room_code")), token)
	if !ok {
		ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Message: "no active session for this room"})
		return nil, false
	}
	return s, true
}
