package http_queue

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/reelmatch/core/internal/delivery/http/common"
	"github.com/reelmatch/core/internal/model"
	"github.com/reelmatch/core/internal/session"
	usecase_catalog "github.com/reelmatch/core/internal/usecase/catalog"
	usecase_queue "github.com/reelmatch/core/internal/usecase/queue"
)

const participantHeader = "X-participant-token"

type Controller struct {
	sessions *session.Manager
	catalog  *usecase_catalog.Store
	logger   *slog.Logger
}

func New(sessions *session.Manager, catalog *usecase_catalog.Store) *Controller {
	return &Controller{
		sessions: sessions,
		catalog:  catalog,
		logger:   slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	queue := router.Group("/rooms/:room_code/queue")
	{
		queue.GET("", c.currentQueue)
		queue.PUT("/filters", c.applyFilters)
		queue.PUT("/sort", c.applySort)
		queue.POST("/shuffle", c.shuffle)
	}
	router.GET("/catalog/facets", c.facets)
}

type QueueResponseDTO struct {
	MovieIDs []int64 `json:"movie_ids"`
	Cursor   *int64  `json:"cursor,omitempty"`
}

func (c *Controller) currentQueue(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}

	queue := s.Queue()
	ids := make([]int64, len(queue))
	for i, id := range queue {
		ids[i] = int64(id)
	}

	resp := QueueResponseDTO{MovieIDs: ids}
	if current, ok := s.Current(); ok {
		v := int64(current)
		resp.Cursor = &v
	}
	ctx.JSON(http.StatusOK, resp)
}

type FiltersRequestDTO struct {
	Genres      []string   `json:"genres"`
	Language    string     `json:"language" binding:"required"`
	YearRange   [2]int     `json:"year_range"`
	RatingRange [2]float64 `json:"rating_range"`
}

// applyFilters commits new filters. A validation failure returns the error
// and leaves the previously committed queue untouched.
func (c *Controller) applyFilters(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}

	var req FiltersRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid request"})
		return
	}

	err := s.ApplyFilters(model.FilterState{
		Genres:      req.Genres,
		Language:    req.Language,
		YearRange:   req.YearRange,
		RatingRange: req.RatingRange,
	})
	if err != nil {
		if errors.Is(err, usecase_queue.ErrInvalidFilterRange) {
			ctx.JSON(http.StatusUnprocessableEntity, http_common.ErrorResponse{Message: err.Error()})
			return
		}
		c.logger.Error("failed to apply filters", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

type SortRequestDTO struct {
	Key string `json:"key" binding:"required"`
	Dir string `json:"dir"`
}

func (c *Controller) applySort(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}

	var req SortRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid request"})
		return
	}

	key := model.SortKey(req.Key)
	if !key.Valid() {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "unknown sort key"})
		return
	}
	dir := model.SortDirection(req.Dir)
	if dir != model.SortAsc && dir != model.SortDesc {
		dir = model.SortDesc
	}

	if err := s.ApplySort(key, dir); err != nil {
		c.logger.Error("failed to apply sort", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *Controller) shuffle(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}

	if err := s.Shuffle(); err != nil {
		c.logger.Error("failed to shuffle", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
		return
	}
	ctx.Status(http.StatusNoContent)
}

type FacetsResponseDTO struct {
	Genres    []string `json:"genres"`
	Languages []string `json:"languages"`
}

func (c *Controller) facets(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, FacetsResponseDTO{
		Genres:    c.catalog.Genres(),
		Languages: c.catalog.Languages(),
	})
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
