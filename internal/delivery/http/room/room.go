package http_room

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	http_common "github.com/reelmatch/core/internal/delivery/http/common"
	infra_identity "github.com/reelmatch/core/internal/infra/identity"
	"github.com/reelmatch/core/internal/model"
	"github.com/reelmatch/core/internal/session"
	usecase_room "github.com/reelmatch/core/internal/usecase/room"
)

const participantHeader = "X-participant-token"

type Controller struct {
	registry *usecase_room.Registry
	identity *infra_identity.Provider
	sessions *session.Manager
	logger   *slog.Logger
}

func New(registry *usecase_room.Registry, identity *infra_identity.Provider, sessions *session.Manager) *Controller {
	return &Controller{
		registry: registry,
		identity: identity,
		sessions: sessions,
		logger:   slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms")
	{
		rooms.POST("", c.create)
		rooms.POST("/:room_code/participants", c.join)
		rooms.DELETE("/:room_code/participants", c.leave)
		rooms.GET("/:room_code/participants", c.participants)
	}
}

type CreateRoomRequestDTO struct {
	RoomName        string `json:"room_name" binding:"required"`
	ParticipantName string `json:"participant_name" binding:"required"`
}

type RoomResponseDTO struct {
	RoomCode      string `json:"room_code"`
	ParticipantID string `json:"participant_id"`
}

func (c *Controller) create(ctx *gin.Context) {
	var req CreateRoomRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid request"})
		return
	}

	participant, ok := c.resolveParticipant(ctx, req.ParticipantName)
	if !ok {
		return
	}

	code, err := c.registry.Create(ctx, req.RoomName, participant, time.Now().UnixMilli())
	if err != nil {
		c.logger.Error("failed to create room", slog.String("error", err.Error()))
		if errors.Is(err, usecase_room.ErrCodeGenerationExhausted) {
			ctx.JSON(http.StatusServiceUnavailable, http_common.ErrorResponse{Message: "no room codes available"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
		return
	}

	if _, err := c.sessions.Attach(ctx, code, participant); err != nil {
		c.logger.Error("failed to attach session", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
		return
	}

	ctx.Header(participantHeader, participant.ID)
	ctx.JSON(http.StatusCreated, RoomResponseDTO{
		RoomCode:      string(code),
		ParticipantID: participant.ID,
	})
}

type JoinRoomRequestDTO struct {
	ParticipantName string `json:"participant_name" binding:"required"`
}

func (c *Controller) join(ctx *gin.Context) {
	code := model.RoomCode(ctx.Param("room_code"))

	var req JoinRoomRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid request"})
		return
	}

	participant, ok := c.resolveParticipant(ctx, req.ParticipantName)
	if !ok {
		return
	}

	if err := c.registry.Join(ctx, code, participant); err != nil {
		if errors.Is(err, usecase_room.ErrRoomNotFound) {
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Message: "room not found"})
			return
		}
		c.logger.Error("failed to join room", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
		return
	}

	if _, err := c.sessions.Attach(ctx, code, participant); err != nil {
		c.logger.Error("failed to attach session", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
		return
	}

	ctx.Header(participantHeader, participant.ID)
	ctx.JSON(http.StatusOK, RoomResponseDTO{
		RoomCode:      string(code),
		ParticipantID: participant.ID,
	})
}

func (c *Controller) leave(ctx *gin.Context) {
	code := model.RoomCode(ctx.Param("room_code"))

	token := ctx.GetHeader(participantHeader)
	if token == "" {
		ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{Message: participantHeader + " not found"})
		return
	}

	c.sessions.Detach(code, token)
	if err := c.registry.Leave(ctx, code, token); err != nil {
		c.logger.Error("failed to leave room", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

type ParticipantDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt int64  `json:"joined_at"`
}

func (c *Controller) participants(ctx *gin.Context) {
	code := model.RoomCode(ctx.Param("room_code"))

	room, err := c.registry.Get(ctx, code)
	if err != nil {
		if errors.Is(err, usecase_room.ErrRoomNotFound) {
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Message: "room not found"})
			return
		}
		c.logger.Error("failed to load room", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
		return
	}

	out := make([]ParticipantDTO, 0, len(room.Participants))
	for _, p := range room.Participants {
		out = append(out, ParticipantDTO{ID: p.ID, Name: p.Name, JoinedAt: p.JoinedAt})
	}
	ctx.JSON(http.StatusOK, out)
}

// resolveParticipant builds the participant identity for this request,
// reusing a presented token when valid. Identity failure is fatal to the
// operation.
func (c *Controller) resolveParticipant(ctx *gin.Context, name string) (model.Participant, bool) {
	id, err := c.identity.GetOrCreate(ctx.GetHeader(participantHeader))
	if err != nil {
		c.logger.Error("identity unavailable", slog.String("error", err.Error()))
		ctx.JSON(http.StatusServiceUnavailable, http_common.ErrorResponse{Message: "identity unavailable"})
		return model.Participant{}, false
	}

	return model.Participant{
		ID:       id,
		Name:     name,
		JoinedAt: time.Now().UnixMilli(),
	}, true
}
