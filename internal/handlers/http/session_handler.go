package http

import (
	"errors"
	"net/http"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	replayService ports.ReplayService
}

func NewSessionHandler(replayService ports.ReplayService) *SessionHandler {
	return &SessionHandler{
		replayService: replayService,
	}
}

func (h *SessionHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/sessions", h.CreateSession)
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/:id", h.GetSession)
		api.DELETE("/sessions/:id", h.DeleteSession)
		api.GET("/sessions/:id/stats", h.GetSessionStats)

		api.POST("/sessions/:id/actions", h.AppendActions)
		api.GET("/sessions/:id/actions", h.ListActions)
		api.POST("/sessions/:id/strokes", h.AppendStrokes)
		api.GET("/sessions/:id/strokes", h.ListStrokes)

		api.POST("/sessions/:id/replay", h.StartReplay)
		api.GET("/sessions/:id/replay", h.GetReplayStatus)
		api.DELETE("/sessions/:id/replay", h.StopReplay)
		api.POST("/sessions/:id/replay/resume", h.ResumeReplay)
	}
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req struct {
		Title           string  `json:"title" binding:"required,min=1,max=200"`
		VideoURL        string  `json:"video_url" binding:"required"`
		AudioURL        string  `json:"audio_url"`
		DurationSeconds float64 `json:"duration_seconds" binding:"required,gt=0"`
	}

	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.replayService.CreateSession(c.Request.Context(), req.Title, req.VideoURL, req.AudioURL, req.DurationSeconds)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session": session,
	})
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	session, err := h.replayService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": session,
	})
}

func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.replayService.ListSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
	})
}

func (h *SessionHandler) DeleteSession(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	if err := h.replayService.DeleteSession(c.Request.Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, domain.ErrReplayActive):
			c.JSON(http.StatusConflict, gin.H{"error": "Replay is starting for this session, stop it first"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "deleted",
	})
}

func (h *SessionHandler) GetSessionStats(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	stats, err := h.replayService.SessionStats(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": stats,
	})
}

func (h *SessionHandler) AppendActions(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	var req struct {
		Actions []domain.Action `json:"actions" binding:"required,min=1,max=10000"`
	}

	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.replayService.AppendActions(c.Request.Context(), sessionID, req.Actions); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "appended",
		"appended": len(req.Actions),
	})
}

func (h *SessionHandler) ListActions(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	actions, err := h.replayService.ListActions(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"actions": actions,
	})
}

func (h *SessionHandler) AppendStrokes(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	var req struct {
		Strokes []domain.Stroke `json:"strokes" binding:"required,min=1,max=10000"`
	}

	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.replayService.AppendStrokes(c.Request.Context(), sessionID, req.Strokes); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "appended",
		"appended": len(req.Strokes),
	})
}

func (h *SessionHandler) ListStrokes(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	strokes, err := h.replayService.ListStrokes(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"strokes": strokes,
	})
}

func (h *SessionHandler) StartReplay(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	if err := h.replayService.StartReplay(c.Request.Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, domain.ErrReplayActive):
			c.JSON(http.StatusConflict, gin.H{"error": "Replay already running for this session"})
		case domain.IsFatalMedia(err):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "started",
	})
}

func (h *SessionHandler) GetReplayStatus(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	status, err := h.replayService.ReplayStatus(sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrReplayNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No replay running for this session"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"replay": status,
	})
}

func (h *SessionHandler) ResumeReplay(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	if err := h.replayService.ResumeReplay(sessionID); err != nil {
		if errors.Is(err, domain.ErrReplayNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No replay running for this session"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "resumed",
	})
}

func (h *SessionHandler) StopReplay(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	if err := h.replayService.StopReplay(sessionID); err != nil {
		if errors.Is(err, domain.ErrReplayNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No replay running for this session"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "stopped",
	})
}
