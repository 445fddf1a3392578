package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/entities"
	"github.com/satriahrh/voxlate/domain/repositories"
	"github.com/satriahrh/voxlate/internal/auth"
	"github.com/satriahrh/voxlate/internal/websocket"
	"github.com/satriahrh/voxlate/usecase"
)

const defaultSessionListLimit = 20

// SessionService is the use case surface the routes drive
type SessionService interface {
	StartSession(ctx context.Context, config entities.SessionConfig) error
	StopSession(ctx context.Context) (usecase.StopResult, error)
	PauseToggle() (bool, error)
	Results() usecase.ResultsView
	ListDevices(ctx context.Context) ([]entities.AudioDevice, error)
	ListModels(ctx context.Context) []string
	ListSessions(ctx context.Context, limit int) ([]*entities.TranslationSession, error)
	GetSession(ctx context.Context, id string) (*entities.TranslationSession, error)
}

// InitRoutes initializes all API routes. tokens may be nil, which leaves the API open.
func InitRoutes(e *echo.Echo, sessions SessionService, hub *websocket.Hub, tokens *auth.TokenManager, logger *zap.Logger) {
	h := &handlers{sessions: sessions, tokens: tokens, logger: logger}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "voxlate-server",
		})
	})

	var protected []echo.MiddlewareFunc
	if tokens != nil {
		e.POST("/api/auth/token", h.issueToken)
		protected = append(protected, RequireToken(tokens, logger))
	}

	v1 := e.Group("/api", protected...)

	v1.GET("/audio-devices", h.listDevices)
	v1.GET("/models", h.listModels)
	v1.POST("/start", h.start)
	v1.POST("/pause", h.pause)
	v1.POST("/stop", h.stop)
	v1.GET("/results", h.results)
	v1.GET("/sessions", h.listSessions)
	v1.GET("/sessions/:id", h.getSession)

	// Live events
	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(hub, c, logger)
	}, protected...)
}

type handlers struct {
	sessions SessionService
	tokens   *auth.TokenManager
	logger   *zap.Logger
}

func (h *handlers) issueToken(c echo.Context) error {
	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.APIKey == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "api_key is required",
		})
	}

	token, expiresAt, err := h.tokens.IssueToken(req.APIKey)
	if errors.Is(err, auth.ErrInvalidAPIKey) {
		h.logger.Warn("Token request rejected: invalid api key")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid API key",
		})
	}
	if err != nil {
		h.logger.Error("Failed to issue token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	return c.JSON(http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *handlers) listDevices(c echo.Context) error {
	devices, err := h.sessions.ListDevices(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to list audio devices", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "device_error",
			Message: err.Error(),
		})
	}

	resp := make([]DeviceResponse, 0, len(devices))
	for _, d := range devices {
		resp = append(resp, DeviceResponse{
			ID:                d.Index,
			Name:              d.Label(),
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"devices": resp})
}

func (h *handlers) listModels(c echo.Context) error {
	models := h.sessions.ListModels(c.Request().Context())

	resp := make([]ModelResponse, 0, len(models))
	for _, m := range models {
		resp = append(resp, ModelResponse{ID: m, Name: m})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"models": resp})
}

func (h *handlers) start(c echo.Context) error {
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, StatusResponse{
			Status:  "error",
			Message: "Invalid request format",
		})
	}

	if req.ChunkDuration.Set && !req.ChunkDuration.Valid {
		return c.JSON(http.StatusBadRequest, StatusResponse{
			Status:  "error",
			Message: "chunkDuration must be an integer",
		})
	}

	config := entities.SessionConfig{
		InputLanguage:  req.InputLanguage,
		TargetLanguage: req.TargetLanguage,
		SelectedModel:  req.SelectedModel,
		ChunkDuration:  req.ChunkDuration.Value,
		ModelSize:      req.ModelSize,
	}
	// An unreadable device index selects the first device
	if req.DeviceIndex.Valid {
		config.DeviceIndex = req.DeviceIndex.Value
	}

	err := h.sessions.StartSession(c.Request().Context(), config)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, StatusResponse{Status: "started"})
	case errors.Is(err, entities.ErrInvalidConfig):
		return c.JSON(http.StatusBadRequest, StatusResponse{Status: "error", Message: err.Error()})
	default:
		h.logger.Error("Failed to start session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, StatusResponse{
			Status:  "error",
			Message: "Failed to start audio stream: " + err.Error(),
		})
	}
}

func (h *handlers) pause(c echo.Context) error {
	paused, err := h.sessions.PauseToggle()
	if errors.Is(err, usecase.ErrNoActiveSession) {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "no_active_session",
			Message: "No session is running",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()})
	}

	status := "resumed"
	if paused {
		status = "paused"
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: status})
}

func (h *handlers) stop(c echo.Context) error {
	result, err := h.sessions.StopSession(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to stop session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()})
	}

	return c.JSON(http.StatusOK, StopResponse{
		Status:     "stopped",
		Summary:    result.Summary,
		SessionID:  result.SessionID,
		Template:   result.Template,
		ExportPath: result.ExportPath,
	})
}

func (h *handlers) results(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessions.Results())
}

func (h *handlers) listSessions(c echo.Context) error {
	limit := defaultSessionListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "limit must be a positive integer",
			})
		}
		limit = n
	}

	sessions, err := h.sessions.ListSessions(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list sessions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (h *handlers) getSession(c echo.Context) error {
	session, err := h.sessions.GetSession(c.Request().Context(), c.Param("id"))
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Session not found",
		})
	}
	if err != nil {
		h.logger.Error("Failed to get session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()})
	}
	return c.JSON(http.StatusOK, session)
}
