package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/flashdeck-app/flashcard-service/internal/services"
	"github.com/flashdeck-app/flashcard-service/internal/streaming"
	"github.com/flashdeck-app/flashcard-service/internal/utils"
)

// EventsHandler serves the per-user upload status stream over SSE.
type EventsHandler struct {
	BaseHandler
	authService services.AuthService
	streamer    *streaming.Streamer
}

func NewEventsHandler(authService services.AuthService, streamer *streaming.Streamer, logger utils.Logger) *EventsHandler {
	return &EventsHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
		streamer:    streamer,
	}
}

// Stream opens the status event stream. EventSource clients cannot set
// headers, so the token is taken from the query string with the Authorization
// header as fallback.
//
// The response is always a 200 SSE stream: authentication failures and
// duplicate connections are reported as a single terminal event on the stream
// itself rather than as an HTTP error, because the body of a failed
// EventSource request is not observable to browser clients.
func (h *EventsHandler) Stream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	token := c.Query("token")
	if token == "" {
		token, _ = BearerToken(c)
	}

	user, err := h.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		h.emit(c, streaming.Event{
			Type:  streaming.EventAuthError,
			Error: "invalid or expired token",
		})
		return
	}

	err = h.streamer.Run(c.Request.Context(), user.ID, func(event streaming.Event) error {
		return h.emit(c, event)
	})

	switch {
	case errors.Is(err, streaming.ErrDuplicateSession):
		h.emit(c, streaming.Event{
			Type:  streaming.EventError,
			Error: "another stream session is already active for this user",
		})
	case err != nil && !errors.Is(err, context.Canceled):
		h.LogError(c, "Stream session ended abnormally", "user_id", user.ID, "error", err)
	}
}

func (h *EventsHandler) emit(c *gin.Context, event streaming.Event) error {
	if err := sse.Encode(c.Writer, sse.Event{
		Event: "message",
		Data:  event,
	}); err != nil {
		return err
	}

	if flusher, ok := c.Writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}
