package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"meet-server/internal/domain/meeting"
	"meet-server/internal/infrastructure/metrics"
	"meet-server/internal/interfaces/httpserver/responses"
)

// MeetingService is the slice of the meeting service the HTTP surface needs.
type MeetingService interface {
	Create(ctx context.Context) (*meeting.CreatedMeeting, error)
	Teardown(ctx context.Context, meetingID string) error
}

// MeetingHandler exposes the meeting query surface.
type MeetingHandler struct {
	service  MeetingService
	registry *meeting.Registry
	archive  *meeting.Archive
	log      zerolog.Logger
}

func NewMeetingHandler(service MeetingService, registry *meeting.Registry, archive *meeting.Archive, log zerolog.Logger) *MeetingHandler {
	return &MeetingHandler{
		service:  service,
		registry: registry,
		archive:  archive,
		log:      log.With().Str("component", "meeting-handler").Logger(),
	}
}

// List returns live meetings with their attendee counts.
func (h *MeetingHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, responses.BuildRoomsResponse(h.registry.List()))
}

// Create provisions a meeting and its recording pipelines. The creator joins
// afterwards over the WebSocket, like everyone else.
func (h *MeetingHandler) Create(c *gin.Context) {
	created, err := h.service.Create(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("create meeting failed")
		responses.HandleError(c, err, "create meeting failed")
		return
	}
	metrics.MeetingsCreatedTotal.Inc()
	c.JSON(http.StatusOK, responses.CreateRoomResponse{Meeting: created})
}

// Teardown ends a meeting explicitly, regardless of remaining attendees.
func (h *MeetingHandler) Teardown(c *gin.Context) {
	meetingID := c.Param("id")
	if err := h.service.Teardown(c.Request.Context(), meetingID); err != nil {
		h.log.Error().Err(err).Str("meeting_id", meetingID).Msg("teardown failed")
		responses.HandleError(c, err, "teardown failed")
		return
	}
	metrics.MeetingsTornDownTotal.Inc()
	c.Status(http.StatusNoContent)
}

// ListPast returns archived meetings; listing lazily resolves recording URLs.
func (h *MeetingHandler) ListPast(c *gin.Context) {
	archived := h.archive.ListAll(c.Request.Context())
	c.JSON(http.StatusOK, responses.BuildPastRoomsResponse(archived))
}
