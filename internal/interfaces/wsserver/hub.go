package wsserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"meet-server/internal/config"
	"meet-server/internal/domain/meeting"
	"meet-server/internal/infrastructure/metrics"
)

// Coordinator is the slice of the meeting service the hub drives.
type Coordinator interface {
	Join(ctx context.Context, meetingID string, sink meeting.MessageSink) (*meeting.JoinResult, error)
	Leave(ctx context.Context, meetingID, attendeeID string) (int, error)
	Teardown(ctx context.Context, meetingID string) error
}

// Hub bridges persistent connections to meeting membership. Each connection
// runs its own read loop goroutine and maps to at most one (meeting, attendee)
// pair; membership changes are re-broadcast to every connection in the meeting.
type Hub struct {
	cfg         *config.Config
	coordinator Coordinator
	registry    *meeting.Registry
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

func NewHub(cfg *config.Config, coordinator Coordinator, registry *meeting.Registry, log zerolog.Logger) *Hub {
	return &Hub{
		cfg:         cfg,
		coordinator: coordinator,
		registry:    registry,
		log:         log.With().Str("component", "ws-hub").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origin policy is enforced by the CORS layer in front of the engine
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle upgrades the request and serves the connection until it closes.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(conn, h.cfg.WSWriteTimeout)
	metrics.ActiveConnections.Inc()
	h.log.Debug().Str("remote", c.Request.RemoteAddr).Msg("connection opened")

	defer func() {
		h.unbind(client)
		conn.Close()
		metrics.ActiveConnections.Dec()
		h.log.Debug().Str("remote", c.Request.RemoteAddr).Msg("connection closed")
	}()

	h.readLoop(c.Request.Context(), client)
}

func (h *Hub) readLoop(ctx context.Context, client *client) {
	client.conn.SetReadLimit(h.cfg.WSReadLimit)

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("connection read error")
			}
			return
		}

		var packet inboundPacket
		if err := json.Unmarshal(raw, &packet); err != nil {
			h.log.Warn().Err(err).Msg("malformed packet")
			continue
		}

		switch packet.Type {
		case "join":
			h.bind(ctx, client, packet.SessionID)
		default:
			h.log.Warn().Str("type", packet.Type).Msg("unknown packet type ignored")
		}
	}
}

// bind joins the connection into a meeting and broadcasts the new count. A
// failed join is surfaced to this connection only; the connection stays
// unbound and open.
func (h *Hub) bind(ctx context.Context, client *client, meetingID string) {
	if _, _, bound := client.binding(); bound {
		h.log.Warn().Str("meeting_id", meetingID).Msg("join on already bound connection ignored")
		return
	}

	result, err := h.coordinator.Join(ctx, meetingID, client)
	if err != nil {
		h.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("join failed")
		if sendErr := client.Send(errorMessage{Type: "error", Error: err.Error()}); sendErr != nil {
			h.log.Warn().Err(sendErr).Msg("send join error")
		}
		return
	}

	client.bind(meetingID, result.Attendee.ID)
	metrics.AttendeeJoinsTotal.Inc()

	if err := client.Send(joinedMessage{
		Type:        "joined",
		Descriptor:  result.Descriptor,
		Participant: result.Attendee,
	}); err != nil {
		h.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("send joined")
	}
	h.BroadcastCount(meetingID)
}

// unbind leaves the meeting on behalf of a closed connection. A connection that
// was never bound is a no-op. The leave/teardown sequence completes even though
// the request context is gone.
func (h *Hub) unbind(client *client) {
	meetingID, attendeeID, ok := client.binding()
	if !ok {
		return
	}

	ctx := context.Background()
	count, err := h.coordinator.Leave(ctx, meetingID, attendeeID)
	if err != nil {
		h.log.Warn().Err(err).Str("meeting_id", meetingID).Str("attendee_id", attendeeID).Msg("leave failed")
	} else {
		metrics.AttendeeLeavesTotal.Inc()
		if count == 0 && h.cfg.AutoTeardownOnEmpty {
			if err := h.coordinator.Teardown(ctx, meetingID); err != nil {
				h.log.Error().Err(err).Str("meeting_id", meetingID).Msg("auto teardown")
			} else {
				metrics.MeetingsTornDownTotal.Inc()
			}
		}
	}
	h.BroadcastCount(meetingID)
}

// BroadcastCount pushes the current attendee count to every connection in the
// meeting. Membership is read from the registry at send time, so the count
// always matches actual membership. A torn-down meeting is a silent no-op, and
// one unreachable connection never aborts the rest of the broadcast.
func (h *Hub) BroadcastCount(meetingID string) {
	count, sinks, ok := h.registry.Membership(meetingID)
	if !ok {
		return
	}

	msg := countMessage{Type: "participantCount", Count: count}
	for _, sink := range sinks {
		if err := sink.Send(msg); err != nil {
			metrics.BroadcastErrorsTotal.Inc()
			h.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("broadcast send failed")
		}
	}
}
