package wsserver

import (
	"encoding/json"

	"meet-server/internal/domain/meeting"
)

// Wire protocol at the connection boundary. Unknown inbound types are logged
// and ignored, never fatal.

type inboundPacket struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type joinedMessage struct {
	Type        string                   `json:"type"`
	Descriptor  json.RawMessage          `json:"descriptor"`
	Participant *meeting.CreatedAttendee `json:"participant"`
}

type countMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
