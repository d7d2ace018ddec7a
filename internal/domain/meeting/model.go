package meeting

import (
	"encoding/json"
	"time"
)

// MessageSink pushes a message to one connected client. Implementations must be
// safe for concurrent use; a failed send only affects that client.
type MessageSink interface {
	Send(v any) error
}

// Summary describes one live meeting for listing purposes.
type Summary struct {
	MeetingID     string    `json:"meetingId"`
	AttendeeCount int       `json:"attendeeCnt"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CreatedMeeting is the platform's view of a newly created meeting. Descriptor is
// the raw platform payload clients need to connect their media session.
type CreatedMeeting struct {
	ID         string          `json:"meetingId"`
	ARN        string          `json:"-"`
	Descriptor json.RawMessage `json:"descriptor"`
}

// CreatedAttendee is one issued attendee credential.
type CreatedAttendee struct {
	ID         string          `json:"attendeeId"`
	Credential json.RawMessage `json:"credential"`
}

// JoinResult carries everything a joining client needs.
type JoinResult struct {
	Descriptor json.RawMessage `json:"descriptor"`
	Attendee   *CreatedAttendee `json:"attendee"`
}

// DetachedMeeting is a meeting atomically removed from the active registry,
// carrying what teardown and archiving still need.
type DetachedMeeting struct {
	ID         string
	PipelineID string
	CreatedAt  time.Time
}

// ArchivedMeeting is an ended meeting. AudioURL is empty until the recording has
// been located and presigned, and reads back empty again once the URL expires.
type ArchivedMeeting struct {
	MeetingID string    `json:"meetingId"`
	CreatedAt time.Time `json:"createdAt"`
	AudioURL  string    `json:"audioUrl,omitempty"`
	ExpiresAt time.Time `json:"-"`
}
