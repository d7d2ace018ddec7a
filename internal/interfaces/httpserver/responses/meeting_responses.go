package responses

import (
	"time"

	"meet-server/internal/domain/meeting"
)

// Room describes one live meeting
type Room struct {
	MeetingID   string `json:"meetingId"`
	AttendeeCnt int    `json:"attendeeCnt"`
}

// RoomsResponse lists live meetings
type RoomsResponse struct {
	Rooms []Room `json:"rooms"`
}

// BuildRoomsResponse creates the listing from registry summaries
func BuildRoomsResponse(summaries []meeting.Summary) *RoomsResponse {
	rooms := make([]Room, 0, len(summaries))
	for _, s := range summaries {
		rooms = append(rooms, Room{MeetingID: s.MeetingID, AttendeeCnt: s.AttendeeCount})
	}
	return &RoomsResponse{Rooms: rooms}
}

// CreateRoomResponse carries the platform descriptor for the creator
type CreateRoomResponse struct {
	Meeting *meeting.CreatedMeeting `json:"meeting"`
}

// PastRoom describes one archived meeting; AudioURL is null until resolved
type PastRoom struct {
	MeetingID string  `json:"meetingId"`
	AudioURL  *string `json:"audioUrl"`
	CreatedAt string  `json:"createdAt"`
}

// PastRoomsResponse lists archived meetings
type PastRoomsResponse struct {
	Rooms []PastRoom `json:"rooms"`
}

// BuildPastRoomsResponse creates the listing from archived meetings
func BuildPastRoomsResponse(archived []meeting.ArchivedMeeting) *PastRoomsResponse {
	rooms := make([]PastRoom, 0, len(archived))
	for _, m := range archived {
		room := PastRoom{
			MeetingID: m.MeetingID,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if m.AudioURL != "" {
			url := m.AudioURL
			room.AudioURL = &url
		}
		rooms = append(rooms, room)
	}
	return &PastRoomsResponse{Rooms: rooms}
}
