package meeting

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"meet-server/internal/utils/apperrors"
)

// Registry is the authoritative in-memory table of live meetings and their
// attendees. It performs no network calls; sequencing of whole join/leave/teardown
// operations per meeting id is the Service's responsibility. The internal mutex
// only protects the table itself.
type Registry struct {
	mu       sync.RWMutex
	meetings map[string]*liveMeeting
}

type liveMeeting struct {
	id         string
	pipelineID string
	createdAt  time.Time
	// join order, used for deterministic count reporting
	attendees []*liveAttendee
}

type liveAttendee struct {
	id       string
	joinedAt time.Time
	sink     MessageSink
}

func NewRegistry() *Registry {
	return &Registry{meetings: make(map[string]*liveMeeting)}
}

// Create registers a new meeting with no attendees. The pipeline id may be empty
// when recording setup failed; teardown skips the pipeline delete in that case.
func (r *Registry) Create(meetingID, pipelineID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.meetings[meetingID]; exists {
		return apperrors.New(apperrors.LayerDomain, apperrors.ErrorTypeConflict,
			fmt.Sprintf("meeting %s already registered", meetingID), nil)
	}
	r.meetings[meetingID] = &liveMeeting{
		id:         meetingID,
		pipelineID: pipelineID,
		createdAt:  time.Now(),
	}
	return nil
}

// Has reports whether the meeting is currently live.
func (r *Registry) Has(meetingID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.meetings[meetingID]
	return ok
}

// AddAttendee appends an attendee and its connection sink in join order.
func (r *Registry) AddAttendee(meetingID, attendeeID string, sink MessageSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.meetings[meetingID]
	if !ok {
		return notFound(meetingID)
	}
	m.attendees = append(m.attendees, &liveAttendee{
		id:       attendeeID,
		joinedAt: time.Now(),
		sink:     sink,
	})
	return nil
}

// RemoveAttendee drops an attendee and returns the remaining count. Removing an
// unknown attendee from a live meeting is a no-op on the attendee set.
func (r *Registry) RemoveAttendee(meetingID, attendeeID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.meetings[meetingID]
	if !ok {
		return 0, notFound(meetingID)
	}
	kept := m.attendees[:0]
	for _, a := range m.attendees {
		if a.id != attendeeID {
			kept = append(kept, a)
		}
	}
	m.attendees = kept
	return len(m.attendees), nil
}

// Remove atomically detaches the meeting, making it invisible to all subsequent
// registry calls. Exactly one caller wins under concurrent teardown attempts.
func (r *Registry) Remove(meetingID string) (*DetachedMeeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.meetings[meetingID]
	if !ok {
		return nil, notFound(meetingID)
	}
	delete(r.meetings, meetingID)
	return &DetachedMeeting{
		ID:         m.id,
		PipelineID: m.pipelineID,
		CreatedAt:  m.createdAt,
	}, nil
}

// List returns a snapshot of live meetings ordered by creation time.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0, len(r.meetings))
	for _, m := range r.meetings {
		out = append(out, Summary{
			MeetingID:     m.id,
			AttendeeCount: len(m.attendees),
			CreatedAt:     m.createdAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].MeetingID < out[j].MeetingID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Membership returns the attendee count and connection sinks in one consistent
// read, so a broadcast never reports a count that disagrees with the sinks it
// was sent to. ok is false when the meeting is no longer live.
func (r *Registry) Membership(meetingID string) (count int, sinks []MessageSink, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, found := r.meetings[meetingID]
	if !found {
		return 0, nil, false
	}
	sinks = make([]MessageSink, 0, len(m.attendees))
	for _, a := range m.attendees {
		sinks = append(sinks, a.sink)
	}
	return len(m.attendees), sinks, true
}

func notFound(meetingID string) error {
	return apperrors.New(apperrors.LayerDomain, apperrors.ErrorTypeNotFound,
		fmt.Sprintf("meeting %s not found", meetingID), nil)
}
