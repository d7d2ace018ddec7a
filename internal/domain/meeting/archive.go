package meeting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RecordingLocator resolves finished recordings in durable storage.
type RecordingLocator interface {
	// FindRecording returns the key of the first object under prefix, or "" when
	// no recording has landed yet.
	FindRecording(ctx context.Context, prefix string) (string, error)
	// PresignRecording produces a time-limited URL for the object.
	PresignRecording(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Archive holds meetings that have ended, with lazily populated, expiring
// recording URLs. A meeting enters the archive exactly once and never leaves.
type Archive struct {
	mu      sync.Mutex
	entries map[string]*archivedEntry
	order   []string

	locator RecordingLocator
	ttl     time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

type archivedEntry struct {
	createdAt time.Time
	audioURL  string
	expiresAt time.Time
	timer     *time.Timer
}

func NewArchive(locator RecordingLocator, ttl time.Duration, log zerolog.Logger) *Archive {
	return &Archive{
		entries: make(map[string]*archivedEntry),
		locator: locator,
		ttl:     ttl,
		log:     log.With().Str("component", "meeting-archive").Logger(),
		now:     time.Now,
	}
}

// Add stores an ended meeting with no recording URL, keeping its original
// creation timestamp. Re-adding an archived id is a no-op.
func (a *Archive) Add(meetingID string, createdAt time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.entries[meetingID]; exists {
		return
	}
	a.entries[meetingID] = &archivedEntry{createdAt: createdAt}
	a.order = append(a.order, meetingID)
}

// Contains reports whether the meeting has been archived.
func (a *Archive) Contains(meetingID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.entries[meetingID]
	return ok
}

// Len returns the number of archived meetings.
func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// ListAll returns archived meetings in archival order, resolving missing or
// expired recording URLs as a side effect.
func (a *Archive) ListAll(ctx context.Context) []ArchivedMeeting {
	a.mu.Lock()
	ids := make([]string, len(a.order))
	copy(ids, a.order)
	a.mu.Unlock()

	out := make([]ArchivedMeeting, 0, len(ids))
	for _, id := range ids {
		if m, ok := a.Resolve(ctx, id); ok {
			out = append(out, m)
		}
	}
	return out
}

// ResolveAll sweeps every archived meeting, used by the periodic resolver.
func (a *Archive) ResolveAll(ctx context.Context) {
	a.ListAll(ctx)
}

// Resolve returns the archived meeting, populating its recording URL when the
// recording exists in storage. An expired URL is never returned: it is cleared
// first and a fresh one is requested from the locator.
func (a *Archive) Resolve(ctx context.Context, meetingID string) (ArchivedMeeting, bool) {
	a.mu.Lock()
	e, ok := a.entries[meetingID]
	if !ok {
		a.mu.Unlock()
		return ArchivedMeeting{}, false
	}
	if e.audioURL != "" && a.now().Before(e.expiresAt) {
		m := ArchivedMeeting{MeetingID: meetingID, CreatedAt: e.createdAt, AudioURL: e.audioURL, ExpiresAt: e.expiresAt}
		a.mu.Unlock()
		return m, true
	}
	e.audioURL = ""
	e.expiresAt = time.Time{}
	createdAt := e.createdAt
	a.mu.Unlock()

	unresolved := ArchivedMeeting{MeetingID: meetingID, CreatedAt: createdAt}

	prefix := RecordingPrefix(meetingID)
	key, err := a.locator.FindRecording(ctx, prefix)
	if err != nil {
		a.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("recording lookup failed")
		return unresolved, true
	}
	if key == "" {
		// recording still in progress; callers poll again later
		return unresolved, true
	}

	url, err := a.locator.PresignRecording(ctx, key, a.ttl)
	if err != nil {
		a.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("presign recording failed")
		return unresolved, true
	}
	expiresAt := a.now().Add(a.ttl)

	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok = a.entries[meetingID]
	if !ok {
		return unresolved, true
	}
	e.audioURL = url
	e.expiresAt = expiresAt
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(a.ttl, func() { a.expire(meetingID, expiresAt) })
	return ArchivedMeeting{MeetingID: meetingID, CreatedAt: e.createdAt, AudioURL: url, ExpiresAt: expiresAt}, true
}

// expire clears the URL scheduled for expiresAt unless a newer one replaced it.
func (a *Archive) expire(meetingID string, expiresAt time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[meetingID]
	if !ok || e.expiresAt.After(expiresAt) {
		return
	}
	e.audioURL = ""
	e.expiresAt = time.Time{}
}

// RecordingPrefix is the storage prefix the concatenation pipeline writes a
// meeting's audio artifact under.
func RecordingPrefix(meetingID string) string {
	return fmt.Sprintf("%s/concatenated/audio", meetingID)
}
