package meeting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocator struct {
	mu           sync.Mutex
	key          string
	findErr      error
	url          string
	presignErr   error
	findCalls    int
	presignCalls int
}

func (l *fakeLocator) FindRecording(ctx context.Context, prefix string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.findCalls++
	return l.key, l.findErr
}

func (l *fakeLocator) PresignRecording(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.presignCalls++
	return l.url, l.presignErr
}

func (l *fakeLocator) set(key, url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.key = key
	l.url = url
}

func TestArchiveResolveNoRecordingYet(t *testing.T) {
	locator := &fakeLocator{}
	archive := NewArchive(locator, time.Hour, zerolog.Nop())
	archive.Add("m-1", time.Now())

	resolved, ok := archive.Resolve(context.Background(), "m-1")
	require.True(t, ok)
	assert.Empty(t, resolved.AudioURL)

	// still nothing on a later poll
	resolved, ok = archive.Resolve(context.Background(), "m-1")
	require.True(t, ok)
	assert.Empty(t, resolved.AudioURL)
}

func TestArchiveResolvePopulatesOnceRecordingLands(t *testing.T) {
	locator := &fakeLocator{}
	archive := NewArchive(locator, time.Hour, zerolog.Nop())
	archive.Add("m-1", time.Now())

	resolved, ok := archive.Resolve(context.Background(), "m-1")
	require.True(t, ok)
	assert.Empty(t, resolved.AudioURL)

	locator.set("m-1/concatenated/audio/part.mp4", "https://example.com/signed")

	resolved, ok = archive.Resolve(context.Background(), "m-1")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/signed", resolved.AudioURL)

	// unexpired reference is returned unchanged, no second presign
	resolved, ok = archive.Resolve(context.Background(), "m-1")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/signed", resolved.AudioURL)
	assert.Equal(t, 1, locator.presignCalls)
}

func TestArchiveExpiredReferenceNeverReturned(t *testing.T) {
	locator := &fakeLocator{}
	locator.set("m-1/concatenated/audio/part.mp4", "https://example.com/signed")

	archive := NewArchive(locator, time.Hour, zerolog.Nop())
	now := time.Now()
	archive.now = func() time.Time { return now }
	archive.Add("m-1", now)

	resolved, ok := archive.Resolve(context.Background(), "m-1")
	require.True(t, ok)
	require.Equal(t, "https://example.com/signed", resolved.AudioURL)

	// past TTL the recording has also vanished from storage: the stale URL must
	// read back as empty, not be served from cache
	now = now.Add(2 * time.Hour)
	locator.set("", "")

	resolved, ok = archive.Resolve(context.Background(), "m-1")
	require.True(t, ok)
	assert.Empty(t, resolved.AudioURL)
}

func TestArchiveExpiredReferenceIsReResolved(t *testing.T) {
	locator := &fakeLocator{}
	locator.set("m-1/concatenated/audio/part.mp4", "https://example.com/signed-1")

	archive := NewArchive(locator, time.Hour, zerolog.Nop())
	now := time.Now()
	archive.now = func() time.Time { return now }
	archive.Add("m-1", now)

	resolved, ok := archive.Resolve(context.Background(), "m-1")
	require.True(t, ok)
	require.Equal(t, "https://example.com/signed-1", resolved.AudioURL)

	now = now.Add(2 * time.Hour)
	locator.set("m-1/concatenated/audio/part.mp4", "https://example.com/signed-2")

	resolved, ok = archive.Resolve(context.Background(), "m-1")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/signed-2", resolved.AudioURL)
	assert.Equal(t, 2, locator.presignCalls)
}

func TestArchiveTimerClearsReference(t *testing.T) {
	locator := &fakeLocator{}
	locator.set("m-1/concatenated/audio/part.mp4", "https://example.com/signed")

	archive := NewArchive(locator, 20*time.Millisecond, zerolog.Nop())
	archive.Add("m-1", time.Now())

	resolved, ok := archive.Resolve(context.Background(), "m-1")
	require.True(t, ok)
	require.NotEmpty(t, resolved.AudioURL)

	assert.Eventually(t, func() bool {
		archive.mu.Lock()
		defer archive.mu.Unlock()
		return archive.entries["m-1"].audioURL == ""
	}, time.Second, 10*time.Millisecond)
}

func TestArchiveListAllKeepsArchivalOrder(t *testing.T) {
	locator := &fakeLocator{}
	archive := NewArchive(locator, time.Hour, zerolog.Nop())
	archive.Add("m-2", time.Now())
	archive.Add("m-1", time.Now())
	archive.Add("m-2", time.Now()) // re-archiving is a no-op

	all := archive.ListAll(context.Background())
	require.Len(t, all, 2)
	assert.Equal(t, "m-2", all[0].MeetingID)
	assert.Equal(t, "m-1", all[1].MeetingID)
}
