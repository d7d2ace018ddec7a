package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meet-server/internal/utils/apperrors"
)

type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	meetingSeq  int
	attendeeSeq int

	createMeetingErr  error
	capturePipeErr    error
	concatPipeErr     error
	createAttendeeErr error
	getMeetingErr     error
	deleteAttendeeErr error

	listAttendeesResult []string
}

func (g *fakeGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) callCount(prefix string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == prefix {
			n++
		}
	}
	return n
}

func (g *fakeGateway) CreateMeeting(ctx context.Context) (*CreatedMeeting, error) {
	g.record("create_meeting")
	if g.createMeetingErr != nil {
		return nil, g.createMeetingErr
	}
	g.mu.Lock()
	g.meetingSeq++
	id := fmt.Sprintf("meeting-%d", g.meetingSeq)
	g.mu.Unlock()
	return &CreatedMeeting{
		ID:         id,
		ARN:        "arn:test:" + id,
		Descriptor: json.RawMessage(`{"MeetingId":"` + id + `"}`),
	}, nil
}

func (g *fakeGateway) CreateAttendee(ctx context.Context, meetingID string) (*CreatedAttendee, error) {
	g.record("create_attendee")
	if g.createAttendeeErr != nil {
		return nil, g.createAttendeeErr
	}
	g.mu.Lock()
	g.attendeeSeq++
	id := fmt.Sprintf("attendee-%d", g.attendeeSeq)
	g.mu.Unlock()
	return &CreatedAttendee{ID: id, Credential: json.RawMessage(`{"AttendeeId":"` + id + `"}`)}, nil
}

func (g *fakeGateway) GetMeeting(ctx context.Context, meetingID string) (json.RawMessage, error) {
	g.record("get_meeting")
	if g.getMeetingErr != nil {
		return nil, g.getMeetingErr
	}
	return json.RawMessage(`{"MeetingId":"` + meetingID + `"}`), nil
}

func (g *fakeGateway) ListAttendees(ctx context.Context, meetingID string) ([]string, error) {
	g.record("list_attendees")
	return g.listAttendeesResult, nil
}

func (g *fakeGateway) DeleteAttendee(ctx context.Context, meetingID, attendeeID string) error {
	g.record("delete_attendee")
	return g.deleteAttendeeErr
}

func (g *fakeGateway) DeleteMeeting(ctx context.Context, meetingID string) error {
	g.record("delete_meeting")
	return nil
}

func (g *fakeGateway) CreateCapturePipeline(ctx context.Context, meetingARN string) (string, string, error) {
	g.record("create_capture_pipeline")
	if g.capturePipeErr != nil {
		return "", "", g.capturePipeErr
	}
	return "pipeline-1", "arn:test:pipeline-1", nil
}

func (g *fakeGateway) CreateConcatenationPipeline(ctx context.Context, pipelineARN, meetingID string) error {
	g.record("create_concatenation_pipeline")
	return g.concatPipeErr
}

func (g *fakeGateway) DeleteCapturePipeline(ctx context.Context, pipelineID string) error {
	g.record("delete_capture_pipeline")
	return nil
}

func newTestService(gateway *fakeGateway) (*Service, *Registry, *Archive) {
	registry := NewRegistry()
	archive := NewArchive(&fakeLocator{}, time.Hour, zerolog.Nop())
	return NewService(gateway, registry, archive, zerolog.Nop()), registry, archive
}

func TestServiceCreateRegistersMeeting(t *testing.T) {
	gateway := &fakeGateway{}
	service, registry, _ := newTestService(gateway)

	created, err := service.Create(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.Descriptor)
	assert.True(t, registry.Has(created.ID))
	assert.Equal(t, 1, gateway.callCount("create_capture_pipeline"))
	assert.Equal(t, 1, gateway.callCount("create_concatenation_pipeline"))
}

func TestServiceCreateMeetingFailure(t *testing.T) {
	gateway := &fakeGateway{createMeetingErr: errors.New("throttled")}
	service, registry, _ := newTestService(gateway)

	_, err := service.Create(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	assert.Empty(t, registry.List())
}

func TestServiceCreatePipelineFailureStillRegisters(t *testing.T) {
	gateway := &fakeGateway{capturePipeErr: errors.New("pipeline quota")}
	service, registry, archive := newTestService(gateway)

	created, err := service.Create(context.Background())
	require.NoError(t, err)
	assert.True(t, registry.Has(created.ID))
	assert.Equal(t, 0, gateway.callCount("create_concatenation_pipeline"))

	// a pipeline-less meeting skips the pipeline delete on teardown
	require.NoError(t, service.Teardown(context.Background(), created.ID))
	assert.Equal(t, 0, gateway.callCount("delete_capture_pipeline"))
	assert.Equal(t, 1, gateway.callCount("delete_meeting"))
	assert.True(t, archive.Contains(created.ID))
}

func TestServiceJoinUnknownMeeting(t *testing.T) {
	gateway := &fakeGateway{}
	service, registry, _ := newTestService(gateway)

	for i := 0; i < 2; i++ {
		_, err := service.Join(context.Background(), "ghost", &recordingSink{})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	}
	// the credential was issued before the local check and is simply leaked
	assert.Equal(t, 2, gateway.callCount("create_attendee"))
	assert.Empty(t, registry.List())
}

func TestServiceJoinCrossCheckFailureEvicts(t *testing.T) {
	gateway := &fakeGateway{}
	service, registry, archive := newTestService(gateway)

	created, err := service.Create(context.Background())
	require.NoError(t, err)

	gateway.getMeetingErr = errors.New("platform lost the meeting")
	_, err = service.Join(context.Background(), created.ID, &recordingSink{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnreachable))
	assert.False(t, registry.Has(created.ID))
	assert.False(t, archive.Contains(created.ID))
}

func TestServiceLeave(t *testing.T) {
	gateway := &fakeGateway{}
	service, _, _ := newTestService(gateway)

	created, err := service.Create(context.Background())
	require.NoError(t, err)
	join, err := service.Join(context.Background(), created.ID, &recordingSink{})
	require.NoError(t, err)

	count, err := service.Leave(context.Background(), created.ID, join.Attendee.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 1, gateway.callCount("delete_attendee"))

	_, err = service.Leave(context.Background(), "ghost", "nobody")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestServiceTeardownIdempotentUnderConcurrency(t *testing.T) {
	gateway := &fakeGateway{}
	service, registry, archive := newTestService(gateway)

	created, err := service.Create(context.Background())
	require.NoError(t, err)

	const triggers = 16
	var wg sync.WaitGroup
	for i := 0; i < triggers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = service.Teardown(context.Background(), created.ID)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, gateway.callCount("delete_meeting"))
	assert.Equal(t, 1, gateway.callCount("delete_capture_pipeline"))
	assert.Equal(t, 1, gateway.callCount("list_attendees"))
	assert.False(t, registry.Has(created.ID))
	assert.True(t, archive.Contains(created.ID))
	assert.Equal(t, 1, archive.Len())
}

func TestServiceTeardownRevokesRemainingAttendees(t *testing.T) {
	gateway := &fakeGateway{listAttendeesResult: []string{"a-1", "a-2"}}
	service, _, _ := newTestService(gateway)

	created, err := service.Create(context.Background())
	require.NoError(t, err)

	require.NoError(t, service.Teardown(context.Background(), created.ID))
	assert.Equal(t, 2, gateway.callCount("delete_attendee"))
}

func TestServiceTeardownUnknownMeeting(t *testing.T) {
	gateway := &fakeGateway{}
	service, _, _ := newTestService(gateway)

	err := service.Teardown(context.Background(), "ghost")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.Equal(t, 0, gateway.callCount("delete_meeting"))
}

func TestServiceFullLifecycleScenario(t *testing.T) {
	gateway := &fakeGateway{}
	service, registry, archive := newTestService(gateway)
	ctx := context.Background()

	created, err := service.Create(ctx)
	require.NoError(t, err)

	joinA, err := service.Join(ctx, created.ID, &recordingSink{})
	require.NoError(t, err)
	joinB, err := service.Join(ctx, created.ID, &recordingSink{})
	require.NoError(t, err)

	count, _, ok := registry.Membership(created.ID)
	require.True(t, ok)
	assert.Equal(t, 2, count)

	count, err = service.Leave(ctx, created.ID, joinA.Attendee.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = service.Leave(ctx, created.ID, joinB.Attendee.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, service.Teardown(ctx, created.ID))
	// second trigger observes the archived meeting and no-ops
	require.NoError(t, service.Teardown(ctx, created.ID))

	assert.False(t, registry.Has(created.ID))
	resolved, ok := archive.Resolve(ctx, created.ID)
	require.True(t, ok)
	assert.Empty(t, resolved.AudioURL)
	assert.Equal(t, 1, gateway.callCount("delete_meeting"))
}
