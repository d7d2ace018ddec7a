package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"meet-server/internal/utils/apperrors"
)

// Gateway is the typed client for the external conferencing platform. It holds
// no local state; every method is a single create/read/destroy call.
type Gateway interface {
	CreateMeeting(ctx context.Context) (*CreatedMeeting, error)
	CreateAttendee(ctx context.Context, meetingID string) (*CreatedAttendee, error)
	GetMeeting(ctx context.Context, meetingID string) (json.RawMessage, error)
	ListAttendees(ctx context.Context, meetingID string) ([]string, error)
	DeleteAttendee(ctx context.Context, meetingID, attendeeID string) error
	DeleteMeeting(ctx context.Context, meetingID string) error
	CreateCapturePipeline(ctx context.Context, meetingARN string) (pipelineID, pipelineARN string, err error)
	CreateConcatenationPipeline(ctx context.Context, pipelineARN, meetingID string) error
	DeleteCapturePipeline(ctx context.Context, pipelineID string) error
}

// Service drives the meeting create/join/leave/teardown state machine against
// the gateway and the local registries.
//
// All operations for one meeting id are serialized through a per-id mutex;
// operations on different meetings run in parallel. External calls are awaited
// before the corresponding registry mutation.
type Service struct {
	gateway  Gateway
	registry *Registry
	archive  *Archive
	log      zerolog.Logger

	// per-meeting operation locks, meetingID -> *sync.Mutex
	locks sync.Map
}

func NewService(gateway Gateway, registry *Registry, archive *Archive, log zerolog.Logger) *Service {
	return &Service{
		gateway:  gateway,
		registry: registry,
		archive:  archive,
		log:      log.With().Str("component", "meeting-service").Logger(),
	}
}

func (s *Service) lockFor(meetingID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(meetingID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Create provisions a meeting and its recording chain, then registers it
// locally. Pipeline setup is best-effort: a meeting whose capture or
// concatenation pipeline could not be created is still registered, with an
// empty pipeline id, and teardown skips the pipeline delete for it.
func (s *Service) Create(ctx context.Context) (*CreatedMeeting, error) {
	created, err := s.gateway.CreateMeeting(ctx)
	if err != nil {
		return nil, apperrors.New(apperrors.LayerDomain, apperrors.ErrorTypeExternal, "create meeting", err)
	}

	pipelineID := ""
	id, arn, err := s.gateway.CreateCapturePipeline(ctx, created.ARN)
	if err != nil {
		s.log.Warn().Err(err).Str("meeting_id", created.ID).
			Msg("capture pipeline creation failed, meeting will have no recording")
	} else {
		pipelineID = id
		if err := s.gateway.CreateConcatenationPipeline(ctx, arn, created.ID); err != nil {
			s.log.Warn().Err(err).Str("meeting_id", created.ID).
				Msg("concatenation pipeline creation failed, recording will not be merged")
		}
	}

	if err := s.registry.Create(created.ID, pipelineID); err != nil {
		return nil, err
	}
	s.log.Info().Str("meeting_id", created.ID).Str("pipeline_id", pipelineID).Msg("meeting created")
	return created, nil
}

// Join issues an attendee credential and registers the attendee with its
// connection sink. The credential is requested before the local existence
// check, matching the platform call order; a credential issued for a meeting
// that is not live is left unused and expires upstream.
func (s *Service) Join(ctx context.Context, meetingID string, sink MessageSink) (*JoinResult, error) {
	mu := s.lockFor(meetingID)
	mu.Lock()
	defer mu.Unlock()

	attendee, err := s.gateway.CreateAttendee(ctx, meetingID)
	if err != nil {
		return nil, apperrors.New(apperrors.LayerDomain, apperrors.ErrorTypeExternal, "create attendee", err)
	}

	if !s.registry.Has(meetingID) {
		return nil, notFound(meetingID)
	}

	descriptor, err := s.gateway.GetMeeting(ctx, meetingID)
	if err != nil {
		// The platform no longer answers for this meeting: treat it as dead and
		// evict the local entry so later joins fail fast.
		if _, rmErr := s.registry.Remove(meetingID); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("meeting_id", meetingID).Msg("evict after failed cross-check")
		}
		return nil, apperrors.New(apperrors.LayerDomain, apperrors.ErrorTypeUnreachable,
			fmt.Sprintf("meeting %s unreachable on platform", meetingID), err)
	}

	if err := s.registry.AddAttendee(meetingID, attendee.ID, sink); err != nil {
		return nil, err
	}
	s.log.Info().Str("meeting_id", meetingID).Str("attendee_id", attendee.ID).Msg("attendee joined")
	return &JoinResult{Descriptor: descriptor, Attendee: attendee}, nil
}

// Leave revokes the attendee's credential on the platform, then removes the
// attendee locally and returns the remaining count.
func (s *Service) Leave(ctx context.Context, meetingID, attendeeID string) (int, error) {
	mu := s.lockFor(meetingID)
	mu.Lock()
	defer mu.Unlock()

	if !s.registry.Has(meetingID) {
		return 0, notFound(meetingID)
	}
	if err := s.gateway.DeleteAttendee(ctx, meetingID, attendeeID); err != nil {
		return 0, apperrors.New(apperrors.LayerDomain, apperrors.ErrorTypeExternal, "delete attendee", err)
	}
	count, err := s.registry.RemoveAttendee(meetingID, attendeeID)
	if err != nil {
		return 0, err
	}
	s.log.Info().Str("meeting_id", meetingID).Str("attendee_id", attendeeID).
		Int("remaining", count).Msg("attendee left")
	return count, nil
}

// Teardown ends a meeting: the registry entry moves to the archive and the
// platform resources are deleted. The atomic registry detach makes teardown
// idempotent; a concurrent second trigger observes the missing entry and
// no-ops. External delete failures are surfaced but never undo the archive
// transition, since an orphaned platform resource beats a stuck local meeting.
func (s *Service) Teardown(ctx context.Context, meetingID string) error {
	mu := s.lockFor(meetingID)
	mu.Lock()
	defer mu.Unlock()

	detached, err := s.registry.Remove(meetingID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) && s.archive.Contains(meetingID) {
			return nil
		}
		return err
	}

	s.archive.Add(detached.ID, detached.CreatedAt)
	s.locks.Delete(meetingID)

	var failures []error

	attendeeIDs, err := s.gateway.ListAttendees(ctx, meetingID)
	if err != nil {
		s.log.Error().Err(err).Str("meeting_id", meetingID).Msg("list attendees during teardown")
		failures = append(failures, err)
	}
	for _, attendeeID := range attendeeIDs {
		if err := s.gateway.DeleteAttendee(ctx, meetingID, attendeeID); err != nil {
			s.log.Error().Err(err).Str("meeting_id", meetingID).
				Str("attendee_id", attendeeID).Msg("delete attendee during teardown")
			failures = append(failures, err)
		}
	}

	if detached.PipelineID != "" {
		if err := s.gateway.DeleteCapturePipeline(ctx, detached.PipelineID); err != nil {
			s.log.Error().Err(err).Str("meeting_id", meetingID).
				Str("pipeline_id", detached.PipelineID).Msg("delete capture pipeline during teardown")
			failures = append(failures, err)
		}
	}

	if err := s.gateway.DeleteMeeting(ctx, meetingID); err != nil {
		s.log.Error().Err(err).Str("meeting_id", meetingID).Msg("delete meeting during teardown")
		failures = append(failures, err)
	}

	if len(failures) > 0 {
		return apperrors.New(apperrors.LayerDomain, apperrors.ErrorTypeExternal,
			fmt.Sprintf("meeting %s archived with incomplete platform cleanup", meetingID),
			errors.Join(failures...))
	}
	s.log.Info().Str("meeting_id", meetingID).Msg("meeting torn down")
	return nil
}
