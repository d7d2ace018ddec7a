package handlers

import (
	"github.com/rs/zerolog"

	"meet-server/internal/domain/meeting"
)

// Provider wires HTTP handlers.
type Provider struct {
	Meeting *MeetingHandler
}

func NewProvider(service MeetingService, registry *meeting.Registry, archive *meeting.Archive, log zerolog.Logger) *Provider {
	return &Provider{
		Meeting: NewMeetingHandler(service, registry, archive, log),
	}
}
