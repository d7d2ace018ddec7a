package chime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmediapipelines"
	pipelinetypes "github.com/aws/aws-sdk-go-v2/service/chimesdkmediapipelines/types"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meet-server/internal/config"
	"meet-server/internal/domain/meeting"
	"meet-server/internal/infrastructure/metrics"
)

// Client is the typed gateway to the Chime SDK meeting and media pipeline
// services. It implements meeting.Gateway and holds no local state.
type Client struct {
	meetings  *chimesdkmeetings.Client
	pipelines *chimesdkmediapipelines.Client
	region    string
	bucket    string
	log       zerolog.Logger
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.MediaRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Client{
		meetings:  chimesdkmeetings.NewFromConfig(awsCfg),
		pipelines: chimesdkmediapipelines.NewFromConfig(awsCfg),
		region:    cfg.MediaRegion,
		bucket:    cfg.S3Bucket,
		log:       log.With().Str("component", "chime-gateway").Logger(),
	}, nil
}

func (c *Client) CreateMeeting(ctx context.Context) (*meeting.CreatedMeeting, error) {
	out, err := c.meetings.CreateMeeting(ctx, &chimesdkmeetings.CreateMeetingInput{
		ClientRequestToken: aws.String(uuid.NewString()),
		ExternalMeetingId:  aws.String(uuid.NewString()),
		MediaRegion:        aws.String(c.region),
	})
	metrics.ObserveGatewayOp("create_meeting", err)
	if err != nil {
		return nil, err
	}

	descriptor, err := json.Marshal(out.Meeting)
	if err != nil {
		return nil, fmt.Errorf("marshal meeting descriptor: %w", err)
	}
	return &meeting.CreatedMeeting{
		ID:         aws.ToString(out.Meeting.MeetingId),
		ARN:        aws.ToString(out.Meeting.MeetingArn),
		Descriptor: descriptor,
	}, nil
}

func (c *Client) CreateAttendee(ctx context.Context, meetingID string) (*meeting.CreatedAttendee, error) {
	out, err := c.meetings.CreateAttendee(ctx, &chimesdkmeetings.CreateAttendeeInput{
		MeetingId:      aws.String(meetingID),
		ExternalUserId: aws.String(uuid.NewString()),
	})
	metrics.ObserveGatewayOp("create_attendee", err)
	if err != nil {
		return nil, err
	}

	credential, err := json.Marshal(out.Attendee)
	if err != nil {
		return nil, fmt.Errorf("marshal attendee credential: %w", err)
	}
	return &meeting.CreatedAttendee{
		ID:         aws.ToString(out.Attendee.AttendeeId),
		Credential: credential,
	}, nil
}

func (c *Client) GetMeeting(ctx context.Context, meetingID string) (json.RawMessage, error) {
	out, err := c.meetings.GetMeeting(ctx, &chimesdkmeetings.GetMeetingInput{
		MeetingId: aws.String(meetingID),
	})
	metrics.ObserveGatewayOp("get_meeting", err)
	if err != nil {
		return nil, err
	}
	return json.Marshal(out.Meeting)
}

func (c *Client) ListAttendees(ctx context.Context, meetingID string) ([]string, error) {
	var ids []string
	var nextToken *string
	for {
		out, err := c.meetings.ListAttendees(ctx, &chimesdkmeetings.ListAttendeesInput{
			MeetingId: aws.String(meetingID),
			NextToken: nextToken,
		})
		metrics.ObserveGatewayOp("list_attendees", err)
		if err != nil {
			return nil, err
		}
		for _, a := range out.Attendees {
			ids = append(ids, aws.ToString(a.AttendeeId))
		}
		if out.NextToken == nil {
			return ids, nil
		}
		nextToken = out.NextToken
	}
}

func (c *Client) DeleteAttendee(ctx context.Context, meetingID, attendeeID string) error {
	_, err := c.meetings.DeleteAttendee(ctx, &chimesdkmeetings.DeleteAttendeeInput{
		MeetingId:  aws.String(meetingID),
		AttendeeId: aws.String(attendeeID),
	})
	metrics.ObserveGatewayOp("delete_attendee", err)
	return err
}

func (c *Client) DeleteMeeting(ctx context.Context, meetingID string) error {
	_, err := c.meetings.DeleteMeeting(ctx, &chimesdkmeetings.DeleteMeetingInput{
		MeetingId: aws.String(meetingID),
	})
	metrics.ObserveGatewayOp("delete_meeting", err)
	return err
}

// CreateCapturePipeline starts an audio-only capture of the meeting into the
// recording bucket.
func (c *Client) CreateCapturePipeline(ctx context.Context, meetingARN string) (string, string, error) {
	out, err := c.pipelines.CreateMediaCapturePipeline(ctx, &chimesdkmediapipelines.CreateMediaCapturePipelineInput{
		SourceType: pipelinetypes.MediaPipelineSourceTypeChimeSdkMeeting,
		SourceArn:  aws.String(meetingARN),
		SinkType:   pipelinetypes.MediaPipelineSinkTypeS3Bucket,
		SinkArn:    aws.String(fmt.Sprintf("arn:aws:s3:::%s", c.bucket)),
		ChimeSdkMeetingConfiguration: &pipelinetypes.ChimeSdkMeetingConfiguration{
			ArtifactsConfiguration: &pipelinetypes.ArtifactsConfiguration{
				Audio: &pipelinetypes.AudioArtifactsConfiguration{
					MuxType: pipelinetypes.AudioMuxTypeAudioOnly,
				},
				Video: &pipelinetypes.VideoArtifactsConfiguration{
					State: pipelinetypes.ArtifactsStateDisabled,
				},
				Content: &pipelinetypes.ContentArtifactsConfiguration{
					State: pipelinetypes.ArtifactsStateDisabled,
				},
			},
		},
	})
	metrics.ObserveGatewayOp("create_capture_pipeline", err)
	if err != nil {
		return "", "", err
	}
	return aws.ToString(out.MediaCapturePipeline.MediaPipelineId),
		aws.ToString(out.MediaCapturePipeline.MediaPipelineArn), nil
}

// CreateConcatenationPipeline merges the capture output into a single audio
// artifact under the meeting's storage prefix.
func (c *Client) CreateConcatenationPipeline(ctx context.Context, pipelineARN, meetingID string) error {
	disabled := pipelinetypes.ArtifactsConcatenationStateDisabled
	_, err := c.pipelines.CreateMediaConcatenationPipeline(ctx, &chimesdkmediapipelines.CreateMediaConcatenationPipelineInput{
		Sources: []pipelinetypes.ConcatenationSource{
			{
				Type: pipelinetypes.ConcatenationSourceTypeMediaCapturePipeline,
				MediaCapturePipelineSourceConfiguration: &pipelinetypes.MediaCapturePipelineSourceConfiguration{
					MediaPipelineArn: aws.String(pipelineARN),
					ChimeSdkMeetingConfiguration: &pipelinetypes.ChimeSdkMeetingConcatenationConfiguration{
						ArtifactsConfiguration: &pipelinetypes.ArtifactsConcatenationConfiguration{
							Audio: &pipelinetypes.AudioConcatenationConfiguration{
								State: pipelinetypes.AudioArtifactsConcatenationStateEnabled,
							},
							CompositedVideo:       &pipelinetypes.CompositedVideoConcatenationConfiguration{State: disabled},
							Content:               &pipelinetypes.ContentConcatenationConfiguration{State: disabled},
							DataChannel:           &pipelinetypes.DataChannelConcatenationConfiguration{State: disabled},
							MeetingEvents:         &pipelinetypes.MeetingEventsConcatenationConfiguration{State: disabled},
							TranscriptionMessages: &pipelinetypes.TranscriptionMessagesConcatenationConfiguration{State: disabled},
							Video:                 &pipelinetypes.VideoConcatenationConfiguration{State: disabled},
						},
					},
				},
			},
		},
		Sinks: []pipelinetypes.ConcatenationSink{
			{
				Type: pipelinetypes.ConcatenationSinkTypeS3Bucket,
				S3BucketSinkConfiguration: &pipelinetypes.S3BucketSinkConfiguration{
					Destination: aws.String(fmt.Sprintf("arn:aws:s3:::%s/%s/concatenated/", c.bucket, meetingID)),
				},
			},
		},
	})
	metrics.ObserveGatewayOp("create_concatenation_pipeline", err)
	return err
}

func (c *Client) DeleteCapturePipeline(ctx context.Context, pipelineID string) error {
	_, err := c.pipelines.DeleteMediaCapturePipeline(ctx, &chimesdkmediapipelines.DeleteMediaCapturePipelineInput{
		MediaPipelineId: aws.String(pipelineID),
	})
	metrics.ObserveGatewayOp("delete_capture_pipeline", err)
	return err
}
