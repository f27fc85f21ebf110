// Package notify dispatches best-effort session event notifications to an
// operator supplied webhook.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/onair/common"
	"github.com/apex/log"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Session event types carried in the webhook payload
const (
	EventStreamerConnected    = "streamer_connected"
	EventStreamerDisconnected = "streamer_disconnected"
)

// SessionEvent webhook payload describing one session transition
type SessionEvent struct {
	// Event event type
	Event string `json:"event" validate:"required,oneof=streamer_connected streamer_disconnected"`
	// StationID station the transition occurred on
	StationID string `json:"station" validate:"required"`
	// StreamerUsername username of the streamer involved, when known
	StreamerUsername *string `json:"streamer,omitempty"`
	// SessionID broadcast session involved, when known
	SessionID *string `json:"session,omitempty"`
	// Timestamp when the transition occurred
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

// EventNotifier session event notification client
type EventNotifier interface {
	/*
		StreamerConnected report that a streamer went live on a station

			@param ctxt context.Context - execution context
			@param station common.Station - the station
			@param streamer common.Streamer - the streamer now broadcasting
			@param sessionID string - the new broadcast session ID
			@param timestamp time.Time - when the session started
	*/
	StreamerConnected(
		ctxt context.Context,
		station common.Station,
		streamer common.Streamer,
		sessionID string,
		timestamp time.Time,
	) error

	/*
		StreamerDisconnected report that a station went offline

			@param ctxt context.Context - execution context
			@param station common.Station - the station
			@param timestamp time.Time - when the sessions ended
	*/
	StreamerDisconnected(ctxt context.Context, station common.Station, timestamp time.Time) error
}

// webhookNotifierImpl implements EventNotifier against a HTTP webhook
type webhookNotifierImpl struct {
	goutils.Component
	targetURL       *url.URL
	requestIDHeader string
	client          *resty.Client
}

/*
NewWebhookNotifier define a new webhook session event notifier

	@param targetURL *url.URL - the URL to send session events to
	@param requestIDHeader string - request ID header name to set when dispatching
	@param httpClient *resty.Client - HTTP client to use
	@returns new notifier instance
*/
func NewWebhookNotifier(
	targetURL *url.URL, requestIDHeader string, httpClient *resty.Client,
) (EventNotifier, error) {
	logTags := log.Fields{
		"module":    "notify",
		"component": "webhook-notifier",
		"target":    targetURL.String(),
	}

	// The assumption is that the HTTP client has been prepared for operation

	return &webhookNotifierImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		targetURL:       targetURL,
		requestIDHeader: requestIDHeader,
		client:          httpClient,
	}, nil
}

func (n *webhookNotifierImpl) StreamerConnected(
	ctxt context.Context,
	station common.Station,
	streamer common.Streamer,
	sessionID string,
	timestamp time.Time,
) error {
	return n.dispatch(ctxt, SessionEvent{
		Event:            EventStreamerConnected,
		StationID:        station.ID,
		StreamerUsername: &streamer.Username,
		SessionID:        &sessionID,
		Timestamp:        timestamp,
	})
}

func (n *webhookNotifierImpl) StreamerDisconnected(
	ctxt context.Context, station common.Station, timestamp time.Time,
) error {
	return n.dispatch(ctxt, SessionEvent{
		Event:     EventStreamerDisconnected,
		StationID: station.ID,
		Timestamp: timestamp,
	})
}

func (n *webhookNotifierImpl) dispatch(ctxt context.Context, event SessionEvent) error {
	logTags := n.GetLogTagsForContext(ctxt)

	log.
		WithFields(logTags).
		WithField("event", event.Event).
		WithField("station-id", event.StationID).
		Debug("Dispatching session event")

	// Make request
	resp, err := n.client.R().
		SetContext(ctxt).
		SetHeader(n.requestIDHeader, uuid.NewString()).
		SetBody(&event).
		Post(n.targetURL.String())

	if err != nil {
		log.
			WithError(err).
			WithFields(logTags).
			WithField("event", event.Event).
			WithField("station-id", event.StationID).
			Debug("Session event dispatch failed on call")
		return err
	}

	if !resp.IsSuccess() {
		err := fmt.Errorf("status code %d", resp.StatusCode())
		log.
			WithError(err).
			WithFields(logTags).
			WithField("event", event.Event).
			WithField("station-id", event.StationID).
			Debug("Session event dispatch rejected")
		return err
	}

	log.
		WithFields(logTags).
		WithField("event", event.Event).
		WithField("station-id", event.StationID).
		Debug("Session event dispatched")

	return nil
}
