package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/onair/db"
	"github.com/alwitt/onair/notify"
	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// SessionController per-station broadcast session state machine.
//
// Connect and Disconnect for one station are serialized against each other;
// a connect / disconnect race can never leave two open sessions or a stale
// live flag behind.
type SessionController interface {
	/*
		Connect handle an ingest process connect callback for a streamer.

		Every currently open session of the station is force-ended, the streamer
		is re-resolved through the directory, and a new broadcast session is
		opened with the station live flags set. The flag updates and session row
		changes commit as one transaction.

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@param username string - streamer login name
			@returns whether the station transitioned to live
	*/
	Connect(ctxt context.Context, stationID, username string) (bool, error)

	/*
		Disconnect handle an ingest process disconnect callback for a station.

		Closes every open session and clears the station live flags. Idempotent:
		disconnecting an offline station is a no-op which still clears the flags.

			@param ctxt context.Context - execution context
			@param stationID string - station ID
	*/
	Disconnect(ctxt context.Context, stationID string) error
}

// sessionControllerImpl implements SessionController
type sessionControllerImpl struct {
	goutils.Component
	db             db.PersistenceManager
	directory      StreamerDirectory
	notifier       notify.EventNotifier
	stationLocks   map[string]*sync.Mutex
	stationLocksMx sync.Mutex
	sessionMetrics *prometheus.CounterVec
}

/*
NewSessionController define a new broadcast session controller

	@param dbClient db.PersistenceManager - persistence manager
	@param directory StreamerDirectory - streamer directory
	@param notifier notify.EventNotifier - optionally, session event notifier
	@param registry prometheus.Registerer - optionally, metrics registry
	@returns new controller
*/
func NewSessionController(
	dbClient db.PersistenceManager,
	directory StreamerDirectory,
	notifier notify.EventNotifier,
	registry prometheus.Registerer,
) (SessionController, error) {
	logTags := log.Fields{"module": "live", "component": "session-controller"}

	instance := &sessionControllerImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		db:           dbClient,
		directory:    directory,
		notifier:     notifier,
		stationLocks: map[string]*sync.Mutex{},
	}

	// Install metrics
	if registry != nil {
		instance.sessionMetrics = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onair_broadcast_session_transitions_total",
			Help: "Tracking number of broadcast session transitions",
		}, []string{"station", "transition"})
		if err := registry.Register(instance.sessionMetrics); err != nil {
			log.
				WithError(err).
				WithFields(logTags).
				Error("Unable to define session transition tracking metrics")
			return nil, err
		}
	}

	return instance, nil
}

// lockStation fetch the transition lock for one station
func (c *sessionControllerImpl) lockStation(stationID string) *sync.Mutex {
	c.stationLocksMx.Lock()
	defer c.stationLocksMx.Unlock()
	lock, ok := c.stationLocks[stationID]
	if !ok {
		lock = &sync.Mutex{}
		c.stationLocks[stationID] = lock
	}
	return lock
}

func (c *sessionControllerImpl) Connect(
	ctxt context.Context, stationID, username string,
) (bool, error) {
	logTags := c.GetLogTagsForContext(ctxt)

	lock := c.lockStation(stationID)
	lock.Lock()
	defer lock.Unlock()

	currentTime := time.Now().UTC()

	station, err := c.db.GetStation(ctxt, stationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.
				WithFields(logTags).
				WithField("station-id", stationID).
				Debug("Connect denied for unknown station")
			return false, nil
		}
		return false, err
	}

	// Re-resolve the streamer. Connect may arrive without a preceding
	// authenticate call, so the earlier result cannot be reused.
	streamer, err := c.directory.FindActiveStreamer(ctxt, stationID, username)
	if err != nil {
		if !errors.Is(err, ErrStreamerNotFound) {
			return false, err
		}
		// Resolution failed; the station returns to offline. Any stale open
		// sessions are closed on the way.
		if _, err := c.db.EndBroadcastSessions(ctxt, stationID, currentTime); err != nil {
			return false, err
		}
		log.
			WithFields(logTags).
			WithField("station-id", stationID).
			WithField("username", username).
			Info("Connect denied; station returned to offline")
		return false, nil
	}

	// Force end all open sessions, flip the live flags, and open the new
	// session as one transaction
	sessionID, err := c.db.StartBroadcastSession(ctxt, stationID, streamer.ID, currentTime)
	if err != nil {
		log.
			WithError(err).
			WithFields(logTags).
			WithField("station-id", stationID).
			WithField("streamer-id", streamer.ID).
			Error("Broadcast session transition failed")
		return false, err
	}

	log.
		WithFields(logTags).
		WithField("station-id", stationID).
		WithField("streamer-id", streamer.ID).
		WithField("session-id", sessionID).
		Info("Streamer connected")

	if c.sessionMetrics != nil {
		c.sessionMetrics.WithLabelValues(stationID, "connect").Inc()
	}

	// Event dispatch is best-effort; a webhook failure never unwinds the
	// committed transition
	if c.notifier != nil {
		if err := c.notifier.StreamerConnected(
			ctxt, station, streamer, sessionID, currentTime,
		); err != nil {
			log.
				WithError(err).
				WithFields(logTags).
				WithField("station-id", stationID).
				Warn("Failed to dispatch streamer connected event")
		}
	}

	return true, nil
}

func (c *sessionControllerImpl) Disconnect(ctxt context.Context, stationID string) error {
	logTags := c.GetLogTagsForContext(ctxt)

	lock := c.lockStation(stationID)
	lock.Lock()
	defer lock.Unlock()

	currentTime := time.Now().UTC()

	station, err := c.db.GetStation(ctxt, stationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.
				WithFields(logTags).
				WithField("station-id", stationID).
				Debug("Disconnect for unknown station ignored")
			return nil
		}
		return err
	}

	closed, err := c.db.EndBroadcastSessions(ctxt, stationID, currentTime)
	if err != nil {
		log.
			WithError(err).
			WithFields(logTags).
			WithField("station-id", stationID).
			Error("Broadcast session close failed")
		return err
	}

	log.
		WithFields(logTags).
		WithField("station-id", stationID).
		WithField("sessions-closed", closed).
		Info("Streamer disconnected")

	if c.sessionMetrics != nil {
		c.sessionMetrics.WithLabelValues(stationID, "disconnect").Inc()
	}

	if c.notifier != nil {
		if err := c.notifier.StreamerDisconnected(ctxt, station, currentTime); err != nil {
			log.
				WithError(err).
				WithFields(logTags).
				WithField("station-id", stationID).
				Warn("Failed to dispatch streamer disconnected event")
		}
	}

	return nil
}
