package live

import (
	"context"
	"errors"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/onair/db"
	"github.com/alwitt/onair/schedule"
	"github.com/apex/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Authenticator verifies whether a streamer may begin broadcasting right now
type Authenticator interface {
	/*
		Authenticate check a connection attempt against station policy, the
		streamer directory, the stored credential, and the streamer's schedule.

		All checks collapse into a single allow / deny signal; the caller never
		learns which check failed. An error is returned only for infrastructure
		faults.

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@param username string - streamer login name
			@param password string - streamer password
			@returns whether the connection attempt is allowed
	*/
	Authenticate(ctxt context.Context, stationID, username, password string) (bool, error)
}

// authenticatorImpl implements Authenticator
type authenticatorImpl struct {
	goutils.Component
	db        db.PersistenceManager
	directory StreamerDirectory
}

/*
NewAuthenticator define a new session authenticator

	@param dbClient db.PersistenceManager - persistence manager
	@param directory StreamerDirectory - streamer directory
	@returns new authenticator
*/
func NewAuthenticator(
	dbClient db.PersistenceManager, directory StreamerDirectory,
) (Authenticator, error) {
	logTags := log.Fields{"module": "live", "component": "session-authenticator"}
	return &authenticatorImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		db:        dbClient,
		directory: directory,
	}, nil
}

func (a *authenticatorImpl) Authenticate(
	ctxt context.Context, stationID, username, password string,
) (bool, error) {
	logTags := a.GetLogTagsForContext(ctxt)

	denied := func(reason string) (bool, error) {
		// Denials are expected operation, not faults. The reason stays in the
		// logs; the caller only sees the deny.
		log.
			WithFields(logTags).
			WithField("station-id", stationID).
			WithField("username", username).
			WithField("reason", reason).
			Debug("Streamer authentication denied")
		return false, nil
	}

	// Station level policy gate comes first, independent of credential validity
	station, err := a.db.GetStation(ctxt, stationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return denied("unknown station")
		}
		return false, err
	}
	if !station.EnableStreamers {
		return denied("streamers disabled for station")
	}

	// Resolve the credential
	streamer, err := a.directory.FindActiveStreamer(ctxt, stationID, username)
	if err != nil {
		if errors.Is(err, ErrStreamerNotFound) {
			return denied("no active credential")
		}
		return false, err
	}

	// Verify the password
	if err := bcrypt.CompareHashAndPassword(
		[]byte(streamer.PasswordHash), []byte(password),
	); err != nil {
		return denied("password mismatch")
	}

	// Verify the schedule allows streaming right now
	if !schedule.CanStreamAt(streamer.ScheduleWindows, time.Now().UTC()) {
		return denied("outside allowed schedule")
	}

	log.
		WithFields(logTags).
		WithField("station-id", stationID).
		WithField("username", username).
		Info("Streamer authenticated")
	return true, nil
}
