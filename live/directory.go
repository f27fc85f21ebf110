// Package live implements the streamer session authority consulted by the
// broadcast ingest process: credential resolution, authentication, and the
// per-station broadcast session state machine.
package live

import (
	"context"
	"errors"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/onair/common"
	"github.com/alwitt/onair/db"
	"github.com/apex/log"
	"gorm.io/gorm"
)

// ErrStreamerNotFound no active streamer credential matches a (station, username) pair
var ErrStreamerNotFound = errors.New("no active streamer matching the station and username")

// StreamerDirectory resolves streamer credential records for a station
type StreamerDirectory interface {
	/*
		FindActiveStreamer resolve the active streamer credential for a
		(station, username) pair. Returns ErrStreamerNotFound when no active
		credential matches.

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@param username string - streamer login name
			@returns the matching streamer entry
	*/
	FindActiveStreamer(ctxt context.Context, stationID, username string) (common.Streamer, error)

	/*
		ListReactivationDue fetch all inactive streamers whose scheduled
		reactivation timestamp is at or before the given time

			@param ctxt context.Context - execution context
			@param timestamp time.Time - timestamp to check against
			@returns list of streamers due for reactivation
	*/
	ListReactivationDue(ctxt context.Context, timestamp time.Time) ([]common.Streamer, error)

	/*
		Reactivate mark a streamer credential active again

			@param ctxt context.Context - execution context
			@param streamerID string - streamer entry ID
	*/
	Reactivate(ctxt context.Context, streamerID string) error
}

// streamerDirectoryImpl implements StreamerDirectory
type streamerDirectoryImpl struct {
	goutils.Component
	db db.PersistenceManager
}

/*
NewStreamerDirectory define a new streamer directory

	@param dbClient db.PersistenceManager - persistence manager
	@returns new directory
*/
func NewStreamerDirectory(dbClient db.PersistenceManager) (StreamerDirectory, error) {
	logTags := log.Fields{"module": "live", "component": "streamer-directory"}
	return &streamerDirectoryImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		db: dbClient,
	}, nil
}

func (d *streamerDirectoryImpl) FindActiveStreamer(
	ctxt context.Context, stationID, username string,
) (common.Streamer, error) {
	entry, err := d.db.FindActiveStreamer(ctxt, stationID, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.Streamer{}, ErrStreamerNotFound
		}
		return common.Streamer{}, err
	}
	return entry, nil
}

func (d *streamerDirectoryImpl) ListReactivationDue(
	ctxt context.Context, timestamp time.Time,
) ([]common.Streamer, error) {
	return d.db.ListStreamersDueForReactivation(ctxt, timestamp)
}

func (d *streamerDirectoryImpl) Reactivate(ctxt context.Context, streamerID string) error {
	return d.db.ReactivateStreamer(ctxt, streamerID)
}
