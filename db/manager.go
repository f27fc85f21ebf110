package db

import (
	"context"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/onair/common"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PersistenceManager database access layer
type PersistenceManager interface {
	/*
		Ready check whether the DB connection is working

			@param ctxt context.Context - execution context
	*/
	Ready(ctxt context.Context) error

	// =====================================================================================
	// Stations

	/*
		RecordStation create or update a station record

			@param ctxt context.Context - execution context
			@param entry common.Station - station parameters
	*/
	RecordStation(ctxt context.Context, entry common.Station) error

	/*
		GetStation retrieve a station

			@param ctxt context.Context - execution context
			@param id string - station entry ID
			@returns station entry
	*/
	GetStation(ctxt context.Context, id string) (common.Station, error)

	/*
		ListStations list all stations

			@param ctxt context.Context - execution context
			@returns all station entries
	*/
	ListStations(ctxt context.Context) ([]common.Station, error)

	// =====================================================================================
	// Streamers

	/*
		DefineStreamer create a new streamer credential for a station

			@param ctxt context.Context - execution context
			@param stationID string - owning station ID
			@param username string - streamer login name
			@param passwordHash string - bcrypt hash of the streamer password
			@param displayName *string - optionally, public streamer name
			@param windows []common.ScheduleWindow - weekly allowed broadcast windows
			@returns new streamer entry ID
	*/
	DefineStreamer(
		ctxt context.Context,
		stationID, username, passwordHash string,
		displayName *string,
		windows []common.ScheduleWindow,
	) (string, error)

	/*
		GetStreamer retrieve a streamer together with its schedule windows

			@param ctxt context.Context - execution context
			@param id string - streamer entry ID
			@returns streamer entry
	*/
	GetStreamer(ctxt context.Context, id string) (common.Streamer, error)

	/*
		FindActiveStreamer resolve the active streamer credential for a
		(station, username) pair. Inactive credentials are not matched.

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@param username string - streamer login name
			@returns matching streamer entry
	*/
	FindActiveStreamer(ctxt context.Context, stationID, username string) (common.Streamer, error)

	/*
		ListStreamersDueForReactivation fetch all inactive streamers whose scheduled
		reactivation timestamp is at or before the given time

			@param ctxt context.Context - execution context
			@param timestamp time.Time - timestamp to check against
			@returns list of streamers due for reactivation
	*/
	ListStreamersDueForReactivation(
		ctxt context.Context, timestamp time.Time,
	) ([]common.Streamer, error)

	/*
		ReactivateStreamer mark a streamer credential active again and clear its
		scheduled reactivation timestamp

			@param ctxt context.Context - execution context
			@param id string - streamer entry ID
	*/
	ReactivateStreamer(ctxt context.Context, id string) error

	/*
		DeactivateStreamer mark a streamer credential inactive

			@param ctxt context.Context - execution context
			@param id string - streamer entry ID
			@param reactivateAt *time.Time - optionally, when the credential is re-enabled
	*/
	DeactivateStreamer(ctxt context.Context, id string, reactivateAt *time.Time) error

	// =====================================================================================
	// Broadcast sessions

	/*
		StartBroadcastSession open a new broadcast session for a station.

		Within one transaction: every currently open session of the station is
		force-ended, the station live flags are set, and the new session row is
		inserted. On failure the whole transition rolls back.

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@param streamerID string - streamer holding the connection
			@param timestamp time.Time - session start time
			@returns new session entry ID
	*/
	StartBroadcastSession(
		ctxt context.Context, stationID, streamerID string, timestamp time.Time,
	) (string, error)

	/*
		EndBroadcastSessions close every open broadcast session of a station and
		clear the station live flags. A no-op (which still clears the flags) when
		no session is open.

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@param timestamp time.Time - session end time
			@returns number of sessions closed
	*/
	EndBroadcastSessions(ctxt context.Context, stationID string, timestamp time.Time) (int64, error)

	/*
		GetBroadcastSession retrieve a broadcast session

			@param ctxt context.Context - execution context
			@param id string - session entry ID
			@returns session entry
	*/
	GetBroadcastSession(ctxt context.Context, id string) (common.BroadcastSession, error)

	/*
		ListOpenBroadcastSessions fetch the open broadcast sessions of a station

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@returns list of open sessions
	*/
	ListOpenBroadcastSessions(ctxt context.Context, stationID string) ([]common.BroadcastSession, error)

	/*
		ListBroadcastSessions fetch all broadcast sessions of a station

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@returns list of sessions
	*/
	ListBroadcastSessions(ctxt context.Context, stationID string) ([]common.BroadcastSession, error)

	// =====================================================================================
	// Playback history, listeners, queue

	/*
		RecordSongPlay append one playback history entry

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@param title string - played track title
			@param playedAt time.Time - when playback started
	*/
	RecordSongPlay(ctxt context.Context, stationID, title string, playedAt time.Time) error

	/*
		RecordListener append one listener connection log entry

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@param clientAddr string - listener client address
			@param connectedAt time.Time - when the listener connected
	*/
	RecordListener(ctxt context.Context, stationID, clientAddr string, connectedAt time.Time) error

	/*
		EnqueueMedia append one upcoming playback queue entry

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@param mediaUniqueID string - unique ID of the queued media record
			@param queuedAt time.Time - when the entry was queued
	*/
	EnqueueMedia(ctxt context.Context, stationID, mediaUniqueID string, queuedAt time.Time) error

	/*
		ListSongHistory fetch all playback history entries of a station

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@returns list of history entries
	*/
	ListSongHistory(ctxt context.Context, stationID string) ([]common.SongHistory, error)

	/*
		ListListenerRecords fetch all listener log entries of a station

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@returns list of listener entries
	*/
	ListListenerRecords(ctxt context.Context, stationID string) ([]common.ListenerRecord, error)

	/*
		ListQueueEntries fetch all queue entries of a station

			@param ctxt context.Context - execution context
			@param stationID string - station ID
			@returns list of queue entries
	*/
	ListQueueEntries(ctxt context.Context, stationID string) ([]common.QueueEntry, error)

	/*
		PurgeSongHistoryBefore delete playback history entries older than a timestamp

			@param ctxt context.Context - execution context
			@param cutoff time.Time - timestamp to check against
			@returns number of entries deleted
	*/
	PurgeSongHistoryBefore(ctxt context.Context, cutoff time.Time) (int64, error)

	/*
		PurgeListenerRecordsBefore delete listener log entries older than a timestamp

			@param ctxt context.Context - execution context
			@param cutoff time.Time - timestamp to check against
			@returns number of entries deleted
	*/
	PurgeListenerRecordsBefore(ctxt context.Context, cutoff time.Time) (int64, error)

	/*
		PurgeQueueEntriesBefore delete queue entries older than a timestamp

			@param ctxt context.Context - execution context
			@param cutoff time.Time - timestamp to check against
			@returns number of entries deleted
	*/
	PurgeQueueEntriesBefore(ctxt context.Context, cutoff time.Time) (int64, error)

	// =====================================================================================
	// Storage locations and media

	/*
		RecordStorageLocation create or update a storage location record

			@param ctxt context.Context - execution context
			@param entry common.StorageLocation - storage location parameters
	*/
	RecordStorageLocation(ctxt context.Context, entry common.StorageLocation) error

	/*
		ListStorageLocations list all storage locations

			@param ctxt context.Context - execution context
			@returns all storage location entries
	*/
	ListStorageLocations(ctxt context.Context) ([]common.StorageLocation, error)

	/*
		RecordMediaFile create or update a media record

			@param ctxt context.Context - execution context
			@param entry common.MediaFile - media record parameters
	*/
	RecordMediaFile(ctxt context.Context, entry common.MediaFile) error

	/*
		DeleteMediaFile delete a media record

			@param ctxt context.Context - execution context
			@param id string - media entry ID
	*/
	DeleteMediaFile(ctxt context.Context, id string) error

	/*
		ListMediaUniqueIDs fetch the unique IDs of every media record within a
		storage location in one bulk read

			@param ctxt context.Context - execution context
			@param storageLocationID string - storage location ID
			@returns list of media unique IDs
	*/
	ListMediaUniqueIDs(ctxt context.Context, storageLocationID string) ([]string, error)

	// =====================================================================================
	// Settings

	/*
		GetSettings read the deployment settings, creating the default row if missing

			@param ctxt context.Context - execution context
			@returns current settings
	*/
	GetSettings(ctxt context.Context) (common.Settings, error)

	/*
		UpdateSettings replace the deployment settings

			@param ctxt context.Context - execution context
			@param newSetting common.Settings - new settings
	*/
	UpdateSettings(ctxt context.Context, newSetting common.Settings) error
}

// persistenceManagerImpl implements PersistenceManager
type persistenceManagerImpl struct {
	goutils.Component
	db        *gorm.DB
	validator *validator.Validate
}

/*
NewManager define a new DB access manager

	@param dbDialector gorm.Dialector - GORM SQL dialector
	@param logLevel logger.LogLevel - SQL log level
	@returns new manager
*/
func NewManager(dbDialector gorm.Dialector, logLevel logger.LogLevel) (PersistenceManager, error) {
	db, err := gorm.Open(dbDialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}

	// Prepare the databases
	for _, model := range []interface{}{
		&station{},
		&streamer{},
		&scheduleWindow{},
		&broadcastSession{},
		&storageLocation{},
		&mediaFile{},
		&songHistory{},
		&listenerRecord{},
		&queueEntry{},
		&settings{},
	} {
		if err := db.AutoMigrate(model); err != nil {
			return nil, err
		}
	}

	logTags := log.Fields{"module": "db", "component": "manager", "instance": dbDialector.Name()}
	return &persistenceManagerImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		db:        db,
		validator: validator.New(),
	}, nil
}

func (m *persistenceManagerImpl) Ready(ctxt context.Context) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		tmp := tx.Find(&[]station{}).Limit(1)
		return tmp.Error
	})
}

// =====================================================================================
// Stations

func (m *persistenceManagerImpl) RecordStation(ctxt context.Context, entry common.Station) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		logTags := m.GetLogTagsForContext(ctxt)

		newEntry := station{Station: entry}

		// Verify data
		if err := m.validator.Struct(&newEntry); err != nil {
			return err
		}

		// Insert entry
		if tmp := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&newEntry); tmp.Error != nil {
			return tmp.Error
		}

		log.
			WithFields(logTags).
			WithField("name", entry.Name).
			WithField("id", entry.ID).
			Info("Recorded station")
		return nil
	})
}

func (m *persistenceManagerImpl) GetStation(
	ctxt context.Context, id string,
) (common.Station, error) {
	var result common.Station
	return result, m.db.Transaction(func(tx *gorm.DB) error {
		var entry station
		if tmp := tx.First(&entry, "id = ?", id); tmp.Error != nil {
			return tmp.Error
		}
		result = entry.Station
		return nil
	})
}

func (m *persistenceManagerImpl) ListStations(ctxt context.Context) ([]common.Station, error) {
	var result []common.Station
	return result, m.db.Transaction(func(tx *gorm.DB) error {
		var entries []station
		if tmp := tx.Order("name").Find(&entries); tmp.Error != nil {
			return tmp.Error
		}
		for _, entry := range entries {
			result = append(result, entry.Station)
		}
		return nil
	})
}

// =====================================================================================
// Streamers

func (m *persistenceManagerImpl) DefineStreamer(
	ctxt context.Context,
	stationID, username, passwordHash string,
	displayName *string,
	windows []common.ScheduleWindow,
) (string, error) {
	newEntryID := ""
	return newEntryID, m.db.Transaction(func(tx *gorm.DB) error {
		logTags := m.GetLogTagsForContext(ctxt)

		// Prepare new entry
		newEntryID = uuid.NewString()
		newEntry := streamer{
			Streamer: common.Streamer{
				ID:           newEntryID,
				StationID:    stationID,
				Username:     username,
				PasswordHash: passwordHash,
				DisplayName:  displayName,
				IsActive:     true,
			},
		}

		// Verify data
		if err := m.validator.Struct(&newEntry); err != nil {
			return err
		}

		// Insert entry
		if tmp := tx.Create(&newEntry); tmp.Error != nil {
			return tmp.Error
		}

		// Insert the associated schedule windows
		for _, window := range windows {
			window.StreamerID = newEntryID
			newWindow := scheduleWindow{ScheduleWindow: window}
			if err := m.validator.Struct(&newWindow); err != nil {
				return err
			}
			if tmp := tx.Create(&newWindow); tmp.Error != nil {
				return tmp.Error
			}
		}

		log.
			WithFields(logTags).
			WithField("station-id", stationID).
			WithField("username", username).
			WithField("id", newEntryID).
			Info("Defined new streamer")
		return nil
	})
}

// readStreamerWindows fetch the schedule windows of a streamer within a transaction
func readStreamerWindows(tx *gorm.DB, streamerID string) ([]common.ScheduleWindow, error) {
	var entries []scheduleWindow
	if tmp := tx.
		Where("streamer = ?", streamerID).
		Order("day_of_week, start_minute").
		Find(&entries); tmp.Error != nil {
		return nil, tmp.Error
	}
	var result []common.ScheduleWindow
	for _, entry := range entries {
		result = append(result, entry.ScheduleWindow)
	}
	return result, nil
}

func (m *persistenceManagerImpl) GetStreamer(
	ctxt context.Context, id string,
) (common.Streamer, error) {
	var result common.Streamer
	return result, m.db.Transaction(func(tx *gorm.DB) error {
		var entry streamer
		if tmp := tx.First(&entry, "id = ?", id); tmp.Error != nil {
			return tmp.Error
		}
		windows, err := readStreamerWindows(tx, entry.ID)
		if err != nil {
			return err
		}
		result = entry.Streamer
		result.ScheduleWindows = windows
		return nil
	})
}

func (m *persistenceManagerImpl) FindActiveStreamer(
	ctxt context.Context, stationID, username string,
) (common.Streamer, error) {
	var result common.Streamer
	return result, m.db.Transaction(func(tx *gorm.DB) error {
		var entry streamer
		if tmp := tx.
			Where("station = ?", stationID).
			Where("username = ?", username).
			Where("is_active = ?", true).
			First(&entry); tmp.Error != nil {
			return tmp.Error
		}
		windows, err := readStreamerWindows(tx, entry.ID)
		if err != nil {
			return err
		}
		result = entry.Streamer
		result.ScheduleWindows = windows
		return nil
	})
}

func (m *persistenceManagerImpl) ListStreamersDueForReactivation(
	ctxt context.Context, timestamp time.Time,
) ([]common.Streamer, error) {
	var results []common.Streamer
	return results, m.db.Transaction(func(tx *gorm.DB) error {
		var entries []streamer
		if tmp := tx.
			Where("is_active = ?", false).
			Where("reactivate_at IS NOT NULL").
			Where("reactivate_at <= ?", timestamp).
			Find(&entries); tmp.Error != nil {
			return tmp.Error
		}
		for _, entry := range entries {
			results = append(results, entry.Streamer)
		}
		return nil
	})
}

func (m *persistenceManagerImpl) ReactivateStreamer(ctxt context.Context, id string) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		logTags := m.GetLogTagsForContext(ctxt)
		if tmp := tx.
			Model(&streamer{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"is_active":     true,
				"reactivate_at": nil,
			}); tmp.Error != nil {
			return tmp.Error
		}
		log.WithFields(logTags).WithField("id", id).Info("Reactivated streamer")
		return nil
	})
}

func (m *persistenceManagerImpl) DeactivateStreamer(
	ctxt context.Context, id string, reactivateAt *time.Time,
) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		logTags := m.GetLogTagsForContext(ctxt)
		if tmp := tx.
			Model(&streamer{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"is_active":     false,
				"reactivate_at": reactivateAt,
			}); tmp.Error != nil {
			return tmp.Error
		}
		log.WithFields(logTags).WithField("id", id).Info("Deactivated streamer")
		return nil
	})
}

// =====================================================================================
// Broadcast sessions

func (m *persistenceManagerImpl) StartBroadcastSession(
	ctxt context.Context, stationID, streamerID string, timestamp time.Time,
) (string, error) {
	var newID string
	return newID, m.db.Transaction(func(tx *gorm.DB) error {
		logTags := m.GetLogTagsForContext(ctxt)

		// Station must exist
		var stationEntry station
		if tmp := tx.First(&stationEntry, "id = ?", stationID); tmp.Error != nil {
			return tmp.Error
		}

		// Force end all currently open sessions. A crashed ingest process can
		// leave stale open rows behind, so the set is treated as plural.
		if tmp := tx.
			Model(&broadcastSession{}).
			Where("station = ?", stationID).
			Where("ended_at IS NULL").
			Update("ended_at", timestamp); tmp.Error != nil {
			return tmp.Error
		}

		newID = ulid.Make().String()
		newEntry := broadcastSession{
			BroadcastSession: common.BroadcastSession{
				ID:         newID,
				StationID:  stationID,
				StreamerID: streamerID,
				StartedAt:  timestamp,
			},
		}

		// Verify data
		if err := m.validator.Struct(&newEntry); err != nil {
			return err
		}

		// Insert entry
		if tmp := tx.Create(&newEntry); tmp.Error != nil {
			return tmp.Error
		}

		// Flip the station live flags
		if tmp := tx.
			Model(&station{}).
			Where("id = ?", stationID).
			Updates(map[string]interface{}{
				"is_streamer_live": true,
				"current_streamer": streamerID,
			}); tmp.Error != nil {
			return tmp.Error
		}

		log.
			WithFields(logTags).
			WithField("station-id", stationID).
			WithField("streamer-id", streamerID).
			WithField("session-id", newID).
			Info("Opened broadcast session")
		return nil
	})
}

func (m *persistenceManagerImpl) EndBroadcastSessions(
	ctxt context.Context, stationID string, timestamp time.Time,
) (int64, error) {
	var closed int64
	return closed, m.db.Transaction(func(tx *gorm.DB) error {
		logTags := m.GetLogTagsForContext(ctxt)

		tmp := tx.
			Model(&broadcastSession{}).
			Where("station = ?", stationID).
			Where("ended_at IS NULL").
			Update("ended_at", timestamp)
		if tmp.Error != nil {
			return tmp.Error
		}
		closed = tmp.RowsAffected

		// Clear the station live flags regardless of whether a session was open
		if tmp := tx.
			Model(&station{}).
			Where("id = ?", stationID).
			Updates(map[string]interface{}{
				"is_streamer_live": false,
				"current_streamer": nil,
			}); tmp.Error != nil {
			return tmp.Error
		}

		log.
			WithFields(logTags).
			WithField("station-id", stationID).
			WithField("sessions-closed", closed).
			Info("Closed broadcast sessions")
		return nil
	})
}

func (m *persistenceManagerImpl) GetBroadcastSession(
	ctxt context.Context, id string,
) (common.BroadcastSession, error) {
	var result common.BroadcastSession
	return result, m.db.Transaction(func(tx *gorm.DB) error {
		var entry broadcastSession
		if tmp := tx.First(&entry, "id = ?", id); tmp.Error != nil {
			return tmp.Error
		}
		result = entry.BroadcastSession
		return nil
	})
}

func (m *persistenceManagerImpl) ListOpenBroadcastSessions(
	ctxt context.Context, stationID string,
) ([]common.BroadcastSession, error) {
	var results []common.BroadcastSession
	return results, m.db.Transaction(func(tx *gorm.DB) error {
		var entries []broadcastSession
		if tmp := tx.
			Where("station = ?", stationID).
			Where("ended_at IS NULL").
			Order("started_at").
			Find(&entries); tmp.Error != nil {
			return tmp.Error
		}
		for _, entry := range entries {
			results = append(results, entry.BroadcastSession)
		}
		return nil
	})
}

func (m *persistenceManagerImpl) ListBroadcastSessions(
	ctxt context.Context, stationID string,
) ([]common.BroadcastSession, error) {
	var results []common.BroadcastSession
	return results, m.db.Transaction(func(tx *gorm.DB) error {
		var entries []broadcastSession
		if tmp := tx.
			Where("station = ?", stationID).
			Order("started_at").
			Find(&entries); tmp.Error != nil {
			return tmp.Error
		}
		for _, entry := range entries {
			results = append(results, entry.BroadcastSession)
		}
		return nil
	})
}

// =====================================================================================
// Playback history, listeners, queue

func (m *persistenceManagerImpl) RecordSongPlay(
	ctxt context.Context, stationID, title string, playedAt time.Time,
) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		newEntry := songHistory{
			SongHistory: common.SongHistory{StationID: stationID, Title: title, PlayedAt: playedAt},
		}
		if err := m.validator.Struct(&newEntry); err != nil {
			return err
		}
		if tmp := tx.Create(&newEntry); tmp.Error != nil {
			return tmp.Error
		}
		return nil
	})
}

func (m *persistenceManagerImpl) RecordListener(
	ctxt context.Context, stationID, clientAddr string, connectedAt time.Time,
) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		newEntry := listenerRecord{
			ListenerRecord: common.ListenerRecord{
				StationID: stationID, ClientAddr: clientAddr, ConnectedAt: connectedAt,
			},
		}
		if err := m.validator.Struct(&newEntry); err != nil {
			return err
		}
		if tmp := tx.Create(&newEntry); tmp.Error != nil {
			return tmp.Error
		}
		return nil
	})
}

func (m *persistenceManagerImpl) EnqueueMedia(
	ctxt context.Context, stationID, mediaUniqueID string, queuedAt time.Time,
) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		newEntry := queueEntry{
			QueueEntry: common.QueueEntry{
				StationID: stationID, MediaUniqueID: mediaUniqueID, QueuedAt: queuedAt,
			},
		}
		if err := m.validator.Struct(&newEntry); err != nil {
			return err
		}
		if tmp := tx.Create(&newEntry); tmp.Error != nil {
			return tmp.Error
		}
		return nil
	})
}

func (m *persistenceManagerImpl) ListSongHistory(
	ctxt context.Context, stationID string,
) ([]common.SongHistory, error) {
	var results []common.SongHistory
	return results, m.db.Transaction(func(tx *gorm.DB) error {
		var entries []songHistory
		if tmp := tx.
			Where("station = ?", stationID).
			Order("played_at").
			Find(&entries); tmp.Error != nil {
			return tmp.Error
		}
		for _, entry := range entries {
			results = append(results, entry.SongHistory)
		}
		return nil
	})
}

func (m *persistenceManagerImpl) ListListenerRecords(
	ctxt context.Context, stationID string,
) ([]common.ListenerRecord, error) {
	var results []common.ListenerRecord
	return results, m.db.Transaction(func(tx *gorm.DB) error {
		var entries []listenerRecord
		if tmp := tx.
			Where("station = ?", stationID).
			Order("connected_at").
			Find(&entries); tmp.Error != nil {
			return tmp.Error
		}
		for _, entry := range entries {
			results = append(results, entry.ListenerRecord)
		}
		return nil
	})
}

func (m *persistenceManagerImpl) ListQueueEntries(
	ctxt context.Context, stationID string,
) ([]common.QueueEntry, error) {
	var results []common.QueueEntry
	return results, m.db.Transaction(func(tx *gorm.DB) error {
		var entries []queueEntry
		if tmp := tx.
			Where("station = ?", stationID).
			Order("queued_at").
			Find(&entries); tmp.Error != nil {
			return tmp.Error
		}
		for _, entry := range entries {
			results = append(results, entry.QueueEntry)
		}
		return nil
	})
}

func (m *persistenceManagerImpl) PurgeSongHistoryBefore(
	ctxt context.Context, cutoff time.Time,
) (int64, error) {
	var purged int64
	return purged, m.db.Transaction(func(tx *gorm.DB) error {
		tmp := tx.Where("played_at < ?", cutoff).Delete(&songHistory{})
		if tmp.Error != nil {
			return tmp.Error
		}
		purged = tmp.RowsAffected
		return nil
	})
}

func (m *persistenceManagerImpl) PurgeListenerRecordsBefore(
	ctxt context.Context, cutoff time.Time,
) (int64, error) {
	var purged int64
	return purged, m.db.Transaction(func(tx *gorm.DB) error {
		tmp := tx.Where("connected_at < ?", cutoff).Delete(&listenerRecord{})
		if tmp.Error != nil {
			return tmp.Error
		}
		purged = tmp.RowsAffected
		return nil
	})
}

func (m *persistenceManagerImpl) PurgeQueueEntriesBefore(
	ctxt context.Context, cutoff time.Time,
) (int64, error) {
	var purged int64
	return purged, m.db.Transaction(func(tx *gorm.DB) error {
		tmp := tx.Where("queued_at < ?", cutoff).Delete(&queueEntry{})
		if tmp.Error != nil {
			return tmp.Error
		}
		purged = tmp.RowsAffected
		return nil
	})
}

// =====================================================================================
// Storage locations and media

func (m *persistenceManagerImpl) RecordStorageLocation(
	ctxt context.Context, entry common.StorageLocation,
) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		logTags := m.GetLogTagsForContext(ctxt)

		newEntry := storageLocation{StorageLocation: entry}

		// Verify data
		if err := m.validator.Struct(&newEntry); err != nil {
			return err
		}

		// Insert entry
		if tmp := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&newEntry); tmp.Error != nil {
			return tmp.Error
		}

		log.
			WithFields(logTags).
			WithField("backend", entry.Backend).
			WithField("path", entry.Path).
			WithField("id", entry.ID).
			Info("Recorded storage location")
		return nil
	})
}

func (m *persistenceManagerImpl) ListStorageLocations(
	ctxt context.Context,
) ([]common.StorageLocation, error) {
	var results []common.StorageLocation
	return results, m.db.Transaction(func(tx *gorm.DB) error {
		var entries []storageLocation
		if tmp := tx.Find(&entries); tmp.Error != nil {
			return tmp.Error
		}
		for _, entry := range entries {
			results = append(results, entry.StorageLocation)
		}
		return nil
	})
}

func (m *persistenceManagerImpl) RecordMediaFile(
	ctxt context.Context, entry common.MediaFile,
) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		newEntry := mediaFile{MediaFile: entry}

		// Verify data
		if err := m.validator.Struct(&newEntry); err != nil {
			return err
		}

		// Insert entry
		if tmp := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&newEntry); tmp.Error != nil {
			return tmp.Error
		}
		return nil
	})
}

func (m *persistenceManagerImpl) DeleteMediaFile(ctxt context.Context, id string) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		if tmp := tx.Where("id = ?", id).Delete(&mediaFile{}); tmp.Error != nil {
			return tmp.Error
		}
		return nil
	})
}

func (m *persistenceManagerImpl) ListMediaUniqueIDs(
	ctxt context.Context, storageLocationID string,
) ([]string, error) {
	var results []string
	return results, m.db.Transaction(func(tx *gorm.DB) error {
		if tmp := tx.
			Model(&mediaFile{}).
			Where("storage_location = ?", storageLocationID).
			Pluck("unique_id", &results); tmp.Error != nil {
			return tmp.Error
		}
		return nil
	})
}

// =====================================================================================
// Settings

func (m *persistenceManagerImpl) GetSettings(ctxt context.Context) (common.Settings, error) {
	var result common.Settings
	return result, m.db.Transaction(func(tx *gorm.DB) error {
		var entry settings
		if tmp := tx.First(&entry); tmp.Error != nil {
			if tmp.Error != gorm.ErrRecordNotFound {
				return tmp.Error
			}
			// Install the default settings row
			entry = settings{Settings: common.Settings{ID: 1}}
			if tmp := tx.Create(&entry); tmp.Error != nil {
				return tmp.Error
			}
		}
		result = entry.Settings
		return nil
	})
}

func (m *persistenceManagerImpl) UpdateSettings(
	ctxt context.Context, newSetting common.Settings,
) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		logTags := m.GetLogTagsForContext(ctxt)

		// Verify data
		if err := m.validator.Struct(&settings{Settings: newSetting}); err != nil {
			return err
		}

		if tmp := tx.
			Model(&settings{}).
			Where("id = ?", newSetting.ID).
			Updates(map[string]interface{}{
				"history_keep_days": newSetting.HistoryKeepDays,
			}); tmp.Error != nil {
			return tmp.Error
		}

		log.
			WithFields(logTags).
			WithField("history-keep-days", newSetting.HistoryKeepDays).
			Info("Updated settings")
		return nil
	})
}
