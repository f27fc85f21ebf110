package janitor_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alwitt/onair/common"
	"github.com/alwitt/onair/db"
	"github.com/alwitt/onair/janitor"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestHistoryJanitor(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	testInstance := fmt.Sprintf("ut-%s", uuid.NewString())
	dbClient, err := db.NewManager(db.GetInMemSqliteDialector(testInstance), logger.Error)
	assert.Nil(err)

	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	uut, err := janitor.NewHistoryJanitor(utCtxt, dbClient, time.Hour, nil)
	assert.Nil(err)
	defer func() {
		assert.Nil(uut.Stop(context.Background()))
	}()

	// Setup a station to attach records to
	assert.Nil(dbClient.RecordStorageLocation(utCtxt, common.StorageLocation{
		ID: uuid.NewString(), Backend: common.StorageBackendLocal, Path: "/tmp",
	}))
	locations, err := dbClient.ListStorageLocations(utCtxt)
	assert.Nil(err)
	stationID := fmt.Sprintf("station-%s", uuid.NewString())
	assert.Nil(dbClient.RecordStation(utCtxt, common.Station{
		ID:                stationID,
		Name:              stationID,
		EnableStreamers:   true,
		StorageLocationID: locations[0].ID,
		BaseDir:           "/tmp/station",
	}))

	currentTime := time.Now().UTC()

	// Queue entries on both sides of the fixed retention window
	assert.Nil(dbClient.EnqueueMedia(
		utCtxt, stationID, "media-old", currentTime.Add(-janitor.QueueRetention-time.Hour),
	))
	assert.Nil(dbClient.EnqueueMedia(utCtxt, stationID, "media-fresh", currentTime))

	// History and listener rows at 31 and 29 days old
	assert.Nil(dbClient.RecordSongPlay(
		utCtxt, stationID, "song-31d", currentTime.AddDate(0, 0, -31),
	))
	assert.Nil(dbClient.RecordSongPlay(
		utCtxt, stationID, "song-29d", currentTime.AddDate(0, 0, -29),
	))
	assert.Nil(dbClient.RecordListener(
		utCtxt, stationID, "10.0.0.1:4001", currentTime.AddDate(0, 0, -31),
	))
	assert.Nil(dbClient.RecordListener(
		utCtxt, stationID, "10.0.0.2:4002", currentTime.AddDate(0, 0, -29),
	))

	// Case 0: retention 0 trims the queue but leaves history untouched
	settings, err := dbClient.GetSettings(utCtxt)
	assert.Nil(err)
	assert.Equal(0, settings.HistoryKeepDays)
	assert.Nil(uut.RunOnce(utCtxt))
	queued, err := dbClient.ListQueueEntries(utCtxt, stationID)
	assert.Nil(err)
	assert.Len(queued, 1)
	assert.Equal("media-fresh", queued[0].MediaUniqueID)
	history, err := dbClient.ListSongHistory(utCtxt, stationID)
	assert.Nil(err)
	assert.Len(history, 2)
	listeners, err := dbClient.ListListenerRecords(utCtxt, stationID)
	assert.Nil(err)
	assert.Len(listeners, 2)

	// Case 1: retention 30 removes only the 31 day old rows
	settings.HistoryKeepDays = 30
	assert.Nil(dbClient.UpdateSettings(utCtxt, settings))
	assert.Nil(uut.RunOnce(utCtxt))
	history, err = dbClient.ListSongHistory(utCtxt, stationID)
	assert.Nil(err)
	assert.Len(history, 1)
	assert.Equal("song-29d", history[0].Title)
	listeners, err = dbClient.ListListenerRecords(utCtxt, stationID)
	assert.Nil(err)
	assert.Len(listeners, 1)

	// Case 2: a second pass is a no-op
	assert.Nil(uut.RunOnce(utCtxt))
	history, err = dbClient.ListSongHistory(utCtxt, stationID)
	assert.Nil(err)
	assert.Len(history, 1)
}
