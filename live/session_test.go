package live_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alwitt/onair/common"
	"github.com/alwitt/onair/db"
	"github.com/alwitt/onair/live"
	"github.com/alwitt/onair/mocks"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/logger"
)

func TestBroadcastSessionTransitions(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	testInstance := fmt.Sprintf("ut-%s", uuid.NewString())
	uut, err := db.NewManager(db.GetInMemSqliteDialector(testInstance), logger.Error)
	assert.Nil(err)

	utCtxt := context.Background()

	directory, err := live.NewStreamerDirectory(uut)
	assert.Nil(err)
	controller, err := live.NewSessionController(uut, directory, nil, nil)
	assert.Nil(err)

	// Setup a station with two streamer credentials
	assert.Nil(uut.RecordStorageLocation(utCtxt, common.StorageLocation{
		ID: uuid.NewString(), Backend: common.StorageBackendLocal, Path: "/tmp",
	}))
	locations, err := uut.ListStorageLocations(utCtxt)
	assert.Nil(err)
	assert.Len(locations, 1)

	stationID := fmt.Sprintf("station-%s", uuid.NewString())
	assert.Nil(uut.RecordStation(utCtxt, common.Station{
		ID:                stationID,
		Name:              stationID,
		EnableStreamers:   true,
		StorageLocationID: locations[0].ID,
		BaseDir:           "/tmp/station",
	}))

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.MinCost)
	assert.Nil(err)
	streamerA, err := uut.DefineStreamer(
		utCtxt, stationID, "dj-a", string(passwordHash), nil, nil,
	)
	assert.Nil(err)
	streamerB, err := uut.DefineStreamer(
		utCtxt, stationID, "dj-b", string(passwordHash), nil, nil,
	)
	assert.Nil(err)

	// Case 0: connect for an unknown station is a denial, not an error
	live0, err := controller.Connect(utCtxt, uuid.NewString(), "dj-a")
	assert.Nil(err)
	assert.False(live0)

	// Case 1: connect streamer A opens a session and flips the live flags
	live1, err := controller.Connect(utCtxt, stationID, "dj-a")
	assert.Nil(err)
	assert.True(live1)
	station, err := uut.GetStation(utCtxt, stationID)
	assert.Nil(err)
	assert.True(station.IsStreamerLive)
	if assert.NotNil(station.CurrentStreamerID) {
		assert.Equal(streamerA, *station.CurrentStreamerID)
	}
	open, err := uut.ListOpenBroadcastSessions(utCtxt, stationID)
	assert.Nil(err)
	assert.Len(open, 1)
	assert.Equal(streamerA, open[0].StreamerID)
	sessionA := open[0].ID

	// Case 2: connect streamer B while A is live closes A's session and
	// leaves exactly one open session
	live2, err := controller.Connect(utCtxt, stationID, "dj-b")
	assert.Nil(err)
	assert.True(live2)
	open, err = uut.ListOpenBroadcastSessions(utCtxt, stationID)
	assert.Nil(err)
	assert.Len(open, 1)
	assert.Equal(streamerB, open[0].StreamerID)
	closedA, err := uut.GetBroadcastSession(utCtxt, sessionA)
	assert.Nil(err)
	assert.NotNil(closedA.EndedAt)
	station, err = uut.GetStation(utCtxt, stationID)
	assert.Nil(err)
	if assert.NotNil(station.CurrentStreamerID) {
		assert.Equal(streamerB, *station.CurrentStreamerID)
	}

	// Case 3: connect for an unknown username forces the station offline
	live3, err := controller.Connect(utCtxt, stationID, "dj-unknown")
	assert.Nil(err)
	assert.False(live3)
	open, err = uut.ListOpenBroadcastSessions(utCtxt, stationID)
	assert.Nil(err)
	assert.Empty(open)
	station, err = uut.GetStation(utCtxt, stationID)
	assert.Nil(err)
	assert.False(station.IsStreamerLive)
	assert.Nil(station.CurrentStreamerID)

	// Case 4: disconnect closes the open session and clears the flags
	live4, err := controller.Connect(utCtxt, stationID, "dj-a")
	assert.Nil(err)
	assert.True(live4)
	assert.Nil(controller.Disconnect(utCtxt, stationID))
	open, err = uut.ListOpenBroadcastSessions(utCtxt, stationID)
	assert.Nil(err)
	assert.Empty(open)
	station, err = uut.GetStation(utCtxt, stationID)
	assert.Nil(err)
	assert.False(station.IsStreamerLive)
	assert.Nil(station.CurrentStreamerID)

	// Case 5: disconnect with no open session is a no-op
	assert.Nil(controller.Disconnect(utCtxt, stationID))
	assert.Nil(controller.Disconnect(utCtxt, uuid.NewString()))

	// Case 6: session listing covers the closed history
	sessions, err := uut.ListBroadcastSessions(utCtxt, stationID)
	assert.Nil(err)
	assert.Len(sessions, 3)
}

func TestBroadcastSessionNotifierBestEffort(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	testInstance := fmt.Sprintf("ut-%s", uuid.NewString())
	uut, err := db.NewManager(db.GetInMemSqliteDialector(testInstance), logger.Error)
	assert.Nil(err)

	utCtxt := context.Background()

	mockNotifier := mocks.NewEventNotifier(t)

	directory, err := live.NewStreamerDirectory(uut)
	assert.Nil(err)
	controller, err := live.NewSessionController(uut, directory, mockNotifier, nil)
	assert.Nil(err)

	assert.Nil(uut.RecordStorageLocation(utCtxt, common.StorageLocation{
		ID: uuid.NewString(), Backend: common.StorageBackendLocal, Path: "/tmp",
	}))
	locations, err := uut.ListStorageLocations(utCtxt)
	assert.Nil(err)
	assert.Len(locations, 1)

	stationID := fmt.Sprintf("station-%s", uuid.NewString())
	assert.Nil(uut.RecordStation(utCtxt, common.Station{
		ID:                stationID,
		Name:              stationID,
		EnableStreamers:   true,
		StorageLocationID: locations[0].ID,
		BaseDir:           "/tmp/station",
	}))

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.MinCost)
	assert.Nil(err)
	_, err = uut.DefineStreamer(utCtxt, stationID, "dj-a", string(passwordHash), nil, nil)
	assert.Nil(err)

	// Case 0: a failing notifier does not block the connect transition
	mockNotifier.On(
		"StreamerConnected",
		mock.Anything,
		mock.AnythingOfType("common.Station"),
		mock.AnythingOfType("common.Streamer"),
		mock.AnythingOfType("string"),
		mock.AnythingOfType("time.Time"),
	).Return(fmt.Errorf("dummy error")).Once()
	nowLive, err := controller.Connect(utCtxt, stationID, "dj-a")
	assert.Nil(err)
	assert.True(nowLive)
	station, err := uut.GetStation(utCtxt, stationID)
	assert.Nil(err)
	assert.True(station.IsStreamerLive)

	// Case 1: same for the disconnect transition
	mockNotifier.On(
		"StreamerDisconnected",
		mock.Anything,
		mock.AnythingOfType("common.Station"),
		mock.AnythingOfType("time.Time"),
	).Return(fmt.Errorf("dummy error")).Once()
	assert.Nil(controller.Disconnect(utCtxt, stationID))
	station, err = uut.GetStation(utCtxt, stationID)
	assert.Nil(err)
	assert.False(station.IsStreamerLive)
}
