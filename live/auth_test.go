package live_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alwitt/onair/common"
	"github.com/alwitt/onair/db"
	"github.com/alwitt/onair/live"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/logger"
)

func TestAuthenticate(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	testInstance := fmt.Sprintf("ut-%s", uuid.NewString())
	uut, err := db.NewManager(db.GetInMemSqliteDialector(testInstance), logger.Error)
	assert.Nil(err)

	utCtxt := context.Background()

	directory, err := live.NewStreamerDirectory(uut)
	assert.Nil(err)
	auth, err := live.NewAuthenticator(uut, directory)
	assert.Nil(err)

	// Setup test stations
	assert.Nil(uut.RecordStorageLocation(utCtxt, common.StorageLocation{
		ID: uuid.NewString(), Backend: common.StorageBackendLocal, Path: "/tmp",
	}))
	locations, err := uut.ListStorageLocations(utCtxt)
	assert.Nil(err)
	assert.Len(locations, 1)

	station0 := fmt.Sprintf("station-0-%s", uuid.NewString())
	assert.Nil(uut.RecordStation(utCtxt, common.Station{
		ID:                station0,
		Name:              station0,
		EnableStreamers:   true,
		StorageLocationID: locations[0].ID,
		BaseDir:           "/tmp/station-0",
	}))
	station1 := fmt.Sprintf("station-1-%s", uuid.NewString())
	assert.Nil(uut.RecordStation(utCtxt, common.Station{
		ID:                station1,
		Name:              station1,
		EnableStreamers:   false,
		StorageLocationID: locations[0].ID,
		BaseDir:           "/tmp/station-1",
	}))

	password := uuid.NewString()
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.Nil(err)

	streamer0, err := uut.DefineStreamer(
		utCtxt, station0, "dj-morning", string(passwordHash), nil, nil,
	)
	assert.Nil(err)

	// Case 0: unknown station is denied, not an error
	allowed, err := auth.Authenticate(utCtxt, uuid.NewString(), "dj-morning", password)
	assert.Nil(err)
	assert.False(allowed)

	// Case 1: station with streamers disabled is denied
	_, err = uut.DefineStreamer(
		utCtxt, station1, "dj-morning", string(passwordHash), nil, nil,
	)
	assert.Nil(err)
	allowed, err = auth.Authenticate(utCtxt, station1, "dj-morning", password)
	assert.Nil(err)
	assert.False(allowed)

	// Case 2: unknown username is denied
	allowed, err = auth.Authenticate(utCtxt, station0, "dj-evening", password)
	assert.Nil(err)
	assert.False(allowed)

	// Case 3: wrong password is denied
	allowed, err = auth.Authenticate(utCtxt, station0, "dj-morning", uuid.NewString())
	assert.Nil(err)
	assert.False(allowed)

	// Case 4: correct credential with no schedule windows is allowed
	allowed, err = auth.Authenticate(utCtxt, station0, "dj-morning", password)
	assert.Nil(err)
	assert.True(allowed)

	// Case 5: inactive credential is denied even with the correct password
	assert.Nil(uut.DeactivateStreamer(utCtxt, streamer0, nil))
	allowed, err = auth.Authenticate(utCtxt, station0, "dj-morning", password)
	assert.Nil(err)
	assert.False(allowed)

	// Case 6: credential whose schedule windows never cover the current
	// moment is denied
	offDay := (int(time.Now().UTC().Weekday()) + 3) % 7
	_, err = uut.DefineStreamer(
		utCtxt, station0, "dj-weekend", string(passwordHash), nil, []common.ScheduleWindow{
			{DayOfWeek: offDay, StartMinute: 60, EndMinute: 120},
		},
	)
	assert.Nil(err)
	allowed, err = auth.Authenticate(utCtxt, station0, "dj-weekend", password)
	assert.Nil(err)
	assert.False(allowed)
}
