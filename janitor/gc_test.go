package janitor_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alwitt/onair/common"
	"github.com/alwitt/onair/db"
	"github.com/alwitt/onair/janitor"
	"github.com/alwitt/onair/mocks"
	"github.com/alwitt/onair/utils"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm/logger"
)

func TestStorageJanitor(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	testInstance := fmt.Sprintf("ut-%s", uuid.NewString())
	dbClient, err := db.NewManager(db.GetInMemSqliteDialector(testInstance), logger.Error)
	assert.Nil(err)

	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	uut, err := janitor.NewStorageJanitor(
		utCtxt, dbClient, func(location common.StorageLocation) (utils.Blobstore, error) {
			return utils.NewBlobstoreForLocation(location, common.S3Config{})
		}, time.Hour, nil,
	)
	assert.Nil(err)
	defer func() {
		assert.Nil(uut.Stop(context.Background()))
	}()

	// Setup a local storage location holding derived artifacts
	locationDir := t.TempDir()
	locationID := uuid.NewString()
	assert.Nil(dbClient.RecordStorageLocation(utCtxt, common.StorageLocation{
		ID: locationID, Backend: common.StorageBackendLocal, Path: locationDir,
	}))

	writeArtifact := func(parts ...string) string {
		fullPath := filepath.Join(append([]string{locationDir}, parts...)...)
		assert.Nil(os.MkdirAll(filepath.Dir(fullPath), 0o755))
		assert.Nil(os.WriteFile(fullPath, []byte(uuid.NewString()), 0o644))
		return fullPath
	}

	keptArt := writeArtifact("album_art", "media-keep.jpg")
	orphanArt := writeArtifact("album_art", "media-gone.jpg")
	keptWave := writeArtifact("waveform", "media-keep.png")
	orphanWave := writeArtifact("waveform", "sub", "media-gone.png")

	// Setup a station with old and fresh temp files
	stationDir := t.TempDir()
	tempDir := filepath.Join(stationDir, common.TempDirName)
	assert.Nil(os.MkdirAll(tempDir, 0o755))
	oldTemp := filepath.Join(tempDir, "upload-old.part")
	assert.Nil(os.WriteFile(oldTemp, []byte("stale"), 0o644))
	staleTime := time.Now().UTC().Add(-janitor.TempFileMaxAge - time.Hour)
	assert.Nil(os.Chtimes(oldTemp, staleTime, staleTime))
	freshTemp := filepath.Join(tempDir, "upload-fresh.part")
	assert.Nil(os.WriteFile(freshTemp, []byte("fresh"), 0o644))

	stationID := fmt.Sprintf("station-%s", uuid.NewString())
	assert.Nil(dbClient.RecordStation(utCtxt, common.Station{
		ID:                stationID,
		Name:              stationID,
		EnableStreamers:   true,
		StorageLocationID: locationID,
		BaseDir:           stationDir,
	}))

	fileExists := func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// Case 0: empty valid media set skips the sweep entirely
	assert.Nil(uut.RunOnce(utCtxt))
	assert.True(fileExists(orphanArt))
	assert.True(fileExists(orphanWave))
	// Temp file cleanup still ran
	assert.False(fileExists(oldTemp))
	assert.True(fileExists(freshTemp))

	// Case 1: with a valid media record, orphaned artifacts are removed
	mediaID := uuid.NewString()
	assert.Nil(dbClient.RecordMediaFile(utCtxt, common.MediaFile{
		ID:                mediaID,
		StorageLocationID: locationID,
		UniqueID:          "media-keep",
		Path:              "music/media-keep.mp3",
	}))
	assert.Nil(uut.RunOnce(utCtxt))
	assert.True(fileExists(keptArt))
	assert.True(fileExists(keptWave))
	assert.False(fileExists(orphanArt))
	assert.False(fileExists(orphanWave))

	// Case 2: a second sweep is a no-op
	assert.Nil(uut.RunOnce(utCtxt))
	assert.True(fileExists(keptArt))
	assert.True(fileExists(keptWave))
}

func TestStorageJanitorLocationFailureIsolation(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	testInstance := fmt.Sprintf("ut-%s", uuid.NewString())
	dbClient, err := db.NewManager(db.GetInMemSqliteDialector(testInstance), logger.Error)
	assert.Nil(err)

	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	// One location sits on a backend whose listing always fails
	brokenLocationID := uuid.NewString()
	brokenStore := mocks.NewBlobstore(t)
	brokenStore.On(
		"List", mock.Anything, "album_art", true,
	).Return(nil, fmt.Errorf("dummy error")).Once()

	healthyDir := t.TempDir()
	healthyLocationID := uuid.NewString()

	uut, err := janitor.NewStorageJanitor(
		utCtxt, dbClient, func(location common.StorageLocation) (utils.Blobstore, error) {
			if location.ID == brokenLocationID {
				return brokenStore, nil
			}
			return utils.NewBlobstoreForLocation(location, common.S3Config{})
		}, time.Hour, nil,
	)
	assert.Nil(err)
	defer func() {
		assert.Nil(uut.Stop(context.Background()))
	}()

	assert.Nil(dbClient.RecordStorageLocation(utCtxt, common.StorageLocation{
		ID: brokenLocationID, Backend: common.StorageBackendS3, Path: "dummy-bucket",
	}))
	assert.Nil(dbClient.RecordStorageLocation(utCtxt, common.StorageLocation{
		ID: healthyLocationID, Backend: common.StorageBackendLocal, Path: healthyDir,
	}))

	// Both locations carry a valid media record so neither sweep is skipped
	for _, locationID := range []string{brokenLocationID, healthyLocationID} {
		assert.Nil(dbClient.RecordMediaFile(utCtxt, common.MediaFile{
			ID:                uuid.NewString(),
			StorageLocationID: locationID,
			UniqueID:          fmt.Sprintf("media-%s", locationID),
			Path:              "music/track.mp3",
		}))
	}

	orphanArt := filepath.Join(healthyDir, "album_art", "media-gone.jpg")
	assert.Nil(os.MkdirAll(filepath.Dir(orphanArt), 0o755))
	assert.Nil(os.WriteFile(orphanArt, []byte(uuid.NewString()), 0o644))

	// The broken backend is logged and skipped. The healthy location is
	// still swept and the whole pass reports success.
	assert.Nil(uut.RunOnce(utCtxt))
	_, err = os.Stat(orphanArt)
	assert.True(os.IsNotExist(err))
}
