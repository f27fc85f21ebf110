package utils_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alwitt/onair/common"
	"github.com/alwitt/onair/utils"
	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestLocalBlobstore(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtxt := context.Background()

	baseDir := t.TempDir()
	uut, err := utils.NewLocalBlobstore(baseDir)
	assert.Nil(err)

	// Case 0: empty store, unknown prefix
	{
		entries, err := uut.List(utCtxt, "album_art", true)
		assert.Nil(err)
		assert.Empty(entries)
	}

	// Case 1: populate artifacts
	writeArtifact := func(relative string) {
		full := filepath.Join(baseDir, filepath.FromSlash(relative))
		assert.Nil(os.MkdirAll(filepath.Dir(full), 0o755))
		assert.Nil(os.WriteFile(full, []byte("content"), 0o644))
	}
	writeArtifact("album_art/aaaa.jpg")
	writeArtifact("album_art/nested/bbbb.jpg")
	writeArtifact("waveform/cccc.json")

	{
		entries, err := uut.List(utCtxt, "album_art", true)
		assert.Nil(err)
		assert.ElementsMatch(
			[]string{"album_art/aaaa.jpg", "album_art/nested/bbbb.jpg"}, entries,
		)
	}
	{
		// Non-recursive listing skips the nested entries
		entries, err := uut.List(utCtxt, "album_art", false)
		assert.Nil(err)
		assert.Equal([]string{"album_art/aaaa.jpg"}, entries)
	}

	// Case 2: existence checks
	{
		present, err := uut.Exists(utCtxt, "waveform/cccc.json")
		assert.Nil(err)
		assert.True(present)
		present, err = uut.Exists(utCtxt, "waveform/dddd.json")
		assert.Nil(err)
		assert.False(present)
	}

	// Case 3: deletion
	assert.Nil(uut.Delete(utCtxt, "album_art/aaaa.jpg"))
	{
		present, err := uut.Exists(utCtxt, "album_art/aaaa.jpg")
		assert.Nil(err)
		assert.False(present)
	}
	// Deleting a missing artifact reports an error
	assert.NotNil(uut.Delete(utCtxt, "album_art/aaaa.jpg"))
}

func TestBlobstoreFactory(t *testing.T) {
	assert := assert.New(t)

	// Local backend
	{
		store, err := utils.NewBlobstoreForLocation(common.StorageLocation{
			ID: "loc-0", Backend: common.StorageBackendLocal, Path: t.TempDir(),
		}, common.S3Config{})
		assert.Nil(err)
		assert.NotNil(store)
	}

	// S3 backend
	{
		store, err := utils.NewBlobstoreForLocation(common.StorageLocation{
			ID: "loc-1", Backend: common.StorageBackendS3, Path: "station-media",
		}, common.S3Config{ServerEndpoint: "s3.testing.dev", Creds: &common.S3Credentials{
			AccessKey: "access", SecretAccessKey: "secret",
		}})
		assert.Nil(err)
		assert.NotNil(store)
	}

	// Unknown backend
	{
		_, err := utils.NewBlobstoreForLocation(common.StorageLocation{
			ID: "loc-2", Backend: "tape", Path: "somewhere",
		}, common.S3Config{})
		assert.NotNil(err)
	}
}
