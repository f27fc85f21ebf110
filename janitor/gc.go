package janitor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/onair/common"
	"github.com/alwitt/onair/db"
	"github.com/alwitt/onair/utils"
	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
)

// TempFileMaxAge age past which a station temp-directory file is removed
const TempFileMaxAge = time.Hour * 48

// artifactPrefixes derived-artifact directories swept for orphans within
// each storage location
var artifactPrefixes = []string{"album_art", "waveform"}

// BlobstoreBuilder resolve a storage location record into a blobstore client
type BlobstoreBuilder func(location common.StorageLocation) (utils.Blobstore, error)

// StorageJanitor periodic garbage collection of station temp files and
// orphaned derived artifacts
type StorageJanitor interface {
	/*
		RunOnce execute one garbage collection sweep.

		Failures are isolated per station and per storage location; one broken
		backend never aborts the rest of the sweep.

			@param ctxt context.Context - execution context
	*/
	RunOnce(ctxt context.Context) error

	/*
		Stop stop the periodic sweep

			@param ctxt context.Context - execution context
	*/
	Stop(ctxt context.Context) error
}

// storageJanitorImpl implements StorageJanitor
type storageJanitorImpl struct {
	goutils.Component
	db               db.PersistenceManager
	blobstoreFor     BlobstoreBuilder
	gcTimer          goutils.IntervalTimer
	workerCtxt       context.Context
	workerCtxtCancel context.CancelFunc
	wg               sync.WaitGroup
	deleteMetrics    *prometheus.CounterVec
}

/*
NewStorageJanitor define a new storage garbage collection job

	@param parentCtxt context.Context - parent context
	@param dbClient db.PersistenceManager - persistence manager
	@param blobstoreFor BlobstoreBuilder - blobstore client builder
	@param runInterval time.Duration - interval between sweeps
	@param registry prometheus.Registerer - optionally, metrics registry
	@returns new janitor
*/
func NewStorageJanitor(
	parentCtxt context.Context,
	dbClient db.PersistenceManager,
	blobstoreFor BlobstoreBuilder,
	runInterval time.Duration,
	registry prometheus.Registerer,
) (StorageJanitor, error) {
	logTags := log.Fields{"module": "janitor", "component": "storage-gc"}

	instance := &storageJanitorImpl{
		Component:    goutils.Component{LogTags: logTags},
		db:           dbClient,
		blobstoreFor: blobstoreFor,
		wg:           sync.WaitGroup{},
	}
	instance.workerCtxt, instance.workerCtxtCancel = context.WithCancel(parentCtxt)

	if registry != nil {
		instance.deleteMetrics = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onair_storage_gc_deleted_artifacts_total",
			Help: "Tracking number of artifacts removed by the storage GC job",
		}, []string{"location", "prefix"})
		if err := registry.Register(instance.deleteMetrics); err != nil {
			log.WithError(err).WithFields(logTags).Error("Unable to define GC tracking metrics")
			return nil, err
		}
	}

	// Define GC timer
	timer, err := goutils.GetIntervalTimerInstance(instance.workerCtxt, &instance.wg, logTags)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define GC timer")
		return nil, err
	}
	instance.gcTimer = timer

	if err := timer.Start(runInterval, func() error {
		return instance.RunOnce(instance.workerCtxt)
	}, false); err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to start GC timer")
		return nil, err
	}

	return instance, nil
}

func (j *storageJanitorImpl) RunOnce(ctxt context.Context) error {
	logTags := j.GetLogTagsForContext(ctxt)

	stations, err := j.db.ListStations(ctxt)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to list stations")
		return err
	}
	for _, station := range stations {
		j.cleanStationTempFiles(ctxt, station)
	}

	locations, err := j.db.ListStorageLocations(ctxt)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to list storage locations")
		return err
	}
	for _, location := range locations {
		// Per-location isolation. One broken backend must not block the others.
		if err := j.sweepStorageLocation(ctxt, location); err != nil {
			log.
				WithError(err).
				WithFields(logTags).
				WithField("location-id", location.ID).
				Error("Storage location sweep failed")
		}
	}

	return nil
}

// cleanStationTempFiles best-effort removal of old transient working files.
// A file missing or unlinkable at deletion time is ignored.
func (j *storageJanitorImpl) cleanStationTempFiles(
	ctxt context.Context, station common.Station,
) {
	logTags := j.GetLogTagsForContext(ctxt)

	tempDir := filepath.Join(station.BaseDir, common.TempDirName)
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.
				WithError(err).
				WithFields(logTags).
				WithField("station-id", station.ID).
				WithField("temp-dir", tempDir).
				Warn("Unable to read station temp directory")
		}
		return
	}

	cutoff := time.Now().UTC().Add(-TempFileMaxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(tempDir, entry.Name())); err == nil {
			removed++
		}
	}

	if removed > 0 {
		log.
			WithFields(logTags).
			WithField("station-id", station.ID).
			WithField("removed", removed).
			Info("Removed old station temp files")
	}
}

func (j *storageJanitorImpl) sweepStorageLocation(
	ctxt context.Context, location common.StorageLocation,
) error {
	logTags := j.GetLogTagsForContext(ctxt)

	validIDs, err := j.db.ListMediaUniqueIDs(ctxt, location.ID)
	if err != nil {
		return err
	}
	if len(validIDs) == 0 {
		// An empty valid set is more likely a failed or empty metadata read
		// than a location with every media record gone. Sweeping against it
		// would wipe the backend.
		log.
			WithFields(logTags).
			WithField("location-id", location.ID).
			Warn("No valid media IDs for storage location. Skipping sweep")
		return nil
	}
	validSet := map[string]bool{}
	for _, id := range validIDs {
		validSet[id] = true
	}

	store, err := j.blobstoreFor(location)
	if err != nil {
		return err
	}

	for _, prefix := range artifactPrefixes {
		artifacts, err := store.List(ctxt, prefix, true)
		if err != nil {
			return err
		}
		deleted := int64(0)
		for _, artifactPath := range artifacts {
			// Artifacts are keyed by the owning media unique ID in the filename
			baseName := filepath.Base(artifactPath)
			uniqueID := strings.TrimSuffix(baseName, filepath.Ext(baseName))
			if validSet[uniqueID] {
				continue
			}
			if err := store.Delete(ctxt, artifactPath); err != nil {
				return err
			}
			deleted++
		}
		log.
			WithFields(logTags).
			WithField("location-id", location.ID).
			WithField("prefix", prefix).
			WithField("deleted", deleted).
			Info("Swept orphaned artifacts")
		if j.deleteMetrics != nil {
			j.deleteMetrics.WithLabelValues(location.ID, prefix).Add(float64(deleted))
		}
	}

	return nil
}

func (j *storageJanitorImpl) Stop(ctxt context.Context) error {
	j.workerCtxtCancel()
	if err := j.gcTimer.Stop(); err != nil {
		return err
	}
	return goutils.TimeBoundedWaitGroupWait(ctxt, &j.wg, time.Second*5)
}
