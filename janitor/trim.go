package janitor

import (
	"context"
	"sync"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/onair/db"
	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
)

// QueueRetention how long processed queue entries are kept before the trim
// job removes them. A fixed safety bound independent of the user-facing
// history retention setting.
const QueueRetention = time.Hour * 48

// HistoryJanitor periodic trim of bounded-retention collections
type HistoryJanitor interface {
	/*
		RunOnce execute one trim pass.

		The queue trim always runs. The history and listener purges only run
		when the history retention setting is nonzero. A failed sub-step is
		logged and does not block the remaining sub-steps.

			@param ctxt context.Context - execution context
	*/
	RunOnce(ctxt context.Context) error

	/*
		Stop stop the periodic trim

			@param ctxt context.Context - execution context
	*/
	Stop(ctxt context.Context) error
}

// historyJanitorImpl implements HistoryJanitor
type historyJanitorImpl struct {
	goutils.Component
	db               db.PersistenceManager
	trimTimer        goutils.IntervalTimer
	workerCtxt       context.Context
	workerCtxtCancel context.CancelFunc
	wg               sync.WaitGroup
	purgeMetrics     *prometheus.CounterVec
}

/*
NewHistoryJanitor define a new history and queue trim job

	@param parentCtxt context.Context - parent context
	@param dbClient db.PersistenceManager - persistence manager
	@param runInterval time.Duration - interval between trim passes
	@param registry prometheus.Registerer - optionally, metrics registry
	@returns new janitor
*/
func NewHistoryJanitor(
	parentCtxt context.Context,
	dbClient db.PersistenceManager,
	runInterval time.Duration,
	registry prometheus.Registerer,
) (HistoryJanitor, error) {
	logTags := log.Fields{"module": "janitor", "component": "history-trim"}

	instance := &historyJanitorImpl{
		Component: goutils.Component{LogTags: logTags},
		db:        dbClient,
		wg:        sync.WaitGroup{},
	}
	instance.workerCtxt, instance.workerCtxtCancel = context.WithCancel(parentCtxt)

	if registry != nil {
		instance.purgeMetrics = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onair_history_trim_purged_rows_total",
			Help: "Tracking number of rows removed by the history trim job",
		}, []string{"collection"})
		if err := registry.Register(instance.purgeMetrics); err != nil {
			log.WithError(err).WithFields(logTags).Error("Unable to define trim tracking metrics")
			return nil, err
		}
	}

	// Define trim timer
	timer, err := goutils.GetIntervalTimerInstance(instance.workerCtxt, &instance.wg, logTags)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define trim timer")
		return nil, err
	}
	instance.trimTimer = timer

	if err := timer.Start(runInterval, func() error {
		return instance.RunOnce(instance.workerCtxt)
	}, false); err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to start trim timer")
		return nil, err
	}

	return instance, nil
}

func (j *historyJanitorImpl) RunOnce(ctxt context.Context) error {
	logTags := j.GetLogTagsForContext(ctxt)
	currentTime := time.Now().UTC()

	// The queue trim is a safety bound which runs regardless of the user
	// facing retention setting
	queueCutoff := currentTime.Add(-QueueRetention)
	if purged, err := j.db.PurgeQueueEntriesBefore(ctxt, queueCutoff); err != nil {
		log.
			WithError(err).
			WithFields(logTags).
			WithField("cutoff", queueCutoff).
			Error("Queue trim failed")
	} else {
		log.
			WithFields(logTags).
			WithField("cutoff", queueCutoff).
			WithField("purged", purged).
			Debug("Trimmed queue entries")
		j.recordPurge("queue", purged)
	}

	settings, err := j.db.GetSettings(ctxt)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to read retention settings")
		return err
	}
	if settings.HistoryKeepDays == 0 {
		// Zero retention means keep forever
		return nil
	}

	historyCutoff := currentTime.AddDate(0, 0, -settings.HistoryKeepDays)
	if purged, err := j.db.PurgeSongHistoryBefore(ctxt, historyCutoff); err != nil {
		log.
			WithError(err).
			WithFields(logTags).
			WithField("cutoff", historyCutoff).
			Error("Song history trim failed")
	} else {
		log.
			WithFields(logTags).
			WithField("cutoff", historyCutoff).
			WithField("purged", purged).
			Debug("Trimmed song history")
		j.recordPurge("song_history", purged)
	}

	if purged, err := j.db.PurgeListenerRecordsBefore(ctxt, historyCutoff); err != nil {
		log.
			WithError(err).
			WithFields(logTags).
			WithField("cutoff", historyCutoff).
			Error("Listener record trim failed")
	} else {
		log.
			WithFields(logTags).
			WithField("cutoff", historyCutoff).
			WithField("purged", purged).
			Debug("Trimmed listener records")
		j.recordPurge("listeners", purged)
	}

	return nil
}

func (j *historyJanitorImpl) recordPurge(collection string, count int64) {
	if j.purgeMetrics != nil {
		j.purgeMetrics.WithLabelValues(collection).Add(float64(count))
	}
}

func (j *historyJanitorImpl) Stop(ctxt context.Context) error {
	j.workerCtxtCancel()
	if err := j.trimTimer.Stop(); err != nil {
		return err
	}
	return goutils.TimeBoundedWaitGroupWait(ctxt, &j.wg, time.Second*5)
}
