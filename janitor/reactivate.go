package janitor

import (
	"context"
	"sync"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/onair/live"
	"github.com/apex/log"
)

// ReactivationJanitor periodic re-enabling of streamer credentials whose
// scheduled reactivation timestamp has passed
type ReactivationJanitor interface {
	/*
		RunOnce execute one reactivation pass. Failures are isolated per
		credential.

			@param ctxt context.Context - execution context
	*/
	RunOnce(ctxt context.Context) error

	/*
		Stop stop the periodic pass

			@param ctxt context.Context - execution context
	*/
	Stop(ctxt context.Context) error
}

// reactivationJanitorImpl implements ReactivationJanitor
type reactivationJanitorImpl struct {
	goutils.Component
	directory        live.StreamerDirectory
	reactivateTimer  goutils.IntervalTimer
	workerCtxt       context.Context
	workerCtxtCancel context.CancelFunc
	wg               sync.WaitGroup
}

/*
NewReactivationJanitor define a new streamer reactivation job

	@param parentCtxt context.Context - parent context
	@param directory live.StreamerDirectory - streamer directory
	@param runInterval time.Duration - interval between passes
	@returns new janitor
*/
func NewReactivationJanitor(
	parentCtxt context.Context,
	directory live.StreamerDirectory,
	runInterval time.Duration,
) (ReactivationJanitor, error) {
	logTags := log.Fields{"module": "janitor", "component": "streamer-reactivation"}

	instance := &reactivationJanitorImpl{
		Component: goutils.Component{LogTags: logTags},
		directory: directory,
		wg:        sync.WaitGroup{},
	}
	instance.workerCtxt, instance.workerCtxtCancel = context.WithCancel(parentCtxt)

	// Define reactivation timer
	timer, err := goutils.GetIntervalTimerInstance(instance.workerCtxt, &instance.wg, logTags)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define reactivation timer")
		return nil, err
	}
	instance.reactivateTimer = timer

	if err := timer.Start(runInterval, func() error {
		return instance.RunOnce(instance.workerCtxt)
	}, false); err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to start reactivation timer")
		return nil, err
	}

	return instance, nil
}

func (j *reactivationJanitorImpl) RunOnce(ctxt context.Context) error {
	logTags := j.GetLogTagsForContext(ctxt)
	currentTime := time.Now().UTC()

	due, err := j.directory.ListReactivationDue(ctxt, currentTime)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to list reactivation due streamers")
		return err
	}

	for _, streamer := range due {
		if err := j.directory.Reactivate(ctxt, streamer.ID); err != nil {
			log.
				WithError(err).
				WithFields(logTags).
				WithField("streamer-id", streamer.ID).
				Error("Streamer reactivation failed")
			continue
		}
		log.
			WithFields(logTags).
			WithField("streamer-id", streamer.ID).
			WithField("username", streamer.Username).
			Info("Reactivated streamer credential")
	}

	return nil
}

func (j *reactivationJanitorImpl) Stop(ctxt context.Context) error {
	j.workerCtxtCancel()
	if err := j.reactivateTimer.Stop(); err != nil {
		return err
	}
	return goutils.TimeBoundedWaitGroupWait(ctxt, &j.wg, time.Second*5)
}
