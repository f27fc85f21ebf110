package bin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/alwitt/onair/api"
	"github.com/alwitt/onair/common"
	"github.com/alwitt/onair/db"
	"github.com/alwitt/onair/janitor"
	"github.com/alwitt/onair/live"
	"github.com/alwitt/onair/notify"
	"github.com/alwitt/onair/utils"
	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ServiceNode one complete station authority service instance
type ServiceNode struct {
	ctxtCancel        context.CancelFunc
	historyJanitor    janitor.HistoryJanitor
	storageJanitor    janitor.StorageJanitor
	reactivateJanitor janitor.ReactivationJanitor
	IngestAPIServer   *http.Server
	MetricsServer     *http.Server
}

/*
Cleanup stop and clean up the service node

	@param ctxt context.Context - execution context
*/
func (n ServiceNode) Cleanup(ctxt context.Context) error {
	n.ctxtCancel()
	if err := n.historyJanitor.Stop(ctxt); err != nil {
		return err
	}
	if err := n.storageJanitor.Stop(ctxt); err != nil {
		return err
	}
	return n.reactivateJanitor.Stop(ctxt)
}

/*
DefineServiceNode setup new service node

	@param parentCtxt context.Context - parent execution context
	@param config common.ServiceNodeConfig - service node configuration
	@param psqlPassword string - Postgres SQL user password
	@returns new service node
*/
func DefineServiceNode(
	parentCtxt context.Context, config common.ServiceNodeConfig, psqlPassword string,
) (ServiceNode, error) {
	/*
		Steps for preparing the service node are

		* Prepare database
		* Prepare streamer directory, authenticator, and session controller
		* Prepare session event webhook notifier if configured
		* Prepare housekeeping jobs
		* Prepare ingest callback HTTP server
		* Prepare metrics HTTP server if enabled
	*/

	logTags := log.Fields{"module": "global", "component": "service-node"}

	theNode := ServiceNode{}
	var nodeCtxt context.Context
	nodeCtxt, theNode.ctxtCancel = context.WithCancel(parentCtxt)

	sqlDSN, err := buildDBDialector(config.Database, psqlPassword)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define persistence backend DSN")
		return theNode, err
	}

	// Define the persistence manager
	dbManager, err := db.NewManager(sqlDSN, logger.Error)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define persistence manager")
		return theNode, err
	}

	// Define metrics registry
	var metricsRegistry *prometheus.Registry
	if config.Metrics.Enabled {
		metricsRegistry = prometheus.NewRegistry()
		metricsRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	var registerer prometheus.Registerer
	if metricsRegistry != nil {
		registerer = metricsRegistry
	}

	// Define streamer directory and authenticator
	directory, err := live.NewStreamerDirectory(dbManager)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define streamer directory")
		return theNode, err
	}
	authenticator, err := live.NewAuthenticator(dbManager, directory)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define session authenticator")
		return theNode, err
	}

	// Define session event webhook notifier
	var notifier notify.EventNotifier
	if config.Webhook != nil {
		targetURL, err := url.Parse(config.Webhook.TargetURL)
		if err != nil {
			log.WithError(err).WithFields(logTags).Error("Invalid webhook target URL")
			return theNode, err
		}
		httpClient, err := utils.DefineHTTPClient(config.Webhook.Client)
		if err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to define webhook HTTP client")
			return theNode, err
		}
		notifier, err = notify.NewWebhookNotifier(
			targetURL, config.Webhook.RequestIDHeader, httpClient,
		)
		if err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to define webhook notifier")
			return theNode, err
		}
	}

	// Define broadcast session controller
	controller, err := live.NewSessionController(dbManager, directory, notifier, registerer)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define session controller")
		return theNode, err
	}

	// Define housekeeping jobs
	theNode.historyJanitor, err = janitor.NewHistoryJanitor(
		nodeCtxt, dbManager, config.Housekeeping.HistoryTrimInt(), registerer,
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define history trim job")
		return theNode, err
	}
	theNode.storageJanitor, err = janitor.NewStorageJanitor(
		nodeCtxt,
		dbManager,
		func(location common.StorageLocation) (utils.Blobstore, error) {
			return utils.NewBlobstoreForLocation(location, config.S3)
		},
		config.Housekeeping.StorageGCInt(),
		registerer,
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define storage GC job")
		return theNode, err
	}
	theNode.reactivateJanitor, err = janitor.NewReactivationJanitor(
		nodeCtxt, directory, config.Housekeeping.ReactivationInt(),
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define reactivation job")
		return theNode, err
	}

	// Define ingest callback API HTTP server
	ingestAPIServer, err := api.BuildIngestAPIServer(
		config.IngestAPIServer, authenticator, controller, dbManager,
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to create ingest API HTTP server")
		return theNode, err
	}
	theNode.IngestAPIServer = ingestAPIServer

	// Define metrics HTTP server
	if config.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(
			config.Metrics.MetricsEndpoint,
			promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{
				MaxRequestsInFlight: config.Metrics.MaxRequests,
				EnableOpenMetrics:   true,
			}),
		)
		theNode.MetricsServer = &http.Server{
			Addr: fmt.Sprintf(
				"%s:%d", config.Metrics.Server.ListenOn, config.Metrics.Server.Port,
			),
			WriteTimeout: time.Second * time.Duration(config.Metrics.Server.Timeouts.WriteTimeout),
			ReadTimeout:  time.Second * time.Duration(config.Metrics.Server.Timeouts.ReadTimeout),
			IdleTimeout:  time.Second * time.Duration(config.Metrics.Server.Timeouts.IdleTimeout),
			Handler:      metricsMux,
		}
	}

	return theNode, nil
}

// buildDBDialector resolve the persistence backend selection. Sqlite takes
// precedence when both backends are configured.
func buildDBDialector(
	config common.DatabaseConfig, psqlPassword string,
) (gorm.Dialector, error) {
	if config.Sqlite != nil {
		return db.GetSqliteDialector(config.Sqlite.DBFile), nil
	}
	if config.Postgres != nil {
		return db.GetPostgresDialector(*config.Postgres, psqlPassword)
	}
	return nil, fmt.Errorf("no persistence backend configured")
}
