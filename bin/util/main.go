package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/alwitt/onair/common"
	"github.com/alwitt/onair/db"
	"github.com/apex/log"
	apexJSON "github.com/apex/log/handlers/json"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/logger"
)

// newStreamerDefinition one streamer credential to provision
type newStreamerDefinition struct {
	Username string `json:"username" validate:"required"`
	// Password plaintext credential. Stored only as a bcrypt hash.
	Password        string                  `json:"password" validate:"required"`
	DisplayName     *string                 `json:"display_name,omitempty"`
	ScheduleWindows []common.ScheduleWindow `json:"schedule_windows,omitempty"`
}

// newStationDefinition one station to provision
type newStationDefinition struct {
	Name              string                  `json:"name" validate:"required"`
	EnableStreamers   bool                    `json:"enable_streamers"`
	StorageLocationID string                  `json:"storage_location" validate:"required"`
	BaseDir           string                  `json:"base_dir" validate:"required"`
	Streamers         []newStreamerDefinition `json:"streamers,omitempty" validate:"omitempty,dive"`
}

// provisionDefinitions provisioning definition file layout
type provisionDefinitions struct {
	StorageLocations []common.StorageLocation `json:"storage_locations,omitempty" validate:"omitempty,dive"`
	Stations         []newStationDefinition   `json:"stations,omitempty" validate:"omitempty,dive"`
}

type provisionArgs struct {
	DefinitionFile string `validate:"required,file"`
	DBPassword     string
}

type cliArgs struct {
	JSONLog  bool
	LogLevel string `validate:"required,oneof=debug info warn error"`
}

var cmdArgs cliArgs

var logTags log.Fields

var provArgs provisionArgs

// dbConfigArgs persistence backend selection for the utility
type dbConfigArgs struct {
	SqliteFile   string
	PostgresHost string
	PostgresPort int
	PostgresDB   string
	PostgresUser string
}

var dbArgs dbConfigArgs

func main() {
	hostname, err := os.Hostname()
	if err != nil {
		log.WithError(err).Fatal("Unable to read hostname")
	}
	logTags = log.Fields{
		"module":    "main",
		"component": "main",
		"instance":  hostname,
	}

	app := &cli.App{
		Version:     "v0.1.0",
		Usage:       "application entrypoint",
		Description: "Onair OPS support utility application",
		Flags: []cli.Flag{
			// LOGGING
			&cli.BoolFlag{
				Name:        "json-log",
				Usage:       "Whether to log in JSON format",
				Aliases:     []string{"j"},
				EnvVars:     []string{"LOG_AS_JSON"},
				Value:       false,
				DefaultText: "false",
				Destination: &cmdArgs.JSONLog,
				Required:    false,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Logging level: [debug info warn error]",
				Aliases:     []string{"l"},
				EnvVars:     []string{"LOG_LEVEL"},
				Value:       "warn",
				DefaultText: "warn",
				Destination: &cmdArgs.LogLevel,
				Required:    false,
			},
			// Persistence backend
			&cli.StringFlag{
				Name:        "sqlite-file",
				Usage:       "Sqlite DB file. Takes precedence over Postgres settings",
				EnvVars:     []string{"SQLITE_DB_FILE"},
				Value:       "",
				DefaultText: "",
				Destination: &dbArgs.SqliteFile,
				Required:    false,
			},
			&cli.StringFlag{
				Name:        "psql-host",
				Usage:       "Postgres server host",
				EnvVars:     []string{"PSQL_HOST"},
				Value:       "",
				DefaultText: "",
				Destination: &dbArgs.PostgresHost,
				Required:    false,
			},
			&cli.IntFlag{
				Name:        "psql-port",
				Usage:       "Postgres server port",
				EnvVars:     []string{"PSQL_PORT"},
				Value:       5432,
				DefaultText: "5432",
				Destination: &dbArgs.PostgresPort,
				Required:    false,
			},
			&cli.StringFlag{
				Name:        "psql-db",
				Usage:       "Postgres database name",
				EnvVars:     []string{"PSQL_DB"},
				Value:       "",
				DefaultText: "",
				Destination: &dbArgs.PostgresDB,
				Required:    false,
			},
			&cli.StringFlag{
				Name:        "psql-user",
				Usage:       "Postgres user name",
				EnvVars:     []string{"PSQL_USER"},
				Value:       "",
				DefaultText: "",
				Destination: &dbArgs.PostgresUser,
				Required:    false,
			},
		},
		Commands: []*cli.Command{
			{
				Name:        "provision",
				Aliases:     []string{"prov"},
				Usage:       "Provision stations and streamers",
				Description: "Provision storage locations, stations, and streamer credentials.",
				Flags: []cli.Flag{
					// Config file
					&cli.StringFlag{
						Name:        "definition-file",
						Usage:       "Provisioning definition file",
						Aliases:     []string{"c"},
						EnvVars:     []string{"DEFINITION_FILE"},
						Destination: &provArgs.DefinitionFile,
						Required:    true,
					},
					&cli.StringFlag{
						Name:        "db-password",
						Usage:       "Database user password",
						Aliases:     []string{"p"},
						EnvVars:     []string{"DB_USER_PASSWORD"},
						Value:       "",
						DefaultText: "",
						Destination: &provArgs.DBPassword,
						Required:    false,
					},
				},
				Action: provisionEntities,
			},
		},
	}

	err = app.Run(os.Args)
	if err != nil {
		log.WithError(err).WithFields(logTags).Fatal("Program shutdown")
	}
}

// setupLogging helper function to prepare the app logging
func setupLogging() {
	if cmdArgs.JSONLog {
		log.SetHandler(apexJSON.New(os.Stderr))
	}
	switch cmdArgs.LogLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.ErrorLevel)
	}
}

func provisionEntities(c *cli.Context) error {
	validate := validator.New()

	// Validate general config
	if err := validate.Struct(&cmdArgs); err != nil {
		return err
	}

	setupLogging()

	if err := validate.Struct(&provArgs); err != nil {
		return err
	}

	// Process the definition file
	var definitions provisionDefinitions
	if theFile, err := os.Open(provArgs.DefinitionFile); err != nil {
		return err
	} else if err := json.NewDecoder(theFile).Decode(&definitions); err != nil {
		return err
	}
	if err := validate.Struct(&definitions); err != nil {
		log.WithError(err).WithFields(logTags).Error("Provisioning definition file is not valid")
		return err
	}

	{
		t, _ := json.Marshal(definitions.Stations)
		log.WithFields(logTags).WithField("stations", string(t)).Info("Provision stations")
	}

	dbClient, err := buildPersistenceManager()
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define persistence manager")
		return err
	}

	ctxt := context.Background()

	// Record the storage locations
	for _, location := range definitions.StorageLocations {
		if err := dbClient.RecordStorageLocation(ctxt, location); err != nil {
			log.
				WithError(err).
				WithFields(logTags).
				WithField("location-id", location.ID).
				Error("Storage location provisioning failed")
			return err
		}
		log.
			WithFields(logTags).
			WithField("location-id", location.ID).
			Info("Storage location provisioned")
	}

	// Record the stations with their streamer credentials
	for _, station := range definitions.Stations {
		stationID := uuid.NewString()
		if err := dbClient.RecordStation(ctxt, common.Station{
			ID:                stationID,
			Name:              station.Name,
			EnableStreamers:   station.EnableStreamers,
			StorageLocationID: station.StorageLocationID,
			BaseDir:           station.BaseDir,
		}); err != nil {
			log.
				WithError(err).
				WithFields(logTags).
				WithField("station-name", station.Name).
				Error("Station provisioning failed")
			return err
		}
		log.
			WithFields(logTags).
			WithField("station-name", station.Name).
			WithField("station-id", stationID).
			Info("Station provisioned")

		for _, streamer := range station.Streamers {
			passwordHash, err := bcrypt.GenerateFromPassword(
				[]byte(streamer.Password), bcrypt.DefaultCost,
			)
			if err != nil {
				return err
			}
			streamerID, err := dbClient.DefineStreamer(
				ctxt,
				stationID,
				streamer.Username,
				string(passwordHash),
				streamer.DisplayName,
				streamer.ScheduleWindows,
			)
			if err != nil {
				log.
					WithError(err).
					WithFields(logTags).
					WithField("station-id", stationID).
					WithField("username", streamer.Username).
					Error("Streamer provisioning failed")
				return err
			}
			log.
				WithFields(logTags).
				WithField("station-id", stationID).
				WithField("username", streamer.Username).
				WithField("streamer-id", streamerID).
				Info("Streamer provisioned")
		}
	}

	return nil
}

// buildPersistenceManager resolve the persistence backend from CLI settings.
// Sqlite takes precedence when both backends are given.
func buildPersistenceManager() (db.PersistenceManager, error) {
	if dbArgs.SqliteFile != "" {
		return db.NewManager(db.GetSqliteDialector(dbArgs.SqliteFile), logger.Error)
	}
	dialector, err := db.GetPostgresDialector(common.PostgresConfig{
		Host:     dbArgs.PostgresHost,
		Port:     uint16(dbArgs.PostgresPort),
		Database: dbArgs.PostgresDB,
		User:     dbArgs.PostgresUser,
	}, provArgs.DBPassword)
	if err != nil {
		return nil, err
	}
	return db.NewManager(dialector, logger.Error)
}
