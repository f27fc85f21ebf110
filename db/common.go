package db

import (
	"fmt"

	"github.com/alwitt/onair/common"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

/*
GetSqliteDialector define Sqlite GORM dialector

	@param dbFile string - Sqlite DB file
	@return GORM sqlite dialector
*/
func GetSqliteDialector(dbFile string) gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("%s?_foreign_keys=on", dbFile))
}

/*
GetInMemSqliteDialector define a in-memory Sqlite GORM dialector

	@param dbName string - in-memory Sqlite DB name
	@return GORM sqlite dialector
*/
func GetInMemSqliteDialector(dbName string) gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", dbName))
}

/*
GetPostgresDialector define Postgres GORM dialector

	@param config common.PostgresConfig - connection config
	@param password string - the user password
	@return GORM postgres dialector
*/
func GetPostgresDialector(config common.PostgresConfig, password string) (gorm.Dialector, error) {
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s port=%d", config.Host, config.User, config.Database, config.Port)
	if password != "" {
		dsn = fmt.Sprintf("%s password=%s", dsn, password)
	}
	if config.SSL.Enabled {
		dsn = fmt.Sprintf("%s sslmode=verify-full", dsn)
		if config.SSL.CAFile != nil {
			dsn = fmt.Sprintf("%s sslrootcert=%s", dsn, *config.SSL.CAFile)
		}
	} else {
		dsn = fmt.Sprintf("%s sslmode=disable", dsn)
	}
	return postgres.Open(dsn), nil
}
