// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
// Every key that may come from the environment needs a default here,
// otherwise viper.AutomaticEnv does not see it during Unmarshal.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("migration.name", "4images2gallery")
	viper.SetDefault("migration.timebudget", 25*time.Second)
	viper.SetDefault("migration.hostceiling", time.Duration(0))
	viper.SetDefault("migration.safetymargin", 5*time.Second)
	viper.SetDefault("migration.integritypolicy", IntegrityPolicySkip)
	viper.SetDefault("migration.rowspersecond", 0.0)
	viper.SetDefault("migration.batchsize", 100)

	viper.SetDefault("source.database.driver", DriverMySQL)
	viper.SetDefault("source.database.sqlite.path", "")
	viper.SetDefault("source.database.mysql.host", "localhost")
	viper.SetDefault("source.database.mysql.port", "3306")
	viper.SetDefault("source.database.mysql.username", "")
	viper.SetDefault("source.database.mysql.password", "")
	viper.SetDefault("source.database.mysql.database", "4images")
	viper.SetDefault("source.tableprefix", "4images_")
	viper.SetDefault("source.path", "")
	viper.SetDefault("source.charset", "utf-8")

	viper.SetDefault("target.database.driver", DriverSQLite)
	viper.SetDefault("target.database.sqlite.path", "gallery.db")
	viper.SetDefault("target.database.mysql.host", "localhost")
	viper.SetDefault("target.database.mysql.port", "3306")
	viper.SetDefault("target.database.mysql.username", "")
	viper.SetDefault("target.database.mysql.password", "")
	viper.SetDefault("target.database.mysql.database", "gallery")
	viper.SetDefault("target.tableprefix", "jg_")
	viper.SetDefault("target.assetroot", "gallery")
	viper.SetDefault("target.detailwidth", 1200)
	viper.SetDefault("target.detailheight", 1200)
	viper.SetDefault("target.thumbwidth", 200)
	viper.SetDefault("target.thumbheight", 200)
	viper.SetDefault("target.jpegquality", 85)
	viper.SetDefault("target.moveoriginals", false)
	viper.SetDefault("target.minfreemb", uint64(100))

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/gallery-migrate.log")
	viper.SetDefault("logging.file_output.level", "debug")
	viper.SetDefault("logging.file_output.max_size", 100)
	viper.SetDefault("logging.file_output.max_age", 30)
	viper.SetDefault("logging.file_output.max_rotated_files", 10)
	viper.SetDefault("logging.file_output.compress", false)

	viper.SetDefault("metrics.textfilepath", "")
	viper.SetDefault("telemetry.sentrydsn", "")
}
