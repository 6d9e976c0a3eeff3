// Package conf loads gallery-migrate settings from config.yaml, environment
// variables and command line flags.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tphakala/gallery-migrate/internal/errors"
	"github.com/tphakala/gallery-migrate/internal/logger"
)

// EnvPrefix is the prefix of environment variables overriding settings,
// e.g. GALLERY_MIGRATE_SOURCE_TABLEPREFIX.
const EnvPrefix = "GALLERY_MIGRATE"

// Integrity policies decide what happens to a row whose parent is missing in the target.
const (
	IntegrityPolicySkip  = "skip"
	IntegrityPolicyAbort = "abort"
)

// Database drivers supported for source and target.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Settings contains all configuration options for gallery-migrate.
type Settings struct {
	Debug bool // true to enable debug mode

	Migration MigrationSettings
	Source    SourceSettings
	Target    TargetSettings
	Logging   logger.LoggingConfig
	Metrics   MetricsSettings
	Telemetry TelemetrySettings
}

// MigrationSettings controls the staged migration engine.
type MigrationSettings struct {
	Name            string        // migration name, unique per source/target pair
	TimeBudget      time.Duration // maximum wall-clock time of one slice, 0 = unlimited
	HostCeiling     time.Duration // execution ceiling imposed by the host, 0 = none
	SafetyMargin    time.Duration // subtracted from HostCeiling
	IntegrityPolicy string        // skip or abort
	RowsPerSecond   float64       // per-row throttle, 0 = unlimited
	BatchSize       int           // rows fetched per cursor query
}

// DatabaseSettings describes one SQLite or MySQL database.
type DatabaseSettings struct {
	Driver string // sqlite or mysql
	SQLite struct {
		Path string // database file
	}
	MySQL MySQLSettings
}

// MySQLSettings contains MySQL connection parameters.
type MySQLSettings struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// SourceSettings describes the 4images installation being migrated.
type SourceSettings struct {
	Database    DatabaseSettings
	TablePrefix string // 4images table prefix, e.g. "4images_"
	Path        string // 4images root directory containing data/media and data/thumbnails
	Charset     string // text encoding of the legacy tables, e.g. "utf-8" or "iso-8859-1"
}

// TargetSettings describes the gallery being populated.
type TargetSettings struct {
	Database      DatabaseSettings
	TablePrefix   string // prefix of gallery tables, e.g. "jos_"
	AssetRoot     string // directory holding originals/, details/ and thumbnails/
	DetailWidth   int    // detail image bounding box
	DetailHeight  int
	ThumbWidth    int // generated thumbnail bounding box
	ThumbHeight   int
	JPEGQuality   int
	MoveOriginals bool   // move instead of copy legacy originals
	MinFreeMB     uint64 // preflight fails below this free space on AssetRoot
}

// MetricsSettings controls Prometheus metrics export.
type MetricsSettings struct {
	TextfilePath string // node_exporter textfile collector output, empty disables
}

// TelemetrySettings controls error reporting.
type TelemetrySettings struct {
	SentryDSN string
}

// Load reads the configuration file (or the default search paths when
// configFile is empty), environment variables and bound flags into Settings.
func Load(configFile string) (*Settings, error) {
	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error validating settings: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return settings, nil
}

// initViper sets defaults and reads the configuration file. A missing file is
// not an error: defaults, environment and flags are enough to run.
func initViper(configFile string) error {
	setDefaultConfig()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.New(fmt.Errorf("fatal error reading config file %s: %w", configFile, err)).
				Component("conf").
				Category(errors.CategoryConfiguration).
				FileContext(configFile).
				Build()
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, path := range GetDefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// EffectiveBudget returns the time budget of one slice: the configured budget
// capped by the host ceiling minus the safety margin. Zero means unlimited.
func (m *MigrationSettings) EffectiveBudget() time.Duration {
	budget := m.TimeBudget
	if m.HostCeiling > 0 {
		ceiling := max(m.HostCeiling-m.SafetyMargin, time.Second)
		if budget == 0 || ceiling < budget {
			budget = ceiling
		}
	}
	return budget
}
