// conf/validate.go

package conf

import (
	"fmt"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateMigrationSettings(&settings.Migration); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDatabaseSettings("source", &settings.Source.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateSourceSettings(&settings.Source); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDatabaseSettings("target", &settings.Target.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateTargetSettings(&settings.Target); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateMigrationSettings(settings *MigrationSettings) error {
	var errs []string

	if strings.TrimSpace(settings.Name) == "" {
		errs = append(errs, "migration name must not be empty")
	}
	if settings.TimeBudget < 0 || settings.HostCeiling < 0 || settings.SafetyMargin < 0 {
		errs = append(errs, "migration durations must not be negative")
	}
	switch settings.IntegrityPolicy {
	case IntegrityPolicySkip, IntegrityPolicyAbort:
	default:
		errs = append(errs, fmt.Sprintf("unknown integrity policy %q, expected %s or %s",
			settings.IntegrityPolicy, IntegrityPolicySkip, IntegrityPolicyAbort))
	}
	if settings.RowsPerSecond < 0 {
		errs = append(errs, "rows per second must not be negative")
	}
	if settings.BatchSize <= 0 {
		errs = append(errs, "batch size must be positive")
	}

	return joinErrors(errs)
}

func validateDatabaseSettings(name string, settings *DatabaseSettings) error {
	switch settings.Driver {
	case DriverSQLite:
		if settings.SQLite.Path == "" {
			return fmt.Errorf("%s sqlite path must be set", name)
		}
	case DriverMySQL:
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			return fmt.Errorf("%s mysql host and database must be set", name)
		}
	default:
		return fmt.Errorf("%s database driver %q is not supported", name, settings.Driver)
	}
	return nil
}

func validateSourceSettings(settings *SourceSettings) error {
	var errs []string

	if settings.Path == "" {
		errs = append(errs, "source path (4images root directory) must be set")
	}
	if strings.ContainsAny(settings.TablePrefix, " ;'\"`") {
		errs = append(errs, fmt.Sprintf("source table prefix %q contains invalid characters", settings.TablePrefix))
	}

	return joinErrors(errs)
}

func validateTargetSettings(settings *TargetSettings) error {
	var errs []string

	if settings.AssetRoot == "" {
		errs = append(errs, "target asset root must be set")
	}
	if settings.DetailWidth <= 0 || settings.DetailHeight <= 0 {
		errs = append(errs, "detail image size must be positive")
	}
	if settings.ThumbWidth <= 0 || settings.ThumbHeight <= 0 {
		errs = append(errs, "thumbnail size must be positive")
	}
	if settings.JPEGQuality < 1 || settings.JPEGQuality > 100 {
		errs = append(errs, "jpeg quality must be between 1 and 100")
	}

	return joinErrors(errs)
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}
