package migration

import (
	"context"

	"github.com/tphakala/gallery-migrate/internal/errors"
)

// ErrorKind is how the engine reacts to an error.
type ErrorKind int

const (
	// KindNone is the kind of a nil error.
	KindNone ErrorKind = iota
	// KindTransient ends the invocation with continue; the row is retried.
	KindTransient
	// KindIntegrity is a row that can never be migrated as is. Depending on
	// the integrity policy it is skipped or aborts the invocation.
	KindIntegrity
	// KindConfiguration is fatal before any row is processed.
	KindConfiguration
	// KindAssetPlacement is retried like KindTransient.
	KindAssetPlacement
	// KindCheckpoint is fatal: progress can not be recorded.
	KindCheckpoint
	// KindCancelled ends the invocation with continue.
	KindCancelled
)

// String returns the metric label of k.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransient:
		return "transient"
	case KindIntegrity:
		return "integrity"
	case KindConfiguration:
		return "configuration"
	case KindAssetPlacement:
		return "asset_placement"
	case KindCheckpoint:
		return "checkpoint"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Fatal reports whether an error of kind k needs an operator.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindIntegrity, KindConfiguration, KindCheckpoint:
		return true
	default:
		return false
	}
}

// Classify maps err to an ErrorKind by its error category.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}

	switch errors.CategoryOf(err) {
	case errors.CategoryIntegrity, errors.CategoryImageProcess, errors.CategoryValidation:
		return KindIntegrity
	case errors.CategoryConfiguration, errors.CategorySystem, errors.CategoryState:
		return KindConfiguration
	case errors.CategoryCheckpoint:
		return KindCheckpoint
	case errors.CategoryAssetPlacement, errors.CategoryFileIO:
		return KindAssetPlacement
	case errors.CategoryCancellation:
		return KindCancelled
	default:
		return KindTransient
	}
}
