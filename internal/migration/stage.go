// Package migration runs the staged, resumable gallery migration. One call to
// Runner.RunSlice is one time-boxed invocation: it resumes at the persisted
// stage and cursor, processes rows until the time budget is spent or all
// stages are complete, and saves its progress.
package migration

import (
	"fmt"

	"github.com/tphakala/gallery-migrate/internal/errors"
)

// Stage is one phase of the migration.
type Stage string

// Stages in execution order.
const (
	StageCategories Stage = "categories"
	StageRebuild    Stage = "rebuild"
	StageImages     Stage = "images"
	StageComments   Stage = "comments"
	StageDone       Stage = "done"
)

// stageOrder lists every stage in execution order, ending with StageDone.
var stageOrder = []Stage{StageCategories, StageRebuild, StageImages, StageComments, StageDone}

// transitions maps each stage to the stage entered once it completes.
var transitions = map[Stage]Stage{
	StageCategories: StageRebuild,
	StageRebuild:    StageImages,
	StageImages:     StageComments,
	StageComments:   StageDone,
}

// Next returns the stage following s. StageDone is its own successor.
func (s Stage) Next() Stage {
	if next, ok := transitions[s]; ok {
		return next
	}
	return StageDone
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := transitions[s]
	return ok || s == StageDone
}

// String implements fmt.Stringer.
func (s Stage) String() string {
	return string(s)
}

// StageNames returns the stage names in execution order.
func StageNames() []string {
	names := make([]string, len(stageOrder))
	for i, s := range stageOrder {
		names[i] = string(s)
	}
	return names
}

// ParseStage converts a persisted stage name. An empty name is the first stage.
func ParseStage(name string) (Stage, error) {
	if name == "" {
		return stageOrder[0], nil
	}
	s := Stage(name)
	if !s.Valid() {
		return "", errors.New(fmt.Errorf("unknown migration stage %q", name)).
			Component("migration").
			Category(errors.CategoryState).
			Build()
	}
	return s, nil
}
