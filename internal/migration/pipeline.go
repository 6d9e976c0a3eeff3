package migration

import (
	"context"
	"fmt"

	"github.com/tphakala/gallery-migrate/internal/errors"
)

// StageFunc executes one stage. It returns completed=false when it stopped
// because the time budget ran out.
type StageFunc func(ctx context.Context) (completed bool, err error)

// Pipeline runs stages in order, falling through into the next stage within
// the same invocation while the time guard allows it.
type Pipeline struct {
	guard    *TimeGuard
	handlers map[Stage]StageFunc
	onEnter  func(Stage)
}

// NewPipeline returns an empty pipeline bounded by guard.
func NewPipeline(guard *TimeGuard) *Pipeline {
	return &Pipeline{guard: guard, handlers: make(map[Stage]StageFunc)}
}

// Handle registers the function executing stage.
func (p *Pipeline) Handle(stage Stage, fn StageFunc) {
	p.handlers[stage] = fn
}

// OnEnter registers a callback invoked whenever the pipeline advances to a stage.
func (p *Pipeline) OnEnter(fn func(Stage)) {
	p.onEnter = fn
}

// Run executes stages starting at from. It returns the stage it stopped at
// and whether StageDone was reached. The guard is checked between stages;
// the first stage always starts.
func (p *Pipeline) Run(ctx context.Context, from Stage) (Stage, bool, error) {
	stage := from
	for first := true; stage != StageDone; first = false {
		if !first && !p.guard.Remaining() {
			return stage, false, nil
		}
		if err := ctx.Err(); err != nil {
			return stage, false, err
		}

		fn, ok := p.handlers[stage]
		if !ok {
			return stage, false, errors.New(fmt.Errorf("no handler for stage %s", stage)).
				Component("migration").
				Category(errors.CategoryState).
				Build()
		}

		completed, err := fn(ctx)
		if err != nil {
			return stage, false, err
		}
		if !completed {
			return stage, false, nil
		}

		stage = stage.Next()
		if p.onEnter != nil {
			p.onEnter(stage)
		}
	}
	return StageDone, true, nil
}
