package checkpoint

import (
	"slices"
	"time"
)

// TaskState is the in-memory view of a migration task and its cursors.
// It is loaded at the start of an invocation, mutated while rows are
// processed and saved once at the end.
type TaskState struct {
	Name        string
	Stages      []string
	Stage       string
	RunID       string
	Invocations int
	LastError   string
	StartedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	// Cursors is keyed by source table name.
	Cursors map[string]*CursorState

	persisted bool
}

// CursorState is the position of one stage in its source table.
type CursorState struct {
	Table        string
	Stage        string
	Status       string
	LastSourceID uint
	MaxID        uint
	Migrated     int64
	Skipped      int64

	// Pass counts the restarts of a table whose rows were deferred. Deferred
	// and PassMigrated count rows of the current pass; Final disables
	// deferral once a pass resolved nothing.
	Pass         int
	Deferred     int64
	PassMigrated int64
	Final        bool
}

// NewTaskState returns the state of a fresh task positioned at its first stage.
func NewTaskState(name string, stages []string) *TaskState {
	state := &TaskState{
		Name:    name,
		Stages:  slices.Clone(stages),
		Cursors: make(map[string]*CursorState),
	}
	if len(stages) > 0 {
		state.Stage = stages[0]
	}
	return state
}

// Persisted reports whether the task has been saved before.
func (s *TaskState) Persisted() bool {
	return s.persisted
}

// Cursor returns the cursor of table, creating a pending one for stage if needed.
func (s *TaskState) Cursor(stage, table string) *CursorState {
	if c, ok := s.Cursors[table]; ok {
		return c
	}
	c := &CursorState{Table: table, Stage: stage, Status: StatusPending}
	s.Cursors[table] = c
	return c
}

// Completed reports whether the task has finished all stages.
func (s *TaskState) Completed() bool {
	return s.CompletedAt != nil
}

// Begin marks the cursor as in progress.
func (c *CursorState) Begin() {
	if c.Status == StatusPending {
		c.Status = StatusInProgress
	}
}

// Complete clears the in-progress marker once the table is exhausted.
func (c *CursorState) Complete() {
	c.Status = StatusComplete
}

// FinishPass ends a walk over the table. It completes the cursor when no row
// was deferred and otherwise rewinds it for another pass, reporting true.
// Rows skipped in earlier passes are visited again, so Skipped restarts.
func (c *CursorState) FinishPass() bool {
	if c.Deferred == 0 {
		c.Complete()
		return false
	}
	if c.PassMigrated == 0 {
		c.Final = true
	}
	c.Pass++
	c.LastSourceID = 0
	c.Deferred = 0
	c.PassMigrated = 0
	c.Skipped = 0
	return true
}

// Progress returns the fraction of the id range processed, 0..1.
func (c *CursorState) Progress() float64 {
	switch {
	case c.Status == StatusComplete:
		return 1
	case c.MaxID == 0:
		return 0
	default:
		return min(float64(c.LastSourceID)/float64(c.MaxID), 1)
	}
}
