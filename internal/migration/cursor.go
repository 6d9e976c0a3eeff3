package migration

import (
	"context"
	"fmt"

	"github.com/tphakala/gallery-migrate/internal/errors"
)

// FetchFunc returns up to limit rows with id greater than afterID in ascending id order.
type FetchFunc[T any] func(ctx context.Context, afterID uint, limit int) ([]T, error)

// ExcludeFunc returns the ids among ids that must not be yielded.
type ExcludeFunc func(ctx context.Context, ids []uint) (map[uint]bool, error)

// Cursor lazily yields the rows of one source table after a start position,
// one fetched batch at a time, skipping rows that are already migrated.
type Cursor[T any] struct {
	fetch     FetchFunc[T]
	idOf      func(T) uint
	exclude   ExcludeFunc
	batchSize int

	afterID   uint
	pending   []T
	exhausted bool
}

// NewCursor returns a cursor positioned after afterID. exclude may be nil.
func NewCursor[T any](fetch FetchFunc[T], idOf func(T) uint, exclude ExcludeFunc, afterID uint, batchSize int) *Cursor[T] {
	return &Cursor[T]{
		fetch:     fetch,
		idOf:      idOf,
		exclude:   exclude,
		batchSize: max(batchSize, 1),
		afterID:   afterID,
	}
}

// Next returns the next row. ok is false once the table is exhausted.
func (c *Cursor[T]) Next(ctx context.Context) (row T, ok bool, err error) {
	for len(c.pending) == 0 {
		if c.exhausted {
			return row, false, nil
		}
		if err := c.fill(ctx); err != nil {
			return row, false, err
		}
	}

	row = c.pending[0]
	c.pending = c.pending[1:]
	return row, true, nil
}

func (c *Cursor[T]) fill(ctx context.Context) error {
	rows, err := c.fetch(ctx, c.afterID, c.batchSize)
	if err != nil {
		return err
	}
	if len(rows) < c.batchSize {
		c.exhausted = true
	}
	if len(rows) == 0 {
		return nil
	}

	ids := make([]uint, len(rows))
	for i, r := range rows {
		ids[i] = c.idOf(r)
	}
	last := ids[len(ids)-1]
	if last <= c.afterID {
		return errors.New(fmt.Errorf("cursor did not advance past id %d", c.afterID)).
			Component("migration").
			Category(errors.CategoryState).
			Build()
	}
	c.afterID = last

	var skip map[uint]bool
	if c.exclude != nil {
		if skip, err = c.exclude(ctx, ids); err != nil {
			return err
		}
	}

	for i, r := range rows {
		if !skip[ids[i]] {
			c.pending = append(c.pending, r)
		}
	}
	return nil
}
