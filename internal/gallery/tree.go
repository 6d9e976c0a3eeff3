package gallery

import (
	"context"
	"fmt"
	"slices"

	"github.com/tphakala/gallery-migrate/internal/errors"
	"github.com/tphakala/gallery-migrate/internal/logger"
	"gorm.io/gorm"
)

// TreeNode is the part of a category needed to compute the nested set.
type TreeNode struct {
	CID      uint `gorm:"column:cid"`
	ParentID uint `gorm:"column:parent_id"`
	Ordering int  `gorm:"column:ordering"`
}

// NestedPosition is the nested set position of one category.
type NestedPosition struct {
	Lft   int
	Rgt   int
	Level int
}

// NestedSet computes lft/rgt/level for nodes. Siblings are ordered by
// Ordering, then id. Nodes whose parent is missing are placed at the top
// level. Nodes on a parent cycle are left out.
func NestedSet(nodes []TreeNode) map[uint]NestedPosition {
	exists := make(map[uint]bool, len(nodes))
	for _, n := range nodes {
		exists[n.CID] = true
	}

	sorted := slices.Clone(nodes)
	slices.SortFunc(sorted, func(a, b TreeNode) int {
		if a.Ordering != b.Ordering {
			return a.Ordering - b.Ordering
		}
		return int(a.CID) - int(b.CID)
	})

	children := make(map[uint][]uint)
	var roots []uint
	for _, n := range sorted {
		if n.ParentID == 0 || !exists[n.ParentID] || n.ParentID == n.CID {
			roots = append(roots, n.CID)
			continue
		}
		children[n.ParentID] = append(children[n.ParentID], n.CID)
	}

	positions := make(map[uint]NestedPosition, len(nodes))
	counter := 0
	var walk func(id uint, level int)
	walk = func(id uint, level int) {
		if _, seen := positions[id]; seen {
			return
		}
		counter++
		lft := counter
		positions[id] = NestedPosition{Lft: lft, Level: level}
		for _, child := range children[id] {
			walk(child, level+1)
		}
		counter++
		positions[id] = NestedPosition{Lft: lft, Rgt: counter, Level: level}
	}
	for _, root := range roots {
		walk(root, 1)
	}
	return positions
}

// RebuildTree recomputes the nested set of all gallery categories.
func (w *Writer) RebuildTree(ctx context.Context) error {
	var nodes []TreeNode
	err := w.db.WithContext(ctx).Model(&Category{}).
		Select("cid", "parent_id", "ordering").
		Find(&nodes).Error
	if err != nil {
		return databaseError(err, "rebuild_tree", 0)
	}

	positions := NestedSet(nodes)
	if unplaced := len(nodes) - len(positions); unplaced > 0 {
		w.log.Warn("categories on a parent cycle left out of the tree",
			logger.Int("count", unplaced))
	}

	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for cid, p := range positions {
			err := tx.Model(&Category{}).Where("cid = ?", cid).
				Updates(map[string]any{"lft": p.Lft, "rgt": p.Rgt, "level": p.Level}).Error
			if err != nil {
				return fmt.Errorf("failed to update category %d: %w", cid, err)
			}
		}
		return nil
	})
	if err != nil {
		return errors.New(err).
			Component("gallery").
			Category(errors.CategoryDatabase).
			Context("operation", "rebuild_tree").
			Build()
	}

	w.log.Info("category tree rebuilt", logger.Int("categories", len(positions)))
	return nil
}
