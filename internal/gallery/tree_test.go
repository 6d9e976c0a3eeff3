package gallery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNestedSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []TreeNode
		want  map[uint]NestedPosition
	}{
		{
			name:  "empty",
			nodes: nil,
			want:  map[uint]NestedPosition{},
		},
		{
			name:  "parent and child",
			nodes: []TreeNode{{CID: 2, ParentID: 1}, {CID: 1}},
			want: map[uint]NestedPosition{
				1: {Lft: 1, Rgt: 4, Level: 1},
				2: {Lft: 2, Rgt: 3, Level: 2},
			},
		},
		{
			name: "siblings ordered by ordering then id",
			nodes: []TreeNode{
				{CID: 1},
				{CID: 3, ParentID: 1, Ordering: 1},
				{CID: 2, ParentID: 1, Ordering: 2},
				{CID: 4},
			},
			want: map[uint]NestedPosition{
				1: {Lft: 1, Rgt: 6, Level: 1},
				3: {Lft: 2, Rgt: 3, Level: 2},
				2: {Lft: 4, Rgt: 5, Level: 2},
				4: {Lft: 7, Rgt: 8, Level: 1},
			},
		},
		{
			name:  "missing parent becomes top level",
			nodes: []TreeNode{{CID: 5, ParentID: 99}},
			want:  map[uint]NestedPosition{5: {Lft: 1, Rgt: 2, Level: 1}},
		},
		{
			name:  "cycle is left out",
			nodes: []TreeNode{{CID: 1}, {CID: 7, ParentID: 8}, {CID: 8, ParentID: 7}},
			want:  map[uint]NestedPosition{1: {Lft: 1, Rgt: 2, Level: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NestedSet(tt.nodes))
		})
	}
}

func TestWriter_RebuildTree(t *testing.T) {
	t.Parallel()
	w, db := setupWriter(t)
	ctx := context.Background()

	require.NoError(t, w.WriteCategory(ctx, &Category{CID: 1, Name: "Nature", Alias: "nature"}))
	require.NoError(t, w.WriteCategory(ctx, &Category{CID: 2, Name: "Birds", Alias: "birds", ParentID: 1}))
	require.NoError(t, w.WriteCategory(ctx, &Category{CID: 3, Name: "Cities", Alias: "cities"}))

	require.NoError(t, w.RebuildTree(ctx))

	var cats []Category
	require.NoError(t, db.Order("cid").Find(&cats).Error)
	require.Len(t, cats, 3)

	assert.Equal(t, []int{1, 4, 1}, []int{cats[0].Lft, cats[0].Rgt, cats[0].Level})
	assert.Equal(t, []int{2, 3, 2}, []int{cats[1].Lft, cats[1].Rgt, cats[1].Level})
	assert.Equal(t, []int{5, 6, 1}, []int{cats[2].Lft, cats[2].Rgt, cats[2].Level})
}
