package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleIDForSource(t *testing.T) {
	tests := []struct {
		path    string
		id      ModuleID
		logical string
	}{
		{"Main.as", "Main.js", "Main"},
		{"com/example/Foo.as", "com/example/Foo.js", "com/example/Foo"},
		{"a.b/C.as", "a.b/C.js", "a.b/C"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id := ModuleIDForSource(tt.path)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.logical, id.LogicalName())
		})
	}
}

func TestOutputSet_PutKeepsPosition(t *testing.T) {
	set := NewOutputSet()
	set.Put(&OriginalModule{ID: "a.js"})
	set.Put(&OriginalModule{ID: "b.js"})
	set.Put(&OriginalModule{ID: "c.js"})

	set.Put(&RedirectModule{ID: "b.js", Target: "merged_0.js", Key: "b"})

	assert.Equal(t, []ModuleID{"a.js", "b.js", "c.js"}, set.IDs())
	m, ok := set.Get("b.js")
	require.True(t, ok)
	assert.Equal(t, RedirectKind, m.Kind())
	assert.Equal(t, 3, set.Len())
}

func TestOutputSet_CloneIsIndependent(t *testing.T) {
	base := NewOutputSet()
	original := &OriginalModule{ID: "a.js", AST: "tree"}
	base.Put(original)

	clone := base.Clone()
	clone.Put(&RedirectModule{ID: "a.js", Target: "merged_0.js", Key: "a"})
	clone.Put(&MergedModule{ID: "merged_0.js"})

	got, _ := base.Get("a.js")
	assert.Same(t, original, got)
	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, clone.Len())
	assert.Equal(t, map[ModuleKind]int{RedirectKind: 1, MergedKind: 1}, clone.CountByKind())
}

func TestMergedModule_Member(t *testing.T) {
	merged := &MergedModule{
		ID: "merged_3.js",
		Members: []MergedMember{
			{ID: "x/A.js", Name: "x/A"},
			{ID: "x/B.js", Name: "x/B"},
		},
	}

	assert.Equal(t, "merged_3", merged.Name())
	member, ok := merged.Member("x/B.js")
	require.True(t, ok)
	assert.Equal(t, "x/B", member.Name)
	_, ok = merged.Member("x/C.js")
	assert.False(t, ok)
}
