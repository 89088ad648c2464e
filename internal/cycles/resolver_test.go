package cycles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/graph"
	"github.com/toyz/as2amd/internal/models"
)

type fakeAST struct{ name string }

func fixture(t *testing.T, ids []models.ModuleID, edges [][2]models.ModuleID) (*models.OutputSet, *graph.Graph) {
	t.Helper()
	out := models.NewOutputSet()
	g := graph.New()
	for _, id := range ids {
		out.Put(&models.OriginalModule{ID: id, AST: &fakeAST{name: string(id)}})
		g.AddVertex(id)
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e[0], e[1], 1))
	}
	return out, g
}

func TestResolve_TriangleWithIndependentModule(t *testing.T) {
	base, g := fixture(t,
		[]models.ModuleID{"A.js", "B.js", "C.js", "D.js"},
		[][2]models.ModuleID{{"A.js", "B.js"}, {"B.js", "C.js"}, {"C.js", "A.js"}},
	)

	res, err := Resolve(base, g.StronglyConnected())
	require.NoError(t, err)
	out := res.Output

	assert.Equal(t, []models.ModuleID{"A.js", "B.js", "C.js", "D.js", "merged_0.js"}, out.IDs())

	// trivial component passes through by reference
	d, _ := out.Get("D.js")
	baseD, _ := base.Get("D.js")
	assert.Same(t, baseD, d)

	m, ok := out.Get("merged_0.js")
	require.True(t, ok)
	merged := m.(*models.MergedModule)
	require.Len(t, merged.Members, 3)
	for i, name := range []string{"A", "B", "C"} {
		assert.Equal(t, name, merged.Members[i].Name)
		orig, _ := base.Get(models.ModuleID(name + ".js"))
		assert.Same(t, orig.(*models.OriginalModule).AST, merged.Members[i].AST)
	}

	for _, name := range []string{"A", "B", "C"} {
		shim, ok := out.Get(models.ModuleID(name + ".js"))
		require.True(t, ok)
		assert.Equal(t, &models.RedirectModule{ID: models.ModuleID(name + ".js"), Target: "merged_0.js", Key: name}, shim)
	}

	// base is untouched
	a, _ := base.Get("A.js")
	assert.Equal(t, models.OriginalKind, a.Kind())
	assert.Equal(t, 4, base.Len())
	require.Len(t, res.Merged, 1)
	assert.Same(t, merged, res.Merged[0])
}

func TestResolve_SelfLoop(t *testing.T) {
	base, g := fixture(t,
		[]models.ModuleID{"lib/Other.js", "lib/Self.js"},
		[][2]models.ModuleID{{"lib/Self.js", "lib/Self.js"}},
	)

	res, err := Resolve(base, g.StronglyConnected())
	require.NoError(t, err)

	m, ok := res.Output.Get("merged_1.js")
	require.True(t, ok)
	merged := m.(*models.MergedModule)
	require.Len(t, merged.Members, 1)
	assert.Equal(t, "lib/Self", merged.Members[0].Name)

	shim, _ := res.Output.Get("lib/Self.js")
	assert.Equal(t, models.RedirectKind, shim.Kind())
	other, _ := res.Output.Get("lib/Other.js")
	assert.Equal(t, models.OriginalKind, other.Kind())
}

func TestResolve_NoCyclesIsIdentity(t *testing.T) {
	base, g := fixture(t,
		[]models.ModuleID{"a.js", "b.js"},
		[][2]models.ModuleID{{"a.js", "b.js"}},
	)

	res, err := Resolve(base, g.StronglyConnected())
	require.NoError(t, err)
	assert.Equal(t, base.IDs(), res.Output.IDs())
	assert.Empty(t, res.Merged)
	for _, id := range base.IDs() {
		want, _ := base.Get(id)
		got, _ := res.Output.Get(id)
		assert.Same(t, want, got)
	}
}

func TestResolve_MergedIDCollision(t *testing.T) {
	base, g := fixture(t,
		[]models.ModuleID{"x.js", "y.js", "merged_0.js"},
		[][2]models.ModuleID{{"x.js", "y.js"}, {"y.js", "x.js"}},
	)

	_, err := Resolve(base, g.StronglyConnected())
	require.Error(t, err)
	var mergeErr *errors.CycleMergeError
	require.ErrorAs(t, err, &mergeErr)
	assert.Equal(t, 0, mergeErr.Component)
}

func TestResolve_DuplicateLogicalNames(t *testing.T) {
	base, g := fixture(t,
		[]models.ModuleID{"dup", "dup.js"},
		[][2]models.ModuleID{{"dup", "dup.js"}, {"dup.js", "dup"}},
	)

	_, err := Resolve(base, g.StronglyConnected())
	var mergeErr *errors.CycleMergeError
	require.ErrorAs(t, err, &mergeErr)
	assert.Equal(t, errors.CycleMergeErrorCode, mergeErr.ErrorCode())
	assert.Contains(t, mergeErr.Error(), "share the logical name")
}

func TestResolvedGraph_IsAcyclicAndShimsPointAtMerged(t *testing.T) {
	base, g := fixture(t,
		[]models.ModuleID{"A.js", "B.js", "C.js", "D.js", "E.js"},
		[][2]models.ModuleID{
			{"A.js", "B.js"}, {"B.js", "C.js"}, {"C.js", "A.js"},
			{"B.js", "E.js"}, {"D.js", "A.js"},
		},
	)

	res, err := Resolve(base, g.StronglyConnected())
	require.NoError(t, err)
	merged := res.Merged[0].ID

	rg := ResolvedGraph(g, res.Output)
	assert.Empty(t, graph.Cyclic(rg.StronglyConnected()))

	for _, id := range []models.ModuleID{"A.js", "B.js", "C.js"} {
		assert.Equal(t, []models.ModuleID{merged}, rg.Successors(id), id)
	}
	assert.Equal(t, []models.ModuleID{"E.js"}, rg.Successors(merged))
	assert.Equal(t, []models.ModuleID{"A.js"}, rg.Successors("D.js"))
}

func TestResolve_IsDeterministic(t *testing.T) {
	ids := []models.ModuleID{"p.js", "q.js", "r.js", "s.js"}
	edges := [][2]models.ModuleID{{"p.js", "q.js"}, {"q.js", "p.js"}, {"r.js", "s.js"}, {"s.js", "r.js"}}

	base1, g1 := fixture(t, ids, edges)
	base2, g2 := fixture(t, ids, edges)
	r1, err := Resolve(base1, g1.StronglyConnected())
	require.NoError(t, err)
	r2, err := Resolve(base2, g2.StronglyConnected())
	require.NoError(t, err)

	assert.Equal(t, r1.Output.IDs(), r2.Output.IDs())
	for _, id := range r1.Output.IDs() {
		m1, _ := r1.Output.Get(id)
		m2, _ := r2.Output.Get(id)
		assert.Equal(t, m1.Kind(), m2.Kind(), id)
	}
	assert.Equal(t, []models.ModuleID{"merged_0.js", "merged_1.js"},
		[]models.ModuleID{r1.Merged[0].ID, r1.Merged[1].ID})
}
