package traversal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// newTestGraph builds:
//
//	Jennie -MEMBER_OF-> BLACKPINK <-MEMBER_OF- Lisa
//	Jennie -COLLABORATED_WITH-> Lisa
//	BLACKPINK -MANAGED_BY-> YG -> (nothing)
//	BLACKPINK -SINGS,RELEASED-> Kill This Love
//	X, Y isolated
func newTestGraph(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.NewStore()
	for _, e := range []struct {
		id  string
		typ types.EntityType
	}{
		{"Jennie", types.EntityTypePerson},
		{"Lisa", types.EntityTypePerson},
		{"BLACKPINK", types.EntityTypeGroup},
		{"YG", types.EntityTypeOrganization},
		{"Kill This Love", types.EntityTypeWork},
		{"X", types.EntityTypePerson},
		{"Y", types.EntityTypePerson},
	} {
		_, _, err := s.AddEntity(e.id, e.typ, types.NewAttributes("name", e.id))
		require.NoError(t, err)
	}
	for _, r := range []struct {
		src, tgt string
		rel      types.RelationType
	}{
		{"Jennie", "BLACKPINK", types.RelationMemberOf},
		{"Lisa", "BLACKPINK", types.RelationMemberOf},
		{"Jennie", "Lisa", types.RelationCollaboratedWith},
		{"BLACKPINK", "YG", types.RelationManagedBy},
		{"BLACKPINK", "Kill This Love", types.RelationSings},
		{"BLACKPINK", "Kill This Love", types.RelationReleased},
	} {
		_, err := s.AddRelationship(r.src, r.tgt, r.rel, types.Attributes{})
		require.NoError(t, err)
	}
	return s
}

func TestNeighborsOneTuplePerType(t *testing.T) {
	e := New(newTestGraph(t).Snapshot())

	out, err := e.Neighbors("BLACKPINK", nil, Out)
	require.NoError(t, err)
	assert.Equal(t, []Neighbor{
		{ID: "YG", Relation: types.RelationManagedBy, Direction: Out},
		{ID: "Kill This Love", Relation: types.RelationSings, Direction: Out},
		{ID: "Kill This Love", Relation: types.RelationReleased, Direction: Out},
	}, out)

	filtered, err := e.Neighbors("BLACKPINK", []types.RelationType{types.RelationMemberOf}, Both)
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
	for _, n := range filtered {
		assert.Equal(t, In, n.Direction)
	}

	_, err = e.Neighbors("TWICE", nil, Both)
	assert.ErrorIs(t, err, types.ErrEntityNotFound)
}

func TestNeighborsBothIsUnionOfOutAndIn(t *testing.T) {
	s := newTestGraph(t)
	e := New(s.Snapshot())

	s.Snapshot().Each(func(ent *types.Entity) bool {
		out, err := e.Neighbors(ent.ID, nil, Out)
		require.NoError(t, err)
		in, err := e.Neighbors(ent.ID, nil, In)
		require.NoError(t, err)
		both, err := e.Neighbors(ent.ID, nil, Both)
		require.NoError(t, err)

		assert.ElementsMatch(t, append(out, in...), both, ent.ID)
		seen := map[Neighbor]bool{}
		for _, n := range both {
			assert.False(t, seen[n], "duplicate %v", n)
			seen[n] = true
		}
		return true
	})
}

func TestShortestPath(t *testing.T) {
	e := New(newTestGraph(t).Snapshot())

	p, err := e.ShortestPath("Jennie", "YG", 3)
	require.NoError(t, err)
	assert.Equal(t, Path{"Jennie", "BLACKPINK", "YG"}, p)
	assert.Equal(t, 2, p.Hops())

	p, err = e.ShortestPath("Jennie", "Jennie", 3)
	require.NoError(t, err)
	assert.Equal(t, Path{"Jennie"}, p)

	_, err = e.ShortestPath("Jennie", "YG", 1)
	assert.ErrorIs(t, err, types.ErrNoPathFound)

	_, err = e.ShortestPath("YG", "Jennie", 3, WithDirection(Out))
	assert.ErrorIs(t, err, types.ErrNoPathFound)

	p, err = e.ShortestPath("Jennie", "Lisa", 3, WithRelations(types.RelationMemberOf))
	require.NoError(t, err)
	assert.Equal(t, Path{"Jennie", "BLACKPINK", "Lisa"}, p)
}

func TestNoPathBetweenDisconnectedEntities(t *testing.T) {
	e := New(newTestGraph(t).Snapshot())

	_, err := e.ShortestPath("X", "Y", 3)
	assert.ErrorIs(t, err, types.ErrNoPathFound)

	_, err = e.AllSimplePaths("X", "Y", 3)
	assert.ErrorIs(t, err, types.ErrNoPathFound)
}

func TestAllSimplePaths(t *testing.T) {
	e := New(newTestGraph(t).Snapshot())

	paths, err := e.AllSimplePaths("Jennie", "Lisa", 3)
	require.NoError(t, err)
	assert.Equal(t, []Path{
		{"Jennie", "Lisa"},
		{"Jennie", "BLACKPINK", "Lisa"},
	}, paths)

	for _, p := range paths {
		seen := map[string]bool{}
		for _, n := range p {
			assert.False(t, seen[n], "node %s repeats in %v", n, p)
			seen[n] = true
		}
	}

	limited, err := e.AllSimplePaths("Jennie", "Lisa", 3, WithPathLimit(1))
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestShortestPathNoLongerThanSimplePaths(t *testing.T) {
	s := newTestGraph(t)
	e := New(s.Snapshot())
	ids := []string{"Jennie", "Lisa", "BLACKPINK", "YG", "Kill This Love", "X"}

	for _, src := range ids {
		for _, tgt := range ids {
			for hops := 1; hops <= 3; hops++ {
				sp, errShort := e.ShortestPath(src, tgt, hops)
				all, errAll := e.AllSimplePaths(src, tgt, hops)
				if errShort != nil || errAll != nil {
					assert.Equal(t, errShort == nil, errAll == nil, "%s->%s/%d", src, tgt, hops)
					continue
				}
				for _, p := range all {
					assert.LessOrEqual(t, sp.Hops(), p.Hops())
				}
			}
		}
	}
}

func TestPathDetails(t *testing.T) {
	e := New(newTestGraph(t).Snapshot())
	hops := e.PathDetails(Path{"Lisa", "BLACKPINK", "Kill This Love"})
	require.Len(t, hops, 2)
	assert.Equal(t, []types.RelationType{types.RelationMemberOf}, hops[0].Relations)
	assert.Equal(t, Out, hops[0].Direction)
	assert.Equal(t, []types.RelationType{types.RelationSings, types.RelationReleased}, hops[1].Relations)

	back := e.PathDetails(Path{"YG", "BLACKPINK"})
	require.Len(t, back, 1)
	assert.Equal(t, In, back[0].Direction)
}

func TestBoundedContext(t *testing.T) {
	e := New(newTestGraph(t).Snapshot())

	c, err := e.BoundedContext("Lisa", 2)
	require.NoError(t, err)
	assert.Equal(t, "Lisa", c.Entity.ID)
	assert.Len(t, c.Relationships, 2)
	assert.ElementsMatch(t, []string{"BLACKPINK", "Jennie"}, c.NeighborsByDepth[1])
	assert.ElementsMatch(t, []string{"YG", "Kill This Love"}, c.NeighborsByDepth[2])

	last := 0
	seen := map[string]bool{"Lisa": true}
	for _, n := range c.Nodes {
		assert.GreaterOrEqual(t, n.Depth, last)
		assert.False(t, seen[n.ID], "revisited %s", n.ID)
		seen[n.ID] = true
		last = n.Depth
	}

	shallow, err := e.BoundedContext("Lisa", 1)
	require.NoError(t, err)
	assert.Empty(t, shallow.NeighborsByDepth[2])

	isolated, err := e.BoundedContext("X", 3)
	require.NoError(t, err)
	assert.Empty(t, isolated.Nodes)
}

func TestContextCache(t *testing.T) {
	s := newTestGraph(t)
	cache, err := NewContextCache(100)
	require.NoError(t, err)
	defer cache.Close()

	e := New(s.Snapshot(), WithCache(cache))
	first, err := e.BoundedContext("Jennie", 2)
	require.NoError(t, err)
	cache.Wait()

	second, err := e.BoundedContext("Jennie", 2)
	require.NoError(t, err)
	assert.Same(t, first, second)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	_, _, err = s.AddEntity("Rosé", types.EntityTypePerson, types.NewAttributes("name", "Rosé"))
	require.NoError(t, err)
	_, err = s.AddRelationship("Rosé", "BLACKPINK", types.RelationMemberOf, types.Attributes{})
	require.NoError(t, err)

	fresh := New(s.Snapshot(), WithCache(cache))
	updated, err := fresh.BoundedContext("Jennie", 2)
	require.NoError(t, err)
	assert.Contains(t, updated.IDs(), "Rosé")
}

func TestContextCacheConcurrentReaders(t *testing.T) {
	s := newTestGraph(t)
	cache, err := NewContextCache(100)
	require.NoError(t, err)
	defer cache.Close()
	e := New(s.Snapshot(), WithCache(cache))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := e.BoundedContext("BLACKPINK", 2)
			assert.NoError(t, err)
			assert.Len(t, c.NeighborsByDepth[1], 4)
		}()
	}
	wg.Wait()
}
