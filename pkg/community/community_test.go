package community

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

func newSnapshot(t *testing.T) *graph.Snapshot {
	t.Helper()
	s := graph.NewStore()
	add := func(id string, typ types.EntityType) {
		_, _, err := s.AddEntity(id, typ, types.Attributes{})
		require.NoError(t, err)
	}
	link := func(src, tgt string, rel types.RelationType) {
		_, err := s.AddRelationship(src, tgt, rel, types.Attributes{})
		require.NoError(t, err)
	}

	add("BLACKPINK", types.EntityTypeGroup)
	add("Jennie", types.EntityTypePerson)
	add("Lisa", types.EntityTypePerson)
	add("Rosé", types.EntityTypePerson)
	add("BTS", types.EntityTypeGroup)
	add("Jimin", types.EntityTypePerson)
	add("Loner", types.EntityTypePerson)

	link("Jennie", "BLACKPINK", types.RelationMemberOf)
	link("Lisa", "BLACKPINK", types.RelationMemberOf)
	link("Rosé", "BLACKPINK", types.RelationMemberOf)
	link("Jennie", "Lisa", types.RelationCollaboratedWith)
	link("Jimin", "BTS", types.RelationMemberOf)
	return s.Snapshot()
}

func TestBuildProjection(t *testing.T) {
	p := BuildProjection(newSnapshot(t))
	require.Len(t, p, 7)
	assert.Equal(t, []Neighbor{{"Jennie", 1}, {"Lisa", 1}, {"Rosé", 1}}, p["BLACKPINK"])
	assert.Equal(t, []Neighbor{{"BLACKPINK", 1}, {"Lisa", 1}}, p["Jennie"])
	assert.Empty(t, p["Loner"])
}

func TestDetect(t *testing.T) {
	communities := NewBuilder().Detect(newSnapshot(t))
	require.Len(t, communities, 2, "singletons are dropped")

	first := communities[0]
	assert.Equal(t, 1, first.ID)
	assert.ElementsMatch(t, []string{"BLACKPINK", "Jennie", "Lisa", "Rosé"}, first.Members)
	assert.Equal(t, "BLACKPINK", first.Label)
	assert.Equal(t, map[types.EntityType]int{types.EntityTypeGroup: 1, types.EntityTypePerson: 3}, first.Types)

	assert.ElementsMatch(t, []string{"BTS", "Jimin"}, communities[1].Members)
	assert.Equal(t, 2, communities[1].Size())
}

func TestDetectMinSize(t *testing.T) {
	communities := NewBuilder(WithMinSize(1), WithMaxIterations(5)).Detect(newSnapshot(t))
	require.Len(t, communities, 3)
	assert.Equal(t, []string{"Loner"}, communities[2].Members)
}

func TestDetectEmpty(t *testing.T) {
	assert.Empty(t, NewBuilder().Detect(graph.NewStore().Snapshot()))
}
