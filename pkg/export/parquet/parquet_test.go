package parquet

import (
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "export")
	w, err := NewWriter(dir)
	require.NoError(t, err)

	b := &types.Batch{
		Entities: []types.EntityRecord{
			{ID: "BLACKPINK", Type: types.EntityTypeGroup, Attributes: types.NewAttributes("debut", "2016")},
			{ID: "jennie_kim", Type: types.EntityTypePerson, Attributes: types.NewAttributes("name", "Jennie")},
		},
		Relationships: []types.RelationshipRecord{
			{Source: "jennie_kim", Target: "BLACKPINK", Types: []types.RelationType{types.RelationMemberOf, types.RelationRelatedTo}},
		},
		Aliases: []types.AliasRecord{{Alias: "BP", ID: "BLACKPINK"}},
	}

	paths, err := w.Write(b)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, EntitiesFile),
		filepath.Join(dir, RelationshipsFile),
		filepath.Join(dir, TriplesFile),
		filepath.Join(dir, AliasesFile),
	}, paths)

	entities, err := parquet.ReadFile[EntityRow](paths[0])
	require.NoError(t, err)
	assert.Equal(t, []EntityRow{
		{ID: "BLACKPINK", Name: "BLACKPINK", EntityType: "Group", Attributes: `{"debut":"2016"}`},
		{ID: "jennie_kim", Name: "Jennie", EntityType: "Person", Attributes: `{"name":"Jennie"}`},
	}, entities)

	rels, err := parquet.ReadFile[RelationshipRow](paths[1])
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "MEMBER_OF,RELATED_TO", rels[0].Types)
	assert.Equal(t, "{}", rels[0].Attributes)

	triples, err := parquet.ReadFile[TripleRow](paths[2])
	require.NoError(t, err)
	assert.Equal(t, []TripleRow{
		{SourceID: "jennie_kim", Relation: "MEMBER_OF", TargetID: "BLACKPINK"},
		{SourceID: "jennie_kim", Relation: "RELATED_TO", TargetID: "BLACKPINK"},
	}, triples)

	aliases, err := parquet.ReadFile[AliasRow](paths[3])
	require.NoError(t, err)
	assert.Equal(t, []AliasRow{{Alias: "BP", ID: "BLACKPINK"}}, aliases)
}

func TestWriteSkipsEmptySections(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	paths, err := w.Write(&types.Batch{Entities: []types.EntityRecord{{ID: "BTS", Type: types.EntityTypeGroup}}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(w.Dir(), EntitiesFile)}, paths)
}
