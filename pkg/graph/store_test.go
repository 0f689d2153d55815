package graph

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()

	entities := []struct {
		id  string
		typ types.EntityType
	}{
		{"Jennie", types.EntityTypePerson},
		{"Lisa", types.EntityTypePerson},
		{"BLACKPINK", types.EntityTypeGroup},
		{"YG Entertainment", types.EntityTypeOrganization},
		{"Kill This Love", types.EntityTypeWork},
	}
	for _, e := range entities {
		_, created, err := s.AddEntity(e.id, e.typ, types.NewAttributes("name", e.id))
		require.NoError(t, err)
		require.True(t, created)
	}

	rels := []struct {
		src, tgt string
		rel      types.RelationType
	}{
		{"Jennie", "BLACKPINK", types.RelationMemberOf},
		{"Lisa", "BLACKPINK", types.RelationMemberOf},
		{"BLACKPINK", "YG Entertainment", types.RelationManagedBy},
		{"BLACKPINK", "Kill This Love", types.RelationSings},
	}
	for _, r := range rels {
		_, err := s.AddRelationship(r.src, r.tgt, r.rel, types.Attributes{})
		require.NoError(t, err)
	}
	return s
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Jennie (singer)", "jennie"},
		{"  BLACK   PINK ", "black pink"},
		{"Category:K-pop_groups", "k-pop groups"},
		{"(G)I-DLE", "(g)i-dle"},
		{"(qualifier)", "(qualifier)"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeID(tt.raw))
		})
	}
}

func TestNameVariants(t *testing.T) {
	assert.Equal(t, []string{"g-dragon", "g dragon", "gdragon"}, NameVariants("G-Dragon"))
	assert.Equal(t, []string{"big bang", "bigbang", "big-bang"}, NameVariants("BIG BANG"))
	assert.Nil(t, NameVariants("  "))
}

func TestContentSignatureIgnoresOrderAndCase(t *testing.T) {
	a := types.NewAttributes("Genre", "K-pop,  Dance", "origin", "Seoul")
	b := types.NewAttributes("origin", "seoul", "genre", "k-pop, dance")
	assert.Equal(t,
		ContentSignature(types.EntityTypeGroup, a, "x"),
		ContentSignature(types.EntityTypeGroup, b, "y"))
	assert.NotEqual(t,
		ContentSignature(types.EntityTypeGroup, a, "x"),
		ContentSignature(types.EntityTypePerson, a, "x"))
}

func TestResolvePrecedence(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddAlias("BP", "BLACKPINK"))

	tests := []struct {
		raw  string
		want string
	}{
		{"BLACKPINK", "BLACKPINK"},
		{"BP", "BLACKPINK"},
		{"bp", "BLACKPINK"},
		{"blackpink (group)", "BLACKPINK"},
		{"  Jennie ", "Jennie"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := s.Resolve(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := s.Resolve("TWICE")
	assert.ErrorIs(t, err, types.ErrEntityNotFound)
}

func TestAliasesResolveToCanonical(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddAlias("Black Pink", "BLACKPINK"))
	require.NoError(t, s.AddAlias("Jennie Kim", "Jennie"))

	snap := s.Snapshot()
	snap.EachAlias(func(alias, id string) bool {
		fromAlias, err := snap.Resolve(alias)
		require.NoError(t, err)
		fromCanonical, err := snap.Resolve(id)
		require.NoError(t, err)
		assert.Equal(t, fromCanonical, fromAlias, "alias %s", alias)
		return true
	})
}

func TestAddEntityIdempotent(t *testing.T) {
	s := newTestStore(t)
	before := s.Stats()

	id, created, err := s.AddEntity("Jennie", types.EntityTypePerson, types.NewAttributes("name", "Jennie"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Jennie", id)

	_, err = s.AddRelationship("Jennie", "BLACKPINK", types.RelationMemberOf, types.Attributes{})
	require.NoError(t, err)

	after := s.Stats()
	assert.Equal(t, before.Entities, after.Entities)
	assert.Equal(t, before.Relationships, after.Relationships)
	assert.Equal(t, before.TypedEdges, after.TypedEdges)
	assert.Equal(t, before.Version, after.Version, "no-op writes must not bump the version")
}

func TestDecoratedVariantCollapses(t *testing.T) {
	s := NewStore()
	attrs := types.NewAttributes("genre", "K-pop", "origin", "Seoul")

	first, created, err := s.AddEntity("X", types.EntityTypeGroup, attrs)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := s.AddEntity("X (qualifier)", types.EntityTypeGroup, attrs.Clone())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)

	a, err := s.Resolve("X")
	require.NoError(t, err)
	b, err := s.Resolve("X (qualifier)")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	results := s.SearchEntities("X", "", 10)
	require.Len(t, results, 1)
	assert.Equal(t, first, results[0].Entity.ID)
	assert.Equal(t, 1, s.Stats().Entities)
}

func TestBareNamesCollapseOnNormalizedID(t *testing.T) {
	s := NewStore()
	first, _, err := s.AddEntity("Rosé", types.EntityTypePerson, types.Attributes{})
	require.NoError(t, err)
	second, created, err := s.AddEntity("Rosé (singer)", types.EntityTypePerson, types.Attributes{})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)
}

func TestAddEntityConflict(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.AddEntity("Jennie", types.EntityTypePerson, types.NewAttributes("name", "Jennie", "born", "1996"))
	var conflict *types.ConflictError
	assert.True(t, errors.As(err, &conflict))
}

func TestAddEntityUnknownType(t *testing.T) {
	s := NewStore()
	_, _, err := s.AddEntity("Seoul", types.EntityType("City"), types.Attributes{})
	assert.ErrorIs(t, err, types.ErrUnknownEntityType)
}

func TestAddRelationshipUnknownEndpoint(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddRelationship("Jisoo", "BLACKPINK", types.RelationMemberOf, types.Attributes{})
	assert.ErrorIs(t, err, types.ErrUnknownEndpoint)
	var endpoint *types.EndpointError
	require.True(t, errors.As(err, &endpoint))
	assert.Equal(t, "source", endpoint.Endpoint)

	_, err = s.AddRelationship("Jennie", "TWICE", types.RelationMemberOf, types.Attributes{})
	require.True(t, errors.As(err, &endpoint))
	assert.Equal(t, "target", endpoint.Endpoint)
}

func TestInvalidRelationTypeRejected(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddRelationship("BLACKPINK", "Kill This Love", types.RelationWrote, types.Attributes{})
	assert.ErrorIs(t, err, types.ErrInvalidRelationType)

	snap := s.Snapshot()
	for _, r := range snap.Outgoing("BLACKPINK") {
		assert.False(t, r.HasType(types.RelationWrote))
	}
}

func TestMultiTypeMerge(t *testing.T) {
	s := newTestStore(t)
	before := s.Stats()

	r, err := s.AddRelationship("BLACKPINK", "Kill This Love", types.RelationReleased,
		types.NewAttributes("confidence", "0.8", "method", "infobox"))
	require.NoError(t, err)
	assert.Equal(t, []types.RelationType{types.RelationSings, types.RelationReleased}, r.Types)

	after := s.Stats()
	assert.Equal(t, before.Relationships, after.Relationships)
	assert.Equal(t, before.TypedEdges+1, after.TypedEdges)

	stored, ok := s.Snapshot().Relationship("BLACKPINK", "Kill This Love")
	require.True(t, ok)
	assert.Equal(t, "infobox", stored.Method)
	assert.Equal(t, 1.0, stored.Confidence)
}

func TestSnapshotIsolation(t *testing.T) {
	s := newTestStore(t)
	old := s.Snapshot()

	_, _, err := s.AddEntity("Rosé", types.EntityTypePerson, types.NewAttributes("name", "Rosé"))
	require.NoError(t, err)
	_, err = s.AddRelationship("Rosé", "BLACKPINK", types.RelationMemberOf, types.Attributes{})
	require.NoError(t, err)

	_, err = old.Resolve("Rosé")
	assert.ErrorIs(t, err, types.ErrEntityNotFound)
	assert.Len(t, old.Incoming("BLACKPINK"), 2)

	fresh := s.Snapshot()
	assert.Greater(t, fresh.Version(), old.Version())
	assert.Len(t, fresh.Incoming("BLACKPINK"), 3)
	require.NoError(t, fresh.CheckInvariants())
	require.NoError(t, old.CheckInvariants())
}

func TestUpdateDiscardsChangesOnError(t *testing.T) {
	s := newTestStore(t)
	before := s.Snapshot()
	errStop := errors.New("stop")

	err := s.Update(func(tx *Txn) error {
		_, _, err := tx.AddEntity("Rosé", types.EntityTypePerson, types.NewAttributes("name", "Rosé"))
		require.NoError(t, err)
		_, err = tx.AddRelationship("Rosé", "BLACKPINK", types.RelationMemberOf, types.Attributes{})
		require.NoError(t, err)
		require.NoError(t, tx.AddAlias("BP", "BLACKPINK"))
		return errStop
	})
	require.ErrorIs(t, err, errStop)

	after := s.Snapshot()
	assert.Equal(t, before.Version(), after.Version())
	assert.Equal(t, before.Stats(), after.Stats())
	_, err = after.Resolve("Rosé")
	assert.ErrorIs(t, err, types.ErrEntityNotFound)
	_, err = after.Resolve("BP")
	assert.ErrorIs(t, err, types.ErrEntityNotFound)
	assert.Len(t, after.Incoming("BLACKPINK"), 2)
	require.NoError(t, after.CheckInvariants())

	// the store stays writable after a discarded update
	_, created, err := s.AddEntity("Rosé", types.EntityTypePerson, types.NewAttributes("name", "Rosé"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Greater(t, s.Snapshot().Version(), before.Version())
}

func TestConcurrentReadersDuringWrites(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap := s.Snapshot()
				_, err := snap.Resolve("BLACKPINK")
				assert.NoError(t, err)
				_ = snap.Outgoing("BLACKPINK")
			}
		}()
	}
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("Trainee %d", i)
		_, _, err := s.AddEntity(name, types.EntityTypePerson, types.NewAttributes("name", name))
		require.NoError(t, err)
	}
	wg.Wait()
	assert.Equal(t, 55, s.Stats().Entities)
}

func TestSearchEntities(t *testing.T) {
	s := newTestStore(t)

	results := s.SearchEntities("blackpink", "", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "BLACKPINK", results[0].Entity.ID)
	assert.Equal(t, 1.0, results[0].Score)

	results = s.SearchEntities("love", "", 10)
	require.Len(t, results, 1)
	assert.Less(t, results[0].Score, 0.8)
	assert.GreaterOrEqual(t, results[0].Score, 0.5)

	results = s.SearchEntities("e", types.EntityTypePerson, 10)
	for _, r := range results {
		assert.Equal(t, types.EntityTypePerson, r.Entity.Type)
	}

	results = s.SearchEntities("e", "", 2)
	assert.Len(t, results, 2)

	assert.Empty(t, s.SearchEntities("   ", "", 10))
}

func TestStatsTriplesRecords(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddAlias("BP", "BLACKPINK"))

	st := s.Stats()
	assert.Equal(t, 5, st.Entities)
	assert.Equal(t, 4, st.Relationships)
	assert.Equal(t, 1, st.Aliases)
	assert.Equal(t, 2, st.EntitiesByType[types.EntityTypePerson])
	assert.Equal(t, 2, st.RelationsByType[types.RelationMemberOf])
	assert.InDelta(t, 1.6, st.AverageDegree, 1e-9)

	snap := s.Snapshot()
	triples := snap.Triples()
	require.Len(t, triples, 4)
	assert.Equal(t, Triple{Source: "Jennie", Relation: types.RelationMemberOf, Target: "BLACKPINK"}, triples[0])

	records := snap.Records()
	assert.Len(t, records.Entities, 5)
	assert.Len(t, records.Relationships, 4)
	assert.Equal(t, []types.AliasRecord{{Alias: "BP", ID: "BLACKPINK"}}, records.Aliases)

	sub := snap.Subgraph([]string{"Jennie", "BLACKPINK", "nobody"})
	assert.Len(t, sub.Entities, 2)
	assert.Len(t, sub.Relationships, 1)
}

func TestSchemaLoading(t *testing.T) {
	schema := DefaultSchema()
	assert.True(t, schema.Allows(types.EntityTypePerson, types.RelationWrote, types.EntityTypeWork))
	assert.False(t, schema.Allows(types.EntityTypeGroup, types.RelationWrote, types.EntityTypeWork))
	assert.True(t, schema.Allows(types.EntityTypeWork, types.RelationRelatedTo, types.EntityTypeCategory))
	assert.False(t, schema.Allows(types.EntityTypePerson, types.RelationType("LIKES"), types.EntityTypeWork))

	_, err := ParseSchema([]byte("entity_types: [A]\nrelations:\n  X:\n    - {source: [B], target: [A]}\n"))
	assert.Error(t, err)

	lenient, err := ParseSchema([]byte("entity_types: [A]\nstrict_relations: false\n"))
	require.NoError(t, err)
	assert.True(t, lenient.Allows("A", "ANYTHING", "A"))
}
