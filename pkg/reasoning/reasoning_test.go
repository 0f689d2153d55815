package reasoning

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/lexicon"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/nlu"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/traversal"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// newStore builds two YG groups sharing a label and one unrelated group.
//
//	Jennie, Lisa, Rosé -MEMBER_OF-> BLACKPINK -MANAGED_BY-> YG Entertainment
//	G-Dragon -MEMBER_OF-> BIGBANG -MANAGED_BY-> YG Entertainment
//	Jimin -MEMBER_OF-> BTS -MANAGED_BY-> Big Hit Music
//	BLACKPINK -RELEASED-> Kill This Love, BIGBANG -RELEASED-> Fantastic Baby
func newStore(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.NewStore()
	entities := []struct {
		id  string
		typ types.EntityType
	}{
		{"BLACKPINK", types.EntityTypeGroup},
		{"BIGBANG", types.EntityTypeGroup},
		{"BTS", types.EntityTypeGroup},
		{"Jennie", types.EntityTypePerson},
		{"Lisa", types.EntityTypePerson},
		{"Rosé", types.EntityTypePerson},
		{"G-Dragon", types.EntityTypePerson},
		{"Jimin", types.EntityTypePerson},
		{"YG Entertainment", types.EntityTypeOrganization},
		{"Big Hit Music", types.EntityTypeOrganization},
		{"Kill This Love", types.EntityTypeWork},
		{"Fantastic Baby", types.EntityTypeWork},
	}
	for _, e := range entities {
		_, _, err := s.AddEntity(e.id, e.typ, types.NewAttributes("name", e.id))
		require.NoError(t, err)
	}
	edges := []struct {
		src, tgt string
		rel      types.RelationType
	}{
		{"Jennie", "BLACKPINK", types.RelationMemberOf},
		{"Lisa", "BLACKPINK", types.RelationMemberOf},
		{"Rosé", "BLACKPINK", types.RelationMemberOf},
		{"G-Dragon", "BIGBANG", types.RelationMemberOf},
		{"Jimin", "BTS", types.RelationMemberOf},
		{"BLACKPINK", "YG Entertainment", types.RelationManagedBy},
		{"BIGBANG", "YG Entertainment", types.RelationManagedBy},
		{"BTS", "Big Hit Music", types.RelationManagedBy},
		{"BLACKPINK", "Kill This Love", types.RelationReleased},
		{"BIGBANG", "Fantastic Baby", types.RelationReleased},
	}
	for _, e := range edges {
		_, err := s.AddRelationship(e.src, e.tgt, e.rel, types.Attributes{})
		require.NoError(t, err)
	}
	return s
}

func ask(t *testing.T, d *Dispatcher, snap *graph.Snapshot, query string) *types.ReasoningResult {
	t.Helper()
	res := d.Dispatch(context.Background(), snap, Request{Query: query})
	require.NotNil(t, res)
	assert.NotNil(t, res.Steps)
	assert.NotNil(t, res.AnswerEntities)
	return res
}

func TestClassifyPrecedence(t *testing.T) {
	lex := lexicon.Default()
	tests := []struct {
		query    string
		intent   types.Intent
		strategy types.StrategyKind
	}{
		{"Do Jennie and Lisa share the same organization?", types.IntentSameOrgComparison, types.StrategyComparison},
		{"Are Jennie and Lisa in the same group?", types.IntentSameGroupComparison, types.StrategyComparison},
		{"What do BLACKPINK and BIGBANG have in common?", types.IntentIntersection, types.StrategyIntersection},
		{"How are Jennie and BIGBANG connected?", types.IntentConnection, types.StrategyPath},
		{"Is Jennie a member of BLACKPINK?", types.IntentMembership, types.StrategyComparison},
		{"Who are the members of BLACKPINK?", types.IntentListRelated, types.StrategyChain},
		{"Which group is Jennie a member of?", types.IntentChainLookup, types.StrategyChain},
		{"Who is connected to BIGBANG?", types.IntentAggregation, types.StrategyAggregation},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p, ok := Classify(lex, tt.query)
			require.True(t, ok)
			assert.Equal(t, tt.intent, p.Intent)
			assert.Equal(t, tt.strategy, p.Strategy)
		})
	}

	_, ok := Classify(lex, "Tell me about Jennie")
	assert.False(t, ok)
}

func TestSharedOrganization(t *testing.T) {
	d := New(nil, nil)
	res := ask(t, d, newStore(t).Snapshot(), "Do Jennie and Lisa share the same organization?")

	assert.Equal(t, types.OutcomeFound, res.Outcome)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, []string{"YG Entertainment"}, res.AnswerEntities)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, []string{"Jennie"}, res.Steps[0].SourceEntities)
	assert.Equal(t, []string{"Lisa"}, res.Steps[1].SourceEntities)
	assert.Equal(t, 2, res.Steps[0].HopNumber)
	assert.Len(t, res.Explanation, 2)
	assert.Equal(t, types.CodeNone, res.Error)
	assert.True(t, strings.HasPrefix(res.RenderedText, "Yes"))
}

func TestComparisonSubjectsFollowMentionOrder(t *testing.T) {
	d := New(nil, nil)
	snap := newStore(t).Snapshot()

	res := ask(t, d, snap, "Do Jennie and Lisa of BLACKPINK share the same company?")
	require.Len(t, res.Entities, 3)
	assert.Equal(t, types.OutcomeFound, res.Outcome)
	assert.Equal(t, []string{"YG Entertainment"}, res.AnswerEntities)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, []string{"Jennie"}, res.Steps[0].SourceEntities)
	assert.Equal(t, []string{"Lisa"}, res.Steps[1].SourceEntities)
	assert.Contains(t, res.RenderedText, "Jennie and Lisa")

	res = ask(t, d, snap, "Are Jimin and Jennie of BLACKPINK in the same group?")
	assert.Equal(t, types.OutcomeDefinitiveNegative, res.Outcome)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, []string{"Jimin"}, res.Steps[0].SourceEntities)
	assert.Equal(t, []string{"Jennie"}, res.Steps[1].SourceEntities)
}

func TestInputPair(t *testing.T) {
	in := Input{
		Plan:  Plan{TargetType: types.EntityTypeGroup},
		Query: "Is Rosé connected to Jimin through BTS?",
		Entities: []types.Candidate{
			{ID: "BTS", Type: types.EntityTypeGroup, Mention: "BTS"},
			{ID: "Jimin", Type: types.EntityTypePerson, Mention: "Jimin"},
			{ID: "Rosé", Type: types.EntityTypePerson, Mention: "Rosé"},
		},
	}
	a, b := in.pair()
	assert.Equal(t, "Rosé", a)
	assert.Equal(t, "Jimin", b)

	in.Plan.TargetType = ""
	in.Entities[2] = types.Candidate{ID: "Lisa", Type: types.EntityTypePerson, Mention: "Lalisa"}
	a, b = in.pair()
	assert.Equal(t, "Jimin", a, "mentions missing from the question sort last")
	assert.Equal(t, "BTS", b)
}

func TestDefinitiveNegative(t *testing.T) {
	d := New(nil, nil)
	snap := newStore(t).Snapshot()

	res := ask(t, d, snap, "Are Jimin and Jennie in the same group?")
	assert.Equal(t, types.OutcomeDefinitiveNegative, res.Outcome)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Empty(t, res.AnswerEntities)
	assert.Len(t, res.Steps, 2)
	assert.True(t, strings.HasPrefix(res.RenderedText, "No"))
	assert.Contains(t, res.RenderedText, "BTS")
	assert.Contains(t, res.RenderedText, "BLACKPINK")

	res = ask(t, d, snap, "Is Jimin a member of BLACKPINK?")
	assert.Equal(t, types.OutcomeDefinitiveNegative, res.Outcome)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestMembership(t *testing.T) {
	res := ask(t, New(nil, nil), newStore(t).Snapshot(), "Is Jennie a member of BLACKPINK?")
	assert.Equal(t, types.IntentMembership, res.Intent)
	assert.Equal(t, types.OutcomeFound, res.Outcome)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, []string{"BLACKPINK"}, res.AnswerEntities)
}

func TestInsufficientEntities(t *testing.T) {
	d := New(nil, nil)
	snap := newStore(t).Snapshot()
	for _, q := range []string{
		"Do Jennie and Nobody share the same organization?",
		"What do BLACKPINK and Nobody have in common?",
	} {
		t.Run(q, func(t *testing.T) {
			res := ask(t, d, snap, q)
			assert.Equal(t, types.CodeInsufficientEntities, res.Error)
			assert.Equal(t, types.OutcomeNotFound, res.Outcome)
			assert.Zero(t, res.Confidence)
			assert.Empty(t, res.Steps)
			assert.NotEmpty(t, res.RenderedText)
		})
	}
}

func TestStrategiesRefuseOneEntity(t *testing.T) {
	snap := newStore(t).Snapshot()
	eng := traversal.New(snap)
	one := []types.Candidate{{ID: "Jennie", Type: types.EntityTypePerson}}
	for _, s := range []Strategy{Comparison{}, Intersection{}, Connection{}} {
		_, err := s.Execute(eng, Input{Plan: Plan{Intent: types.IntentSameGroupComparison}, Entities: one, Hops: 2})
		assert.ErrorIs(t, err, types.ErrInsufficientEntities, s.Kind())
	}
}

func TestEntityNotFound(t *testing.T) {
	res := ask(t, New(nil, nil), newStore(t).Snapshot(), "what is the weather like")
	assert.Equal(t, types.CodeEntityNotFound, res.Error)
	assert.Equal(t, types.OutcomeNotFound, res.Outcome)
	assert.Zero(t, res.Confidence)
}

func TestChain(t *testing.T) {
	d := New(nil, nil)
	snap := newStore(t).Snapshot()

	t.Run("one hop to the group", func(t *testing.T) {
		res := ask(t, d, snap, "Which group is Jennie a member of?")
		assert.Equal(t, []string{"BLACKPINK"}, res.AnswerEntities)
		assert.Len(t, res.Steps, 1)
		assert.Equal(t, 1.0, res.Confidence)
	})

	t.Run("members", func(t *testing.T) {
		res := ask(t, d, snap, "Who are the members of BLACKPINK?")
		assert.Equal(t, types.IntentListRelated, res.Intent)
		assert.ElementsMatch(t, []string{"Jennie", "Lisa", "Rosé"}, res.AnswerEntities)
		require.Len(t, res.Groups, 1)
		assert.Equal(t, types.EntityTypePerson, res.Groups[0].Type)
	})

	t.Run("two hops to songs", func(t *testing.T) {
		res := ask(t, d, snap, "What songs did YG Entertainment release?")
		assert.ElementsMatch(t, []string{"Kill This Love", "Fantastic Baby"}, res.AnswerEntities)
		require.Len(t, res.Steps, 2)
		assert.Equal(t, 1, res.Steps[0].HopNumber)
		assert.Equal(t, 2, res.Steps[1].HopNumber)
		assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	})

	t.Run("nothing within budget", func(t *testing.T) {
		res := d.Dispatch(context.Background(), snap, Request{Query: "What songs did YG Entertainment release?", Hops: 1})
		assert.Equal(t, types.OutcomeNotFound, res.Outcome)
		assert.Zero(t, res.Confidence)
		assert.Len(t, res.Steps, 1)
	})
}

func TestChainCaps(t *testing.T) {
	s := graph.NewStore()
	_, _, err := s.AddEntity("Label", types.EntityTypeOrganization, types.Attributes{})
	require.NoError(t, err)
	for i := 0; i < 30; i++ {
		id := "Artist " + string(rune('A'+i%26)) + string(rune('a'+i/26))
		_, _, err := s.AddEntity(id, types.EntityTypePerson, types.Attributes{})
		require.NoError(t, err)
		_, err = s.AddRelationship(id, "Label", types.RelationManagedBy, types.Attributes{})
		require.NoError(t, err)
	}
	eng := traversal.New(s.Snapshot())
	in := Input{
		Plan:     Plan{Intent: types.IntentListRelated, TargetType: types.EntityTypePerson, Direction: traversal.In},
		Entities: []types.Candidate{{ID: "Label", Type: types.EntityTypeOrganization}},
		Hops:     2,
	}
	f, err := Chain{}.Execute(eng, in)
	require.NoError(t, err)
	assert.Len(t, f.Answer, DefaultChainAnswerCap)
	assert.Len(t, f.Steps, 1)
	assert.Len(t, f.Steps[0].TargetEntities, 30)
}

func TestAggregation(t *testing.T) {
	res := ask(t, New(nil, nil), newStore(t).Snapshot(), "Who is connected to BIGBANG?")
	assert.Equal(t, types.StrategyAggregation, res.Strategy)
	assert.Equal(t, types.OutcomeFound, res.Outcome)
	// depth 1: G-Dragon, YG Entertainment, Fantastic Baby; depth 2: BLACKPINK
	assert.ElementsMatch(t, []string{"G-Dragon", "YG Entertainment", "Fantastic Baby", "BLACKPINK"}, res.AnswerEntities)
	assert.NotContains(t, res.AnswerEntities, "BIGBANG")
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	assert.Len(t, res.Groups, 4)
}

func TestIntersection(t *testing.T) {
	res := ask(t, New(nil, nil), newStore(t).Snapshot(), "What do BLACKPINK and BIGBANG have in common?")
	assert.Equal(t, types.OutcomeFound, res.Outcome)
	assert.Equal(t, []string{"YG Entertainment"}, res.AnswerEntities)
	assert.Len(t, res.Steps, 2)
	assert.Equal(t, 1.0, res.Confidence)

	res = ask(t, New(nil, nil), newStore(t).Snapshot(), "What do BLACKPINK and BTS have in common?")
	assert.Equal(t, types.OutcomeDefinitiveNegative, res.Outcome)
}

func TestConnection(t *testing.T) {
	d := New(nil, nil)
	snap := newStore(t).Snapshot()

	res := ask(t, d, snap, "How are Jennie and BIGBANG connected?")
	assert.Equal(t, types.OutcomeFound, res.Outcome)
	require.Len(t, res.Steps, 3)
	assert.InDelta(t, 0.72, res.Confidence, 1e-9)
	assert.Equal(t, []types.RelationType{types.RelationManagedBy}, res.Steps[0].RelationTypes)
	assert.Contains(t, res.RenderedText, "connected in 3 hops")

	res = ask(t, d, snap, "How are Jennie and Lisa connected?")
	assert.Equal(t, []string{"BLACKPINK", "Lisa"}, res.AnswerEntities)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
}

func TestNoPathFound(t *testing.T) {
	res := ask(t, New(nil, nil), newStore(t).Snapshot(), "How are Jennie and Jimin connected?")
	assert.Equal(t, types.CodeNoPathFound, res.Error)
	assert.Equal(t, types.OutcomeNotFound, res.Outcome)
	assert.Zero(t, res.Confidence)
	assert.Contains(t, res.RenderedText, "not connected within 3 hops")
}

func TestHopBudget(t *testing.T) {
	d := New(nil, nil)
	chain := Plan{Strategy: types.StrategyChain}
	path := Plan{Strategy: types.StrategyPath}

	assert.Equal(t, 2, d.hops(Request{}, chain, nil))
	assert.Equal(t, 3, d.hops(Request{}, path, nil))
	assert.Equal(t, 1, d.hops(Request{Hops: 1}, path, nil))
	assert.Equal(t, 3, d.hops(Request{Hops: 10}, chain, nil))
	assert.Equal(t, 3, d.hops(Request{}, chain, &nlu.Hint{HopDepth: 7}))
	assert.Equal(t, 1, d.hops(Request{}, chain, &nlu.Hint{HopDepth: 1}))
}

func TestUnclassifiedUsesHintOnce(t *testing.T) {
	snap := newStore(t).Snapshot()
	var calls atomic.Int32
	u := nlu.UnderstanderFunc(func(ctx context.Context, q string) (*nlu.Hint, error) {
		calls.Add(1)
		return &nlu.Hint{Intent: "same_group", Entities: []string{"Jennie", "Lisa"}}, nil
	})
	g := nlu.NewGuard(u, time.Second, nil)
	d := New(nil, nil, WithNLU(g))

	res := ask(t, d, snap, "Tell me about Jennie")
	assert.Equal(t, types.IntentSameGroupComparison, res.Intent)
	assert.True(t, res.UsedHint)
	assert.Equal(t, []string{"BLACKPINK"}, res.AnswerEntities)
	assert.Equal(t, int32(1), calls.Load())

	// a rule match never consults the collaborator for classification
	ask(t, d, snap, "Which group is Jennie a member of?")
	assert.Equal(t, int32(1), calls.Load())
}

func TestUnclassifiedWithoutHint(t *testing.T) {
	res := ask(t, New(nil, nil), newStore(t).Snapshot(), "Tell me about Jennie")
	assert.Equal(t, types.IntentChainLookup, res.Intent)
	assert.Equal(t, types.OutcomeFound, res.Outcome)
	assert.Contains(t, res.AnswerEntities, "BLACKPINK")
	assert.False(t, res.UsedHint)
}

func TestConcurrentDispatch(t *testing.T) {
	store := newStore(t)
	snap := store.Snapshot()
	cache, err := traversal.NewContextCache(100)
	require.NoError(t, err)
	defer cache.Close()
	d := New(nil, nil, WithCache(cache))

	want := ask(t, d, snap, "Who is connected to BIGBANG?")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := d.Dispatch(context.Background(), snap, Request{Query: "Who is connected to BIGBANG?"})
			assert.ElementsMatch(t, want.AnswerEntities, res.AnswerEntities)
		}()
	}
	// a writer publishing a new version does not disturb readers of the old one
	_, err = store.AddRelationship("Jimin", "BIGBANG", types.RelationCollaboratedWith, types.Attributes{})
	require.NoError(t, err)
	wg.Wait()

	res := ask(t, d, store.Snapshot(), "Who is connected to BIGBANG?")
	assert.Contains(t, res.AnswerEntities, "Jimin")
	assert.NotContains(t, want.AnswerEntities, "Jimin")
}
