// Package analyst answers multi-hop questions over a typed knowledge graph.
//
// An Engine owns a graph.Store and answers natural-language questions by
// classifying them against an ordered rule table, resolving the entities
// they mention and walking the graph with a strategy chosen for the intent.
// Every answer carries its reasoning steps and a confidence that decays
// with the number of hops.
//
// # Basic Usage
//
//	store := graph.NewStore()
//	engine, err := analyst.New(store, nil, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	batch, err := ingest.ReadFile("graph.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if _, err := engine.Ingest(ctx, batch); err != nil {
//		log.Fatal(err)
//	}
//
//	res := engine.Reason(ctx, "Do Jennie and Lisa belong to the same company?")
//	fmt.Println(res.Outcome, res.Confidence)
//	fmt.Println(res.RenderedText)
//
// # Collaborators
//
// An NLU collaborator (WithUnderstander) is asked for a hint when no rule
// matches a question or too few entities were found. A semantic index
// (WithSemanticIndex) is searched when extraction still comes up short.
// Both are optional and bounded by timeouts; a failing collaborator is
// treated as having nothing to say.
//
// # Concurrency
//
// Reason, ReasonBatch and Ingest may be called concurrently. Each query
// runs against one immutable snapshot, so it never observes a half-applied
// batch.
package analyst
