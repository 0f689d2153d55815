// Package traversal provides bounded graph algorithms over a graph snapshot:
// neighbor lookup, shortest and all-simple paths, and breadth-first context
// expansion.
//
// Every algorithm takes a hop or depth bound and therefore terminates
// without cancellation. Bounds are clamped to MaxHopLimit.
package traversal
