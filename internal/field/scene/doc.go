// Package scene keeps a renderer's object graph in step with live query
// results.
//
// Diff is the pure part: it turns the previously rendered ids and a new
// result into a Plan. Reconciler owns the id to handle map and applies
// plans to a Renderer. Ids present on both sides get no renderer calls, so
// churn follows the size of the change rather than the size of the field.
package scene
