// Package entity turns a loaded catalog and the runtime events file into
// the tree of syncable entities the engine reconciles.
//
// Entities live in one arena (Tree) and refer to their parent by index.
// Iterating the tree yields them in hierarchy order: a sport, its rules,
// then for each event group its events, and below every event the status
// update, the betting market groups with their markets and, when a result
// is known, the resolution.
package entity
