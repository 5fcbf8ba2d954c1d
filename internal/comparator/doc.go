// Package comparator decides whether an observed ledger payload (a stored
// object or an operation bundled in a proposal) is equivalent to a
// canonical entity definition.
//
// A Comparator is a pure predicate over (canonical, observed). Entities
// compose the standard comparators with All and Any:
//
//	comparator.All(
//	    comparator.RequiredKeys(
//	        []string{"sport_id", "new_name"},
//	        []string{"name"},
//	    ),
//	    comparator.AllLanguages("name"),
//	)
//
// Observed payloads may be create-shaped ("name") or update-shaped
// ("new_name"); every comparator reads both. A payload that matches no
// known shape is a ShapeError, never a plain mismatch.
package comparator
