// Package catalog loads the canonical dataset bosync reconciles: a
// directory tree of YAML documents describing sports, event groups,
// grading rules, betting market group templates and participant lists,
// plus a runtime events file.
//
// Documents are discovered with "**/*.yaml" and "**/*.yml" globs, checked
// against an embedded CUE schema, gated on their format version and then
// decoded into Go types. Cross references (an event group's participants
// and market groups, a market group's rules) are resolved after every
// document has been read, so file order does not matter.
//
// All text is NFC normalized when converted to ledger form.
package catalog
