// Package keyword loads the keyword list file and resolves which subset
// of keywords a run processes.
//
// Three selection modes exist, in precedence order: explicit ID tokens
// (single IDs or inclusive ranges within one part), part prefixes, and an
// index range over the list. Resolution always preserves the source-list
// order, never yields duplicate IDs, and fails before any network call
// when a referenced ID or part does not exist.
package keyword
