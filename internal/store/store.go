// Package store defines the rule store the sync engine mirrors to disk.
//
// The authoring application owns the rules; the engine only calls the
// narrow Store interface below, and only ever from the bridge's owner
// goroutine. Two implementations ship with rulesync: an in-memory
// store for embedding and tests, and a SQLite-backed store that lets
// the standalone CLI act as the host application.
package store

import "errors"

// Store errors callers branch on.
var (
	// ErrRuleNotFound is returned when a named rule does not exist.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrRuleExists is returned when adding a rule whose name is taken.
	ErrRuleExists = errors.New("rule already exists")
)

// Document is a handle to an open unit of work in the store.
//
// The sync engine holds Documents only transiently while processing
// events; the store owns their lifecycle.
type Document struct {
	// ID is the opaque stable identifier.
	ID string

	// Path is the full path of the document on disk.
	Path string

	// Name is the base name without extension, e.g. "Part1".
	Name string

	// Extension is the file extension without a leading dot, e.g. "ipt".
	Extension string
}

// Rule is a named text artifact owned by the store. The name is used
// verbatim as the on-disk file name stem, so it must not contain path
// separators.
type Rule struct {
	Name string
	Text string
}

// Store is the rule-automation surface of the host application.
//
// Implementations are NOT required to be safe for concurrent use; the
// bridge serializes every call onto its owner goroutine.
type Store interface {
	// ListRules returns every rule held for the document, in a
	// stable order.
	ListRules(doc Document) ([]Rule, error)

	// GetRule returns the named rule. The boolean is false when no
	// rule with that name exists (not an error).
	GetRule(doc Document, name string) (Rule, bool, error)

	// SetRuleText overwrites the text of an existing rule.
	// Returns ErrRuleNotFound if the rule does not exist.
	SetRuleText(doc Document, name, text string) error

	// AddRule creates a new rule. Returns ErrRuleExists if a rule
	// with that name already exists.
	AddRule(doc Document, name, text string) error

	// DeleteRule removes a rule. Returns ErrRuleNotFound if the rule
	// does not exist.
	DeleteRule(doc Document, name string) error
}
