package watch

// ChangeKind represents the type of file system change delivered to
// the change processor.
type ChangeKind int

const (
	// Created indicates a new rule file appeared.
	Created ChangeKind = iota
	// Modified indicates an existing rule file was written.
	Modified
	// Deleted indicates a rule file was removed.
	Deleted
	// Renamed indicates a rule file moved from OldPath to Path.
	Renamed
)

// String returns a human-readable representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is one logical file system change inside a watched rule folder.
type Event struct {
	// Kind is the change that occurred.
	Kind ChangeKind

	// Path is the file the change applies to. For Renamed it is the
	// new path.
	Path string

	// OldPath is set only for Renamed and holds the previous path.
	OldPath string
}

// Handler receives events. It is invoked on the watcher's internal
// goroutines, potentially concurrently across documents; it must not
// block and must not touch the rule store directly.
type Handler func(Event)
