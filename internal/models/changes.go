package models

// ChangeKind is the pending classification of a line.
type ChangeKind string

const (
	ChangeNew      ChangeKind = "NEW"
	ChangeModified ChangeKind = "MODIFIED"
	ChangeDeleted  ChangeKind = "DELETED"
)

func (k ChangeKind) String() string {
	return string(k)
}

// PendingChangeSet maps line ids to their pending change.
// Provisional ids are only ever ChangeNew; persisted ids are only ever
// ChangeModified or ChangeDeleted.
type PendingChangeSet map[string]ChangeKind

// Clone returns an independent copy.
func (p PendingChangeSet) Clone() PendingChangeSet {
	out := make(PendingChangeSet, len(p))
	for id, kind := range p {
		out[id] = kind
	}
	return out
}

// Count returns the number of entries of the given kind.
func (p PendingChangeSet) Count(kind ChangeKind) int {
	n := 0
	for _, k := range p {
		if k == kind {
			n++
		}
	}
	return n
}
