package schema

import "fmt"

// IdentityKind distinguishes the two identifier spaces a reminder can be
// addressed by.
type IdentityKind int

const (
	// KindEphemeral addresses a record by its locally assigned id.
	KindEphemeral IdentityKind = iota

	// KindDurable addresses a record by its server-assigned id.
	KindDurable
)

// Identity is a tagged reminder identifier. It replaces ad hoc "which field
// is set" checks with an explicit kind, so call sites state which identifier
// space they mean.
type Identity struct {
	Kind  IdentityKind
	Value string
}

// Ephemeral builds an identity in the local identifier space.
func Ephemeral(id string) Identity {
	return Identity{Kind: KindEphemeral, Value: id}
}

// Durable builds an identity in the server-assigned identifier space.
func Durable(id string) Identity {
	return Identity{Kind: KindDurable, Value: id}
}

// Matches reports whether the identity addresses the given record.
// An empty identity value never matches; unsynced records have no durable id
// and must not match a durable identity with an empty value.
func (id Identity) Matches(r *Reminder) bool {
	if id.Value == "" {
		return false
	}
	switch id.Kind {
	case KindEphemeral:
		return r.EphemeralID == id.Value
	case KindDurable:
		return r.DurableID == id.Value
	}
	return false
}

func (id Identity) String() string {
	switch id.Kind {
	case KindEphemeral:
		return fmt.Sprintf("ephemeral:%s", id.Value)
	case KindDurable:
		return fmt.Sprintf("durable:%s", id.Value)
	}
	return fmt.Sprintf("unknown:%s", id.Value)
}

// Resolve returns the index of the record addressed by id, or -1.
func Resolve(list []Reminder, id Identity) int {
	for i := range list {
		if id.Matches(&list[i]) {
			return i
		}
	}
	return -1
}

// ResolveRaw resolves an untagged identifier the way callers hand them in:
// the ephemeral space is tried first, then the durable space, since a record
// may be addressed by either depending on caller context.
func ResolveRaw(list []Reminder, raw string) (Identity, int) {
	if i := Resolve(list, Ephemeral(raw)); i >= 0 {
		return Ephemeral(raw), i
	}
	if i := Resolve(list, Durable(raw)); i >= 0 {
		return Durable(raw), i
	}
	return Ephemeral(raw), -1
}
