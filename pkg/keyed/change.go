package keyed

// ChannelChange is the channel a List broadcasts Change records on.
const ChannelChange = "change"

// Op names a list mutation.
type Op int

const (
	OpAppend Op = iota
	OpInsertBefore
	OpRemove
	OpReplace
)

func (o Op) String() string {
	switch o {
	case OpAppend:
		return "append"
	case OpInsertBefore:
		return "insertBefore"
	case OpRemove:
		return "remove"
	case OpReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// MarshalText lets Op appear by name in JSON.
func (o Op) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Change describes one applied mutation.
type Change[T any] struct {
	Op Op `json:"operation"`

	// ID is the identity that was added, removed or swapped in.
	ID string `json:"id"`

	// Item is the affected item. For OpRemove it is the removed item.
	Item T `json:"object"`

	// RefID is the reference identity of OpInsertBefore.
	RefID string `json:"referenceId,omitempty"`

	// OldID is the identity replaced by OpReplace.
	OldID string `json:"oldId,omitempty"`
}
