package pulse

import "sync/atomic"

// idCounter names primitives that were created without an explicit name.
var idCounter atomic.Uint64

func nextID() uint64 {
	return idCounter.Add(1)
}
