// Package keyed keeps an ordered, identity-keyed collection in step with an
// external render surface.
//
// A List owns the logical order of its items. Every mutation is validated
// first, then mirrored onto the Surface, then applied to the list, then
// broadcast as a Change. A mutation that fails validation, rendering or the
// surface call leaves the list untouched.
//
//	list := keyed.New(surface, func(it Item) string { return it.ID }, renderItem)
//	list.Append(Item{ID: "a"})
//	list.InsertBefore(Item{ID: "b"}, "a") // order: b, a
//	list.RemoveChild("b")                 // order: a
package keyed
