package session

import "hash/fnv"

// SlotBinding pairs a named action slot with the part that fills it.
type SlotBinding struct {
	Slot string
	Part string
}

// SlotPartMap is an ordered, value-equality, hashable collection of
// slot-to-part bindings used to instantiate an action over a specific set of
// parts. It is deliberately a slice rather than a Go map: binding order is
// part of its identity (the last binding for a given slot shadows earlier
// ones, mirroring how the server resolves duplicate slot assignments), and
// slices compare and hash predictably.
type SlotPartMap struct {
	bindings []SlotBinding
}

// NewSlotPartMap builds a SlotPartMap from the given bindings, in order.
func NewSlotPartMap(bindings ...SlotBinding) SlotPartMap {
	cp := make([]SlotBinding, len(bindings))
	copy(cp, bindings)
	return SlotPartMap{bindings: cp}
}

// SinglePartSlotPartMap is the single-slot-inference variant: an action with
// exactly one slot can be instantiated by naming only the part, letting the
// session infer the slot name from the action's signature.
type SinglePartSlotPartMap struct {
	PartName string
}

// Len returns the number of bindings in m.
func (m SlotPartMap) Len() int { return len(m.bindings) }

// At returns the binding at index i.
func (m SlotPartMap) At(i int) SlotBinding { return m.bindings[i] }

// Part returns the part bound to slot, and whether any binding names it.
// When slot appears more than once, the last (highest-index) binding wins.
func (m SlotPartMap) Part(slot string) (string, bool) {
	for i := len(m.bindings) - 1; i >= 0; i-- {
		if m.bindings[i].Slot == slot {
			return m.bindings[i].Part, true
		}
	}
	return "", false
}

// Equal reports whether m and other hold the same bindings in the same
// order.
func (m SlotPartMap) Equal(other SlotPartMap) bool {
	if len(m.bindings) != len(other.bindings) {
		return false
	}
	for i, b := range m.bindings {
		if b != other.bindings[i] {
			return false
		}
	}
	return true
}

// Hash returns an order-sensitive FNV-1a hash of m's bindings, suitable for
// use as a map key alongside Equal.
func (m SlotPartMap) Hash() uint64 {
	h := fnv.New64a()
	for _, b := range m.bindings {
		_, _ = h.Write([]byte(b.Slot))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(b.Part))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
