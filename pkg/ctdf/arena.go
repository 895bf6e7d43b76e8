package ctdf

// Handle is a generational reference into an Arena. A handle whose slot has
// been freed or reused no longer resolves.
type Handle struct {
	Slot       uint32
	Generation uint32
}

// Valid reports whether the handle was ever issued. The zero Handle never is.
func (h Handle) Valid() bool {
	return h.Generation != 0
}

type arenaSlot[T any] struct {
	generation uint32
	value      *T
}

// Arena is a slot map of *T addressed by generational handles.
type Arena[T any] struct {
	slots []arenaSlot[T]
	free  []uint32
}

func (a *Arena[T]) Insert(value *T) Handle {
	if n := len(a.free); n > 0 {
		slot := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[slot].value = value
		a.slots[slot].generation++

		return Handle{Slot: slot, Generation: a.slots[slot].generation}
	}

	a.slots = append(a.slots, arenaSlot[T]{generation: 1, value: value})

	return Handle{Slot: uint32(len(a.slots) - 1), Generation: 1}
}

func (a *Arena[T]) Get(h Handle) (*T, bool) {
	if !h.Valid() || int(h.Slot) >= len(a.slots) {
		return nil, false
	}
	slot := a.slots[h.Slot]
	if slot.generation != h.Generation || slot.value == nil {
		return nil, false
	}

	return slot.value, true
}

func (a *Arena[T]) Alive(h Handle) bool {
	_, ok := a.Get(h)
	return ok
}

// Remove tombstones the slot. Removing a dead handle is a no-op.
func (a *Arena[T]) Remove(h Handle) {
	if !a.Alive(h) {
		return
	}
	a.slots[h.Slot].value = nil
	a.free = append(a.free, h.Slot)
}

func (a *Arena[T]) Len() int {
	return len(a.slots) - len(a.free)
}

// Clone copies the arena, keeping every handle valid, with copy producing
// the new values.
func (a *Arena[T]) Clone(copy func(*T) *T) Arena[T] {
	out := Arena[T]{
		slots: make([]arenaSlot[T], len(a.slots)),
		free:  append([]uint32(nil), a.free...),
	}
	for i, slot := range a.slots {
		out.slots[i].generation = slot.generation
		if slot.value != nil {
			out.slots[i].value = copy(slot.value)
		}
	}

	return out
}
