package config

import "sync/atomic"

// Slot holds the latest published Snapshot. Publish overwrites any unread value;
// Latest never blocks and always returns a whole snapshot.
type Slot struct {
	current atomic.Pointer[Snapshot]
	gen     atomic.Uint64
}

// NewSlot returns a slot holding initial.
func NewSlot(initial *Snapshot) *Slot {
	s := &Slot{}
	s.Publish(initial)
	return s
}

// Publish stamps snap with the next generation and makes it visible to readers.
// snap must not be modified afterwards.
func (s *Slot) Publish(snap *Snapshot) {
	if snap == nil {
		return
	}
	snap.Generation = s.gen.Add(1)
	s.current.Store(snap)
}

// Latest returns the most recently published snapshot, or nil if none was published.
func (s *Slot) Latest() *Snapshot {
	return s.current.Load()
}
