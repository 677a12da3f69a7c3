package rewardpool

import "math/big"

// allocationBook is the append-only participant ledger behind a pool. Entries
// are soft-deleted so enumeration order and audit history survive removal, and
// the running total always equals the sum of active allocations.
type allocationBook struct {
	order   [][20]byte
	entries map[[20]byte]*Entry
	total   *big.Int
}

func newAllocationBook() *allocationBook {
	return &allocationBook{
		entries: make(map[[20]byte]*Entry),
		total:   big.NewInt(0),
	}
}

func (b *allocationBook) entry(addr [20]byte) (*Entry, bool) {
	e, ok := b.entries[addr]
	return e, ok
}

// activeAllocation returns the participant's weight when they hold an active entry.
func (b *allocationBook) activeAllocation(addr [20]byte) (*big.Int, bool) {
	e, ok := b.entries[addr]
	if !ok || !e.Active {
		return nil, false
	}
	return copyBigInt(e.Allocation), true
}

func (b *allocationBook) totalAllocation() *big.Int {
	return copyBigInt(b.total)
}

// list returns clones of every entry, active or not, in enumeration order.
func (b *allocationBook) list() []*Entry {
	out := make([]*Entry, 0, len(b.order))
	for _, addr := range b.order {
		if e, ok := b.entries[addr]; ok {
			out = append(out, e.Clone())
		}
	}
	return out
}

// add creates an entry for the participant or revives a previously removed
// one. Revival reuses the original enumeration slot.
func (b *allocationBook) add(addr [20]byte, allocation *big.Int) error {
	if isZeroAddress(addr) {
		return ErrZeroAddress
	}
	if allocation == nil || allocation.Sign() <= 0 {
		return ErrZeroAllocation
	}
	existing, ok := b.entries[addr]
	if ok && existing.Active {
		return ErrParticipantExists
	}
	if ok {
		existing.Allocation = copyBigInt(allocation)
		existing.Active = true
	} else {
		b.entries[addr] = &Entry{
			Participant: addr,
			Allocation:  copyBigInt(allocation),
			Active:      true,
		}
		b.order = append(b.order, addr)
	}
	b.total = new(big.Int).Add(b.total, allocation)
	return nil
}

// update replaces the participant's weight and returns the previous value.
// Updating to zero soft-removes the entry but keeps the stored weight for the
// audit trail.
func (b *allocationBook) update(addr [20]byte, allocation *big.Int) (*big.Int, error) {
	if allocation == nil || allocation.Sign() < 0 {
		return nil, ErrZeroAllocation
	}
	existing, ok := b.entries[addr]
	if !ok || !existing.Active {
		return nil, ErrParticipantNotFound
	}
	old := copyBigInt(existing.Allocation)
	// Signed delta on the unsigned total: big.Int carries the sign, and the
	// result cannot go negative because old is part of the current total.
	b.total = new(big.Int).Add(b.total, new(big.Int).Sub(allocation, old))
	if allocation.Sign() == 0 {
		existing.Active = false
	} else {
		existing.Allocation = copyBigInt(allocation)
	}
	return old, nil
}

// remove soft-deletes the entry and zeroes its stored weight.
func (b *allocationBook) remove(addr [20]byte) (*big.Int, error) {
	existing, ok := b.entries[addr]
	if !ok || !existing.Active {
		return nil, ErrParticipantNotFound
	}
	removed := copyBigInt(existing.Allocation)
	b.total = new(big.Int).Sub(b.total, removed)
	existing.Allocation = big.NewInt(0)
	existing.Active = false
	return removed, nil
}

// penalize reduces the participant's weight by up to delta, clamping at zero,
// and returns the amount actually removed alongside the new weight.
func (b *allocationBook) penalize(addr [20]byte, delta *big.Int) (*big.Int, *big.Int, error) {
	if delta == nil || delta.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	existing, ok := b.entries[addr]
	if !ok || !existing.Active {
		return nil, nil, ErrParticipantNotFound
	}
	actual := copyBigInt(delta)
	if actual.Cmp(existing.Allocation) > 0 {
		actual = copyBigInt(existing.Allocation)
	}
	newAllocation := new(big.Int).Sub(existing.Allocation, actual)
	b.total = new(big.Int).Sub(b.total, actual)
	if newAllocation.Sign() == 0 {
		existing.Active = false
	}
	existing.Allocation = newAllocation
	return actual, copyBigInt(newAllocation), nil
}

// clone deep-copies the book. Batch operations validate and apply against a
// clone so a failed element leaves the live book untouched.
func (b *allocationBook) clone() *allocationBook {
	out := &allocationBook{
		order:   make([][20]byte, len(b.order)),
		entries: make(map[[20]byte]*Entry, len(b.entries)),
		total:   copyBigInt(b.total),
	}
	copy(out.order, b.order)
	for addr, e := range b.entries {
		out.entries[addr] = e.Clone()
	}
	return out
}
