package rewardpool

import (
	"fmt"
	"math/big"
)

// globalScope labels the proportional pool's single allocation book in events.
const globalScope = "global"

// ProportionalPool distributes snapshots in proportion to a single global
// allocation book, typically fed from off-chain XP totals. It carries no
// protocol fee.
type ProportionalPool struct {
	*Pool
	book *allocationBook
}

// NewProportionalPool constructs the XP-proportional pool variant.
func NewProportionalPool(cfg PoolConfig) (*ProportionalPool, error) {
	if cfg.FeeBps != 0 {
		return nil, ErrInvalidFee
	}
	base, err := newPool(cfg)
	if err != nil {
		return nil, err
	}
	return &ProportionalPool{Pool: base, book: newAllocationBook()}, nil
}

// allocationOf implements allocationView; the book is global, so the asset is
// irrelevant to the lookup.
func (e *ProportionalPool) allocationOf(participant [20]byte, _ Asset) (*big.Int, bool) {
	return e.book.activeAllocation(participant)
}

func (e *ProportionalPool) totalAllocationFor(_ Asset) *big.Int {
	return e.book.totalAllocation()
}

// AddParticipant registers a participant's weight. Rejected while active.
func (e *ProportionalPool) AddParticipant(caller [20]byte, participant [20]byte, allocation *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutationAllowedLocked(caller); err != nil {
		return err
	}
	if err := e.book.add(participant, allocation); err != nil {
		return err
	}
	e.emit(ParticipantAddedEvent(hexAddr(e.id), hexAddr(participant), globalScope, allocation.String(), e.book.total.String()))
	return nil
}

// AddParticipants is the batch form of AddParticipant. The whole batch is
// validated by applying it to a scratch copy of the book; either every element
// lands or none do.
func (e *ProportionalPool) AddParticipants(caller [20]byte, participants [][20]byte, allocations []*big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutationAllowedLocked(caller); err != nil {
		return err
	}
	if len(participants) == 0 {
		return ErrEmptyBatch
	}
	if len(participants) != len(allocations) {
		return ErrBatchLengthMismatch
	}
	scratch := e.book.clone()
	for i := range participants {
		if err := scratch.add(participants[i], allocations[i]); err != nil {
			return fmt.Errorf("batch element %d: %w", i, err)
		}
	}
	e.book = scratch
	for i := range participants {
		e.emit(ParticipantAddedEvent(hexAddr(e.id), hexAddr(participants[i]), globalScope, allocations[i].String(), e.book.total.String()))
	}
	return nil
}

// UpdateParticipant replaces a participant's weight. Updating to zero
// soft-removes the entry.
func (e *ProportionalPool) UpdateParticipant(caller [20]byte, participant [20]byte, allocation *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutationAllowedLocked(caller); err != nil {
		return err
	}
	old, err := e.book.update(participant, allocation)
	if err != nil {
		return err
	}
	e.emit(ParticipantUpdatedEvent(hexAddr(e.id), hexAddr(participant), globalScope, old.String(), allocation.String(), e.book.total.String()))
	return nil
}

// UpdateParticipants applies a batch of weight updates atomically. Mixed
// increases and decreases accumulate through the book's signed big.Int total,
// so the final total equals sequential single-entry application exactly.
func (e *ProportionalPool) UpdateParticipants(caller [20]byte, participants [][20]byte, allocations []*big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutationAllowedLocked(caller); err != nil {
		return err
	}
	if len(participants) == 0 {
		return ErrEmptyBatch
	}
	if len(participants) != len(allocations) {
		return ErrBatchLengthMismatch
	}
	scratch := e.book.clone()
	olds := make([]*big.Int, len(participants))
	for i := range participants {
		old, err := scratch.update(participants[i], allocations[i])
		if err != nil {
			return fmt.Errorf("batch element %d: %w", i, err)
		}
		olds[i] = old
	}
	e.book = scratch
	for i := range participants {
		e.emit(ParticipantUpdatedEvent(hexAddr(e.id), hexAddr(participants[i]), globalScope, olds[i].String(), allocations[i].String(), e.book.total.String()))
	}
	return nil
}

// Penalize reduces a participant's weight by up to delta, clamping at zero.
func (e *ProportionalPool) Penalize(caller [20]byte, participant [20]byte, delta *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutationAllowedLocked(caller); err != nil {
		return err
	}
	removed, newAllocation, err := e.book.penalize(participant, delta)
	if err != nil {
		return err
	}
	e.emit(ParticipantPenalizedEvent(hexAddr(e.id), hexAddr(participant), removed.String(), newAllocation.String(), e.book.total.String()))
	return nil
}

// PenalizeBatch applies a batch of penalties atomically.
func (e *ProportionalPool) PenalizeBatch(caller [20]byte, participants [][20]byte, deltas []*big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutationAllowedLocked(caller); err != nil {
		return err
	}
	if len(participants) == 0 {
		return ErrEmptyBatch
	}
	if len(participants) != len(deltas) {
		return ErrBatchLengthMismatch
	}
	scratch := e.book.clone()
	removed := make([]*big.Int, len(participants))
	remaining := make([]*big.Int, len(participants))
	for i := range participants {
		r, n, err := scratch.penalize(participants[i], deltas[i])
		if err != nil {
			return fmt.Errorf("batch element %d: %w", i, err)
		}
		removed[i], remaining[i] = r, n
	}
	e.book = scratch
	for i := range participants {
		e.emit(ParticipantPenalizedEvent(hexAddr(e.id), hexAddr(participants[i]), removed[i].String(), remaining[i].String(), e.book.total.String()))
	}
	return nil
}

// Allocation returns a copy of the participant's entry, if one exists.
func (e *ProportionalPool) Allocation(participant [20]byte) (*Entry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.book.entry(participant)
	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

// Participants returns every entry, active or removed, in enumeration order.
func (e *ProportionalPool) Participants() []*Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.list()
}

// TotalAllocation returns the running sum of active weights.
func (e *ProportionalPool) TotalAllocation() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.totalAllocation()
}

// CheckEligibility recomputes whether a claim would succeed and for how much,
// without mutating anything.
func (e *ProportionalPool) CheckEligibility(participant [20]byte, asset Asset) (*Eligibility, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkEligibilityLocked(e, participant, asset)
}

// Claim settles a direct claim; the caller must be the participant.
func (e *ProportionalPool) Claim(caller [20]byte, req ClaimRequest, sig []byte) (*ClaimReceipt, error) {
	return e.claim(e, caller, req, sig, false)
}

// ClaimFor settles a relayed claim; the signature is the sole authorization
// and any caller may submit it.
func (e *ProportionalPool) ClaimFor(caller [20]byte, req ClaimRequest, sig []byte) (*ClaimReceipt, error) {
	return e.claim(e, caller, req, sig, true)
}

// ValidateCapacity reports whether the live balance covers the booked total.
// Advisory only: claims enforce availability individually.
func (e *ProportionalPool) ValidateCapacity(asset Asset) (*CapacityReport, error) {
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateCapacityLocked(asset, e.book.total)
}
