package rewardpool

import (
	"fmt"
	"math/big"
)

// CreatorPool is the custom-allocation variant: every entry is addressed at
// (participant, asset) so a creator can hand out fixed entitlements per value
// representation. It supports removal and an optional protocol fee.
type CreatorPool struct {
	*Pool
	books      map[string]*allocationBook
	assets     map[string]Asset
	assetOrder []string
}

// NewCreatorPool constructs the custom-allocation pool variant.
func NewCreatorPool(cfg PoolConfig) (*CreatorPool, error) {
	base, err := newPool(cfg)
	if err != nil {
		return nil, err
	}
	return &CreatorPool{
		Pool:   base,
		books:  make(map[string]*allocationBook),
		assets: make(map[string]Asset),
	}, nil
}

func (e *CreatorPool) allocationOf(participant [20]byte, asset Asset) (*big.Int, bool) {
	book, ok := e.books[asset.Key()]
	if !ok {
		return nil, false
	}
	return book.activeAllocation(participant)
}

func (e *CreatorPool) totalAllocationFor(asset Asset) *big.Int {
	book, ok := e.books[asset.Key()]
	if !ok {
		return big.NewInt(0)
	}
	return book.totalAllocation()
}

func (e *CreatorPool) ensureBookLocked(asset Asset) *allocationBook {
	key := asset.Key()
	book, ok := e.books[key]
	if !ok {
		book = newAllocationBook()
		e.books[key] = book
		e.assets[key] = asset
		e.assetOrder = append(e.assetOrder, key)
	}
	return book
}

func (e *CreatorPool) cloneBooksLocked() map[string]*allocationBook {
	out := make(map[string]*allocationBook, len(e.books))
	for key, book := range e.books {
		out[key] = book.clone()
	}
	return out
}

// AddAllocation registers a fixed entitlement weight for (participant, asset).
func (e *CreatorPool) AddAllocation(caller [20]byte, participant [20]byte, asset Asset, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutationAllowedLocked(caller); err != nil {
		return err
	}
	if err := asset.Validate(); err != nil {
		return err
	}
	book := e.ensureBookLocked(asset)
	if err := book.add(participant, amount); err != nil {
		return err
	}
	e.emit(ParticipantAddedEvent(hexAddr(e.id), hexAddr(participant), asset.Key(), amount.String(), book.total.String()))
	return nil
}

// AddAllocations is the batch form of AddAllocation; elements may target
// different assets. Either every element lands or none do.
func (e *CreatorPool) AddAllocations(caller [20]byte, participants [][20]byte, assets []Asset, amounts []*big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutationAllowedLocked(caller); err != nil {
		return err
	}
	if len(participants) == 0 {
		return ErrEmptyBatch
	}
	if len(participants) != len(assets) || len(participants) != len(amounts) {
		return ErrBatchLengthMismatch
	}
	scratch := e.cloneBooksLocked()
	for i := range participants {
		if err := assets[i].Validate(); err != nil {
			return fmt.Errorf("batch element %d: %w", i, err)
		}
		key := assets[i].Key()
		book, ok := scratch[key]
		if !ok {
			book = newAllocationBook()
			scratch[key] = book
		}
		if err := book.add(participants[i], amounts[i]); err != nil {
			return fmt.Errorf("batch element %d: %w", i, err)
		}
	}
	for i := range assets {
		key := assets[i].Key()
		if _, seen := e.assets[key]; !seen {
			e.assets[key] = assets[i]
			e.assetOrder = append(e.assetOrder, key)
		}
	}
	e.books = scratch
	for i := range participants {
		e.emit(ParticipantAddedEvent(hexAddr(e.id), hexAddr(participants[i]), assets[i].Key(), amounts[i].String(), e.books[assets[i].Key()].total.String()))
	}
	return nil
}

// UpdateAllocation replaces the weight for (participant, asset). Updating to
// zero soft-removes the entry.
func (e *CreatorPool) UpdateAllocation(caller [20]byte, participant [20]byte, asset Asset, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutationAllowedLocked(caller); err != nil {
		return err
	}
	if err := asset.Validate(); err != nil {
		return err
	}
	book, ok := e.books[asset.Key()]
	if !ok {
		return ErrParticipantNotFound
	}
	old, err := book.update(participant, amount)
	if err != nil {
		return err
	}
	e.emit(ParticipantUpdatedEvent(hexAddr(e.id), hexAddr(participant), asset.Key(), old.String(), amount.String(), book.total.String()))
	return nil
}

// UpdateAllocations applies a batch of updates atomically.
func (e *CreatorPool) UpdateAllocations(caller [20]byte, participants [][20]byte, assets []Asset, amounts []*big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutationAllowedLocked(caller); err != nil {
		return err
	}
	if len(participants) == 0 {
		return ErrEmptyBatch
	}
	if len(participants) != len(assets) || len(participants) != len(amounts) {
		return ErrBatchLengthMismatch
	}
	scratch := e.cloneBooksLocked()
	olds := make([]*big.Int, len(participants))
	for i := range participants {
		if err := assets[i].Validate(); err != nil {
			return fmt.Errorf("batch element %d: %w", i, err)
		}
		book, ok := scratch[assets[i].Key()]
		if !ok {
			return fmt.Errorf("batch element %d: %w", i, ErrParticipantNotFound)
		}
		old, err := book.update(participants[i], amounts[i])
		if err != nil {
			return fmt.Errorf("batch element %d: %w", i, err)
		}
		olds[i] = old
	}
	e.books = scratch
	for i := range participants {
		e.emit(ParticipantUpdatedEvent(hexAddr(e.id), hexAddr(participants[i]), assets[i].Key(), olds[i].String(), amounts[i].String(), e.books[assets[i].Key()].total.String()))
	}
	return nil
}

// RemoveAllocation soft-removes the (participant, asset) entry and zeroes its
// stored weight.
func (e *CreatorPool) RemoveAllocation(caller [20]byte, participant [20]byte, asset Asset) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutationAllowedLocked(caller); err != nil {
		return err
	}
	if err := asset.Validate(); err != nil {
		return err
	}
	book, ok := e.books[asset.Key()]
	if !ok {
		return ErrParticipantNotFound
	}
	removed, err := book.remove(participant)
	if err != nil {
		return err
	}
	e.emit(ParticipantRemovedEvent(hexAddr(e.id), hexAddr(participant), asset.Key(), removed.String(), book.total.String()))
	return nil
}

// RemoveAllocations applies a batch of removals atomically.
func (e *CreatorPool) RemoveAllocations(caller [20]byte, participants [][20]byte, assets []Asset) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutationAllowedLocked(caller); err != nil {
		return err
	}
	if len(participants) == 0 {
		return ErrEmptyBatch
	}
	if len(participants) != len(assets) {
		return ErrBatchLengthMismatch
	}
	scratch := e.cloneBooksLocked()
	removed := make([]*big.Int, len(participants))
	for i := range participants {
		if err := assets[i].Validate(); err != nil {
			return fmt.Errorf("batch element %d: %w", i, err)
		}
		book, ok := scratch[assets[i].Key()]
		if !ok {
			return fmt.Errorf("batch element %d: %w", i, ErrParticipantNotFound)
		}
		r, err := book.remove(participants[i])
		if err != nil {
			return fmt.Errorf("batch element %d: %w", i, err)
		}
		removed[i] = r
	}
	e.books = scratch
	for i := range participants {
		e.emit(ParticipantRemovedEvent(hexAddr(e.id), hexAddr(participants[i]), assets[i].Key(), removed[i].String(), e.books[assets[i].Key()].total.String()))
	}
	return nil
}

// Allocation returns a copy of the (participant, asset) entry, if one exists.
func (e *CreatorPool) Allocation(participant [20]byte, asset Asset) (*Entry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	book, ok := e.books[asset.Key()]
	if !ok {
		return nil, false
	}
	entry, ok := book.entry(participant)
	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

// Participants returns every entry booked against the asset in enumeration order.
func (e *CreatorPool) Participants(asset Asset) []*Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	book, ok := e.books[asset.Key()]
	if !ok {
		return nil
	}
	return book.list()
}

// TrackedAssets returns the assets with at least one booked entry, in the
// order they were first seen.
func (e *CreatorPool) TrackedAssets() []Asset {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Asset, 0, len(e.assetOrder))
	for _, key := range e.assetOrder {
		out = append(out, e.assets[key])
	}
	return out
}

// TotalAllocation returns the running sum of active weights for the asset.
func (e *CreatorPool) TotalAllocation(asset Asset) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalAllocationFor(asset)
}

// CheckEligibility recomputes whether a claim would succeed and for how much,
// without mutating anything.
func (e *CreatorPool) CheckEligibility(participant [20]byte, asset Asset) (*Eligibility, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkEligibilityLocked(e, participant, asset)
}

// Claim settles a direct claim; the caller must be the participant.
func (e *CreatorPool) Claim(caller [20]byte, req ClaimRequest, sig []byte) (*ClaimReceipt, error) {
	return e.claim(e, caller, req, sig, false)
}

// ClaimFor settles a relayed claim; the signature is the sole authorization
// and any caller may submit it.
func (e *CreatorPool) ClaimFor(caller [20]byte, req ClaimRequest, sig []byte) (*ClaimReceipt, error) {
	return e.claim(e, caller, req, sig, true)
}

// ValidateCapacity reports whether the live balance covers the asset's booked
// total. Advisory only: claims enforce availability individually.
func (e *CreatorPool) ValidateCapacity(asset Asset) (*CapacityReport, error) {
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateCapacityLocked(asset, e.totalAllocationFor(asset))
}
