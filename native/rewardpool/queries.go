package rewardpool

import (
	"fmt"
	"math/big"
)

// ID returns the pool's address.
func (p *Pool) ID() [20]byte { return p.id }

// ChainID returns the deployment chain the pool's claim signatures bind to.
func (p *Pool) ChainID() uint64 { return p.chainID }

// Operator returns the privileged administrative identity.
func (p *Pool) Operator() [20]byte { return p.operator }

// Active reports whether the pool currently accepts claims.
func (p *Pool) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// FeeBps returns the protocol fee rate in basis points.
func (p *Pool) FeeBps() uint64 { return p.feeBps }

// FeeRecipient returns the current fee destination.
func (p *Pool) FeeRecipient() [20]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feeRecipient
}

// HasSigner reports whether the address holds claim-signing authority.
func (p *Pool) HasSigner(addr [20]byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signers[addr]
}

// SnapshotTaken reports whether any snapshot has been recorded.
func (p *Pool) SnapshotTaken() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotTaken
}

// SnapshotAmount returns the frozen distributable amount for the asset, zero
// when the representation has never been snapshotted.
func (p *Pool) SnapshotAmount(asset Asset) (*big.Int, error) {
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotAmountLocked(asset), nil
}

// LiveBalance returns the pool's current balance for the asset.
func (p *Pool) LiveBalance(asset Asset) (*big.Int, error) {
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	balance, err := p.mover.BalanceOf(asset)
	if err != nil {
		return nil, fmt.Errorf("rewardpool: query live balance: %w", err)
	}
	return copyBigInt(balance), nil
}

// Claimed reports whether the participant already claimed the asset.
func (p *Pool) Claimed(participant [20]byte, asset Asset) (bool, error) {
	if err := asset.Validate(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isClaimedLocked(participant, asset), nil
}

// TotalClaimed returns the running sum of gross payouts for the asset,
// including emergency withdrawals.
func (p *Pool) TotalClaimed(asset Asset) (*big.Int, error) {
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyBigInt(p.totalClaimed[asset.Key()]), nil
}

// TotalFees returns the running sum of protocol fees collected for the asset.
func (p *Pool) TotalFees(asset Asset) (*big.Int, error) {
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyBigInt(p.totalFees[asset.Key()]), nil
}

// NonceInfo returns a copy of the participant's nonce bookkeeping.
func (p *Pool) NonceInfo(participant [20]byte) *NonceState {
	p.mu.Lock()
	defer p.mu.Unlock()
	ns, ok := p.nonces[participant]
	if !ok {
		return &NonceState{Used: map[uint64]bool{}}
	}
	return ns.Clone()
}

// NextNonce returns the advisory next nonce for the participant.
func (p *Pool) NextNonce(participant [20]byte) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nonces[participant].NextNonce()
}

// validateCapacityLocked builds the advisory allocation-vs-balance report.
func (p *Pool) validateCapacityLocked(asset Asset, total *big.Int) (*CapacityReport, error) {
	live, err := p.mover.BalanceOf(asset)
	if err != nil {
		return nil, fmt.Errorf("rewardpool: query live balance: %w", err)
	}
	return &CapacityReport{
		Asset:           asset,
		TotalAllocation: copyBigInt(total),
		LiveBalance:     copyBigInt(live),
		Covered:         live.Cmp(total) >= 0,
	}, nil
}
