package rewardpool

import (
	"fmt"
	"math/big"
)

// allocationView is how the shared claim path reads allocations. The
// proportional pool serves one global book regardless of asset; the creator
// pool serves the book scoped to the requested asset. Reusing one code path
// for the eligibility pre-check and the real claim keeps the two from
// drifting apart.
type allocationView interface {
	allocationOf(participant [20]byte, asset Asset) (*big.Int, bool)
	totalAllocationFor(asset Asset) *big.Int
}

// checkEligibilityLocked recomputes, without mutating anything, whether a
// claim for (participant, asset) would succeed and for how much.
func (p *Pool) checkEligibilityLocked(view allocationView, participant [20]byte, asset Asset) (*Eligibility, error) {
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	if !p.active {
		return nil, ErrPoolInactive
	}
	if !p.snapshotTaken {
		return nil, ErrNoSnapshot
	}
	allocation, ok := view.allocationOf(participant, asset)
	if !ok {
		return nil, ErrParticipantNotFound
	}
	total := view.totalAllocationFor(asset)
	if total.Sign() == 0 || allocation.Sign() == 0 {
		return nil, ErrNoAllocation
	}
	if p.isClaimedLocked(participant, asset) {
		return nil, ErrAlreadyClaimed
	}

	gross := proportionalShare(p.snapshotAmountLocked(asset), allocation, total)
	fee := protocolFee(gross, p.feeBps)
	if gross.Sign() > 0 {
		live, err := p.mover.BalanceOf(asset)
		if err != nil {
			return nil, fmt.Errorf("rewardpool: query live balance: %w", err)
		}
		if live.Cmp(gross) < 0 {
			return nil, ErrInsufficientFunds
		}
	}
	return &Eligibility{
		Gross: gross,
		Fee:   fee,
		Net:   new(big.Int).Sub(gross, fee),
	}, nil
}

// claim settles one signature-authorized claim. The caller identity binds the
// direct path; the relayed path trusts the signature alone. The claimed flag
// and nonce are recorded before the external transfer legs run and rolled
// back in full when either leg fails, so a reentrant call can never observe
// an unclaimed pair mid-transfer.
func (p *Pool) claim(view allocationView, caller [20]byte, req ClaimRequest, sig []byte, relayed bool) (*ClaimReceipt, error) {
	p.mu.Lock()
	if p.inClaim {
		p.mu.Unlock()
		return nil, ErrReentrantCall
	}
	if !p.active {
		p.mu.Unlock()
		return nil, ErrPoolInactive
	}
	if !relayed && caller != req.Participant {
		p.mu.Unlock()
		return nil, ErrNotParticipant
	}
	if err := req.Asset.Validate(); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	if p.isClaimedLocked(req.Participant, req.Asset) {
		p.mu.Unlock()
		return nil, ErrAlreadyClaimed
	}

	signer, err := RecoverClaimSigner(p.chainID, p.id, req, sig)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	if !p.signers[signer] {
		p.mu.Unlock()
		return nil, ErrSignerNotAuthorized
	}
	nonces := p.ensureNonceLocked(req.Participant)
	if nonces.Used[req.Nonce] {
		p.mu.Unlock()
		return nil, ErrNonceUsed
	}

	eligibility, err := p.checkEligibilityLocked(view, req.Participant, req.Asset)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	if eligibility.Gross.Sign() == 0 {
		p.mu.Unlock()
		return nil, ErrNoAllocation
	}
	allocation, _ := view.allocationOf(req.Participant, req.Asset)
	total := view.totalAllocationFor(req.Asset)

	p.markClaimedLocked(req.Participant, req.Asset)
	nonces.Used[req.Nonce] = true
	p.inClaim = true
	p.mu.Unlock()

	transferErr := error(nil)
	if eligibility.Net.Sign() > 0 {
		transferErr = p.mover.Transfer(req.Asset, req.Participant, eligibility.Net)
	}
	if transferErr == nil && eligibility.Fee.Sign() > 0 {
		transferErr = p.mover.Transfer(req.Asset, p.feeRecipient, eligibility.Fee)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inClaim = false
	if transferErr != nil {
		p.unmarkClaimedLocked(req.Participant, req.Asset)
		delete(nonces.Used, req.Nonce)
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, transferErr)
	}

	if req.Nonce > nonces.HighWatermark {
		nonces.HighWatermark = req.Nonce
	}
	p.accumulateClaimedLocked(req.Asset, eligibility.Gross, eligibility.Fee)
	receipt := &ClaimReceipt{
		Participant:     req.Participant,
		Asset:           req.Asset,
		Nonce:           req.Nonce,
		Gross:           copyBigInt(eligibility.Gross),
		Fee:             copyBigInt(eligibility.Fee),
		Net:             copyBigInt(eligibility.Net),
		Allocation:      allocation,
		TotalAllocation: total,
	}
	p.emit(RewardClaimedEvent(hexAddr(p.id), hexAddr(req.Participant), req.Asset.Key(), receipt))
	return receipt, nil
}
