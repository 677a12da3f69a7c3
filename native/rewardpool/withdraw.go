package rewardpool

import (
	"fmt"
	"math/big"
)

// EmergencyWithdraw lets the operator drain funds while the pool is inactive.
// The amount is folded into the claimed totals so total claimed plus the
// remaining balance still reconciles against inflows. Active pools reject the
// call outright to protect in-flight distributions.
func (p *Pool) EmergencyWithdraw(caller [20]byte, asset Asset, to [20]byte, amount *big.Int) error {
	p.mu.Lock()
	if err := p.operatorOnlyLocked(caller); err != nil {
		p.mu.Unlock()
		return err
	}
	if p.active {
		p.mu.Unlock()
		return ErrPoolActive
	}
	if err := asset.Validate(); err != nil {
		p.mu.Unlock()
		return err
	}
	if isZeroAddress(to) {
		p.mu.Unlock()
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		p.mu.Unlock()
		return ErrInvalidAmount
	}
	live, err := p.mover.BalanceOf(asset)
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("rewardpool: query live balance: %w", err)
	}
	if live.Cmp(amount) < 0 {
		p.mu.Unlock()
		return ErrInsufficientFunds
	}
	p.inClaim = true
	p.mu.Unlock()

	transferErr := p.mover.Transfer(asset, to, amount)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inClaim = false
	if transferErr != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, transferErr)
	}
	p.accumulateClaimedLocked(asset, copyBigInt(amount), nil)
	p.emit(EmergencyWithdrawalEvent(hexAddr(p.id), asset.Key(), hexAddr(to), amount.String()))
	return nil
}
