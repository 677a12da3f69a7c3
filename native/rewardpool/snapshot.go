package rewardpool

import (
	"fmt"
	"math/big"
	"strings"
)

// SnapshotNative freezes the pool's current native balance as the basis for
// subsequent claim computations. Re-invoking overwrites the prior native
// snapshot; token snapshots are left untouched.
func (p *Pool) SnapshotNative(caller [20]byte) error {
	return p.snapshot(caller, nil)
}

// Snapshot freezes the native balance and the balance of every listed token.
// Only the representations touched are overwritten. A snapshot reserves
// nothing: claims always re-check the live balance before paying out.
func (p *Pool) Snapshot(caller [20]byte, tokens [][20]byte) error {
	assets := make([]Asset, 0, len(tokens))
	for _, token := range tokens {
		asset, err := TokenAsset(token)
		if err != nil {
			return err
		}
		assets = append(assets, asset)
	}
	return p.snapshot(caller, assets)
}

func (p *Pool) snapshot(caller [20]byte, tokenAssets []Asset) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.operatorOnlyLocked(caller); err != nil {
		return err
	}

	native, err := p.mover.BalanceOf(NativeAsset())
	if err != nil {
		return fmt.Errorf("rewardpool: query native balance: %w", err)
	}
	amounts := map[string]*big.Int{NativeAsset().Key(): copyBigInt(native)}
	tokenKeys := make([]string, 0, len(tokenAssets))
	for _, asset := range tokenAssets {
		balance, err := p.mover.BalanceOf(asset)
		if err != nil {
			return fmt.Errorf("rewardpool: query %s balance: %w", asset, err)
		}
		amounts[asset.Key()] = copyBigInt(balance)
		tokenKeys = append(tokenKeys, asset.Key())
	}

	for key, amount := range amounts {
		p.snapshots[key] = amount
	}
	p.snapshotTaken = true
	p.emit(SnapshotTakenEvent(hexAddr(p.id), native.String(), strings.Join(tokenKeys, ",")))
	return nil
}
