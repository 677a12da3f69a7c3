package rewardpool

import "math/big"

// feeDenominator is the fixed basis-point denominator for protocol fees.
const feeDenominator = 10_000

// maxFeeBps caps the protocol fee at 10%.
const maxFeeBps = 1_000

// proportionalShare computes floor(snapshot * allocation / total). big.Int
// keeps the intermediate product exact, so the floor division never loses
// precision regardless of magnitude.
func proportionalShare(snapshot, allocation, total *big.Int) *big.Int {
	if snapshot == nil || allocation == nil || total == nil {
		return big.NewInt(0)
	}
	if snapshot.Sign() <= 0 || allocation.Sign() <= 0 || total.Sign() <= 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(snapshot, allocation)
	return share.Div(share, total)
}

// protocolFee computes floor(gross * feeBps / 10000).
func protocolFee(gross *big.Int, feeBps uint64) *big.Int {
	if gross == nil || gross.Sign() <= 0 || feeBps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(gross, new(big.Int).SetUint64(feeBps))
	return fee.Div(fee, big.NewInt(feeDenominator))
}
