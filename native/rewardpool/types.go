package rewardpool

import (
	"encoding/hex"
	"math/big"
)

// AssetKind discriminates the value representations a pool can hold.
type AssetKind uint8

const (
	// AssetNative denotes the chain's native currency.
	AssetNative AssetKind = iota
	// AssetToken denotes a fungible token identified by its 20-byte contract id.
	AssetToken
)

func (k AssetKind) Valid() bool {
	return k == AssetNative || k == AssetToken
}

func (k AssetKind) String() string {
	switch k {
	case AssetNative:
		return "native"
	case AssetToken:
		return "token"
	default:
		return "unknown"
	}
}

// Asset is a tagged representation of a payable value type. The constructor
// functions enforce the kind/identifier pairing so a native asset can never
// carry a token id and a token asset can never carry the zero id.
type Asset struct {
	Kind  AssetKind `json:"kind"`
	Token [20]byte  `json:"token"`
}

// NativeAsset returns the native currency representation.
func NativeAsset() Asset {
	return Asset{Kind: AssetNative}
}

// TokenAsset returns the representation for the fungible token with the given id.
func TokenAsset(token [20]byte) (Asset, error) {
	if token == ([20]byte{}) {
		return Asset{}, ErrInvalidAsset
	}
	return Asset{Kind: AssetToken, Token: token}, nil
}

// Validate cross-checks the kind against the token identifier. Callers supply
// the two fields independently over the wire, so a mismatched pairing must be
// rejected before any balance or claim lookup keys off it.
func (a Asset) Validate() error {
	switch a.Kind {
	case AssetNative:
		if a.Token != ([20]byte{}) {
			return ErrInvalidAsset
		}
	case AssetToken:
		if a.Token == ([20]byte{}) {
			return ErrInvalidAsset
		}
	default:
		return ErrInvalidAsset
	}
	return nil
}

// Key returns the stable map key for the asset.
func (a Asset) Key() string {
	if a.Kind == AssetNative {
		return "native"
	}
	return "token:" + hex.EncodeToString(a.Token[:])
}

func (a Asset) String() string { return a.Key() }

// Entry records one participant's allocation weight. Entries are never
// physically deleted: removal flips Active and zeroes the weight so historical
// enumeration order stays stable.
type Entry struct {
	Participant [20]byte `json:"participant"`
	Allocation  *big.Int `json:"allocation"`
	Active      bool     `json:"active"`
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	if e.Allocation != nil {
		out.Allocation = new(big.Int).Set(e.Allocation)
	} else {
		out.Allocation = big.NewInt(0)
	}
	return &out
}

// NonceState tracks the authorization nonces consumed by one participant. A
// nonce authorizes exactly one claim across all assets.
type NonceState struct {
	Used          map[uint64]bool `json:"used"`
	HighWatermark uint64          `json:"highWatermark"`
}

// NextNonce returns the advisory next nonce. The signing authority may bind a
// signature to any unused nonce, not necessarily this one.
func (n *NonceState) NextNonce() uint64 {
	if n == nil {
		return 1
	}
	return n.HighWatermark + 1
}

// Clone returns a deep copy of the nonce state.
func (n *NonceState) Clone() *NonceState {
	if n == nil {
		return nil
	}
	out := &NonceState{HighWatermark: n.HighWatermark, Used: make(map[uint64]bool, len(n.Used))}
	for k, v := range n.Used {
		out.Used[k] = v
	}
	return out
}

// ClaimRequest is the payload a signing authority authorizes. The digest binds
// it to a scheme version, chain id and pool id so a signature cannot be
// replayed against another pool or chain.
type ClaimRequest struct {
	Participant [20]byte `json:"participant"`
	Nonce       uint64   `json:"nonce"`
	Asset       Asset    `json:"asset"`
}

// ClaimReceipt summarises a settled claim.
type ClaimReceipt struct {
	Participant     [20]byte `json:"participant"`
	Asset           Asset    `json:"asset"`
	Nonce           uint64   `json:"nonce"`
	Gross           *big.Int `json:"gross"`
	Fee             *big.Int `json:"fee"`
	Net             *big.Int `json:"net"`
	Allocation      *big.Int `json:"allocation"`
	TotalAllocation *big.Int `json:"totalAllocation"`
}

// Eligibility is the result of a read-only claim pre-check.
type Eligibility struct {
	Gross *big.Int `json:"gross"`
	Fee   *big.Int `json:"fee"`
	Net   *big.Int `json:"net"`
}

// CapacityReport compares the booked allocations against the live balance for
// one asset. It is advisory: claims enforce availability individually.
type CapacityReport struct {
	Asset           Asset    `json:"asset"`
	TotalAllocation *big.Int `json:"totalAllocation"`
	LiveBalance     *big.Int `json:"liveBalance"`
	Covered         bool     `json:"covered"`
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
