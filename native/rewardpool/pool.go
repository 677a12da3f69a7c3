package rewardpool

import (
	"math/big"
	"sync"

	"rewardhub/core/events"
)

// ValueMover abstracts the value held by a pool: live balance queries and
// outbound transfers. A failed Transfer call must move nothing.
type ValueMover interface {
	BalanceOf(asset Asset) (*big.Int, error)
	Transfer(asset Asset, to [20]byte, amount *big.Int) error
}

// PoolConfig carries the construction parameters shared by both pool variants.
type PoolConfig struct {
	// ID is the pool's address, bound into every claim digest.
	ID [20]byte
	// ChainID scopes claim signatures to one deployment.
	ChainID uint64
	// Operator is the sole identity allowed to mutate allocations, snapshot
	// and toggle activation.
	Operator [20]byte
	// Mover provides balances and transfers for the pool's held value.
	Mover ValueMover
	// Emitter receives domain events. Nil falls back to a no-op emitter.
	Emitter events.Emitter
	// FeeBps is the protocol fee in basis points (0..1000).
	FeeBps uint64
	// FeeRecipient receives the protocol fee. Required when FeeBps > 0.
	FeeRecipient [20]byte
	// Signers seeds the claim-authority set.
	Signers [][20]byte
}

// Pool holds the state shared by the proportional and creator variants: the
// activation gate, signer authority, snapshot amounts, claim records and
// nonce bookkeeping. All entrypoints serialize on one mutex; the inClaim flag
// additionally rejects reentrant calls arriving through a transfer callback
// while the mutex is released for the external leg.
type Pool struct {
	mu      sync.Mutex
	id      [20]byte
	chainID uint64

	operator [20]byte
	mover    ValueMover
	emitter  events.Emitter

	active  bool
	inClaim bool

	signers map[[20]byte]bool

	feeBps       uint64
	feeRecipient [20]byte

	snapshotTaken bool
	snapshots     map[string]*big.Int

	claimed      map[string]map[[20]byte]bool
	totalClaimed map[string]*big.Int
	totalFees    map[string]*big.Int
	nonces       map[[20]byte]*NonceState
}

func newPool(cfg PoolConfig) (*Pool, error) {
	if isZeroAddress(cfg.Operator) {
		return nil, ErrZeroAddress
	}
	if cfg.Mover == nil {
		return nil, ErrMoverRequired
	}
	if cfg.FeeBps > maxFeeBps {
		return nil, ErrInvalidFee
	}
	if cfg.FeeBps > 0 && isZeroAddress(cfg.FeeRecipient) {
		return nil, ErrZeroAddress
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	p := &Pool{
		id:           cfg.ID,
		chainID:      cfg.ChainID,
		operator:     cfg.Operator,
		mover:        cfg.Mover,
		emitter:      emitter,
		signers:      make(map[[20]byte]bool, len(cfg.Signers)),
		feeBps:       cfg.FeeBps,
		feeRecipient: cfg.FeeRecipient,
		snapshots:    make(map[string]*big.Int),
		claimed:      make(map[string]map[[20]byte]bool),
		totalClaimed: make(map[string]*big.Int),
		totalFees:    make(map[string]*big.Int),
		nonces:       make(map[[20]byte]*NonceState),
	}
	for _, signer := range cfg.Signers {
		if isZeroAddress(signer) {
			return nil, ErrZeroAddress
		}
		p.signers[signer] = true
	}
	return p, nil
}

func (p *Pool) emit(evt *Event) {
	if evt == nil || p.emitter == nil {
		return
	}
	p.emitter.Emit(evt)
}

// operatorOnlyLocked gates entrypoints available in any activation state.
func (p *Pool) operatorOnlyLocked(caller [20]byte) error {
	if p.inClaim {
		return ErrReentrantCall
	}
	if caller != p.operator {
		return ErrNotOperator
	}
	return nil
}

// mutationAllowedLocked gates allocation mutations: operator-only and only
// while the pool is inactive.
func (p *Pool) mutationAllowedLocked(caller [20]byte) error {
	if err := p.operatorOnlyLocked(caller); err != nil {
		return err
	}
	if p.active {
		return ErrPoolActive
	}
	return nil
}

// Activate switches the pool into claim mode. Allocation mutation is rejected
// until the pool is deactivated again.
func (p *Pool) Activate(caller [20]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.operatorOnlyLocked(caller); err != nil {
		return err
	}
	if p.active {
		return ErrPoolActive
	}
	p.active = true
	p.emit(PoolActivatedEvent(hexAddr(p.id)))
	return nil
}

// Deactivate switches the pool back into mutation mode.
func (p *Pool) Deactivate(caller [20]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.operatorOnlyLocked(caller); err != nil {
		return err
	}
	if !p.active {
		return ErrPoolInactive
	}
	p.active = false
	p.emit(PoolDeactivatedEvent(hexAddr(p.id)))
	return nil
}

// AddSigner grants claim-signing authority to the address.
func (p *Pool) AddSigner(caller [20]byte, signer [20]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.operatorOnlyLocked(caller); err != nil {
		return err
	}
	if isZeroAddress(signer) {
		return ErrZeroAddress
	}
	p.signers[signer] = true
	p.emit(SignerAddedEvent(hexAddr(p.id), hexAddr(signer)))
	return nil
}

// RemoveSigner revokes claim-signing authority from the address.
func (p *Pool) RemoveSigner(caller [20]byte, signer [20]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.operatorOnlyLocked(caller); err != nil {
		return err
	}
	if !p.signers[signer] {
		return ErrParticipantNotFound
	}
	delete(p.signers, signer)
	p.emit(SignerRemovedEvent(hexAddr(p.id), hexAddr(signer)))
	return nil
}

// SetFeeRecipient redirects future protocol fees.
func (p *Pool) SetFeeRecipient(caller [20]byte, recipient [20]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.operatorOnlyLocked(caller); err != nil {
		return err
	}
	if p.feeBps > 0 && isZeroAddress(recipient) {
		return ErrZeroAddress
	}
	p.feeRecipient = recipient
	p.emit(FeeRecipientUpdatedEvent(hexAddr(p.id), hexAddr(recipient)))
	return nil
}

func (p *Pool) ensureNonceLocked(participant [20]byte) *NonceState {
	ns, ok := p.nonces[participant]
	if !ok {
		ns = &NonceState{Used: make(map[uint64]bool)}
		p.nonces[participant] = ns
	}
	return ns
}

func (p *Pool) isClaimedLocked(participant [20]byte, asset Asset) bool {
	byAsset, ok := p.claimed[asset.Key()]
	if !ok {
		return false
	}
	return byAsset[participant]
}

func (p *Pool) markClaimedLocked(participant [20]byte, asset Asset) {
	byAsset, ok := p.claimed[asset.Key()]
	if !ok {
		byAsset = make(map[[20]byte]bool)
		p.claimed[asset.Key()] = byAsset
	}
	byAsset[participant] = true
}

func (p *Pool) unmarkClaimedLocked(participant [20]byte, asset Asset) {
	if byAsset, ok := p.claimed[asset.Key()]; ok {
		delete(byAsset, participant)
	}
}

func (p *Pool) snapshotAmountLocked(asset Asset) *big.Int {
	return copyBigInt(p.snapshots[asset.Key()])
}

func (p *Pool) accumulateClaimedLocked(asset Asset, gross, fee *big.Int) {
	key := asset.Key()
	p.totalClaimed[key] = new(big.Int).Add(copyBigInt(p.totalClaimed[key]), gross)
	if fee != nil && fee.Sign() > 0 {
		p.totalFees[key] = new(big.Int).Add(copyBigInt(p.totalFees[key]), fee)
	}
}
