package factory

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"rewardhub/core/events"
	"rewardhub/native/bank"
	"rewardhub/native/rewardpool"
	"rewardhub/storage"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrPoolNotFound = errors.New("factory: pool not found")
	ErrWrongKind    = errors.New("factory: pool kind mismatch")
)

// PoolKind discriminates the two deployable pool variants.
type PoolKind string

const (
	KindProportional PoolKind = "proportional"
	KindCreator      PoolKind = "creator"
)

// Record is the registry entry for a deployed pool.
type Record struct {
	ID        string   `json:"id"`
	Creator   string   `json:"creator"`
	Kind      PoolKind `json:"kind"`
	FeeBps    uint64   `json:"feeBps"`
	CreatedAt int64    `json:"createdAt"`
}

var (
	poolRecordPrefix = []byte("factory/pool/")
	creatorIndexBase = []byte("factory/creator/")
	sequenceCountKey = []byte("factory/seq")
)

func poolRecordKey(id [20]byte) []byte {
	return append(append([]byte{}, poolRecordPrefix...), []byte(hex.EncodeToString(id[:]))...)
}

func creatorIndexPrefix(creator [20]byte) []byte {
	prefix := append(append([]byte{}, creatorIndexBase...), []byte(hex.EncodeToString(creator[:]))...)
	return append(prefix, '/')
}

func creatorIndexKey(creator, id [20]byte) []byte {
	return append(creatorIndexPrefix(creator), []byte(hex.EncodeToString(id[:]))...)
}

// Factory deploys per-creator reward pools and keeps the registry that maps
// creators to their pool instances. Deployed engines stay cached so every
// caller observes the same sequential state machine per pool.
type Factory struct {
	mu      sync.Mutex
	db      storage.Database
	ledger  *bank.Ledger
	emitter events.Emitter
	chainID uint64
	nowFn   func() int64

	proportional map[[20]byte]*rewardpool.ProportionalPool
	creator      map[[20]byte]*rewardpool.CreatorPool
}

// New constructs a factory over the given store and bank ledger.
func New(db storage.Database, ledger *bank.Ledger, chainID uint64, emitter events.Emitter) *Factory {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Factory{
		db:           db,
		ledger:       ledger,
		emitter:      emitter,
		chainID:      chainID,
		nowFn:        func() int64 { return time.Now().Unix() },
		proportional: make(map[[20]byte]*rewardpool.ProportionalPool),
		creator:      make(map[[20]byte]*rewardpool.CreatorPool),
	}
}

// SetNowFunc overrides the time source for deterministic testing.
func (f *Factory) SetNowFunc(now func() int64) {
	if now == nil {
		f.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	f.nowFn = now
}

// nextPoolID derives a fresh pool address from the creator and a persisted
// deployment counter.
func (f *Factory) nextPoolID(creator [20]byte, kind PoolKind) ([20]byte, error) {
	var id [20]byte
	seq := uint64(0)
	raw, err := f.db.Get(sequenceCountKey)
	if err == nil && len(raw) == 8 {
		seq = binary.BigEndian.Uint64(raw)
	} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return id, fmt.Errorf("factory: read sequence: %w", err)
	}
	seq++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	if err := f.db.Put(sequenceCountKey, buf); err != nil {
		return id, fmt.Errorf("factory: store sequence: %w", err)
	}
	payload := append(append([]byte{}, creator[:]...), []byte(kind)...)
	payload = append(payload, buf...)
	copy(id[:], ethcrypto.Keccak256(payload)[12:])
	return id, nil
}

func (f *Factory) storeRecord(record *Record, creator, id [20]byte) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("factory: encode record: %w", err)
	}
	if err := f.db.Put(poolRecordKey(id), raw); err != nil {
		return err
	}
	return f.db.Put(creatorIndexKey(creator, id), id[:])
}

// CreateProportionalPool deploys an XP-proportional pool for the creator.
func (f *Factory) CreateProportionalPool(creator, operator [20]byte, signers [][20]byte) (*rewardpool.ProportionalPool, *Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, err := f.nextPoolID(creator, KindProportional)
	if err != nil {
		return nil, nil, err
	}
	pool, err := rewardpool.NewProportionalPool(rewardpool.PoolConfig{
		ID:       id,
		ChainID:  f.chainID,
		Operator: operator,
		Mover:    f.ledger.PoolAccount(id),
		Emitter:  f.emitter,
		Signers:  signers,
	})
	if err != nil {
		return nil, nil, err
	}
	record := &Record{
		ID:        hex.EncodeToString(id[:]),
		Creator:   hex.EncodeToString(creator[:]),
		Kind:      KindProportional,
		CreatedAt: f.nowFn(),
	}
	if err := f.storeRecord(record, creator, id); err != nil {
		return nil, nil, err
	}
	if err := rewardpool.SaveProportional(f.db, pool); err != nil {
		return nil, nil, err
	}
	f.proportional[id] = pool
	return pool, record, nil
}

// CreateCreatorPool deploys a custom-allocation pool for the creator.
func (f *Factory) CreateCreatorPool(creator, operator [20]byte, feeBps uint64, feeRecipient [20]byte, signers [][20]byte) (*rewardpool.CreatorPool, *Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, err := f.nextPoolID(creator, KindCreator)
	if err != nil {
		return nil, nil, err
	}
	pool, err := rewardpool.NewCreatorPool(rewardpool.PoolConfig{
		ID:           id,
		ChainID:      f.chainID,
		Operator:     operator,
		Mover:        f.ledger.PoolAccount(id),
		Emitter:      f.emitter,
		FeeBps:       feeBps,
		FeeRecipient: feeRecipient,
		Signers:      signers,
	})
	if err != nil {
		return nil, nil, err
	}
	record := &Record{
		ID:        hex.EncodeToString(id[:]),
		Creator:   hex.EncodeToString(creator[:]),
		Kind:      KindCreator,
		FeeBps:    feeBps,
		CreatedAt: f.nowFn(),
	}
	if err := f.storeRecord(record, creator, id); err != nil {
		return nil, nil, err
	}
	if err := rewardpool.SaveCreator(f.db, pool); err != nil {
		return nil, nil, err
	}
	f.creator[id] = pool
	return pool, record, nil
}

// Lookup returns the registry record for a pool id.
func (f *Factory) Lookup(id [20]byte) (*Record, error) {
	raw, err := f.db.Get(poolRecordKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrPoolNotFound
	}
	if err != nil {
		return nil, err
	}
	record := &Record{}
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, fmt.Errorf("factory: decode record: %w", err)
	}
	return record, nil
}

// PoolsByCreator lists every pool the creator has deployed.
func (f *Factory) PoolsByCreator(creator [20]byte) ([]*Record, error) {
	records := []*Record{}
	err := f.db.Iterate(creatorIndexPrefix(creator), func(_, value []byte) bool {
		if len(value) != 20 {
			return true
		}
		var id [20]byte
		copy(id[:], value)
		record, err := f.Lookup(id)
		if err != nil {
			return true
		}
		records = append(records, record)
		return true
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ProportionalPool returns the live engine for the pool id, restoring it from
// the store on first access.
func (f *Factory) ProportionalPool(id [20]byte) (*rewardpool.ProportionalPool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pool, ok := f.proportional[id]; ok {
		return pool, nil
	}
	record, err := f.Lookup(id)
	if err != nil {
		return nil, err
	}
	if record.Kind != KindProportional {
		return nil, ErrWrongKind
	}
	pool, err := rewardpool.LoadProportional(f.db, id, f.ledger.PoolAccount(id), f.emitter)
	if err != nil {
		return nil, err
	}
	f.proportional[id] = pool
	return pool, nil
}

// CreatorPool returns the live engine for the pool id, restoring it from the
// store on first access.
func (f *Factory) CreatorPool(id [20]byte) (*rewardpool.CreatorPool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pool, ok := f.creator[id]; ok {
		return pool, nil
	}
	record, err := f.Lookup(id)
	if err != nil {
		return nil, err
	}
	if record.Kind != KindCreator {
		return nil, ErrWrongKind
	}
	pool, err := rewardpool.LoadCreator(f.db, id, f.ledger.PoolAccount(id), f.emitter)
	if err != nil {
		return nil, err
	}
	f.creator[id] = pool
	return pool, nil
}

// Persist flushes the cached engine state for the pool id back to the store.
func (f *Factory) Persist(id [20]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pool, ok := f.proportional[id]; ok {
		return rewardpool.SaveProportional(f.db, pool)
	}
	if pool, ok := f.creator[id]; ok {
		return rewardpool.SaveCreator(f.db, pool)
	}
	return ErrPoolNotFound
}
