package bank

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"rewardhub/native/rewardpool"
	"rewardhub/storage"
)

var (
	ErrInvalidAmount     = errors.New("bank: amount must be positive")
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
)

var accountPrefix = []byte("bank/account/")

func accountKey(addr [20]byte) []byte {
	key := make([]byte, 0, len(accountPrefix)+40)
	key = append(key, accountPrefix...)
	key = append(key, []byte(hex.EncodeToString(addr[:]))...)
	return key
}

type accountDocument struct {
	Native string            `json:"native"`
	Tokens map[string]string `json:"tokens"`
}

// Ledger tracks native and token balances for every account, pools included,
// against a key-value store. It provides the balance and transfer
// capabilities the reward pools consume.
type Ledger struct {
	mu sync.Mutex
	db storage.Database
}

func New(db storage.Database) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) loadAccount(addr [20]byte) (*accountDocument, error) {
	raw, err := l.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return &accountDocument{Native: "0", Tokens: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bank: load account: %w", err)
	}
	doc := &accountDocument{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("bank: decode account: %w", err)
	}
	if doc.Tokens == nil {
		doc.Tokens = map[string]string{}
	}
	return doc, nil
}

func (l *Ledger) storeAccount(addr [20]byte, doc *accountDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("bank: encode account: %w", err)
	}
	return l.db.Put(accountKey(addr), raw)
}

func (doc *accountDocument) balance(asset rewardpool.Asset) (*big.Int, error) {
	raw := doc.Native
	if asset.Kind == rewardpool.AssetToken {
		raw = doc.Tokens[asset.Key()]
	}
	if raw == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("bank: corrupt balance %q", raw)
	}
	return v, nil
}

func (doc *accountDocument) setBalance(asset rewardpool.Asset, v *big.Int) {
	if asset.Kind == rewardpool.AssetToken {
		doc.Tokens[asset.Key()] = v.String()
		return
	}
	doc.Native = v.String()
}

// BalanceOf returns the account's balance for the asset.
func (l *Ledger) BalanceOf(addr [20]byte, asset rewardpool.Asset) (*big.Int, error) {
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, err := l.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return doc.balance(asset)
}

// Mint credits freshly tracked value to the account. Used for funding inflows
// and test fixtures.
func (l *Ledger) Mint(addr [20]byte, asset rewardpool.Asset, amount *big.Int) error {
	if err := asset.Validate(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, err := l.loadAccount(addr)
	if err != nil {
		return err
	}
	balance, err := doc.balance(asset)
	if err != nil {
		return err
	}
	doc.setBalance(asset, new(big.Int).Add(balance, amount))
	return l.storeAccount(addr, doc)
}

// Transfer moves value between accounts. Both legs are validated before
// either account document is written, so a failed call moves nothing.
func (l *Ledger) Transfer(from, to [20]byte, asset rewardpool.Asset, amount *big.Int) error {
	if err := asset.Validate(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fromDoc, err := l.loadAccount(from)
	if err != nil {
		return err
	}
	fromBalance, err := fromDoc.balance(asset)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	if from == to {
		// A self-transfer moves nothing; writing two copies of the same
		// document would let the credit clobber the debit.
		return nil
	}
	toDoc, err := l.loadAccount(to)
	if err != nil {
		return err
	}
	toBalance, err := toDoc.balance(asset)
	if err != nil {
		return err
	}
	fromDoc.setBalance(asset, new(big.Int).Sub(fromBalance, amount))
	toDoc.setBalance(asset, new(big.Int).Add(toBalance, amount))
	if err := l.storeAccount(from, fromDoc); err != nil {
		return err
	}
	return l.storeAccount(to, toDoc)
}

// PoolAccount is the pool-scoped view of the ledger satisfying the
// rewardpool.ValueMover capability.
type PoolAccount struct {
	ledger *Ledger
	pool   [20]byte
}

// PoolAccount returns the value mover for one pool's held balances.
func (l *Ledger) PoolAccount(pool [20]byte) *PoolAccount {
	return &PoolAccount{ledger: l, pool: pool}
}

// BalanceOf implements rewardpool.ValueMover.
func (a *PoolAccount) BalanceOf(asset rewardpool.Asset) (*big.Int, error) {
	return a.ledger.BalanceOf(a.pool, asset)
}

// Transfer implements rewardpool.ValueMover.
func (a *PoolAccount) Transfer(asset rewardpool.Asset, to [20]byte, amount *big.Int) error {
	return a.ledger.Transfer(a.pool, to, asset, amount)
}
