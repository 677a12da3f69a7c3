package rewardpool

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"rewardhub/core/events"
	"rewardhub/storage"
)

// Pool kinds as persisted in the state document.
const (
	kindProportional = "proportional"
	kindCreator      = "creator"
)

var poolStatePrefix = []byte("rewardpool/state/")

func poolStateKey(id [20]byte) []byte {
	key := make([]byte, 0, len(poolStatePrefix)+40)
	key = append(key, poolStatePrefix...)
	key = append(key, []byte(hex.EncodeToString(id[:]))...)
	return key
}

type entryDocument struct {
	Participant string `json:"participant"`
	Allocation  string `json:"allocation"`
	Active      bool   `json:"active"`
}

type bookDocument struct {
	Order   []string                 `json:"order"`
	Entries map[string]entryDocument `json:"entries"`
}

type assetDocument struct {
	Kind  uint8  `json:"kind"`
	Token string `json:"token"`
}

type poolDocument struct {
	Kind          string                 `json:"poolKind"`
	ID            string                 `json:"id"`
	ChainID       uint64                 `json:"chainId"`
	Operator      string                 `json:"operator"`
	Active        bool                   `json:"active"`
	FeeBps        uint64                 `json:"feeBps"`
	FeeRecipient  string                 `json:"feeRecipient"`
	Signers       []string               `json:"signers"`
	SnapshotTaken bool                   `json:"snapshotTaken"`
	Snapshots     map[string]string      `json:"snapshots"`
	Claimed       map[string][]string    `json:"claimed"`
	TotalClaimed  map[string]string      `json:"totalClaimed"`
	TotalFees     map[string]string      `json:"totalFees"`
	Nonces        map[string]*NonceState `json:"nonces"`

	// Proportional variant.
	Book *bookDocument `json:"book,omitempty"`

	// Creator variant.
	Books      map[string]bookDocument  `json:"books,omitempty"`
	Assets     map[string]assetDocument `json:"assets,omitempty"`
	AssetOrder []string                 `json:"assetOrder,omitempty"`
}

func encodeAddr(addr [20]byte) string { return hex.EncodeToString(addr[:]) }

func decodeAddr(s string) ([20]byte, error) {
	var out [20]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return out, fmt.Errorf("rewardpool: decode address: %w", err)
	}
	if len(raw) != 20 {
		return out, fmt.Errorf("rewardpool: address must be 20 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func decodeAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("rewardpool: invalid amount %q", s)
	}
	return v, nil
}

func encodeBook(b *allocationBook) *bookDocument {
	doc := &bookDocument{
		Order:   make([]string, 0, len(b.order)),
		Entries: make(map[string]entryDocument, len(b.entries)),
	}
	for _, addr := range b.order {
		doc.Order = append(doc.Order, encodeAddr(addr))
	}
	for addr, entry := range b.entries {
		doc.Entries[encodeAddr(addr)] = entryDocument{
			Participant: encodeAddr(entry.Participant),
			Allocation:  entry.Allocation.String(),
			Active:      entry.Active,
		}
	}
	return doc
}

func decodeBook(doc *bookDocument) (*allocationBook, error) {
	book := newAllocationBook()
	for _, addrHex := range doc.Order {
		addr, err := decodeAddr(addrHex)
		if err != nil {
			return nil, err
		}
		book.order = append(book.order, addr)
	}
	for addrHex, entryDoc := range doc.Entries {
		addr, err := decodeAddr(addrHex)
		if err != nil {
			return nil, err
		}
		allocation, err := decodeAmount(entryDoc.Allocation)
		if err != nil {
			return nil, err
		}
		book.entries[addr] = &Entry{Participant: addr, Allocation: allocation, Active: entryDoc.Active}
		if entryDoc.Active {
			book.total = new(big.Int).Add(book.total, allocation)
		}
	}
	return book, nil
}

func (p *Pool) encodeShared(kind string) *poolDocument {
	doc := &poolDocument{
		Kind:          kind,
		ID:            encodeAddr(p.id),
		ChainID:       p.chainID,
		Operator:      encodeAddr(p.operator),
		Active:        p.active,
		FeeBps:        p.feeBps,
		FeeRecipient:  encodeAddr(p.feeRecipient),
		SnapshotTaken: p.snapshotTaken,
		Snapshots:     make(map[string]string, len(p.snapshots)),
		Claimed:       make(map[string][]string, len(p.claimed)),
		TotalClaimed:  make(map[string]string, len(p.totalClaimed)),
		TotalFees:     make(map[string]string, len(p.totalFees)),
		Nonces:        make(map[string]*NonceState, len(p.nonces)),
	}
	for signer := range p.signers {
		doc.Signers = append(doc.Signers, encodeAddr(signer))
	}
	for key, amount := range p.snapshots {
		doc.Snapshots[key] = amount.String()
	}
	for key, byAsset := range p.claimed {
		for participant, claimed := range byAsset {
			if claimed {
				doc.Claimed[key] = append(doc.Claimed[key], encodeAddr(participant))
			}
		}
	}
	for key, amount := range p.totalClaimed {
		doc.TotalClaimed[key] = amount.String()
	}
	for key, amount := range p.totalFees {
		doc.TotalFees[key] = amount.String()
	}
	for participant, ns := range p.nonces {
		doc.Nonces[encodeAddr(participant)] = ns.Clone()
	}
	return doc
}

func decodeShared(doc *poolDocument, mover ValueMover, emitter events.Emitter) (*Pool, error) {
	id, err := decodeAddr(doc.ID)
	if err != nil {
		return nil, err
	}
	operator, err := decodeAddr(doc.Operator)
	if err != nil {
		return nil, err
	}
	feeRecipient, err := decodeAddr(doc.FeeRecipient)
	if err != nil {
		return nil, err
	}
	signers := make([][20]byte, 0, len(doc.Signers))
	for _, signerHex := range doc.Signers {
		signer, err := decodeAddr(signerHex)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}
	p, err := newPool(PoolConfig{
		ID:           id,
		ChainID:      doc.ChainID,
		Operator:     operator,
		Mover:        mover,
		Emitter:      emitter,
		FeeBps:       doc.FeeBps,
		FeeRecipient: feeRecipient,
		Signers:      signers,
	})
	if err != nil {
		return nil, err
	}
	p.active = doc.Active
	p.snapshotTaken = doc.SnapshotTaken
	for key, amountStr := range doc.Snapshots {
		amount, err := decodeAmount(amountStr)
		if err != nil {
			return nil, err
		}
		p.snapshots[key] = amount
	}
	for key, participants := range doc.Claimed {
		byAsset := make(map[[20]byte]bool, len(participants))
		for _, participantHex := range participants {
			participant, err := decodeAddr(participantHex)
			if err != nil {
				return nil, err
			}
			byAsset[participant] = true
		}
		p.claimed[key] = byAsset
	}
	for key, amountStr := range doc.TotalClaimed {
		amount, err := decodeAmount(amountStr)
		if err != nil {
			return nil, err
		}
		p.totalClaimed[key] = amount
	}
	for key, amountStr := range doc.TotalFees {
		amount, err := decodeAmount(amountStr)
		if err != nil {
			return nil, err
		}
		p.totalFees[key] = amount
	}
	for participantHex, ns := range doc.Nonces {
		participant, err := decodeAddr(participantHex)
		if err != nil {
			return nil, err
		}
		clone := ns.Clone()
		if clone.Used == nil {
			clone.Used = make(map[uint64]bool)
		}
		p.nonces[participant] = clone
	}
	return p, nil
}

func savePoolDocument(db storage.Database, id [20]byte, doc *poolDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("rewardpool: encode pool state: %w", err)
	}
	return db.Put(poolStateKey(id), raw)
}

func loadPoolDocument(db storage.Database, id [20]byte) (*poolDocument, error) {
	raw, err := db.Get(poolStateKey(id))
	if err != nil {
		return nil, fmt.Errorf("rewardpool: load pool state: %w", err)
	}
	doc := &poolDocument{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("rewardpool: decode pool state: %w", err)
	}
	return doc, nil
}

// SaveProportional persists the full pool state document.
func SaveProportional(db storage.Database, e *ProportionalPool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc := e.encodeShared(kindProportional)
	doc.Book = encodeBook(e.book)
	return savePoolDocument(db, e.id, doc)
}

// LoadProportional restores a proportional pool, reattaching the runtime
// capabilities that are never serialized.
func LoadProportional(db storage.Database, id [20]byte, mover ValueMover, emitter events.Emitter) (*ProportionalPool, error) {
	doc, err := loadPoolDocument(db, id)
	if err != nil {
		return nil, err
	}
	if doc.Kind != kindProportional {
		return nil, fmt.Errorf("rewardpool: pool %s is %q, not %q", doc.ID, doc.Kind, kindProportional)
	}
	base, err := decodeShared(doc, mover, emitter)
	if err != nil {
		return nil, err
	}
	book := newAllocationBook()
	if doc.Book != nil {
		book, err = decodeBook(doc.Book)
		if err != nil {
			return nil, err
		}
	}
	return &ProportionalPool{Pool: base, book: book}, nil
}

// SaveCreator persists the full pool state document.
func SaveCreator(db storage.Database, e *CreatorPool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc := e.encodeShared(kindCreator)
	doc.Books = make(map[string]bookDocument, len(e.books))
	doc.Assets = make(map[string]assetDocument, len(e.assets))
	doc.AssetOrder = append([]string{}, e.assetOrder...)
	for key, book := range e.books {
		doc.Books[key] = *encodeBook(book)
	}
	for key, asset := range e.assets {
		doc.Assets[key] = assetDocument{Kind: uint8(asset.Kind), Token: hex.EncodeToString(asset.Token[:])}
	}
	return savePoolDocument(db, e.id, doc)
}

// LoadCreator restores a creator pool, reattaching the runtime capabilities
// that are never serialized.
func LoadCreator(db storage.Database, id [20]byte, mover ValueMover, emitter events.Emitter) (*CreatorPool, error) {
	doc, err := loadPoolDocument(db, id)
	if err != nil {
		return nil, err
	}
	if doc.Kind != kindCreator {
		return nil, fmt.Errorf("rewardpool: pool %s is %q, not %q", doc.ID, doc.Kind, kindCreator)
	}
	base, err := decodeShared(doc, mover, emitter)
	if err != nil {
		return nil, err
	}
	pool := &CreatorPool{
		Pool:   base,
		books:  make(map[string]*allocationBook, len(doc.Books)),
		assets: make(map[string]Asset, len(doc.Assets)),
	}
	for key, bookDoc := range doc.Books {
		book, err := decodeBook(&bookDoc)
		if err != nil {
			return nil, err
		}
		pool.books[key] = book
	}
	for key, assetDoc := range doc.Assets {
		token, err := hex.DecodeString(assetDoc.Token)
		if err != nil || len(token) != 20 {
			return nil, fmt.Errorf("rewardpool: invalid asset token %q", assetDoc.Token)
		}
		asset := Asset{Kind: AssetKind(assetDoc.Kind)}
		copy(asset.Token[:], token)
		pool.assets[key] = asset
	}
	pool.assetOrder = append([]string{}, doc.AssetOrder...)
	return pool, nil
}
