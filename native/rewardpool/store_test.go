package rewardpool

import (
	"math/big"
	"testing"

	"rewardhub/core/events"
	"rewardhub/storage"
)

func TestProportionalStateRoundtrip(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	pool, mover, key := newProportionalFixture(t)
	a := newTestAddress(0x80)
	b := newTestAddress(0x81)
	if err := pool.AddParticipants(testOperator,
		[][20]byte{a, b},
		[]*big.Int{big.NewInt(60), big.NewInt(40)},
	); err != nil {
		t.Fatalf("add: %v", err)
	}
	mover.fund(NativeAsset(), 1_000)
	if err := pool.SnapshotNative(testOperator); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := pool.Activate(testOperator); err != nil {
		t.Fatalf("activate: %v", err)
	}
	req, sig := signedClaim(t, key, a, 3, NativeAsset())
	if _, err := pool.Claim(a, req, sig); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := SaveProportional(db, pool); err != nil {
		t.Fatalf("save: %v", err)
	}
	restored, err := LoadProportional(db, testPoolID, mover, events.NoopEmitter{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !restored.Active() || !restored.SnapshotTaken() {
		t.Fatal("activation or snapshot state lost")
	}
	if restored.TotalAllocation().Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("total %s, want 100", restored.TotalAllocation())
	}
	if !restored.HasSigner(key.PubKey().RawAddress()) {
		t.Fatal("signer set lost")
	}
	claimed, err := restored.Claimed(a, NativeAsset())
	if err != nil || !claimed {
		t.Fatalf("claimed flag lost: %v %v", claimed, err)
	}
	if restored.NextNonce(a) != 4 {
		t.Fatalf("nonce watermark lost: next %d, want 4", restored.NextNonce(a))
	}
	if !restored.NonceInfo(a).Used[3] {
		t.Fatal("used nonce lost")
	}
	total, err := restored.TotalClaimed(NativeAsset())
	if err != nil || total.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("total claimed %s, want 600", total)
	}

	// The restored pool settles the remaining participant.
	reqB, sigB := signedClaim(t, key, b, 1, NativeAsset())
	receipt, err := restored.Claim(b, reqB, sigB)
	if err != nil {
		t.Fatalf("claim after restore: %v", err)
	}
	if receipt.Gross.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("gross %s, want 400", receipt.Gross)
	}
}

func TestCreatorStateRoundtrip(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	feeRecipient := newTestAddress(0x82)
	pool, mover, _ := newCreatorFixture(t, 100, feeRecipient)
	token := newTestAddress(0x83)
	tokenAsset, err := TokenAsset(token)
	if err != nil {
		t.Fatalf("token asset: %v", err)
	}
	a := newTestAddress(0x84)
	if err := pool.AddAllocations(testOperator,
		[][20]byte{a, a},
		[]Asset{NativeAsset(), tokenAsset},
		[]*big.Int{big.NewInt(10), big.NewInt(30)},
	); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := pool.RemoveAllocation(testOperator, a, NativeAsset()); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if err := SaveCreator(db, pool); err != nil {
		t.Fatalf("save: %v", err)
	}
	restored, err := LoadCreator(db, testPoolID, mover, events.NoopEmitter{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if restored.FeeBps() != 100 || restored.FeeRecipient() != feeRecipient {
		t.Fatal("fee configuration lost")
	}
	tracked := restored.TrackedAssets()
	if len(tracked) != 2 {
		t.Fatalf("tracked assets: %v", tracked)
	}
	entry, ok := restored.Allocation(a, NativeAsset())
	if !ok || entry.Active || entry.Allocation.Sign() != 0 {
		t.Fatalf("soft-removed entry lost: ok=%v %+v", ok, entry)
	}
	if restored.TotalAllocation(tokenAsset).Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("token total %s, want 30", restored.TotalAllocation(tokenAsset))
	}
}

func TestLoadRejectsKindMismatch(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	pool, mover, _ := newProportionalFixture(t)
	if err := SaveProportional(db, pool); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := LoadCreator(db, testPoolID, mover, events.NoopEmitter{}); err == nil {
		t.Fatal("loading a proportional document as creator should fail")
	}
}
