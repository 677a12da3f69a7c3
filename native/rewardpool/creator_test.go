package rewardpool

import (
	"errors"
	"math/big"
	"testing"
)

func TestCreatorBooksAreAssetScoped(t *testing.T) {
	pool, _, _ := newCreatorFixture(t, 0, [20]byte{})
	participant := newTestAddress(0x40)
	token := newTestAddress(0x41)
	tokenAsset, err := TokenAsset(token)
	if err != nil {
		t.Fatalf("token asset: %v", err)
	}

	if err := pool.AddAllocation(testOperator, participant, NativeAsset(), big.NewInt(100)); err != nil {
		t.Fatalf("add native: %v", err)
	}
	if err := pool.AddAllocation(testOperator, participant, tokenAsset, big.NewInt(200)); err != nil {
		t.Fatalf("add token: %v", err)
	}

	native, ok := pool.Allocation(participant, NativeAsset())
	if !ok || native.Allocation.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("native entry: ok=%v allocation=%v", ok, native)
	}
	tokenEntry, ok := pool.Allocation(participant, tokenAsset)
	if !ok || tokenEntry.Allocation.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("token entry: ok=%v allocation=%v", ok, tokenEntry)
	}
	if pool.TotalAllocation(NativeAsset()).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("native total %s", pool.TotalAllocation(NativeAsset()))
	}
	if pool.TotalAllocation(tokenAsset).Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("token total %s", pool.TotalAllocation(tokenAsset))
	}

	tracked := pool.TrackedAssets()
	if len(tracked) != 2 || tracked[0].Kind != AssetNative || tracked[1] != tokenAsset {
		t.Fatalf("tracked assets: %v", tracked)
	}
}

func TestCreatorAddRejectsInvalidAsset(t *testing.T) {
	pool, _, _ := newCreatorFixture(t, 0, [20]byte{})
	bad := Asset{Kind: AssetNative, Token: newTestAddress(0x42)}
	err := pool.AddAllocation(testOperator, newTestAddress(0x43), bad, big.NewInt(1))
	if !errors.Is(err, ErrInvalidAsset) {
		t.Fatalf("got %v, want ErrInvalidAsset", err)
	}
	err = pool.AddAllocation(testOperator, newTestAddress(0x43), Asset{Kind: AssetToken}, big.NewInt(1))
	if !errors.Is(err, ErrInvalidAsset) {
		t.Fatalf("token without id: got %v, want ErrInvalidAsset", err)
	}
}

func TestCreatorRemoveAllocation(t *testing.T) {
	pool, _, _ := newCreatorFixture(t, 0, [20]byte{})
	participant := newTestAddress(0x44)
	if err := pool.AddAllocation(testOperator, participant, NativeAsset(), big.NewInt(500)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := pool.RemoveAllocation(testOperator, participant, NativeAsset()); err != nil {
		t.Fatalf("remove: %v", err)
	}
	entry, ok := pool.Allocation(participant, NativeAsset())
	if !ok {
		t.Fatal("soft-removed entry gone")
	}
	if entry.Active || entry.Allocation.Sign() != 0 {
		t.Fatalf("removal did not zero: active=%v allocation=%s", entry.Active, entry.Allocation)
	}
	if pool.TotalAllocation(NativeAsset()).Sign() != 0 {
		t.Fatalf("total %s after removal", pool.TotalAllocation(NativeAsset()))
	}
	if err := pool.RemoveAllocation(testOperator, participant, NativeAsset()); !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("double remove: got %v", err)
	}
}

func TestCreatorBatchSpansAssets(t *testing.T) {
	pool, _, _ := newCreatorFixture(t, 0, [20]byte{})
	token := newTestAddress(0x45)
	tokenAsset, err := TokenAsset(token)
	if err != nil {
		t.Fatalf("token asset: %v", err)
	}
	a := newTestAddress(0x46)
	b := newTestAddress(0x47)

	err = pool.AddAllocations(testOperator,
		[][20]byte{a, b, a},
		[]Asset{NativeAsset(), NativeAsset(), tokenAsset},
		[]*big.Int{big.NewInt(10), big.NewInt(20), big.NewInt(30)},
	)
	if err != nil {
		t.Fatalf("batch add: %v", err)
	}
	if pool.TotalAllocation(NativeAsset()).Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("native total %s, want 30", pool.TotalAllocation(NativeAsset()))
	}
	if pool.TotalAllocation(tokenAsset).Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("token total %s, want 30", pool.TotalAllocation(tokenAsset))
	}
}

func TestCreatorBatchAtomicityAcrossBooks(t *testing.T) {
	pool, _, _ := newCreatorFixture(t, 0, [20]byte{})
	token := newTestAddress(0x48)
	tokenAsset, err := TokenAsset(token)
	if err != nil {
		t.Fatalf("token asset: %v", err)
	}
	a := newTestAddress(0x49)
	if err := pool.AddAllocation(testOperator, a, NativeAsset(), big.NewInt(10)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Second element duplicates the seeded native entry; the first element's
	// token book mutation must not survive.
	err = pool.AddAllocations(testOperator,
		[][20]byte{a, a},
		[]Asset{tokenAsset, NativeAsset()},
		[]*big.Int{big.NewInt(5), big.NewInt(5)},
	)
	if !errors.Is(err, ErrParticipantExists) {
		t.Fatalf("got %v, want ErrParticipantExists", err)
	}
	if _, ok := pool.Allocation(a, tokenAsset); ok {
		t.Fatal("failed batch leaked into token book")
	}
	if len(pool.TrackedAssets()) != 1 {
		t.Fatalf("tracked assets after failed batch: %v", pool.TrackedAssets())
	}
}

func TestCreatorUpdateUnknownBook(t *testing.T) {
	pool, _, _ := newCreatorFixture(t, 0, [20]byte{})
	err := pool.UpdateAllocation(testOperator, newTestAddress(0x4A), NativeAsset(), big.NewInt(1))
	if !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("got %v, want ErrParticipantNotFound", err)
	}
}
