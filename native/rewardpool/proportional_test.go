package rewardpool

import (
	"errors"
	"math/big"
	"testing"
)

func TestNewProportionalPoolRejectsFee(t *testing.T) {
	mover := newMockMover()
	_, err := NewProportionalPool(PoolConfig{
		Operator:     testOperator,
		Mover:        mover,
		FeeBps:       1,
		FeeRecipient: newTestAddress(0x02),
	})
	if !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("got %v, want ErrInvalidFee", err)
	}
}

func TestAddParticipantsBatchAtomicity(t *testing.T) {
	pool, _, _ := newProportionalFixture(t)
	good := newTestAddress(0x30)
	dup := newTestAddress(0x31)
	if err := pool.AddParticipant(testOperator, dup, big.NewInt(10)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := pool.AddParticipants(testOperator,
		[][20]byte{good, dup},
		[]*big.Int{big.NewInt(5), big.NewInt(5)},
	)
	if !errors.Is(err, ErrParticipantExists) {
		t.Fatalf("got %v, want ErrParticipantExists", err)
	}
	// The valid leading element must not land either.
	if _, ok := pool.Allocation(good); ok {
		t.Fatal("partial batch application")
	}
	if pool.TotalAllocation().Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("total %s, want 10", pool.TotalAllocation())
	}
}

func TestBatchMatchesSequential(t *testing.T) {
	batch, _, _ := newProportionalFixture(t)
	sequential, _, _ := newProportionalFixture(t)
	participants := [][20]byte{newTestAddress(0x32), newTestAddress(0x33), newTestAddress(0x34)}
	allocations := []*big.Int{big.NewInt(100), big.NewInt(250), big.NewInt(400)}

	if err := batch.AddParticipants(testOperator, participants, allocations); err != nil {
		t.Fatalf("batch add: %v", err)
	}
	for i := range participants {
		if err := sequential.AddParticipant(testOperator, participants[i], allocations[i]); err != nil {
			t.Fatalf("sequential add: %v", err)
		}
	}

	updates := []*big.Int{big.NewInt(50), big.NewInt(0), big.NewInt(800)}
	if err := batch.UpdateParticipants(testOperator, participants, updates); err != nil {
		t.Fatalf("batch update: %v", err)
	}
	for i := range participants {
		if err := sequential.UpdateParticipant(testOperator, participants[i], updates[i]); err != nil {
			t.Fatalf("sequential update: %v", err)
		}
	}

	if batch.TotalAllocation().Cmp(sequential.TotalAllocation()) != 0 {
		t.Fatalf("totals diverge: batch %s, sequential %s", batch.TotalAllocation(), sequential.TotalAllocation())
	}
	for _, p := range participants {
		be, bok := batch.Allocation(p)
		se, sok := sequential.Allocation(p)
		if bok != sok {
			t.Fatalf("presence diverges for %x", p)
		}
		if be.Allocation.Cmp(se.Allocation) != 0 || be.Active != se.Active {
			t.Fatalf("entry diverges for %x: batch %s/%v, sequential %s/%v",
				p, be.Allocation, be.Active, se.Allocation, se.Active)
		}
	}
}

func TestBatchShapeValidation(t *testing.T) {
	pool, _, _ := newProportionalFixture(t)
	if err := pool.AddParticipants(testOperator, nil, nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("empty batch: got %v", err)
	}
	err := pool.AddParticipants(testOperator,
		[][20]byte{newTestAddress(0x35)},
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
	)
	if !errors.Is(err, ErrBatchLengthMismatch) {
		t.Fatalf("length mismatch: got %v", err)
	}
}

func TestMutationRejectedWhileActive(t *testing.T) {
	pool, _, _ := newProportionalFixture(t)
	participant := newTestAddress(0x36)
	if err := pool.AddParticipant(testOperator, participant, big.NewInt(10)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := pool.Activate(testOperator); err != nil {
		t.Fatalf("activate: %v", err)
	}

	if err := pool.AddParticipant(testOperator, newTestAddress(0x37), big.NewInt(5)); !errors.Is(err, ErrPoolActive) {
		t.Fatalf("add while active: got %v", err)
	}
	if err := pool.UpdateParticipant(testOperator, participant, big.NewInt(20)); !errors.Is(err, ErrPoolActive) {
		t.Fatalf("update while active: got %v", err)
	}
	if err := pool.Penalize(testOperator, participant, big.NewInt(1)); !errors.Is(err, ErrPoolActive) {
		t.Fatalf("penalize while active: got %v", err)
	}

	if err := pool.Deactivate(testOperator); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := pool.UpdateParticipant(testOperator, participant, big.NewInt(20)); err != nil {
		t.Fatalf("update after deactivate: %v", err)
	}
}

func TestPenalizeBatchAtomicity(t *testing.T) {
	pool, _, _ := newProportionalFixture(t)
	known := newTestAddress(0x38)
	if err := pool.AddParticipant(testOperator, known, big.NewInt(100)); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := pool.PenalizeBatch(testOperator,
		[][20]byte{known, newTestAddress(0x39)},
		[]*big.Int{big.NewInt(10), big.NewInt(10)},
	)
	if !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("got %v, want ErrParticipantNotFound", err)
	}
	entry, _ := pool.Allocation(known)
	if entry.Allocation.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("penalty leaked from failed batch: %s", entry.Allocation)
	}
}
