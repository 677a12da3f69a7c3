package gateway

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"rewardhub/core/events"
	"rewardhub/crypto"
	"rewardhub/factory"
	"rewardhub/native/bank"
	"rewardhub/native/rewardpool"
	"rewardhub/storage"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	router   http.Handler
	factory  *factory.Factory
	ledger   *bank.Ledger
	operator [20]byte
	signer   *crypto.PrivateKey
	chainID  uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { _ = db.Close() })
	ledger := bank.New(db)
	f := factory.New(db, ledger, 1887, events.NoopEmitter{})
	var operator [20]byte
	operator[0] = 0x01
	signer, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	server := NewServer(f, operator, nil)
	return &fixture{
		router:   server.Router(),
		factory:  f,
		ledger:   ledger,
		operator: operator,
		signer:   signer,
		chainID:  1887,
	}
}

func (fx *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func (fx *fixture) createPool(t *testing.T, kind string, feeBps uint64, feeRecipient string) *factory.Record {
	t.Helper()
	signerHex := hex.EncodeToString(func() []byte {
		a := fx.signer.PubKey().RawAddress()
		return a[:]
	}())
	rec := fx.do(t, http.MethodPost, "/v1/pools", map[string]any{
		"creator":      "0101010101010101010101010101010101010101",
		"kind":         kind,
		"feeBps":       feeBps,
		"feeRecipient": feeRecipient,
		"signers":      []string{signerHex},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	record := &factory.Record{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), record))
	return record
}

func (fx *fixture) poolID(t *testing.T, record *factory.Record) [20]byte {
	t.Helper()
	raw, err := hex.DecodeString(record.ID)
	require.NoError(t, err)
	require.Len(t, raw, 20)
	var id [20]byte
	copy(id[:], raw)
	return id
}

func TestHealthz(t *testing.T) {
	fx := newFixture(t)
	rec := fx.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPoolLifecycleOverHTTP(t *testing.T) {
	fx := newFixture(t)
	record := fx.createPool(t, "proportional", 0, "")
	id := fx.poolID(t, record)
	base := "/v1/pools/" + record.ID

	participant := "2222222222222222222222222222222222222222"
	rec := fx.do(t, http.MethodPost, base+"/allocations", map[string]any{
		"participants": []string{participant},
		"allocations":  []string{"50"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NoError(t, fx.ledger.Mint(id, rewardpool.NativeAsset(), big.NewInt(1_000)))
	rec = fx.do(t, http.MethodPost, base+"/snapshot", map[string]any{"tokens": []string{}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = fx.do(t, http.MethodPost, base+"/activate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = fx.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Equal(t, true, summary["active"])
	require.Equal(t, true, summary["snapshotTaken"])

	rec = fx.do(t, http.MethodGet, base+"/eligibility/"+participant, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	eligibility := map[string]string{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eligibility))
	require.Equal(t, "1000", eligibility["gross"])

	rec = fx.do(t, http.MethodGet, "/v1/creators/0101010101010101010101010101010101010101/pools", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := []*factory.Record{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
}

func TestRelayedClaimOverHTTP(t *testing.T) {
	fx := newFixture(t)
	record := fx.createPool(t, "proportional", 0, "")
	id := fx.poolID(t, record)
	base := "/v1/pools/" + record.ID

	var participant [20]byte
	participant[0] = 0x22
	participantHex := hex.EncodeToString(participant[:])
	rec := fx.do(t, http.MethodPost, base+"/allocations", map[string]any{
		"participants": []string{participantHex},
		"allocations":  []string{"1"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, fx.ledger.Mint(id, rewardpool.NativeAsset(), big.NewInt(750)))
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, base+"/snapshot", map[string]any{"tokens": []string{}}).Code)
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, base+"/activate", nil).Code)

	req := rewardpool.ClaimRequest{Participant: participant, Nonce: 1, Asset: rewardpool.NativeAsset()}
	sig, err := rewardpool.SignClaim(fx.chainID, id, req, fx.signer)
	require.NoError(t, err)

	rec = fx.do(t, http.MethodPost, base+"/claims", map[string]any{
		"participant": participantHex,
		"nonce":       1,
		"kind":        "native",
		"token":       "",
		"signature":   hex.EncodeToString(sig),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	payout := map[string]string{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payout))
	require.Equal(t, "750", payout["net"])

	balance, err := fx.ledger.BalanceOf(participant, rewardpool.NativeAsset())
	require.NoError(t, err)
	require.Equal(t, "750", balance.String())

	// Replaying the same claim maps onto 409.
	rec = fx.do(t, http.MethodPost, base+"/claims", map[string]any{
		"participant": participantHex,
		"nonce":       1,
		"kind":        "native",
		"token":       "",
		"signature":   hex.EncodeToString(sig),
	})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = fx.do(t, http.MethodGet, base+"/claimed/"+participantHex, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	claimed := map[string]bool{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claimed))
	require.True(t, claimed["claimed"])

	rec = fx.do(t, http.MethodGet, base+"/nonce/"+participantHex, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	nonce := struct {
		HighWatermark uint64   `json:"highWatermark"`
		NextNonce     uint64   `json:"nextNonce"`
		Used          []uint64 `json:"used"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &nonce))
	require.Equal(t, uint64(2), nonce.NextNonce)
}

func TestCreatorPoolAllocationsOverHTTP(t *testing.T) {
	fx := newFixture(t)
	record := fx.createPool(t, "creator", 100, "3333333333333333333333333333333333333333")
	base := "/v1/pools/" + record.ID

	participant := "4444444444444444444444444444444444444444"
	rec := fx.do(t, http.MethodPost, base+"/allocations", map[string]any{
		"participants": []string{participant},
		"allocations":  []string{"9000"},
		"assets":       []map[string]string{{"kind": "native", "token": ""}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = fx.do(t, http.MethodGet, base+"/allocations/"+participant, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entry := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.Equal(t, "9000", entry["allocation"])
	require.Equal(t, true, entry["active"])

	rec = fx.do(t, http.MethodGet, base+"/capacity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	capa := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &capa))
	require.Equal(t, false, capa["covered"])
}

func TestAllocationMutationsOverHTTP(t *testing.T) {
	fx := newFixture(t)
	record := fx.createPool(t, "proportional", 0, "")
	base := "/v1/pools/" + record.ID

	alice := "2222222222222222222222222222222222222222"
	bob := "3333333333333333333333333333333333333333"
	rec := fx.do(t, http.MethodPost, base+"/allocations", map[string]any{
		"participants": []string{alice, bob},
		"allocations":  []string{"50", "30"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = fx.do(t, http.MethodPut, base+"/allocations", map[string]any{
		"participants": []string{alice},
		"allocations":  []string{"80"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = fx.do(t, http.MethodGet, base+"/allocations/"+alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entry := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.Equal(t, "80", entry["allocation"])

	rec = fx.do(t, http.MethodPost, base+"/penalties", map[string]any{
		"participants": []string{bob},
		"deltas":       []string{"10"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = fx.do(t, http.MethodGet, base+"/allocations/"+bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entry = map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.Equal(t, "20", entry["allocation"])

	// Hard removal is a creator-pool operation.
	rec = fx.do(t, http.MethodDelete, base+"/allocations", map[string]any{
		"participants": []string{bob},
		"assets":       []map[string]string{{"kind": "native", "token": ""}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestCreatorRemoveAllocationsOverHTTP(t *testing.T) {
	fx := newFixture(t)
	record := fx.createPool(t, "creator", 0, "")
	base := "/v1/pools/" + record.ID

	participant := "4444444444444444444444444444444444444444"
	rec := fx.do(t, http.MethodPost, base+"/allocations", map[string]any{
		"participants": []string{participant},
		"allocations":  []string{"9000"},
		"assets":       []map[string]string{{"kind": "native", "token": ""}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = fx.do(t, http.MethodDelete, base+"/allocations", map[string]any{
		"participants": []string{participant},
		"assets":       []map[string]string{{"kind": "native", "token": ""}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = fx.do(t, http.MethodGet, base+"/allocations/"+participant, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entry := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.Equal(t, "0", entry["allocation"])
	require.Equal(t, false, entry["active"])

	// Penalties only exist on proportional pools.
	rec = fx.do(t, http.MethodPost, base+"/penalties", map[string]any{
		"participants": []string{participant},
		"deltas":       []string{"1"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestSignerManagementOverHTTP(t *testing.T) {
	fx := newFixture(t)
	record := fx.createPool(t, "proportional", 0, "")
	base := "/v1/pools/" + record.ID

	extra := "6666666666666666666666666666666666666666"
	rec := fx.do(t, http.MethodPost, base+"/signers", map[string]any{"signer": extra})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = fx.do(t, http.MethodDelete, base+"/signers/"+extra, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestEmergencyWithdrawOverHTTP(t *testing.T) {
	fx := newFixture(t)
	record := fx.createPool(t, "proportional", 0, "")
	id := fx.poolID(t, record)
	base := "/v1/pools/" + record.ID

	participant := "2222222222222222222222222222222222222222"
	rec := fx.do(t, http.MethodPost, base+"/allocations", map[string]any{
		"participants": []string{participant},
		"allocations":  []string{"1"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, fx.ledger.Mint(id, rewardpool.NativeAsset(), big.NewInt(500)))
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, base+"/snapshot", map[string]any{"tokens": []string{}}).Code)
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, base+"/activate", nil).Code)

	dest := "7777777777777777777777777777777777777777"
	withdrawal := map[string]any{"kind": "native", "token": "", "to": dest, "amount": "200"}
	// Draining an active pool is a state conflict.
	rec = fx.do(t, http.MethodPost, base+"/withdraw", withdrawal)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, base+"/deactivate", nil).Code)
	rec = fx.do(t, http.MethodPost, base+"/withdraw", withdrawal)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var destAddr [20]byte
	raw, err := hex.DecodeString(dest)
	require.NoError(t, err)
	copy(destAddr[:], raw)
	balance, err := fx.ledger.BalanceOf(destAddr, rewardpool.NativeAsset())
	require.NoError(t, err)
	require.Equal(t, "200", balance.String())
}

func TestErrorMapping(t *testing.T) {
	fx := newFixture(t)

	rec := fx.do(t, http.MethodGet, "/v1/pools/9999999999999999999999999999999999999999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = fx.do(t, http.MethodPost, "/v1/pools", map[string]any{"kind": "bogus", "creator": "0101010101010101010101010101010101010101"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	record := fx.createPool(t, "proportional", 0, "")
	base := "/v1/pools/" + record.ID
	// Deactivating an inactive pool is a state conflict.
	rec = fx.do(t, http.MethodPost, base+"/deactivate", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	// Unknown participant lookups are 404.
	rec = fx.do(t, http.MethodGet, base+"/allocations/5555555555555555555555555555555555555555", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
