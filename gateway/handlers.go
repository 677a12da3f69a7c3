package gateway

import (
	"encoding/hex"
	"math/big"
	"net/http"

	"rewardhub/factory"
	"rewardhub/native/rewardpool"
	"rewardhub/observability"

	"github.com/go-chi/chi/v5"
)

// poolHandle is the surface shared by both pool variants. Variant-specific
// allocation shapes are handled per kind in the allocation handlers.
type poolHandle interface {
	Activate(caller [20]byte) error
	Deactivate(caller [20]byte) error
	Snapshot(caller [20]byte, tokens [][20]byte) error
	SnapshotNative(caller [20]byte) error
	CheckEligibility(participant [20]byte, asset rewardpool.Asset) (*rewardpool.Eligibility, error)
	ClaimFor(caller [20]byte, req rewardpool.ClaimRequest, sig []byte) (*rewardpool.ClaimReceipt, error)
	Claimed(participant [20]byte, asset rewardpool.Asset) (bool, error)
	NonceInfo(participant [20]byte) *rewardpool.NonceState
	NextNonce(participant [20]byte) uint64
	ValidateCapacity(asset rewardpool.Asset) (*rewardpool.CapacityReport, error)
	EmergencyWithdraw(caller [20]byte, asset rewardpool.Asset, to [20]byte, amount *big.Int) error
	AddSigner(caller [20]byte, signer [20]byte) error
	RemoveSigner(caller [20]byte, signer [20]byte) error
	SetFeeRecipient(caller [20]byte, recipient [20]byte) error
	Active() bool
	SnapshotTaken() bool
}

func (s *Server) resolvePool(r *http.Request) (*factory.Record, [20]byte, poolHandle, error) {
	id, err := parseAddr(chi.URLParam(r, "pool"))
	if err != nil {
		return nil, id, nil, err
	}
	record, err := s.factory.Lookup(id)
	if err != nil {
		return nil, id, nil, err
	}
	var handle poolHandle
	switch record.Kind {
	case factory.KindCreator:
		handle, err = s.factory.CreatorPool(id)
	default:
		handle, err = s.factory.ProportionalPool(id)
	}
	if err != nil {
		return nil, id, nil, err
	}
	return record, id, handle, nil
}

func queryAsset(r *http.Request) (rewardpool.Asset, error) {
	return parseAsset(r.URL.Query().Get("kind"), r.URL.Query().Get("token"))
}

func parseAddrList(values []string) ([][20]byte, error) {
	out := make([][20]byte, 0, len(values))
	for _, v := range values {
		addr, err := parseAddr(v)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func parseAmountList(values []string) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(values))
	for _, v := range values {
		amount, err := parseAmount(v)
		if err != nil {
			return nil, err
		}
		out = append(out, amount)
	}
	return out, nil
}

func parseAssetList(payloads []assetPayload) ([]rewardpool.Asset, error) {
	out := make([]rewardpool.Asset, 0, len(payloads))
	for _, p := range payloads {
		asset, err := parseAsset(p.Kind, p.Token)
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, nil
}

type createPoolRequest struct {
	Creator      string   `json:"creator"`
	Kind         string   `json:"kind"`
	FeeBps       uint64   `json:"feeBps"`
	FeeRecipient string   `json:"feeRecipient"`
	Signers      []string `json:"signers"`
}

func (s *Server) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	creator, err := parseAddr(req.Creator)
	if err != nil {
		writeError(w, err)
		return
	}
	signers := make([][20]byte, 0, len(req.Signers))
	for _, signerHex := range req.Signers {
		signer, err := parseAddr(signerHex)
		if err != nil {
			writeError(w, err)
			return
		}
		signers = append(signers, signer)
	}
	var record *factory.Record
	switch factory.PoolKind(req.Kind) {
	case factory.KindCreator:
		var feeRecipient [20]byte
		if req.FeeBps > 0 {
			feeRecipient, err = parseAddr(req.FeeRecipient)
			if err != nil {
				writeError(w, err)
				return
			}
		}
		_, record, err = s.factory.CreateCreatorPool(creator, s.operator, req.FeeBps, feeRecipient, signers)
	case factory.KindProportional:
		_, record, err = s.factory.CreateProportionalPool(creator, s.operator, signers)
	default:
		writeError(w, errBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handlePoolsByCreator(w http.ResponseWriter, r *http.Request) {
	creator, err := parseAddr(chi.URLParam(r, "creator"))
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := s.factory.PoolsByCreator(creator)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handlePoolSummary(w http.ResponseWriter, r *http.Request) {
	record, _, handle, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"record":        record,
		"active":        handle.Active(),
		"snapshotTaken": handle.SnapshotTaken(),
	})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	_, id, handle, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := handle.Activate(s.operator); err != nil {
		writeError(w, err)
		return
	}
	if err := s.factory.Persist(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": true})
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	_, id, handle, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := handle.Deactivate(s.operator); err != nil {
		writeError(w, err)
		return
	}
	if err := s.factory.Persist(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": false})
}

type snapshotRequest struct {
	Tokens []string `json:"tokens"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	_, id, handle, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req snapshotRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	tokens := make([][20]byte, 0, len(req.Tokens))
	for _, tokenHex := range req.Tokens {
		token, err := parseAddr(tokenHex)
		if err != nil {
			writeError(w, err)
			return
		}
		tokens = append(tokens, token)
	}
	if len(tokens) == 0 {
		err = handle.SnapshotNative(s.operator)
	} else {
		err = handle.Snapshot(s.operator, tokens)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.factory.Persist(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"snapshotTaken": true})
}

type assetPayload struct {
	Kind  string `json:"kind"`
	Token string `json:"token"`
}

type addAllocationsRequest struct {
	Participants []string       `json:"participants"`
	Allocations  []string       `json:"allocations"`
	Assets       []assetPayload `json:"assets"`
}

func (s *Server) handleAddAllocations(w http.ResponseWriter, r *http.Request) {
	record, id, _, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req addAllocationsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	participants, err := parseAddrList(req.Participants)
	if err != nil {
		writeError(w, err)
		return
	}
	amounts, err := parseAmountList(req.Allocations)
	if err != nil {
		writeError(w, err)
		return
	}
	switch record.Kind {
	case factory.KindCreator:
		pool, err := s.factory.CreatorPool(id)
		if err != nil {
			writeError(w, err)
			return
		}
		assets, err := parseAssetList(req.Assets)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := pool.AddAllocations(s.operator, participants, assets, amounts); err != nil {
			writeError(w, err)
			return
		}
	default:
		pool, err := s.factory.ProportionalPool(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := pool.AddParticipants(s.operator, participants, amounts); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := s.factory.Persist(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": len(participants)})
}

func (s *Server) handleUpdateAllocations(w http.ResponseWriter, r *http.Request) {
	record, id, _, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req addAllocationsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	participants, err := parseAddrList(req.Participants)
	if err != nil {
		writeError(w, err)
		return
	}
	amounts, err := parseAmountList(req.Allocations)
	if err != nil {
		writeError(w, err)
		return
	}
	switch record.Kind {
	case factory.KindCreator:
		pool, err := s.factory.CreatorPool(id)
		if err != nil {
			writeError(w, err)
			return
		}
		assets, err := parseAssetList(req.Assets)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := pool.UpdateAllocations(s.operator, participants, assets, amounts); err != nil {
			writeError(w, err)
			return
		}
	default:
		pool, err := s.factory.ProportionalPool(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := pool.UpdateParticipants(s.operator, participants, amounts); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := s.factory.Persist(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(participants)})
}

type removeAllocationsRequest struct {
	Participants []string       `json:"participants"`
	Assets       []assetPayload `json:"assets"`
}

// handleRemoveAllocations hard-removes creator allocations. Proportional
// pools only soft-remove via a zero update, so removal is rejected there.
func (s *Server) handleRemoveAllocations(w http.ResponseWriter, r *http.Request) {
	record, id, _, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if record.Kind != factory.KindCreator {
		writeError(w, errBadRequest)
		return
	}
	var req removeAllocationsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	participants, err := parseAddrList(req.Participants)
	if err != nil {
		writeError(w, err)
		return
	}
	assets, err := parseAssetList(req.Assets)
	if err != nil {
		writeError(w, err)
		return
	}
	pool, err := s.factory.CreatorPool(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := pool.RemoveAllocations(s.operator, participants, assets); err != nil {
		writeError(w, err)
		return
	}
	if err := s.factory.Persist(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": len(participants)})
}

type penalizeRequest struct {
	Participants []string `json:"participants"`
	Deltas       []string `json:"deltas"`
}

func (s *Server) handlePenalize(w http.ResponseWriter, r *http.Request) {
	record, id, _, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if record.Kind != factory.KindProportional {
		writeError(w, errBadRequest)
		return
	}
	var req penalizeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	participants, err := parseAddrList(req.Participants)
	if err != nil {
		writeError(w, err)
		return
	}
	deltas, err := parseAmountList(req.Deltas)
	if err != nil {
		writeError(w, err)
		return
	}
	pool, err := s.factory.ProportionalPool(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := pool.PenalizeBatch(s.operator, participants, deltas); err != nil {
		writeError(w, err)
		return
	}
	if err := s.factory.Persist(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"penalized": len(participants)})
}

type withdrawRequest struct {
	Kind   string `json:"kind"`
	Token  string `json:"token"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	_, id, handle, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req withdrawRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAsset(req.Kind, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseAddr(req.To)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := handle.EmergencyWithdraw(s.operator, asset, to, amount); err != nil {
		writeError(w, err)
		return
	}
	if err := s.factory.Persist(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"withdrawn": amount.String()})
}

type signerRequest struct {
	Signer string `json:"signer"`
}

func (s *Server) handleAddSigner(w http.ResponseWriter, r *http.Request) {
	_, id, handle, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req signerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	signer, err := parseAddr(req.Signer)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := handle.AddSigner(s.operator, signer); err != nil {
		writeError(w, err)
		return
	}
	if err := s.factory.Persist(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"added": true})
}

func (s *Server) handleRemoveSigner(w http.ResponseWriter, r *http.Request) {
	_, id, handle, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	signer, err := parseAddr(chi.URLParam(r, "signer"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := handle.RemoveSigner(s.operator, signer); err != nil {
		writeError(w, err)
		return
	}
	if err := s.factory.Persist(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

type feeRecipientRequest struct {
	Recipient string `json:"recipient"`
}

func (s *Server) handleSetFeeRecipient(w http.ResponseWriter, r *http.Request) {
	_, id, handle, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req feeRecipientRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	recipient, err := parseAddr(req.Recipient)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := handle.SetFeeRecipient(s.operator, recipient); err != nil {
		writeError(w, err)
		return
	}
	if err := s.factory.Persist(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleAllocation(w http.ResponseWriter, r *http.Request) {
	record, id, _, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	participant, err := parseAddr(chi.URLParam(r, "participant"))
	if err != nil {
		writeError(w, err)
		return
	}
	var entry *rewardpool.Entry
	var found bool
	switch record.Kind {
	case factory.KindCreator:
		asset, err := queryAsset(r)
		if err != nil {
			writeError(w, err)
			return
		}
		pool, err := s.factory.CreatorPool(id)
		if err != nil {
			writeError(w, err)
			return
		}
		entry, found = pool.Allocation(participant, asset)
	default:
		pool, err := s.factory.ProportionalPool(id)
		if err != nil {
			writeError(w, err)
			return
		}
		entry, found = pool.Allocation(participant)
	}
	if !found {
		writeError(w, rewardpool.ErrParticipantNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"participant": "0x" + hex.EncodeToString(entry.Participant[:]),
		"allocation":  entry.Allocation.String(),
		"active":      entry.Active,
	})
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	_, _, handle, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	participant, err := parseAddr(chi.URLParam(r, "participant"))
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := queryAsset(r)
	if err != nil {
		writeError(w, err)
		return
	}
	eligibility, err := handle.CheckEligibility(participant, asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"gross": eligibility.Gross.String(),
		"fee":   eligibility.Fee.String(),
		"net":   eligibility.Net.String(),
	})
}

func (s *Server) handleClaimed(w http.ResponseWriter, r *http.Request) {
	_, _, handle, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	participant, err := parseAddr(chi.URLParam(r, "participant"))
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := queryAsset(r)
	if err != nil {
		writeError(w, err)
		return
	}
	claimed, err := handle.Claimed(participant, asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"claimed": claimed})
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	_, _, handle, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	participant, err := parseAddr(chi.URLParam(r, "participant"))
	if err != nil {
		writeError(w, err)
		return
	}
	info := handle.NonceInfo(participant)
	used := make([]uint64, 0, len(info.Used))
	for nonce := range info.Used {
		used = append(used, nonce)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"highWatermark": info.HighWatermark,
		"nextNonce":     handle.NextNonce(participant),
		"used":          used,
	})
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	_, _, handle, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := queryAsset(r)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := handle.ValidateCapacity(asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalAllocation": report.TotalAllocation.String(),
		"liveBalance":     report.LiveBalance.String(),
		"covered":         report.Covered,
	})
}

type claimSubmission struct {
	Participant string `json:"participant"`
	Nonce       uint64 `json:"nonce"`
	Kind        string `json:"kind"`
	Token       string `json:"token"`
	Signature   string `json:"signature"`
}

// handleRelayedClaim submits a claim on the participant's behalf; the
// signature in the body is the sole authorization.
func (s *Server) handleRelayedClaim(w http.ResponseWriter, r *http.Request) {
	_, id, handle, err := s.resolvePool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req claimSubmission
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	participant, err := parseAddr(req.Participant)
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAsset(req.Kind, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	sig, err := hex.DecodeString(req.Signature)
	if err != nil {
		writeError(w, rewardpool.ErrInvalidSignature)
		return
	}
	receipt, err := handle.ClaimFor(s.operator, rewardpool.ClaimRequest{
		Participant: participant,
		Nonce:       req.Nonce,
		Asset:       asset,
	}, sig)
	s.metrics.Claims.WithLabelValues(observability.Outcome(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.factory.Persist(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"gross":           receipt.Gross.String(),
		"fee":             receipt.Fee.String(),
		"net":             receipt.Net.String(),
		"allocation":      receipt.Allocation.String(),
		"totalAllocation": receipt.TotalAllocation.String(),
	})
}
