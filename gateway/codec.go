package gateway

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"rewardhub/factory"
	"rewardhub/native/bank"
	"rewardhub/native/rewardpool"
)

var errBadRequest = errors.New("gateway: malformed request")

type errorEnvelope struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorEnvelope{Error: err.Error()})
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rewardpool.ErrNotOperator),
		errors.Is(err, rewardpool.ErrNotParticipant),
		errors.Is(err, rewardpool.ErrSignerNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, rewardpool.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, rewardpool.ErrParticipantNotFound),
		errors.Is(err, factory.ErrPoolNotFound):
		return http.StatusNotFound
	case errors.Is(err, rewardpool.ErrPoolActive),
		errors.Is(err, rewardpool.ErrPoolInactive),
		errors.Is(err, rewardpool.ErrNoSnapshot),
		errors.Is(err, rewardpool.ErrAlreadyClaimed),
		errors.Is(err, rewardpool.ErrNonceUsed),
		errors.Is(err, rewardpool.ErrNoAllocation),
		errors.Is(err, rewardpool.ErrParticipantExists),
		errors.Is(err, rewardpool.ErrInsufficientFunds),
		errors.Is(err, rewardpool.ErrReentrantCall),
		errors.Is(err, bank.ErrInsufficientFunds):
		return http.StatusConflict
	case errors.Is(err, rewardpool.ErrTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, rewardpool.ErrZeroAddress),
		errors.Is(err, rewardpool.ErrZeroAllocation),
		errors.Is(err, rewardpool.ErrInvalidAmount),
		errors.Is(err, rewardpool.ErrInvalidAsset),
		errors.Is(err, rewardpool.ErrInvalidFee),
		errors.Is(err, rewardpool.ErrBatchLengthMismatch),
		errors.Is(err, rewardpool.ErrEmptyBatch),
		errors.Is(err, factory.ErrWrongKind),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseAddr(s string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("%w: %v", rewardpool.ErrZeroAddress, err)
	}
	if len(raw) != 20 {
		return out, fmt.Errorf("%w: address must be 20 bytes", rewardpool.ErrZeroAddress)
	}
	copy(out[:], raw)
	if out == ([20]byte{}) {
		return out, rewardpool.ErrZeroAddress
	}
	return out, nil
}

// parseAsset decodes the (kind, token) pair supplied independently by the
// caller; rewardpool.Asset.Validate re-checks the pairing downstream.
func parseAsset(kind, token string) (rewardpool.Asset, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "native":
		if strings.TrimSpace(token) != "" {
			return rewardpool.Asset{}, rewardpool.ErrInvalidAsset
		}
		return rewardpool.NativeAsset(), nil
	case "token":
		addr, err := parseAddr(token)
		if err != nil {
			return rewardpool.Asset{}, rewardpool.ErrInvalidAsset
		}
		return rewardpool.TokenAsset(addr)
	default:
		return rewardpool.Asset{}, rewardpool.ErrInvalidAsset
	}
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid amount %q", rewardpool.ErrInvalidAmount, s)
	}
	return v, nil
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, requestBodyLimit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
