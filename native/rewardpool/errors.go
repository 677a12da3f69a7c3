package rewardpool

import "errors"

var (
	// Authorization.
	ErrNotOperator         = errors.New("rewardpool: caller is not the pool operator")
	ErrNotParticipant      = errors.New("rewardpool: caller is not the claim participant")
	ErrSignerNotAuthorized = errors.New("rewardpool: recovered signer lacks authority")

	// Activation state machine.
	ErrPoolActive   = errors.New("rewardpool: pool is active")
	ErrPoolInactive = errors.New("rewardpool: pool is not active")
	ErrNoSnapshot   = errors.New("rewardpool: no snapshot taken")

	// Input validation.
	ErrZeroAddress         = errors.New("rewardpool: zero address")
	ErrZeroAllocation      = errors.New("rewardpool: allocation must be positive")
	ErrInvalidAmount       = errors.New("rewardpool: amount must be positive")
	ErrInvalidAsset        = errors.New("rewardpool: asset kind and token id mismatch")
	ErrInvalidFee          = errors.New("rewardpool: fee must not exceed 1000 bps")
	ErrBatchLengthMismatch = errors.New("rewardpool: batch arrays must have equal length")
	ErrEmptyBatch          = errors.New("rewardpool: batch must not be empty")
	ErrMoverRequired       = errors.New("rewardpool: value mover not configured")

	// Conflicts and lookups.
	ErrParticipantExists   = errors.New("rewardpool: participant already has an active entry")
	ErrParticipantNotFound = errors.New("rewardpool: participant has no active entry")
	ErrAlreadyClaimed      = errors.New("rewardpool: reward already claimed for asset")
	ErrNonceUsed           = errors.New("rewardpool: nonce already consumed")

	// Claim execution.
	ErrNoAllocation      = errors.New("rewardpool: nothing allocated")
	ErrInsufficientFunds = errors.New("rewardpool: insufficient live balance")
	ErrTransferFailed    = errors.New("rewardpool: value transfer failed")
	ErrInvalidSignature  = errors.New("rewardpool: invalid claim signature")
	ErrReentrantCall     = errors.New("rewardpool: reentrant call rejected")
)
