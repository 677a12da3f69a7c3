package rewardpool

const (
	// EventTypeParticipantAdded is emitted when an allocation entry is created or revived.
	EventTypeParticipantAdded = "rewardpool.participant.added"
	// EventTypeParticipantUpdated is emitted when an allocation weight changes.
	EventTypeParticipantUpdated = "rewardpool.participant.updated"
	// EventTypeParticipantRemoved is emitted when an entry is soft-removed.
	EventTypeParticipantRemoved = "rewardpool.participant.removed"
	// EventTypeParticipantPenalized is emitted when a weight is reduced by penalty.
	EventTypeParticipantPenalized = "rewardpool.participant.penalized"
	// EventTypePoolActivated is emitted when the pool enters claim mode.
	EventTypePoolActivated = "rewardpool.pool.activated"
	// EventTypePoolDeactivated is emitted when the pool returns to mutation mode.
	EventTypePoolDeactivated = "rewardpool.pool.deactivated"
	// EventTypeSnapshotTaken is emitted when distributable balances are frozen.
	EventTypeSnapshotTaken = "rewardpool.snapshot.taken"
	// EventTypeRewardClaimed is emitted when a claim settles.
	EventTypeRewardClaimed = "rewardpool.claim.paid"
	// EventTypeSignerAdded is emitted when claim-signing authority is granted.
	EventTypeSignerAdded = "rewardpool.signer.added"
	// EventTypeSignerRemoved is emitted when claim-signing authority is revoked.
	EventTypeSignerRemoved = "rewardpool.signer.removed"
	// EventTypeFeeRecipientUpdated is emitted when the fee destination changes.
	EventTypeFeeRecipientUpdated = "rewardpool.fee.recipient_updated"
	// EventTypeEmergencyWithdrawal is emitted when the operator drains funds.
	EventTypeEmergencyWithdrawal = "rewardpool.withdrawal.executed"
)

// Event is the structured payload delivered to emitters.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// EventType implements the events.Event interface.
func (e *Event) EventType() string {
	if e == nil {
		return ""
	}
	return e.Type
}

// ParticipantAddedEvent captures a new or revived allocation entry.
func ParticipantAddedEvent(pool, participant, asset, allocation, total string) *Event {
	return &Event{
		Type: EventTypeParticipantAdded,
		Attributes: map[string]string{
			"pool":        pool,
			"participant": participant,
			"asset":       asset,
			"allocation":  allocation,
			"total":       total,
		},
	}
}

// ParticipantUpdatedEvent captures an allocation change, keeping the previous
// weight for the audit trail.
func ParticipantUpdatedEvent(pool, participant, asset, oldAllocation, newAllocation, total string) *Event {
	return &Event{
		Type: EventTypeParticipantUpdated,
		Attributes: map[string]string{
			"pool":          pool,
			"participant":   participant,
			"asset":         asset,
			"oldAllocation": oldAllocation,
			"newAllocation": newAllocation,
			"total":         total,
		},
	}
}

// ParticipantRemovedEvent captures a soft removal.
func ParticipantRemovedEvent(pool, participant, asset, removed, total string) *Event {
	return &Event{
		Type: EventTypeParticipantRemoved,
		Attributes: map[string]string{
			"pool":        pool,
			"participant": participant,
			"asset":       asset,
			"removed":     removed,
			"total":       total,
		},
	}
}

// ParticipantPenalizedEvent captures a clamped penalty, recording the amount
// actually removed rather than the requested delta.
func ParticipantPenalizedEvent(pool, participant, removed, newAllocation, total string) *Event {
	return &Event{
		Type: EventTypeParticipantPenalized,
		Attributes: map[string]string{
			"pool":          pool,
			"participant":   participant,
			"removed":       removed,
			"newAllocation": newAllocation,
			"total":         total,
		},
	}
}

// PoolActivatedEvent marks the transition into claim mode.
func PoolActivatedEvent(pool string) *Event {
	return &Event{Type: EventTypePoolActivated, Attributes: map[string]string{"pool": pool}}
}

// PoolDeactivatedEvent marks the transition back into mutation mode.
func PoolDeactivatedEvent(pool string) *Event {
	return &Event{Type: EventTypePoolDeactivated, Attributes: map[string]string{"pool": pool}}
}

// SnapshotTakenEvent records the frozen native amount and touched token keys.
func SnapshotTakenEvent(pool, native, tokens string) *Event {
	return &Event{
		Type: EventTypeSnapshotTaken,
		Attributes: map[string]string{
			"pool":   pool,
			"native": native,
			"tokens": tokens,
		},
	}
}

// RewardClaimedEvent carries the full gross/net/fee breakdown and the
// allocation snapshot the payout was computed from, for off-chain
// reconciliation.
func RewardClaimedEvent(pool, participant, asset string, receipt *ClaimReceipt) *Event {
	return &Event{
		Type: EventTypeRewardClaimed,
		Attributes: map[string]string{
			"pool":            pool,
			"participant":     participant,
			"asset":           asset,
			"gross":           receipt.Gross.String(),
			"fee":             receipt.Fee.String(),
			"net":             receipt.Net.String(),
			"allocation":      receipt.Allocation.String(),
			"totalAllocation": receipt.TotalAllocation.String(),
		},
	}
}

// SignerAddedEvent records a grant of claim-signing authority.
func SignerAddedEvent(pool, signer string) *Event {
	return &Event{Type: EventTypeSignerAdded, Attributes: map[string]string{"pool": pool, "signer": signer}}
}

// SignerRemovedEvent records a revocation of claim-signing authority.
func SignerRemovedEvent(pool, signer string) *Event {
	return &Event{Type: EventTypeSignerRemoved, Attributes: map[string]string{"pool": pool, "signer": signer}}
}

// FeeRecipientUpdatedEvent records a fee destination change.
func FeeRecipientUpdatedEvent(pool, recipient string) *Event {
	return &Event{Type: EventTypeFeeRecipientUpdated, Attributes: map[string]string{"pool": pool, "recipient": recipient}}
}

// EmergencyWithdrawalEvent records an operator drain.
func EmergencyWithdrawalEvent(pool, asset, to, amount string) *Event {
	return &Event{
		Type: EventTypeEmergencyWithdrawal,
		Attributes: map[string]string{
			"pool":   pool,
			"asset":  asset,
			"to":     to,
			"amount": amount,
		},
	}
}
