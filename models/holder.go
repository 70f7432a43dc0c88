package models

import "strconv"

// AddressRanking is one leaderboard row from solana_addresses.json. Only the
// most recent day's ranking is retained; it represents current standings, not
// history.
type AddressRanking struct {
	ID                  int64   `json:"id"`
	OwnerAddress        string  `json:"owner_address"`
	Username            *string `json:"v2ex_username,omitempty"`
	AvatarURL           *string `json:"avatar_url,omitempty"`
	TokenAddress        string  `json:"token_address"`
	TokenAccountAddress string  `json:"token_account_address"`
	HoldRank            int     `json:"hold_rank"`
	HoldAmount          float64 `json:"hold_amount"`
	Decimals            int     `json:"decimals"`
	RankDelta           int     `json:"rank_delta"`
	HoldPercentage      float64 `json:"hold_percentage"`
	AmountDelta         float64 `json:"amount_delta"`
	CheckedAt           Time    `json:"checked_at"`
}

// AddressChangeEvent records that a holder's rank or balance moved. It carries
// a native amount delta; events are append-only per day and never mutated.
type AddressChangeEvent struct {
	ID                  int64   `json:"id"`
	OwnerAddress        string  `json:"owner_address"`
	Username            *string `json:"v2ex_username,omitempty"`
	AvatarURL           *string `json:"avatar_url,omitempty"`
	TokenAddress        string  `json:"token_address"`
	TokenAccountAddress string  `json:"token_account_address"`
	HoldRank            int     `json:"hold_rank"`
	HoldAmount          float64 `json:"hold_amount"`
	Decimals            int     `json:"decimals"`
	HoldPercentage      float64 `json:"hold_percentage"`
	RankDelta           int     `json:"rank_delta"`
	AmountDelta         float64 `json:"amount_delta"`
	ChangedAt           Time    `json:"changed_at"`
}

// AddressRemovalEvent records that a holder fell out of the tracked top-N.
// Unlike AddressChangeEvent it has no native amount delta; the delta has to be
// derived during reconciliation.
type AddressRemovalEvent struct {
	ID                  int64   `json:"id"`
	OwnerAddress        string  `json:"owner_address"`
	Username            *string `json:"v2ex_username,omitempty"`
	AvatarURL           *string `json:"avatar_url,omitempty"`
	TokenAddress        string  `json:"token_address"`
	TokenAccountAddress string  `json:"token_account_address"`
	HoldRank            int     `json:"hold_rank"`
	HoldAmount          float64 `json:"hold_amount"`
	Decimals            int     `json:"decimals"`
	HoldPercentage      float64 `json:"hold_percentage"`
	RankDelta           int     `json:"rank_delta"`
	RemovedAt           Time    `json:"removed_at"`
}

// EventKind discriminates the two holder event variants once they are merged
// into one feed.
type EventKind string

const (
	EventChange  EventKind = "change"
	EventRemoval EventKind = "removed"
)

// HolderEvent is the unified view of a change or removal event. AmountDelta is
// the native delta and is only set for change events; ComputedDelta is filled
// by reconciliation and supersedes it for display.
type HolderEvent struct {
	Kind          EventKind `json:"kind"`
	ID            int64     `json:"id"`
	OwnerAddress  string    `json:"owner_address"`
	Username      *string   `json:"v2ex_username,omitempty"`
	AvatarURL     *string   `json:"avatar_url,omitempty"`
	HoldRank      int       `json:"hold_rank"`
	HoldAmount    float64   `json:"hold_amount"`
	RankDelta     int       `json:"rank_delta"`
	AmountDelta   *float64  `json:"amount_delta,omitempty"`
	OccurredAt    Time      `json:"occurred_at"`
	ComputedDelta float64   `json:"computed_delta"`
}

// Key identifies an event across the merged feed. Change and removal IDs come
// from different tables, so the kind is part of the key.
func (e *HolderEvent) Key() string {
	return string(e.Kind) + "-" + strconv.FormatInt(e.ID, 10)
}

// LPEntry is one row of the lp.json metadata file mapping an owner address to
// a display identity.
type LPEntry struct {
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// LPMetadata maps owner address to display metadata.
type LPMetadata map[string]LPEntry
