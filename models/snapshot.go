package models

// Snapshot is one timestamped observation of the community-wide counters
// published in hodl_snapshots.json. Numeric fields are pointers so a missing
// or scrubbed reading stays distinguishable from a real zero.
type Snapshot struct {
	ID                         int64    `json:"id"`
	Hodl10kAddressesCount      *float64 `json:"hodl_10k_addresses_count,omitempty"`
	NewAccountsViaSolana       *float64 `json:"new_accounts_via_solana,omitempty"`
	TotalSolanaAddressesLinked *float64 `json:"total_solana_addresses_linked,omitempty"`
	SolTipOperationsCount      *float64 `json:"sol_tip_operations_count,omitempty"`
	MemberTipsSent             *float64 `json:"member_tips_sent,omitempty"`
	MemberTipsReceived         *float64 `json:"member_tips_received,omitempty"`
	TotalSolTipAmount          *float64 `json:"total_sol_tip_amount,omitempty"`
	TokenTipCount              *float64 `json:"v2ex_token_tip_count,omitempty"`
	TotalTokenTipAmount        *float64 `json:"total_v2ex_token_tip_amount,omitempty"`
	CurrentOnlineUsers         *float64 `json:"current_online_users,omitempty"`
	PeakOnlineUsers            *float64 `json:"peak_online_users,omitempty"`
	Holders                    *float64 `json:"holders,omitempty"`
	Price                      *float64 `json:"price,omitempty"`
	PriceChange24h             *float64 `json:"price_change_24h,omitempty"`
	BTCPrice                   *float64 `json:"btc_price,omitempty"`
	SOLPrice                   *float64 `json:"sol_price,omitempty"`
	PumpPrice                  *float64 `json:"pump_price,omitempty"`
	MainAmmTokenAmount         *float64 `json:"main_amm_v2ex_amount,omitempty"`
	MainAmmSolAmount           *float64 `json:"main_amm_sol_amount,omitempty"`
	CreatedAt                  Time     `json:"created_at"`
}

// PriceFields lists the asset price columns tracked for charting, in display
// order.
var PriceFields = []string{"price", "pump_price", "sol_price", "btc_price"}

// Field returns the named scalar metric, or nil when the snapshot does not
// carry it. Names follow the JSON keys of the published files.
func (s *Snapshot) Field(name string) *float64 {
	switch name {
	case "hodl_10k_addresses_count":
		return s.Hodl10kAddressesCount
	case "new_accounts_via_solana":
		return s.NewAccountsViaSolana
	case "total_solana_addresses_linked":
		return s.TotalSolanaAddressesLinked
	case "sol_tip_operations_count":
		return s.SolTipOperationsCount
	case "member_tips_sent":
		return s.MemberTipsSent
	case "member_tips_received":
		return s.MemberTipsReceived
	case "total_sol_tip_amount":
		return s.TotalSolTipAmount
	case "v2ex_token_tip_count":
		return s.TokenTipCount
	case "total_v2ex_token_tip_amount":
		return s.TotalTokenTipAmount
	case "current_online_users":
		return s.CurrentOnlineUsers
	case "peak_online_users":
		return s.PeakOnlineUsers
	case "holders":
		return s.Holders
	case "price":
		return s.Price
	case "price_change_24h":
		return s.PriceChange24h
	case "btc_price":
		return s.BTCPrice
	case "sol_price":
		return s.SOLPrice
	case "pump_price":
		return s.PumpPrice
	case "main_amm_v2ex_amount":
		return s.MainAmmTokenAmount
	case "main_amm_sol_amount":
		return s.MainAmmSolAmount
	default:
		return nil
	}
}

// SetField overwrites the named scalar metric. Unknown names are ignored.
func (s *Snapshot) SetField(name string, v *float64) {
	switch name {
	case "price":
		s.Price = v
	case "pump_price":
		s.PumpPrice = v
	case "sol_price":
		s.SOLPrice = v
	case "btc_price":
		s.BTCPrice = v
	case "holders":
		s.Holders = v
	case "current_online_users":
		s.CurrentOnlineUsers = v
	case "peak_online_users":
		s.PeakOnlineUsers = v
	case "main_amm_v2ex_amount":
		s.MainAmmTokenAmount = v
	case "main_amm_sol_amount":
		s.MainAmmSolAmount = v
	}
}

// KnownField reports whether name is a metric this snapshot schema carries.
func KnownField(name string) bool {
	switch name {
	case "hodl_10k_addresses_count", "new_accounts_via_solana",
		"total_solana_addresses_linked", "sol_tip_operations_count",
		"member_tips_sent", "member_tips_received", "total_sol_tip_amount",
		"v2ex_token_tip_count", "total_v2ex_token_tip_amount",
		"current_online_users", "peak_online_users", "holders", "price",
		"price_change_24h", "btc_price", "sol_price", "pump_price",
		"main_amm_v2ex_amount", "main_amm_sol_amount":
		return true
	}
	return false
}
