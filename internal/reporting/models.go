package reporting

import "time"

// OrdersSummary aggregates order activity inside a window. Revenue counts only
// fulfilled orders (completed or delivered); refunded money is excluded.
type OrdersSummary struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	TotalOrders   int            `json:"total_orders"`
	ByStatus      map[string]int `json:"by_status"`
	RevenueMinor  int64          `json:"revenue_minor"`
	DiscountMinor int64          `json:"discount_minor"`
}

// WalletSummary aggregates ledger movement inside a window.
type WalletSummary struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	CreditedMinor int64 `json:"credited_minor"`
	DebitedMinor  int64 `json:"debited_minor"`
	RefundedMinor int64 `json:"refunded_minor"`
}
