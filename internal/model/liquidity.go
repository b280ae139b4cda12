package model

// LiquidityRecord is the persisted form of one (pool, provider) ledger row.
type LiquidityRecord struct {
	Pool     string   `json:"pool"`
	Provider string   `json:"provider"`
	Amounts  []string `json:"amounts"`
}

// DepositClock is the persisted lock-up start for a provider.
type DepositClock struct {
	Provider string `json:"provider"`
	Since    uint64 `json:"since"`
}

// LedgerSnapshot captures the full ledger state in a stable order.
type LedgerSnapshot struct {
	Records []LiquidityRecord `json:"records"`
	Clocks  []DepositClock    `json:"clocks"`
}
