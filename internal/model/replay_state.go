package model

// PoolRecord is the host-side view of a pool: its tokens and vault balances.
type PoolRecord struct {
	Address    string   `json:"address"`
	Registered bool     `json:"registered"`
	Tokens     []string `json:"tokens"`
	Balances   []string `json:"balances"`
}

// ReplayState is everything a replay needs to resume after the last processed callback.
type ReplayState struct {
	LastSeq           uint64         `json:"last_seq"`
	ExitFeePercentage string         `json:"exit_fee_percentage"`
	Pools             []PoolRecord   `json:"pools"`
	Ledger            LedgerSnapshot `json:"ledger"`
	UpdatedAt         string         `json:"updated_at"`
}
