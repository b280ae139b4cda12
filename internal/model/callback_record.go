package model

// Callback kinds accepted by the replay host.
const (
	KindRegister    = "register"
	KindAfterAdd    = "after_add"
	KindAfterRemove = "after_remove"
	KindSwapFee     = "swap_fee"
	KindSetExitFee  = "set_exit_fee"
)

// CallbackRecord is one vault callback as captured for replay. Amounts and percentages are
// decimal strings; percentages use 18 decimals (1e18 == 100%).
type CallbackRecord struct {
	Seq            uint64   `json:"seq"`
	Kind           string   `json:"kind"`
	Timestamp      uint64   `json:"timestamp"`
	Router         string   `json:"router,omitempty"`
	Sender         string   `json:"sender,omitempty"`
	Pool           string   `json:"pool,omitempty"`
	Factory        string   `json:"factory,omitempty"`
	Tokens         []string `json:"tokens,omitempty"`
	EnableDonation bool     `json:"enable_donation,omitempty"`
	AmountsScaled  []string `json:"amounts_scaled,omitempty"`
	AmountsRaw     []string `json:"amounts_raw,omitempty"`
	IndexIn        int      `json:"index_in,omitempty"`
	IndexOut       int      `json:"index_out,omitempty"`
	StaticFee      string   `json:"static_fee,omitempty"`
	ExitFee        string   `json:"exit_fee,omitempty"`
}

// CallbackResult is the hook's answer to a replayed callback.
type CallbackResult struct {
	Seq           uint64   `json:"seq"`
	Kind          string   `json:"kind"`
	Timestamp     uint64   `json:"timestamp"`
	Pool          string   `json:"pool,omitempty"`
	Provider      string   `json:"provider,omitempty"`
	Accepted      bool     `json:"accepted"`
	AmountsRaw    []string `json:"amounts_raw,omitempty"`
	FeePercentage string   `json:"fee_percentage,omitempty"`
}

// CallbackError records a callback the hook rejected or the host could not parse.
type CallbackError struct {
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	Timestamp uint64 `json:"timestamp"`
	Pool      string `json:"pool,omitempty"`
	Error     string `json:"error"`
}
