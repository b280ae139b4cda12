package model

// HookEvent is an event emitted by the hook, encoded the way a chain log would carry it.
type HookEvent struct {
	Seq       uint64      `json:"seq"`
	LogIndex  int         `json:"log_index"`
	Timestamp uint64      `json:"timestamp"`
	Address   string      `json:"address"`
	EventName string      `json:"event_name"`
	Topics    []string    `json:"topics"`
	Data      string      `json:"data"`
	Decoded   interface{} `json:"decoded"`
}

// ExitFeeChargedData is the decoded ExitFeeCharged payload.
type ExitFeeChargedData struct {
	Pool      string `json:"pool"`
	Token     string `json:"token"`
	FeeAmount string `json:"fee_amount"`
}

// ExitFeePercentageChangedData is the decoded ExitFeePercentageChanged payload.
type ExitFeePercentageChangedData struct {
	HookContract      string `json:"hook_contract"`
	ExitFeePercentage string `json:"exit_fee_percentage"`
}
