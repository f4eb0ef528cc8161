package models

// TronGridTRC20Response is the shape of TronGrid's
// /v1/accounts/{address}/transactions/trc20 endpoint.
type TronGridTRC20Response struct {
	Data    []TRC20Transfer `json:"data"`
	Success bool            `json:"success"`
	Meta    struct {
		At       int64 `json:"at"`
		PageSize int   `json:"page_size"`
	} `json:"meta"`
}

// TRC20Transfer is a single token transfer as reported by TronGrid.
// Value is a raw integer string in token base units (USDT has 6 decimals).
type TRC20Transfer struct {
	TransactionID  string `json:"transaction_id"`
	From           string `json:"from"`
	To             string `json:"to"`
	Type           string `json:"type"`
	Value          string `json:"value"`
	BlockTimestamp int64  `json:"block_timestamp"`
	TokenInfo      struct {
		Symbol   string `json:"symbol"`
		Address  string `json:"address"`
		Decimals int    `json:"decimals"`
		Name     string `json:"name"`
	} `json:"token_info"`
}

// VerificationResult is what the blockchain service reports back to the
// payment service after scanning recent transfers.
type VerificationResult struct {
	Verified bool    `json:"verified"`
	TxID     string  `json:"txId,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
	Message  string  `json:"message,omitempty"`
}
