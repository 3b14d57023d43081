package domain

// CashContext is the ephemeral payload of a cash movement run. It is
// serialized into Session.ContextData and discarded when the session
// context is reset.
type CashContext struct {
	ProviderID int64    `json:"provider_id"`
	MinAmount  float64  `json:"min_amount"`
	MaxAmount  float64  `json:"max_amount"`
	Amount     *float64 `json:"amount,omitempty"`
}

// ReceiptContext is the ephemeral payload of a receipt retrieval run.
type ReceiptContext struct {
	ProviderID        int64  `json:"provider_id"`
	UtilityCount      int    `json:"utility_count"`
	UtilityProviderID string `json:"utility_provider_id,omitempty"`
	TrxID             string `json:"trx_id,omitempty"`
}
