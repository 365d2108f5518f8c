package entities

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// QuoteRequest asks for the method and fees of a prospective transfer
type QuoteRequest struct {
	SourceChain      string `json:"source_chain" validate:"required"`
	DestinationChain string `json:"destination_chain" validate:"required"`
	Amount           string `json:"amount" validate:"required"`
}

// QuoteResponse is the selected method with its fee estimate
type QuoteResponse struct {
	SourceChain      ChainID        `json:"source_chain"`
	DestinationChain ChainID        `json:"destination_chain"`
	Amount           string         `json:"amount"`
	Method           TransferMethod `json:"method"`
	Fees             FeeBreakdown   `json:"fees"`
}

// RouteResponse is the method selected for a chain pair
type RouteResponse struct {
	SourceChain      ChainID        `json:"source_chain"`
	DestinationChain ChainID        `json:"destination_chain"`
	Method           TransferMethod `json:"method"`
}

// CreateTransferAPIRequest is the HTTP body for starting a transfer
type CreateTransferAPIRequest struct {
	SourceChain      string `json:"source_chain" validate:"required"`
	DestinationChain string `json:"destination_chain" validate:"required"`
	Amount           string `json:"amount" validate:"required"`
	SignerAddress    string `json:"signer_address" validate:"omitempty,max=128"`
	RecipientAddress string `json:"recipient_address" validate:"omitempty,max=128"`
}

// FailTransferRequest is the HTTP body for aborting a transfer
type FailTransferRequest struct {
	Reason string `json:"reason" validate:"required,max=512"`
}

// TransferResponse wraps a record with explorer links
type TransferResponse struct {
	*TransferRecord
	SourceTxURL string `json:"source_tx_url,omitempty"`
	RedeemTxURL string `json:"redeem_tx_url,omitempty"`
}
