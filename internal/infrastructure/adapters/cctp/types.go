package cctp

import "github.com/shopspring/decimal"

// MessagesResponse is the body of GET /v2/messages/{sourceDomain}
type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

// Message is a single CCTP message and its attestation
type Message struct {
	Attestation string          `json:"attestation"`
	Message     string          `json:"message"`
	EventNonce  string          `json:"eventNonce"`
	CCTPVersion int             `json:"cctpVersion"`
	Status      string          `json:"status"`
	DecodedMsg  *DecodedMessage `json:"decodedMessage,omitempty"`
	DelayReason string          `json:"delayReason,omitempty"`
}

// DecodedMessage holds the fields of the burn message Iris decodes for us
type DecodedMessage struct {
	SourceDomain      string `json:"sourceDomain"`
	DestinationDomain string `json:"destinationDomain"`
	Nonce             string `json:"nonce"`
	Sender            string `json:"sender"`
	Recipient         string `json:"recipient"`
}

// IsComplete reports whether the attestation can be used to mint
func (m Message) IsComplete() bool {
	return m.Status == AttestationStatusComplete && m.Attestation != "" && m.Attestation != "PENDING"
}

// FeeTier is one entry of GET /v2/burn/USDC/fees/{source}/{destination}
type FeeTier struct {
	FinalityThreshold uint32          `json:"finalityThreshold"`
	MinimumFee        decimal.Decimal `json:"minimumFee"` // basis points
}
