package wormhole

// OperationsResponse is the body of GET /api/v1/operations
type OperationsResponse struct {
	Operations []Operation `json:"operations"`
}

// Operation is one message observed by the guardians and, once signed, its VAA.
type Operation struct {
	ID             string         `json:"id"`
	EmitterChain   uint16         `json:"emitterChain"`
	EmitterAddress EmitterAddress `json:"emitterAddress"`
	Sequence       string         `json:"sequence"`
	VAA            *VAA           `json:"vaa,omitempty"`
	SourceChain    *ChainActivity `json:"sourceChain,omitempty"`
	TargetChain    *ChainActivity `json:"targetChain,omitempty"`
}

type EmitterAddress struct {
	Hex    string `json:"hex"`
	Native string `json:"native"`
}

// VAA holds the base64 encoded signed message.
type VAA struct {
	Raw              string `json:"raw"`
	GuardianSetIndex uint32 `json:"guardianSetIndex"`
	IsDuplicated     bool   `json:"isDuplicated"`
}

type ChainActivity struct {
	ChainID     uint16      `json:"chainId"`
	Status      string      `json:"status"`
	Transaction Transaction `json:"transaction"`
}

type Transaction struct {
	TxHash string `json:"txHash"`
}

// Signed reports whether the guardians have produced a VAA.
func (o Operation) Signed() bool {
	return o.VAA != nil && o.VAA.Raw != ""
}
