package cctp

import "context"

// CCTPClient defines the Iris API operations the bridge uses
type CCTPClient interface {
	// GetMessages returns the CCTP messages emitted by a burn transaction
	GetMessages(ctx context.Context, sourceDomain uint32, txHash string) (*MessagesResponse, error)

	// GetFees returns the fee tiers for a domain pair
	GetFees(ctx context.Context, sourceDomain, destDomain uint32) ([]FeeTier, error)
}

// Ensure Client implements CCTPClient interface
var _ CCTPClient = (*Client)(nil)
