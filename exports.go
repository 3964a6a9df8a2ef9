package ledger

import "github.com/xraph/creditledger/types"

// Re-export common types for convenience so users don't have to import the
// types package directly.

// Decimal is re-exported from the types package.
type Decimal = types.Decimal

// Entity is re-exported from the types package.
type Entity = types.Entity

var (
	Zero           = types.Zero
	Sum            = types.Sum
	NewDecimal     = types.New
	NewFromFloat   = types.NewFromFloat
	NewFromString  = types.NewFromString
	MustFromString = types.MustFromString
)

// NewEntity is re-exported from the types package.
var NewEntity = types.NewEntity
