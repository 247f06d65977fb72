package audithook

// Action constants for audit events.
const (
	// Token movement actions
	ActionTokensMinted      = "tokens.minted"
	ActionTokensTransferred = "tokens.transferred"
	ActionTokensBurned      = "tokens.burned"
	ActionAllowanceApproved = "allowance.approved"

	// Administrative actions
	ActionOwnershipTransferred = "ownership.transferred"
	ActionFeeChanged           = "fee.changed"
	ActionFullMintingEnabled   = "minting.full_enabled"

	// Rejections
	ActionMintRejected      = "mint.rejected"
	ActionOperationRejected = "operation.rejected"
)

// Resource constants for audit events.
const (
	ResourceAccount   = "account"
	ResourceAllowance = "allowance"
	ResourceLedger    = "ledger"
)

// Category constants for audit events.
const (
	CategoryTransfer = "transfer"
	CategorySupply   = "supply"
	CategoryAdmin    = "admin"
	CategoryAccess   = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
