package entities

// ErrorCode is the stable machine-readable failure code returned to clients.
type ErrorCode string

const (
	CodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	CodeInvalidAmount          ErrorCode = "INVALID_AMOUNT"
	CodeInsufficientBalance    ErrorCode = "INSUFFICIENT_BALANCE"
	CodeAmountExceedsBalance   ErrorCode = "AMOUNT_EXCEEDS_BALANCE"
	CodeAcknowledgementMissing ErrorCode = "ACKNOWLEDGEMENT_MISSING"
	CodePlatformRestriction    ErrorCode = "PLATFORM_RESTRICTION"
	CodeBuyEligibilityFailed   ErrorCode = "BUY_ELIGIBILITY_FAILED"
	CodeSnapshotFailed         ErrorCode = "SNAPSHOT_FAILED"
	CodeWalletDebitFailed      ErrorCode = "WALLET_DEBIT_FAILED"
	CodeInternalError          ErrorCode = "INTERNAL_ERROR"
	CodeNotFound               ErrorCode = "NOT_FOUND"
	CodeUnauthorized           ErrorCode = "UNAUTHORIZED"
)
