package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Chain access
const (
	CodeChainConnectionFailed Code = "CHAIN_CONNECTION_FAILED"
	CodeChainRPCError         Code = "CHAIN_RPC_ERROR"
	CodeContractCallFailed    Code = "CONTRACT_CALL_FAILED"
	CodeSignerInvalid         Code = "SIGNER_INVALID"
	CodeCircuitOpen           Code = "CIRCUIT_OPEN"
)

// Pricing
const (
	CodePriceUnavailable    Code = "PRICE_UNAVAILABLE"
	CodeMoralisAPIError     Code = "MORALIS_API_ERROR"
	CodeSubgraphQueryFailed Code = "SUBGRAPH_QUERY_FAILED"
	CodePairNotFound        Code = "PAIR_NOT_FOUND"
)

// Trade execution
const (
	CodeTradeSubmitFailed   Code = "TRADE_SUBMIT_FAILED"
	CodeTradeReverted       Code = "TRADE_REVERTED"
	CodeConfirmationTimeout Code = "CONFIRMATION_TIMEOUT"
	CodeSlippageQuoteFailed Code = "SLIPPAGE_QUOTE_FAILED"
	CodeApprovalFailed      Code = "APPROVAL_FAILED"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
)

// Positions and persistence
const (
	CodeTokenListUnreadable Code = "TOKEN_LIST_UNREADABLE"
	CodePositionExists      Code = "POSITION_EXISTS"
	CodePositionNotFound    Code = "POSITION_NOT_FOUND"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeLedgerWriteFailed   Code = "LEDGER_WRITE_FAILED"
	CodeLedgerReadFailed    Code = "LEDGER_READ_FAILED"
	CodePendingStoreFailed  Code = "PENDING_STORE_FAILED"
)

// Notification
const (
	CodeNotificationFailed Code = "NOTIFICATION_FAILED"
)
