package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeChainConnectionFailed: "Failed to connect to chain RPC",
	CodeChainRPCError:         "Chain RPC call failed",
	CodeContractCallFailed:    "Smart contract call failed",
	CodeSignerInvalid:         "Signer private key is invalid",
	CodeCircuitOpen:           "Circuit breaker is open",

	CodePriceUnavailable:    "Price unavailable",
	CodeMoralisAPIError:     "Moralis API error",
	CodeSubgraphQueryFailed: "Subgraph query failed",
	CodePairNotFound:        "Pair not found in subgraph",

	CodeTradeSubmitFailed:   "Failed to submit swap transaction",
	CodeTradeReverted:       "Swap transaction reverted",
	CodeConfirmationTimeout: "Timed out waiting for confirmations",
	CodeSlippageQuoteFailed: "Failed to quote minimum output",
	CodeApprovalFailed:      "Token approval failed",
	CodeInsufficientBalance: "Insufficient balance for trade",

	CodeTokenListUnreadable: "Token list could not be read",
	CodePositionExists:      "Position already exists for token",
	CodePositionNotFound:    "Position not found",
	CodeInvalidTransition:   "Invalid position state transition",
	CodeLedgerWriteFailed:   "Failed to write trade ledger",
	CodeLedgerReadFailed:    "Failed to read trade ledger",
	CodePendingStoreFailed:  "Pending-close store error",

	CodeNotificationFailed: "Notification delivery failed",
}
