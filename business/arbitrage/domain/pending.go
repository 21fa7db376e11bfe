package domain

import "time"

// PendingClose is a position whose close leg did not confirm. It is kept
// until a later close attempt succeeds.
type PendingClose struct {
	ID        string      `json:"id"`
	Position  Position    `json:"position"`
	Reason    CloseReason `json:"reason"`
	FailedAt  time.Time   `json:"failedAt"`
	Attempts  int         `json:"attempts"`
	LastError string      `json:"lastError,omitempty"`
	// LastTxHash is the most recent close transaction, which may still confirm later.
	LastTxHash string `json:"lastTxHash,omitempty"`
	// LastTxAt is when LastTxHash was submitted.
	LastTxAt time.Time `json:"lastTxAt,omitzero"`
}
