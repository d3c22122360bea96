package entities

import (
	"time"

	"github.com/google/uuid"
)

// OperatorAlertKind says why an operator is being pinged
type OperatorAlertKind string

const (
	OperatorAlertPurchaseReview    OperatorAlertKind = "purchase_review"
	OperatorAlertWithdrawalRequest OperatorAlertKind = "withdrawal_request"
)

// OperatorAlert is a best-effort message asking an operator to act on a ledger entry
type OperatorAlert struct {
	Kind          OperatorAlertKind `json:"kind"`
	TransactionID int64             `json:"transaction_id"`
	AccountID     uuid.UUID         `json:"account_id"`
	Amount        int64             `json:"amount"`
	Description   string            `json:"description"`
	RaisedAt      time.Time         `json:"raised_at"`
}
