package entities

// TransactionType represents the kind of HotCoin ledger entry
type TransactionType string

const (
	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeBet        TransactionType = "bet"
	TransactionTypePayout     TransactionType = "payout"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

// IsCredit returns true if entries of this type add to the balance
func (tt TransactionType) IsCredit() bool {
	return tt == TransactionTypePurchase ||
		tt == TransactionTypePayout ||
		tt == TransactionTypeRefund
}

// IsDebit returns true if entries of this type remove from the balance
func (tt TransactionType) IsDebit() bool {
	return tt == TransactionTypeBet ||
		tt == TransactionTypeWithdrawal
}

// RequiresVerification returns true for types that carry a verification status
func (tt TransactionType) RequiresVerification() bool {
	return tt == TransactionTypePurchase ||
		tt == TransactionTypeWithdrawal
}

// SignedAmount applies the type's sign convention to a positive magnitude
func (tt TransactionType) SignedAmount(amount int64) int64 {
	if tt.IsDebit() {
		return -amount
	}
	return amount
}

// IsValid checks the type against the known set
func (tt TransactionType) IsValid() bool {
	return tt.IsCredit() || tt.IsDebit()
}

// VerificationStatus tracks manual review of purchases and fulfilment of withdrawals
type VerificationStatus string

const (
	VerificationStatusPending   VerificationStatus = "pending"
	VerificationStatusApproved  VerificationStatus = "approved"
	VerificationStatusRejected  VerificationStatus = "rejected"
	VerificationStatusCompleted VerificationStatus = "completed"
	VerificationStatusFailed    VerificationStatus = "failed"
)

// IsTerminal returns true once no further transition is allowed
func (s VerificationStatus) IsTerminal() bool {
	return s != VerificationStatusPending
}
