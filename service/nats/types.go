package nats

import (
	"time"

	"github.com/brojonat/txnview/viewer"
	"github.com/shopspring/decimal"
)

// ApprovalEvent is published whenever a transaction's approval flag changes.
// It is published to the subject "approvals.{employee_id}" in JetStream.
type ApprovalEvent struct {
	TransactionID string          `json:"transaction_id"`
	EmployeeID    string          `json:"employee_id"`
	EmployeeName  string          `json:"employee_name"`
	Merchant      string          `json:"merchant"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	Approved      bool            `json:"approved"`

	PublishedAt time.Time `json:"published_at"`
}

// Subject returns the JetStream subject the event is published to.
func (e *ApprovalEvent) Subject() string {
	return SubjectForEmployee(e.EmployeeID)
}

// SubjectForEmployee returns the subject carrying one employee's approval
// events. An empty id selects every employee.
func SubjectForEmployee(employeeID string) string {
	if employeeID == "" {
		return StreamSubjects
	}
	return subjectPrefix + employeeID
}

// FromTransaction converts a stored transaction to an ApprovalEvent.
func FromTransaction(txn viewer.Transaction) *ApprovalEvent {
	return &ApprovalEvent{
		TransactionID: txn.ID,
		EmployeeID:    txn.Employee.ID,
		EmployeeName:  txn.Employee.Label(),
		Merchant:      txn.Merchant,
		Amount:        txn.Amount,
		Date:          txn.Date,
		Approved:      txn.Approved,
		PublishedAt:   time.Now().UTC(),
	}
}
