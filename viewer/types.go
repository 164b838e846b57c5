package viewer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Employee is a member of staff whose spending shows up in the transaction list.
type Employee struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// EmptyEmployee is the "no filter" choice in the employee selector.
// It never identifies a real employee.
var EmptyEmployee = Employee{ID: "", FirstName: "All", LastName: "Employees"}

// IsEmpty reports whether e is the no-filter sentinel.
func (e Employee) IsEmpty() bool {
	return e.ID == ""
}

// Label returns the display name used by the employee selector.
func (e Employee) Label() string {
	return fmt.Sprintf("%s %s", e.FirstName, e.LastName)
}

// Transaction is a single card transaction.
// Only Approved may change during a session, and only through the edit overlay.
type Transaction struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Employee Employee        `json:"employee"`
	Merchant string          `json:"merchant"`
	Date     string          `json:"date"`
	Approved bool            `json:"approved"`
}

// Page is one batch of the paginated transaction listing.
// A nil NextPage means there is nothing more to fetch.
type Page struct {
	Data     []Transaction `json:"data"`
	NextPage *string       `json:"nextPage"`
}

// Exhausted reports whether the page is the last one.
func (p *Page) Exhausted() bool {
	return p != nil && p.NextPage == nil
}

// Mode is the data source currently driving the visible list.
type Mode int

const (
	ModeAllTransactions Mode = iota
	ModeByEmployee
)

func (m Mode) String() string {
	switch m {
	case ModeAllTransactions:
		return "all"
	case ModeByEmployee:
		return "by-employee"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}
