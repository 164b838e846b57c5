package store

import (
	"fmt"
	"os"
	"time"

	"github.com/brojonat/txnview/viewer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Fixture is the seed data of a store, as stored in a YAML file.
type Fixture struct {
	Employees    []FixtureEmployee    `yaml:"employees"`
	Transactions []FixtureTransaction `yaml:"transactions"`
}

// FixtureEmployee is one employee entry of a fixture file.
type FixtureEmployee struct {
	ID        string `yaml:"id"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

// FixtureTransaction is one transaction entry of a fixture file.
type FixtureTransaction struct {
	ID         string `yaml:"id"`
	Amount     string `yaml:"amount"` // decimal string, e.g. "12.50"
	EmployeeID string `yaml:"employee_id"`
	Merchant   string `yaml:"merchant"`
	Date       string `yaml:"date"` // YYYY-MM-DD
	Approved   bool   `yaml:"approved"`
}

// LoadFixture reads a fixture from a YAML file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes and validates YAML fixture data.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	if _, _, err := f.Resolve(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Marshal encodes the fixture as YAML.
func (f *Fixture) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshaling fixture: %w", err)
	}
	return data, nil
}

// Resolve validates the fixture and converts it to viewer types, embedding
// each transaction's employee.
func (f *Fixture) Resolve() ([]viewer.Employee, []viewer.Transaction, error) {
	employees := make([]viewer.Employee, 0, len(f.Employees))
	byID := make(map[string]viewer.Employee, len(f.Employees))
	for _, e := range f.Employees {
		if e.ID == "" {
			return nil, nil, fmt.Errorf("employee %s %s has no id", e.FirstName, e.LastName)
		}
		if _, dup := byID[e.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate employee id %q", e.ID)
		}
		emp := viewer.Employee{ID: e.ID, FirstName: e.FirstName, LastName: e.LastName}
		byID[e.ID] = emp
		employees = append(employees, emp)
	}

	transactions := make([]viewer.Transaction, 0, len(f.Transactions))
	for _, t := range f.Transactions {
		if t.ID == "" {
			return nil, nil, fmt.Errorf("transaction at %s for %s has no id", t.Date, t.Merchant)
		}
		emp, ok := byID[t.EmployeeID]
		if !ok {
			return nil, nil, fmt.Errorf("transaction %s: %w: %q", t.ID, ErrEmployeeNotFound, t.EmployeeID)
		}
		amount, err := decimal.NewFromString(t.Amount)
		if err != nil {
			return nil, nil, fmt.Errorf("transaction %s: invalid amount %q: %w", t.ID, t.Amount, err)
		}
		if _, err := time.Parse(time.DateOnly, t.Date); err != nil {
			return nil, nil, fmt.Errorf("transaction %s: invalid date %q: %w", t.ID, t.Date, err)
		}
		transactions = append(transactions, viewer.Transaction{
			ID:       t.ID,
			Amount:   amount,
			Employee: emp,
			Merchant: t.Merchant,
			Date:     t.Date,
			Approved: t.Approved,
		})
	}
	return employees, transactions, nil
}

// fixtureNamespace scopes the deterministic ids of the demo dataset.
var fixtureNamespace = uuid.MustParse("6f1c2a9e-4b7d-4f0e-9a53-2d8e7c1b5a40")

var (
	demoEmployees = [][2]string{
		{"James", "Smith"},
		{"Mary", "Jones"},
		{"Robert", "Brown"},
		{"Patricia", "Miller"},
		{"Michael", "Davis"},
	}
	demoMerchants = []string{
		"Social Media Ads Inc",
		"Cloud Hosting Co",
		"Office Supplies Depot",
		"Coffee Roasters",
		"Airline Travel",
		"Team Lunch Bistro",
		"Software Licenses Ltd",
	}
)

// DemoFixture returns a deterministic dataset of employees and transactions.
// Ids are name-based UUIDs, so they are identical on every run.
func DemoFixture(transactions int) *Fixture {
	f := &Fixture{}
	for i, name := range demoEmployees {
		f.Employees = append(f.Employees, FixtureEmployee{
			ID:        uuid.NewSHA1(fixtureNamespace, []byte(fmt.Sprintf("employee-%d", i))).String(),
			FirstName: name[0],
			LastName:  name[1],
		})
	}

	start := time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)
	for i := 0; i < transactions; i++ {
		cents := int64(1000 + (i*7919)%90000)
		f.Transactions = append(f.Transactions, FixtureTransaction{
			ID:         uuid.NewSHA1(fixtureNamespace, []byte(fmt.Sprintf("transaction-%d", i))).String(),
			Amount:     decimal.New(cents, -2).StringFixed(2),
			EmployeeID: f.Employees[i%len(f.Employees)].ID,
			Merchant:   demoMerchants[i%len(demoMerchants)],
			Date:       start.AddDate(0, 0, i).Format(time.DateOnly),
			Approved:   i%3 == 0,
		})
	}
	return f
}
