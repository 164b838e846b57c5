package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFixture = `
employees:
  - id: e1
    first_name: James
    last_name: Smith
  - id: e2
    first_name: Mary
    last_name: Jones
transactions:
  - id: t1
    amount: "12.50"
    employee_id: e1
    merchant: Coffee Roasters
    date: "2021-03-01"
    approved: false
  - id: t2
    amount: "830.00"
    employee_id: e2
    merchant: Airline Travel
    date: "2021-03-02"
    approved: true
`

func TestParseFixture(t *testing.T) {
	f, err := ParseFixture([]byte(sampleFixture))
	require.NoError(t, err)

	employees, txns, err := f.Resolve()
	require.NoError(t, err)
	require.Len(t, employees, 2)
	require.Len(t, txns, 2)

	assert.Equal(t, "Mary", txns[1].Employee.FirstName)
	assert.True(t, decimal.RequireFromString("12.5").Equal(txns[0].Amount))
	assert.True(t, txns[1].Approved)
	assert.Equal(t, "2021-03-01", txns[0].Date)
}

func TestParseFixture_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *Fixture)
		wantErr string
	}{
		{
			name:    "unknown employee",
			mutate:  func(f *Fixture) { f.Transactions[0].EmployeeID = "e9" },
			wantErr: "employee not found",
		},
		{
			name:    "bad amount",
			mutate:  func(f *Fixture) { f.Transactions[0].Amount = "twelve" },
			wantErr: "invalid amount",
		},
		{
			name:    "bad date",
			mutate:  func(f *Fixture) { f.Transactions[0].Date = "03/01/2021" },
			wantErr: "invalid date",
		},
		{
			name:    "duplicate employee",
			mutate:  func(f *Fixture) { f.Employees[1].ID = "e1" },
			wantErr: "duplicate employee id",
		},
		{
			name:    "missing transaction id",
			mutate:  func(f *Fixture) { f.Transactions[0].ID = "" },
			wantErr: "has no id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFixture([]byte(sampleFixture))
			require.NoError(t, err)
			tt.mutate(f)

			data, err := f.Marshal()
			require.NoError(t, err)
			_, err = ParseFixture(data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseFixture_UnknownEmployeeIsTyped(t *testing.T) {
	f := DemoFixture(1)
	f.Transactions[0].EmployeeID = "ghost"
	_, _, err := f.Resolve()
	assert.True(t, errors.Is(err, ErrEmployeeNotFound))
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFixture), 0o644))

	f, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Len(t, f.Transactions, 2)

	_, err = LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDemoFixture_Deterministic(t *testing.T) {
	a := DemoFixture(20)
	b := DemoFixture(20)
	assert.Equal(t, a, b)

	_, txns, err := a.Resolve()
	require.NoError(t, err)
	require.Len(t, txns, 20)
	assert.Equal(t, "2021-01-04", txns[0].Date)
	assert.NotEqual(t, txns[0].ID, txns[1].ID)
}
