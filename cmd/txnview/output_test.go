package main

import (
	"testing"

	"github.com/brojonat/txnview/viewer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesJQ(t *testing.T) {
	txn := viewer.Transaction{
		ID:       "t1",
		Amount:   decimal.RequireFromString("830.00"),
		Employee: viewer.Employee{ID: "e1", FirstName: "James", LastName: "Smith"},
		Merchant: "Airline Travel",
		Date:     "2021-03-02",
		Approved: false,
	}

	tests := []struct {
		name      string
		filters   []string
		wantMatch bool
		wantErr   bool
	}{
		{name: "no filters", wantMatch: true},
		{name: "field equality", filters: []string{`.merchant == "Airline Travel"`}, wantMatch: true},
		{name: "nested field", filters: []string{`.employee.lastName == "Smith"`}, wantMatch: true},
		{name: "amount comparison", filters: []string{`(.amount | tonumber) > 100`}, wantMatch: true},
		{name: "false boolean", filters: []string{`.approved`}, wantMatch: false},
		{name: "all must match", filters: []string{`.merchant == "Airline Travel"`, `.approved`}, wantMatch: false},
		{name: "null result", filters: []string{`.missing`}, wantMatch: false},
		{name: "empty result", filters: []string{`empty`}, wantMatch: false},
		{name: "runtime error", filters: []string{`.merchant | tonumber`}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes, err := compileJQ(tt.filters)
			require.NoError(t, err)

			ok, err := matchesJQ(txn, codes)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMatch, ok)
		})
	}
}

func TestCompileJQ_Invalid(t *testing.T) {
	_, err := compileJQ([]string{`.merchant ==`})
	assert.ErrorContains(t, err, "failed to parse jq filter")
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, isTruthy(nil))
	assert.False(t, isTruthy(false))
	assert.True(t, isTruthy(true))
	assert.True(t, isTruthy(0))
	assert.True(t, isTruthy(""))
	assert.True(t, isTruthy(map[string]any{}))
}
