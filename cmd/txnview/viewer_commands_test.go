package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/brojonat/txnview/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	err := app.Run(append([]string{"txnview"}, args...))
	return out.String(), err
}

func TestEmployeesCommand(t *testing.T) {
	ts, _, _ := startBackend(t, 12)

	out, err := runApp(t, "--server-url", ts.URL, "--json", "employees")
	require.NoError(t, err)

	var employees []viewer.Employee
	require.NoError(t, json.Unmarshal([]byte(out), &employees))
	assert.Len(t, employees, 5)
}

func TestTransactionsCommand(t *testing.T) {
	ts, st, _ := startBackend(t, 12)

	t.Run("first page", func(t *testing.T) {
		out, err := runApp(t, "--server-url", ts.URL, "--json", "transactions")
		require.NoError(t, err)

		var page viewer.Page
		require.NoError(t, json.Unmarshal([]byte(out), &page))
		assert.Len(t, page.Data, 5)
		require.NotNil(t, page.NextPage)
		assert.Equal(t, "1", *page.NextPage)
	})

	t.Run("all pages", func(t *testing.T) {
		out, err := runApp(t, "--server-url", ts.URL, "--json", "transactions", "--all")
		require.NoError(t, err)

		var page viewer.Page
		require.NoError(t, json.Unmarshal([]byte(out), &page))
		assert.Len(t, page.Data, 12)
		assert.Nil(t, page.NextPage)
	})

	t.Run("jq filter", func(t *testing.T) {
		out, err := runApp(t, "--server-url", ts.URL, "--json", "transactions", "--all", "--jq", ".approved")
		require.NoError(t, err)

		var page viewer.Page
		require.NoError(t, json.Unmarshal([]byte(out), &page))
		require.NotEmpty(t, page.Data)
		for _, txn := range page.Data {
			assert.True(t, txn.Approved)
		}
	})

	t.Run("by employee", func(t *testing.T) {
		employees, err := st.ListEmployees(t.Context())
		require.NoError(t, err)

		out, err := runApp(t, "--server-url", ts.URL, "--json", "transactions", "--employee", employees[1].ID)
		require.NoError(t, err)

		var txns []viewer.Transaction
		require.NoError(t, json.Unmarshal([]byte(out), &txns))
		require.NotEmpty(t, txns)
		for _, txn := range txns {
			assert.Equal(t, employees[1].ID, txn.Employee.ID)
		}
	})

	t.Run("empty employee id", func(t *testing.T) {
		_, err := runApp(t, "--server-url", ts.URL, "transactions", "--employee", "")
		assert.ErrorIs(t, err, viewer.ErrInvalidArgument)
	})

	t.Run("table output", func(t *testing.T) {
		out, err := runApp(t, "--server-url", ts.URL, "transactions")
		require.NoError(t, err)
		assert.Contains(t, out, "MERCHANT")
		assert.Contains(t, out, "More available: --cursor 1")
	})
}

func TestApproveCommand(t *testing.T) {
	ts, st, publisher := startBackend(t, 3)

	txns, err := st.ListTransactions(t.Context(), 0, 1)
	require.NoError(t, err)
	id := txns[0].ID

	out, err := runApp(t, "--server-url", ts.URL, "approve", id)
	require.NoError(t, err)
	assert.Contains(t, out, "approved=true")

	_, err = runApp(t, "--server-url", ts.URL, "approve", "--revoke", id)
	require.NoError(t, err)

	got, err := st.ListTransactions(t.Context(), 0, 1)
	require.NoError(t, err)
	assert.False(t, got[0].Approved)
	assert.Len(t, publisher.GetPublishedEvents(), 2)

	_, err = runApp(t, "--server-url", ts.URL, "approve", "missing")
	assert.Error(t, err)

	_, err = runApp(t, "--server-url", ts.URL, "approve")
	assert.ErrorContains(t, err, "transaction id is required")
}
