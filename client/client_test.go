package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/brojonat/txnview/viewer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListEmployees_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/employees", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]string{
			{"id": "e1", "firstName": "James", "lastName": "Smith"},
			{"id": "e2", "firstName": "Mary", "lastName": "Jones"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	employees, err := client.ListEmployees(context.Background())
	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, "e1", employees[0].ID)
	assert.Equal(t, "Mary Jones", employees[1].Label())
}

func TestListTransactions_FirstPageOmitsCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transactions", r.URL.Path)
		assert.False(t, r.URL.Query().Has("cursor"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": [
				{"id": "t1", "amount": 12.5, "merchant": "Acme", "date": "2021-03-01", "approved": false,
				 "employee": {"id": "e1", "firstName": "James", "lastName": "Smith"}}
			],
			"nextPage": "1"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	page, err := client.ListTransactions(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "t1", page.Data[0].ID)
	assert.True(t, decimal.RequireFromString("12.5").Equal(page.Data[0].Amount))
	assert.Equal(t, "e1", page.Data[0].Employee.ID)
	require.NotNil(t, page.NextPage)
	assert.Equal(t, "1", *page.NextPage)
}

func TestListTransactions_LastPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("cursor"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [], "nextPage": null}`))
	}))
	defer server.Close()

	cursor := "3"
	client := NewClient(server.URL, nil, nil)
	page, err := client.ListTransactions(context.Background(), &cursor)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
	assert.True(t, page.Exhausted())
}

func TestListTransactionsByEmployee_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transactions", r.URL.Path)
		assert.Equal(t, "e 5", r.URL.Query().Get("employeeId"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": "t2", "amount": "3.10", "approved": true}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	txns, err := client.ListTransactionsByEmployee(context.Background(), "e 5")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.True(t, txns[0].Approved)
}

func TestListTransactionsByEmployee_EmptyID(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", nil, nil)
	_, err := client.ListTransactionsByEmployee(context.Background(), "")
	assert.True(t, errors.Is(err, viewer.ErrInvalidArgument))
}

func TestListTransactions_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid cursor"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	page, err := client.ListTransactions(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, page)
	assert.Contains(t, err.Error(), "invalid cursor")
}

func TestListEmployees_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.ListEmployees(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "upstream down")
}

func TestSetTransactionApproval_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/transactions/t1/approval", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["value"])

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	assert.NoError(t, client.SetTransactionApproval(context.Background(), "t1", true))
}

func TestSetTransactionApproval_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "transaction not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	err := client.SetTransactionApproval(context.Background(), "missing", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction not found")
}

func TestHealth(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	assert.NoError(t, client.Health(context.Background()))

	healthy.Store(false)
	assert.Error(t, client.Health(context.Background()))
}

func TestClientDrivesController(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/v1/employees":
			w.Write([]byte(`[{"id": "e1", "firstName": "James", "lastName": "Smith"}]`))
		case r.URL.Query().Get("cursor") == "":
			w.Write([]byte(`{"data": [{"id": "t1", "amount": 1}, {"id": "t2", "amount": 2}], "nextPage": "1"}`))
		default:
			w.Write([]byte(`{"data": [{"id": "t3", "amount": 3}], "nextPage": null}`))
		}
	}))
	defer server.Close()

	ctl := viewer.NewController(NewClient(server.URL, nil, nil), viewer.Options{})
	ctx := context.Background()
	require.NoError(t, ctl.LoadAll(ctx))
	require.NoError(t, ctl.LoadMore(ctx))

	state := ctl.State()
	require.Len(t, state.Transactions, 3)
	assert.False(t, state.CanLoadMore)
	assert.Len(t, state.Employees, 1)
}
