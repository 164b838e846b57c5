package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	natspkg "github.com/brojonat/txnview/service/nats"
	"github.com/brojonat/txnview/service/store"
	"github.com/brojonat/txnview/viewer"
)

const maxRequestBodySize = 1 << 10 // approval bodies are a single boolean

// transactionsPage is the wire form of viewer.Page.
type transactionsPage struct {
	Data     []viewer.Transaction `json:"data"`
	NextPage *string              `json:"nextPage"`
}

// approvalRequest is the body of an approval change.
type approvalRequest struct {
	Value *bool `json:"value"`
}

// handleListEmployees returns a handler that lists every employee.
// GET /api/v1/employees
func handleListEmployees(st store.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		employees, err := st.ListEmployees(r.Context())
		if err != nil {
			logger.Error("failed to list employees", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if employees == nil {
			employees = []viewer.Employee{}
		}

		logger.Debug("employees listed", "count", len(employees))
		writeJSON(w, employees, http.StatusOK)
	})
}

// handleListTransactions returns a handler serving both transaction views.
// GET /api/v1/transactions?cursor=N returns one page of every transaction.
// GET /api/v1/transactions?employeeId=ID returns one employee's full set.
func handleListTransactions(st store.Store, pageSize int, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if query.Has("employeeId") {
			employeeID := query.Get("employeeId")
			if employeeID == "" {
				writeError(w, "employee id cannot be empty", http.StatusBadRequest)
				return
			}

			txns, err := st.ListTransactionsByEmployee(r.Context(), employeeID)
			if err != nil {
				logger.Error("failed to list employee transactions", "employee_id", employeeID, "error", err)
				writeError(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if txns == nil {
				txns = []viewer.Transaction{}
			}

			logger.Debug("employee transactions listed", "employee_id", employeeID, "count", len(txns))
			writeJSON(w, txns, http.StatusOK)
			return
		}

		page, err := parseCursor(query.Get("cursor"), pageSize)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Fetch one extra row to learn whether another page follows.
		txns, err := st.ListTransactions(r.Context(), page*pageSize, pageSize+1)
		if err != nil {
			logger.Error("failed to list transactions", "page", page, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := transactionsPage{Data: txns}
		if len(txns) > pageSize {
			resp.Data = txns[:pageSize]
			next := strconv.Itoa(page + 1)
			resp.NextPage = &next
		}
		if resp.Data == nil {
			resp.Data = []viewer.Transaction{}
		}

		logger.Debug("transactions page listed", "page", page, "count", len(resp.Data), "has_next", resp.NextPage != nil)
		writeJSON(w, resp, http.StatusOK)
	})
}

// handleSetApproval returns a handler that records a transaction's approval
// flag and publishes the change.
// POST /api/v1/transactions/{id}/approval
func handleSetApproval(st store.Store, publisher natspkg.Publisher, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			writeError(w, "transaction id is required", http.StatusBadRequest)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req approvalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, "request body too large", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Value == nil {
			writeError(w, "value is required", http.StatusBadRequest)
			return
		}

		txn, err := st.SetTransactionApproval(r.Context(), id, *req.Value)
		if errors.Is(err, store.ErrTransactionNotFound) {
			writeError(w, "transaction not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("failed to set approval", "transaction_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Info("transaction approval set", "transaction_id", id, "approved", txn.Approved)

		if publisher != nil {
			if err := publisher.PublishApproval(r.Context(), natspkg.FromTransaction(txn)); err != nil {
				// The change is stored; subscribers miss this one event.
				logger.Warn("failed to publish approval event", "transaction_id", id, "error", err)
			}
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

// parseCursor converts a page cursor to a zero-based page index. An empty
// cursor is the first page. The page's row range must fit in an int.
func parseCursor(cursor string, pageSize int) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(cursor)
	if err != nil || page < 0 || page > (math.MaxInt-pageSize-1)/pageSize {
		return 0, fmt.Errorf("invalid cursor %q", cursor)
	}
	return page, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
