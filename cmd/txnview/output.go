package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/brojonat/txnview/client"
	"github.com/brojonat/txnview/viewer"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

// newLogger builds the stderr JSON logger honoring --log-level.
func newLogger(c *cli.Context) *slog.Logger {
	var level slog.Level
	switch c.String("log-level") {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	default:
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newClient builds an API client for --server-url.
func newClient(c *cli.Context) *client.Client {
	return client.NewClient(c.String("server-url"), &http.Client{Timeout: 30 * time.Second}, newLogger(c))
}

// compileJQ parses and compiles every filter expression.
func compileJQ(filters []string) ([]*gojq.Code, error) {
	codes := make([]*gojq.Code, len(filters))
	for i, filter := range filters {
		query, err := gojq.Parse(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
		}
		codes[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
		}
	}
	return codes, nil
}

// matchesJQ reports whether every filter evaluates truthy against the
// transaction's JSON form.
func matchesJQ(txn viewer.Transaction, codes []*gojq.Code) (bool, error) {
	if len(codes) == 0 {
		return true, nil
	}

	// gojq operates on plain JSON values, not Go structs.
	data, err := json.Marshal(txn)
	if err != nil {
		return false, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, err
	}

	for _, code := range codes {
		iter := code.Run(doc)
		v, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if err, isErr := v.(error); isErr {
			return false, err
		}
		if !isTruthy(v) {
			return false, nil
		}
	}
	return true, nil
}

// filterTransactions keeps the transactions matching every filter.
func filterTransactions(txns []viewer.Transaction, codes []*gojq.Code) ([]viewer.Transaction, error) {
	out := make([]viewer.Transaction, 0, len(txns))
	for _, txn := range txns {
		ok, err := matchesJQ(txn, codes)
		if err != nil {
			return nil, fmt.Errorf("jq filter failed on transaction %s: %w", txn.ID, err)
		}
		if ok {
			out = append(out, txn)
		}
	}
	return out, nil
}

func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	// Everything else (numbers, strings, objects, arrays) is truthy
	return true
}

func writeJSONOutput(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printTransactions(w io.Writer, txns []viewer.Transaction) {
	if len(txns) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	fmt.Fprintf(w, "%-4s %-38s %-22s %-24s %12s %-10s %s\n", "#", "ID", "EMPLOYEE", "MERCHANT", "AMOUNT", "DATE", "APPROVED")
	for i, t := range txns {
		approved := " "
		if t.Approved {
			approved = "✓"
		}
		fmt.Fprintf(w, "%-4d %-38s %-22s %-24s %12s %-10s %s\n",
			i+1, t.ID, t.Employee.Label(), t.Merchant, t.Amount.StringFixed(2), t.Date, approved)
	}
}

func printEmployees(w io.Writer, employees []viewer.Employee) {
	for i, e := range employees {
		id := e.ID
		if e.IsEmpty() {
			id = "-"
		}
		fmt.Fprintf(w, "%-4d %-38s %s\n", i, id, e.Label())
	}
}
