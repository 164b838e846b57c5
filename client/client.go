package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/brojonat/txnview/viewer"
)

// Client is the HTTP client for the transaction API. It implements
// viewer.Backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ viewer.Backend = (*Client)(nil)

// NewClient creates a new transaction API client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ListEmployees retrieves every employee.
func (c *Client) ListEmployees(ctx context.Context) ([]viewer.Employee, error) {
	var employees []viewer.Employee
	if err := c.getJSON(ctx, c.baseURL+"/api/v1/employees", &employees); err != nil {
		return nil, err
	}
	c.logger.Debug("employees listed", "count", len(employees))
	return employees, nil
}

// ListTransactions retrieves one page of all transactions. A nil cursor
// requests the first page.
func (c *Client) ListTransactions(ctx context.Context, cursor *string) (*viewer.Page, error) {
	u := c.baseURL + "/api/v1/transactions"
	if cursor != nil {
		u += "?" + url.Values{"cursor": {*cursor}}.Encode()
	}

	var page viewer.Page
	if err := c.getJSON(ctx, u, &page); err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []viewer.Transaction{}
	}
	c.logger.Debug("transactions page fetched", "count", len(page.Data), "has_next", page.NextPage != nil)
	return &page, nil
}

// ListTransactionsByEmployee retrieves every transaction of one employee.
func (c *Client) ListTransactionsByEmployee(ctx context.Context, employeeID string) ([]viewer.Transaction, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("employee id cannot be empty: %w", viewer.ErrInvalidArgument)
	}

	u := c.baseURL + "/api/v1/transactions?" + url.Values{"employeeId": {employeeID}}.Encode()
	var txns []viewer.Transaction
	if err := c.getJSON(ctx, u, &txns); err != nil {
		return nil, err
	}
	if txns == nil {
		txns = []viewer.Transaction{}
	}
	c.logger.Debug("employee transactions fetched", "employee_id", employeeID, "count", len(txns))
	return txns, nil
}

// SetTransactionApproval persists the approval flag of one transaction.
func (c *Client) SetTransactionApproval(ctx context.Context, transactionID string, value bool) error {
	body, err := json.Marshal(map[string]bool{"value": value})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/api/v1/transactions/%s/approval", c.baseURL, url.PathEscape(transactionID))
	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return c.parseErrorResponse(resp)
	}

	c.logger.Debug("transaction approval set", "transaction_id", transactionID, "value", value)
	return nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// getJSON performs a GET request and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
