package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	natspkg "github.com/brojonat/txnview/service/nats"
	"github.com/urfave/cli/v2"
)

func sseCommands() *cli.Command {
	return &cli.Command{
		Name:  "sse",
		Usage: "Server-Sent Events (SSE) streaming commands",
		Subcommands: []*cli.Command{
			streamCommand(),
		},
	}
}

func streamCommand() *cli.Command {
	return &cli.Command{
		Name:      "stream",
		Usage:     "Stream approval events via SSE (HTTP)",
		ArgsUsage: "[employee_id]",
		Action: func(c *cli.Context) error {
			serverURL := c.String("server-url")
			employeeID := c.Args().First()
			jsonOutput := c.Bool("json")

			url := serverURL + "/api/v1/stream/approvals"
			if employeeID != "" {
				url += "/" + employeeID
			}

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				cancel()
			}()

			req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Accept", "text/event-stream")

			// No timeout for streaming
			resp, err := (&http.Client{}).Do(req)
			if err != nil {
				return fmt.Errorf("failed to connect to SSE endpoint: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned status %d", resp.StatusCode)
			}

			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "Streaming approvals... (Ctrl+C to stop)\n\n")
			}

			err = readSSE(resp.Body, func(event, data string) error {
				return handleSSEEvent(c.App.Writer, event, data, jsonOutput)
			})
			if err != nil && ctx.Err() != nil {
				if !jsonOutput {
					fmt.Fprintf(os.Stderr, "\nDisconnected\n")
				}
				return nil
			}
			return err
		},
	}
}

// readSSE parses an event stream, calling fn for every complete event.
// Handler errors are reported and do not stop the stream.
func readSSE(r io.Reader, fn func(event, data string) error) error {
	scanner := bufio.NewScanner(r)
	var currentEvent, currentData string

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line indicates end of event
		if line == "" {
			if currentEvent != "" && currentData != "" {
				if err := fn(currentEvent, currentData); err != nil {
					fmt.Fprintf(os.Stderr, "Error handling event: %v\n", err)
				}
			}
			currentEvent = ""
			currentData = ""
			continue
		}

		if strings.HasPrefix(line, "event:") {
			currentEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			currentData = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}

func handleSSEEvent(w io.Writer, eventType, data string, jsonOutput bool) error {
	switch eventType {
	case "connected":
		if !jsonOutput {
			var info map[string]string
			if err := json.Unmarshal([]byte(data), &info); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Subscribed to: %s\n\n", info["employee"])
		}
		return nil

	case "approval":
		var event natspkg.ApprovalEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return err
		}
		if jsonOutput {
			fmt.Fprintln(w, data)
		} else {
			fmt.Fprintf(w, "%s  %-22s %-24s %10s  approved=%t\n",
				event.TransactionID, event.EmployeeName, event.Merchant, event.Amount.StringFixed(2), event.Approved)
		}
		return nil

	case "error":
		var errInfo map[string]any
		if err := json.Unmarshal([]byte(data), &errInfo); err != nil {
			return err
		}
		return fmt.Errorf("server error: %v", errInfo["error"])

	default:
		// Unknown event type, ignore
		return nil
	}
}
