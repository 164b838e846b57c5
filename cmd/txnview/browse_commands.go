package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/brojonat/txnview/viewer"
	"github.com/urfave/cli/v2"
)

const browseHelp = `Commands:
  list, l            show the visible transactions
  more, m            load the next page
  employees, e       list the employee selector entries
  select N, s N      filter by selector entry N (0 = all employees)
  approve N, a N     approve visible row N
  revoke N, r N      clear the approval of visible row N
  help, h            show this help
  quit, q            exit`

func browseCommand() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Interactively browse, filter and approve transactions",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "overlay-retention",
				Usage: "Forget local approval edits not seen or listed in the last N batches (0 keeps them for the session)",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Undo a local approval edit when the server rejects it",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Int("overlay-retention") < 0 {
				return fmt.Errorf("overlay-retention cannot be negative")
			}
			opts := viewer.Options{
				Logger:           newLogger(c),
				OverlayRetention: c.Int("overlay-retention"),
			}
			if c.Bool("rollback") {
				opts.ApprovalPolicy = viewer.ApprovalRollback
			}

			ctrl := viewer.NewController(newClient(c), opts)
			return runBrowser(c.Context, ctrl, c.App.Reader, c.App.Writer, opts.Logger)
		},
	}
}

// runBrowser loads the first page and then executes one command per input
// line until quit or end of input.
func runBrowser(ctx context.Context, ctrl *viewer.Controller, in io.Reader, out io.Writer, logger *slog.Logger) error {
	unsubscribe := ctrl.Subscribe(func(ev viewer.Event) {
		logger.Debug("viewer event",
			"type", ev.Type,
			"transactions", len(ev.State.Transactions),
			"error", ev.Err,
		)
	})
	defer unsubscribe()

	if err := ctrl.LoadAll(ctx); err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	printState(out, ctrl.State())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		quit, err := browseStep(ctx, ctrl, out, fields)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

// browseStep executes a single browser command.
func browseStep(ctx context.Context, ctrl *viewer.Controller, out io.Writer, fields []string) (bool, error) {
	switch fields[0] {
	case "quit", "q", "exit":
		return true, nil

	case "help", "h", "?":
		fmt.Fprintln(out, browseHelp)

	case "list", "l":
		printState(out, ctrl.State())

	case "more", "m":
		err := ctrl.LoadMore(ctx)
		if errors.Is(err, viewer.ErrLoadMoreUnavailable) {
			return false, errors.New("nothing more to load")
		}
		if err != nil {
			return false, err
		}
		printState(out, ctrl.State())

	case "employees", "e":
		options := ctrl.EmployeeOptions()
		if len(options) == 0 {
			return false, errors.New("employees not loaded yet")
		}
		printEmployees(out, options)

	case "select", "s":
		n, err := argIndex(fields)
		if err != nil {
			return false, err
		}
		options := ctrl.EmployeeOptions()
		if n < 0 || n >= len(options) {
			return false, fmt.Errorf("no employee entry %d", n)
		}
		if err := ctrl.SelectEmployee(ctx, options[n]); err != nil {
			return false, err
		}
		printState(out, ctrl.State())

	case "approve", "a", "revoke", "r":
		n, err := argIndex(fields)
		if err != nil {
			return false, err
		}
		txns := ctrl.State().Transactions
		if n < 1 || n > len(txns) {
			return false, fmt.Errorf("no transaction row %d", n)
		}
		value := fields[0] == "approve" || fields[0] == "a"
		txn := txns[n-1]
		if err := ctrl.SetApproval(ctx, txn.ID, value); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "✓ %s approved=%t\n", txn.ID, value)

	default:
		return false, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	return false, nil
}

func argIndex(fields []string) (int, error) {
	if len(fields) < 2 {
		return 0, fmt.Errorf("%s needs a number", fields[0])
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", fields[1])
	}
	return n, nil
}

func printState(out io.Writer, s viewer.State) {
	fmt.Fprintf(out, "Mode: %s | Filter: %s | %d transactions\n", s.Mode, s.Filter.Label(), len(s.Transactions))
	printTransactions(out, s.Transactions)
	if !s.ShowLoadMore {
		return
	}
	if s.CanLoadMore {
		fmt.Fprintln(out, "[more]")
	} else {
		fmt.Fprintln(out, "[end of list]")
	}
}
