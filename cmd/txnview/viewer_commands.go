package main

import (
	"fmt"

	"github.com/brojonat/txnview/viewer"
	"github.com/urfave/cli/v2"
)

func employeesCommand() *cli.Command {
	return &cli.Command{
		Name:  "employees",
		Usage: "List employees",
		Action: func(c *cli.Context) error {
			employees, err := newClient(c).ListEmployees(c.Context)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return writeJSONOutput(c.App.Writer, employees)
			}
			printEmployees(c.App.Writer, employees)
			return nil
		},
	}
}

func transactionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "transactions",
		Aliases: []string{"txns", "tx"},
		Usage:   "List transactions, one page at a time or for one employee",
		Description: `Examples:
  txnview transactions
  txnview transactions --all --jq '.approved == false'
  txnview transactions --employee EMPLOYEE_ID --jq '(.amount | tonumber) > 100'`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "employee",
				Aliases: []string{"e"},
				Usage:   "Only list this employee's transactions",
			},
			&cli.StringFlag{
				Name:  "cursor",
				Usage: "Page cursor returned by a previous call",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Follow nextPage until the list is exhausted",
			},
			&cli.StringSliceFlag{
				Name:  "jq",
				Usage: "jq filter expression that must evaluate to true (can be specified multiple times, all must match)",
			},
		},
		Action: func(c *cli.Context) error {
			codes, err := compileJQ(c.StringSlice("jq"))
			if err != nil {
				return err
			}
			cl := newClient(c)

			var (
				txns []viewer.Transaction
				next *string
			)
			switch {
			case c.IsSet("employee"):
				if c.String("employee") == "" {
					return fmt.Errorf("employee id cannot be empty: %w", viewer.ErrInvalidArgument)
				}
				txns, err = cl.ListTransactionsByEmployee(c.Context, c.String("employee"))
				if err != nil {
					return err
				}
			default:
				var cursor *string
				if c.IsSet("cursor") {
					v := c.String("cursor")
					cursor = &v
				}
				for {
					page, err := cl.ListTransactions(c.Context, cursor)
					if err != nil {
						return err
					}
					txns = append(txns, page.Data...)
					next = page.NextPage
					if !c.Bool("all") || next == nil {
						break
					}
					cursor = next
				}
			}

			txns, err = filterTransactions(txns, codes)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				if c.IsSet("employee") {
					return writeJSONOutput(c.App.Writer, txns)
				}
				return writeJSONOutput(c.App.Writer, viewer.Page{Data: txns, NextPage: next})
			}

			printTransactions(c.App.Writer, txns)
			if next != nil {
				fmt.Fprintf(c.App.Writer, "\nMore available: --cursor %s\n", *next)
			}
			return nil
		},
	}
}

func approveCommand() *cli.Command {
	return &cli.Command{
		Name:      "approve",
		Usage:     "Set a transaction's approval flag",
		ArgsUsage: "TRANSACTION_ID",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "revoke",
				Usage: "Clear the approval instead of setting it",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("transaction id is required")
			}
			id := c.Args().First()
			value := !c.Bool("revoke")

			if err := newClient(c).SetTransactionApproval(c.Context, id, value); err != nil {
				return err
			}

			if c.Bool("json") {
				return writeJSONOutput(c.App.Writer, map[string]any{"id": id, "approved": value})
			}
			fmt.Fprintf(c.App.Writer, "✓ Transaction %s approved=%t\n", id, value)
			return nil
		},
	}
}
