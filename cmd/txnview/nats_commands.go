package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	natspkg "github.com/brojonat/txnview/service/nats"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"
)

// subscribeCommand subscribes to approval events.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe to approval events, optionally for one employee",
		ArgsUsage: "[employee_id]",
		Description: `Subscribe to approval changes published to NATS JetStream.

Events are published to the subject: approvals.{employee_id}

Example:
  txnview nats subscribe --json
  txnview nats subscribe EMPLOYEE_ID --durable`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "durable",
				Aliases: []string{"d"},
				Usage:   "Create a durable consumer (survives restarts)",
			},
			&cli.StringFlag{
				Name:  "consumer-name",
				Usage: "Consumer name (required for durable)",
				Value: "txnview-cli",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				return fmt.Errorf("at most one employee id may be given")
			}

			return streamApprovals(c.App.Writer, c.Args().First(), c.String("nats-url"),
				c.Bool("durable"), c.String("consumer-name"), c.Bool("json"))
		},
	}
}

// streamApprovals connects to NATS and prints approval events until interrupted.
func streamApprovals(w io.Writer, employeeID, natsURL string, durable bool, consumerName string, jsonOutput bool) error {
	nc, err := natspkg.Connect(natsURL, "txnview-cli")
	if err != nil {
		return err
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	subject := natspkg.SubjectForEmployee(employeeID)

	if !jsonOutput {
		fmt.Fprintf(w, "📡 Subscribing to: %s\n", subject)
		fmt.Fprintf(w, "   NATS: %s\n", natsURL)
		if durable {
			fmt.Fprintf(w, "   Consumer: %s (durable)\n", consumerName)
		}
		fmt.Fprintf(w, "\nWaiting for approvals... (Ctrl-C to exit)\n\n")
	}

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	if durable {
		consumerConfig.Durable = consumerName
		consumerConfig.Name = consumerName
	}

	cons, err := js.CreateOrUpdateConsumer(context.Background(), natspkg.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	msgChan := make(chan jetstream.Msg, 10)
	cc, err := cons.Consume(func(msg jetstream.Msg) {
		msgChan <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer cc.Stop()

	count := 0
	for {
		select {
		case msg := <-msgChan:
			var event natspkg.ApprovalEvent
			if err := json.Unmarshal(msg.Data(), &event); err != nil {
				fmt.Fprintf(os.Stderr, "Error parsing event: %v\n", err)
				msg.Ack()
				continue
			}

			count++
			if jsonOutput {
				fmt.Fprintln(w, string(msg.Data()))
			} else {
				printApprovalEvent(w, count, event)
			}
			msg.Ack()

		case <-sigChan:
			if !jsonOutput {
				fmt.Fprintf(w, "\n\n✅ Received %d approval events\n", count)
			}
			return nil
		}
	}
}

func printApprovalEvent(w io.Writer, n int, event natspkg.ApprovalEvent) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Approval #%d\n", n)
	fmt.Fprintf(w, "─────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Transaction:  %s\n", event.TransactionID)
	fmt.Fprintf(w, "Employee:     %s (%s)\n", event.EmployeeName, event.EmployeeID)
	fmt.Fprintf(w, "Merchant:     %s\n", event.Merchant)
	fmt.Fprintf(w, "Amount:       %s\n", event.Amount.StringFixed(2))
	fmt.Fprintf(w, "Date:         %s\n", event.Date)
	fmt.Fprintf(w, "Approved:     %t\n", event.Approved)
	fmt.Fprintf(w, "Published:    %s\n", event.PublishedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "\n")
}

// inspectStreamCommand shows information about the NATS JetStream stream.
func inspectStreamCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect-stream",
		Usage: "Inspect the APPROVALS JetStream stream",
		Action: func(c *cli.Context) error {
			nc, err := natspkg.Connect(c.String("nats-url"), "txnview-cli")
			if err != nil {
				return err
			}
			defer nc.Close()

			js, err := jetstream.New(nc)
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			stream, err := js.Stream(c.Context, natspkg.StreamName)
			if err != nil {
				return fmt.Errorf("failed to get stream: %w", err)
			}

			info, err := stream.Info(c.Context)
			if err != nil {
				return fmt.Errorf("failed to get stream info: %w", err)
			}

			if c.Bool("json") {
				return writeJSONOutput(c.App.Writer, info)
			}

			w := c.App.Writer
			fmt.Fprintf(w, "Stream: %s\n", info.Config.Name)
			fmt.Fprintf(w, "─────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "Description:  %s\n", info.Config.Description)
			fmt.Fprintf(w, "Subjects:     %v\n", info.Config.Subjects)
			fmt.Fprintf(w, "Messages:     %d\n", info.State.Msgs)
			fmt.Fprintf(w, "Bytes:        %d\n", info.State.Bytes)
			fmt.Fprintf(w, "First Seq:    %d\n", info.State.FirstSeq)
			fmt.Fprintf(w, "Last Seq:     %d\n", info.State.LastSeq)
			fmt.Fprintf(w, "Consumers:    %d\n", info.State.Consumers)
			fmt.Fprintf(w, "Max Age:      %s\n", info.Config.MaxAge)
			fmt.Fprintf(w, "Storage:      %s\n", info.Config.Storage)
			return nil
		},
	}
}
