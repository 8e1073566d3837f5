package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/spf13/cobra"

	"github.com/jrzesz33/bedrock_mac/internal/app"
	"github.com/jrzesz33/bedrock_mac/internal/logging"
	"github.com/jrzesz33/bedrock_mac/internal/models"
)

// loadRuntime is replaced in tests
var loadRuntime = func(ctx context.Context) (*app.Runtime, error) {
	return app.Load(ctx, logging.NewWithWriter(os.Stderr))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "debug",
		Short: "Replay Lambda events locally",
		Long: `Runs the same handlers the deployed functions run against an event
read from a JSON file, using the local environment and AWS credentials.
The handler result is printed to stdout; logs go to stderr.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:       "cfn <data_automation_project|agent> <event.json>",
			Short:     "Replay a CloudFormation custom resource event",
			Args:      cobra.ExactArgs(2),
			ValidArgs: []string{models.ResourceKindDataAutomationProject.String(), models.ResourceKindAgent.String()},
			RunE:      runCfn,
		},
		&cobra.Command{
			Use:   "invoice <event.json>",
			Short: "Replay an invoice action group event",
			Args:  cobra.ExactArgs(1),
			RunE:  runInvoice,
		},
		&cobra.Command{
			Use:   "loan <event.json>",
			Short: "Replay a loan action group event",
			Args:  cobra.ExactArgs(1),
			RunE:  runLoan,
		},
		&cobra.Command{
			Use:   "resolver <event.json>",
			Short: "Replay an AppSync resolver event",
			Args:  cobra.ExactArgs(1),
			RunE:  runResolver,
		},
	)
	return root
}

func runCfn(cmd *cobra.Command, args []string) error {
	kind := models.ResourceKind(args[0])
	if !kind.IsValid() {
		return fmt.Errorf("unknown resource kind: %s", args[0])
	}

	var event cfn.Event
	if err := readEvent(args[1], &event); err != nil {
		return err
	}

	rt, err := loadRuntime(cmd.Context())
	if err != nil {
		return err
	}
	handler, err := rt.ProvisioningHandler(kind)
	if err != nil {
		return err
	}

	out, err := handler.HandleEvent(cmd.Context(), event)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func runInvoice(cmd *cobra.Command, args []string) error {
	var event models.APIActionEvent
	if err := readEvent(args[0], &event); err != nil {
		return err
	}

	rt, err := loadRuntime(cmd.Context())
	if err != nil {
		return err
	}
	actions, err := rt.InvoiceActions()
	if err != nil {
		return err
	}

	out, err := actions.HandleEvent(cmd.Context(), event)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func runLoan(cmd *cobra.Command, args []string) error {
	var event models.FunctionActionEvent
	if err := readEvent(args[0], &event); err != nil {
		return err
	}

	rt, err := loadRuntime(cmd.Context())
	if err != nil {
		return err
	}
	actions, err := rt.LoanActions()
	if err != nil {
		return err
	}

	out, err := actions.HandleEvent(cmd.Context(), event)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func runResolver(cmd *cobra.Command, args []string) error {
	var event models.ResolverEvent
	if err := readEvent(args[0], &event); err != nil {
		return err
	}

	rt, err := loadRuntime(cmd.Context())
	if err != nil {
		return err
	}
	handler, err := rt.Resolver()
	if err != nil {
		return err
	}

	out, err := handler.HandleEvent(cmd.Context(), event)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func readEvent(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read event file: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("failed to unmarshal event JSON: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
