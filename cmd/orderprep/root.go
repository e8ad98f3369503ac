package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/signwerk/orderprep/internal/adapters/logging"
	"github.com/signwerk/orderprep/internal/adapters/orderservice"
	"github.com/signwerk/orderprep/internal/domain/config"
	"github.com/signwerk/orderprep/internal/ports"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	verbose  bool
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "orderprep",
	Short: "Prepare sign-making orders for production",
	Long: `Orderprep walks a confirmed order through the preparation pipeline.

It validates the order, creates the accounting estimate, generates and
downloads the order documents, generates production tasks, and files
everything, keeping each step consistent with the current order data:
  Validate → Estimate → Documents → Accounting Document → Tasks → Filing`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: orderprep.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")

	registerFlagCompletions()

	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if jsonLogs {
		cfg.Log.Format = "json"
	}
	return cfg, nil
}

// newLogger builds the logger the CLI commands share.
func newLogger(cfg *config.Config) ports.Logger {
	return logging.NewConsoleLogger(
		logging.WithOutput(os.Stderr),
		logging.WithLevel(parseLevel(cfg.Log.Level)),
		logging.WithJSONFormat(cfg.Log.Format == "json"),
	)
}

// newOrderService builds the HTTP client for the remote order service.
func newOrderService(cfg *config.Config) *orderservice.Client {
	var opts []orderservice.ClientOption
	if cfg.Service.Token != "" {
		opts = append(opts, orderservice.WithToken(cfg.Service.Token))
	}
	return orderservice.NewClient(cfg.Service.BaseURL, opts...)
}

func parseLevel(s string) ports.Level {
	switch s {
	case "debug":
		return ports.LevelDebug
	case "warn":
		return ports.LevelWarn
	case "error":
		return ports.LevelError
	default:
		return ports.LevelInfo
	}
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var userErr *config.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}

	var remoteErr *ports.RemoteError
	if errors.As(err, &remoteErr) {
		if classified := classifyRemoteError(remoteErr); classified != nil {
			return formatError(classified)
		}
		msg := remoteErr.Message
		if msg == "" {
			msg = fmt.Sprintf("the order service returned status %d", remoteErr.StatusCode)
		}
		if verbose {
			msg += fmt.Sprintf("\n\nTechnical details: %v", remoteErr)
		}
		return msg
	}

	return err.Error()
}

// classifyRemoteError maps transport failures and missing orders onto
// the user error codes the CLI can explain. Other remote errors pass
// through unclassified.
func classifyRemoteError(err *ports.RemoteError) *config.UserError {
	switch err.StatusCode {
	case 0:
		return &config.UserError{
			Code:       config.ErrCodeServiceUnreachable,
			Message:    "cannot reach the order service",
			Context:    err.Operation,
			Suggestion: "Check that the order service is running and that service.baseUrl in orderprep.yaml points at it",
			Underlying: err,
		}
	case http.StatusNotFound:
		return &config.UserError{
			Code:       config.ErrCodeOrderNotFound,
			Message:    "the order service does not know this order",
			Context:    err.Operation,
			Suggestion: "Check the order id for typos; it must identify a confirmed order",
			Underlying: err,
		}
	}
	return nil
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// registerFlagCompletions sets up custom completions for global flags.
func registerFlagCompletions() {
	// Complete --config with YAML files
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})
}
