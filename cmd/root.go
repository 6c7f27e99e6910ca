package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"eeapi/internal/types"
	"eeapi/internal/util"

	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var (
	configFile   string
	outputFormat string
	verbose      bool
	quiet        bool

	stdout = util.Default
	stderr = util.NewPrinter(os.Stderr)

	rootCmd = &cobra.Command{
		Use:   "eeapi",
		Short: "Spectrum Archive EE administration over eeadm",
		Long: `eeapi runs IBM Spectrum Archive EE administration commands (eeadm,
mmapplypolicy) on this host or on an EE node reached over SSH.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if outputFormat != formatText && outputFormat != formatJSON {
				return &types.ValidationError{Field: "format", Reason: "must be text or json"}
			}
			if quiet {
				stdout.Suspend()
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default ./eeapi.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", formatText, "Output format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress command output; only the exit code reports the result")

	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newTaskShowCmd())
	rootCmd.AddCommand(newFileStateCmd())
	rootCmd.AddCommand(newRecallCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newPolicyCmd())
	rootCmd.AddCommand(newTransferCmd())
	rootCmd.AddCommand(newAboutCmd())
	rootCmd.AddCommand(newInitCmd())
}

// exitCodeError carries the exit status of a failed administrative command.
// Its message has already been printed.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// Execute runs the CLI. Errors other than command failures are printed here.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	var ec *exitCodeError
	if err != nil && !errors.As(err, &ec) {
		stderr.Printf("Error: %v\n", err)
	}
	return err
}

// ExitCode maps an Execute error to a process exit status: 2 for rejected
// input, the tool's own status for command failures, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		return 2
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		if ec.code <= 0 || ec.code > 255 {
			return 1
		}
		return ec.code
	}
	return 1
}
