package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

// payload returns the request body: the named file, stdin for "-", or the
// arguments one per line. With neither, stdin is read.
func payload(cmd *cobra.Command, file string, args []string) (string, error) {
	if file != "" {
		return readInput(cmd.InOrStdin(), file)
	}
	if len(args) > 0 {
		return strings.Join(args, "\n"), nil
	}
	return readInput(cmd.InOrStdin(), "-")
}

func newRecallCmd() *cobra.Command {
	var listFile string
	cmd := &cobra.Command{
		Use:   "recall [path...]",
		Short: "Recall files from tape (eeadm recall)",
		Long: `Stages the file list, pushes it to the EE node when remote, runs
eeadm recall on it and removes the list afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := payload(cmd, listFile, args)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				r := newRenderer()
				out, err := a.orch.Recall(ctx, body, r.json())
				if err != nil {
					return err
				}
				return r.staged("Recall", out)
			})
		},
	}
	cmd.Flags().StringVarP(&listFile, "list", "l", "", "File list, one path per line (- for stdin)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var (
		listFile string
		pools    []string
	)
	cmd := &cobra.Command{
		Use:   "migrate --pool <pool> [--pool <pool>...] [path...]",
		Short: "Migrate files to up to four tape pools (eeadm migrate -p)",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := payload(cmd, listFile, args)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				r := newRenderer()
				out, err := a.orch.Migrate(ctx, body, pools, r.json())
				if err != nil {
					return err
				}
				return r.staged("Migrate", out)
			})
		},
	}
	cmd.Flags().StringVarP(&listFile, "list", "l", "", "File list, one path per line (- for stdin)")
	cmd.Flags().StringSliceVarP(&pools, "pool", "p", nil, "Destination pool, e.g. pool1@lib1 (repeatable, up to 4)")
	return cmd
}

func newPolicyCmd() *cobra.Command {
	var bodyFile string
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Run a policy with mmapplypolicy",
		Long: `Reads a request body with Path:, Options: and Policy: markers, stages the
policy text and runs mmapplypolicy <path> -P <policy file> <options>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bodyFile == "" {
				bodyFile = "-"
			}
			body, err := readInput(cmd.InOrStdin(), bodyFile)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				out, err := a.orch.RunPolicy(ctx, body)
				if err != nil {
					return err
				}
				return newRenderer().staged("Policy", out)
			})
		},
	}
	cmd.Flags().StringVarP(&bodyFile, "file", "f", "", "Request body file (default stdin)")
	return cmd
}
