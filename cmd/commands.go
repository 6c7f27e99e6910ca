package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"eeapi/internal/orchestrator"

	"github.com/spf13/cobra"
)

// maxListLine caps one line of a path list.
const maxListLine = 1024 * 1024

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show EE node status (eeadm node list)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				r := newRenderer()
				res, err := a.orch.Status(ctx, r.json())
				if err != nil {
					return err
				}
				return r.command("eeadm node list", res)
			})
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "info <" + strings.Join(orchestrator.InfoComponents, "|") + ">",
		Short:     "List tapes, drives, nodes, pools or libraries",
		Args:      cobra.ExactArgs(1),
		ValidArgs: orchestrator.InfoComponents,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				r := newRenderer()
				res, err := a.orch.Info(ctx, args[0], r.json())
				if err != nil {
					return err
				}
				return r.command("eeadm "+args[0]+" list", res)
			})
		},
	}
}

func newTasksCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:       "tasks <active|all>",
		Short:     "List active or all tasks (eeadm task list [-c])",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"active", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				r := newRenderer()
				res, err := a.orch.Tasks(ctx, args[0], filter, r.json())
				if err != nil {
					return err
				}
				return r.command("eeadm task list", res)
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Only print lines matching this regular expression (text output only)")
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "taskshow <task-id>",
		Short: "Show one task (eeadm task show)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				r := newRenderer()
				res, err := a.orch.TaskShow(ctx, args[0], r.json())
				if err != nil {
					return err
				}
				return r.command("eeadm task show", res)
			})
		},
	}
}

func newFileStateCmd() *cobra.Command {
	var listFile string
	cmd := &cobra.Command{
		Use:   "filestate [path...]",
		Short: "Show the migration state of files (eeadm file state)",
		Long: `Runs eeadm file state for every path, one after the other. Paths come
from the arguments, or one per line from --list (use - for stdin).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if listFile != "" {
				body, err := readInput(cmd.InOrStdin(), listFile)
				if err != nil {
					return err
				}
				lines, err := splitLines(body)
				if err != nil {
					return err
				}
				paths = append(paths, lines...)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				batch, err := a.orch.FileStates(ctx, paths)
				if err != nil && len(batch.Items) == 0 {
					return err
				}
				if rerr := newRenderer().fileStates(batch); err == nil {
					return rerr
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&listFile, "list", "", "File with one path per line, - for stdin")
	return cmd
}

// readInput reads name, or stdin when name is "-".
func readInput(stdin io.Reader, name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(b), nil
}

// splitLines keeps blank lines so they show up as invalid names.
func splitLines(body string) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(strings.TrimRight(body, "\n")))
	sc.Buffer(make([]byte, 64*1024), maxListLine)
	for sc.Scan() {
		out = append(out, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read path list: %w", err)
	}
	return out, nil
}
