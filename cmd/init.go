package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"eeapi/internal/config"
	"eeapi/internal/types"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create eeapi.yaml interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("init needs an interactive terminal; write eeapi.yaml by hand instead")
			}
			path := configFile
			if path == "" {
				path = config.ConfigFileName
			}
			if _, err := os.Stat(path); err == nil && !force {
				ok, err := confirm(fmt.Sprintf("%s exists. Overwrite", path))
				if err != nil || !ok {
					stdout.Println("Aborted, nothing written.")
					return err
				}
			}

			cfg, err := runWizard()
			if err != nil {
				return err
			}
			if err := config.ValidateConfig(cfg); err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			if cfg.Mode == string(types.ModeRemote) && cfg.SSH.PrivateKey != "" {
				if err := config.FixSSHKeyPermissions(cfg.SSH.PrivateKey); err != nil {
					stderr.Printf("Warning: %v\n", err)
				}
			}
			stdout.Printf("Configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file without asking")
	return cmd
}

func runWizard() (*config.Config, error) {
	cfg := config.Default()

	mode, err := selectOne("Where does eeadm run", []string{string(types.ModeRemote), string(types.ModeLocal)})
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode

	if cfg.EEADMPath, err = ask("eeadm path", cfg.EEADMPath, notEmpty); err != nil {
		return nil, err
	}

	if mode == string(types.ModeRemote) {
		if cfg.SSH.Host, err = ask("EE node host", cfg.SSH.Host, notEmpty); err != nil {
			return nil, err
		}
		if cfg.SSH.User, err = ask("SSH user", cfg.SSH.User, notEmpty); err != nil {
			return nil, err
		}
		port, err := ask("SSH port", strconv.Itoa(cfg.SSH.Port), validPort)
		if err != nil {
			return nil, err
		}
		cfg.SSH.Port, _ = strconv.Atoi(port)
		if cfg.SSH.PrivateKey, err = ask("Private key", "~/.ssh/id_rsa", notEmpty); err != nil {
			return nil, err
		}
		if cfg.Transfer.Protocol, err = selectOne("Transfer protocol", []string{types.ProtocolSCP, types.ProtocolSFTP}); err != nil {
			return nil, err
		}
	}

	if cfg.Elevation.Enabled, err = confirm("Run commands through sudo"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func selectOne(label string, items []string) (string, error) {
	prompt := promptui.Select{Label: label, Items: items}
	_, result, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt cancelled: %w", err)
	}
	return result, nil
}

func ask(label, def string, validate promptui.ValidateFunc) (string, error) {
	prompt := promptui.Prompt{Label: label, Default: def, Validate: validate}
	result, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt cancelled: %w", err)
	}
	return result, nil
}

// confirm returns false for "n" and for a plain Enter.
func confirm(label string) (bool, error) {
	prompt := promptui.Prompt{Label: label, IsConfirm: true}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, fmt.Errorf("prompt cancelled: %w", err)
	}
	return true, nil
}

func notEmpty(s string) error {
	if s == "" {
		return errors.New("value required")
	}
	return nil
}

func validPort(s string) error {
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return errors.New("port must be 1-65535")
	}
	return nil
}
