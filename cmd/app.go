package cmd

import (
	"context"
	"fmt"

	"eeapi/internal/config"
	"eeapi/internal/executor"
	"eeapi/internal/logging"
	"eeapi/internal/orchestrator"
	"eeapi/internal/sshclient"
	"eeapi/internal/transfer"
	"eeapi/internal/types"
)

// app is the wiring for one CLI invocation.
type app struct {
	cfg    *config.Config
	target types.ExecutionTarget
	ssh    *sshclient.SSHClient
	exec   executor.Executor
	agent  transfer.Agent
	orch   *orchestrator.Orchestrator
}

func newApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	opts := cfg.LoggingOptions()
	if verbose {
		opts.Level = logging.LevelDebug
	}
	opts.Fields = map[string]interface{}{"app": "eeapi"}
	logging.Configure(opts)

	a := &app{cfg: cfg, target: cfg.Target()}
	var (
		runner   executor.RemoteRunner
		uploader transfer.Uploader
	)
	if a.target.IsRemote() {
		a.ssh, err = sshclient.NewSSHClient(a.target)
		if err != nil {
			return nil, err
		}
		runner, uploader = a.ssh, a.ssh
	}

	if a.exec, err = executor.New(a.target, runner); err != nil {
		return nil, err
	}
	if a.agent, err = transfer.New(a.target, uploader); err != nil {
		return nil, err
	}
	a.orch, err = orchestrator.New(a.target, a.exec, a.agent, orchestrator.Options{
		EEADMPath:         cfg.EEADMPath,
		MMApplyPolicyPath: cfg.MMApplyPolicyPath,
		RecallPrefix:      cfg.Staging.RecallPrefix,
		MigratePrefix:     cfg.Staging.MigratePrefix,
		PolicyPrefix:      cfg.Staging.PolicyPrefix,
		StagingDir:        cfg.Staging.Dir,
	})
	if err != nil {
		return nil, err
	}
	logging.Debug("target ready", map[string]interface{}{"mode": string(a.target.Mode), "host": a.target.RemoteHost})
	return a, nil
}

func (a *app) Close() {
	if a.ssh != nil {
		if err := a.ssh.Close(); err != nil {
			logging.Debug("ssh close", map[string]interface{}{"err": err})
		}
	}
	logging.Sync()
}

// withApp builds the app, runs fn and tears the connection down.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	defer a.Close()
	return fn(ctx, a)
}
