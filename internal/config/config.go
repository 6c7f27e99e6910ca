package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"eeapi/internal/logging"
	"eeapi/internal/types"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ConfigFileName = "eeapi.yaml"

const (
	DefaultEEADMPath         = "/opt/ibm/ltfsee/bin/eeadm"
	DefaultMMApplyPolicyPath = "/usr/lpp/mmfs/bin/mmapplypolicy"
	DefaultRecallPrefix      = "/tmp/recall-list"
	DefaultMigratePrefix     = "/tmp/migrate-list"
	DefaultPolicyPrefix      = "/tmp/policy-file"
	DefaultElevationCommand  = "sudo -n"
)

type Config struct {
	Mode              string        `yaml:"mode"`
	EEADMPath         string        `yaml:"eeadm_path"`
	MMApplyPolicyPath string        `yaml:"mmapplypolicy_path"`
	CommandTimeout    string        `yaml:"command_timeout,omitempty"`
	SSH               SSHConfig     `yaml:"ssh"`
	Transfer          TransferCfg   `yaml:"transfer"`
	Elevation         ElevationCfg  `yaml:"elevation"`
	Local             LocalCfg      `yaml:"local"`
	Staging           StagingConfig `yaml:"staging"`
	Logging           LoggingConfig `yaml:"logging"`
}

type SSHConfig struct {
	Host        string `yaml:"host"`
	User        string `yaml:"user"`
	Port        int    `yaml:"port"`
	PrivateKey  string `yaml:"private_key"`
	Passphrase  string `yaml:"passphrase,omitempty"`
	KnownHosts  string `yaml:"known_hosts,omitempty"`
	UseAgent    bool   `yaml:"use_agent,omitempty"`
	PTY         *bool  `yaml:"pty,omitempty"`
	DialTimeout string `yaml:"dial_timeout,omitempty"`
}

type TransferCfg struct {
	Protocol string `yaml:"protocol"`
}

type ElevationCfg struct {
	Enabled bool   `yaml:"enabled"`
	Command string `yaml:"command,omitempty"`
}

type LocalCfg struct {
	PTY bool `yaml:"pty,omitempty"`
}

// StagingConfig holds scratch locations. The prefixes name files on the
// eeadm host; Dir is where remote payloads are written before transfer.
type StagingConfig struct {
	Dir           string `yaml:"dir,omitempty"`
	RecallPrefix  string `yaml:"recall_prefix"`
	MigratePrefix string `yaml:"migrate_prefix"`
	PolicyPrefix  string `yaml:"policy_prefix"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
}

// Default returns the configuration used when no file is present. Values
// follow the historical EEAPI_* defaults.
func Default() *Config {
	return &Config{
		Mode:              string(types.ModeRemote),
		EEADMPath:         DefaultEEADMPath,
		MMApplyPolicyPath: DefaultMMApplyPolicyPath,
		SSH: SSHConfig{
			Host:        "localhost",
			User:        "root",
			Port:        22,
			DialTimeout: "30s",
		},
		Transfer:  TransferCfg{Protocol: types.ProtocolSCP},
		Elevation: ElevationCfg{Command: DefaultElevationCommand},
		Staging: StagingConfig{
			Dir:           os.TempDir(),
			RecallPrefix:  DefaultRecallPrefix,
			MigratePrefix: DefaultMigratePrefix,
			PolicyPrefix:  DefaultPolicyPrefix,
		},
		Logging: LoggingConfig{Level: "warn", Format: "console"},
	}
}

// Load reads path (or eeapi.yaml in the working directory when empty).
// A missing file is not an error: defaults and environment overrides apply.
// A .env file next to the config is read for ${VAR} interpolation and
// EEAPI_* overrides; real environment variables win over .env values.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = ConfigFileName
	}

	cfg := Default()
	envMap, _ := loadDotEnvIfExists(filepath.Dir(path))

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		rendered := interpolateEnv(string(data), envMap)
		if err := yaml.Unmarshal([]byte(rendered), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		logging.Debug("no config file, using defaults", map[string]interface{}{"path": path})
	default:
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := applyEnvOverrides(cfg, envMap); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateConfig reports every problem found in one error.
func ValidateConfig(cfg *Config) error {
	var validationErrors []string

	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode != string(types.ModeLocal) && mode != string(types.ModeRemote) {
		validationErrors = append(validationErrors, fmt.Sprintf("mode must be 'local' or 'remote', got '%s'", cfg.Mode))
	}
	if strings.TrimSpace(cfg.EEADMPath) == "" {
		validationErrors = append(validationErrors, "eeadm_path cannot be empty")
	}

	if mode == string(types.ModeRemote) {
		if strings.TrimSpace(cfg.SSH.Host) == "" {
			validationErrors = append(validationErrors, "ssh.host cannot be empty in remote mode")
		}
		if strings.TrimSpace(cfg.SSH.User) == "" {
			validationErrors = append(validationErrors, "ssh.user cannot be empty in remote mode")
		}
		if cfg.SSH.Port <= 0 || cfg.SSH.Port > 65535 {
			validationErrors = append(validationErrors, "ssh.port must be a valid number between 1-65535")
		}
		if strings.TrimSpace(cfg.SSH.PrivateKey) == "" && !cfg.SSH.UseAgent {
			validationErrors = append(validationErrors, "ssh.private_key is required unless ssh.use_agent is set")
		}
		if strings.TrimSpace(cfg.Staging.Dir) == "" {
			validationErrors = append(validationErrors, "staging.dir cannot be empty in remote mode")
		}
	}

	switch cfg.Transfer.Protocol {
	case types.ProtocolSCP, types.ProtocolSFTP:
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("transfer.protocol must be 'scp' or 'sftp', got '%s'", cfg.Transfer.Protocol))
	}

	for name, prefix := range map[string]string{
		"staging.recall_prefix":  cfg.Staging.RecallPrefix,
		"staging.migrate_prefix": cfg.Staging.MigratePrefix,
		"staging.policy_prefix":  cfg.Staging.PolicyPrefix,
	} {
		if strings.TrimSpace(prefix) == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("%s cannot be empty", name))
		} else if !strings.HasPrefix(prefix, "/") {
			validationErrors = append(validationErrors, fmt.Sprintf("%s must be an absolute path: %s", name, prefix))
		}
	}

	if cfg.Staging.RecallPrefix != "" && cfg.Staging.RecallPrefix == cfg.Staging.MigratePrefix {
		validationErrors = append(validationErrors, "staging.recall_prefix and staging.migrate_prefix must differ")
	}

	if _, err := parseDuration(cfg.CommandTimeout); err != nil {
		validationErrors = append(validationErrors, fmt.Sprintf("command_timeout: %v", err))
	}
	if _, err := parseDuration(cfg.SSH.DialTimeout); err != nil {
		validationErrors = append(validationErrors, fmt.Sprintf("ssh.dial_timeout: %v", err))
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}

// Target builds the ExecutionTarget. Call only on a validated config.
func (c *Config) Target() types.ExecutionTarget {
	mode := types.Mode(strings.ToLower(strings.TrimSpace(c.Mode)))
	dial, _ := parseDuration(c.SSH.DialTimeout)
	timeout, _ := parseDuration(c.CommandTimeout)

	usePTY := c.Local.PTY
	if mode == types.ModeRemote {
		usePTY = c.SSH.PTY == nil || *c.SSH.PTY
	}

	elevation := strings.TrimSpace(c.Elevation.Command)
	if elevation == "" {
		elevation = DefaultElevationCommand
	}

	return types.ExecutionTarget{
		Mode:             mode,
		RemoteHost:       c.SSH.Host,
		RemoteUser:       c.SSH.User,
		RemotePort:       c.SSH.Port,
		PrivateKeyPath:   expandHome(c.SSH.PrivateKey),
		KeyPassphrase:    c.SSH.Passphrase,
		KnownHostsPath:   expandHome(c.SSH.KnownHosts),
		UseAgent:         c.SSH.UseAgent,
		UseElevation:     c.Elevation.Enabled,
		ElevationCommand: elevation,
		UsePTY:           usePTY,
		TransferProtocol: c.Transfer.Protocol,
		DialTimeout:      dial,
		CommandTimeout:   timeout,
	}
}

// LoggingOptions maps the logging section for logging.Configure.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:      logging.ParseLevel(c.Logging.Level),
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
	}
}

// Save writes cfg as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}

func loadDotEnvIfExists(dir string) (map[string]string, error) {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return map[string]string{}, nil
	}

	m, err := godotenv.Read(envPath)
	if err != nil {
		logging.Warn("failed to parse .env", map[string]interface{}{"path": envPath, "err": err})
		return map[string]string{}, err
	}
	return m, nil
}

// interpolateEnv replaces ${VAR} and $VAR using the OS environment first,
// then the .env values. Unknown variables expand to the empty string.
func interpolateEnv(input string, envMap map[string]string) string {
	return os.Expand(input, func(name string) string {
		if v := os.Getenv(name); v != "" {
			return v
		}
		if v, ok := envMap[name]; ok {
			return v
		}
		logging.Warn("environment variable not set; using empty string", map[string]interface{}{"var": name})
		return ""
	})
}

func lookupEnv(name string, envMap map[string]string) (string, bool) {
	if v, ok := os.LookupEnv(name); ok {
		return v, true
	}
	v, ok := envMap[name]
	return v, ok
}

// applyEnvOverrides applies the EEAPI_* variables on top of the file values.
func applyEnvOverrides(cfg *Config, envMap map[string]string) error {
	if v, ok := lookupEnv("EEAPI_USESSH", envMap); ok {
		useSSH, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("EEAPI_USESSH: %w", err)
		}
		if useSSH {
			cfg.Mode = string(types.ModeRemote)
		} else {
			cfg.Mode = string(types.ModeLocal)
		}
	}
	if v, ok := lookupEnv("EEAPI_SSHPORT", envMap); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EEAPI_SSHPORT: %w", err)
		}
		cfg.SSH.Port = port
	}
	if v, ok := lookupEnv("EEAPI_SUDO", envMap); ok {
		sudo, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("EEAPI_SUDO: %w", err)
		}
		cfg.Elevation.Enabled = sudo
	}

	strs := map[string]*string{
		"EEAPI_SSHUSER":     &cfg.SSH.User,
		"EEAPI_SSHHOST":     &cfg.SSH.Host,
		"EEAPI_SSHKEY":      &cfg.SSH.PrivateKey,
		"EEAPI_RECALLFILE":  &cfg.Staging.RecallPrefix,
		"EEAPI_MIGRATEFILE": &cfg.Staging.MigratePrefix,
		"EEAPI_POLICYFILE":  &cfg.Staging.PolicyPrefix,
		"EEAPI_TIMEOUT":     &cfg.CommandTimeout,
	}
	for name, dst := range strs {
		if v, ok := lookupEnv(name, envMap); ok {
			*dst = v
		}
	}
	return nil
}

// FixSSHKeyPermissions sets a private key to 0600, which ssh requires.
func FixSSHKeyPermissions(keyPath string) error {
	if keyPath == "" {
		return nil
	}
	keyPath = expandHome(keyPath)

	info, err := os.Stat(keyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("SSH key file does not exist: %s", keyPath)
		}
		return fmt.Errorf("cannot access SSH key file: %w", err)
	}
	if info.Mode().Perm() == 0600 {
		return nil
	}
	if err := os.Chmod(keyPath, 0600); err != nil {
		return fmt.Errorf("failed to set SSH key permissions for %s: %w", keyPath, err)
	}
	logging.Info("ssh key permissions fixed", map[string]interface{}{
		"path": keyPath,
		"from": fmt.Sprintf("%o", info.Mode().Perm()),
	})
	return nil
}
