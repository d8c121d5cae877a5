// Package config handles loading and validating pacemon configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/u2takey/go-utils/filesystem/homedir"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} placeholders in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ErrConfigFileNotFound is returned by Load when the specified config file does not exist.
var ErrConfigFileNotFound = errors.New("config file not found")

// Cluster sources.
const (
	SourceLocal = "local"
	SourceSSH   = "ssh"
	SourceFile  = "file"
)

// DefaultBoothConfig is where booth keeps its configuration.
const DefaultBoothConfig = "/etc/booth/booth.conf"

// Config is the top-level pacemon configuration.
type Config struct {
	Listen         string               `yaml:"listen"`
	DBPath         string               `yaml:"db_path"`
	LogLevel       string               `yaml:"log_level"`
	LogFormat      string               `yaml:"log_format"`
	HistoryHours   int                  `yaml:"history_hours"`
	WorkerPoolSize int                  `yaml:"worker_pool_size"`
	Clusters       []ClusterConfig      `yaml:"clusters"`
	Notifications  []NotificationConfig `yaml:"notifications"`
	Alerts         AlertsConfig         `yaml:"alerts"`
}

// ClusterConfig describes one Pacemaker cluster and how to reach its CIB.
type ClusterConfig struct {
	Name           string     `yaml:"name"`
	Source         string     `yaml:"source"`                 // "local", "ssh" or "file"
	CIBFile        string     `yaml:"cib_file,omitempty"`     // file only
	BoothConfig    string     `yaml:"booth_config,omitempty"` // empty disables geo-cluster lookups
	PollInterval   Duration   `yaml:"poll_interval"`
	CommandTimeout Duration   `yaml:"command_timeout"`
	SSH            *SSHConfig `yaml:"ssh,omitempty"`
}

// SSHConfig describes SSH access to a cluster node.
type SSHConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	KeyPath        string `yaml:"key_path"`
	KnownHostsPath string `yaml:"known_hosts_path,omitempty"`
}

// Addr returns host:port for dialing.
func (s SSHConfig) Addr() string {
	port := s.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", s.Host, port)
}

// NotificationConfig describes a notification target.
type NotificationConfig struct {
	Type    string            `yaml:"type"` // "ntfy" or "webhook"
	URL     string            `yaml:"url"`
	Topic   string            `yaml:"topic,omitempty"`   // ntfy only
	Method  string            `yaml:"method,omitempty"`  // webhook only
	Headers map[string]string `yaml:"headers,omitempty"` // webhook only
}

// AlertsConfig enables and tunes each alert rule. A nil rule is disabled.
type AlertsConfig struct {
	ClusterStatus  *AlertClusterStatus  `yaml:"cluster_status,omitempty"`
	NodeUnclean    *AlertNodeUnclean    `yaml:"node_unclean,omitempty"`
	NodeOffline    *AlertNodeOffline    `yaml:"node_offline,omitempty"`
	ResourceFailed *AlertResourceFailed `yaml:"resource_failed,omitempty"`
	TicketRevoked  *AlertTicketRevoked  `yaml:"ticket_revoked,omitempty"`
}

type AlertClusterStatus struct {
	GracePeriod Duration `yaml:"grace_period"`
	Severity    string   `yaml:"severity"`
}

type AlertNodeUnclean struct {
	Severity string `yaml:"severity"`
}

type AlertNodeOffline struct {
	GracePeriod Duration `yaml:"grace_period"`
	Severity    string   `yaml:"severity"`
}

type AlertResourceFailed struct {
	Severity string `yaml:"severity"`
}

type AlertTicketRevoked struct {
	Severity string `yaml:"severity"`
}

// Duration wraps time.Duration with YAML string parsing support.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Load reads configuration from a YAML file. If no path is given, it falls
// back to environment variables, which by default monitor the local cluster.
// If a path is given and the file does not exist, ErrConfigFileNotFound is
// returned.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(expandEnvVars(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)
	applyClusterDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Clusters) == 0 {
		return fmt.Errorf("at least one cluster is required")
	}
	seen := make(map[string]bool)
	for i, cl := range c.Clusters {
		if cl.Name == "" {
			return fmt.Errorf("clusters[%d]: name is required", i)
		}
		if seen[cl.Name] {
			return fmt.Errorf("clusters[%d]: duplicate name %q", i, cl.Name)
		}
		seen[cl.Name] = true

		switch cl.Source {
		case SourceLocal:
		case SourceFile:
			if cl.CIBFile == "" {
				return fmt.Errorf("clusters[%d]: cib_file is required for file source", i)
			}
		case SourceSSH:
			if cl.SSH == nil || cl.SSH.Host == "" {
				return fmt.Errorf("clusters[%d]: ssh.host is required for ssh source", i)
			}
			if cl.SSH.User == "" {
				return fmt.Errorf("clusters[%d]: ssh.user is required for ssh source", i)
			}
			if cl.SSH.KeyPath == "" {
				return fmt.Errorf("clusters[%d]: ssh.key_path is required for ssh source", i)
			}
			if cl.SSH.Port < 0 || cl.SSH.Port > 65535 {
				return fmt.Errorf("clusters[%d]: ssh.port out of range", i)
			}
		default:
			return fmt.Errorf("clusters[%d]: unknown source %q (expected local, ssh or file)", i, cl.Source)
		}
		if cl.PollInterval.Duration <= 0 {
			return fmt.Errorf("clusters[%d]: poll_interval must be > 0", i)
		}
		if cl.CommandTimeout.Duration <= 0 {
			return fmt.Errorf("clusters[%d]: command_timeout must be > 0", i)
		}
	}
	for i, n := range c.Notifications {
		switch n.Type {
		case "ntfy":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for ntfy", i)
			}
			if n.Topic == "" {
				return fmt.Errorf("notifications[%d]: topic is required for ntfy", i)
			}
		case "webhook":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for webhook", i)
			}
		default:
			return fmt.Errorf("notifications[%d]: unknown type %q (expected ntfy or webhook)", i, n.Type)
		}
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("log_format must be one of: text, json")
	}
	if c.HistoryHours < 1 {
		return fmt.Errorf("history_hours must be >= 1")
	}
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("worker_pool_size must be >= 1")
	}

	if a := c.Alerts.ClusterStatus; a != nil && a.GracePeriod.Duration < 0 {
		return fmt.Errorf("alerts.cluster_status: grace_period must be >= 0")
	}
	if a := c.Alerts.NodeOffline; a != nil && a.GracePeriod.Duration <= 0 {
		return fmt.Errorf("alerts.node_offline: grace_period must be > 0")
	}

	return nil
}

func defaults() *Config {
	return &Config{
		Listen:         ":3900",
		DBPath:         "/var/lib/pacemon/pacemon.db",
		LogLevel:       "info",
		LogFormat:      "text",
		HistoryHours:   72,
		WorkerPoolSize: 4,
	}
}

// applyClusterDefaults fills per-cluster settings left unset in YAML and
// expands ~ in key paths.
func applyClusterDefaults(cfg *Config) {
	for i := range cfg.Clusters {
		cl := &cfg.Clusters[i]
		if cl.Source == "" {
			cl.Source = SourceLocal
		}
		if cl.PollInterval.Duration == 0 {
			cl.PollInterval = Duration{15 * time.Second}
		}
		if cl.CommandTimeout.Duration == 0 {
			cl.CommandTimeout = Duration{10 * time.Second}
		}
		if cl.SSH != nil {
			cl.SSH.KeyPath = expandHome(cl.SSH.KeyPath)
			cl.SSH.KnownHostsPath = expandHome(cl.SSH.KnownHostsPath)
		}
	}
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := homedir.HomeDir()
	if home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// expandEnvVars replaces ${VAR_NAME} placeholders in raw YAML with the
// corresponding environment variable values. Unset variables are replaced
// with an empty string, which will then fail validation with a clear error.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		key := string(match[2 : len(match)-1]) // strip ${ and }
		return []byte(os.Getenv(key))
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PACEMON_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("PACEMON_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("PACEMON_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PACEMON_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	// Single cluster from env vars (only if no YAML clusters configured).
	// With nothing set at all, the local cluster is monitored.
	if len(cfg.Clusters) == 0 {
		cl := ClusterConfig{
			Name:        os.Getenv("PACEMON_CLUSTER_NAME"),
			Source:      os.Getenv("PACEMON_CLUSTER_SOURCE"),
			CIBFile:     os.Getenv("PACEMON_CIB_FILE"),
			BoothConfig: os.Getenv("PACEMON_BOOTH_CONFIG"),
		}
		if cl.Name == "" {
			cl.Name = "local"
		}
		if cl.BoothConfig == "" {
			cl.BoothConfig = DefaultBoothConfig
		}
		if cl.CIBFile != "" && cl.Source == "" {
			cl.Source = SourceFile
		}
		if host := os.Getenv("PACEMON_SSH_HOST"); host != "" {
			if cl.Source == "" {
				cl.Source = SourceSSH
			}
			port, _ := strconv.Atoi(os.Getenv("PACEMON_SSH_PORT"))
			cl.SSH = &SSHConfig{
				Host:    host,
				Port:    port,
				User:    os.Getenv("PACEMON_SSH_USER"),
				KeyPath: os.Getenv("PACEMON_SSH_KEY_PATH"),
			}
		}
		if v := os.Getenv("PACEMON_POLL_INTERVAL"); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				cl.PollInterval = Duration{d}
			}
		}
		cfg.Clusters = append(cfg.Clusters, cl)
	}

	// Single ntfy target from env vars (only if no YAML notifications configured).
	if len(cfg.Notifications) == 0 {
		if ntfyURL := os.Getenv("PACEMON_NTFY_URL"); ntfyURL != "" {
			topic := os.Getenv("PACEMON_NTFY_TOPIC")
			if topic == "" {
				topic = "pacemon-alerts"
			}
			cfg.Notifications = append(cfg.Notifications, NotificationConfig{
				Type:  "ntfy",
				URL:   ntfyURL,
				Topic: topic,
			})
		}
	}

	if v := os.Getenv("PACEMON_HISTORY_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HistoryHours = n
		}
	}
	if v := os.Getenv("PACEMON_WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WorkerPoolSize = n
		}
	}
}
