package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"learning-app-go/pkg/logger"
)

const dotenvFilename = ".env"

const (
	LocalStoreSQLite   = "sqlite"
	LocalStorePostgres = "postgres"

	ConnectivityProbe   = "probe"
	ConnectivityOnline  = "online"
	ConnectivityOffline = "offline"
)

type Config struct {
	Env            string
	HTTPPort       string
	MetricsEnabled bool
	Log            logger.Config
	LocalStore     LocalStoreConfig
	DB             DBConfig
	Remote         RemoteConfig
	Connectivity   ConnectivityConfig
	Outbox         OutboxConfig
	Stub           StubConfig
}

type LocalStoreConfig struct {
	Driver string
	Path   string
}

type DBConfig struct {
	DSN             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

type ConnectivityConfig struct {
	Mode          string
	ProbeInterval time.Duration
}

type OutboxConfig struct {
	FlushInterval time.Duration
	MaxAttempts   int
	BatchSize     int
}

type StubConfig struct {
	Latency        time.Duration
	AllowedOrigins []string
}

// Load reads configuration from the environment, falling back to the nearest
// .env file and then to defaults. Variables already set in the environment win
// over the file.
func Load(log logger.Logger) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := readDotEnv(v, log); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Env:            v.GetString("env"),
		HTTPPort:       v.GetString("http_port"),
		MetricsEnabled: v.GetBool("metrics_enabled"),
		Log: logger.Config{
			Env:    v.GetString("env"),
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		LocalStore: LocalStoreConfig{
			Driver: strings.ToLower(v.GetString("local_store_driver")),
			Path:   v.GetString("local_store_path"),
		},
		DB: DBConfig{
			DSN:             v.GetString("db_dsn"),
			Host:            v.GetString("db_host"),
			Port:            v.GetString("db_port"),
			User:            v.GetString("db_user"),
			Password:        v.GetString("db_password"),
			Name:            v.GetString("db_name"),
			SSLMode:         v.GetString("db_sslmode"),
			TimeZone:        v.GetString("db_timezone"),
			MaxOpenConns:    v.GetInt("db_max_open_conns"),
			MaxIdleConns:    v.GetInt("db_max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
		},
		Remote: RemoteConfig{
			BaseURL: strings.TrimRight(v.GetString("remote_base_url"), "/"),
			Timeout: v.GetDuration("remote_timeout"),
		},
		Connectivity: ConnectivityConfig{
			Mode:          strings.ToLower(v.GetString("connectivity_mode")),
			ProbeInterval: v.GetDuration("connectivity_probe_interval"),
		},
		Outbox: OutboxConfig{
			FlushInterval: v.GetDuration("outbox_flush_interval"),
			MaxAttempts:   v.GetInt("outbox_max_attempts"),
			BatchSize:     v.GetInt("outbox_batch_size"),
		},
		Stub: StubConfig{
			Latency:        v.GetDuration("stub_latency"),
			AllowedOrigins: splitList(v.GetString("stub_allowed_origins")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("http_port", "8080")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("log_format", "text")
	v.SetDefault("local_store_driver", LocalStoreSQLite)
	v.SetDefault("local_store_path", "learning-app.db")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "learning_app")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_timezone", "UTC")
	v.SetDefault("db_max_open_conns", 10)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime", 30*time.Minute)
	v.SetDefault("remote_base_url", "http://localhost:8080")
	v.SetDefault("remote_timeout", 10*time.Second)
	v.SetDefault("connectivity_mode", ConnectivityProbe)
	v.SetDefault("connectivity_probe_interval", 15*time.Second)
	v.SetDefault("outbox_flush_interval", 30*time.Second)
	v.SetDefault("outbox_max_attempts", 3)
	v.SetDefault("outbox_batch_size", 50)
	v.SetDefault("stub_latency", 500*time.Millisecond)
	v.SetDefault("stub_allowed_origins", "http://localhost:5173")
}

// readDotEnv merges the nearest .env file found walking up from the working
// directory.
func readDotEnv(v *viper.Viper, log logger.Logger) error {
	path, ok, err := findDotEnv()
	if err != nil {
		return err
	}
	if !ok {
		log.Debug("config: no .env file found")
		return nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	log.Info("config: loaded .env", "path", path, "keys", len(v.AllKeys()))
	return nil
}

func findDotEnv() (string, bool, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false, err
	}
	for {
		candidate := filepath.Join(dir, dotenvFilename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

func (c Config) Validate() error {
	switch c.LocalStore.Driver {
	case LocalStoreSQLite, LocalStorePostgres:
	default:
		return fmt.Errorf("unsupported LOCAL_STORE_DRIVER %q", c.LocalStore.Driver)
	}
	switch c.Connectivity.Mode {
	case ConnectivityProbe, ConnectivityOnline, ConnectivityOffline:
	default:
		return fmt.Errorf("unsupported CONNECTIVITY_MODE %q", c.Connectivity.Mode)
	}
	if c.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be positive")
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive")
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT must be a positive duration")
	}
	if c.Outbox.FlushInterval <= 0 || c.Connectivity.ProbeInterval <= 0 {
		return fmt.Errorf("OUTBOX_FLUSH_INTERVAL and CONNECTIVITY_PROBE_INTERVAL must be positive durations")
	}
	return nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (c DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.TimeZone
}

// GetDSN builds the sqlite DSN with the pragmas the local store relies on.
func (c LocalStoreConfig) GetDSN() string {
	path := c.Path
	if path == "" {
		path = "learning-app.db"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}
