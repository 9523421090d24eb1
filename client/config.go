package chclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openrport/dashnotify/client/credential"
	"github.com/openrport/dashnotify/client/poller"
	"github.com/openrport/dashnotify/client/transport"
	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/notifications/persistence"
	chshare "github.com/openrport/dashnotify/share"
	"github.com/openrport/dashnotify/share/logger"
)

const (
	DefaultRetentionMaxCount = 500
	DefaultRetentionMaxAge   = 30 * 24 * time.Hour
	DefaultSweepSchedule     = "@every 1h"

	CredentialSourceConfig  = "config"
	CredentialSourceKeyring = "keyring"
)

type ClientConfig struct {
	// Server is the event stream address, http(s) is swapped to ws(s).
	Server  string `mapstructure:"server"`
	APIURL  string `mapstructure:"api_url"`
	Auth    string `mapstructure:"auth"`
	DataDir string `mapstructure:"data_dir"`
}

type ConnectionConfig struct {
	KeepAlive        time.Duration `mapstructure:"keep_alive"`
	MaxRetryCount    int           `mapstructure:"max_retry_count"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	HeadersRaw       []string      `mapstructure:"headers"`
	Hostname         string        `mapstructure:"hostname"`

	headers http.Header
}

func (c *ConnectionConfig) Headers() http.Header {
	return c.headers
}

type PollingConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	PageSize        int           `mapstructure:"page_size"`
	MaxAuthFailures int           `mapstructure:"max_auth_failures"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type RetentionConfig struct {
	MaxCount      int           `mapstructure:"max_count"`
	MaxAge        time.Duration `mapstructure:"max_age"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
}

func (c RetentionConfig) Policy() notifications.RetentionPolicy {
	return notifications.RetentionPolicy{MaxCount: c.MaxCount, MaxAge: c.MaxAge}
}

type SoundConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Cue        string   `mapstructure:"cue"`
	Player     string   `mapstructure:"player"`
	PlayerArgs []string `mapstructure:"player_args"`
}

type DesktopConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	AppName string        `mapstructure:"app_name"`
	Icon    string        `mapstructure:"icon"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ToastConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type DeliveryLogConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	KeepFor    time.Duration `mapstructure:"keep_for"`
	CheckEvery time.Duration `mapstructure:"check_every"`
	LogChannel bool          `mapstructure:"log_channel"`
}

type APIConfig struct {
	// Address is where the local API listens, empty disables it.
	Address       string   `mapstructure:"address"`
	AccessLogFile string   `mapstructure:"access_log_file"`
	CORSOrigins   []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	LogOutput logger.LogOutput `mapstructure:"log_file"`
	LogLevel  logger.LogLevel  `mapstructure:"log_level"`
}

type CredentialConfig struct {
	Source          string `mapstructure:"source"`
	KeyringService  string `mapstructure:"keyring_service"`
	KeyringKey      string `mapstructure:"keyring_key"`
	KeyringFileDir  string `mapstructure:"keyring_file_dir"`
	KeyringPassword string `mapstructure:"keyring_password"`
}

type Config struct {
	Client      ClientConfig      `mapstructure:"client"`
	Connection  ConnectionConfig  `mapstructure:"connection"`
	Polling     PollingConfig     `mapstructure:"polling"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Retention   RetentionConfig   `mapstructure:"retention"`
	Sound       SoundConfig       `mapstructure:"sound"`
	Desktop     DesktopConfig     `mapstructure:"desktop"`
	Toast       ToastConfig       `mapstructure:"toast"`
	DeliveryLog DeliveryLogConfig `mapstructure:"delivery_log"`
	API         APIConfig         `mapstructure:"api"`
	Logging     LogConfig         `mapstructure:"logging"`
	Credential  CredentialConfig  `mapstructure:"credential"`
}

func (c *Config) ParseAndValidate() error {
	if err := c.parseHeaders(); err != nil {
		return err
	}
	if err := c.parseServerURL(); err != nil {
		return err
	}
	if err := c.parseAPIURL(); err != nil {
		return err
	}
	if err := c.parseStorage(); err != nil {
		return err
	}
	if err := c.parseRetention(); err != nil {
		return fmt.Errorf("retention: %v", err)
	}
	if err := c.parseCredential(); err != nil {
		return fmt.Errorf("credential: %v", err)
	}

	if c.Connection.RetryDelay <= 0 {
		c.Connection.RetryDelay = transport.DefaultRetryDelay
	}
	if c.Polling.PageSize <= 0 {
		c.Polling.PageSize = poller.DefaultPageSize
	}
	if c.Polling.MaxAuthFailures < 0 {
		return fmt.Errorf("polling: max auth failures can not be negative: %d", c.Polling.MaxAuthFailures)
	}
	if c.DeliveryLog.Enabled && c.DeliveryLog.KeepFor <= 0 {
		c.DeliveryLog.KeepFor = 7 * 24 * time.Hour
	}
	if c.DeliveryLog.CheckEvery <= 0 {
		c.DeliveryLog.CheckEvery = time.Hour
	}
	return nil
}

func (c *Config) parseHeaders() error {
	c.Connection.headers = http.Header{}
	for _, h := range c.Connection.HeadersRaw {
		name, val, err := parseHeader(h)
		if err != nil {
			return err
		}
		if strings.EqualFold(name, "Authorization") {
			return errors.New("the Authorization header is set from the credential, remove it from headers")
		}
		c.Connection.headers.Set(name, val)
	}
	if c.Connection.Hostname != "" {
		c.Connection.headers.Set("Host", c.Connection.Hostname)
	}
	if len(c.Connection.headers.Values("User-Agent")) == 0 {
		c.Connection.headers.Set("User-Agent", chshare.UserAgent())
	}
	return nil
}

func (c *Config) parseServerURL() error {
	if c.Client.Server == "" {
		return errors.New("server address is required")
	}

	//apply default scheme
	if !strings.Contains(c.Client.Server, "://") {
		c.Client.Server = "http://" + c.Client.Server
	}

	u, err := url.Parse(c.Client.Server)
	if err != nil {
		return fmt.Errorf("invalid server address: %v", err)
	}
	//apply default port
	if !regexp.MustCompile(`:\d+$`).MatchString(u.Host) {
		if u.Scheme == "https" || u.Scheme == "wss" {
			u.Host = u.Host + ":443"
		} else {
			u.Host = u.Host + ":80"
		}
	}
	//swap to websockets scheme
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	c.Client.Server = u.String()
	return nil
}

func (c *Config) parseAPIURL() error {
	if c.Client.APIURL == "" {
		if c.Polling.Enabled {
			return errors.New("api url is required when polling is enabled")
		}
		return nil
	}
	u, err := url.Parse(c.Client.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api url %q: scheme must be http or https", c.Client.APIURL)
	}
	c.Client.APIURL = strings.TrimRight(u.String(), "/")
	return nil
}

func (c *Config) parseStorage() error {
	if c.Storage.Driver == "" {
		c.Storage.Driver = persistence.DriverFile
	}
	for _, d := range persistence.Drivers {
		if d == c.Storage.Driver {
			if d != persistence.DriverMemory && c.Client.DataDir == "" {
				return fmt.Errorf("data dir is required for storage driver %q", d)
			}
			return nil
		}
	}
	return fmt.Errorf("invalid storage driver %q, expected one of %v", c.Storage.Driver, persistence.Drivers)
}

func (c *Config) parseRetention() error {
	if c.Retention.MaxCount < 0 {
		return fmt.Errorf("max count can not be negative: %d", c.Retention.MaxCount)
	}
	if c.Retention.MaxAge < 0 {
		return fmt.Errorf("max age can not be negative: %s", c.Retention.MaxAge)
	}
	if c.Retention.SweepSchedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(c.Retention.SweepSchedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %v", c.Retention.SweepSchedule, err)
	}
	return nil
}

func (c *Config) parseCredential() error {
	switch c.Credential.Source {
	case "", CredentialSourceConfig:
		c.Credential.Source = CredentialSourceConfig
		if strings.TrimSpace(c.Client.Auth) == "" {
			return errors.New("auth token is required, set client.auth or the AUTH environment variable")
		}
	case CredentialSourceKeyring:
		if c.Credential.KeyringKey == "" {
			c.Credential.KeyringKey = "token"
		}
		if c.Credential.KeyringService == "" {
			c.Credential.KeyringService = credential.DefaultKeyringService
		}
		if c.Credential.KeyringFileDir == "" && c.Client.DataDir != "" {
			c.Credential.KeyringFileDir = filepath.Join(c.Client.DataDir, "keyring")
		}
	default:
		return fmt.Errorf("invalid source %q, expected %q or %q", c.Credential.Source, CredentialSourceConfig, CredentialSourceKeyring)
	}
	return nil
}

func parseHeader(h string) (string, string, error) {
	index := strings.Index(h, ":")
	if index < 0 {
		return "", "", fmt.Errorf(`invalid header %q. Should be in the format "HeaderName: HeaderContent"`, h)
	}
	return h[0:index], strings.TrimSpace(h[index+1:]), nil
}

// CredentialProvider returns where the session reads its token from.
func (c *Config) CredentialProvider() (credential.Provider, error) {
	if c.Credential.Source == CredentialSourceKeyring {
		k, err := credential.OpenKeyring(c.Credential.KeyringService, c.Credential.KeyringKey, c.Credential.KeyringFileDir, c.Credential.KeyringPassword)
		if err != nil {
			return nil, err
		}
		return k, nil
	}
	return credential.Static(c.Client.Auth), nil
}
