package chclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrport/dashnotify/client/credential"
	"github.com/openrport/dashnotify/notifications/persistence"
	chshare "github.com/openrport/dashnotify/share"
)

func validMinConfig() Config {
	return Config{
		Client: ClientConfig{
			Server: "test.com",
			Auth:   "secret-token",
		},
		Storage: StorageConfig{
			Driver: persistence.DriverMemory,
		},
	}
}

func TestConfigParseAndValidateHeaders(t *testing.T) {
	testCases := []struct {
		Name           string
		ConnConfig     ConnectionConfig
		ExpectedHeader http.Header
		ExpectedError  string
	}{
		{
			Name: "defaults",
			ExpectedHeader: http.Header{
				"User-Agent": []string{chshare.UserAgent()},
			},
		}, {
			Name: "host set",
			ConnConfig: ConnectionConfig{
				Hostname: "test.com",
			},
			ExpectedHeader: http.Header{
				"Host":       []string{"test.com"},
				"User-Agent": []string{chshare.UserAgent()},
			},
		}, {
			Name: "user agent set in config",
			ConnConfig: ConnectionConfig{
				HeadersRaw: []string{"User-Agent: test-agent"},
			},
			ExpectedHeader: http.Header{
				"User-Agent": []string{"test-agent"},
			},
		}, {
			Name: "multiple headers set",
			ConnConfig: ConnectionConfig{
				HeadersRaw: []string{"Test1: v1", "Test2: v2"},
			},
			ExpectedHeader: http.Header{
				"Test1":      []string{"v1"},
				"Test2":      []string{"v2"},
				"User-Agent": []string{chshare.UserAgent()},
			},
		}, {
			Name: "authorization header rejected",
			ConnConfig: ConnectionConfig{
				HeadersRaw: []string{"Authorization: Bearer x"},
			},
			ExpectedError: "the Authorization header is set from the credential, remove it from headers",
		}, {
			Name: "malformed header",
			ConnConfig: ConnectionConfig{
				HeadersRaw: []string{"no-colon"},
			},
			ExpectedError: `invalid header "no-colon". Should be in the format "HeaderName: HeaderContent"`,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			config := validMinConfig()
			config.Connection = tc.ConnConfig

			err := config.ParseAndValidate()
			if tc.ExpectedError != "" {
				require.EqualError(t, err, tc.ExpectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.ExpectedHeader, config.Connection.Headers())
		})
	}
}

func TestConfigParseAndValidateServerURL(t *testing.T) {
	testCases := []struct {
		Server        string
		ExpectedURL   string
		ExpectedError string
	}{
		{
			Server:        "",
			ExpectedError: "server address is required",
		}, {
			Server:      "test.com",
			ExpectedURL: "ws://test.com:80",
		}, {
			Server:      "http://test.com/events",
			ExpectedURL: "ws://test.com:80/events",
		}, {
			Server:      "https://test.com",
			ExpectedURL: "wss://test.com:443",
		}, {
			Server:      "wss://test.com:8443/ws",
			ExpectedURL: "wss://test.com:8443/ws",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.Server, func(t *testing.T) {
			config := validMinConfig()
			config.Client.Server = tc.Server

			err := config.ParseAndValidate()
			if tc.ExpectedError != "" {
				require.EqualError(t, err, tc.ExpectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.ExpectedURL, config.Client.Server)
		})
	}
}

func TestConfigParseAndValidateAPIURL(t *testing.T) {
	config := validMinConfig()
	config.Polling.Enabled = true
	assert.EqualError(t, config.ParseAndValidate(), "api url is required when polling is enabled")

	config = validMinConfig()
	config.Polling.Enabled = true
	config.Client.APIURL = "ftp://api.test.com"
	assert.EqualError(t, config.ParseAndValidate(), `invalid api url "ftp://api.test.com": scheme must be http or https`)

	config = validMinConfig()
	config.Polling.Enabled = true
	config.Client.APIURL = "https://api.test.com/v1/"
	require.NoError(t, config.ParseAndValidate())
	assert.Equal(t, "https://api.test.com/v1", config.Client.APIURL)
}

func TestConfigParseAndValidateStorage(t *testing.T) {
	config := validMinConfig()
	config.Storage.Driver = ""
	assert.EqualError(t, config.ParseAndValidate(), `data dir is required for storage driver "file"`)

	config = validMinConfig()
	config.Storage.Driver = "redis"
	assert.EqualError(t, config.ParseAndValidate(), `invalid storage driver "redis", expected one of [file sqlite bolt memory]`)

	config = validMinConfig()
	config.Storage.Driver = persistence.DriverBolt
	config.Client.DataDir = t.TempDir()
	assert.NoError(t, config.ParseAndValidate())
}

func TestConfigParseAndValidateRetention(t *testing.T) {
	config := validMinConfig()
	config.Retention.SweepSchedule = "every now and then"
	err := config.ParseAndValidate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `retention: invalid sweep schedule "every now and then"`)

	config = validMinConfig()
	config.Retention.MaxCount = -1
	assert.EqualError(t, config.ParseAndValidate(), "retention: max count can not be negative: -1")

	config = validMinConfig()
	config.Retention.SweepSchedule = "*/5 * * * *"
	assert.NoError(t, config.ParseAndValidate())
}

func TestConfigParseAndValidateCredential(t *testing.T) {
	config := validMinConfig()
	config.Client.Auth = "  "
	assert.EqualError(t, config.ParseAndValidate(), "credential: auth token is required, set client.auth or the AUTH environment variable")

	config = validMinConfig()
	config.Credential.Source = "vault"
	assert.EqualError(t, config.ParseAndValidate(), `credential: invalid source "vault", expected "config" or "keyring"`)

	config = validMinConfig()
	config.Client.Auth = ""
	config.Client.DataDir = "/var/lib/dashnotify"
	config.Credential.Source = CredentialSourceKeyring
	require.NoError(t, config.ParseAndValidate())
	assert.Equal(t, "token", config.Credential.KeyringKey)
	assert.Equal(t, credential.DefaultKeyringService, config.Credential.KeyringService)
	assert.Equal(t, "/var/lib/dashnotify/keyring", config.Credential.KeyringFileDir)
}

func TestConfigParseAndValidateDefaults(t *testing.T) {
	config := validMinConfig()
	config.DeliveryLog.Enabled = true

	require.NoError(t, config.ParseAndValidate())

	assert.Equal(t, 3*time.Second, config.Connection.RetryDelay)
	assert.Equal(t, 10, config.Polling.PageSize)
	assert.Equal(t, 7*24*time.Hour, config.DeliveryLog.KeepFor)
	assert.Equal(t, time.Hour, config.DeliveryLog.CheckEvery)
	assert.Equal(t, CredentialSourceConfig, config.Credential.Source)

	p, err := config.CredentialProvider()
	require.NoError(t, err)
	assert.Equal(t, credential.Static("secret-token"), p)
}
