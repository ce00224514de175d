package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoad_Defaults(t *testing.T) {
	for _, k := range []string{"STRING_ENVIRONMENT", "STRING_STORE_DRIVER", "STRING_PORT", "STRING_EXPIRY_SWEEP_INTERVAL"} {
		_ = os.Unsetenv(k)
	}

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
	assert.Equal(t, 5*time.Minute, cfg.ExpirySweepInterval)
	assert.Equal(t, 5, cfg.TxMaxRetries)
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	t.Setenv("STRING_STORE_DRIVER", "SQLite")
	t.Setenv("STRING_SQLITE_PATH", "/tmp/x.db")
	t.Setenv("STRING_PORT", "9000")
	t.Setenv("STRING_EXPIRY_SWEEP_INTERVAL", "30s")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ExpirySweepInterval)
}

func TestResolveDefaults(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		driver  string
		wantErr bool
	}{
		{name: "production picks dynamodb", mutate: func(c *Config) { c.Environment = EnvProduction; c.StoreDriver = "" }, driver: DriverDynamoDB},
		{name: "auto in testing picks memory", mutate: func(c *Config) { c.StoreDriver = "auto" }, driver: DriverMemory},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "postgres" }, wantErr: true},
		{name: "unknown environment", mutate: func(c *Config) { c.Environment = "staging" }, wantErr: true},
		{name: "sqlite needs a path", mutate: func(c *Config) { c.StoreDriver = DriverSQLite; c.SQLitePath = "" }, wantErr: true},
		{name: "negative sweep", mutate: func(c *Config) { c.ExpirySweepInterval = -time.Second }, wantErr: true},
		{name: "retries fall back", mutate: func(c *Config) { c.TxMaxRetries = 0 }, driver: DriverMemory},
		{name: "memory refused in production", mutate: func(c *Config) { c.Environment = EnvProduction; c.StoreDriver = DriverMemory }, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewForTesting()
			tc.mutate(cfg)
			err := cfg.ResolveDefaults()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.driver, cfg.StoreDriver)
			assert.Positive(t, cfg.TxMaxRetries)
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := NewForTesting()
	cfg.CORSAllowedOrigins = "https://a.example, https://b.example,,"
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}

func TestResolveDefaults_LocalDynamoCredentials(t *testing.T) {
	cfg := NewForTesting()
	cfg.StoreDriver = DriverDynamoDB
	cfg.DynamoEndpoint = "http://localhost:8000"
	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, "local", cfg.DynamoAccessKeyID)
	assert.Equal(t, "local", cfg.DynamoSecretAccessKey)

	cfg = NewForTesting()
	cfg.StoreDriver = DriverDynamoDB
	cfg.DynamoEndpoint = "http://localhost:8000"
	cfg.DynamoAccessKeyID, cfg.DynamoSecretAccessKey = "AKID", "secret"
	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, "AKID", cfg.DynamoAccessKeyID)

	cfg = NewForTesting()
	cfg.StoreDriver = DriverDynamoDB
	require.NoError(t, cfg.ResolveDefaults())
	assert.Empty(t, cfg.DynamoAccessKeyID, "real endpoints use the default credential chain")
}
