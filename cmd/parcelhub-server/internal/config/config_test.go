package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("DB_PASSWORD", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, "parcelhub_", cfg.Database.Prefix)
	assert.Equal(t, 0, cfg.Hub.BacklogLimit)
	assert.Equal(t, 256, cfg.Hub.SendBuffer)
	assert.Empty(t, cfg.Hub.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("HUB_BACKLOG_LIMIT", "50")
	t.Setenv("HUB_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 50, cfg.Hub.BacklogLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Hub.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}},
		{"short jwt secret", map[string]string{"JWT_SECRET": "short"}},
		{"missing password", map[string]string{"DB_PASSWORD": ""}},
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}},
		{"bad port", map[string]string{"SERVER_PORT": "70000"}},
		{"negative backlog", map[string]string{"HUB_BACKLOG_LIMIT": "-1"}},
		{"unknown level", map[string]string{"LOG_LEVEL": "trace"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()

			assert.Error(t, err)
		})
	}
}

func TestLoad_PasswordOptionalForEmbeddedStores(t *testing.T) {
	for _, driver := range []string{DriverSQLite, DriverMongo} {
		t.Run(driver, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("DB_PASSWORD", "")
			t.Setenv("DB_DRIVER", driver)

			cfg, err := Load()

			require.NoError(t, err)
			assert.Equal(t, driver == DriverMongo, cfg.Database.IsMongo())
		})
	}
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	tests := []struct {
		driver   string
		expected string
	}{
		{DriverMySQL, "u:p@tcp(h:3306)/db?parseTime=true"},
		{DriverPostgres, "host=h port=3306 user=u password=p dbname=db sslmode=disable"},
		{DriverSQLite, "db"},
		{DriverMongo, "mongodb://h/db"},
		{"oracle", ""},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			c := DatabaseConfig{Driver: tt.driver, Host: "h", Port: 3306, User: "u", Password: "p", Database: "db", MongoURI: "mongodb://h/db"}
			assert.Equal(t, tt.expected, c.GetDSN())
		})
	}
}
