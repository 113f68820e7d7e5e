package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJSON = `{
	"server_address": ":3001",
	"log_level": "warn",
	"mongo_uri": "mongodb://json-host:27017",
	"db_name": "json_db",
	"users_collection": "json_users",
	"database_dsn": "json-dsn",
	"db_connection_timeout": "3s"
}`

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	file, err := os.CreateTemp("", "config*.json")
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	t.Cleanup(func() {
		err := os.Remove(file.Name())
		require.NoError(t, err)
	})
	return file.Name()
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	saved := os.Args
	os.Args = append([]string{"testbin"}, args...)
	t.Cleanup(func() {
		os.Args = saved
	})
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "fenix", cfg.DBName)
	assert.Equal(t, "users", cfg.UsersCollection)
	assert.Equal(t, "subscribers", cfg.SubscribersCollection)
	assert.Equal(t, 10*time.Second, cfg.DBConnectionTimeout)
	assert.Empty(t, cfg.MongoURI)
	assert.Empty(t, cfg.DatabaseDSN)
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.RunAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "mongodb://json-host:27017", cfg.MongoURI)
	assert.Equal(t, "json_db", cfg.DBName)
	assert.Equal(t, "json_users", cfg.UsersCollection)
	assert.Equal(t, "subscribers", cfg.SubscribersCollection) // not in JSON, default kept
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, 3*time.Second, cfg.DBConnectionTimeout)
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("DB_NAME", "env_db")
	t.Setenv("DB_CONNECTION_TIMEOUT", "5s")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr) // env overrides json
	assert.Equal(t, "env_db", cfg.DBName)
	assert.Equal(t, 5*time.Second, cfg.DBConnectionTimeout)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigPriorityAllSources(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("MONGO_URI", "mongodb://env-host:27017")

	withArgs(t,
		"-a", ":6000",
		"-m", "mongodb://cli-host:27017",
		"-s", "cli_subscribers",
	)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.RunAddr) // CLI > ENV > JSON
	assert.Equal(t, "mongodb://cli-host:27017", cfg.MongoURI)
	assert.Equal(t, "cli_subscribers", cfg.SubscribersCollection)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigFileFromFlag(t *testing.T) {
	envPath := writeTempJSON(t, `{"db_name": "from_env_path"}`)
	flagPath := writeTempJSON(t, `{"db_name": "from_flag_path"}`)
	t.Setenv("CONFIG", envPath)

	withArgs(t, "-c", flagPath)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "from_flag_path", cfg.DBName)
}

func TestConfigEnvOnly(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":7000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("USERS_COLLECTION", "people")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "people", cfg.UsersCollection)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown log level", env: map[string]string{"LOG_LEVEL": "verbose"}},
		{name: "bad address", env: map[string]string{"SERVER_ADDRESS": "localhost"}},
		{name: "not a mongo uri", env: map[string]string{"MONGO_URI": "postgres://localhost"}},
		{name: "bad timeout", env: map[string]string{"DB_CONNECTION_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			_, err := New(WithDisableFlagsParsing(true))
			assert.Error(t, err)
		})
	}
}

func TestConfigBrokenJSON(t *testing.T) {
	t.Setenv("CONFIG", writeTempJSON(t, `{"server_address":`))

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestConfigEmptyConfigFlag(t *testing.T) {
	withArgs(t, "-c", "")

	_, err := New()
	assert.ErrorIs(t, err, ErrEmptyConfigPath)
}
