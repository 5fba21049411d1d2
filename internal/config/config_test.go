package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "savestash.yml", `version: "1.0"
profile: idle
store:
  redis_url: redis://redis.internal:6380/2
server:
  listen: 0.0.0.0:9000
capture:
  fetch_meta: true
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "idle", config.Profile)
	assert.Equal(t, "redis://redis.internal:6380/2", config.Store.RedisURL)
	assert.Equal(t, "0.0.0.0:9000", config.Server.Listen)
	assert.True(t, config.Capture.FetchMeta)
	assert.Equal(t, "redis:7-alpine", config.Backend.Image)
	assert.Equal(t, 6379, config.Backend.Port)

	opts, err := config.RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "savestash.yml", `version: "1.0"`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/savestash.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "savestash.yml", `version: "1.0"
store:
  - this is invalid
    yaml syntax
`)

	config, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"unsupported version", func(c *Config) { c.Version = "2.0" }, "unsupported version: 2.0"},
		{"profile with colon", func(c *Config) { c.Profile = "a:b" }, "profile"},
		{"bad redis url", func(c *Config) { c.Store.RedisURL = "http://localhost" }, "store.redis_url"},
		{"listen without port", func(c *Config) { c.Server.Listen = "localhost" }, "server.listen"},
		{"port out of range", func(c *Config) { c.Backend.Port = 70000 }, "backend.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvRedisURL: "redis://other:6379",
		EnvProfile:  "work",
		EnvListen:   "",
	}
	c := Default()
	c.ApplyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	assert.Equal(t, "redis://other:6379", c.Store.RedisURL)
	assert.Equal(t, "work", c.Profile)
	assert.Equal(t, defaultListen, c.Server.Listen, "empty variables are ignored")
}

func TestResolve_NoFiles(t *testing.T) {
	unsetEnv(t, EnvRedisURL)
	unsetEnv(t, EnvProfile)
	unsetEnv(t, EnvListen)
	dir := t.TempDir()

	config, err := Resolve(filepath.Join(dir, "savestash.yml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
}

func TestResolve_Precedence(t *testing.T) {
	unsetEnv(t, EnvRedisURL)
	unsetEnv(t, EnvListen)
	t.Setenv(EnvProfile, "from-env")
	dir := t.TempDir()

	path := writeFile(t, dir, "savestash.yml", `version: "1.0"
profile: from-file
server:
  listen: 127.0.0.1:1111
`)
	envFile := writeFile(t, dir, ".env", "SAVESTASH_PROFILE=from-dotenv\nSAVESTASH_REDIS_URL=redis://dotenv:6379\n")

	config, err := Resolve(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-env", config.Profile, "process environment beats .env")
	assert.Equal(t, "redis://dotenv:6379", config.Store.RedisURL, ".env beats the file")
	assert.Equal(t, "127.0.0.1:1111", config.Server.Listen)
}

func TestResolve_InvalidOverride(t *testing.T) {
	unsetEnv(t, EnvRedisURL)
	unsetEnv(t, EnvListen)
	t.Setenv(EnvProfile, "bad profile")
	dir := t.TempDir()

	_, err := Resolve(filepath.Join(dir, "savestash.yml"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "savestash.yml")

	require.NoError(t, Default().Write(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), loaded)

	err = Default().Write(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
