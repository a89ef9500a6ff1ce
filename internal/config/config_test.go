package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "index.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.BaseURL)
	assert.Empty(t, cfg.LLM.Model)
	assert.Equal(t, "native", cfg.OCR.Provider)
	assert.Equal(t, "llm", cfg.Entity.Recognizer)
	assert.Equal(t, 2500, cfg.Index.ChunkSize)
	assert.Equal(t, 200, cfg.Index.ChunkOverlap)
	assert.False(t, cfg.Index.IncludeUntagged)
	assert.Equal(t, 20, cfg.Retrieval.PoolSize)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.Equal(t, 8, cfg.Retrieval.FallbackK)
	assert.False(t, cfg.Retrieval.Backfill)
	assert.Equal(t, 30, cfg.Submission.TimeoutSecs)
	assert.Equal(t, "companies.json", cfg.Paths.Registry)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/reports
log:
  level: debug
  format: console
retrieval:
  top_k: 5
  backfill: true
submission:
  team_email: team@example.com
  name: baseline
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/reports", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.True(t, cfg.Retrieval.Backfill)
	assert.Equal(t, "team@example.com", cfg.Submission.TeamEmail)
	assert.Equal(t, "baseline", cfg.Submission.Name)
	// Defaults still apply for unset values
	assert.Equal(t, 8, cfg.Retrieval.FallbackK)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
llm:
  model: deepseek-chat
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("REPORTQA_LLM_MODEL", "deepseek-reasoner")
	t.Setenv("REPORTQA_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "deepseek-reasoner", cfg.LLM.Model)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REPORTQA_LLM_KEY=sk-from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("REPORTQA_LLM_KEY") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-dotenv", cfg.LLM.Key)
}

func TestLoadFromExplicitFile(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "qa.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  top_k: 3\n"), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 20, cfg.Retrieval.PoolSize)
}

func TestLoadFromMissingFile(t *testing.T) {
	chdirTemp(t)
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the defaults Load would produce.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.DatabaseURL = "index.db"
	cfg.LLM.Key = "sk-test"
	cfg.Embed.Provider = "openai"
	cfg.OCR.Provider = "native"
	cfg.Entity.Recognizer = "llm"
	cfg.Index.ChunkSize = 2500
	cfg.Index.ChunkOverlap = 200
	cfg.Index.Workers = 4
	cfg.Retrieval.PoolSize = 20
	cfg.Retrieval.TopK = 10
	cfg.Retrieval.FallbackK = 8
	cfg.Submission.URL = "http://localhost/submit"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_AllModesPass(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"companies", "index", "answer", "serve", "submit"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateAnswer_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""
	cfg.LLM.Key = ""

	err := cfg.Validate("answer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "llm.key is required")
}

func TestValidateCompanies_PatternNeedsNoKey(t *testing.T) {
	cfg := validDefaults()
	cfg.LLM.Key = ""
	cfg.Entity.Recognizer = "pattern"
	assert.NoError(t, cfg.Validate("companies"))

	cfg.Entity.Recognizer = "llm"
	assert.Error(t, cfg.Validate("companies"))
}

func TestValidateIndex_Overlap(t *testing.T) {
	cfg := validDefaults()
	cfg.Index.ChunkOverlap = 2500

	err := cfg.Validate("index")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_overlap")
}

func TestValidateIndex_MistralKey(t *testing.T) {
	cfg := validDefaults()
	cfg.OCR.Provider = "mistral"

	err := cfg.Validate("index")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr.mistral_api_key")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateGeminiEmbedKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Embed.Provider = "gemini"

	err := cfg.Validate("index")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed.key")
}

func TestValidateSubmit_NoURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Submission.URL = ""

	err := cfg.Validate("submit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submission.url is required")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
