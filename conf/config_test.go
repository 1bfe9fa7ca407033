package conf

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	assert := assert.New(t)

	os.Setenv("INSTANCE_NAME", "collab")
	os.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := LoadConfig("..")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("collab", cfg.Name)
	assert.Equal("collab.linyc.idv.tw", cfg.BaseURL)
	assert.Equal(10*time.Second, cfg.JWT.Leeway)

	assert.True(cfg.Transports.HTTP.Enabled)
	assert.Equal(8080, cfg.Transports.HTTP.Internal.Port)
	assert.Equal("http://localhost:8080", cfg.Transports.HTTP.Internal.URL())
	assert.Equal([]string{"collab.linyc.idv.tw", "localhost:*"}, cfg.Transports.HTTP.AllowedOrigins)

	assert.Equal(BadgerDB, cfg.Persistence.Driver)
	assert.Equal("collab", cfg.Persistence.Name)
	assert.Equal(NATS, cfg.EventBus.Provider)

	assert.Equal("workspaces", cfg.Collections.Workspaces)
	assert.Equal("code_sessions", cfg.Collections.Sessions)
	assert.Equal("merge_requests", cfg.Collections.MergeRequests)

	assert.Equal(1000*time.Millisecond, cfg.Sync.SaveDelay)
	assert.Equal(1500*time.Millisecond, cfg.Sync.SuggestDelay)
	assert.False(cfg.Sync.CursorBroadcast)
	assert.Equal(3, cfg.Sync.MaxRetries)

	assert.Equal("test-key", cfg.AI.APIKey)
	assert.Equal(30*time.Second, cfg.AI.Timeout)
}

func TestParseDrivers(t *testing.T) {
	assert := assert.New(t)

	driver, err := ParsePersistenceDriver("sqlite")
	assert.NoError(err)
	assert.Equal(SQLite, driver)

	_, err = ParsePersistenceDriver("mongo")
	assert.Error(err)

	provider, err := ParseTransportProvider("redis")
	assert.NoError(err)
	assert.Equal(Redis, provider)
	assert.Equal("redis", provider.String())
}
