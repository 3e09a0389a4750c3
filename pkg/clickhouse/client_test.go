package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "glucoplot",
		User:        "default",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
		MaxExecTime: 30 * time.Second,
		AsyncInsert: true,
	})
	assert.Equal(t, "clickhouse://default:p%40ss@ch:9000/glucoplot?async_insert=1&dial_timeout=5s&max_execution_time=30", dsn)
}

func TestBuildDSNHTTP(t *testing.T) {
	dsn := BuildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "db", User: "u", UseHTTP: true, AsyncInsert: true, WaitForAsync: true})
	assert.Equal(t, "http://u:@ch:8123/db?async_insert=1&wait_for_async_insert=1", dsn)
}

func TestClientConfigOptions(t *testing.T) {
	cfg := defaultClientConfig()
	for _, opt := range []ClientOption{
		WithAddr("ch", 0),
		WithPool(4, 2, 0),
		WithTimeouts(0, time.Second, 0),
	} {
		opt(&cfg)
	}
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime)
	assert.NoError(t, cfg.Validate())

	cfg.MaxIdleConns = 8
	assert.Error(t, cfg.Validate())

	bad := defaultClientConfig()
	assert.EqualError(t, bad.Validate(), "clickhouse: host is required")
}
