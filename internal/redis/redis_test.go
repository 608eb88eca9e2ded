package redis

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impify/impify/internal/config"
)

func configFor(t *testing.T, addr string) config.RedisConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return config.RedisConfig{Host: host, Port: port}
}

func TestOptions(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "cache", Port: 6380, Password: "pw", DB: 2, PoolSize: 40, DialTimeout: time.Second})
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 40, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts = Options(config.RedisConfig{Host: "cache", Port: 6379})
	assert.Zero(t, opts.PoolSize)
	assert.Zero(t, opts.DialTimeout)
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), configFor(t, mr.Addr()))
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, HealthCheck(context.Background(), client))

	mr.Close()
	assert.Error(t, HealthCheck(context.Background(), client))
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := configFor(t, mr.Addr())
	cfg.DialTimeout = 200 * time.Millisecond
	mr.Close()

	_, err := NewClient(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pinging redis")
}
