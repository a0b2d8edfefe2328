package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	redis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leeforge/adminsite/errors"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "ed", "site-theme")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "ed", "site-theme", "dark"))
	require.NoError(t, s.Set(ctx, "ed", "refresh", "30"))
	require.NoError(t, s.Set(ctx, "ann", "site-theme", "light"))

	v, ok, err := s.Get(ctx, "ed", "site-theme")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "dark", v)

	all, err := s.All(ctx, "ed")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"site-theme": "dark", "refresh": "30"}, all)

	require.NoError(t, s.Delete(ctx, "ed", "refresh"))
	require.NoError(t, s.Delete(ctx, "nobody", "refresh"))
	all, err = s.All(ctx, "ed")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"site-theme": "dark"}, all)

	all, err = s.All(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	exerciseStore(t, s)
	require.NoError(t, s.Close())
}

func TestBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	s, err := OpenBolt(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	// Values survive reopening.
	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(context.Background(), "ann", "site-theme")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "light", v)
}

func TestOpenSelectsDriver(t *testing.T) {
	s, err := Open(context.Background(), Config{})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)

	s, err = Open(context.Background(), Config{Driver: DriverBolt, Bolt: BoltConfig{Path: filepath.Join(t.TempDir(), "a.db")}})
	require.NoError(t, err)
	require.IsType(t, &Bolt{}, s)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), Config{Driver: "etcd"})
	require.True(t, errors.Is(err, apperrors.ErrImproperlyConfigured))
}

func TestRedisConfigLogFieldsRedactsPassword(t *testing.T) {
	cfg := RedisConfig{Host: "127.0.0.1", Port: "6379", Password: "super-secret", DB: 2}
	fields := cfg.LogFields()
	if strings.Contains(fields, cfg.Password) {
		t.Fatalf("log fields leak password: %s", fields)
	}
	if !strings.Contains(fields, "password=[REDACTED]") {
		t.Fatalf("missing redaction marker: %s", fields)
	}

	cfg.Password = ""
	if !strings.Contains(cfg.LogFields(), "password=<empty>") {
		t.Fatalf("empty password not marked: %s", cfg.LogFields())
	}
}

func TestRedisIntegration(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("REDIS_TEST_ADDR"))
	if addr == "" {
		t.Skip("set REDIS_TEST_ADDR to run redis integration tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	prefix := "adminsite-test:" + t.Name()
	s := NewRedisWithClient(client, prefix)

	ctx := context.Background()
	t.Cleanup(func() {
		_ = client.Del(ctx, prefix+":ed", prefix+":ann").Err()
		_ = s.Close()
	})
	exerciseStore(t, s)
}
