package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/bannergrab/models"
)

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T, maxEntries int, ttl time.Duration) (*Cache, *clock) {
	t.Helper()
	c := New(maxEntries, ttl)
	t.Cleanup(c.Stop)
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clk.now
	return c, clk
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("https://a.com", "fp", ""), Key("https://a.com", "fp", ""))
	assert.NotEqual(t, Key("https://a.com", "fp", ""), Key("https://a.com", "other", ""))
	assert.NotEqual(t, Key("https://a.com", "", ""), Key("https://b.com", "", ""))
	assert.NotEqual(t, Key("https://a.com", "fp", "run1"), Key("https://a.com", "fp", "run2"))
}

func TestGetSet(t *testing.T) {
	c, clk := newTestCache(t, 10, time.Hour)
	key := Key("https://shop.example", "", "")

	_, hit := c.Get(key, 60_000)
	assert.False(t, hit)

	c.Set(key, &models.BannerResponse{Success: true, FolderName: "run1"})
	clk.advance(30 * time.Second)

	got, hit := c.Get(key, 60_000)
	require.True(t, hit)
	assert.Equal(t, "run1", got.FolderName)

	// Callers may mutate what they get back.
	got.CacheStatus = "hit"
	again, _ := c.Get(key, 60_000)
	assert.Empty(t, again.CacheStatus)
}

func TestGet_MaxAge(t *testing.T) {
	c, clk := newTestCache(t, 10, time.Hour)
	c.Set("k", &models.BannerResponse{Success: true})
	clk.advance(2 * time.Second)

	_, hit := c.Get("k", 1000)
	assert.False(t, hit, "older than max_age")

	_, hit = c.Get("k", 0)
	assert.False(t, hit, "max_age 0 disables lookups")

	_, hit = c.Get("k", 5000)
	assert.True(t, hit)
}

func TestGet_TTL(t *testing.T) {
	c, clk := newTestCache(t, 10, time.Minute)
	c.Set("k", &models.BannerResponse{Success: true})
	clk.advance(2 * time.Minute)

	_, hit := c.Get("k", int(time.Hour/time.Millisecond))
	assert.False(t, hit)

	c.evictExpired()
	assert.Equal(t, 0, c.Len())
}

func TestSet_EvictsOldest(t *testing.T) {
	c, clk := newTestCache(t, 2, time.Hour)
	c.Set("a", &models.BannerResponse{FolderName: "a"})
	clk.advance(time.Second)
	c.Set("b", &models.BannerResponse{FolderName: "b"})
	clk.advance(time.Second)
	c.Set("c", &models.BannerResponse{FolderName: "c"})

	assert.Equal(t, 2, c.Len())
	_, hit := c.Get("a", 60_000)
	assert.False(t, hit)
	_, hit = c.Get("c", 60_000)
	assert.True(t, hit)
}

func TestStop_Idempotent(t *testing.T) {
	c := New(1, time.Minute)
	c.Stop()
	c.Stop()
}

func TestSweepInterval(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{5 * time.Nanosecond, time.Second},
		{6 * time.Second, time.Second},
		{time.Minute, 5 * time.Second},
		{24 * time.Hour, 5 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sweepInterval(tt.ttl), "ttl %s", tt.ttl)
	}
}

func TestNew_TinyTTL(t *testing.T) {
	c := New(10, 5*time.Nanosecond)
	c.Stop()
}
