package abuse

import (
	"context"
	"testing"
	"time"

	"communityd/internal/kvstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_DeniesSecondRequestInWindow(t *testing.T) {
	limiter := NewLimiter(kvstore.NewMemoryStore())
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "/api/ask", "203.0.113.9", 1, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "/api/ask", "203.0.113.9", 1, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestLimiter_WindowExpiryAllowsAgain(t *testing.T) {
	limiter := NewLimiter(kvstore.NewMemoryStore())
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "/api/ask", "203.0.113.9", 1, 30*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "/api/ask", "203.0.113.9", 1, 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(50 * time.Millisecond)

	allowed, err = limiter.Allow(ctx, "/api/ask", "203.0.113.9", 1, 30*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed, "counter should be gone after the window elapses")
}

func TestLimiter_KeysAreScopedPerEndpointAndIP(t *testing.T) {
	limiter := NewLimiter(kvstore.NewMemoryStore())
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "/api/ask", "203.0.113.9", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Different endpoint, same IP
	allowed, err = limiter.Allow(ctx, "/api/community/posts", "203.0.113.9", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Same endpoint, different IP
	allowed, err = limiter.Allow(ctx, "/api/ask", "198.51.100.4", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiter_DenialDoesNotResetWindow(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	limiter := NewLimiter(kv)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "/api/ask", "203.0.113.9", 1, 40*time.Millisecond)
	require.NoError(t, err)

	// A denied request must not extend the counter's life.
	time.Sleep(25 * time.Millisecond)
	allowed, err := limiter.Allow(ctx, "/api/ask", "203.0.113.9", 1, 40*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(25 * time.Millisecond)
	allowed, err = limiter.Allow(ctx, "/api/ask", "203.0.113.9", 1, 40*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed, "window runs from the first write, not the last denial")
}

func TestDetector_DeniesIdenticalContent(t *testing.T) {
	detector := NewDetector(kvstore.NewMemoryStore())
	ctx := context.Background()

	content := "en\nHello\nThis is my first post\nalice"

	allowed, err := detector.Allow(ctx, "/api/community/posts", "203.0.113.9", content, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = detector.Allow(ctx, "/api/community/posts", "203.0.113.9", content, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDetector_SingleCharacterDifferenceAllowed(t *testing.T) {
	detector := NewDetector(kvstore.NewMemoryStore())
	ctx := context.Background()

	allowed, err := detector.Allow(ctx, "/api/community/posts", "203.0.113.9", "en\nHello\nbody text\n", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = detector.Allow(ctx, "/api/community/posts", "203.0.113.9", "en\nHello\nbody texT\n", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "any differing byte is a different fingerprint")
}

func TestDetector_FingerprintOutlivesRateWindow(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	limiter := NewLimiter(kv)
	detector := NewDetector(kv)
	ctx := context.Background()

	content := "en\nsubject\nbody body body\n"

	allowed, err := limiter.Allow(ctx, "/api/ask", "203.0.113.9", 1, 20*time.Millisecond)
	require.NoError(t, err)
	require.True(t, allowed)
	allowed, err = detector.Allow(ctx, "/api/ask", "203.0.113.9", content, 500*time.Millisecond)
	require.NoError(t, err)
	require.True(t, allowed)

	// Rate window has reset, the fingerprint has not.
	time.Sleep(40 * time.Millisecond)

	allowed, err = limiter.Allow(ctx, "/api/ask", "203.0.113.9", 1, 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, err = detector.Allow(ctx, "/api/ask", "203.0.113.9", content, 500*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestSHA256Hex(t *testing.T) {
	// Known digest of the empty string
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		SHA256Hex(""))
	assert.NotEqual(t, SHA256Hex("a"), SHA256Hex("b"))
}

func TestCountURLs(t *testing.T) {
	assert.Equal(t, 0, CountURLs("no links here"))
	assert.Equal(t, 1, CountURLs("see https://example.com for details"))
	assert.Equal(t, 2, CountURLs("http://a.example and HTTPS://b.example/path"))
}

func TestCountURLsInFields(t *testing.T) {
	fields := []string{
		"title with https://one.example",
		"body with https://two.example and https://three.example",
	}
	assert.Equal(t, 3, CountURLsInFields(fields))
	assert.Equal(t, 0, CountURLsInFields(nil))
}

func TestIsLengthBetween(t *testing.T) {
	assert.False(t, IsLengthBetween("ab", 3, 120))
	assert.True(t, IsLengthBetween("abc", 3, 120))
	assert.True(t, IsLengthBetween("长度三", 3, 120))

	long := make([]byte, 0, 121)
	for i := 0; i < 121; i++ {
		long = append(long, 'x')
	}
	assert.True(t, IsLengthBetween(string(long[:120]), 3, 120))
	assert.False(t, IsLengthBetween(string(long), 3, 120))
}
