package blockguard

import (
	"context"
	"math/rand"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRandomTTLStaysInBand(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		ttl := RandomTTL(rng)
		assert.GreaterOrEqual(t, ttl, 60*time.Minute)
		assert.Less(t, ttl, 120*time.Minute)
	}
}

func TestMemoryFlagWidensNeverShrinks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	f := NewMemoryFlag().WithClock(func() time.Time { return now })

	first, err := f.Raise(ctx, SourceContent, 90*time.Minute)
	require.NoError(t, err)

	// A narrower raise from the other producer must not pull the deadline in.
	second, err := f.Raise(ctx, SourceTransport, 60*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, first.Until, second.Until)
	assert.Equal(t, SourceContent, second.Source, "the standing block keeps its attribution")

	// A wider raise extends it.
	third, err := f.Raise(ctx, SourceTransport, 110*time.Minute)
	require.NoError(t, err)
	assert.True(t, third.Until.After(first.Until))
}

func TestMemoryFlagExpires(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	f := NewMemoryFlag().WithClock(func() time.Time { return now })

	_, err := f.Raise(ctx, SourceContent, time.Hour)
	require.NoError(t, err)

	s, err := f.Status(ctx)
	require.NoError(t, err)
	assert.True(t, s.Blocked)

	now = now.Add(time.Hour + time.Second)
	s, err = f.Status(ctx)
	require.NoError(t, err)
	assert.False(t, s.Blocked, "an expired flag reads as lowered")
}

func TestFileFlagSurvivesRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	first, err := NewFileFlag(dir)
	require.NoError(t, err)
	raised, err := first.Raise(ctx, SourceTransport, 90*time.Minute)
	require.NoError(t, err)

	second, err := NewFileFlag(dir)
	require.NoError(t, err)
	s, err := second.Status(ctx)
	require.NoError(t, err)
	require.True(t, s.Blocked)
	assert.Equal(t, raised.Until.Unix(), s.Until.Unix())
	assert.Equal(t, SourceTransport, s.Source)

	require.NoError(t, second.Release(ctx))
	require.NoError(t, second.Release(ctx), "release is idempotent")
	s, err = second.Status(ctx)
	require.NoError(t, err)
	assert.False(t, s.Blocked)
}

func TestScanHTMLLocales(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		html    string
		blocked bool
	}{
		{"turkish challenge with diacritics",
			`<html><body><h1>Robot olmadığınızı doğrulayın</h1></body></html>`, true},
		{"turkish access denied uppercase",
			`<html><body>ERİŞİM ENGELLENDİ</body></html>`, true},
		{"english rate limit",
			`<html><body><p>Too many requests. Try again later.</p></body></html>`, true},
		{"challenge in title only",
			`<html><head><title>Attention Required!</title></head><body></body></html>`, true},
		{"ordinary listing page",
			`<html><body><h1>Satılık Daire</h1><p>250.000 TL</p></body></html>`, false},
		{"phrase inside listing description must still match",
			`<html><body><p>captcha</p></body></html>`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			phrase, blocked := ScanHTML(tc.html)
			assert.Equal(t, tc.blocked, blocked)
			if tc.blocked {
				assert.NotEmpty(t, phrase)
			}
		})
	}
}

func TestTransportObserver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newObserver := func() (*TransportObserver, *MemoryFlag) {
		flag := NewMemoryFlag()
		return NewTransportObserver(flag, rand.New(rand.NewSource(1)), zap.NewNop()), flag
	}

	t.Run("throttle status raises", func(t *testing.T) {
		obs, flag := newObserver()
		raised := obs.Observe(ctx, http.StatusTooManyRequests, "https://site.example/ilan/x-11111111/detay")
		require.True(t, raised)
		s, err := flag.Status(ctx)
		require.NoError(t, err)
		assert.True(t, s.Blocked)
		assert.Equal(t, SourceTransport, s.Source)
	})

	t.Run("challenge redirect raises", func(t *testing.T) {
		obs, flag := newObserver()
		raised := obs.Observe(ctx, http.StatusOK, "https://site.example/verify?return=/satilik")
		require.True(t, raised)
		s, err := flag.Status(ctx)
		require.NoError(t, err)
		assert.True(t, s.Blocked)
	})

	t.Run("ordinary response does not raise", func(t *testing.T) {
		obs, flag := newObserver()
		raised := obs.Observe(ctx, http.StatusOK, "https://site.example/ilan/x-11111111/detay")
		require.False(t, raised)
		s, err := flag.Status(ctx)
		require.NoError(t, err)
		assert.False(t, s.Blocked)
	})
}
