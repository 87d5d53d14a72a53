package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccept(t *testing.T) {
	t.Parallel()

	accepted, err := Accept(Job{AnchorURL: "https://site.example/satilik"})
	require.NoError(t, err)
	assert.NotEmpty(t, accepted.ID)
	assert.Equal(t, defaultMaxItems, accepted.MaxItems)
	assert.Positive(t, accepted.Humanize.ReadingSpeedWPM, "pacing defaults are filled on acceptance")

	t.Run("explicit id kept", func(t *testing.T) {
		accepted, err := Accept(Job{ID: "run-7", AnchorURL: "https://site.example/satilik"})
		require.NoError(t, err)
		assert.Equal(t, "run-7", accepted.ID)
	})

	t.Run("rejections", func(t *testing.T) {
		_, err := Accept(Job{})
		assert.Error(t, err)
		_, err = Accept(Job{AnchorURL: "ftp://site.example/x"})
		assert.Error(t, err)
		_, err = Accept(Job{AnchorURL: "https://site.example", MaxItems: -1})
		assert.Error(t, err)
	})
}
