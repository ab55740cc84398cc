package ytvideodata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVideoId(t *testing.T) {
	cases := []struct {
		url     string
		videoId string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/abc123def45", "abc123def45"},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}

	for _, c := range cases {
		videoId, err := ExtractVideoId(c.url)
		require.NoError(t, err, c.url)
		assert.Equal(t, c.videoId, videoId, c.url)
	}
}

func TestExtractVideoIdInvalid(t *testing.T) {
	for _, url := range []string{"", "   ", "https://youtu.be/"} {
		_, err := ExtractVideoId(url)
		assert.ErrorIs(t, err, ErrInvalidVideoURL, url)
	}
}
