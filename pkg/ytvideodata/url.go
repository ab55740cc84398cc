package ytvideodata

import (
	"errors"
	"strings"
)

var ErrInvalidVideoURL = errors.New("invalid video url")

// ExtractVideoId pulls the video id out of the common youtube url forms.
// A bare id is accepted as-is.
func ExtractVideoId(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", ErrInvalidVideoURL
	}

	videoId := url
	switch {
	case strings.Contains(url, "youtube.com/watch?v="):
		videoId = strings.SplitN(url, "v=", 2)[1]
	case strings.Contains(url, "youtu.be/"):
		videoId = strings.SplitN(url, "youtu.be/", 2)[1]
	case strings.Contains(url, "youtube.com/shorts/"):
		videoId = strings.SplitN(url, "shorts/", 2)[1]
	}

	if i := strings.IndexAny(videoId, "&?/"); i != -1 {
		videoId = videoId[:i]
	}

	if videoId == "" {
		return "", ErrInvalidVideoURL
	}

	return videoId, nil
}
