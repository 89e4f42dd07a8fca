package extract

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var youtubeIDRe = regexp.MustCompile(`(?:v=|youtu\.be/|/shorts/)([A-Za-z0-9_-]{6,})`)

const timedTextEndpoint = "https://video.google.com/timedtext"

type transcript struct {
	Texts []string `xml:"text"`
}

// FromYouTube fetches the English caption track for the video referenced by
// rawURL and joins it into one transcript string.
func (s *Service) FromYouTube(ctx context.Context, rawURL string) (string, error) {
	m := youtubeIDRe.FindStringSubmatch(rawURL)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	videoID := m[1]

	endpoint := fmt.Sprintf("%s?lang=en&v=%s", timedTextEndpoint, url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build transcript request: %v", ErrExtraction, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch transcript for %s: %v", ErrExtraction, videoID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: transcript fetch for %s returned %d", ErrExtraction, videoID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read transcript for %s: %v", ErrExtraction, videoID, err)
	}
	var tr transcript
	if err := xml.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("%w: parse transcript for %s: %v", ErrExtraction, videoID, err)
	}

	parts := make([]string, 0, len(tr.Texts))
	for _, t := range tr.Texts {
		t = strings.TrimSpace(html.UnescapeString(t))
		if t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no transcript available for %s", ErrExtraction, videoID)
	}
	return strings.Join(parts, " "), nil
}

// VideoID exposes the id parser for validation without a network call.
func VideoID(rawURL string) (string, bool) {
	m := youtubeIDRe.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}
