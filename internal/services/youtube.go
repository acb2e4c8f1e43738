package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"

	"alalim-backend/internal/models"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxAudioBytes    = 100 << 20
)

type YouTubeService struct {
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ytClient      *yt.Client
}

type timedTextXML struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []textXML `xml:"text"`
}

type textXML struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

func NewYouTubeService() *YouTubeService {
	return &YouTubeService{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ytClient:      &yt.Client{},
	}
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID accepts watch, short, embed and youtu.be links.
func ExtractVideoID(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid YouTube URL")
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com":
		if u.Path == "/watch" {
			id = u.Query().Get("v")
			break
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id = strings.Trim(strings.TrimPrefix(u.Path, prefix), "/")
				break
			}
		}
	default:
		return "", fmt.Errorf("not a YouTube URL")
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("could not find a video id in the URL")
	}
	return id, nil
}

// transcriptLanguages orders caption tracks: the user's language first, then
// English.
func transcriptLanguages(lang models.Language) []string {
	codes := []string{}
	if code := lang.Code(); code != "" && code != "en" {
		codes = append(codes, code)
	}
	return append(codes, "en", "en-US", "en-GB")
}

// GetTranscript joins the captions of a video. Tracks in the user's language
// are tried first, then any track, then the watch page's timedtext feed.
func (s *YouTubeService) GetTranscript(ctx context.Context, videoID string, lang models.Language) (string, error) {
	sources := []struct {
		name  string
		fetch func() (string, error)
	}{
		{"preferred track", func() (string, error) { return s.captionTrack(videoID, transcriptLanguages(lang)) }},
		{"any track", func() (string, error) { return s.captionTrack(videoID, nil) }},
		{"timedtext", func() (string, error) { return s.timedText(ctx, videoID) }},
	}

	var failures []string
	for _, src := range sources {
		text, err := src.fetch()
		if err == nil {
			return text, nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", src.name, err))
	}
	return "", fmt.Errorf("no captions for %s (%s)", videoID, strings.Join(failures, "; "))
}

func (s *YouTubeService) captionTrack(videoID string, languages []string) (string, error) {
	transcript, err := s.transcriptAPI.GetTranscript(videoID, languages)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(transcript.Entries))
	for _, entry := range transcript.Entries {
		if text := strings.TrimSpace(entry.Text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("caption track is empty")
	}
	return strings.Join(parts, " "), nil
}

// get performs a browser-like GET capped at limit bytes.
func (s *YouTubeService) get(ctx context.Context, target string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube returned %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

func (s *YouTubeService) watchPage(ctx context.Context, videoID string) (string, error) {
	body, err := s.get(ctx, "https://www.youtube.com/watch?v="+url.QueryEscape(videoID), 8<<20)
	if err != nil {
		return "", fmt.Errorf("watch page: %w", err)
	}
	return string(body), nil
}

func (s *YouTubeService) timedText(ctx context.Context, videoID string) (string, error) {
	page, err := s.watchPage(ctx, videoID)
	if err != nil {
		return "", err
	}
	captionURL, err := extractCaptionURL(page)
	if err != nil {
		return "", err
	}
	body, err := s.get(ctx, captionURL, 4<<20)
	if err != nil {
		return "", fmt.Errorf("captions: %w", err)
	}
	return parseCaptionsXML(body)
}

var (
	captionTracksPattern   = regexp.MustCompile(`"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	captionRendererPattern = regexp.MustCompile(`"playerCaptionsTracklistRenderer"\s*:\s*\{(?:.*?,)?\s*"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	baseURLPattern         = regexp.MustCompile(`"baseUrl"\s*:\s*"(.*?)"`)
	pageTitlePattern       = regexp.MustCompile(`<title>(.*?) - YouTube</title>`)
)

func extractCaptionURL(pageHTML string) (string, error) {
	matches := captionTracksPattern.FindStringSubmatch(pageHTML)
	if len(matches) < 2 {
		matches = captionRendererPattern.FindStringSubmatch(pageHTML)
		if len(matches) < 2 {
			return "", fmt.Errorf("no captions available for this video")
		}
	}

	urlMatches := baseURLPattern.FindStringSubmatch(matches[1])
	if len(urlMatches) < 2 {
		return "", fmt.Errorf("caption track found but baseUrl missing")
	}

	u := urlMatches[1]
	u = strings.ReplaceAll(u, `\u0026`, "&")
	u = strings.ReplaceAll(u, `\/`, "/")

	return u, nil
}

func parseCaptionsXML(data []byte) (string, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return "", err
	}

	var parts []string
	for _, t := range tt.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Text))
		if text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("captions XML empty")
	}

	return strings.Join(parts, " "), nil
}

// DownloadAudio downloads the best available audio-only stream for a video.
func (s *YouTubeService) DownloadAudio(ctx context.Context, videoID string) ([]byte, string, error) {
	video, err := s.ytClient.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch YouTube video metadata: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, "", fmt.Errorf("no audio formats available")
	}

	best := formats[0]
	for _, f := range formats {
		if f.Bitrate > best.Bitrate {
			best = f
		}
	}

	stream, _, err := s.ytClient.GetStreamContext(ctx, video, &best)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	audioBytes, err := io.ReadAll(io.LimitReader(stream, maxAudioBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read audio stream: %w", err)
	}
	if len(audioBytes) > maxAudioBytes {
		return nil, "", fmt.Errorf("audio stream exceeds %d MB limit", maxAudioBytes>>20)
	}

	mimeType := strings.TrimSpace(strings.Split(best.MimeType, ";")[0])
	if mimeType == "" {
		mimeType = "audio/mp4"
	}

	return audioBytes, mimeType, nil
}

// GetTitle reads the video title from the watch page. Failures return "".
func (s *YouTubeService) GetTitle(ctx context.Context, videoID string) string {
	page, err := s.watchPage(ctx, videoID)
	if err != nil {
		log.Printf("YouTube title lookup failed for %s: %v", videoID, err)
		return ""
	}
	if m := pageTitlePattern.FindStringSubmatch(page); len(m) > 1 {
		return html.UnescapeString(m[1])
	}
	return ""
}
