package models

// MediaAnalysis is the result of an analysis or transcription call. Fallback
// is set when Text is a canned message rather than model output.
type MediaAnalysis struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

type YouTubeAnalysisRequest struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

type SpeechRequest struct {
	Text string `json:"text"`
}

type SpeechResponse struct {
	Audio      string  `json:"audio"` // base64 WAV
	MIMEType   string  `json:"mime_type"`
	SampleRate int     `json:"sample_rate"`
	Duration   float64 `json:"duration_seconds"`
}

type ImageAspectRatio string

var ImageAspectRatios = []ImageAspectRatio{"1:1", "2:3", "3:2", "3:4", "4:3", "9:16", "16:9", "21:9"}

func (a ImageAspectRatio) Valid() bool {
	for _, r := range ImageAspectRatios {
		if r == a {
			return true
		}
	}
	return false
}

// Rendered is the ratio the image models actually produce for a; the
// portrait, landscape and ultrawide extremes fall back to the nearest one.
func (a ImageAspectRatio) Rendered() ImageAspectRatio {
	switch a {
	case "2:3":
		return "3:4"
	case "3:2":
		return "4:3"
	case "21:9":
		return "16:9"
	}
	return a
}

type ImageSize string

const (
	ImageSize1K ImageSize = "1K"
	ImageSize2K ImageSize = "2K"
	ImageSize4K ImageSize = "4K"
)

func (s ImageSize) Valid() bool {
	return s == ImageSize1K || s == ImageSize2K || s == ImageSize4K
}

type ImageRequest struct {
	Prompt      string           `json:"prompt"`
	AspectRatio ImageAspectRatio `json:"aspect_ratio"`
	Size        ImageSize        `json:"size"`
}

type GeneratedImage struct {
	Data     string `json:"data"` // base64
	MIMEType string `json:"mime_type"`
}

type ImageResponse struct {
	Images []GeneratedImage `json:"images"`

	// AspectRatio is the ratio rendered, which may differ from the request.
	AspectRatio ImageAspectRatio `json:"aspect_ratio"`
}
