package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"alalim-backend/internal/audio"
	"alalim-backend/internal/models"
)

// ChatTurn is one message of chat context as sent to the model.
type ChatTurn struct {
	Role     models.ChatRole
	Text     string
	Image    []byte
	MIMEType string
}

// ChatReply is the model's answer and the web sources that grounded it.
type ChatReply struct {
	Text    string
	Sources []string
}

// LiveEvent is one message received from a live audio session.
type LiveEvent struct {
	Audio        []byte
	MIMEType     string
	Interrupted  bool
	TurnComplete bool
}

// LiveSession is an open duplex audio conversation.
type LiveSession interface {
	SendAudio(pcm []byte, mimeType string) error
	Receive() (*LiveEvent, error)
	Close() error
}

// Assistant wraps the google.golang.org/genai client for the features the
// older SDK lacks: search grounding, thinking budgets, speech synthesis,
// image generation and the live audio API.
type Assistant struct {
	client *genai.Client
}

func NewAssistant(ctx context.Context, apiKey string) (*Assistant, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Assistant{client: client}, nil
}

func chatContents(history []ChatTurn, turn ChatTurn) []*genai.Content {
	turns := make([]ChatTurn, 0, len(history)+1)
	turns = append(turns, history...)
	turns = append(turns, turn)

	contents := make([]*genai.Content, 0, len(turns))
	for _, h := range turns {
		role := "user"
		if h.Role == models.RoleModel {
			role = "model"
		}
		parts := make([]*genai.Part, 0, 2)
		if len(h.Image) > 0 {
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: h.Image, MIMEType: h.MIMEType}})
		}
		if h.Text != "" {
			parts = append(parts, &genai.Part{Text: h.Text})
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}

func chatConfig(opts ChatModelOptions, system string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
	}
	if opts.UseSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if opts.Thinking {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](ThinkingBudget)}
	}
	return cfg
}

// Chat sends one turn with its history and returns the reply.
func (a *Assistant) Chat(ctx context.Context, opts ChatModelOptions, system string, history []ChatTurn, turn ChatTurn) (*ChatReply, error) {
	resp, err := a.client.Models.GenerateContent(ctx, opts.Model, chatContents(history, turn), chatConfig(opts, system))
	if err != nil {
		return nil, fmt.Errorf("genai chat error: %w", err)
	}

	reply := &ChatReply{Text: strings.TrimSpace(responseText(resp))}
	if opts.UseSearch {
		reply.Sources = groundingSources(resp)
	}
	return reply, nil
}

// StreamChat streams a reply, calling onDelta for every text fragment, and
// returns the full text.
func (a *Assistant) StreamChat(ctx context.Context, opts ChatModelOptions, system string, history []ChatTurn, turn ChatTurn, onDelta func(string) error) (string, error) {
	var full strings.Builder
	for resp, err := range a.client.Models.GenerateContentStream(ctx, opts.Model, chatContents(history, turn), chatConfig(opts, system)) {
		if err != nil {
			return full.String(), fmt.Errorf("genai stream error: %w", err)
		}
		delta := responseText(resp)
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return full.String(), err
		}
	}
	return strings.TrimSpace(full.String()), nil
}

// Speak synthesizes text and returns raw 16-bit PCM with its sample rate.
func (a *Assistant) Speak(ctx context.Context, text string) ([]byte, int, error) {
	resp, err := a.client.Models.GenerateContent(ctx, ModelTTS,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: text}}}},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: VoiceSpeech},
				},
			},
		},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("genai speech error: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			rate, ok := audio.ParseRate(part.InlineData.MIMEType)
			if !ok {
				rate = audio.OutputSampleRate
			}
			return part.InlineData.Data, rate, nil
		}
	}
	return nil, 0, fmt.Errorf("genai speech returned no audio")
}

var imageModels = map[models.ImageSize]string{
	models.ImageSize1K: "imagen-4.0-fast-generate-001",
	models.ImageSize2K: "imagen-4.0-generate-001",
	models.ImageSize4K: "imagen-4.0-ultra-generate-001",
}

// GenerateImages renders req.Prompt and returns the images base64-encoded.
func (a *Assistant) GenerateImages(ctx context.Context, req models.ImageRequest) ([]models.GeneratedImage, error) {
	model, ok := imageModels[req.Size]
	if !ok {
		model = imageModels[models.ImageSize1K]
	}

	resp, err := a.client.Models.GenerateImages(ctx, model, req.Prompt, &genai.GenerateImagesConfig{
		AspectRatio: string(req.AspectRatio.Rendered()),
	})
	if err != nil {
		return nil, fmt.Errorf("genai image error: %w", err)
	}

	images := make([]models.GeneratedImage, 0, len(resp.GeneratedImages))
	for _, img := range resp.GeneratedImages {
		if img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		mimeType := img.Image.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		images = append(images, models.GeneratedImage{
			Data:     audio.EncodeBase64(img.Image.ImageBytes),
			MIMEType: mimeType,
		})
	}
	return images, nil
}

// ConnectLive opens a live audio conversation in lang.
func (a *Assistant) ConnectLive(ctx context.Context, lang models.Language) (LiveSession, error) {
	session, err := a.client.Live.Connect(ctx, ModelLive, &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: VoiceLive},
			},
		},
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: LiveInstruction(lang)}}},
	})
	if err != nil {
		return nil, fmt.Errorf("genai live connect error: %w", err)
	}
	return &liveSession{session: session}, nil
}

type liveSession struct {
	session *genai.Session
}

func (s *liveSession) SendAudio(pcm []byte, mimeType string) error {
	return s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: pcm, MIMEType: mimeType},
	})
}

func (s *liveSession) Receive() (*LiveEvent, error) {
	msg, err := s.session.Receive()
	if err != nil {
		return nil, err
	}

	ev := &LiveEvent{}
	if sc := msg.ServerContent; sc != nil {
		ev.Interrupted = sc.Interrupted
		ev.TurnComplete = sc.TurnComplete
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					ev.Audio = append(ev.Audio, part.InlineData.Data...)
					ev.MIMEType = part.InlineData.MIMEType
				}
			}
		}
	}
	return ev, nil
}

func (s *liveSession) Close() error {
	return s.session.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Thought {
				continue
			}
			text.WriteString(part.Text)
		}
		break
	}
	return text.String()
}

// groundingSources returns the distinct web URIs that grounded the answer.
func groundingSources(resp *genai.GenerateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}

	seen := make(map[string]bool)
	var sources []string
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		sources = append(sources, chunk.Web.URI)
	}
	if len(sources) == 0 {
		log.Printf("search grounding returned no web sources")
	}
	return sources
}
