// Package gemini talks to the Gemini generateContent REST endpoint for
// product identification, best-frame selection, segmentation and image
// synthesis.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kiranshivaraju/studioshots/internal/ai"
	"github.com/kiranshivaraju/studioshots/internal/config"
	"github.com/kiranshivaraju/studioshots/pkg/models"
)

const providerName = "gemini"

// Provider implements models.VisionProvider and models.ImageSynthesizer.
type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	imageModel string
	client     *http.Client
}

// NewProvider creates a Gemini provider from config.
func NewProvider(cfg config.GeminiConfig, timeout time.Duration) *Provider {
	return &Provider{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
		client:     &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) IdentifyProducts(ctx context.Context, frames []models.Image) (string, error) {
	parts := []part{{Text: identifyPrompt}}
	for _, f := range frames {
		parts = append(parts, imagePart(f))
	}
	resp, err := p.generate(ctx, p.model, parts, generationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      0.4,
	})
	if err != nil {
		return "", err
	}
	return resp.text(), nil
}

func (p *Provider) SelectBestFrame(ctx context.Context, frames []models.Image, product string) (string, error) {
	parts := []part{{Text: fmt.Sprintf(bestFramePrompt, product, len(frames))}}
	for i, f := range frames {
		parts = append(parts, part{Text: fmt.Sprintf("--- Frame %d ---", i)}, imagePart(f))
	}
	resp, err := p.generate(ctx, p.model, parts, generationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      0.3,
	})
	if err != nil {
		return "", err
	}
	return resp.text(), nil
}

func (p *Provider) Segment(ctx context.Context, frame models.Image, product string) (string, error) {
	parts := []part{imagePart(frame), {Text: fmt.Sprintf(segmentPrompt, product)}}
	resp, err := p.generate(ctx, p.model, parts, generationConfig{
		Temperature:     0.2,
		MaxOutputTokens: 8192,
		ThinkingConfig:  &thinkingConfig{ThinkingBudget: 0},
	})
	if err != nil {
		return "", err
	}
	return resp.text(), nil
}

// Enhance flattens the cutout onto white and asks the image model to place it
// on style. A reply with no inline image returns (nil, nil).
func (p *Provider) Enhance(ctx context.Context, cutout models.Image, product, style string) ([]byte, error) {
	flat, err := ai.FlattenOnWhite(cutout)
	if err != nil {
		return nil, err
	}
	parts := []part{imagePart(flat), {Text: fmt.Sprintf(enhancePrompt, product, style)}}
	resp, err := p.generate(ctx, p.imageModel, parts, generationConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, err
	}
	return resp.image()
}

func (p *Provider) generate(ctx context.Context, model string, parts []part, gc generationConfig) (*generateResponse, error) {
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: gc,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling gemini request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ai.ClassifyTransportError(providerName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ai.ClassifyTransportError(providerName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ai.NewStatusError(providerName, resp.StatusCode, raw)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decoding gemini response: %v", ai.ErrInvalidResponse, err)
	}
	return &out, nil
}

func imagePart(img models.Image) part {
	mime := img.MIMEType
	if mime == "" {
		mime = http.DetectContentType(img.Data)
	}
	return part{InlineData: &inlineData{
		MIMEType: mime,
		Data:     base64.StdEncoding.EncodeToString(img.Data),
	}}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMIMEType   string          `json:"responseMimeType,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	Temperature        float64         `json:"temperature,omitempty"`
	MaxOutputTokens    int             `json:"maxOutputTokens,omitempty"`
	ThinkingConfig     *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func (r *generateResponse) image() ([]byte, error) {
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := ai.DecodeBase64Image(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: decoding inline image: %v", ai.ErrInvalidResponse, err)
			}
			return data, nil
		}
	}
	return nil, nil
}

// Compile-time checks.
var (
	_ models.VisionProvider   = (*Provider)(nil)
	_ models.ImageSynthesizer = (*Provider)(nil)
)
