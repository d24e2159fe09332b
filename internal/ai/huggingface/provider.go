// Package huggingface renders studio shots through the Hugging Face
// inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/studioshots/internal/ai"
	"github.com/kiranshivaraju/studioshots/internal/config"
	"github.com/kiranshivaraju/studioshots/pkg/models"
)

const providerName = "huggingface"

// Provider implements models.ImageSynthesizer.
type Provider struct {
	token   string
	baseURL string
	model   string
	client  *http.Client
}

// NewProvider creates a Hugging Face provider from config.
func NewProvider(cfg config.HuggingFaceConfig, timeout time.Duration) *Provider {
	return &Provider{
		token:   cfg.APIToken,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return providerName }

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	Prompt string `json:"prompt"`
}

// Enhance posts the flattened cutout with a style prompt and returns the
// image bytes. A 2xx reply that is not an image returns (nil, nil).
func (p *Provider) Enhance(ctx context.Context, cutout models.Image, product, style string) ([]byte, error) {
	flat, err := ai.FlattenOnWhite(cutout)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(inferenceRequest{
		Inputs:     base64.StdEncoding.EncodeToString(flat.Data),
		Parameters: inferenceParameters{Prompt: prompt(product, style)},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling inference request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s", p.baseURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")
	req.Header.Set("Authorization", "Bearer "+p.token)

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

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(raw)
	}
	if !strings.HasPrefix(ct, "image/") || len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

func prompt(product, style string) string {
	return fmt.Sprintf("Professional product photography of %s on %s, studio lighting, "+
		"soft natural shadows, sharp focus, high-end e-commerce catalog photo", product, style)
}

// Compile-time check that Provider implements ImageSynthesizer.
var _ models.ImageSynthesizer = (*Provider)(nil)
