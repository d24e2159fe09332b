package ai

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kiranshivaraju/studioshots/pkg/models"
)

var (
	productsSchema = jsonschema.MustCompileString("products.json", `{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"description": {"type": "string"}
			}
		}
	}`)

	bestFrameSchema = jsonschema.MustCompileString("best_frame.json", `{
		"type": "object",
		"required": ["best_frame_index"],
		"properties": {
			"best_frame_index": {"type": "integer"},
			"reason": {"type": "string"}
		}
	}`)

	segmentationSchema = jsonschema.MustCompileString("segmentation.json", `{
		"type": "object",
		"required": ["mask"],
		"properties": {
			"mask": {"type": "string", "minLength": 1},
			"label": {"type": "string"},
			"box_2d": {"type": "array", "items": {"type": "number"}}
		}
	}`)
)

// Segmentation is a decoded segmentation reply.
type Segmentation struct {
	Mask  []byte
	Box   []int
	Label string
}

// StripCodeFence removes an optional ``` or ```json wrapper around a reply.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseProducts decodes a product list. Items that fail validation and
// repeated names are dropped; an empty or unparseable reply yields
// ErrInvalidResponse.
func ParseProducts(raw string) ([]models.Product, error) {
	doc, err := decode(StripCodeFence(raw))
	if err != nil {
		return nil, err
	}

	if err := productsSchema.Validate(doc); err != nil {
		cleaned, dropped := sanitizeProducts(doc)
		if vErr := productsSchema.Validate(cleaned); vErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		slog.Warn("ai.products.lenient_sanitize_applied", "dropped", dropped)
		doc = cleaned
	}

	items, _ := doc.([]any)
	out := make([]models.Product, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		m := it.(map[string]any)
		name := strings.TrimSpace(m["name"].(string))
		// names key every per-product map, so the first sighting wins
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		desc, _ := m["description"].(string)
		out = append(out, models.Product{Name: name, Description: strings.TrimSpace(desc)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no products", ErrInvalidResponse)
	}
	return out, nil
}

// sanitizeProducts keeps only objects with a non-empty string name and
// coerces a non-string description to empty.
func sanitizeProducts(doc any) (any, int) {
	items, ok := doc.([]any)
	if !ok {
		// a lone object is treated as a one-element list
		if m, isObj := doc.(map[string]any); isObj {
			items = []any{m}
		} else {
			return doc, 0
		}
	}

	kept := make([]any, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name, ok := m["name"].(string)
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		desc, _ := m["description"].(string)
		kept = append(kept, map[string]any{"name": name, "description": desc})
	}
	return kept, len(items) - len(kept)
}

// ParseBestFrameIndex decodes a best-frame reply for n candidate frames.
// An index outside [0, n) becomes 0.
func ParseBestFrameIndex(raw string, n int) (int, error) {
	doc, err := decode(StripCodeFence(raw))
	if err != nil {
		return 0, err
	}
	if err := bestFrameSchema.Validate(doc); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	num := doc.(map[string]any)["best_frame_index"].(json.Number)
	f, err := num.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	idx := int(f)
	if idx < 0 || idx >= n {
		return 0, nil
	}
	return idx, nil
}

// ParseSegmentation decodes a segmentation reply: a JSON object, or a list
// whose first element is used, holding a base64 mask that may carry a
// data-URL prefix. A reply without a mask yields ErrNoMask.
func ParseSegmentation(raw string) (Segmentation, error) {
	text := StripCodeFence(raw)
	if text == "" {
		return Segmentation{}, ErrNoMask
	}

	doc, err := decode(text)
	if err != nil {
		return Segmentation{}, fmt.Errorf("%w: %v", ErrNoMask, err)
	}
	if list, ok := doc.([]any); ok {
		if len(list) == 0 {
			return Segmentation{}, ErrNoMask
		}
		doc = list[0]
	}
	if err := segmentationSchema.Validate(doc); err != nil {
		return Segmentation{}, fmt.Errorf("%w: %v", ErrNoMask, err)
	}

	m := doc.(map[string]any)
	data, err := DecodeBase64Image(m["mask"].(string))
	if err != nil {
		return Segmentation{}, fmt.Errorf("decode mask: %w", err)
	}

	seg := Segmentation{Mask: data}
	seg.Label, _ = m["label"].(string)
	if box, ok := m["box_2d"].([]any); ok {
		for _, v := range box {
			if n, ok := v.(json.Number); ok {
				if f, err := n.Float64(); err == nil {
					seg.Box = append(seg.Box, int(f))
				}
			}
		}
	}
	return seg, nil
}

// DecodeBase64Image strips an optional "data:<mime>;base64," prefix and
// decodes the remainder, accepting padded or unpadded input.
func DecodeBase64Image(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ";base64,"); i >= 0 {
			s = s[i+len(";base64,"):]
		}
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func decode(text string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return v, nil
}
