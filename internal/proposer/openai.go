package proposer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/planwright/planwright/internal/plan"
)

const systemPrompt = `You are a residential floor-plan designer. You receive
house requirements and feedback on a previous attempt, and respond with a
single JSON object describing the full layout. Respond with JSON only, no
prose. Schema:

{
  "envelope": {"width": <m>, "depth": <m>},
  "rooms": [
    {"type": "<room type>", "name": "<label>", "storey": <1-based>,
     "x": <m>, "y": <m>, "width": <m>, "depth": <m>,
     "doors": [{"wall": "north|south|east|west", "offset": <m>,
                "width_mm": <int>, "category": "entry|internal|bathroom|garage"}],
     "windows": [{"wall": "north|south|east|west", "offset": <m>,
                  "width": <m>, "height": <m>}]}
  ]
}

The front of the house is wall "north" at y=0. Coordinates are the room's
north-west corner. Every room must sit inside the envelope and rooms on the
same storey must not overlap.`

// LLMConfig configures the model-backed proposer.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:       openai.GPT4oMini,
		Temperature: 0.4,
	}
}

// LLMProposer asks an OpenAI-compatible chat model for a layout. Any
// failure mode of the model (transport error, non-JSON reply, rooms of
// unknown type) is normalized to (nil, error) so the engine treats it
// as one consumed retry.
type LLMProposer struct {
	client *openai.Client
	config LLMConfig
}

func NewLLMProposer(config LLMConfig) (*LLMProposer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("llm proposer: api key not configured")
	}
	if config.Model == "" {
		config.Model = DefaultLLMConfig().Model
	}

	cc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cc.BaseURL = config.BaseURL
	}
	return &LLMProposer{
		client: openai.NewClientWithConfig(cc),
		config: config,
	}, nil
}

func (p *LLMProposer) Propose(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Temperature: p.config.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req, feedback)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm proposer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm proposer: model returned no choices")
	}

	layout, err := parseLayout(resp.Choices[0].Message.Content)
	if err != nil {
		log.Warn("discarding unusable model reply", "error", err)
		return nil, err
	}
	return layout, nil
}

// buildPrompt renders the requirements and previous feedback into the
// user message.
func buildPrompt(req *plan.Requirements, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Land: %.1fm wide x %.1fm deep.\n", req.LandWidth, req.LandDepth)
	fmt.Fprintf(&b, "Bedrooms: %d. Bathrooms: %.1f. Garage spaces: %d. Storeys: %d.\n",
		req.Bedrooms, req.Bathrooms, req.GarageSpaces, req.Storeys)
	if req.OpenPlan {
		b.WriteString("Living, kitchen and dining are an open-plan zone.\n")
	}
	if req.Alfresco {
		b.WriteString("Include a covered alfresco at the rear.\n")
	}
	var extras []string
	if req.Study {
		extras = append(extras, "a study")
	}
	if req.HomeOffice {
		extras = append(extras, "a home office")
	}
	if req.Theatre {
		extras = append(extras, "a theatre room")
	}
	if len(extras) > 0 {
		fmt.Fprintf(&b, "Also include: %s.\n", strings.Join(extras, ", "))
	}
	if feedback != "" {
		b.WriteString("\nYour previous layout was rejected. Fix these problems:\n")
		b.WriteString(feedback)
		b.WriteString("\n")
	}
	b.WriteString("\nReturn the complete layout as JSON.")
	return b.String()
}

// parseLayout extracts the JSON object from a model reply and decodes it
// into a sanitized layout. Models occasionally wrap JSON in code fences
// or lead with prose despite instructions.
func parseLayout(content string) (*plan.Layout, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("llm proposer: reply contains no JSON object")
	}

	layout, err := plan.DecodeLayout([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("llm proposer: decode reply: %w", err)
	}
	if err := sanitize(layout); err != nil {
		return nil, err
	}
	layout.ComputeTotals()
	return layout, nil
}

// extractJSON returns the outermost {...} span of the reply.
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return ""
	}
	candidate := content[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return ""
	}
	return candidate
}

// sanitize rejects layouts the rest of the pipeline cannot reason
// about. Geometric problems are left for validation to report; only
// structurally unusable replies are dropped here.
func sanitize(l *plan.Layout) error {
	if len(l.Rooms) == 0 {
		return fmt.Errorf("llm proposer: layout has no rooms")
	}
	if l.Envelope.Width <= 0 || l.Envelope.Depth <= 0 {
		return fmt.Errorf("llm proposer: layout has no envelope")
	}
	for i := range l.Rooms {
		r := &l.Rooms[i]
		if !plan.IsKnownRoomType(r.Type) {
			return fmt.Errorf("llm proposer: unknown room type %q", r.Type)
		}
		if r.Width <= 0 || r.Depth <= 0 {
			return fmt.Errorf("llm proposer: %s has non-positive size", r.Label())
		}
		if r.Storey <= 0 {
			r.Storey = 1
		}
		if r.Name == "" {
			r.Name = string(r.Type)
		}
		// models omit or miscompute area often enough that the stated
		// value cannot be trusted
		r.Area = r.Width * r.Depth
	}
	return nil
}
