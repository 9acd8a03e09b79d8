package nlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const extractPrompt = `Extract named entities and search keywords from the news headlines below.
Return JSON only, in the form:
{"entities":[{"text":"...","label":"PERSON|ORG|GPE"}],"keywords":["..."]}
Keywords are the salient nouns and proper nouns, in order of appearance, without stopwords.

Headlines:
`

// OpenAI asks a chat-completions model for entities and keywords.
// Failures fall back to the heuristic extractor.
type OpenAI struct {
	client   openai.Client
	model    string
	timeout  time.Duration
	fallback Extractor
}

func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration, fallback Extractor) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{
		client:   openai.NewClient(opts...),
		model:    model,
		timeout:  timeout,
		fallback: fallback,
	}
}

func (o *OpenAI) Extract(ctx context.Context, text string) (Result, error) {
	res, err := o.extract(ctx, text)
	if err == nil {
		return res, nil
	}
	if o.fallback == nil {
		return Result{}, err
	}
	log.Printf("[nlp] OpenAI extraction failed, using heuristic: %v", err)
	return o.fallback.Extract(ctx, text)
}

func (o *OpenAI) extract(ctx context.Context, text string) (Result, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a precise news entity extractor. Output JSON only."),
			openai.UserMessage(extractPrompt + text),
		},
		Model:       o.model,
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.New("model returned no choices")
	}
	return parseResult(resp.Choices[0].Message.Content)
}

// parseResult decodes the model's JSON, tolerating fenced output
func parseResult(raw string) (Result, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{}, errors.New("empty model response")
	}

	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return Result{}, fmt.Errorf("decode model response: %w", err)
	}
	out := Result{}
	for _, e := range res.Entities {
		if t := strings.TrimSpace(e.Text); t != "" {
			out.Entities = append(out.Entities, Entity{Text: t, Label: strings.ToUpper(strings.TrimSpace(e.Label))})
		}
	}
	for _, k := range res.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			out.Keywords = append(out.Keywords, k)
		}
	}
	return out, nil
}
