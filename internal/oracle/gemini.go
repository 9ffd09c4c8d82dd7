package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrNoAPIKey is returned when the client was built without credentials.
// Callers fall back to the zero-score policy rather than aborting the game.
var ErrNoAPIKey = errors.New("oracle: no API key configured")

// Gemini judges answers with a single structured generateContent call per
// round. The prompt asks for strict JSON so the response parses without
// any cleanup pass.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGemini(apiKey, model string, timeout time.Duration) *Gemini {
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
	Config   geminiConfig    `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type verdict struct {
	Category string `json:"category"`
	Answer   string `json:"answer"`
	IsValid  bool   `json:"isValid"`
}

func (g *Gemini) Validate(ctx context.Context, letter string, items []Item) (map[Item]bool, error) {
	if len(items) == 0 {
		return map[Item]bool{}, nil
	}
	if g.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	prompt, err := buildPrompt(letter, items)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		Config:   geminiConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, g.model, url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle: calling judge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle: judge returned status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("oracle: decoding judge response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("oracle: judge returned no candidates")
	}

	var results struct {
		Results []verdict `json:"results"`
	}
	text := parsed.Candidates[0].Content.Parts[0].Text
	if err := json.Unmarshal([]byte(text), &results); err != nil {
		return nil, fmt.Errorf("oracle: malformed judge verdict: %w", err)
	}

	out := make(map[Item]bool, len(items))
	for _, v := range results.Results {
		out[Item{Category: v.Category, Answer: v.Answer}] = v.IsValid
	}
	return out, nil
}

func buildPrompt(letter string, items []Item) (string, error) {
	batch, err := json.Marshal(items)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the judge in an Arabic word game. The letter for this round is %q.\n", letter)
	b.WriteString("For each submitted answer, decide whether it is a real, known Arabic word ")
	b.WriteString("that fits its category and starts with the round's letter.\n")
	b.WriteString("Return a JSON object with a single key \"results\": an array of objects, each with ")
	b.WriteString("\"category\", \"answer\" (exactly as given) and \"isValid\" (boolean).\n")
	fmt.Fprintf(&b, "Answers: %s\n", batch)
	return b.String(), nil
}
