package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/calermo/seo-manager/pkg/log"
)

// Console forwards research prompts to a generative-search API. A client
// held, ordered list of credentials is tried in sequence until one succeeds
// or all fail, so a rate-limited key degrades to the next one instead of an
// error.
type Console struct {
	apiURL     string
	model      string
	apiKeys    []string
	httpClient *http.Client
}

func NewConsole(apiURL, model string, apiKeys []string, timeout time.Duration) (*Console, error) {
	keys := make([]string, 0, len(apiKeys))
	for _, key := range apiKeys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("at least one research API key is required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Console{
		apiURL:  strings.TrimRight(apiURL, "/"),
		model:   model,
		apiKeys: keys,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Generate runs the prompt through the first credential that works. The
// answer is requested in the prompt's own language.
func (c *Console) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt is empty")
	}
	prompt = withLanguageHint(prompt)

	var lastErr error
	for _, apiKey := range c.apiKeys {
		text, err := c.generateWithKey(ctx, apiKey, prompt)
		if err != nil {
			// Rate limits and permission errors both just move on to the
			// next key.
			log.Error("Research API error with key ending in ...%s: %v", keyTail(apiKey), err)
			lastErr = err
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		return text, nil
	}
	return "", fmt.Errorf("all API keys failed, last error: %w", lastErr)
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Tools    []tool    `json:"tools,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type tool struct {
	GoogleSearch struct{} `json:"google_search"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Console) generateWithKey(ctx context.Context, apiKey, prompt string) (string, error) {
	request := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		Tools: []tool{{}},
	}
	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.apiURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("research request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("research request failed with status %d: %s", resp.StatusCode, string(responseBody))
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// withLanguageHint detects the prompt's language and asks for the answer in
// it. Detection below the confidence floor leaves the prompt untouched.
func withLanguageHint(prompt string) string {
	info := whatlanggo.Detect(prompt)
	if !info.IsReliable() {
		return prompt
	}
	tag, err := language.Parse(info.Lang.Iso6391())
	if err != nil || tag == language.Und || tag == language.English {
		return prompt
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return prompt
	}
	return fmt.Sprintf("%s\n\nAnswer in %s.", prompt, name)
}

func keyTail(apiKey string) string {
	if len(apiKey) <= 4 {
		return apiKey
	}
	return apiKey[len(apiKey)-4:]
}
