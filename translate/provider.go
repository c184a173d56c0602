package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/minios-linux/lprojsync/langmeta"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderGoogleTranslate = "google-translate"
	ProviderGoogle          = "google"
	ProviderGroq            = "groq"
	ProviderOllama          = "ollama"
	ProviderCustomOpenAI    = "custom-openai"
)

// DefaultSystemPrompt is the system prompt for AI providers.
// {{sourceLang}} and {{targetLang}} are replaced with English language names.
const DefaultSystemPrompt = `You are a professional translator specializing in Apple platform app localization. You are translating UI strings from a Localizable.strings file.

IMPORTANT TRANSLATION PRINCIPLES:
- Translate from {{sourceLang}} to {{targetLang}} for naturalness and fluency, not word-for-word
- Use terminology that is standard in {{targetLang}} iOS and macOS interfaces
- Keep the tone and length appropriate for buttons, labels and alerts

TECHNICAL REQUIREMENTS:
- Return ONLY a JSON array containing exactly one translated string.
- Keep the token _ARG_ exactly as-is; it stands for a runtime argument.
- The source is a JSON string. Encode the result the same way, keeping line breaks and quotes.
- Preserve format specifiers (%d, %1$@, %lld, etc.) exactly.
- Preserve leading/trailing whitespace and punctuation patterns.
- Keep brand names and proper nouns unchanged.
- Return ONLY the JSON array, no explanations or markdown code blocks.`

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for a translation service.
type Provider struct {
	// ID is the provider identifier (google-translate, google, groq, etc.).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderGoogleTranslate: {
			ID:      ProviderGoogleTranslate,
			Name:    "Google Translate (web)",
			Timeout: 30 * time.Second,
		},
		ProviderGoogle: {
			ID:      ProviderGoogle,
			Name:    "Google AI (Gemini)",
			BaseURL: "https://generativelanguage.googleapis.com",
			Timeout: 120 * time.Second,
		},
		ProviderGroq: {
			ID:      ProviderGroq,
			Name:    "Groq",
			BaseURL: "https://api.groq.com/openai/v1",
			Timeout: 60 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 60 * time.Second,
		},
		ProviderOllama: {
			ID:      ProviderOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434/v1",
			Timeout: 120 * time.Second,
		},
	}
}

// ProviderIDs returns the known provider IDs in sorted order.
func ProviderIDs() []string {
	var ids []string
	for id := range DefaultProviders() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NeedsAPIKey reports whether the provider refuses to work without a key.
func (p Provider) NeedsAPIKey() bool {
	return p.ID == ProviderGoogle || p.ID == ProviderGroq
}

// Validate checks that the provider has what it needs to make requests.
func (p Provider) Validate() error {
	if _, ok := DefaultProviders()[p.ID]; !ok {
		return fmt.Errorf("unknown provider %q (want one of %s)", p.ID, strings.Join(ProviderIDs(), ", "))
	}
	if p.ID == ProviderGoogleTranslate {
		return nil
	}
	if p.Model == "" {
		return fmt.Errorf("--model is required for provider '%s'", p.ID)
	}
	if p.NeedsAPIKey() && p.APIKey == "" {
		return fmt.Errorf("provider '%s' requires an API key\n\n"+
			"Store one with:\n  lprojsync auth login %s\n\n"+
			"or pass --api-key KEY / export LPROJSYNC_API_KEY=KEY", p.ID, p.ID)
	}
	if p.ID == ProviderCustomOpenAI && p.BaseURL == "" {
		return fmt.Errorf("provider 'custom-openai' requires an endpoint URL (--base-url)")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Gateway construction
// ---------------------------------------------------------------------------

// Options configures the gateway returned by New.
type Options struct {
	// MaxRetries bounds retries on 429 and 5xx responses. Default: 3.
	MaxRetries int
	// RequestDelay is the minimum delay between consecutive requests.
	RequestDelay time.Duration
	// SystemPrompt overrides DefaultSystemPrompt for AI providers.
	SystemPrompt string
	// OnLog receives retry notices.
	OnLog func(format string, args ...any)
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 3
}

// New returns the gateway for prov with Xcode aliasing and request pacing
// applied.
func New(prov Provider, opts Options) (Translator, error) {
	if err := prov.Validate(); err != nil {
		return nil, err
	}
	var t Translator
	if prov.ID == ProviderGoogleTranslate {
		t = NewWeb(opts.effectiveMaxRetries())
	} else {
		t = NewAI(prov, opts)
	}
	return WithAliases(Paced(t, opts.RequestDelay)), nil
}

// ---------------------------------------------------------------------------
// AI provider gateway
// ---------------------------------------------------------------------------

type apiFormat int

const (
	formatOpenAIChat   apiFormat = iota // OpenAI chat/completions
	formatGeminiNative                  // Google Gemini generateContent
)

// AI translates strings by prompting an HTTP AI provider.
type AI struct {
	prov         Provider
	maxRetries   int
	systemPrompt string
	onLog        func(format string, args ...any)
	client       *http.Client
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewAI returns a gateway that talks to prov.
func NewAI(prov Provider, opts Options) *AI {
	prompt := opts.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	return &AI{
		prov:         prov,
		maxRetries:   opts.effectiveMaxRetries(),
		systemPrompt: prompt,
		onLog:        opts.OnLog,
		client:       makeHTTPClient(prov.Proxy, prov.Timeout),
		sleep:        sleepCtx,
	}
}

// Translate implements Translator.
func (a *AI) Translate(ctx context.Context, text, targetLang, originLang string) (string, error) {
	system := strings.NewReplacer(
		"{{sourceLang}}", langmeta.EnglishName(originLang),
		"{{targetLang}}", langmeta.EnglishName(targetLang),
	).Replace(a.systemPrompt)

	quoted, err := json.Marshal(text)
	if err != nil {
		return "", fmt.Errorf("encoding prompt: %w", err)
	}

	var user strings.Builder
	user.WriteString("Translate this string:\n\n")
	user.Write(quoted)
	user.WriteString("\n\nReturn a JSON array with exactly 1 translated string.")

	content, err := a.call(ctx, system, user.String())
	if err != nil {
		return "", err
	}
	translations, err := parseTranslations(content, 1)
	if err != nil {
		return "", err
	}
	return translations[0], nil
}

func (a *AI) format() apiFormat {
	if a.prov.ID == ProviderGoogle {
		return formatGeminiNative
	}
	return formatOpenAIChat
}

func (a *AI) logf(format string, args ...any) {
	if a.onLog != nil {
		a.onLog(format, args...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// call sends the prompt, retrying on transport errors, 429 and 5xx.
func (a *AI) call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	endpoint, headers, body, err := buildHTTPRequest(a.prov, systemPrompt, userPrompt, a.format())
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := a.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if attempt < a.maxRetries {
				if err := a.sleep(ctx, backoff(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", fmt.Errorf("API request failed: %w", err)
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt < a.maxRetries {
				retryDelay := parseRetryDelay(respBody)
				a.logf("%s: rate limited, waiting %v before retry (attempt %d/%d)", a.prov.Name, retryDelay, attempt+1, a.maxRetries)
				if err := a.sleep(ctx, retryDelay); err != nil {
					return "", err
				}
				continue
			}
			return "", fmt.Errorf("rate limited after %d retries: %s", a.maxRetries, truncate(string(respBody), 300))
		}

		if resp.StatusCode != http.StatusOK {
			if attempt < a.maxRetries && resp.StatusCode >= 500 {
				if err := a.sleep(ctx, backoff(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
		}

		return extractResponseText(respBody)
	}

	return "", fmt.Errorf("exhausted all %d retries", a.maxRetries)
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// ---------------------------------------------------------------------------
// HTTP plumbing
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// buildHTTPRequest constructs the endpoint, headers, and body for a provider.
func buildHTTPRequest(prov Provider, systemPrompt, userPrompt string, format apiFormat) (string, map[string]string, []byte, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	var endpoint string
	var body []byte
	var err error

	switch format {
	case formatGeminiNative:
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent",
			strings.TrimRight(prov.BaseURL, "/"), prov.Model)
		if prov.APIKey != "" {
			headers["x-goog-api-key"] = prov.APIKey
		}
		body, err = buildGeminiRequest(systemPrompt, userPrompt, 0.3)

	default:
		baseURL := strings.TrimRight(prov.BaseURL, "/")
		if strings.HasSuffix(baseURL, "/chat/completions") {
			endpoint = baseURL
		} else {
			endpoint = baseURL + "/chat/completions"
		}
		if prov.APIKey != "" {
			headers["Authorization"] = "Bearer " + prov.APIKey
		}
		body, err = buildOpenAIChatRequest(prov.Model, systemPrompt, userPrompt, 0.3)
	}

	if err != nil {
		return "", nil, nil, err
	}
	return endpoint, headers, body, nil
}

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	}
	return json.Marshal(req)
}

func buildGeminiRequest(systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig: genConfig{Temperature: temperature},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(req)
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

// extractResponseText handles OpenAI chat and Gemini response shapes.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if errObj, ok := raw["error"]; ok {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	// OpenAI chat: choices[0].message.content
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// Gemini: candidates[0].content.parts[0].text
	if candidates, ok := raw["candidates"].([]any); ok && len(candidates) > 0 {
		if candidate, ok := candidates[0].(map[string]any); ok {
			if content, ok := candidate["content"].(map[string]any); ok {
				if parts, ok := content["parts"].([]any); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]any); ok {
						if text, ok := part["text"].(string); ok {
							return text, nil
						}
					}
				}
			}
		}
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

// parseRetryDelay extracts the retry delay from a 429 response body.
// Looks for Google's RetryInfo detail; defaults to 60s plus a 5s buffer.
func parseRetryDelay(body []byte) time.Duration {
	const defaultDelay = 65 * time.Second

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return defaultDelay
	}

	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			d := strings.TrimSuffix(detail.RetryDelay, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
			}
		}
	}

	return defaultDelay
}

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

func parseTranslations(content string, expected int) ([]string, error) {
	content = strings.TrimSpace(content)

	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	var translations []string
	if err := json.Unmarshal([]byte(content), &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation response as JSON array: %w\nResponse: %s", err, truncate(content, 300))
	}

	if len(translations) < expected {
		return nil, fmt.Errorf("got %d translations, expected %d", len(translations), expected)
	}

	return translations, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
