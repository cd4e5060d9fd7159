// Package translate calls the external text-translation service.
//
// The pipeline never fails observably: every entry point returns a usable
// string, falling back to the original text when the call is skipped or the
// backend misbehaves. Failures are logged and counted, not raised.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/abadojack/whatlanggo"

	"linguachat/domain"
	apperrors "linguachat/errors"
	"linguachat/observability"
)

const DefaultEndpoint = "https://translation.googleapis.com/language/translate/v2"

type Pipeline struct {
	log             *slog.Logger
	client          *http.Client
	endpoint        string
	apiKey          string
	callTimeout     time.Duration
	documentTimeout time.Duration
	stats           *observability.RelayStats
}

func NewPipeline(log *slog.Logger, endpoint, apiKey string,
	callTimeout, documentTimeout time.Duration,
	stats *observability.RelayStats) *Pipeline {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Pipeline{
		log:             log,
		client:          &http.Client{},
		endpoint:        endpoint,
		apiKey:          apiKey,
		callTimeout:     callTimeout,
		documentTimeout: documentTimeout,
		stats:           stats,
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Target string `json:"target"`
	Source string `json:"source,omitempty"`
	Format string `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate issues at most one call to the translation service.
// No call is made when text is empty or the target is the system default.
func (p *Pipeline) Translate(ctx context.Context, text, targetLanguage string) string {
	return p.translate(ctx, text, targetLanguage, p.callTimeout)
}

// TranslateDocument is the batch variant for whole-document text: one call
// per document rather than per line, with a larger timeout. The contract is
// otherwise identical to Translate.
func (p *Pipeline) TranslateDocument(ctx context.Context, text, targetLanguage string) string {
	return p.translate(ctx, text, targetLanguage, p.documentTimeout)
}

func (p *Pipeline) translate(ctx context.Context, text, targetLanguage string, timeout time.Duration) string {
	if text == "" || targetLanguage == domain.DefaultLanguage {
		return text
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body := translateRequest{Q: text, Target: targetLanguage, Format: "text"}
	// Detected source language is a hint only; the backend detects on its
	// own when the field is absent.
	if info := whatlanggo.Detect(text); info.IsReliable() {
		body.Source = info.Lang.Iso6391()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return p.fallback(text, targetLanguage, err)
	}

	endpoint := fmt.Sprintf("%s?key=%s", p.endpoint, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return p.fallback(text, targetLanguage, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return p.fallback(text, targetLanguage, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return p.fallback(text, targetLanguage,
			fmt.Errorf("translation service returned status %d", resp.StatusCode))
	}

	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return p.fallback(text, targetLanguage, err)
	}
	if len(out.Data.Translations) == 0 {
		return p.fallback(text, targetLanguage, apperrors.ErrEmptyTranslation)
	}

	// The service escapes quotes and the like in its JSON payload.
	return html.UnescapeString(out.Data.Translations[0].TranslatedText)
}

// fallback keeps the pipeline's "never fails observably" contract: the
// failure is recorded and the caller receives the original text.
func (p *Pipeline) fallback(text, targetLanguage string, err error) string {
	p.log.Warn("Translation failed, falling back to original text",
		"target", targetLanguage,
		"error", err)
	if p.stats != nil {
		p.stats.IncrTranslationFallbacks()
	}
	return text
}
