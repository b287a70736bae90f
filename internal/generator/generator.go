// Package generator produces the machine-generated stand-in answer for a
// question against a player's profile. The remote endpoint is a black box;
// when it errors or stalls, a deterministic local paraphrase steps in so a
// phase transition never blocks on it.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Generator interface {
	Generate(ctx context.Context, profileText, question, topic string) (string, error)
}

// HTTPConfig configures the remote answer endpoint.
type HTTPConfig struct {
	EndpointURL string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

type httpGenerator struct {
	cfg HTTPConfig
}

// NewHTTPGenerator builds the remote client. The zero Timeout defaults to
// five seconds; a slow generator must not hold a round hostage.
func NewHTTPGenerator(cfg HTTPConfig) Generator {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &httpGenerator{cfg: cfg}
}

type generateRequest struct {
	ProfileText string `json:"profile_text"`
	Question    string `json:"question"`
	Topic       string `json:"topic,omitempty"`
}

type generateResponse struct {
	Answer string `json:"answer"`
}

func (g *httpGenerator) Generate(ctx context.Context, profileText, question, topic string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		ProfileText: profileText,
		Question:    question,
		Topic:       topic,
	})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call generate endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generate endpoint returned %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if out.Answer == "" {
		return "", fmt.Errorf("generate endpoint returned an empty answer")
	}
	return out.Answer, nil
}

// FallbackAnswer is the deterministic offline paraphrase: it picks the
// profile sentence sharing the most words with the question and wraps it in
// a fixed template. Same inputs, same output, on every client.
func FallbackAnswer(profileText, question string) string {
	sentences := splitSentences(profileText)
	if len(sentences) == 0 {
		return "Honestly, I'd rather not say."
	}

	qWords := keywordSet(question)
	best := sentences[0]
	bestScore := -1
	for _, s := range sentences {
		score := 0
		for w := range keywordSet(s) {
			if qWords[w] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = s, score
		}
	}

	r := []rune(best)
	r[0] = []rune(strings.ToLower(string(r[0])))[0]
	return "Well, " + string(r) + ", so that's my answer."
}

func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	out := raw[:0]
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func keywordSet(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"")
		if len(w) > 3 { // skip stopword-sized noise
			set[w] = true
		}
	}
	return set
}

type withFallback struct {
	remote Generator
}

// WithFallback wraps a generator so it never fails: a remote error logs and
// falls back to the deterministic paraphrase.
func WithFallback(remote Generator) Generator {
	return &withFallback{remote: remote}
}

func (g *withFallback) Generate(ctx context.Context, profileText, question, topic string) (string, error) {
	if g.remote != nil {
		answer, err := g.remote.Generate(ctx, profileText, question, topic)
		if err == nil {
			return answer, nil
		}
		zap.L().Warn(
			"answer generator unavailable, using local fallback",
			zap.Error(err),
		)
	}
	return FallbackAnswer(profileText, question), nil
}
