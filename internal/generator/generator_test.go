package generator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const violinProfile = "I grew up by the sea. I play the violin in a quartet. My favorite food is ramen."

func TestHTTPGenerator_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"answer":"I mostly practice scales."}`))
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(HTTPConfig{EndpointURL: srv.URL})
	answer, err := gen.Generate(context.Background(), violinProfile, "What do you practice?", "music")
	require.NoError(t, err)
	assert.Equal(t, "I mostly practice scales.", answer)
}

func TestHTTPGenerator_ErrorsSurface(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "empty answer",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"answer":""}`))
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			gen := NewHTTPGenerator(HTTPConfig{EndpointURL: srv.URL})
			_, err := gen.Generate(context.Background(), violinProfile, "q?", "")
			require.Error(t, err)
		})
	}
}

func TestHTTPGenerator_TimeoutIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"answer":"too late"}`))
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(HTTPConfig{EndpointURL: srv.URL, Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := gen.Generate(context.Background(), violinProfile, "q?", "")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestFallbackAnswer_Deterministic(t *testing.T) {
	question := "Do you play any instrument?"

	first := FallbackAnswer(violinProfile, question)
	second := FallbackAnswer(violinProfile, question)
	require.Equal(t, first, second)
	assert.NotEmpty(t, first)

	// The sentence sharing the most words with the question wins.
	assert.Contains(t, first, "violin")
}

func TestFallbackAnswer_EmptyProfile(t *testing.T) {
	got := FallbackAnswer("", "Anything?")
	assert.NotEmpty(t, got)

	got = FallbackAnswer("   \n  ", "Anything?")
	assert.NotEmpty(t, got)
}

func TestWithFallback_NeverFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cases := []struct {
		name string
		gen  Generator
	}{
		{"failing remote", WithFallback(NewHTTPGenerator(HTTPConfig{EndpointURL: srv.URL}))},
		{"no remote at all", WithFallback(nil)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			answer, err := tc.gen.Generate(context.Background(), violinProfile, "What do you play?", "")
			require.NoError(t, err)
			assert.NotEmpty(t, answer)
			assert.True(t, strings.Contains(answer, "violin") || strings.Contains(answer, "say"))
		})
	}
}

func TestWithFallback_PrefersRemoteAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer":"remote wins"}`))
	}))
	defer srv.Close()

	gen := WithFallback(NewHTTPGenerator(HTTPConfig{EndpointURL: srv.URL}))
	answer, err := gen.Generate(context.Background(), violinProfile, "q?", "")
	require.NoError(t, err)
	assert.Equal(t, "remote wins", answer)
}
