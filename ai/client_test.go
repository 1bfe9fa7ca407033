package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mirror520/collab/conf"
)

func TestParseResponse(t *testing.T) {
	assert := assert.New(t)

	text, ok := ParseResponse([]byte(`{"candidates":[{"content":{"parts":[{"text":"  x := 1\n"}]}}]}`))
	assert.True(ok)
	assert.Equal("x := 1", text)

	text, ok = ParseResponse([]byte(`{"output":[{"content":[{"text":"y := 2"}]}]}`))
	assert.True(ok)
	assert.Equal("y := 2", text)

	text, ok = ParseResponse([]byte(`{"candidates":[{"output_text":"z := 3"}]}`))
	assert.True(ok)
	assert.Equal("z := 3", text)

	text, ok = ParseResponse([]byte(`"bare"`))
	assert.True(ok)
	assert.Equal("bare", text)

	text, ok = ParseResponse([]byte(`plain text`))
	assert.True(ok)
	assert.Equal("plain text", text)

	_, ok = ParseResponse([]byte(`{"candidates":[]}`))
	assert.False(ok)

	_, ok = ParseResponse([]byte(`[1,2]`))
	assert.False(ok)
}

func TestSuggest(t *testing.T) {
	assert := assert.New(t)

	var got generateRequest
	var key string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.URL.Query().Get("key")

		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"fmt.Println(x)"}]}}]}`))
	}))
	defer srv.Close()

	client := NewClient(conf.AI{
		Endpoint: srv.URL,
		APIKey:   "secret",
		Timeout:  time.Second,
	}, zap.NewNop())

	text, ok := client.Suggest(context.Background(), Request{
		Intent:   Complete,
		Code:     "x := 1",
		Language: "go",
		Line:     1,
	})

	assert.True(ok)
	assert.Equal("fmt.Println(x)", text)
	assert.Equal("secret", key)
	assert.Equal(0.7, got.GenerationConfig.Temperature)
	assert.Equal(150, got.GenerationConfig.MaxOutputTokens)
	if assert.Len(got.Contents, 1) {
		assert.Contains(got.Contents[0].Parts[0].Text, "You are an expert go programmer.")
		assert.Contains(got.Contents[0].Parts[0].Text, "```go\nx := 1\n```")
	}
}

func TestSuggestFailures(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"quota"}`))
	}))
	defer srv.Close()

	client := NewClient(conf.AI{
		Endpoint: srv.URL,
		APIKey:   "secret",
		Timeout:  time.Second,
	}, zap.NewNop())

	text, ok := client.Suggest(context.Background(), Request{Intent: Explain, Code: "x"})
	assert.False(ok)
	assert.Empty(text)

	srv.Close()

	_, ok = client.Suggest(context.Background(), Request{Intent: Explain, Code: "x"})
	assert.False(ok)
}

func TestDisabledClient(t *testing.T) {
	assert := assert.New(t)

	client := NewClient(conf.AI{Endpoint: conf.DefaultAIEndpoint}, zap.NewNop())
	assert.False(client.Enabled())

	_, ok := client.Suggest(context.Background(), Request{Code: "x := 1"})
	assert.False(ok)
}
