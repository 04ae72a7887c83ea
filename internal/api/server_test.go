package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/trellis/internal/decode"
	"github.com/samcharles93/trellis/internal/toy"
)

func newTestEcho() *echo.Echo {
	server := NewServer(toy.NewToyLM(16, 8, 1), decode.SamplerConfig{
		Temperature: 0.8,
		TopK:        40,
		TopP:        0.95,
	})
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestBeamEndpoint(t *testing.T) {
	t.Parallel()

	e := newTestEcho()
	body := `{"beam_size":2,"probs":[[[0.7,0.1,0.1,0.1],[0.1,0.6,0.2,0.1],[0.05,0.05,0.8,0.1]]]}`
	rec := doJSON(t, e, http.MethodPost, "/v1/beam", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("beam status: got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp BeamResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode beam response: %v", err)
	}
	if resp.ID == "" || resp.Object != "decode.beam" {
		t.Fatalf("unexpected envelope: id=%q object=%q", resp.ID, resp.Object)
	}
	if len(resp.Tokens) != 1 || len(resp.Tokens[0]) != 2 || len(resp.Tokens[0][0]) != 3 {
		t.Fatalf("unexpected token shape: %v", resp.Tokens)
	}
	if got := resp.Tokens[0][0]; got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("unexpected top chain: %v", got)
	}
	if resp.Scores[0][0] < resp.Scores[0][1] {
		t.Fatalf("scores not sorted: %v", resp.Scores[0])
	}
}

func TestBeamEndpointValidationErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho()

	cases := []struct {
		name string
		body string
	}{
		{"beam size above vocab", `{"beam_size":5,"probs":[[[0.5,0.5]]]}`},
		{"degenerate slice", `{"beam_size":1,"probs":[[[0.5,0.5],[0,0]]]}`},
		{"ragged tensor", `{"beam_size":1,"probs":[[[0.5,0.5],[0.5,0.5,0]]]}`},
		{"empty tensor", `{"beam_size":1,"probs":[]}`},
		{"not json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/v1/beam", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), "invalid_request_error") {
				t.Fatalf("unexpected error body: %s", rec.Body.String())
			}
		})
	}
}

func TestGenerateEndpointSampling(t *testing.T) {
	t.Parallel()

	e := newTestEcho()
	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"prompt":[1,2],"steps":5,"seed":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status: got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode generate response: %v", err)
	}
	if resp.Object != "decode.generation" {
		t.Fatalf("unexpected object: %q", resp.Object)
	}
	if len(resp.Tokens) != 5 {
		t.Fatalf("expected 5 generated tokens, got %v", resp.Tokens)
	}
	for _, tok := range resp.Tokens {
		if tok < 0 || tok >= 16 {
			t.Fatalf("token %d outside vocabulary", tok)
		}
	}
}

func TestGenerateEndpointBeam(t *testing.T) {
	t.Parallel()

	e := newTestEcho()
	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"prompt":[3],"steps":4,"beam_size":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status: got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp BeamGenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode beam generate response: %v", err)
	}
	if resp.Object != "decode.beam_generation" {
		t.Fatalf("unexpected object: %q", resp.Object)
	}
	if len(resp.Beams) != 3 || len(resp.Scores) != 3 {
		t.Fatalf("expected 3 beams, got %d/%d", len(resp.Beams), len(resp.Scores))
	}
	for k := 1; k < len(resp.Scores); k++ {
		if resp.Scores[k] > resp.Scores[k-1] {
			t.Fatalf("scores not sorted descending: %v", resp.Scores)
		}
	}
}

func TestGenerateEndpointValidation(t *testing.T) {
	t.Parallel()

	e := newTestEcho()

	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"prompt":[1],"steps":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero steps, got %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/generate", `{"prompt":[1],"steps":2,"beam_size":2,"eos_policy":"bogus"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad eos policy, got %d", rec.Code)
	}
}

func TestHealthAndVersion(t *testing.T) {
	t.Parallel()

	e := newTestEcho()
	if rec := doJSON(t, e, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: got %d", rec.Code)
	}
	rec := doJSON(t, e, http.MethodGet, "/version", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("version: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "version") {
		t.Fatalf("version body: %s", rec.Body.String())
	}
}
