package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/trellis/internal/decode"
	"github.com/samcharles93/trellis/internal/tensor"
	"github.com/samcharles93/trellis/internal/version"
)

// Server exposes the decoding strategies over HTTP. The beam endpoint is a
// pure function of its request body; the generate endpoint runs against the
// provider the server was constructed with.
type Server struct {
	provider decode.Provider
	defaults decode.SamplerConfig

	// mu serialises generate requests: providers reuse scratch buffers
	// and are not safe for concurrent use.
	mu sync.Mutex
}

// NewServer creates a Server. provider backs /v1/generate and may be nil when
// only the tensor-input beam endpoint is needed; defaults fill unset sampling
// parameters on generate requests.
func NewServer(provider decode.Provider, defaults decode.SamplerConfig) *Server {
	return &Server{
		provider: provider,
		defaults: defaults,
	}
}

// Register installs the API routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/beam", s.handleBeam)
	e.POST("/v1/generate", s.handleGenerate)
	e.GET("/healthz", s.handleHealth)
	e.GET("/version", s.handleVersion)
}

func (s *Server) handleBeam(c *echo.Context) error {
	req, err := decodeJSON[BeamRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	dist, err := tensor.FromNested(req.Probs)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	result, err := decode.BeamSearch(dist, req.BeamSize)
	if err != nil {
		return writeDecodeError(c, err)
	}

	return c.JSON(http.StatusOK, BeamResponse{
		ID:     "beam_" + uuid.NewString(),
		Object: "decode.beam",
		Tokens: result.Tokens,
		Scores: result.Scores,
	})
}

func (s *Server) handleGenerate(c *echo.Context) error {
	if s.provider == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "no provider configured")
	}
	req, err := decodeJSON[GenerateRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if req.Steps < 1 {
		return writeBadRequest(c, "steps must be at least 1")
	}

	eos := -1
	if req.EOS != nil {
		eos = *req.EOS
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.BeamSize != nil && *req.BeamSize > 1 {
		policy := decode.EOSNone
		switch req.EOSPolicy {
		case "", "none":
		case "freeze":
			policy = decode.EOSFreeze
		default:
			return writeBadRequest(c, "eos_policy must be \"none\" or \"freeze\"")
		}
		dec := &decode.BeamDecoder{
			Provider: s.provider,
			BeamSize: *req.BeamSize,
			EOS:      eos,
			Policy:   policy,
		}
		beams, scores, err := dec.Decode(c.Request().Context(), req.Prompt, req.Steps)
		if err != nil {
			return writeDecodeError(c, err)
		}
		return c.JSON(http.StatusOK, BeamGenerateResponse{
			ID:     "gen_" + uuid.NewString(),
			Object: "decode.beam_generation",
			Beams:  beams,
			Scores: scores,
		})
	}

	gen := &decode.Generator{
		Provider: s.provider,
		Sampler:  decode.NewSampler(s.resolveSampler(req)),
		EOS:      eos,
	}
	toks, err := gen.Run(c.Request().Context(), req.Prompt, req.Steps, nil)
	if err != nil {
		return writeDecodeError(c, err)
	}
	return c.JSON(http.StatusOK, GenerateResponse{
		ID:     "gen_" + uuid.NewString(),
		Object: "decode.generation",
		Tokens: toks[len(req.Prompt):],
	})
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"version": version.String()})
}

// resolveSampler overlays request parameters on the server defaults.
func (s *Server) resolveSampler(req *GenerateRequest) decode.SamplerConfig {
	cfg := s.defaults
	if req.Temperature != nil {
		cfg.Temperature = *req.Temperature
	}
	if req.TopK != nil {
		cfg.TopK = *req.TopK
	}
	if req.TopP != nil {
		cfg.TopP = *req.TopP
	}
	if req.MinP != nil {
		cfg.MinP = *req.MinP
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	return cfg
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeDecodeError(c *echo.Context, err error) error {
	if errors.Is(err, decode.ErrInvalidArgument) {
		return writeBadRequest(c, err.Error())
	}
	return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
		},
	})
}
