package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/helixir/observable-api/internal/domain"
	"github.com/helixir/observable-api/internal/observability"
)

const maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies

// healthHandler handles GET / and GET /healthz.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.Healthy())
}

// login handles POST /observable/login. Any well-formed JSON object is
// accepted, including one with empty or missing fields.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	req, err := decodeLoginRequest(r.Body)
	if err != nil {
		logger := observability.LoggerFromContext(r.Context(), s.logger)
		logger.Debug().Err(err).Msg("rejecting login body")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := s.service.Login(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, msg)
}

// decodeLoginRequest reads a login payload. Malformed JSON yields an error
// wrapping domain.ErrInvalidInput.
func decodeLoginRequest(body io.Reader) (domain.LoginRequest, error) {
	var req domain.LoginRequest
	if err := json.NewDecoder(io.LimitReader(body, maxRequestBodySize)).Decode(&req); err != nil {
		return domain.LoginRequest{}, fmt.Errorf("%w: decode login request: %v", domain.ErrInvalidInput, err)
	}
	return req, nil
}

// processMultiActivity handles GET /observable/process-multi-activity.
func (s *Server) processMultiActivity(w http.ResponseWriter, r *http.Request) {
	msg, err := s.service.ProcessMultiActivity(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, msg)
}

// processSingleActivity handles GET /observable/process-single-activity.
func (s *Server) processSingleActivity(w http.ResponseWriter, r *http.Request) {
	msg, err := s.service.ProcessSingleActivity(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, msg)
}

// writeServiceError logs err and answers with a generic 500. Internal error
// details are not leaked to clients.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFromContext(r.Context(), s.logger)
	event := logger.Error().Err(err)
	var apiErr *domain.ExternalAPIError
	if errors.As(err, &apiErr) {
		event = event.Str("upstream_url", apiErr.URL)
	}
	event.Msg("request failed")

	writeError(w, http.StatusInternalServerError, "internal server error")
}
