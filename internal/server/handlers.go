package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pageforge/pageforge/internal/errors"
	"github.com/pageforge/pageforge/internal/pipeline"
)

// userIDHeader and userIDCookie carry the request-scoped identity used
// for experiment bucketing.
const (
	userIDHeader = "X-User-Id"
	userIDCookie = "pf_uid"
)

func requestInput(r *http.Request) pipeline.Request {
	req := pipeline.Request{
		Locale:         r.URL.Query().Get("locale"),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		UserID:         r.Header.Get(userIDHeader),
	}
	if req.UserID == "" {
		if cookie, err := r.Cookie(userIDCookie); err == nil {
			req.UserID = cookie.Value
		}
	}
	return req
}

func (s *Server) handlePageJSON(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	body, err := s.composer.RenderJSON(r.Context(), slug, requestInput(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(body)
}

func (s *Server) handlePageHTML(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	html, _, err := s.composer.RenderHTML(r.Context(), slug, requestInput(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (s *Server) handlePageList(w http.ResponseWriter, r *http.Request) {
	slugs, err := s.pages.ListSlugs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if slugs == nil {
		slugs = []string{}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"slugs": slugs})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// errorResponse is the JSON error body. Violations are present only
// for validation failures.
type errorResponse struct {
	Error      string             `json:"error"`
	Code       string             `json:"code,omitempty"`
	Violations []errors.Violation `json:"violations,omitempty"`
}

// writeError maps engine errors onto status codes: invalid DSL input
// and plugin param-schema violations yield 400 with structured
// violations, missing pages 404, render and plugin failures a generic
// 400, everything else 500 with no internal detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var engineErr *errors.EngineError

	status := http.StatusInternalServerError
	body := errorResponse{Error: "internal error"}

	if stderrors.As(err, &engineErr) {
		switch {
		case engineErr.Code == errors.ErrCodePageNotFound:
			status = http.StatusNotFound
			body = errorResponse{Error: "page not found", Code: engineErr.Code}
		case engineErr.Kind == errors.KindValidation,
			engineErr.Code == errors.ErrCodeParamsInvalid:
			status = http.StatusBadRequest
			body = errorResponse{
				Error:      engineErr.Message,
				Code:       engineErr.Code,
				Violations: engineErr.Violations,
			}
		case engineErr.Kind == errors.KindRender:
			status = http.StatusBadRequest
			body = errorResponse{Error: "page could not be rendered", Code: engineErr.Code}
		}
	}

	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), err, "request failed", "path", r.URL.Path)
	} else {
		s.logger.Debug(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
