package hooks

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/yanizio/wpmanager/internal/discovery"
	"github.com/yanizio/wpmanager/internal/gateway"
	"github.com/yanizio/wpmanager/internal/provision"
	"github.com/yanizio/wpmanager/internal/site"
)

// maxBody caps request bodies.  Hook payloads are a few hundred bytes.
const maxBody = 64 << 10

// apiError is the error half of every failed response.
type apiError struct {
	Code     string              `json:"code"`
	Message  string              `json:"message"`
	Stage    provision.Stage     `json:"stage,omitempty"`
	Problems []provision.Problem `json:"problems,omitempty"`
	Created  []string            `json:"created,omitempty"`
}

type errorBody struct {
	Error  apiError          `json:"error"`
	Result *provision.Result `json:"result,omitempty"`
}

// decode reads a JSON body into dst.  It answers 400 itself and returns
// false on failure.  An empty body leaves dst at its zero value.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: apiError{Code: code, Message: msg}})
}

// respond writes an orchestrator Result.  On failure the Result travels
// beside the error so the caller sees the state reached and any warnings.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, res *provision.Result, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}
	status, body := classify(err)
	body.Result = res
	h.logFailure(r, status, err)
	writeJSON(w, status, body)
}

// fail writes err without a Result.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	h.logFailure(r, status, err)
	writeJSON(w, status, body)
}

func (h *Handler) logFailure(r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Errorw("request failed", "path", r.URL.Path, "status", status, "err", err)
		return
	}
	h.log.Infow("request refused", "path", r.URL.Path, "status", status, "err", err)
}

// Fixed not_found messages.  The error chain is logged, never returned.
const (
	msgAccountNotFound      = "Hosting account not found or access denied"
	msgSiteNotFound         = "Site not found"
	msgInstallationNotFound = "WordPress installation not found on the hosting account"
)

// classify maps the error taxonomy onto HTTP.
//
//	ValidationError         422
//	not found (any layer)   404, fixed message
//	PartialSuccessError     500, lists what exists remotely
//	RemoteRejection         502
//	TransportError          502, or 504 when timeout-class
//	anything else           500
func classify(err error) (int, errorBody) {
	body := errorBody{Error: apiError{Code: "internal", Message: err.Error()}}

	var stage *provision.StageError
	if errors.As(err, &stage) {
		body.Error.Stage = stage.Stage
	}

	var ve provision.ValidationError
	var ps *provision.PartialSuccessError
	var rr *gateway.RemoteRejection
	var te *gateway.TransportError
	switch {
	case errors.As(err, &ve):
		body.Error.Code = "invalid_input"
		body.Error.Problems = ve.Problems
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &ps):
		body.Error.Code = "partial_success"
		body.Error.Created = ps.Created
		return http.StatusInternalServerError, body
	case errors.Is(err, gateway.ErrAccountNotFound):
		body.Error.Code, body.Error.Message = "not_found", msgAccountNotFound
		return http.StatusNotFound, body
	case errors.Is(err, site.ErrNotFound):
		body.Error.Code, body.Error.Message = "not_found", msgSiteNotFound
		return http.StatusNotFound, body
	case errors.Is(err, discovery.ErrNotFound):
		body.Error.Code, body.Error.Message = "not_found", msgInstallationNotFound
		return http.StatusNotFound, body
	case errors.As(err, &rr):
		body.Error.Code = "remote_rejected"
		return http.StatusBadGateway, body
	case errors.As(err, &te):
		if gateway.IsTimeout(err) {
			body.Error.Code = "remote_timeout"
			return http.StatusGatewayTimeout, body
		}
		body.Error.Code = "remote_unavailable"
		return http.StatusBadGateway, body
	}
	return http.StatusInternalServerError, body
}
