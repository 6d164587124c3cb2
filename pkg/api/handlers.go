package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mercator-hq/warden/pkg/engine"
	"mercator-hq/warden/pkg/evolution"
	"mercator-hq/warden/pkg/ledger"
	"mercator-hq/warden/pkg/profile"
	"mercator-hq/warden/pkg/security/auth"
)

// Paging limits for /v1/ledger/records.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

type handler struct {
	engine   *engine.Engine
	verifier ledger.Verifier
	profiles profile.Options
	maxBody  int64
	logger   *slog.Logger
}

// RecordPage is the response of GET /v1/ledger/records.
type RecordPage struct {
	Total   int64            `json:"total"`
	Offset  int64            `json:"offset"`
	Head    string           `json:"head"`
	Records []*ledger.Record `json:"records"`
}

// VerifyResponse is the response of GET /v1/ledger/verify.
type VerifyResponse struct {
	OK      bool   `json:"ok"`
	Records int64  `json:"records"`
	Head    string `json:"head"`
	Index   *int64 `json:"index,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BindingResponse describes a corridor's profile binding.
type BindingResponse struct {
	Corridor string           `json:"corridor"`
	Active   string           `json:"active"`
	History  []string         `json:"history"`
	Profile  *profile.Profile `json:"profile,omitempty"`
}

func (h *handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var p evolution.Proposal
	if err := h.decode(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}

	dec, err := h.engine.Evaluate(r.Context(), &p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dec)
}

func (h *handler) listRecords(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		h.writeError(w, r, badRequest("offset must be a non-negative integer"))
		return
	}
	limit, err := queryInt(r, "limit", DefaultPageSize)
	if err != nil || limit <= 0 {
		h.writeError(w, r, badRequest("limit must be a positive integer"))
		return
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	l := h.engine.Ledger()
	records, err := l.Records(r.Context(), offset, int(limit))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []*ledger.Record{}
	}
	writeJSON(w, http.StatusOK, RecordPage{
		Total:   l.Len(),
		Offset:  offset,
		Head:    l.Head(),
		Records: records,
	})
}

func (h *handler) getRecord(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.ParseInt(chi.URLParam(r, "seq"), 10, 64)
	if err != nil || seq < 0 {
		h.writeError(w, r, badRequest("sequence must be a non-negative integer"))
		return
	}

	records, err := h.engine.Ledger().Records(r.Context(), seq, 1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(records) == 0 {
		h.writeError(w, r, notFound(fmt.Sprintf("no record at sequence %d", seq)))
		return
	}
	writeJSON(w, http.StatusOK, records[0])
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	l := h.engine.Ledger()
	resp := VerifyResponse{OK: true, Records: l.Len(), Head: l.Head()}

	err := l.VerifyChain(r.Context(), h.verifier)
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	var cie *ledger.ChainIntegrityError
	if !errors.As(err, &cie) {
		h.writeError(w, r, err)
		return
	}

	h.logger.ErrorContext(r.Context(), "Chain verification failed", "index", cie.Index, "reason", cie.Reason, "error", err)
	resp.OK = false
	resp.Index = &cie.Index
	resp.Reason = cie.Reason
	resp.Error = err.Error()
	writeJSON(w, http.StatusConflict, resp)
}

func (h *handler) listBindings(w http.ResponseWriter, r *http.Request) {
	bindings := h.engine.Store().Bindings()
	out := make([]BindingResponse, len(bindings))
	for i, b := range bindings {
		out[i] = BindingResponse{Corridor: b.CorridorID, Active: b.Active.Ref(), History: refs(b.History)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getBinding(w http.ResponseWriter, r *http.Request) {
	corridor := chi.URLParam(r, "corridor")
	s := h.engine.Store()

	active, ok := s.Active(corridor)
	if !ok {
		h.writeError(w, r, notFound(fmt.Sprintf("corridor %q is not bound", corridor)))
		return
	}
	writeJSON(w, http.StatusOK, BindingResponse{
		Corridor: corridor,
		Active:   active.Ref(),
		History:  refs(s.History(corridor)),
		Profile:  active,
	})
}

func (h *handler) supersede(w http.ResponseWriter, r *http.Request) {
	corridor := chi.URLParam(r, "corridor")

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	opts := h.profiles
	opts.Source = "api"
	next, err := profile.ParseWithOptions(data, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.engine.Supersede(r.Context(), corridor, next); err != nil {
		h.writeError(w, r, err)
		return
	}
	if key, ok := auth.GetAPIKeyInfo(r.Context()); ok {
		h.logger.Info("Corridor superseded by API key", "corridor", corridor, "profile", next.Ref(), "key", key.Name)
	}

	s := h.engine.Store()
	writeJSON(w, http.StatusOK, BindingResponse{
		Corridor: corridor,
		Active:   next.Ref(),
		History:  refs(s.History(corridor)),
	})
}

// decode reads a JSON body into v, rejecting unknown fields and trailing data.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	if dec.More() {
		return badRequest("invalid request body: trailing data")
	}
	return nil
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	var ae *apiError
	if errors.As(err, &ae) {
		status, code = ae.status, ae.code
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Request failed", "error", err, "code", code)
		if code == CodeInternal {
			msg = http.StatusText(status)
		}
	}
	writeJSON(w, status, ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

type apiError struct {
	status int
	code   string
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &apiError{status: http.StatusBadRequest, code: CodeBadRequest, msg: msg}
}

func notFound(msg string) error {
	return &apiError{status: http.StatusNotFound, code: CodeNotFound, msg: msg}
}

func queryInt(r *http.Request, key string, def int64) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func refs(profiles []*profile.Profile) []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = p.Ref()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
