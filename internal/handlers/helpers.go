package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/models"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation   *apperrors.ErrValidation
		notFound     *apperrors.ErrNotFound
		insufficient *apperrors.ErrInsufficientHoldings
		category     *apperrors.ErrInvalidAccountCategory
	)
	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: "insufficient_holdings"})
	case errors.As(err, &category):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Kind: "invalid_account_category"})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "validation"})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Kind: "not_found"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Kind: "internal"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Kind: "validation"})
}

// pathID parses a positive integer path variable.
func pathID(r *http.Request, name string) (uint, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, &apperrors.ErrValidation{Field: name, Message: "must be a positive integer"}
	}
	return uint(id), nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &apperrors.ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for bodies that may be absent.
func decodeOptionalJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &apperrors.ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// periodFromQuery reads optional start_date / end_date bounds.
func periodFromQuery(r *http.Request) (models.Period, error) {
	var p models.Period
	q := r.URL.Query()
	if s := q.Get("start_date"); s != "" {
		d, err := models.ParseDate(s)
		if err != nil {
			return p, &apperrors.ErrValidation{Field: "start_date", Message: err.Error()}
		}
		p.StartDate = d
	}
	if s := q.Get("end_date"); s != "" {
		d, err := models.ParseDate(s)
		if err != nil {
			return p, &apperrors.ErrValidation{Field: "end_date", Message: err.Error()}
		}
		p.EndDate = d
	}
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate) {
		return p, &apperrors.ErrValidation{Field: "end_date", Message: "must not be before start_date"}
	}
	return p, nil
}

// uintList parses repeated or comma-separated ids, e.g. ?account_id=1,2&account_id=3.
func uintList(values []string) ([]uint, error) {
	var out []uint
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil || id == 0 {
				return nil, &apperrors.ErrValidation{Field: "account_ids", Message: "invalid account id " + part}
			}
			out = append(out, uint(id))
		}
	}
	return out, nil
}
