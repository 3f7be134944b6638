package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/collections"
	"github.com/algomintai/algomint/internal/confirm"
	"github.com/algomintai/algomint/internal/constants"
)

func normalizeOrigin(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	u, err := url.Parse(in)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s", strings.ToLower(u.Scheme), strings.ToLower(u.Host))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSONBody(r *http.Request, out any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, constants.MaxDocumentBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// statusFor maps an error kind to the status the API reports it with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, confirm.ErrExpired):
		return http.StatusGone
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConfirmation):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrUpload),
		errors.Is(err, apperr.ErrCollectionResolution),
		errors.Is(err, apperr.ErrChainSubmission),
		errors.Is(err, apperr.ErrGeneration),
		errors.Is(err, apperr.ErrIndex):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	kind := "internal"
	if k := apperr.Kind(err); k != nil {
		kind = k.Error()
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]any{JSONKeyError: err.Error(), JSONKeyKind: kind})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{JSONKeyError: msg, JSONKeyKind: apperr.ErrInvalidInput.Error()})
}

func assetIDVar(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[PathVarAssetID], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// formFile reads an optional multipart file. A missing field yields nil.
func formFile(r *http.Request, field string) (*collections.File, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readPart(f, hdr)
}

func readPart(f multipart.File, hdr *multipart.FileHeader) (*collections.File, error) {
	data, err := io.ReadAll(io.LimitReader(f, constants.MaxUploadBytes))
	if err != nil {
		return nil, err
	}
	return &collections.File{
		Name:     hdr.Filename,
		Mimetype: hdr.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
