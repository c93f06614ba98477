package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	svcerrors "github.com/R3E-Network/submission_review/internal/errors"
	"github.com/R3E-Network/submission_review/internal/httputil"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return svcerrors.Validation("request body is required")
		}
		return svcerrors.Validationf("invalid request body: %v", err)
	}
	if dec.More() {
		return svcerrors.Validation("request body must contain a single JSON object")
	}
	return nil
}

// writeError renders err as the JSON error envelope. Server errors are
// logged with their cause and answered with a generic message.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	se := svcerrors.GetServiceError(err)
	if se == nil {
		se = svcerrors.Internal("unexpected error", err)
	}
	if se.HTTPStatus >= http.StatusInternalServerError {
		h.log.WithContext(r.Context()).
			WithError(err).
			WithField("method", r.Method).
			WithField("path", r.URL.Path).
			Error("request failed")
		httputil.WriteErrorResponse(w, r, se.HTTPStatus, string(se.Code), "internal server error", nil)
		return
	}
	httputil.WriteErrorResponse(w, r, se.HTTPStatus, string(se.Code), se.Message, se.Details)
}

func (h *handler) notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteErrorResponse(w, r, http.StatusNotFound, string(svcerrors.CodeNotFound),
		fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path), nil)
}

func (h *handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteErrorResponse(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
		fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path), nil)
}
