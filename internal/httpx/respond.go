package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/JairHAM/pos-api/internal/apperr"
	"github.com/JairHAM/pos-api/internal/observability"
)

var (
	errInvalidJSON  = apperr.Validation("invalid_json", "invalid request body")
	errInvalidDate  = apperr.Validation("invalid_date", "invalid date, use RFC3339 or YYYY-MM-DD")
	errInvalidQuery = apperr.Validation("invalid_query", "invalid query parameter")
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"error", "code", ...details}. Internal causes are
// logged and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	if e.Kind == apperr.KindInternal {
		observability.FromContext(r.Context(), nil).Error("request failed", zap.Error(err))
	}
	body := map[string]any{}
	for k, v := range e.Details {
		body[k] = v
	}
	body["error"] = e.Message
	body["code"] = e.Code
	writeJSON(w, e.Kind.HTTPStatus(), body)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errInvalidJSON.WithDetails("reason", "empty body")
		}
		return errInvalidJSON.Wrap(err)
	}
	return nil
}
