package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chavepixclub/backend/internal/contextkeys"
	"github.com/chavepixclub/backend/internal/domain"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Warn("failed to encode JSON response", zap.Error(err))
		}
	}
}

// Error writes an error JSON response, using AppError status codes when available.
// The kind field lets clients tell a taken key apart from other failures.
func Error(w http.ResponseWriter, err error) {
	if appErr, ok := domain.AsAppError(err); ok {
		if appErr.Code >= http.StatusInternalServerError {
			zap.L().Error("request failed", zap.String("kind", string(appErr.Kind)), zap.Error(err))
		}
		JSON(w, appErr.Code, map[string]string{"error": appErr.Message, "kind": string(appErr.Kind)})
		return
	}
	zap.L().Error("unhandled error", zap.Error(err))
	JSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error", "kind": string(domain.KindInternal)})
}

// DecodeJSON decodes a JSON request body into v and runs its validate tags.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return domain.ErrBadRequest("invalid JSON body")
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return domain.ErrValidation("invalid fields: " + strings.Join(fields, ", "))
		}
		return domain.ErrValidation("invalid request")
	}
	return nil
}

// CurrentUser returns the identity placed in the context by the auth middleware.
func CurrentUser(r *http.Request) (*domain.Identity, bool) {
	id, ok := r.Context().Value(contextkeys.Identity).(*domain.Identity)
	return id, ok && id != nil && id.ID != ""
}
