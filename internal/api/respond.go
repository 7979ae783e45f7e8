package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"expertcheck/internal/apperrors"
	"expertcheck/internal/logger"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error          apperrors.Code `json:"error"`
	Message        string         `json:"message"`
	Stage          string         `json:"stage,omitempty"`
	Reconciliation *bool          `json:"reconciliation,omitempty"`
}

// respondError renders err with the status its code maps to. Errors without
// a domain code are logged and reported as internal errors.
func respondError(c *gin.Context, log logger.Logger, err error) {
	code := apperrors.GetCode(err)
	status := code.HTTPStatus()
	body := errorBody{Error: code, Message: err.Error()}

	switch {
	case code == apperrors.CodeUnknown:
		log.Error("Unhandled request error",
			logger.String("path", c.Request.URL.Path),
			logger.Error(err),
		)
		body.Message = "internal error"
	case code == apperrors.CodeCommitFailed:
		needs := apperrors.NeedsReconciliation(err)
		body.Reconciliation = &needs
		body.Stage = apperrors.Stage(err)
	case status >= http.StatusInternalServerError:
		log.Error("Request failed", logger.String("path", c.Request.URL.Path), logger.Error(err))
	default:
		log.Debug("Request rejected", logger.String("path", c.Request.URL.Path), logger.Error(err))
	}

	c.AbortWithStatusJSON(status, body)
}

// bindJSON decodes exactly one JSON object into dst, rejecting unknown fields.
func bindJSON(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Validation("request body is required")
		}
		return apperrors.Validation(fmt.Sprintf("invalid request payload: %v", err))
	}
	if err := ensureSingleJSON(dec); err != nil {
		return err
	}
	return nil
}

// ensureSingleJSON ensures only a single JSON object is in the request body.
func ensureSingleJSON(dec *json.Decoder) error {
	if t, err := dec.Token(); err != io.EOF || t != nil {
		return apperrors.Validation("request body must only contain a single JSON object")
	}
	return nil
}
