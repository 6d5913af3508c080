// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shashiranjanraj/kisanmart/config"
	"github.com/shashiranjanraj/kisanmart/pkg/validate"
)

// maxBodyBytes returns the configured request body size limit (default 1 MB).
func maxBodyBytes() int64 {
	if n := config.Int("MAX_BODY_BYTES", 1<<20); n > 0 {
		return int64(n)
	}
	return 1 << 20
}

// JSON decodes r.Body as JSON into dest and runs validation.
// Returns (errs, nil) when there are validation failures and (nil, err) when
// the body is malformed or too large. An empty body decodes as {}.
func JSON(r *http.Request, dest interface{}) (errs map[string]string, err error) {
	if err = Decode(r, dest); err != nil {
		return nil, err
	}
	if errs = validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}

// Decode is JSON without validation, for payloads whose rules depend on
// more than their own fields.
func Decode(r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
