package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/fitmeasure/internal/domain/model"
	"github.com/okian/fitmeasure/internal/domain/types"
)

// IdempotencyKeyHeader lets clients retry job submissions safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// idempotencyKeyRule bounds the header value.
const idempotencyKeyRule = "omitempty,max=128,printascii"

// validate reports fields by their JSON names.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// decodeBody reads a JSON body of at most limit bytes into v and validates it.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("empty request body")
		default:
			return fmt.Errorf("invalid JSON: %w", err)
		}
	}
	if err := validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError turns validator output into a short client-facing message.
func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		// Drop the root type name: "RunRequest.input.image" -> "input.image".
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		if fe.Tag() == "required" {
			msgs = append(msgs, "missing "+field)
			continue
		}
		msgs = append(msgs, fmt.Sprintf("invalid %s (%s)", field, fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// jobInput combines the decoded body with the idempotency key header.
func jobInput(r *http.Request, req types.MeasureRequest) (model.JobInput, error) {
	in := req.Input()
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if err := validate.Var(key, idempotencyKeyRule); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			return in, fmt.Errorf("invalid %s header (%s)", IdempotencyKeyHeader, errs[0].Tag())
		}
		return in, err
	}
	in.IdempotencyKey = key
	return in, nil
}
