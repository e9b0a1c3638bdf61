package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrPurchaseNotFound  = errors.New("purchase not found")
	ErrSchedulingFailure = errors.New("reminder scheduling failed")
	ErrDeliveryFailure   = errors.New("reminder delivery failed")
)

// ValidationError 汇总一次请求中所有字段的校验错误，调用方可以一次性展示给用户。
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap 让 errors.Is(err, ErrValidation) 成立
func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
