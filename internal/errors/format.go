package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// FormatForCLI formats an error for terminal display: message first,
// then suggestion and code for reference.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !stderrors.As(err, &e) {
		return fmt.Sprintf("Error: %s", err.Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", e.Message))
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\nSuggestion: %s\n", e.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("[%s]", e.Code))
	return sb.String()
}

// LogAttrs flattens an error to key-value pairs for structured logging.
func LogAttrs(err error) map[string]string {
	attrs := map[string]string{"error": err.Error()}

	var e *Error
	if stderrors.As(err, &e) {
		attrs["code"] = e.Code
		attrs["category"] = string(e.Category)
		attrs["severity"] = string(e.Severity)
		for k, v := range e.Details {
			attrs[k] = v
		}
	}
	return attrs
}
