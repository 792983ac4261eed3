package domain

import (
	"fmt"
	"strings"
)

// ValidationProblem points at one invalid part of an export definition.
type ValidationProblem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError is raised before any I/O when a filter tree, column list or
// format cannot be run.
type ValidationError struct {
	Problems []ValidationProblem `json:"problems"`
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "invalid export definition"
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if p.Path == "" {
			parts = append(parts, p.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", p.Path, p.Message))
	}
	return "invalid export definition: " + strings.Join(parts, "; ")
}

// Add records a problem.
func (e *ValidationError) Add(path, format string, args ...any) {
	e.Problems = append(e.Problems, ValidationProblem{Path: path, Message: fmt.Sprintf(format, args...)})
}

// OrNil returns the error only when problems were recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}
