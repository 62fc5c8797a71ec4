package document

import (
	"fmt"
	"strings"
)

// ValidationErrors accumulates every validation problem found while
// walking a Document, so a submitter sees the full list instead of
// stopping at the first mistake. The collector shape (Add/AddError/
// HasErrors/Error) is the teacher's pkg/errors/validation.ValidationErrors;
// AddStepError is this package's own addition, scoping a message to the
// (job, step) pair a submitter needs to find the offending step directly
// rather than just its job.
type ValidationErrors struct {
	errors []string
}

// Add records a new validation error with a formatted message.
func (v *ValidationErrors) Add(format string, args ...interface{}) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

// AddError records a new validation error scoped to a path, e.g. a job
// name.
func (v *ValidationErrors) AddError(path, message string) {
	v.errors = append(v.errors, fmt.Sprintf("%s: %s", path, message))
}

// AddStepError records a new validation error scoped to a step within a
// job, formatted as "job/step: message".
func (v *ValidationErrors) AddStepError(job, step, message string) {
	v.errors = append(v.errors, fmt.Sprintf("%s/%s: %s", job, step, message))
}

// HasErrors reports whether any validation error has been recorded.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.errors) > 0
}

// Error implements the error interface by joining every recorded problem.
func (v *ValidationErrors) Error() string {
	return strings.Join(v.errors, "\n")
}
