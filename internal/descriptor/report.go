package descriptor

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"fbsgen/internal/common"
)

// Severity ranks a Diagnostic.
type Severity int

const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return common.UnknownStr
	}
}

// Diagnostic is one finding about a declaration or one of its fields.
type Diagnostic struct {
	Severity Severity
	// Code identifies the kind of finding, e.g. "duplicate_field".
	Code    string
	Message string
	// Type is the declaration the finding is about; zero for findings
	// that concern no single type.
	Type  TypeID
	Field string
	// Hints suggest a fix. Report.Err attaches them to the error.
	Hints []string
}

// Location returns "pkg.Type.field", "pkg.Type" or "".
func (d Diagnostic) Location() string {
	loc := d.Type.String()

	switch {
	case d.Field == "":
		return loc
	case loc == "":
		return d.Field
	default:
		return loc + "." + d.Field
	}
}

func (d Diagnostic) String() string {
	msg := "[" + d.Code + "] " + d.Message
	if loc := d.Location(); loc != "" {
		return loc + ": " + msg
	}

	return msg
}

// Report collects the diagnostics of one validation pass in the order they
// were found.
type Report struct {
	items []Diagnostic
}

// Fail records an error.
func (r *Report) Fail(code string, at TypeID, field, message string, hints ...string) {
	r.items = append(r.items, Diagnostic{
		Severity: SeverityError, Code: code, Message: message, Type: at, Field: field, Hints: hints,
	})
}

// Warn records a problem that does not stop generation.
func (r *Report) Warn(code string, at TypeID, field, message string) {
	r.items = append(r.items, Diagnostic{Severity: SeverityWarning, Code: code, Message: message, Type: at, Field: field})
}

// Note records an observation, e.g. a declaration nothing refers to.
func (r *Report) Note(code string, at TypeID, field, message string) {
	r.items = append(r.items, Diagnostic{Severity: SeverityNote, Code: code, Message: message, Type: at, Field: field})
}

// Merge appends the findings of other.
func (r *Report) Merge(other *Report) {
	if other != nil {
		r.items = append(r.items, other.items...)
	}
}

func (r *Report) Errors() []Diagnostic   { return r.filter(SeverityError) }
func (r *Report) Warnings() []Diagnostic { return r.filter(SeverityWarning) }
func (r *Report) Notes() []Diagnostic    { return r.filter(SeverityNote) }

func (r *Report) filter(s Severity) []Diagnostic {
	var out []Diagnostic

	for _, d := range r.items {
		if d.Severity == s {
			out = append(out, d)
		}
	}

	return out
}

// HasErrors reports whether any error was recorded.
func (r *Report) HasErrors() bool {
	for _, d := range r.items {
		if d.Severity == SeverityError {
			return true
		}
	}

	return false
}

// Err folds the errors into one error marked ErrInvalidDescriptor, carrying
// every hint. It returns nil when there are none.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}

	parts := make([]string, 0, len(errs))
	for _, d := range errs {
		parts = append(parts, d.String())
	}

	msg := strings.Join(parts, "; ")
	if len(errs) > 1 {
		msg = fmt.Sprintf("%d problems: %s", len(errs), msg)
	}

	err := errors.Newf("%s", msg)

	for _, d := range errs {
		for _, h := range d.Hints {
			if loc := d.Location(); loc != "" {
				h = loc + ": " + h
			}

			err = errors.WithHint(err, h)
		}
	}

	return errors.Mark(err, ErrInvalidDescriptor)
}
