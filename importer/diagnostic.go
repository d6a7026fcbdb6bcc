package importer

import (
	"fmt"
	"log"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_project/status"
)

type Kind int

const (
	// a record could not produce or locate a live entity
	RecordUnresolvable Kind = iota
	// a lookup by id or name found nothing, the reference is dropped
	ReferenceDangling
	// no constructor registered for a material type or post-process name
	FactoryUnavailable
	// a factory returned an error or panicked
	RecordFailed
)

func (k Kind) String() string {
	switch k {
	case RecordUnresolvable:
		return "RecordUnresolvable"
	case ReferenceDangling:
		return "ReferenceDangling"
	case FactoryUnavailable:
		return "FactoryUnavailable"
	case RecordFailed:
		return "RecordFailed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Diagnostic describes one record or reference skipped during import
type Diagnostic struct {
	Kind   Kind
	Pass   string
	Record string
	Err    error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%v: %s in pass %s: %v", d.Kind, d.Record, d.Pass, d.Err)
}

// kindError carries the diagnostic kind through errors.Wrap chains
type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func unresolvable(format string, args ...interface{}) error {
	return &kindError{kind: RecordUnresolvable, msg: fmt.Sprintf(format, args...)}
}

func unavailable(format string, args ...interface{}) error {
	return &kindError{kind: FactoryUnavailable, msg: fmt.Sprintf(format, args...)}
}

func kindOf(err error) Kind {
	if ke, ok := errors.Cause(err).(*kindError); ok {
		return ke.kind
	}
	return RecordFailed
}

// DiagnosticsError is returned in strict mode when the import produced
// any diagnostic
type DiagnosticsError struct {
	Diagnostics []Diagnostic
}

func (e *DiagnosticsError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Import produced %d diagnostics", len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		sb.WriteString("\n\t")
		sb.WriteString(d.String())
	}
	return sb.String()
}

// LogDiagnostic is the default sink: log plus the status side channel
func LogDiagnostic(d Diagnostic) {
	log.Printf("[importer] %v", d)
	if d.Kind == ReferenceDangling {
		status.Info("%s: %v", d.Record, d.Err)
	} else {
		status.Error("%s: %v", d.Record, d.Err)
	}
}

// LogProgress is the default progress reporter
func LogProgress(pass string, index, total int) {
	status.Progress(float32(index)/float32(total), "Importing %s (%d/%d)", pass, index, total)
}
