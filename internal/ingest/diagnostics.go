package ingest

// Level grades a diagnostic. ERROR entries mean records were dropped; the
// import itself still proceeds with whatever resolved cleanly.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Diagnostic is one import finding: a stable code, a human message, and the
// identifying context (source, entity, field, missing id).
type Diagnostic struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Level   Level             `json:"level"`
	Context map[string]string `json:"context,omitempty"`
}

// Diagnostics accumulates findings across an import run.
type Diagnostics struct {
	Entries []Diagnostic `json:"entries"`
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Add records one finding.
func (d *Diagnostics) Add(code, message string, level Level, context map[string]string) {
	d.Entries = append(d.Entries, Diagnostic{
		Code:    code,
		Message: message,
		Level:   level,
		Context: context,
	})
}

// Extend merges another collection's entries, preserving order.
func (d *Diagnostics) Extend(other *Diagnostics) {
	if other == nil {
		return
	}
	d.Entries = append(d.Entries, other.Entries...)
}

// HasErrors reports whether any entry is at ERROR level.
func (d *Diagnostics) HasErrors() bool {
	for _, entry := range d.Entries {
		if entry.Level == LevelError {
			return true
		}
	}
	return false
}

func (d *Diagnostics) Len() int {
	return len(d.Entries)
}
