package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter renders reports as indented JSON
type JSONFormatter struct {
	Indent string
}

// NewJSONFormatter creates a JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{Indent: "  "}
}

// Format returns FormatJSON
func (f *JSONFormatter) Format() Format {
	return FormatJSON
}

// Render encodes the report. Findings are always an array.
func (f *JSONFormatter) Render(w io.Writer, r *Report) error {
	out := *r
	if out.Findings == nil {
		out.Findings = []string{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", f.Indent)
	return enc.Encode(&out)
}
