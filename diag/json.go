package diag

import (
	"io"

	"github.com/segmentio/encoding/json"
)

type jsonDiagnostic struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	EndLine  int    `json:"endLine"`
	EndCol   int    `json:"endColumn"`
	Code     Code   `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// MarshalJSON renders the list as an array of flat records for build tools.
func (l List) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.records(""))
}

// WriteJSON writes the list as a JSON array, tagging every record with file.
func WriteJSON(w io.Writer, file string, l List) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l.records(file))
}

func (l List) records(file string) []jsonDiagnostic {
	out := make([]jsonDiagnostic, 0, len(l))
	for _, d := range l {
		out = append(out, jsonDiagnostic{
			File:     file,
			Line:     d.Span.Start.Line,
			Column:   d.Span.Start.Column,
			EndLine:  d.Span.End.Line,
			EndCol:   d.Span.End.Column,
			Code:     d.Code,
			Severity: d.Severity.String(),
			Message:  d.Message,
		})
	}
	return out
}
