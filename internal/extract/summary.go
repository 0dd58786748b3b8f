package extract

import (
	"fmt"

	"github.com/jonasinn/fitextractor/internal/schema"
)

// Summary is the per-message-type shape of one file: row counts and the
// inferred column types of each projected table.
type Summary struct {
	names []string
	infos map[string]schema.MessageInfo
}

var _ schema.Summarizer = Summary{}

// MessageInfos implements schema.Summarizer.
func (s Summary) MessageInfos() map[string]schema.MessageInfo { return s.infos }

// Names returns the summarised message types in first-seen order.
func (s Summary) Names() []string { return append([]string(nil), s.names...) }

// Info returns the entry for one message type.
func (s Summary) Info(messageType string) (schema.MessageInfo, bool) {
	info, ok := s.infos[messageType]
	return info, ok
}

// Rows returns the total number of occurrences across message types.
func (s Summary) Rows() int {
	n := 0
	for _, info := range s.infos {
		n += info.Rows
	}
	return n
}

// Summary projects every message type and classifies its columns. The result
// is computed once.
func (e *Extractor) Summary() (Summary, error) {
	if e.summarized {
		return e.summary, nil
	}
	if !e.Processed() {
		return Summary{}, fmt.Errorf("extract: summary of %s: %w", e.src.Name(), errNotProcessed)
	}

	s := Summary{infos: make(map[string]schema.MessageInfo, len(e.order))}
	for _, name := range e.order {
		t, err := e.ProjectMessages(name)
		if err != nil {
			return Summary{}, err
		}
		s.names = append(s.names, name)
		s.infos[name] = schema.MessageInfo{Name: name, Rows: len(t.Rows), Columns: t.ColumnTypes()}
	}

	e.summary = s
	e.summarized = true
	return s, nil
}
