package security

import "context"

// MultiRecorder fans an audit event out to every configured Recorder. Used
// to log events live while also persisting them durably.
type MultiRecorder struct {
	recorders []Recorder
}

// NewMultiRecorder combines recorders, skipping any nil entries.
func NewMultiRecorder(recorders ...Recorder) *MultiRecorder {
	filtered := make([]Recorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			filtered = append(filtered, r)
		}
	}
	return &MultiRecorder{recorders: filtered}
}

// Record implements Recorder.
func (m *MultiRecorder) Record(ctx context.Context, event Event) {
	if m == nil {
		return
	}
	for _, r := range m.recorders {
		r.Record(ctx, event)
	}
}
