package history

import "github.com/kestrelworks/spatial-core/internal/rule"

// EventWriter is the subset of the InfluxDB client the recorder needs.
type EventWriter interface {
	WriteRuleEvent(ruleID string, eventType string, state bool, streams map[string]float64)
}

// Recorder persists rule events to a time-series backend.
//
// It implements rule.Sink. Writes are delegated to the underlying
// client's non-blocking batch writer, so recording never stalls the
// engine's tick thread.
type Recorder struct {
	writer EventWriter
}

// NewRecorder creates a recorder that writes events through w.
func NewRecorder(w EventWriter) *Recorder {
	return &Recorder{writer: w}
}

// PublishRuleEvent flattens the event's published streams to numeric
// fields and records the transition.
func (r *Recorder) PublishRuleEvent(ev rule.WireEvent) {
	r.writer.WriteRuleEvent(ev.ID, ev.Type, ev.State, flattenStreams(ev.Streams))
}

// flattenStreams extracts numeric values from serialized streams.
// Scalar streams keep their name; record streams (vectors, orientations)
// contribute one field per numeric component, joined with a dot.
// Non-numeric values are dropped.
func flattenStreams(streams map[string]any) map[string]float64 {
	if len(streams) == 0 {
		return nil
	}

	fields := make(map[string]float64)
	for name, value := range streams {
		switch v := value.(type) {
		case float64:
			fields[name] = v
		case int:
			fields[name] = float64(v)
		case map[string]any:
			for component, cv := range v {
				if f, ok := cv.(float64); ok {
					fields[name+"."+component] = f
				}
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
