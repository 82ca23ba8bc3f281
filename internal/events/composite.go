package events

// Sink represents something that can consume run lifecycle events.
type Sink interface {
	EmitRunQueued(runID string, jobID int64)
	EmitRunStart(runID string, jobID int64)
	EmitRunPreempted(runID string, jobID int64, logPath string)
	EmitRunRequeued(runID string, jobID int64, logPath string)
	EmitRunFinish(runID string, status string, exitCode int, err error)
	EmitRunLog(runID, channel, message string)
}

// CompositeSink fan-outs emitted events to multiple sinks.
type CompositeSink struct {
	sinks []Sink
}

// NewCompositeSink returns a sink that forwards events to all provided sinks.
func NewCompositeSink(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return &CompositeSink{sinks: filtered}
	}
}

func (c *CompositeSink) EmitRunQueued(runID string, jobID int64) {
	for _, s := range c.sinks {
		s.EmitRunQueued(runID, jobID)
	}
}

func (c *CompositeSink) EmitRunStart(runID string, jobID int64) {
	for _, s := range c.sinks {
		s.EmitRunStart(runID, jobID)
	}
}

func (c *CompositeSink) EmitRunPreempted(runID string, jobID int64, logPath string) {
	for _, s := range c.sinks {
		s.EmitRunPreempted(runID, jobID, logPath)
	}
}

func (c *CompositeSink) EmitRunRequeued(runID string, jobID int64, logPath string) {
	for _, s := range c.sinks {
		s.EmitRunRequeued(runID, jobID, logPath)
	}
}

func (c *CompositeSink) EmitRunFinish(runID string, status string, exitCode int, err error) {
	for _, s := range c.sinks {
		s.EmitRunFinish(runID, status, exitCode, err)
	}
}

func (c *CompositeSink) EmitRunLog(runID, channel, message string) {
	for _, s := range c.sinks {
		s.EmitRunLog(runID, channel, message)
	}
}
