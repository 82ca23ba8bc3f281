// SPDX-License-Identifier: AGPL-3.0-or-later
package events

import (
	"bytes"
	"io"
)

// LogWriter tees process output into the append-mode run log while
// emitting one run.log event per line.
type LogWriter struct {
	emitter Sink
	runID   string
	channel string
	out     io.Writer
	buf     bytes.Buffer
}

func NewLogWriter(em Sink, runID, channel string, out io.Writer) *LogWriter {
	return &LogWriter{emitter: em, runID: runID, channel: channel, out: out}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if w.out != nil {
		if _, err := w.out.Write(p); err != nil {
			return 0, err
		}
	}
	start := 0
	for i, b := range p {
		if b == '\n' {
			w.buf.Write(p[start:i])
			w.flushLine()
			start = i + 1
		}
	}
	if start < len(p) {
		w.buf.Write(p[start:])
	}
	return len(p), nil
}

func (w *LogWriter) Flush() {
	if w.buf.Len() > 0 {
		w.flushLine()
	}
}

func (w *LogWriter) flushLine() {
	line := w.buf.String()
	w.buf.Reset()
	if w.emitter != nil {
		w.emitter.EmitRunLog(w.runID, w.channel, line)
	}
}
