// SPDX-License-Identifier: AGPL-3.0-or-later
package events

import (
	"bytes"
	"strings"
	"testing"
)

type recordingSink struct {
	lines []string
}

func (r *recordingSink) EmitRunQueued(string, int64)              {}
func (r *recordingSink) EmitRunStart(string, int64)               {}
func (r *recordingSink) EmitRunPreempted(string, int64, string)   {}
func (r *recordingSink) EmitRunRequeued(string, int64, string)    {}
func (r *recordingSink) EmitRunFinish(string, string, int, error) {}
func (r *recordingSink) EmitRunLog(runID, channel, message string) {
	r.lines = append(r.lines, channel+":"+message)
}

func TestLogWriterTeesAndSplitsLines(t *testing.T) {
	sink := &recordingSink{}
	var out bytes.Buffer
	w := NewLogWriter(sink, "run-1", "stdout", &out)

	if _, err := w.Write([]byte("epoch 0\nepo")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Write([]byte("ch 1\ntail")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Flush()

	if got := out.String(); got != "epoch 0\nepoch 1\ntail" {
		t.Fatalf("tee output = %q", got)
	}
	want := []string{"stdout:epoch 0", "stdout:epoch 1", "stdout:tail"}
	if len(sink.lines) != len(want) {
		t.Fatalf("lines = %v, want %v", sink.lines, want)
	}
	for i, line := range want {
		if sink.lines[i] != line {
			t.Fatalf("line %d = %q, want %q", i, sink.lines[i], line)
		}
	}
}

func TestEmitterTextOutput(t *testing.T) {
	var out bytes.Buffer
	em := NewEmitter(&out, false)
	em.EmitRunLog("run-1", "stderr", "loss diverged")
	em.EmitRunFinish("run-1", "failed", 1, nil)

	text := out.String()
	if !strings.Contains(text, "run.log run=run-1 channel=stderr msg=loss diverged") {
		t.Fatalf("missing log line in %q", text)
	}
	if !strings.HasPrefix(text, "[1] ") || !strings.Contains(text, "[2] run.finish") {
		t.Fatalf("sequence numbering wrong in %q", text)
	}
}

func TestCompositeSinkFansOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	sink := NewCompositeSink(a, nil, b)
	sink.EmitRunLog("run-1", "stdout", "hello")
	if len(a.lines) != 1 || len(b.lines) != 1 {
		t.Fatalf("fan-out missed a sink: a=%v b=%v", a.lines, b.lines)
	}
	if NewCompositeSink(nil, nil) != nil {
		t.Fatal("all-nil composite should collapse to nil")
	}
	if got := NewCompositeSink(a); got != a {
		t.Fatal("single sink should pass through")
	}
}

func TestGenerateRunIDPrefix(t *testing.T) {
	id := GenerateRunID()
	if !strings.HasPrefix(id, "run-") {
		t.Fatalf("id = %q", id)
	}
	if id == GenerateRunID() {
		t.Fatal("ids must be unique")
	}
}
