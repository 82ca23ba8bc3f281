// SPDX-License-Identifier: AGPL-3.0-or-later

package evalmetrics

import (
	"math"
	"strings"
	"testing"
)

func TestWeightedMean(t *testing.T) {
	var m NLL
	m.Update(2.0, 1.0)
	m.Update(4.0, 3.0)
	if got := m.Compute(); math.Abs(got-3.5) > 1e-12 {
		t.Fatalf("mean = %v, want 3.5", got)
	}
	if got := m.Weight(); got != 4.0 {
		t.Fatalf("weight = %v, want 4", got)
	}
}

func TestNaNObservationsDropped(t *testing.T) {
	var m NLL
	m.Update(math.NaN(), 10.0)
	m.Update(2.0, math.NaN())
	m.Update(3.0, 2.0)
	if got := m.Compute(); got != 3.0 {
		t.Fatalf("mean = %v, want 3", got)
	}
}

func TestEmptyComputeIsNaN(t *testing.T) {
	var m NLL
	if got := m.Compute(); !math.IsNaN(got) {
		t.Fatalf("empty mean = %v, want NaN", got)
	}
}

func TestBPDAndPerplexity(t *testing.T) {
	var bpd BPD
	var ppl Perplexity
	bpd.Update(math.Ln2, 1.0)
	ppl.Update(math.Ln2, 1.0)
	if got := bpd.Compute(); math.Abs(got-1.0) > 1e-12 {
		t.Fatalf("bpd = %v, want 1", got)
	}
	if got := ppl.Compute(); math.Abs(got-2.0) > 1e-12 {
		t.Fatalf("ppl = %v, want 2", got)
	}
}

func TestScrape(t *testing.T) {
	log := strings.Join([]string{
		"loading checkpoint /ckpt/step-90000.pt",
		"batch 0: nll=2.0 tokens=1024",
		"batch 1: nll=4.0 tokens=3072",
		"saving samples",
		"batch 2: nll=not-a-number tokens=10",
	}, "\n")

	sum, err := Scrape(strings.NewReader(log))
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if sum.Batches != 2 {
		t.Fatalf("batches = %d, want 2", sum.Batches)
	}
	if math.Abs(sum.NLL-3.5) > 1e-12 {
		t.Fatalf("nll = %v, want 3.5", sum.NLL)
	}
	if sum.Tokens != 4096 {
		t.Fatalf("tokens = %v, want 4096", sum.Tokens)
	}
	if math.Abs(sum.BPD-3.5/math.Ln2) > 1e-12 {
		t.Fatalf("bpd = %v", sum.BPD)
	}
	if math.Abs(sum.Perplexity-math.Exp(3.5)) > 1e-9 {
		t.Fatalf("ppl = %v", sum.Perplexity)
	}
}

func TestScrapeEmptyLog(t *testing.T) {
	sum, err := Scrape(strings.NewReader("nothing to see\n"))
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if sum.Batches != 0 || !math.IsNaN(sum.NLL) {
		t.Fatalf("expected empty summary, got %+v", sum)
	}
}
