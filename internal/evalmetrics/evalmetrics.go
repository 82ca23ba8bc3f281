// SPDX-License-Identifier: AGPL-3.0-or-later

// Package evalmetrics aggregates per-batch negative log-likelihood samples
// into the summary statistics reported for an evaluation run.
package evalmetrics

import (
	"math"
)

// NLL accumulates a weighted mean of negative log-likelihood values. The
// zero value is ready to use.
type NLL struct {
	sum    float64
	weight float64
}

// Update adds one observation with the given weight (typically the token
// count of the batch). NaN observations are dropped.
func (m *NLL) Update(value, weight float64) {
	if math.IsNaN(value) || math.IsNaN(weight) {
		return
	}
	m.sum += value * weight
	m.weight += weight
}

// Compute returns the weighted mean, or NaN when nothing was accumulated.
func (m *NLL) Compute() float64 {
	if m.weight == 0 {
		return math.NaN()
	}
	return m.sum / m.weight
}

// Weight returns the total accumulated weight.
func (m *NLL) Weight() float64 { return m.weight }

// BPD reports the mean in bits per dimension.
type BPD struct {
	NLL
}

// Compute returns mean NLL divided by ln 2.
func (m *BPD) Compute() float64 {
	return m.NLL.Compute() / math.Ln2
}

// Perplexity reports the exponentiated mean NLL.
type Perplexity struct {
	NLL
}

// Compute returns exp(mean NLL).
func (m *Perplexity) Compute() float64 {
	return math.Exp(m.NLL.Compute())
}

// Summary is the aggregate over one run's log.
type Summary struct {
	NLL        float64 `json:"nll"`
	BPD        float64 `json:"bpd"`
	Perplexity float64 `json:"ppl"`
	Tokens     float64 `json:"tokens"`
	Batches    int     `json:"batches"`
}

// Collector feeds a shared stream of observations into all three metrics.
type Collector struct {
	nll     NLL
	bpd     BPD
	ppl     Perplexity
	batches int
}

// Update records one batch observation.
func (c *Collector) Update(value, weight float64) {
	c.nll.Update(value, weight)
	c.bpd.Update(value, weight)
	c.ppl.Update(value, weight)
	c.batches++
}

// Summary computes the final statistics.
func (c *Collector) Summary() Summary {
	return Summary{
		NLL:        c.nll.Compute(),
		BPD:        c.bpd.Compute(),
		Perplexity: c.ppl.Compute(),
		Tokens:     c.nll.Weight(),
		Batches:    c.batches,
	}
}
