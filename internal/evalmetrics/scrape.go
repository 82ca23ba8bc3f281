// SPDX-License-Identifier: AGPL-3.0-or-later

package evalmetrics

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// Lines like "nll=3.1415 tokens=2048" anywhere in a log line count as one
// observation; everything else is ignored.
var observationPattern = regexp.MustCompile(`\bnll=([0-9.eE+-]+)\s+tokens=([0-9.eE+-]+)\b`)

// Scrape reads a run log and aggregates every metric observation it finds.
func Scrape(r io.Reader) (Summary, error) {
	var c Collector
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := observationPattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		weight, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		c.Update(value, weight)
	}
	if err := scanner.Err(); err != nil {
		return Summary{}, fmt.Errorf("scan log: %w", err)
	}
	return c.Summary(), nil
}
