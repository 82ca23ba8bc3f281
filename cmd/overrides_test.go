// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import "testing"

func TestParseOverrides(t *testing.T) {
	set, err := parseOverrides([]string{
		"loader.batch_size=16",
		"data=openwebtext-split",
		"+sampling.num_sample_batches=2",
	})
	if err != nil {
		t.Fatalf("parseOverrides: %v", err)
	}
	if len(set) != 3 {
		t.Fatalf("len = %d, want 3", len(set))
	}
	if set[0].Key != "loader.batch_size" || set[0].Value != "16" || set[0].New {
		t.Fatalf("unexpected first override: %+v", set[0])
	}
	if !set[2].New || set[2].Key != "sampling.num_sample_batches" {
		t.Fatalf("plus prefix not honored: %+v", set[2])
	}
}

func TestParseOverridesEmptyValue(t *testing.T) {
	set, err := parseOverrides([]string{"eval.checkpoint_path="})
	if err != nil {
		t.Fatalf("parseOverrides: %v", err)
	}
	if set[0].Value != "" {
		t.Fatalf("value = %q, want empty", set[0].Value)
	}
}

func TestParseOverridesRejectsBareToken(t *testing.T) {
	if _, err := parseOverrides([]string{"loader.batch_size"}); err == nil {
		t.Fatal("expected error for token without '='")
	}
	if _, err := parseOverrides([]string{"+=2"}); err == nil {
		t.Fatal("expected error for empty key")
	}
}
