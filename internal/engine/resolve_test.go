package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/runq-org/runq/internal/types"
)

func evalSchema() *types.Schema {
	return &types.Schema{
		Mode: "eval",
		Options: []types.Option{
			{Key: "loader.batch_size", Type: types.TypeInt, Default: 32},
			{Key: "data", Type: types.TypeString, Default: "default"},
		},
	}
}

func TestResolve_OverridesWinDefaultsElsewhere(t *testing.T) {
	cfg, err := Resolve(evalSchema(), types.OverrideSet{
		{Key: "loader.batch_size", Value: "16"},
		{Key: "data", Value: "openwebtext-split"},
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	want := map[string]types.ResolvedValue{
		"loader.batch_size": {Type: types.TypeInt, Value: int64(16)},
		"data":              {Type: types.TypeString, Value: "openwebtext-split"},
	}
	if diff := cmp.Diff(want, cfg.Values); diff != "" {
		t.Fatalf("resolved values mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_DefaultsWhenNotOverridden(t *testing.T) {
	cfg, err := Resolve(evalSchema(), nil)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got := cfg.Values["loader.batch_size"].Value; got != int64(32) {
		t.Fatalf("expected default 32, got %v", got)
	}
	if got := cfg.Values["data"].Value; got != "default" {
		t.Fatalf("expected default %q, got %v", "default", got)
	}
}

func TestResolve_UnflaggedUnknownKey(t *testing.T) {
	_, err := Resolve(evalSchema(), types.OverrideSet{
		{Key: "sampling.num_sample_batches", Value: "0"},
	})
	var unknown *UnknownKeyError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownKeyError, got %v", err)
	}
	if unknown.Key != "sampling.num_sample_batches" {
		t.Fatalf("error names wrong key: %q", unknown.Key)
	}
}

func TestResolve_FlaggedNewKey(t *testing.T) {
	cfg, err := Resolve(evalSchema(), types.OverrideSet{
		{Key: "sampling.num_sample_batches", Value: "2", New: true},
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	rv, ok := cfg.Values["sampling.num_sample_batches"]
	if !ok || !rv.New {
		t.Fatalf("expected new key in resolved config, got %+v ok=%v", rv, ok)
	}
	if rv.Type != types.TypeInt || rv.Value != int64(2) {
		t.Fatalf("expected inferred int 2, got %+v", rv)
	}
}

func TestResolve_TypeMismatch(t *testing.T) {
	_, err := Resolve(evalSchema(), types.OverrideSet{
		{Key: "loader.batch_size", Value: "thirty-two"},
	})
	var typeErr *SchemaTypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("expected SchemaTypeError, got %v", err)
	}
	if typeErr.Key != "loader.batch_size" {
		t.Fatalf("error names wrong key: %q", typeErr.Key)
	}
	if typeErr.Expected != types.TypeInt || typeErr.Actual != "string" {
		t.Fatalf("expected int/string, got %s/%s", typeErr.Expected, typeErr.Actual)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	overrides := types.OverrideSet{
		{Key: "loader.batch_size", Value: "16"},
		{Key: "extra.flag", Value: "true", New: true},
	}
	first, err := Resolve(evalSchema(), overrides)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := Resolve(evalSchema(), overrides)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("resolve not idempotent (-first +second):\n%s", diff)
	}
}

func TestResolve_LastOverrideWins(t *testing.T) {
	cfg, err := Resolve(evalSchema(), types.OverrideSet{
		{Key: "loader.batch_size", Value: "16"},
		{Key: "loader.batch_size", Value: "8"},
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got := cfg.Values["loader.batch_size"].Value; got != int64(8) {
		t.Fatalf("expected last override to win, got %v", got)
	}
}

func TestResolve_BadDefault(t *testing.T) {
	schema := &types.Schema{
		Mode: "eval",
		Options: []types.Option{
			{Key: "loader.batch_size", Type: types.TypeInt, Default: "lots"},
		},
	}
	if _, err := Resolve(schema, nil); err == nil {
		t.Fatalf("expected error for mistyped default")
	}
}
