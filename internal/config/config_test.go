package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphir/internal/builder"
	"github.com/born-ml/graphir/internal/extractors"
	"github.com/born-ml/graphir/internal/registry"
	"github.com/born-ml/graphir/internal/tfgraph"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.BuildOptions()
	require.NoError(t, err)
	assert.Equal(t, builder.UnmatchedFail, opts.Unmatched)
	assert.Equal(t, builder.FailFast, opts.ErrorMode)
	assert.Equal(t, 1, opts.Workers)
	assert.Equal(t, tfgraph.DefaultMaxTensorBytes, opts.MaxConstantBytes)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
build:
  unmatched: pass-through
  error_mode: collect-all
  workers: 4
  max_constant_bytes: 64MiB
ops:
  enabled: [Assert]
  disabled: [Relu6]
`))
	require.NoError(t, err)

	opts, err := cfg.BuildOptions()
	require.NoError(t, err)
	assert.Equal(t, builder.UnmatchedPassThrough, opts.Unmatched)
	assert.Equal(t, builder.CollectAll, opts.ErrorMode)
	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, int64(64<<20), opts.MaxConstantBytes)
	assert.Equal(t, []string{"Assert"}, cfg.Ops.Enabled)
	assert.Equal(t, []string{"Relu6"}, cfg.Ops.Disabled)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":     "build:\n  workerz: 2\n",
		"bad unmatched":   "build:\n  unmatched: ignore\n",
		"bad error mode":  "build:\n  error_mode: best-effort\n",
		"negative worker": "build:\n  workers: -1\n",
		"bad limit":       "build:\n  max_constant_bytes: lots\n",
		"negative limit":  "build:\n  max_constant_bytes: -1KiB\n",
		"conflicting ops": "ops:\n  enabled: [A]\n  disabled: [A]\n",
		"not yaml":        "build: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := writeFile(t, "graphir.yaml", "build:\n  workers: 2\n  error_mode: collect-all\n")
	t.Setenv("GRAPHIR_WORKERS", "6")
	t.Setenv("GRAPHIR_DISABLED_OPS", "Relu,Tanh")

	cfg, err := Load(path, writeFile(t, "empty.env", ""))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Build.Workers)
	assert.Equal(t, "collect-all", cfg.Build.ErrorMode, "unset variables keep file values")
	assert.Equal(t, []string{"Relu", "Tanh"}, cfg.Ops.Disabled)
}

func TestLoadEnvFile(t *testing.T) {
	envFile := writeFile(t, "test.env", "GRAPHIR_UNMATCHED=pass-through\n")
	// godotenv sets variables process-wide; register cleanup through t.Setenv.
	t.Setenv("GRAPHIR_UNMATCHED", "")
	require.NoError(t, os.Unsetenv("GRAPHIR_UNMATCHED"))

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "pass-through", cfg.Build.Unmatched)
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Setenv("GRAPHIR_WORKERS", "many")
	_, err := Load("", writeFile(t, "empty.env", ""))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), writeFile(t, "empty.env", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open config")

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestApplyOps(t *testing.T) {
	reg := registry.New()
	require.NoError(t, extractors.RegisterAll(reg))

	cfg := Default()
	cfg.Ops.Enabled = []string{"Assert"}
	cfg.Ops.Disabled = []string{"Relu"}
	require.NoError(t, cfg.ApplyOps(reg))

	_, ok := reg.Lookup("Assert")
	assert.True(t, ok)
	_, ok = reg.Lookup("Relu")
	assert.False(t, ok)

	cfg.Ops.Disabled = []string{"NoSuchOp"}
	assert.Error(t, cfg.ApplyOps(reg))
}

func TestParseNames(t *testing.T) {
	u, err := ParseUnmatched("passthrough")
	require.NoError(t, err)
	assert.Equal(t, builder.UnmatchedPassThrough, u)

	m, err := ParseErrorMode("")
	require.NoError(t, err)
	assert.Equal(t, builder.FailFast, m)
}

func TestParseMaxConstantBytes(t *testing.T) {
	tests := map[string]int64{
		"":       tfgraph.DefaultMaxTensorBytes,
		"0":      0,
		"1GiB":   1 << 30,
		"512 MB": 512_000_000,
		"4096":   4096,
	}
	for in, want := range tests {
		got, err := ParseMaxConstantBytes(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	n, err := ParseMaxConstantBytes(Default().Build.MaxConstantBytes)
	require.NoError(t, err)
	assert.Equal(t, tfgraph.DefaultMaxTensorBytes, n)
}

func TestLoadMaxConstantBytesFromEnv(t *testing.T) {
	t.Setenv("GRAPHIR_MAX_CONSTANT_BYTES", "0")
	cfg, err := Load("", writeFile(t, "empty.env", ""))
	require.NoError(t, err)

	opts, err := cfg.BuildOptions()
	require.NoError(t, err)
	assert.Equal(t, int64(0), opts.MaxConstantBytes, "0 disables the limit")
}
