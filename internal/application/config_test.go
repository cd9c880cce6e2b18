package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

const validConfigYAML = `
version: "1.0.0"
metadata:
  name: majors
  description: preference survey
items:
  - 경희 한의
  - 서울 약학
  - 서울 수의
storage:
  in_memory: true
admin:
  token: secret-token
`

func newTestLoader(t *testing.T, env map[string]string) *ConfigLoader {
	t.Helper()
	loader, err := NewConfigLoader(WithGetenv(func(key string) string { return env[key] }))
	require.NoError(t, err)
	return loader
}

func TestConfigLoader_LoadFromReader(t *testing.T) {
	loader := newTestLoader(t, nil)

	loaded, err := loader.LoadFromReader(context.Background(), strings.NewReader(validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 3, loaded.Catalog.Len())
	assert.Equal(t, "서울 약학", loaded.Catalog.Name(1))
	assert.Len(t, loaded.Fingerprint, 64)

	cfg := loaded.Config
	assert.Equal(t, DefaultAddress, cfg.Server.Address)
	assert.Equal(t, DefaultReadTimeoutSeconds, cfg.Server.ReadTimeoutSeconds)
	assert.Equal(t, DefaultRequestsPerSecond, cfg.Server.RateLimit.RequestsPerSecond)
	assert.Equal(t, DefaultBurst, cfg.Server.RateLimit.Burst)
	assert.Equal(t, "mean", cfg.Aggregation.Method)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Storage.InMemory)
}

func TestConfigLoader_Validation(t *testing.T) {
	// Decomposed jamo for "한", which NFC folds into the precomposed syllable.
	decomposed := "\u1112\u1161\u11ab의"

	tests := []struct {
		name    string
		yaml    string
		wantErr error
		errMsg  string
	}{
		{
			name:   "unknown field",
			yaml:   validConfigYAML + "colour: blue\n",
			errMsg: "not found",
		},
		{
			name:    "empty document",
			yaml:    "",
			wantErr: domain.ErrEmptyValue,
		},
		{
			name: "no items",
			yaml: `
version: "1.0.0"
metadata: {name: empty}
items: []
storage: {in_memory: true}
`,
			errMsg: "Items",
		},
		{
			name: "invalid semver",
			yaml: `
version: "1.0"
metadata: {name: x}
items: [a, b]
storage: {in_memory: true}
`,
			errMsg: "semver",
		},
		{
			name: "leading zero in version",
			yaml: `
version: "01.0.0"
metadata: {name: x}
items: [a, b]
storage: {in_memory: true}
`,
			errMsg: "semver",
		},
		{
			name: "duplicate item",
			yaml: `
version: "1.0.0"
metadata: {name: x}
items: [a, b, a]
storage: {in_memory: true}
`,
			wantErr: domain.ErrInvalidConfiguration,
		},
		{
			name: "duplicate after normalization",
			yaml: `
version: "1.0.0"
metadata: {name: x}
items: ["한의", "` + decomposed + `"]
storage: {in_memory: true}
`,
			wantErr: domain.ErrInvalidConfiguration,
		},
		{
			name: "storage path required",
			yaml: `
version: "1.0.0"
metadata: {name: x}
items: [a, b]
`,
			errMsg: "Path",
		},
		{
			name: "unknown aggregation method",
			yaml: `
version: "1.0.0"
metadata: {name: x}
items: [a, b]
storage: {in_memory: true}
aggregation: {method: mode}
`,
			errMsg: "Method",
		},
		{
			name: "short admin token",
			yaml: `
version: "1.0.0"
metadata: {name: x}
items: [a, b]
storage: {in_memory: true}
admin: {token: short}
`,
			errMsg: "Token",
		},
		{
			name: "rate without burst",
			yaml: `
version: "1.0.0"
metadata: {name: x}
items: [a, b]
storage: {in_memory: true}
server: {rate_limit: {requests_per_second: 2}}
`,
			wantErr: domain.ErrInvalidConfiguration,
		},
		{
			name: "control character in item",
			yaml: `
version: "1.0.0"
metadata: {name: x}
items: ["a\tb", c]
storage: {in_memory: true}
`,
			errMsg: "itemname",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := newTestLoader(t, nil)
			_, err := loader.LoadFromReader(context.Background(), strings.NewReader(tt.yaml))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestConfigLoader_NormalizesItemNames(t *testing.T) {
	loader := newTestLoader(t, nil)
	yaml := `
version: "1.0.0"
metadata: {name: x}
items: ["  서울 약학 ", "한의"]
storage: {in_memory: true}
`
	loaded, err := loader.LoadFromReader(context.Background(), strings.NewReader(yaml))
	require.NoError(t, err)

	assert.Equal(t, []string{"서울 약학", "한의"}, loaded.Catalog.Names())
	idx, ok := loaded.Catalog.Index("한의")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestConfigLoader_EnvironmentOverrides(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		EnvAdminToken:  "from-environment",
		EnvStoragePath: "/var/lib/ballot",
		EnvAddress:     "0.0.0.0:9090",
	})

	loaded, err := loader.LoadFromReader(context.Background(), strings.NewReader(validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-environment", loaded.Config.Admin.Token)
	assert.Equal(t, "/var/lib/ballot", loaded.Config.Storage.Path)
	assert.False(t, loaded.Config.Storage.InMemory, "an explicit path selects on-disk storage")
	assert.Equal(t, "0.0.0.0:9090", loaded.Config.Server.Address)
}

func TestConfigLoader_Cache(t *testing.T) {
	loader := newTestLoader(t, nil)
	ctx := context.Background()

	first, err := loader.LoadFromReader(ctx, strings.NewReader(validConfigYAML))
	require.NoError(t, err)

	// Reformatted but equivalent YAML shares the fingerprint.
	reformatted := strings.ReplaceAll(validConfigYAML, "  name: majors", "  name:   majors")
	second, err := loader.LoadFromReader(ctx, strings.NewReader(reformatted))
	require.NoError(t, err)
	assert.Same(t, first, second)

	loader.ClearCache()
	third, err := loader.LoadFromReader(ctx, strings.NewReader(validConfigYAML))
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, first.Fingerprint, third.Fingerprint)
}

func TestConfigLoader_ConcurrentLoads(t *testing.T) {
	loader := newTestLoader(t, nil)

	var wg sync.WaitGroup
	results := make([]*LoadedConfig, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loaded, err := loader.LoadFromReader(context.Background(), strings.NewReader(validConfigYAML))
			assert.NoError(t, err)
			results[i] = loaded
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Same(t, results[0], r)
	}
}

func TestConfigLoader_LoadFromFile(t *testing.T) {
	loader := newTestLoader(t, nil)
	ctx := context.Background()

	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "survey.yaml")
		require.NoError(t, os.WriteFile(path, []byte(validConfigYAML), 0o600))

		loaded, err := loader.LoadFromFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "majors", loaded.Config.Metadata.Name)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loader.LoadFromFile(ctx, filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)

		var configErr *ports.ConfigError
		require.True(t, errors.As(err, &configErr))
		assert.True(t, errors.Is(err, ports.ErrConfigNotFound))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := loader.LoadFromReader(cancelled, strings.NewReader(validConfigYAML))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestShippedConfiguration(t *testing.T) {
	loader := newTestLoader(t, nil)

	loaded, err := loader.LoadFromFile(context.Background(), filepath.Join("..", "..", "configs", "survey.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 18, loaded.Catalog.Len())
	assert.Equal(t, "경희 한의", loaded.Catalog.Name(0))
	assert.Equal(t, "고려대 하위", loaded.Catalog.Name(17))
}
