package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel-stac.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	tests := map[string]struct {
		yaml     string
		validate func(*testing.T, Config)
	}{
		"full config": {
			yaml: `
sentinel_host: https://dhr1.example.org
stac_host: https://stac.example.org
local_dir: /var/lib/sentinel-stac
lookback_days: 14
page_size: 50
succ_prefix: /var/log/sentinel-stac/success_
err_prefix: /var/log/sentinel-stac/error_
`,
			validate: func(t *testing.T, c Config) {
				assert.Equal(t, "https://dhr1.example.org", c.SentinelHost)
				assert.Equal(t, "https://stac.example.org", c.StacHost)
				assert.Equal(t, 14, c.LookbackDays)
				assert.Equal(t, 50, c.PageSize)
				assert.Equal(t, 14*24*time.Hour, c.Lookback())
			},
		},
		"defaults fill gaps": {
			yaml: "sentinel_host: https://dhr1.example.org\n",
			validate: func(t *testing.T, c Config) {
				assert.Equal(t, 30, c.LookbackDays)
				assert.Equal(t, 100, c.PageSize)
				assert.Equal(t, "@hourly", c.Schedule)
			},
		},
		"zero lookback falls back to default": {
			yaml: "lookback_days: 0\n",
			validate: func(t *testing.T, c Config) {
				assert.Equal(t, 30, c.LookbackDays)
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, tc.yaml)
			cfg, err := Load(path)
			require.NoError(t, err)
			tc.validate(t, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Run("default location missing is fine", func(t *testing.T) {
		cfg, err := Load(DefaultFile)
		require.NoError(t, err)
		assert.Equal(t, 30, cfg.LookbackDays)
	})

	t.Run("explicit path missing is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
		assert.Error(t, err)
	})
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, "sentinel_host: [\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.LocalDir = "/data"
	assert.Equal(t, "/data/gen_new_list_timestamp.txt", cfg.CheckpointPath())
	assert.Equal(t, "/data/gen_new_list_processed.txt", cfg.ListPath())
	assert.Equal(t, "/data/sentinel-stac.lock", cfg.LockPath())
}

func TestValidate(t *testing.T) {
	base := Default()
	base.SentinelHost = "https://dhr1.example.org"
	base.LocalDir = "/data"

	t.Run("lister ok", func(t *testing.T) {
		assert.NoError(t, base.ValidateLister())
	})

	t.Run("lister missing host", func(t *testing.T) {
		c := base
		c.SentinelHost = ""
		assert.Error(t, c.ValidateLister())
	})

	t.Run("push requires stac host", func(t *testing.T) {
		c := base
		assert.Error(t, c.ValidateRegister(true, false))
	})

	t.Run("push requires report prefixes", func(t *testing.T) {
		c := base
		c.StacHost = "https://stac.example.org"
		assert.Error(t, c.ValidateRegister(true, false))
		c.SuccPrefix = "/tmp/s_"
		c.ErrPrefix = "/tmp/e_"
		assert.NoError(t, c.ValidateRegister(true, false))
	})
}
