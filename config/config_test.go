package config

import (
	"os"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarme/faceir/base"
	"github.com/sugarme/faceir/encoder"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name:    "uses defaults when nothing is set",
			envVars: map[string]string{},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, int64(112), c.Resolution)
				assert.Equal(t, 50, c.Depth)
				assert.Equal(t, "ir", c.Variant)
				assert.False(t, c.Cuda)
				assert.Equal(t, 4, c.Workers)
			},
		},
		{
			name: "reads all vars",
			envVars: map[string]string{
				"FACE_RESOLUTION": "224",
				"FACE_DEPTH":      "152",
				"FACE_VARIANT":    "ir_se",
				"FACE_WEIGHTS":    "/tmp/model.ot",
				"FACE_BGR":        "true",
				"FACE_CUDA":       "true",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, int64(224), c.Resolution)
				assert.Equal(t, 152, c.Depth)
				assert.Equal(t, "ir_se", c.Variant)
				assert.Equal(t, "/tmp/model.ot", c.Weights)
				assert.True(t, c.BGR)
				assert.True(t, c.Cuda)
			},
		},
		{
			name:    "fails on non numeric depth",
			envVars: map[string]string{"FACE_DEPTH": "deep"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearFaceEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestConfigBackbone(t *testing.T) {
	c := &Config{Resolution: 224, Depth: 152, Variant: "attention"}
	cfg, err := c.Backbone()
	require.NoError(t, err)
	assert.Equal(t, int64(224), cfg.Resolution)
	assert.Equal(t, encoder.Depth(152), cfg.Depth)
	assert.Equal(t, encoder.Attention, cfg.Variant)

	for _, bad := range []*Config{
		{Resolution: 128, Depth: 50, Variant: "ir"},
		{Resolution: 112, Depth: 10, Variant: "ir"},
		{Resolution: 112, Depth: 50, Variant: "dense"},
	} {
		_, err := bad.Backbone()
		assert.True(t, errors.Is(err, base.ErrConfiguration), "%+v: %v", bad, err)
	}
}

func clearFaceEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		k, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, Prefix+"_") {
			t.Setenv(k, "")
			os.Unsetenv(k)
		}
	}
}
