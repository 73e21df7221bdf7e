package kernelinfo

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalemi-dev/rwe/rwe"
	"github.com/aalemi-dev/rwe/tplengine"
)

const banner = `The latest stable version of the Linux kernel is:           2.6.11.7
The latest prepatch for the stable Linux kernel tree is:     2.6.12-rc2
The latest 2.4 version of the Linux kernel is:               2.4.30
The latest 2.2 version of the Linux kernel is:               2.2.26
`

var treeRegexps = rwe.Settings{
	"stable":   `stable version of the Linux kernel is:\s+(\S+)`,
	"prepatch": `latest prepatch for the stable Linux kernel tree is:\s+(\S+)`,
	"2.4":      `latest 2\.4 version of the Linux kernel is:\s+(\S+)`,
}

func setup(t *testing.T) (*rwe.Host, *tplengine.Recorder, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "finger_banner")
	require.NoError(t, os.WriteFile(path, []byte(banner), 0o600))

	tpl := tplengine.NewRecorder(nil)
	var out bytes.Buffer
	h := rwe.New(rwe.WithTemplateEngine(tpl), rwe.WithOutput(&out), rwe.WithExitFunc(func(int) {}))
	return h, tpl, path
}

func TestKernelinfo_Matches(t *testing.T) {
	t.Parallel()
	h, tpl, path := setup(t)

	got, err := h.Run(context.Background(), Name, rwe.Settings{
		"fingerBanner": path,
		"treeRegexps":  treeRegexps,
	})
	require.NoError(t, err)
	assert.Equal(t, true, got)

	assert.Equal(t, map[string][]string{
		"treename": {"stable", "prepatch", "2.4"},
		"version":  {"2.6.11.7", "2.6.12-rc2", "2.4.30"},
	}, h.ModuleVar(Name, "trees"))
	assert.Equal(t, 3, h.ModuleVar(Name, "numMatches"))
	assert.Equal(t, 1, tpl.Get("RWE_Module_kernelinfo__isData"))
}

func TestKernelinfo_NoMatches(t *testing.T) {
	t.Parallel()
	h, tpl, path := setup(t)

	got, err := h.Run(context.Background(), Name, rwe.Settings{
		"fingerBanner":   path,
		"treeRegexps":    rwe.Settings{"2.0": `2\.0 version is: (\S+)`},
		"variablePrefix": "kinfo",
	})
	require.NoError(t, err)
	assert.Equal(t, true, got)
	assert.Nil(t, tpl.Get("RWE_Module_kinfo__trees"))
	assert.Equal(t, 0, tpl.Get("RWE_Module_kinfo__isData"))
}

func TestKernelinfo_MissingFile(t *testing.T) {
	t.Parallel()
	h, _, path := setup(t)

	got, err := h.Run(context.Background(), Name, rwe.Settings{
		"fingerBanner": path + ".missing",
		"treeRegexps":  treeRegexps,
	})
	require.NoError(t, err)
	assert.Equal(t, false, got)
}

func TestKernelinfo_RequiredSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings rwe.Settings
		want     string
	}{
		{name: "no banner", settings: rwe.Settings{"treeRegexps": treeRegexps}, want: "_checkSettings: fingerBanner file not given"},
		{name: "no patterns", settings: rwe.Settings{"fingerBanner": "x"}, want: "_checkSettings: treeRegexps not given!"},
		{name: "bad pattern", settings: rwe.Settings{"fingerBanner": "x", "treeRegexps": rwe.Settings{"t": "("}}, want: "_checkSettings: invalid pattern for tree t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, _, _ := setup(t)

			_, err := h.Run(context.Background(), Name, tt.settings)
			var ab *rwe.Abort
			require.ErrorAs(t, err, &ab)
			require.Len(t, ab.Messages, 1)
			assert.Contains(t, ab.Messages[0], tt.want)
		})
	}
}
