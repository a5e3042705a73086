package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeNames(t *testing.T) {
	tests := []struct {
		name  string
		base  []string
		extra []string
		want  []string
	}{
		{"both empty", nil, nil, nil},
		{"base only", []string{"a"}, nil, []string{"a"}},
		{"extra only", nil, []string{"b"}, []string{"b"}},
		{"dedupe keeps first", []string{"a", "b"}, []string{"b", "c", "a"}, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, MergeNames(tt.base, tt.extra)); diff != "" {
				t.Errorf("MergeNames() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	over := &Config{
		Local:    boolPtr(true),
		Domain:   "shop.dev",
		Prompt:   PromptConfig{Blacklist: []string{"deploy", "start"}},
		Managers: []string{"composer"},
		Vagrant:  &VagrantConfig{Dir: "/srv"},
		Watch:    WatchConfig{Ignore: []string{"tmp"}},
	}

	got := Merge(base, over)

	assert.True(t, *got.Local)
	assert.Equal(t, DefaultIP, got.IP, "unset scalar keeps base")
	assert.Equal(t, "shop.dev", got.Domain)
	assert.Equal(t, []string{"composer"}, got.Managers, "managers replace")
	assert.Contains(t, got.Prompt.Blacklist, "deploy")
	assert.Contains(t, got.Prompt.Blacklist, "watch", "blacklist accumulates")
	assert.Equal(t, len(base.Prompt.Blacklist)+1, len(got.Prompt.Blacklist), "no duplicate start")
	assert.Contains(t, got.Watch.Ignore, "tmp")
	assert.Contains(t, got.Watch.Ignore, ".git")
	require.NotNil(t, got.Vagrant)
	assert.Equal(t, "/srv", got.Vagrant.Dir)

	assert.False(t, *base.Local, "Merge must not modify base")
}

func TestMerge_VagrantFieldsFallBack(t *testing.T) {
	box := &BoxConfig{Name: "x", Provider: "virtualbox"}
	base := &Config{Vagrant: &VagrantConfig{Dir: "/vagrant", Shell: "vagrant ssh", Box: box}}
	over := &Config{Vagrant: &VagrantConfig{Shell: "vssh"}}

	got := Merge(base, over)

	require.NotNil(t, got.Vagrant)
	assert.Equal(t, "/vagrant", got.Vagrant.Dir)
	assert.Equal(t, "vssh", got.Vagrant.Shell)
	assert.Same(t, box, got.Vagrant.Box)
	assert.Equal(t, "vagrant ssh", base.Vagrant.Shell)
}

func TestMerge_NilOver(t *testing.T) {
	base := DefaultConfig()
	got := Merge(base, nil)
	assert.NotSame(t, base, got)
	assert.Equal(t, base.IP, got.IP)
}

func TestResolveConfig_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()

	eff, err := ResolveConfig(dir, Overrides{})
	require.NoError(t, err)

	assert.False(t, eff.Local)
	assert.False(t, eff.HHVM)
	assert.Equal(t, DefaultIP, eff.IP)
	assert.Equal(t, DefaultDomain, eff.Domain)
	assert.Equal(t, DefaultPromptText, eff.PromptText)
	assert.Equal(t, 3*time.Second, eff.PromptDebounce)
	assert.Equal(t, 300*time.Millisecond, eff.WatchDebounce)
	assert.Equal(t, []string{"npm", "composer", "bower"}, eff.Managers)
	assert.Equal(t, "grunt", eff.Fallback)
	assert.Empty(t, eff.RemoteShell)
	assert.False(t, eff.RemoteByDefault())
	assert.Empty(t, eff.ProjectFile)
	assert.Equal(t, dir, eff.ProjectDir)
}

func TestResolveConfig_Layers(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, EnsureDir())
	writeFile(t, GlobalConfigPath(), "ip: 10.0.0.1\ndomain: global.dev\nprompt:\n  debounce: 5s\n")

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "simon.yaml"), `
domain: project.dev
vagrant:
  dir: /srv/project
watch:
  paths: [app, /abs]
`)

	eff, err := ResolveConfig(dir, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", eff.IP)
	assert.Equal(t, "project.dev", eff.Domain)
	assert.Equal(t, 5*time.Second, eff.PromptDebounce)
	assert.Equal(t, DefaultVagrantShell, eff.RemoteShell)
	assert.Equal(t, "/srv/project", eff.RemoteDir)
	assert.True(t, eff.RemoteByDefault())
	assert.Equal(t, []string{filepath.Join(dir, "app"), "/abs"}, eff.WatchPaths)
	assert.Equal(t, filepath.Join(dir, "simon.yaml"), eff.ProjectFile)
}

func TestResolveConfig_FlagsWin(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "simon.yaml"), "local: false\nhhvm: false\nvagrant: {}\n")

	eff, err := ResolveConfig(dir, Overrides{Local: true, HHVM: true})
	require.NoError(t, err)

	assert.True(t, eff.Local)
	assert.True(t, eff.HHVM)
	assert.Equal(t, DefaultVagrantDir, eff.RemoteDir)
	assert.False(t, eff.RemoteByDefault(), "--local disables remote default")
}

func TestResolveConfig_RequireProject(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := ResolveConfig(t.TempDir(), Overrides{RequireProject: true})
	assert.ErrorIs(t, err, ErrNoProjectConfig)
}

func TestResolveConfig_InvalidProject(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "simon.yaml"), "ip: nope\n")

	_, err := ResolveConfig(dir, Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ip:")
}
