package workcell

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDefinitions = `{
  "workcells": {
    "WELD": {"name": "Welding", "ops": ["WELD", "TACK"]},
    "POWDER": {"name": "Powder Coat", "ops": ["POWDER"], "group_by_color": true},
    "MACHINE": {"name": "Machining", "ops": ["MILL", "LATHE"], "group_by_material": true}
  }
}`

func writeDefinitions(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workcells.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	r, err := Load(writeDefinitions(t, sampleDefinitions))
	require.NoError(t, err)

	assert.Equal(t, 3, r.Count())

	wc, ok := r.Get("WELD")
	require.True(t, ok)
	assert.Equal(t, "WELD", wc.ID)
	assert.Equal(t, "Welding", wc.Name)
	assert.Equal(t, []string{"WELD", "TACK"}, wc.Ops)

	powder, ok := r.Get("POWDER")
	require.True(t, ok)
	assert.True(t, powder.GroupByColor)

	_, ok = r.Get("NOPE")
	assert.False(t, ok)
	assert.Nil(t, r.Ops("NOPE"))
}

func TestListSortedByName(t *testing.T) {
	r, err := Load(writeDefinitions(t, sampleDefinitions))
	require.NoError(t, err)

	names := []string{}
	for _, wc := range r.List() {
		names = append(names, wc.Name)
	}
	assert.Equal(t, []string{"Machining", "Powder Coat", "Welding"}, names)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty ops":     `{"workcells": {"WELD": {"name": "Welding", "ops": []}}}`,
		"missing name":  `{"workcells": {"WELD": {"ops": ["WELD"]}}}`,
		"no workcells":  `{"workcells": {}}`,
		"not json":      `{{{`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeDefinitions(t, content))
			assert.Error(t, err)
		})
	}
}

func TestWatchReload(t *testing.T) {
	path := writeDefinitions(t, sampleDefinitions)
	r, err := Load(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Watch(ctx))

	updated := `{"workcells": {"WELD": {"name": "Welding", "ops": ["WELD"]}}}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		return r.Count() == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatchKeepsPreviousOnBadReload(t *testing.T) {
	path := writeDefinitions(t, sampleDefinitions)
	r, err := Load(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	// The broken rewrite must never wipe the working set.
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 3, r.Count())
}
