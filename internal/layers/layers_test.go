package layers

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"dynamic-sky/internal/hyprlax"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	responses map[string]string
	failures  map[string]error
	calls     []string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{responses: map[string]string{}, failures: map[string]error{}}
}

func (r *scriptedRunner) Run(_ context.Context, args ...string) (string, error) {
	key := strings.Join(args, " ")
	r.calls = append(r.calls, key)
	if err, ok := r.failures[key]; ok {
		return "", err
	}
	if out, ok := r.responses[key]; ok {
		return out, nil
	}
	return "", fmt.Errorf("%w: unexpected %q", hyprlax.ErrCommandFailed, key)
}

type placeholderRecorder struct {
	paths []string
}

func (p *placeholderRecorder) EnsurePlaceholder(path string) error {
	p.paths = append(p.paths, path)
	return nil
}

const sceneJSON = `[
 {"id":1,"path":"/home/u/examples/pixel-city-advanced/1.png","z":1},
 {"id":2,"path":"/home/u/examples/pixel-city-advanced/2.png","z":2},
 {"id":5,"path":"/home/u/examples/pixel-city-advanced/5.png","z":8},
 {"id":6,"path":"/home/u/examples/pixel-city-advanced/10.png","z":9},
 {"id":9,"path":"/elsewhere/3.png","z":0}
]`

func newTestManager(t *testing.T, r *scriptedRunner, p PlaceholderWriter, dryRun bool) *Manager {
	t.Helper()
	m, err := NewManager(ManagerConfig{
		Client:       hyprlax.NewClient(r, zerolog.Nop()),
		Placeholders: p,
		SunOverlay:   "/run/sky/tmp/sun_overlay.png",
		MoonOverlay:  "/run/sky/tmp/moon_overlay.png",
		SceneDir:     "examples/pixel-city-advanced",
		SunZ:         5,
		MoonZ:        5,
		DryRun:       dryRun,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)
	return m
}

func TestClassify(t *testing.T) {
	m := newTestManager(t, newScriptedRunner(), nil, false)
	list := []hyprlax.Layer{
		{ID: 1, Path: "/x/examples/pixel-city-advanced/1.png", Z: 1},
		{ID: 3, Path: "/x/examples/pixel-city-advanced/7.png", Z: 7},
		{ID: 4, Path: "/x/tmp/sun_overlay.png", Z: 5},
		{ID: 8, Path: "/x/tmp/moon_overlay.png", Z: 5},
		{ID: 9, Path: "/other/2.png", Z: 2},
		{ID: 10, Path: "", Z: 0},
	}

	dir := m.classifier.Classify(list)
	require.NotNil(t, dir.SunID)
	require.NotNil(t, dir.MoonID)
	assert.Equal(t, 4, *dir.SunID)
	assert.Equal(t, 8, *dir.MoonID)
	assert.Equal(t, []int{1}, dir.SkyIDs)
	assert.Equal(t, []int{3}, dir.BuildingIDs)
	assert.Equal(t, 2, dir.ZByID[9])
	assert.NotContains(t, dir.PathByID, 10)
}

func TestPlaceZ(t *testing.T) {
	dir := &Directory{
		SkyIDs:      []int{1, 2},
		BuildingIDs: []int{5, 6},
		ZByID:       map[int]int{1: 1, 2: 2, 5: 8, 6: 9},
		PathByID:    map[int]string{1: "/s/1.png", 2: "/s/2.png", 5: "/s/5.png", 6: "/s/10.png"},
	}

	assert.Equal(t, 3, PlaceZ(dir, nil, 5))
	assert.Equal(t, 3, PlaceZ(dir, []string{"/s/2.png", "/s/5.png"}, 5))
	assert.Equal(t, 3, PlaceZ(dir, []string{"missing.png", "/s/5.png"}, 5))
	assert.Equal(t, 2, PlaceZ(dir, []string{"/s/1.png", "/s/5.png"}, 5))

	dir.ZByID[5] = 3
	assert.Equal(t, 5, PlaceZ(dir, nil, 5), "no room between sky and buildings")

	assert.Equal(t, 7, PlaceZ(&Directory{ZByID: map[int]int{}, PathByID: map[int]string{}}, nil, 7))
}

func TestDiscoverOrCreate_CreatesOverlays(t *testing.T) {
	r := newScriptedRunner()
	r.responses["list --json"] = sceneJSON
	r.responses["add /run/sky/tmp/sun_overlay.png z=3 opacity=1.0 shift_multiplier=0.0 fit=cover"] = "Layer added with ID: 20\n"
	r.responses["add /run/sky/tmp/moon_overlay.png z=3 opacity=1.0 shift_multiplier=0.0 fit=cover"] = "Layer added with ID: 21\n"
	p := &placeholderRecorder{}

	dir, err := newTestManager(t, r, p, false).DiscoverOrCreate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, dir.SunID)
	require.NotNil(t, dir.MoonID)
	assert.Equal(t, 20, *dir.SunID)
	assert.Equal(t, 21, *dir.MoonID)
	assert.Equal(t, []int{1, 2}, dir.SkyIDs)
	assert.Equal(t, []int{5, 6}, dir.BuildingIDs)
	assert.Equal(t, []string{"/run/sky/tmp/sun_overlay.png", "/run/sky/tmp/moon_overlay.png"}, p.paths)
}

func TestDiscoverOrCreate_ReconcilesZ(t *testing.T) {
	r := newScriptedRunner()
	r.responses["list --json"] = `[
 {"id":1,"path":"/a/examples/pixel-city-advanced/1.png","z":1},
 {"id":5,"path":"/a/examples/pixel-city-advanced/5.png","z":8},
 {"id":11,"path":"/run/sky/tmp/sun_overlay.png","z":2},
 {"id":12,"path":"/run/sky/tmp/moon_overlay.png","z":2}
]`
	r.responses["modify 11 z 2"] = ""
	r.responses["modify 12 z 2"] = ""

	dir, err := newTestManager(t, r, nil, false).DiscoverOrCreate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, *dir.SunID)
	assert.Equal(t, 12, *dir.MoonID)
	assert.Equal(t, []string{"list --json"}, r.calls, "z already correct, no modify expected")
}

func TestDiscoverOrCreate_AddFailureLeavesUnset(t *testing.T) {
	r := newScriptedRunner()
	r.responses["list --json"] = `[]`

	dir, err := newTestManager(t, r, nil, false).DiscoverOrCreate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, dir.SunID)
	assert.Nil(t, dir.MoonID)
}

func TestDiscoverOrCreate_MissingBinary(t *testing.T) {
	r := newScriptedRunner()
	r.failures["list --json"] = hyprlax.ErrBinaryNotFound

	_, err := newTestManager(t, r, nil, false).DiscoverOrCreate(context.Background())
	assert.ErrorIs(t, err, hyprlax.ErrBinaryNotFound)
}

func TestDiscoverOrCreate_DryRun(t *testing.T) {
	r := newScriptedRunner()
	dir, err := newTestManager(t, r, nil, true).DiscoverOrCreate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, dir.SunID)
	assert.Empty(t, r.calls)
}

func TestNewManager_BadRegex(t *testing.T) {
	_, err := NewManager(ManagerConfig{SkyRegex: "("})
	assert.Error(t, err)
}
