package layers

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"dynamic-sky/internal/hyprlax"
)

const (
	DefaultSkyRegex      = `/(1|2|3|4)\.png$`
	DefaultBuildingRegex = `/(5|6|7|8|9|10)\.png$`
)

// Directory is the classified view of the compositor's layers for one run.
type Directory struct {
	SunID       *int           `json:"sun_id"`
	MoonID      *int           `json:"moon_id"`
	SkyIDs      []int          `json:"sky_ids"`
	BuildingIDs []int          `json:"building_ids"`
	ZByID       map[int]int    `json:"z_by_id"`
	PathByID    map[int]string `json:"path_by_id"`
}

func newDirectory() *Directory {
	return &Directory{
		ZByID:    make(map[int]int),
		PathByID: make(map[int]string),
	}
}

// Classifier sorts listed layers into sun, moon, sky and building groups.
type Classifier struct {
	SunOverlay  string
	MoonOverlay string
	SceneDir    string
	Sky         *regexp.Regexp
	Building    *regexp.Regexp
}

func (c Classifier) inScene(path string) bool {
	if c.SceneDir == "" {
		return true
	}
	if strings.Contains(path, c.SceneDir) {
		return true
	}
	if abs, err := filepath.Abs(c.SceneDir); err == nil && strings.Contains(path, abs) {
		return true
	}
	return false
}

func (c Classifier) Classify(list []hyprlax.Layer) *Directory {
	dir := newDirectory()
	sunName, moonName := overlayName(c.SunOverlay), overlayName(c.MoonOverlay)

	for _, l := range list {
		if l.Path == "" {
			continue
		}
		id := l.ID
		dir.ZByID[id] = l.Z
		dir.PathByID[id] = l.Path

		switch {
		case sunName != "" && strings.Contains(l.Path, sunName):
			dir.SunID = &id
		case moonName != "" && strings.Contains(l.Path, moonName):
			dir.MoonID = &id
		case !c.inScene(l.Path):
			// foreign layer, tracked for z only
		case c.Sky != nil && c.Sky.MatchString(l.Path):
			dir.SkyIDs = append(dir.SkyIDs, id)
		case c.Building != nil && c.Building.MatchString(l.Path):
			dir.BuildingIDs = append(dir.BuildingIDs, id)
		}
	}
	return dir
}

func overlayName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

// PlaceZ picks the z for an overlay: between the two background layers named
// by between (path substrings) when both exist with room between them, else
// between the highest sky layer and the lowest building layer, else fallback.
func PlaceZ(dir *Directory, between []string, fallback int) int {
	if len(between) == 2 {
		za, okA := dir.zOfPath(between[0])
		zb, okB := dir.zOfPath(between[1])
		if okA && okB {
			if z, ok := gap(min(za, zb), max(za, zb)); ok {
				return z
			}
		}
	}

	if len(dir.SkyIDs) > 0 && len(dir.BuildingIDs) > 0 {
		maxSky := dir.ZByID[dir.SkyIDs[0]]
		for _, id := range dir.SkyIDs[1:] {
			maxSky = max(maxSky, dir.ZByID[id])
		}
		minBld := dir.ZByID[dir.BuildingIDs[0]]
		for _, id := range dir.BuildingIDs[1:] {
			minBld = min(minBld, dir.ZByID[id])
		}
		if z, ok := gap(maxSky, minBld); ok {
			return z
		}
	}
	return fallback
}

func gap(lo, hi int) (int, bool) {
	if hi-lo < 2 {
		return 0, false
	}
	return lo + 1, true
}

// zOfPath finds the background layer whose path contains sub. The lowest id
// wins when several match.
func (d *Directory) zOfPath(sub string) (int, bool) {
	if sub == "" {
		return 0, false
	}
	ids := make([]int, 0, len(d.PathByID))
	for id := range d.PathByID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if d.isOverlay(id) {
			continue
		}
		if strings.Contains(d.PathByID[id], sub) {
			return d.ZByID[id], true
		}
	}
	return 0, false
}

func (d *Directory) isOverlay(id int) bool {
	return (d.SunID != nil && *d.SunID == id) || (d.MoonID != nil && *d.MoonID == id)
}
