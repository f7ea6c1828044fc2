package layers

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"dynamic-sky/internal/hyprlax"

	"github.com/rs/zerolog"
)

// PlaceholderWriter makes sure an overlay file exists before it is added.
type PlaceholderWriter interface {
	EnsurePlaceholder(path string) error
}

type Manager struct {
	client       *hyprlax.Client
	classifier   Classifier
	placeholders PlaceholderWriter
	sunZ         int
	moonZ        int
	zBetween     []string
	dryRun       bool
	logger       zerolog.Logger
}

type ManagerConfig struct {
	Client        *hyprlax.Client
	Placeholders  PlaceholderWriter
	SunOverlay    string
	MoonOverlay   string
	SceneDir      string
	SkyRegex      string
	BuildingRegex string
	SunZ          int
	MoonZ         int
	ZBetween      []string
	DryRun        bool
	Logger        zerolog.Logger
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	skyExpr := cfg.SkyRegex
	if skyExpr == "" {
		skyExpr = DefaultSkyRegex
	}
	bldExpr := cfg.BuildingRegex
	if bldExpr == "" {
		bldExpr = DefaultBuildingRegex
	}

	skyRe, err := regexp.Compile(skyExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid sky regex: %w", err)
	}
	bldRe, err := regexp.Compile(bldExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid building regex: %w", err)
	}

	return &Manager{
		client: cfg.Client,
		classifier: Classifier{
			SunOverlay:  cfg.SunOverlay,
			MoonOverlay: cfg.MoonOverlay,
			SceneDir:    cfg.SceneDir,
			Sky:         skyRe,
			Building:    bldRe,
		},
		placeholders: cfg.Placeholders,
		sunZ:         cfg.SunZ,
		moonZ:        cfg.MoonZ,
		zBetween:     cfg.ZBetween,
		dryRun:       cfg.DryRun,
		logger:       cfg.Logger.With().Str("component", "layers").Logger(),
	}, nil
}

// DiscoverOrCreate lists the compositor layers, classifies them and makes
// sure both overlays exist at the right z. A dry run makes no calls and
// returns an empty directory. Only a missing binary is returned as an error;
// other failures leave the affected overlay unset.
func (m *Manager) DiscoverOrCreate(ctx context.Context) (*Directory, error) {
	if m.dryRun {
		return newDirectory(), nil
	}

	list, err := m.client.List(ctx)
	if err != nil {
		if errors.Is(err, hyprlax.ErrBinaryNotFound) {
			return nil, err
		}
		m.logger.Warn().Err(err).Msg("failed to list layers")
	}
	dir := m.classifier.Classify(list)

	sunZ := PlaceZ(dir, m.zBetween, m.sunZ)
	moonZ := PlaceZ(dir, m.zBetween, m.moonZ)

	if err := m.ensureOverlay(ctx, dir, &dir.SunID, m.classifier.SunOverlay, sunZ); err != nil {
		return nil, err
	}
	if err := m.ensureOverlay(ctx, dir, &dir.MoonID, m.classifier.MoonOverlay, moonZ); err != nil {
		return nil, err
	}

	m.logger.Info().
		Interface("sun_id", dir.SunID).
		Interface("moon_id", dir.MoonID).
		Ints("sky", dir.SkyIDs).
		Ints("buildings", dir.BuildingIDs).
		Msg("layers ready")
	return dir, nil
}

func (m *Manager) ensureOverlay(ctx context.Context, dir *Directory, slot **int, path string, z int) error {
	if *slot != nil {
		id := **slot
		if dir.ZByID[id] == z {
			return nil
		}
		if err := m.client.SetZ(ctx, id, z); err != nil {
			if errors.Is(err, hyprlax.ErrBinaryNotFound) {
				return err
			}
			m.logger.Debug().Err(err).Int("id", id).Msg("z update failed")
			return nil
		}
		dir.ZByID[id] = z
		return nil
	}

	if m.placeholders != nil {
		if err := m.placeholders.EnsurePlaceholder(path); err != nil {
			m.logger.Warn().Err(err).Str("path", path).Msg("failed to write placeholder")
		}
	}

	id, err := m.client.Add(ctx, path, hyprlax.OverlayOptions(z))
	if err != nil {
		if errors.Is(err, hyprlax.ErrBinaryNotFound) {
			return err
		}
		m.logger.Warn().Err(err).Str("path", path).Msg("failed to add overlay layer")
		return nil
	}
	*slot = &id
	dir.ZByID[id] = z
	dir.PathByID[id] = path
	return nil
}
