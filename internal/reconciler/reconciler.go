package reconciler

import (
	"context"
	"errors"
	"sync"
	"time"

	"dynamic-sky/internal/astro"
	"dynamic-sky/internal/clock"
	"dynamic-sky/internal/hyprlax"
	"dynamic-sky/internal/layers"
	"dynamic-sky/internal/sky"

	"github.com/rs/zerolog"
)

// Compositor is the part of the layer tool the loop mutates.
type Compositor interface {
	SetVisible(ctx context.Context, id int, visible bool) error
	SetPath(ctx context.Context, id int, path string) error
	SetTint(ctx context.Context, id int, tint string) error
}

type OverlayRenderer interface {
	DrawOverlay(body sky.Body, pos sky.Point, moonPhase float64, path string) error
}

type AstroSource interface {
	Get(ctx context.Context, now time.Time) (astro.AstroData, error)
	Invalidate()
}

// StatePublisher receives the snapshot after every tick.
type StatePublisher interface {
	PublishState(s Snapshot) error
}

// Gate holds the last values actually applied to the compositor.
type Gate struct {
	Sun          *sky.Point `json:"sun,omitempty"`
	Moon         *sky.Point `json:"moon,omitempty"`
	SunVisible   *bool      `json:"sun_visible,omitempty"`
	MoonVisible  *bool      `json:"moon_visible,omitempty"`
	SkyTint      sky.Tint   `json:"sky_tint,omitempty"`
	BuildingTint sky.Tint   `json:"building_tint,omitempty"`
}

type Snapshot struct {
	Iteration int             `json:"iteration"`
	State     sky.State       `json:"state"`
	Astro     astro.AstroData `json:"astro"`
	Applied   Gate            `json:"applied"`
	DryRun    bool            `json:"dry_run"`
}

type Reconciler struct {
	clock      clock.Source
	astro      AstroSource
	model      *sky.Model
	compositor Compositor
	renderer   OverlayRenderer
	dir        *layers.Directory
	sunPath    string
	moonPath   string
	epsilon    int
	interval   time.Duration
	demoTick   time.Duration
	demo       bool
	once       bool
	dryRun     bool
	frozen     *astro.AstroData
	secrets    <-chan struct{}
	publishers []StatePublisher
	logger     zerolog.Logger

	gate      Gate
	lastPhase *sky.Phase
	iteration int

	mu     sync.RWMutex
	latest *Snapshot
}

type Config struct {
	Clock      clock.Source
	Astro      AstroSource
	Model      *sky.Model
	Compositor Compositor
	Renderer   OverlayRenderer
	Directory  *layers.Directory
	SunPath    string
	MoonPath   string
	Epsilon    int
	Interval   time.Duration
	DemoTick   time.Duration
	Demo       bool
	Once       bool
	DryRun     bool
	// FrozenAstro pins the astro data for the whole run (demo and --at runs).
	FrozenAstro *astro.AstroData
	// SecretsChanged forces an astro refresh on the next tick.
	SecretsChanged <-chan struct{}
	Publishers     []StatePublisher
	Logger         zerolog.Logger
}

func New(cfg Config) *Reconciler {
	dir := cfg.Directory
	if dir == nil {
		dir = &layers.Directory{}
	}
	return &Reconciler{
		clock:      cfg.Clock,
		astro:      cfg.Astro,
		model:      cfg.Model,
		compositor: cfg.Compositor,
		renderer:   cfg.Renderer,
		dir:        dir,
		sunPath:    cfg.SunPath,
		moonPath:   cfg.MoonPath,
		epsilon:    cfg.Epsilon,
		interval:   cfg.Interval,
		demoTick:   cfg.DemoTick,
		demo:       cfg.Demo,
		once:       cfg.Once,
		dryRun:     cfg.DryRun,
		frozen:     cfg.FrozenAstro,
		secrets:    cfg.SecretsChanged,
		publishers: cfg.Publishers,
		logger:     cfg.Logger.With().Str("component", "reconciler").Logger(),
	}
}

// Run ticks until ctx is cancelled, or once for single-shot runs. Layers are
// left in place on exit.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info().
		Bool("demo", r.demo).
		Bool("dry_run", r.dryRun).
		Int("epsilon", r.epsilon).
		Msg("starting dynamic sky")

	for {
		st, err := r.Tick(ctx)
		if err != nil {
			return err
		}
		if r.once {
			return nil
		}

		wait := r.NextInterval(st.Phase)
		r.logger.Debug().Dur("sleep", wait).Msg("sleeping")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info().Msg("stopping dynamic sky")
			return nil
		case <-timer.C:
		}
	}
}

// NextInterval is the sleep after a tick in the given phase.
func (r *Reconciler) NextInterval(phase sky.Phase) time.Duration {
	if r.demo {
		return r.demoTick
	}
	switch phase {
	case sky.Dawn, sky.Dusk:
		return min(60*time.Second, max(30*time.Second, r.interval/2))
	case sky.Day:
		return max(60*time.Second, r.interval)
	default:
		return max(120*time.Second, r.interval+180*time.Second)
	}
}

// Tick computes the sky for the current time and applies what changed since
// the last applied state. Only a missing compositor binary or unusable astro
// data is returned as an error; individual call failures are logged and
// retried on a later tick.
func (r *Reconciler) Tick(ctx context.Context) (sky.State, error) {
	r.drainSecrets()

	now := r.clock.Now()
	data, err := r.astroData(ctx, now)
	if err != nil {
		return sky.State{}, err
	}

	st := r.model.Compute(now, data)
	r.logState(st)

	if err := r.apply(ctx, st); err != nil {
		return st, err
	}

	r.iteration++
	snap := Snapshot{
		Iteration: r.iteration,
		State:     st,
		Astro:     data,
		Applied:   r.gate,
		DryRun:    r.dryRun,
	}
	r.mu.Lock()
	r.latest = &snap
	r.mu.Unlock()

	for _, p := range r.publishers {
		if err := p.PublishState(snap); err != nil {
			r.logger.Warn().Err(err).Msg("failed to publish state")
		}
	}
	return st, nil
}

func (r *Reconciler) drainSecrets() {
	if r.secrets == nil {
		return
	}
	select {
	case <-r.secrets:
		r.logger.Info().Msg("secrets changed, refreshing astro data")
		if r.frozen == nil && r.astro != nil {
			r.astro.Invalidate()
		}
	default:
	}
}

func (r *Reconciler) astroData(ctx context.Context, now time.Time) (astro.AstroData, error) {
	if r.frozen != nil {
		return *r.frozen, nil
	}
	return r.astro.Get(ctx, now)
}

func (r *Reconciler) logState(st sky.State) {
	if r.lastPhase == nil || *r.lastPhase != st.Phase {
		r.logger.Info().Stringer("phase", st.Phase).Time("at", st.At).Msg("phase")
		p := st.Phase
		r.lastPhase = &p
	}
	r.logger.Debug().
		Time("at", st.At).
		Stringer("phase", st.Phase).
		Interface("sun", st.Sun).
		Interface("moon", st.Moon).
		Str("sky_tint", string(st.SkyTint)).
		Str("building_tint", string(st.BuildingTint)).
		Msg("state")
}

func (r *Reconciler) apply(ctx context.Context, st sky.State) error {
	if err := r.applyBody(ctx, sky.Sun, st.SunVisible, st.Sun, 0, r.dir.SunID, r.sunPath, &r.gate.Sun); err != nil {
		return err
	}
	if err := r.applyBody(ctx, sky.Moon, st.MoonVisible, st.Moon, st.SpritePhase(), r.dir.MoonID, r.moonPath, &r.gate.Moon); err != nil {
		return err
	}
	if err := r.applyVisibility(ctx, st); err != nil {
		return err
	}
	return r.applyTints(ctx, st)
}

// applyBody redraws and refreshes a visible overlay whose position moved more
// than epsilon. A hidden body forgets its position so it is redrawn on return.
func (r *Reconciler) applyBody(ctx context.Context, body sky.Body, visible bool, pos *sky.Point, moonPhase float64, id *int, path string, last **sky.Point) error {
	if !visible || pos == nil {
		*last = nil
		return nil
	}
	if *last != nil && (*last).Distance(*pos) <= r.epsilon {
		return nil
	}

	if err := r.renderer.DrawOverlay(body, *pos, moonPhase, path); err != nil {
		r.logger.Warn().Err(err).Stringer("body", body).Msg("render failed")
		return nil
	}
	if !r.dryRun && id != nil {
		if err := r.compositor.SetPath(ctx, *id, path); err != nil {
			return r.callFailed(err, "refresh", *id)
		}
	}

	p := *pos
	*last = &p
	return nil
}

// applyVisibility hides before it shows so both bodies are never up at once.
func (r *Reconciler) applyVisibility(ctx context.Context, st sky.State) error {
	type toggle struct {
		id      *int
		visible bool
		last    **bool
	}
	sun := toggle{r.dir.SunID, st.SunVisible, &r.gate.SunVisible}
	moon := toggle{r.dir.MoonID, st.MoonVisible, &r.gate.MoonVisible}

	order := []toggle{moon, sun}
	if !st.SunVisible {
		order = []toggle{sun, moon}
	}

	for _, t := range order {
		if t.id == nil && !r.dryRun {
			continue
		}
		if *t.last != nil && **t.last == t.visible {
			continue
		}
		if !r.dryRun {
			if err := r.compositor.SetVisible(ctx, *t.id, t.visible); err != nil {
				if ferr := r.callFailed(err, "visible", *t.id); ferr != nil {
					return ferr
				}
				continue
			}
		}
		v := t.visible
		*t.last = &v
	}
	return nil
}

func (r *Reconciler) applyTints(ctx context.Context, st sky.State) error {
	groups := []struct {
		ids  []int
		tint sky.Tint
		last *sky.Tint
	}{
		{r.dir.SkyIDs, st.SkyTint, &r.gate.SkyTint},
		{r.dir.BuildingIDs, st.BuildingTint, &r.gate.BuildingTint},
	}

	for _, g := range groups {
		if *g.last == g.tint {
			continue
		}
		ok := true
		if !r.dryRun {
			for _, id := range g.ids {
				if err := r.compositor.SetTint(ctx, id, string(g.tint)); err != nil {
					if ferr := r.callFailed(err, "tint", id); ferr != nil {
						return ferr
					}
					ok = false
				}
			}
		}
		if ok {
			*g.last = g.tint
		}
	}
	return nil
}

// callFailed logs a failed compositor call. A missing binary is fatal.
func (r *Reconciler) callFailed(err error, op string, id int) error {
	if errors.Is(err, hyprlax.ErrBinaryNotFound) {
		return err
	}
	r.logger.Debug().Err(err).Str("op", op).Int("id", id).Msg("compositor call failed")
	return nil
}

// Latest returns the most recent snapshot, nil before the first tick.
func (r *Reconciler) Latest() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return nil
	}
	s := *r.latest
	return &s
}

// Directory is the layer directory the loop drives. It does not change after
// startup.
func (r *Reconciler) Directory() *layers.Directory {
	return r.dir
}
