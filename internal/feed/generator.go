package feed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/intersim/intersim/internal/sim"
)

// Mode selects a traffic pattern.
type Mode string

const (
	// ModeRandom seeds every lane, then adds one vehicle at a time to a
	// random lane, favouring lane A.
	ModeRandom Mode = "random"
	// ModeBurst adds BurstSize vehicles to one random lane per round.
	ModeBurst Mode = "burst"
	// ModeSteady adds one vehicle to every lane per round.
	ModeSteady Mode = "steady"
)

const (
	InitialPerLane = 5
	BurstSize      = 5
	// priorityBoost out of 10 rounds redirect a random pick to lane A.
	priorityBoost = 1
)

// ParseMode returns the mode named s.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeRandom, ModeBurst, ModeSteady:
		return m, nil
	default:
		return "", fmt.Errorf("unknown generator mode %q", s)
	}
}

// firstID keeps the modes' ID ranges apart when several generators feed the
// same directory.
func (m Mode) firstID() uint64 {
	switch m {
	case ModeBurst:
		return 1000
	case ModeSteady:
		return 2000
	default:
		return 1
	}
}

// Generator appends vehicle IDs to lane files.
type Generator struct {
	dir    string
	mode   Mode
	rng    sim.Rand
	nextID uint64
	log    *slog.Logger
}

func NewGenerator(dir string, mode Mode, rng sim.Rand, logger *slog.Logger) (*Generator, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("generator: nil random source")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create feed dir: %w", err)
	}
	return &Generator{
		dir:    dir,
		mode:   mode,
		rng:    rng,
		nextID: mode.firstID(),
		log:    logger.With("component", "generator", "mode", string(mode)),
	}, nil
}

func (g *Generator) Mode() Mode {
	return g.mode
}

// Seed overwrites every lane file with InitialPerLane fresh IDs.
func (g *Generator) Seed() ([]Batch, error) {
	var out []Batch
	for _, o := range sim.Origins {
		ids := g.take(InitialPerLane)
		if err := writeIDs(LanePath(g.dir, o), ids, os.O_CREATE|os.O_WRONLY|os.O_TRUNC); err != nil {
			return out, err
		}
		out = append(out, Batch{Origin: o, IDs: ids})
	}
	g.log.Info("Seeded lane files", "perLane", InitialPerLane)
	return out, nil
}

// Step appends one round of arrivals and returns what was written.
func (g *Generator) Step() ([]Batch, error) {
	var out []Batch
	switch g.mode {
	case ModeSteady:
		for _, o := range sim.Origins {
			out = append(out, Batch{Origin: o, IDs: g.take(1)})
		}
	case ModeBurst:
		o := sim.Origins[g.rng.Intn(len(sim.Origins))]
		out = append(out, Batch{Origin: o, IDs: g.take(BurstSize)})
	default:
		o := sim.Origins[g.rng.Intn(len(sim.Origins))]
		if o != PriorityOrigin && g.rng.Intn(10) < priorityBoost {
			o = PriorityOrigin
		}
		out = append(out, Batch{Origin: o, IDs: g.take(1)})
	}

	for _, b := range out {
		if err := writeIDs(LanePath(g.dir, b.Origin), b.IDs, os.O_CREATE|os.O_WRONLY|os.O_APPEND); err != nil {
			return nil, err
		}
		g.log.Debug("Added vehicles", "origin", b.Origin, "first", b.IDs[0], "count", len(b.IDs))
	}
	return out, nil
}

// Delay returns the pause before the next round.
func (g *Generator) Delay() time.Duration {
	switch g.mode {
	case ModeSteady:
		return time.Second
	case ModeBurst:
		return 5 * time.Second
	default:
		return 2*time.Second + time.Duration(g.rng.Intn(3))*time.Second
	}
}

// Run seeds the lanes in random mode, then appends rounds until ctx is done.
// scale stretches or shrinks the pauses; zero means real time.
func (g *Generator) Run(ctx context.Context, scale float64) error {
	if g.mode == ModeRandom {
		if _, err := g.Seed(); err != nil {
			return err
		}
	}
	if scale <= 0 {
		scale = 1
	}

	for {
		if _, err := g.Step(); err != nil {
			return err
		}

		t := time.NewTimer(time.Duration(float64(g.Delay()) * scale))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (g *Generator) take(n int) []uint64 {
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = g.nextID
		g.nextID++
	}
	return ids
}

func writeIDs(path string, ids []uint64, flag int) error {
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return fmt.Errorf("open lane file: %w", err)
	}

	var b strings.Builder
	for _, id := range ids {
		b.WriteString(strconv.FormatUint(id, 10))
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("write lane file: %w", err)
	}
	return f.Close()
}
