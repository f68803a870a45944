package opt

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultInitialTemp       = 100.0
	DefaultFloorTemp         = 0.01
	DefaultIntensifyAttempts = 150000
	DefaultCheckEvery        = 64
)

// Schedule decays the temperature quadratically from Initial to Floor as
// the remaining fraction of a pass shrinks.
type Schedule struct {
	Initial float64 `yaml:"initial" json:"initial"`
	Floor   float64 `yaml:"floor" json:"floor"`
}

// Temperature at the given remaining fraction, clamped to [0,1].
func (s Schedule) Temperature(remaining float64) float64 {
	remaining = max(0, min(1, remaining))
	return s.Floor + (s.Initial-s.Floor)*remaining*remaining
}

// Mode selects which passes a worker runs per round.
type Mode string

const (
	ModeAnnealIntensify Mode = "anneal+intensify"
	ModeAnneal          Mode = "anneal"
	ModeIntensify       Mode = "intensify"
)

// ParseMode accepts the mode names case-insensitively; empty means the default.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAnnealIntensify, nil
	case ModeAnnealIntensify, ModeAnneal, ModeIntensify:
		return m, nil
	default:
		return "", fmt.Errorf("unknown search mode %q", s)
	}
}

func (m Mode) anneals() bool { return m != ModeIntensify }
func (m Mode) intensifies() bool { return m != ModeAnneal }

// Annealer drives an Engine through annealing and intensification passes.
type Annealer struct {
	Schedule Schedule
	// MaxAttempts bounds an annealing pass; progress is then measured in
	// attempts instead of time. Zero means time-driven.
	MaxAttempts       int
	IntensifyAttempts int
	CheckEvery        int
}

// DefaultAnnealer returns the stock parameters.
func DefaultAnnealer() Annealer {
	return Annealer{
		Schedule:          Schedule{Initial: DefaultInitialTemp, Floor: DefaultFloorTemp},
		IntensifyAttempts: DefaultIntensifyAttempts,
		CheckEvery:        DefaultCheckEvery,
	}
}

func (a Annealer) checkEvery() int {
	if a.CheckEvery > 0 {
		return a.CheckEvery
	}
	return DefaultCheckEvery
}

// Anneal runs Metropolis moves for up to budget, never past deadline.
// It returns the number of attempts made.
func (a Annealer) Anneal(e *Engine, budget time.Duration, deadline time.Time) int {
	every := a.checkEvery()
	if a.MaxAttempts > 0 {
		n := a.MaxAttempts
		for i := 0; i < n; i++ {
			if i%every == 0 && !time.Now().Before(deadline) {
				return i
			}
			e.Step(a.Schedule.Temperature(1 - float64(i)/float64(n)))
		}
		return n
	}
	start := time.Now()
	end := start.Add(budget)
	if deadline.Before(end) {
		end = deadline
	}
	total := end.Sub(start)
	if total <= 0 {
		return 0
	}
	temp := a.Schedule.Initial
	i := 0
	for ; ; i++ {
		if i%every == 0 {
			now := time.Now()
			if !now.Before(end) {
				break
			}
			temp = a.Schedule.Temperature(float64(end.Sub(now)) / float64(total))
		}
		e.Step(temp)
	}
	return i
}

// Intensify samples strict-improvement moves until the attempt cap or the
// deadline, whichever comes first.
func (a Annealer) Intensify(e *Engine, deadline time.Time) int {
	n := a.IntensifyAttempts
	if n <= 0 {
		n = DefaultIntensifyAttempts
	}
	every := a.checkEvery()
	for i := 0; i < n; i++ {
		if i%every == 0 && !time.Now().Before(deadline) {
			return i
		}
		e.Step(0)
	}
	return n
}
