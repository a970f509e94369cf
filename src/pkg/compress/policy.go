package compress

import (
	"handover/src/pkg/config"
	"handover/src/pkg/util"
)

// Phase of the compressor state machine.
type Phase int

const (
	QualityReduction Phase = iota
	DimensionReduction
)

func (p Phase) String() string {
	if p == DimensionReduction {
		return "dimension-reduction"
	}
	return "quality-reduction"
}

/*
Policy holds the compressor tuning constants. Qualities are percentages as
understood by the JPEG encoder; ScalePercent is applied to both dimensions on
every dimension reduction step.
*/
type Policy struct {
	InitialQuality int
	QualityFloor   int
	QualityStep    int
	QualityNudge   int
	ScalePercent   int
	MaxAttempts    int
}

// DefaultPolicy: start at 90, floor 45, step 10, shrink to 85%, 12 attempts.
func DefaultPolicy() Policy {
	return PolicyFromConfig(config.DefaultValueConfig().Compressor)
}

func PolicyFromConfig(cfg config.CompressorConfig) Policy {
	return Policy{
		InitialQuality: cfg.InitialQuality,
		QualityFloor:   cfg.QualityFloor,
		QualityStep:    cfg.QualityStep,
		QualityNudge:   cfg.QualityNudge,
		ScalePercent:   cfg.ScalePercent,
		MaxAttempts:    cfg.MaxAttempts,
	}.sanitized()
}

// sanitized replaces values that would stall the state machine.
func (p Policy) sanitized() Policy {
	p.InitialQuality = util.Clamp(p.InitialQuality, 1, 100)
	p.QualityFloor = util.Clamp(p.QualityFloor, 1, p.InitialQuality)
	if p.QualityStep < 1 {
		p.QualityStep = 1
	}
	if p.QualityNudge < 0 {
		p.QualityNudge = 0
	}
	if p.ScalePercent < 1 || p.ScalePercent > 99 {
		p.ScalePercent = 85
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}

// State describes the encoding attempt about to be made. Attempt is 1-based.
type State struct {
	Phase   Phase
	Quality int
	Width   int
	Height  int
	Attempt int
}

// Start is the first attempt for a width x height bitmap.
func Start(p Policy, width, height int) State {
	p = p.sanitized()
	return State{
		Phase:   QualityReduction,
		Quality: p.InitialQuality,
		Width:   width,
		Height:  height,
		Attempt: 1,
	}
}

/*
Next is the pure transition applied after an attempt missed the budget.
While the quality is above the floor it drops by one step. Otherwise both
dimensions shrink to ScalePercent and the quality is nudged back up, capped at
the initial quality, since the lower resolution leaves room for it.
*/
func Next(p Policy, s State) State {
	p = p.sanitized()
	next := s
	next.Attempt++

	if s.Quality > p.QualityFloor {
		next.Quality = max(s.Quality-p.QualityStep, 1)
		return next
	}

	next.Phase = DimensionReduction
	next.Width = util.RoundPixels(float64(s.Width) * float64(p.ScalePercent) / 100)
	next.Height = util.RoundPixels(float64(s.Height) * float64(p.ScalePercent) / 100)
	next.Quality = min(s.Quality+p.QualityNudge, p.InitialQuality)
	return next
}

// Plan lists the states the compressor walks through when no attempt fits.
func Plan(p Policy, width, height int) []State {
	p = p.sanitized()
	states := make([]State, 0, p.MaxAttempts)
	s := Start(p, width, height)
	for {
		states = append(states, s)
		if s.Attempt >= p.MaxAttempts {
			return states
		}
		s = Next(p, s)
	}
}
