package guard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/warden/pkg/monotonicity"
)

// DefaultTimeout bounds one pipeline run when no timeout is configured.
const DefaultTimeout = 2 * time.Second

// Config configures a Pipeline.
type Config struct {
	// Timeout bounds a single run. Guards still running when it expires are
	// recorded as Forbid with reason GUARD_TIMEOUT.
	Timeout time.Duration

	// Logger receives guard failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// Result is the output of one pipeline run. Verdicts are in guard order.
type Result struct {
	Verdicts   []Verdict
	Violations []monotonicity.Violation
	Aggregate  Aggregate
}

// Pipeline runs a fixed set of guards plus one CustomGuard per profile
// constraint, concurrently, and aggregates their verdicts.
type Pipeline struct {
	guards  []Guard
	timeout time.Duration
	logger  *slog.Logger
}

// DefaultGuards returns the standard guard set in evaluation order.
func DefaultGuards() []Guard {
	return []Guard{
		CeilingGuard{},
		MonotonicityGuard{},
		CapabilityGuard{},
		ConsentGuard{},
		EnvelopeTighteningGuard{},
		RightsFloorGuard{},
	}
}

// NewPipeline creates a pipeline over guards. A nil guard list uses
// DefaultGuards.
func NewPipeline(cfg Config, guards ...Guard) *Pipeline {
	if len(guards) == 0 {
		guards = DefaultGuards()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		guards:  guards,
		timeout: cfg.Timeout,
		logger:  cfg.Logger.With("component", "guard.pipeline"),
	}
}

// Guards returns the guards that run for in: the fixed set followed by one
// CustomGuard per profile constraint.
func (p *Pipeline) Guards(in *Input) []Guard {
	guards := make([]Guard, 0, len(p.guards)+len(in.Profile.CustomConstraints))
	guards = append(guards, p.guards...)
	for _, c := range in.Profile.CustomConstraints {
		guards = append(guards, CustomGuard{Constraint: c})
	}
	return guards
}

type indexed struct {
	i int
	v Verdict
}

// Evaluate runs every guard and the monotonicity checker against in.
// It never fails open: a guard that panics yields Forbid with reason
// GUARD_FAILURE, and a guard that does not finish before the timeout or
// ctx cancellation yields Forbid with reason GUARD_TIMEOUT.
func (p *Pipeline) Evaluate(ctx context.Context, in *Input) *Result {
	guards := p.Guards(in)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	results := make(chan indexed, len(guards))
	violations := make(chan []monotonicity.Violation, 1)

	var g errgroup.Group
	for i, guard := range guards {
		g.Go(func() error {
			results <- indexed{i: i, v: p.run(guard, in)}
			return nil
		})
	}
	g.Go(func() error {
		violations <- monotonicity.Check(Entries(in.Envelopes))
		return nil
	})

	verdicts := make([]Verdict, len(guards))
	done := make([]bool, len(guards))
	pending := len(guards)

collect:
	for pending > 0 {
		select {
		case r := <-results:
			verdicts[r.i] = r.v
			done[r.i] = true
			pending--
		case <-ctx.Done():
			break collect
		}
	}

	for i, ok := range done {
		if !ok {
			p.logger.Warn("guard did not finish",
				"guard", guards[i].Name(),
				"proposal_id", in.Proposal.ID,
				"error", ctx.Err())
			verdicts[i] = verdict(guards[i].Name(), Forbid, ReasonGuardTimeout, "guard did not finish: %v", ctx.Err())
		}
	}

	res := &Result{Verdicts: verdicts, Aggregate: Combine(verdicts)}
	if pending == 0 {
		_ = g.Wait()
		res.Violations = <-violations
	} else {
		select {
		case res.Violations = <-violations:
		default:
			// The checker is pure and cheap; recompute rather than wait.
			res.Violations = monotonicity.Check(Entries(in.Envelopes))
		}
	}
	return res
}

func (p *Pipeline) run(g Guard, in *Input) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("guard panicked",
				"guard", g.Name(),
				"proposal_id", in.Proposal.ID,
				"panic", fmt.Sprint(r))
			v = verdict(g.Name(), Forbid, ReasonGuardFailure, "guard failed: %v", r)
		}
	}()

	v = g.Evaluate(in)
	if v.Guard == "" {
		v.Guard = g.Name()
	}
	return v
}
