package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/warden/pkg/evolution"
	"mercator-hq/warden/pkg/guard"
	"mercator-hq/warden/pkg/ledger"
	"mercator-hq/warden/pkg/profile"
	"mercator-hq/warden/pkg/profile/store"
	"mercator-hq/warden/pkg/telemetry/logging"
	"mercator-hq/warden/pkg/telemetry/metrics"
	"mercator-hq/warden/pkg/telemetry/tracing"
)

// Options configures an Engine. Store and Ledger are required.
type Options struct {
	Store    *store.Store
	Ledger   *ledger.Ledger
	Pipeline *guard.Pipeline

	// Prior is the committed envelope state. When nil it is rebuilt from
	// the ledger by New.
	Prior *PriorState

	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Logger  *slog.Logger
}

// Decision is the result of one evaluation.
type Decision struct {
	Outcome guard.Outcome  `json:"outcome"`
	Record  *ledger.Record `json:"record"`
}

// Engine evaluates proposals and records every decision.
type Engine struct {
	store    *store.Store
	ledger   *ledger.Ledger
	pipeline *guard.Pipeline
	prior    *PriorState
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	logger   *slog.Logger

	// commitMu serializes ledger appends, prior state updates and
	// profile supersession.
	commitMu sync.Mutex
}

// New creates an engine.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: profile store is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("engine: ledger is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Pipeline == nil {
		opts.Pipeline = guard.NewPipeline(guard.Config{Logger: opts.Logger})
	}
	if opts.Tracer == nil {
		opts.Tracer = tracing.Noop()
	}
	if opts.Prior == nil {
		opts.Prior = NewPriorState()
		if err := opts.Prior.Rebuild(ctx, opts.Ledger); err != nil {
			return nil, err
		}
	}

	return &Engine{
		store:    opts.Store,
		ledger:   opts.Ledger,
		pipeline: opts.Pipeline,
		prior:    opts.Prior,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		logger:   opts.Logger.With("component", "engine"),
	}, nil
}

// Store returns the profile store.
func (e *Engine) Store() *store.Store { return e.store }

// Ledger returns the audit ledger.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Prior returns the committed envelope state.
func (e *Engine) Prior() *PriorState { return e.prior }

// Evaluate decides p and appends the audit record. Structurally invalid
// proposals are recorded as rejected without running guards. An error means
// no decision was made: either the corridor has no usable profile
// (*profile.ProfileValidationError) or the record could not be written
// (*ledger.LedgerWriteError). p is not modified; a missing ID is generated
// on a copy.
func (e *Engine) Evaluate(ctx context.Context, p *evolution.Proposal) (*Decision, error) {
	if p == nil {
		return nil, errors.New("engine: nil proposal")
	}
	start := time.Now()

	prop := *p
	if prop.ID == "" {
		prop.ID = uuid.NewString()
	}

	ctx = logging.WithProposalID(ctx, prop.ID)
	ctx = logging.WithCorridor(ctx, prop.Corridor.CorridorID)
	ctx = logging.WithSubject(ctx, prop.Subject)

	ctx, span := e.tracer.Start(ctx, "engine.evaluate")
	span.SetAttributes(
		tracing.AttrProposalID.String(prop.ID),
		tracing.AttrCorridor.String(prop.Corridor.CorridorID),
	)

	dec, err := e.evaluate(ctx, &prop)
	if err != nil {
		tracing.End(span, err)
		e.logger.ErrorContext(ctx, "Evaluation failed", "error", err)
		return nil, err
	}

	span.SetAttributes(
		tracing.AttrOutcome.String(string(dec.Outcome)),
		tracing.AttrDegraded.Bool(dec.Record.Degraded),
		tracing.AttrReasonCodes.StringSlice(dec.Record.ReasonCodes),
		tracing.AttrSequence.Int64(dec.Record.Sequence),
	)
	tracing.End(span, nil)

	e.metrics.RecordDecision(string(dec.Outcome), dec.Record.Degraded, time.Since(start))
	for _, v := range dec.Record.Verdicts {
		e.metrics.RecordVerdict(v.Guard, string(v.Kind))
	}

	e.logger.InfoContext(ctx, "Proposal evaluated",
		"outcome", dec.Outcome,
		"degraded", dec.Record.Degraded,
		"reason_codes", dec.Record.ReasonCodes,
		"policy", dec.Record.Policy,
		"seq", dec.Record.Sequence,
		"duration", time.Since(start),
	)
	return dec, nil
}

func (e *Engine) evaluate(ctx context.Context, p *evolution.Proposal) (*Decision, error) {
	if errs := evolution.Validate(p); len(errs) > 0 {
		return e.reject(ctx, p, errs)
	}

	prof, err := e.store.Load(p.Corridor.CorridorID, p.Corridor.Jurisdictions, p.Corridor.Credentials)
	if err != nil {
		return nil, fmt.Errorf("resolve profile for corridor %q: %w", p.Corridor.CorridorID, err)
	}

	version := e.prior.version(p.Subject)
	in := guard.NewInput(p, prof, e.prior)
	res := e.run(ctx, in)

	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	if active, ok := e.store.Active(p.Corridor.CorridorID); ok && active != prof {
		e.logger.DebugContext(ctx, "Profile superseded during evaluation, re-evaluating",
			"previous", prof.Ref(), "active", active.Ref())
		prof = active
		in = guard.NewInput(p, prof, e.prior)
		res = e.run(ctx, in)
	} else if e.prior.version(p.Subject) != version {
		e.logger.DebugContext(ctx, "Prior state changed during evaluation, re-evaluating")
		in = guard.NewInput(p, prof, e.prior)
		res = e.run(ctx, in)
	}

	draft := ledger.Draft{
		Subject:     p.Subject,
		Corridor:    p.Corridor.CorridorID,
		ProposalID:  p.ID,
		Evidence:    p.Evidence.Reference(),
		Policy:      prof.Ref(),
		Decision:    p.Description,
		Envelopes:   ledger.EnvelopeStates(in.Envelopes),
		Outcome:     res.Aggregate.Outcome,
		Degraded:    res.Aggregate.Degraded,
		Mitigations: res.Aggregate.Mitigations,
		Verdicts:    res.Verdicts,
		ReasonCodes: res.Aggregate.ReasonCodes,
		Violations:  res.Violations,
	}

	rec, err := e.append(ctx, draft)
	if err != nil {
		return nil, err
	}
	if rec.Outcome == guard.OutcomeAllowed {
		e.prior.commit(rec.Subject, rec.Envelopes)
	}
	return &Decision{Outcome: rec.Outcome, Record: rec}, nil
}

func (e *Engine) run(ctx context.Context, in *guard.Input) *guard.Result {
	ctx, span := e.tracer.Start(ctx, "guard.pipeline")
	defer span.End()

	res := e.pipeline.Evaluate(ctx, in)
	span.SetAttributes(
		tracing.AttrProfile.String(in.Profile.Ref()),
		tracing.AttrGuardCount.Int(len(res.Verdicts)),
		attribute.Int("warden.violations", len(res.Violations)),
	)
	return res
}

func (e *Engine) reject(ctx context.Context, p *evolution.Proposal, errs evolution.ValidationErrors) (*Decision, error) {
	e.logger.InfoContext(ctx, "Proposal rejected", "errors", len(errs))

	draft := ledger.Draft{
		Subject:          p.Subject,
		Corridor:         p.Corridor.CorridorID,
		ProposalID:       p.ID,
		Evidence:         p.Evidence.Reference(),
		Decision:         p.Description,
		Outcome:          guard.OutcomeRejected,
		ReasonCodes:      []string{guard.ReasonInvalidProposal},
		ValidationErrors: errs.Strings(),
	}

	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	rec, err := e.append(ctx, draft)
	if err != nil {
		return nil, err
	}
	return &Decision{Outcome: rec.Outcome, Record: rec}, nil
}

// append must be called with commitMu held.
func (e *Engine) append(ctx context.Context, d ledger.Draft) (*ledger.Record, error) {
	ctx, span := e.tracer.Start(ctx, "ledger.append")
	start := time.Now()

	rec, err := e.ledger.Append(ctx, d)
	e.metrics.RecordAppend(err, time.Since(start), e.ledger.Len())
	if err != nil {
		tracing.End(span, err)
		return nil, err
	}
	span.SetAttributes(tracing.AttrSequence.Int64(rec.Sequence))
	tracing.End(span, nil)
	return rec, nil
}

// Supersede replaces the corridor's active profile with next under the
// commit lock, so in-flight evaluations record either the old or the new
// profile. It fails with a *profile.PolicyDowngradeError when next is less
// strict than the active profile.
func (e *Engine) Supersede(ctx context.Context, corridorID string, next *profile.Profile) error {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	err := e.supersede(corridorID, next)
	e.metrics.RecordSupersession(err)
	if err != nil {
		e.logger.WarnContext(ctx, "Supersession failed", "corridor", corridorID, "candidate", next.Ref(), "error", err)
	}
	return err
}

func (e *Engine) supersede(corridorID string, next *profile.Profile) error {
	if next == nil {
		return errors.New("engine: nil profile")
	}
	old, ok := e.store.Active(corridorID)
	if !ok {
		return fmt.Errorf("supersede corridor %q: %w", corridorID, profile.ErrNotActive)
	}
	return e.store.Supersede(corridorID, old, next)
}

// Supersession is the result of one automatic supersession attempt.
type Supersession struct {
	CorridorID string
	From       string
	To         string
	Err        error
}

// Reconcile replaces the profile catalog with profiles and attempts to
// supersede every bound corridor whose profile has a newer version in the
// catalog. Corridors whose successor is less strict keep their profile.
func (e *Engine) Reconcile(ctx context.Context, profiles []*profile.Profile) []Supersession {
	candidates := e.store.UpdateCatalog(profiles)
	e.metrics.RecordReload(nil, len(profiles))

	results := make([]Supersession, 0, len(candidates))
	for _, c := range candidates {
		err := e.Supersede(ctx, c.CorridorID, c.Next)
		results = append(results, Supersession{
			CorridorID: c.CorridorID,
			From:       c.Current.Ref(),
			To:         c.Next.Ref(),
			Err:        err,
		})
	}
	return results
}
