// Package pipeline runs one lead submission end to end: validate, persist,
// then notify the operator and sync the CRM concurrently, and fold the two
// best-effort results into a single answer for the visitor.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/narration-leads/internal/events"
	"github.com/JakeFAU/narration-leads/internal/lead"
	"github.com/JakeFAU/narration-leads/internal/logging"
	"github.com/JakeFAU/narration-leads/internal/metrics"
	"github.com/JakeFAU/narration-leads/internal/telemetry"
)

// Step names used in logs, metrics and span names.
const (
	StepValidate = "validate"
	StepDedup    = "dedup"
	StepPersist = "persist"
	StepNotify  = "notify"
	StepCRM     = "crm"
)

// Step results used in metrics.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

const defaultStepTimeout = 10 * time.Second

// SpanSubmit is the root span of one submission; each step is a child span
// named "lead." + step.
const SpanSubmit = "lead.submit"

var errStepPanicked = errors.New("step panicked")

// Config controls routing and policy.
type Config struct {
	ContactCollection  string
	EstimateCollection string
	DedupByEmail       bool
	StepTimeout        time.Duration
}

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Store     lead.Store
	Notifier  lead.Notifier
	CRM       lead.CRM
	Validator *lead.Validator
	Events    events.Emitter
	Logger    *zap.Logger
	Tracer    trace.Tracer
}

// Pipeline processes submissions. It is safe for concurrent use; every call
// is independent.
type Pipeline struct {
	cfg       Config
	store     lead.Store
	notifier  lead.Notifier
	crm       lead.CRM
	validator *lead.Validator
	events    events.Emitter
	logger    *zap.Logger
	tracer    trace.Tracer
}

// New constructs a Pipeline. Store, Notifier and CRM are required; the
// server hands in Disabled implementations when credentials are missing.
func New(cfg Config, deps Deps) *Pipeline {
	if cfg.ContactCollection == "" {
		cfg.ContactCollection = lead.CollectionContact
	}
	if cfg.EstimateCollection == "" {
		cfg.EstimateCollection = lead.CollectionEstimate
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = defaultStepTimeout
	}
	if deps.Validator == nil {
		deps.Validator = lead.NewValidator()
	}
	if deps.Events == nil {
		deps.Events = events.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Tracer == nil {
		deps.Tracer = telemetry.Tracer()
	}
	return &Pipeline{
		cfg:       cfg,
		store:     deps.Store,
		notifier:  deps.Notifier,
		crm:       deps.CRM,
		validator: deps.Validator,
		events:    deps.Events,
		logger:    deps.Logger,
		tracer:    deps.Tracer,
	}
}

// SubmitContact validates raw contact form input and processes it.
func (p *Pipeline) SubmitContact(ctx context.Context, raw map[string]any) lead.Result {
	ctx, span := p.startSubmission(ctx, lead.KindContact)
	defer span.End()

	_, vspan := p.startStep(ctx, StepValidate)
	msg, err := p.validator.ContactMessage(raw)
	endStep(vspan, err)
	if err != nil {
		return p.endSubmission(span, p.invalid(lead.KindContact, err))
	}
	return p.endSubmission(span, p.process(ctx, msg))
}

// SubmitEstimate validates raw estimator input and processes it.
func (p *Pipeline) SubmitEstimate(ctx context.Context, raw map[string]any) lead.Result {
	ctx, span := p.startSubmission(ctx, lead.KindEstimate)
	defer span.End()

	_, vspan := p.startStep(ctx, StepValidate)
	est, err := p.validator.EstimateLead(raw)
	endStep(vspan, err)
	if err != nil {
		return p.endSubmission(span, p.invalid(lead.KindEstimate, err))
	}
	return p.endSubmission(span, p.process(ctx, est))
}

// Submit processes an already validated record.
func (p *Pipeline) Submit(ctx context.Context, rec lead.Record) lead.Result {
	ctx, span := p.startSubmission(ctx, rec.Kind())
	defer span.End()
	return p.endSubmission(span, p.process(ctx, rec))
}

func (p *Pipeline) process(ctx context.Context, rec lead.Record) lead.Result {
	kind := rec.Kind()
	doc := lead.NewDocument(p.collection(kind), rec)
	logger := p.logger.With(zap.String(logging.KeyKind, string(kind)))

	if p.cfg.DedupByEmail {
		exists, err := p.emailExists(ctx, doc)
		if err != nil {
			logger.Error("dedup lookup failed", logging.Step(StepDedup), zap.Error(err))
			return p.finish(kind, p.storageFailure(kind, err))
		}
		if exists {
			res := lead.Result{
				Success: true,
				Outcome: lead.OutcomeAlreadyCaptured,
				Message: lead.SuccessMessage(kind, lead.OutcomeAlreadyCaptured),
			}
			logger.Info("submission skipped", logging.Step(StepDedup), zap.Error(res.Err()))
			return p.finish(kind, res)
		}
	}

	receipt, err := p.persist(ctx, doc)
	if err != nil {
		logger.Error("persist failed", logging.Step(StepPersist), zap.Error(err))
		return p.finish(kind, p.storageFailure(kind, err))
	}
	logger = logging.ForSubmission(p.logger, string(kind), receipt.ID)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("lead.id", receipt.ID))

	// Follow-up steps outlive a disconnected client; the step timeout bounds them.
	followUp := context.WithoutCancel(ctx)
	var notified, synced bool
	var crmDiagnostic string
	var g errgroup.Group
	g.Go(func() error {
		notified, _ = p.runStep(followUp, logger, StepNotify, func(ctx context.Context) error {
			return p.notifier.Notify(ctx, rec)
		})
		return nil
	})
	g.Go(func() error {
		synced, crmDiagnostic = p.runStep(followUp, logger, StepCRM, func(ctx context.Context) error {
			return p.crm.Sync(ctx, rec)
		})
		return nil
	})
	_ = g.Wait()

	outcome := lead.Aggregate(notified, synced)
	res := lead.Result{
		Success:       true,
		Outcome:       outcome,
		Message:       lead.SuccessMessage(kind, outcome),
		ID:            receipt.ID,
		Notified:      notified,
		Synced:        synced,
		CRMDiagnostic: crmDiagnostic,
	}
	if est, ok := rec.(lead.EstimateLead); ok {
		if q, err := est.Quote(); err == nil {
			res.Quote = &q
		}
	}
	p.events.Emit(followUp, events.LeadCaptured(doc, receipt, outcome))
	logger.Info("submission processed", logging.Outcome(string(outcome)))
	return p.finish(kind, res)
}

func (p *Pipeline) collection(kind lead.Kind) string {
	if kind == lead.KindEstimate {
		return p.cfg.EstimateCollection
	}
	return p.cfg.ContactCollection
}

func (p *Pipeline) emailExists(ctx context.Context, doc lead.Document) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StepTimeout)
	defer cancel()
	ctx, span := p.startStep(ctx, StepDedup)
	start := time.Now()
	exists, err := p.store.EmailExists(ctx, doc.Collection, doc.Email)
	metrics.ObserveStep(StepDedup, stepResult(err), time.Since(start))
	span.SetAttributes(attribute.Bool("lead.exists", exists))
	endStep(span, err)
	return exists, err
}

func (p *Pipeline) persist(ctx context.Context, doc lead.Document) (lead.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StepTimeout)
	defer cancel()
	ctx, span := p.startStep(ctx, StepPersist)
	start := time.Now()
	receipt, err := p.store.Append(ctx, doc)
	metrics.ObserveStep(StepPersist, stepResult(err), time.Since(start))
	endStep(span, err)
	return receipt, err
}

// runStep executes one best-effort step under the step timeout. It reports
// success and, on failure, any diagnostic the collaborator attached.
func (p *Pipeline) runStep(ctx context.Context, logger *zap.Logger, name string, fn func(context.Context) error) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StepTimeout)
	defer cancel()
	ctx, span := p.startStep(ctx, name)
	defer span.End()
	start := time.Now()
	err := guard(ctx, fn)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		metrics.ObserveStep(name, ResultOK, elapsed)
		return true, ""
	case errors.Is(err, lead.ErrConfigurationMissing):
		metrics.ObserveStep(name, ResultSkipped, 0)
		span.SetAttributes(attribute.String("step.result", ResultSkipped))
		logger.Warn("step skipped", logging.Step(name), zap.Error(err))
		return false, ""
	default:
		metrics.ObserveStep(name, ResultFailed, elapsed)
		var diag string
		var d lead.Diagnoser
		if errors.As(err, &d) {
			diag = d.Diagnostic()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "step failed")
		logger.Error("step failed", logging.Step(name), zap.String("diagnostic", diag), zap.Error(err))
		return false, diag
	}
}

// guard runs fn and turns a panic into an error so a faulty collaborator
// cannot take the process down after the lead was persisted.
func guard(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errStepPanicked, r)
		}
	}()
	return fn(ctx)
}

func (p *Pipeline) startSubmission(ctx context.Context, kind lead.Kind) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, SpanSubmit, trace.WithAttributes(attribute.String("lead.kind", string(kind))))
}

func (p *Pipeline) endSubmission(span trace.Span, res lead.Result) lead.Result {
	span.SetAttributes(attribute.String("lead.outcome", string(res.Outcome)))
	if !res.Success {
		span.SetStatus(codes.Error, string(res.Outcome))
	}
	return res
}

func (p *Pipeline) startStep(ctx context.Context, name string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "lead."+name)
}

func endStep(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (p *Pipeline) invalid(kind lead.Kind, err error) lead.Result {
	res := lead.Result{Outcome: lead.OutcomeInvalid}
	var verr *lead.ValidationError
	if errors.As(err, &verr) {
		res.Message = lead.InvalidMessage(kind, verr)
		res.Fields = verr.Map()
	} else {
		res.Message = lead.InvalidMessage(kind, nil)
	}
	p.logger.Info("submission rejected",
		zap.String(logging.KeyKind, string(kind)),
		logging.Outcome(string(lead.OutcomeInvalid)),
		zap.Error(err),
	)
	return p.finish(kind, res)
}

func (p *Pipeline) storageFailure(kind lead.Kind, err error) lead.Result {
	var writeErr *lead.WriteError
	_ = errors.As(err, &writeErr)
	return lead.Result{
		Outcome: lead.OutcomeStorageFailed,
		Message: lead.StorageFailureMessage(kind, writeErr),
	}
}

func (p *Pipeline) finish(kind lead.Kind, res lead.Result) lead.Result {
	metrics.ObserveSubmission(string(kind), string(res.Outcome))
	return res
}

func stepResult(err error) string {
	if err != nil {
		return ResultFailed
	}
	return ResultOK
}
