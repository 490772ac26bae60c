package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/classifier"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/resolver"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/sandbox"
)

// Orchestrator runs call batches: resolve, classify, execute in waves,
// aggregate ordered results.
type Orchestrator struct {
	resolver   *resolver.Resolver
	classifier *classifier.Classifier
	executor   *sandbox.Executor
	cfg        Config

	metrics Metrics
	history Recorder
}

// New creates an Orchestrator over the given resolver, classifier and
// sandbox executor.
func New(res *resolver.Resolver, cls *classifier.Classifier, exec *sandbox.Executor, cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		resolver:   res,
		classifier: cls,
		executor:   exec,
		cfg:        cfg,
	}, nil
}

// SetMetrics attaches an instrumentation sink
func (o *Orchestrator) SetMetrics(m Metrics) {
	o.metrics = m
}

// SetHistory attaches a call-history recorder
func (o *Orchestrator) SetHistory(r Recorder) {
	o.history = r
}

// plannedCall is one batch entry that survived resolution
type plannedCall struct {
	index    int
	req      CallRequest
	res      resolver.Resolution
	class    classifier.Class
	fallback bool // resolved through the fallback tier
}

// RunBatch executes one assistant turn's calls and returns one result per
// request, in input order. Per-call failures become Failure results; the
// batch itself never fails. Cancelling ctx stops not-yet-started waves and
// abandons in-flight calls at their next suspension point.
func (o *Orchestrator) RunBatch(ctx context.Context, requests []CallRequest) []CallResult {
	batchID := uuid.New().String()
	startTime := time.Now()
	results := make([]CallResult, len(requests))
	durations := make([]time.Duration, len(requests))

	log.Info().
		Str("batch_id", batchID).
		Int("calls", len(requests)).
		Msg("Starting batch")

	waves := make(map[classifier.Class][]*plannedCall)
	planned := 0
	for i, req := range requests {
		pc, detail := o.plan(i, req)
		if detail != nil {
			results[i] = CallResult{ToolName: req.ToolName, Status: StatusFailure, Error: detail}
			continue
		}
		waves[pc.class] = append(waves[pc.class], pc)
		planned++
	}

	for _, class := range classifier.AllClasses() {
		wave := waves[class]
		if len(wave) == 0 {
			continue
		}

		// A cancelled batch never starts another wave
		if ctx.Err() != nil {
			for _, pc := range wave {
				results[pc.index] = CallResult{
					ToolName: pc.req.ToolName,
					Status:   StatusFailure,
					Error:    &ErrorDetail{Kind: KindCancelled, Message: "batch cancelled"},
				}
			}
			continue
		}

		waveStart := time.Now()
		log.Debug().
			Str("batch_id", batchID).
			Str("class", string(class)).
			Int("calls", len(wave)).
			Msg("Starting wave")

		if class.Parallel() {
			o.runParallelWave(ctx, class, wave, results, durations)
		} else {
			// Immediate calls run one at a time in submission order
			for _, pc := range wave {
				results[pc.index], durations[pc.index] = o.runCall(ctx, pc)
			}
		}

		if o.metrics != nil {
			o.metrics.ObserveWave(string(class), time.Since(waveStart))
		}
	}

	o.record(ctx, batchID, results, durations)

	log.Info().
		Str("batch_id", batchID).
		Int("calls", len(requests)).
		Int("planned", planned).
		Dur("duration", time.Since(startTime)).
		Msg("Batch completed")

	return results
}

// plan resolves and classifies one request. A name the resolver cannot
// place falls through to the fallback tier before becoming NotFound.
func (o *Orchestrator) plan(index int, req CallRequest) (*plannedCall, *ErrorDetail) {
	res, err := o.resolver.Resolve(req.ToolName)
	if err == nil {
		return &plannedCall{
			index: index,
			req:   req,
			res:   res,
			class: o.classifier.Classify(res.Entry.QualifiedName, res.Adapter.Kind()),
		}, nil
	}

	fb, fbErr := o.resolver.ResolveFallback(req.ToolName)
	if fbErr != nil {
		return nil, errorDetail(err)
	}

	log.Debug().
		Str("function", req.ToolName).
		Str("fallback", fb.Entry.QualifiedName).
		Msg("Primary resolution failed, using fallback tier")

	return &plannedCall{
		index:    index,
		req:      req,
		res:      fb,
		class:    o.classifier.Classify(fb.Entry.QualifiedName, fb.Adapter.Kind()),
		fallback: true,
	}, nil
}

// runParallelWave executes one wave's calls concurrently. ExternalService
// waves are bounded by the configured concurrency cap; the other parallel
// classes run unbounded.
func (o *Orchestrator) runParallelWave(ctx context.Context, class classifier.Class, wave []*plannedCall, results []CallResult, durations []time.Duration) {
	var sem chan struct{}
	if class == classifier.ClassExternalService {
		sem = make(chan struct{}, o.cfg.ExternalConcurrency)
	}

	var wg sync.WaitGroup
	for _, pc := range wave {
		wg.Add(1)
		go func(pc *plannedCall) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			results[pc.index], durations[pc.index] = o.runCall(ctx, pc)
		}(pc)
	}
	wg.Wait()
}

// runCall executes one planned call through the sandbox. On a NotFound
// raised by the adapter itself (source unloaded after resolution) it
// re-resolves exactly once; on a NotFound or execution fault from the
// primary tier it consults the fallback tier before settling on Failure.
func (o *Orchestrator) runCall(ctx context.Context, pc *plannedCall) (CallResult, time.Duration) {
	startTime := time.Now()
	if o.metrics != nil {
		o.metrics.CallStarted()
		defer o.metrics.CallFinished()
	}

	budget := o.cfg.budgetFor(pc.class)
	res := pc.res
	value, err := o.executor.Execute(ctx, res.Adapter, res.Entry, pc.req.Parameters, budget)

	if err != nil && errors.Is(err, registry.ErrNotFound) && !pc.fallback {
		if retry, rerr := o.resolver.Resolve(pc.req.ToolName); rerr == nil {
			log.Debug().
				Str("function", pc.req.ToolName).
				Str("source", retry.Adapter.SourceID()).
				Msg("Entry vanished mid-call, re-resolved once")
			res = retry
			value, err = o.executor.Execute(ctx, res.Adapter, res.Entry, pc.req.Parameters, budget)
		}
	}

	status := StatusSuccess
	if pc.fallback {
		status = StatusFallback
	}

	if err == nil {
		result := CallResult{
			ToolName: pc.req.ToolName,
			Status:   status,
			Value:    value,
			SourceID: res.Adapter.SourceID(),
		}
		o.observe(result, time.Since(startTime))
		return result, time.Since(startTime)
	}

	detail := errorDetail(err)
	if !pc.fallback && fallbackEligible(detail) {
		if fb, fbErr := o.resolver.ResolveFallback(pc.req.ToolName); fbErr == nil {
			fbValue, fbExecErr := o.executor.Execute(ctx, fb.Adapter, fb.Entry, pc.req.Parameters, budget)
			if fbExecErr == nil {
				log.Info().
					Str("function", pc.req.ToolName).
					Str("fallback", fb.Entry.QualifiedName).
					Str("kind", string(detail.Kind)).
					Msg("Primary call failed, fallback succeeded")
				result := CallResult{
					ToolName: pc.req.ToolName,
					Status:   StatusFallback,
					Value:    fbValue,
					SourceID: fb.Adapter.SourceID(),
				}
				o.observe(result, time.Since(startTime))
				return result, time.Since(startTime)
			}
		}
	}

	log.Warn().
		Str("function", pc.req.ToolName).
		Str("kind", string(detail.Kind)).
		Str("message", detail.Message).
		Msg("Call failed")

	result := CallResult{
		ToolName: pc.req.ToolName,
		Status:   StatusFailure,
		Error:    detail,
		SourceID: res.Adapter.SourceID(),
	}
	o.observe(result, time.Since(startTime))
	return result, time.Since(startTime)
}

func (o *Orchestrator) observe(result CallResult, duration time.Duration) {
	if o.metrics != nil {
		o.metrics.ObserveCall(result.ToolName, string(result.Status), duration)
	}
}

func (o *Orchestrator) record(ctx context.Context, batchID string, results []CallResult, durations []time.Duration) {
	if o.history == nil {
		return
	}
	for i, result := range results {
		if err := o.history.Record(ctx, batchID, i, result, durations[i]); err != nil {
			log.Warn().Err(err).Str("batch_id", batchID).Int("index", i).Msg("Failed to record call history")
		}
	}
}
