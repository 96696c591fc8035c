package shipper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RankPolicy selects how shopped quotes are ordered.
type RankPolicy string

const (
	RankByCost  RankPolicy = "cost"
	RankBySpeed RankPolicy = "speed"
)

// ParseRankPolicy accepts "cost" or "speed"; empty means cost.
func ParseRankPolicy(s string) (RankPolicy, error) {
	switch RankPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", RankByCost:
		return RankByCost, nil
	case RankBySpeed:
		return RankBySpeed, nil
	}
	return "", fmt.Errorf("unknown rank policy %q", s)
}

// ErrDeadlineExceeded marks carriers that had not answered when the rate shop closed.
var ErrDeadlineExceeded = errors.New("no answer before rate shop deadline")

// Observer receives the outcome of every carrier call made by the orchestrator.
type Observer interface {
	ObserveCarrierCall(operation string, carrier Code, outcome string, elapsed time.Duration)
}

// OrchestratorConfig controls fan-out, time bounds and ranking.
type OrchestratorConfig struct {
	// CarrierTimeout bounds each carrier's serviceability check plus rate call.
	CarrierTimeout time.Duration
	// Deadline bounds the whole rate shop; late answers are discarded.
	Deadline time.Duration
	Policy   RankPolicy
	// Priority breaks ranking ties; carriers not listed follow in catalog order.
	Priority            []Code
	CheckServiceability bool
	// MaxConcurrency limits simultaneous carrier calls; zero means one per carrier.
	MaxConcurrency int
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.Deadline <= 0 {
		c.Deadline = 10 * time.Second
	}
	if c.CarrierTimeout <= 0 || c.CarrierTimeout > c.Deadline {
		c.CarrierTimeout = c.Deadline
	}
	if c.Policy == "" {
		c.Policy = RankByCost
	}
	return c
}

// CarrierFailure records why a carrier contributed no quotes.
type CarrierFailure struct {
	Carrier Code
	Err     error
}

// RateShopResult holds the ranked quotes and the carriers that were dropped.
type RateShopResult struct {
	Quotes   []RateQuote
	Failures []CarrierFailure
}

// Orchestrator fans rate requests out to carriers and ranks what comes back.
type Orchestrator struct {
	maker    Maker
	cfg      OrchestratorConfig
	logger   *otelzap.Logger
	observer Observer
}

// NewOrchestrator creates an orchestrator. observer may be nil.
func NewOrchestrator(maker Maker, cfg OrchestratorConfig, logger *otelzap.Logger, observer Observer) *Orchestrator {
	return &Orchestrator{
		maker:    maker,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		observer: observer,
	}
}

type carrierOutcome struct {
	carrier Code
	quotes  []RateQuote
	err     error
}

// ShopRates queries the given carriers concurrently, or every known carrier
// when codes is empty. A carrier that fails, is misconfigured, or misses the
// deadline is reported in Failures and never fails the call.
func (o *Orchestrator) ShopRates(ctx context.Context, req *ShipmentRequest, codes []Code) (*RateShopResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		codes = KnownCodes()
	}
	codes = uniqueCodes(codes)

	o.logger.Ctx(ctx).Info("Shopping rates",
		zap.String("origin", req.OriginPincode),
		zap.String("destination", req.DestinationPincode),
		zap.Float64("weight_kg", req.Weight),
		zap.Int("carrier_count", len(codes)),
	)

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Deadline)
	defer cancel()

	// Buffered so late finishers never block after collection stops.
	outcomes := make(chan carrierOutcome, len(codes))

	g := new(errgroup.Group)
	if o.cfg.MaxConcurrency > 0 {
		g.SetLimit(o.cfg.MaxConcurrency)
	}
	go func() {
		for _, code := range codes {
			g.Go(func() error {
				// Each carrier gets its own copy of the request.
				r := *req
				outcomes <- o.quoteCarrier(ctx, code, &r)
				// Failures are collected, not propagated, so siblings keep running.
				return nil
			})
		}
		_ = g.Wait()
		close(outcomes)
	}()

	result := &RateShopResult{}
	answered := make(map[Code]bool, len(codes))

collect:
	for len(answered) < len(codes) {
		select {
		case out, ok := <-outcomes:
			if !ok {
				break collect
			}
			answered[out.carrier] = true
			if out.err != nil && ctx.Err() != nil && errors.Is(out.err, context.DeadlineExceeded) {
				out.err = fmt.Errorf("%w: %w", ErrDeadlineExceeded, out.err)
			}
			if out.err != nil {
				o.logDrop(ctx, out.carrier, out.err)
				result.Failures = append(result.Failures, CarrierFailure{Carrier: out.carrier, Err: out.err})
				continue
			}
			result.Quotes = append(result.Quotes, out.quotes...)
		case <-ctx.Done():
			break collect
		}
	}

	for _, code := range codes {
		if !answered[code] {
			o.logger.Ctx(ctx).Warn("Carrier missed rate shop deadline", zap.String("carrier", string(code)))
			result.Failures = append(result.Failures, CarrierFailure{Carrier: code, Err: ErrDeadlineExceeded})
		}
	}

	RankQuotes(result.Quotes, o.cfg.Policy, o.cfg.Priority)

	o.logger.Ctx(ctx).Info("Rate shop complete",
		zap.Int("quote_count", len(result.Quotes)),
		zap.Int("failed_carriers", len(result.Failures)),
	)
	return result, nil
}

func (o *Orchestrator) quoteCarrier(ctx context.Context, code Code, req *ShipmentRequest) carrierOutcome {
	start := time.Now()
	out := carrierOutcome{carrier: code}

	adapter, err := o.maker.Make(ctx, code)
	if err != nil {
		out.err = err
		o.observe(code, err, time.Since(start))
		return out
	}

	cctx, cancel := context.WithTimeout(ctx, o.cfg.CarrierTimeout)
	defer cancel()

	out.quotes, out.err = within(cctx, func(ctx context.Context) ([]RateQuote, error) {
		if o.cfg.CheckServiceability {
			ok, err := adapter.CheckServiceability(ctx, req.OriginPincode, req.DestinationPincode, req.PaymentMode)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%w: %s to %s", ErrNotServiceable, req.OriginPincode, req.DestinationPincode)
			}
		}
		return adapter.GetRates(ctx, req)
	})
	if out.err == nil && len(out.quotes) == 0 {
		out.err = ErrRatesUnavailable
	}
	o.observe(code, out.err, time.Since(start))
	return out
}

// within runs fn and returns early when ctx ends, even if fn ignores ctx.
func within[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				ch <- result{zero, fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (o *Orchestrator) observe(code Code, err error, elapsed time.Duration) {
	if o.observer == nil {
		return
	}
	o.observer.ObserveCarrierCall("get_rates", code, Outcome(err), elapsed)
}

func (o *Orchestrator) logDrop(ctx context.Context, code Code, err error) {
	fields := []zap.Field{
		zap.String("carrier", string(code)),
		zap.String("error_class", string(Classify(err))),
		zap.Error(err),
	}
	switch Classify(err) {
	case ClassConfig:
		o.logger.Ctx(ctx).Debug("Carrier skipped", fields...)
	case ClassBusiness:
		o.logger.Ctx(ctx).Info("Carrier declined rate request", fields...)
	default:
		o.logger.Ctx(ctx).Warn("Carrier dropped from rate shop", fields...)
	}
}

// Outcome labels an error for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	switch Classify(err) {
	case ClassConfig:
		return "config"
	case ClassAuth:
		return "auth"
	case ClassTransient:
		return "transient"
	default:
		return "rejected"
	}
}

// RankQuotes sorts quotes in place by the policy. Ties go to the carrier that
// appears first in priority, then to the other metric, then to service code.
func RankQuotes(quotes []RateQuote, policy RankPolicy, priority []Code) {
	rank := priorityIndex(priority)
	sort.SliceStable(quotes, func(i, j int) bool {
		a, b := quotes[i], quotes[j]
		var primary, secondary int
		if policy == RankBySpeed {
			primary, secondary = compareDays(a, b), compareCost(a, b)
		} else {
			primary, secondary = compareCost(a, b), compareDays(a, b)
		}
		if primary != 0 {
			return primary < 0
		}
		if ra, rb := rank(a.Carrier), rank(b.Carrier); ra != rb {
			return ra < rb
		}
		if secondary != 0 {
			return secondary < 0
		}
		return a.ServiceCode < b.ServiceCode
	})
}

func compareCost(a, b RateQuote) int {
	switch {
	case a.TotalCharge < b.TotalCharge:
		return -1
	case a.TotalCharge > b.TotalCharge:
		return 1
	}
	return 0
}

// compareDays orders by delivery days; quotes without an estimate sort last.
func compareDays(a, b RateQuote) int {
	da, db := a.DeliveryDays, b.DeliveryDays
	switch {
	case da == db:
		return 0
	case da == 0:
		return 1
	case db == 0:
		return -1
	case da < db:
		return -1
	}
	return 1
}

func priorityIndex(priority []Code) func(Code) int {
	idx := make(map[Code]int, len(priority)+len(knownCodes))
	for _, c := range priority {
		if _, ok := idx[c]; !ok {
			idx[c] = len(idx)
		}
	}
	for _, c := range knownCodes {
		if _, ok := idx[c]; !ok {
			idx[c] = len(idx)
		}
	}
	return func(c Code) int {
		if i, ok := idx[c]; ok {
			return i
		}
		return len(idx)
	}
}

func uniqueCodes(codes []Code) []Code {
	seen := make(map[Code]bool, len(codes))
	out := make([]Code, 0, len(codes))
	for _, c := range codes {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
