// Package dispatch exposes the caller-facing shipping operations: rate
// shopping across carriers and single-carrier shipment operations.
package dispatch

import (
	"context"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/catalog"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Directory lists catalogued carriers and their merged configuration.
// *catalog.Resolver satisfies it.
type Directory interface {
	Catalog() *catalog.Catalog
	Inspect(ctx context.Context, code shipper.Code) (shipper.CarrierConfig, error)
}

// Service runs shipping operations against carriers built by a Maker.
type Service struct {
	maker        shipper.Maker
	orchestrator *shipper.Orchestrator
	directory    Directory
	logger       *otelzap.Logger
	tracer       trace.Tracer
	observer     shipper.Observer
	now          func() time.Time
}

// Config wires a Service.
type Config struct {
	Maker     shipper.Maker
	Directory Directory
	Rates     shipper.OrchestratorConfig
	Logger    *otelzap.Logger
	Tracer    trace.Tracer
	// Observer receives per-call outcomes; nil disables metrics.
	Observer shipper.Observer
}

// New creates a Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Service{
		maker:        cfg.Maker,
		orchestrator: shipper.NewOrchestrator(cfg.Maker, cfg.Rates, logger, cfg.Observer),
		directory:    cfg.Directory,
		logger:       logger,
		tracer:       wire.Tracer(cfg.Tracer),
		observer:     cfg.Observer,
		now:          time.Now,
	}
}

// ShopRates quotes the request across codes, or every known carrier when
// codes is empty. Carrier failures are reported in the result.
func (s *Service) ShopRates(ctx context.Context, req *shipper.ShipmentRequest, codes []shipper.Code) (res *shipper.RateShopResult, err error) {
	ctx, span := s.tracer.Start(ctx, "dispatch.ShopRates")
	defer func() { wire.EndSpan(span, err) }()

	res, err = s.orchestrator.ShopRates(ctx, req, codes)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("quotes", len(res.Quotes)),
		attribute.Int("failures", len(res.Failures)),
	)
	return res, nil
}

// CreateShipment books data with carrier code.
func (s *Service) CreateShipment(ctx context.Context, code shipper.Code, data *shipper.ShipmentData) (*shipper.ShipmentResult, error) {
	return call(ctx, s, code, "create_shipment", func(ctx context.Context, c shipper.Shipper) (*shipper.ShipmentResult, error) {
		return c.CreateShipment(ctx, data)
	})
}

// TrackShipment returns the tracking history of a shipment.
func (s *Service) TrackShipment(ctx context.Context, code shipper.Code, trackingNumber string) (*shipper.TrackingResult, error) {
	return call(ctx, s, code, "track_shipment", func(ctx context.Context, c shipper.Shipper) (*shipper.TrackingResult, error) {
		return c.TrackShipment(ctx, trackingNumber)
	})
}

// CancelShipment asks the carrier to cancel a shipment.
func (s *Service) CancelShipment(ctx context.Context, code shipper.Code, trackingNumber string) (bool, error) {
	return call(ctx, s, code, "cancel_shipment", func(ctx context.Context, c shipper.Shipper) (bool, error) {
		return c.CancelShipment(ctx, trackingNumber)
	})
}

// CheckServiceability reports whether code serves the lane.
func (s *Service) CheckServiceability(ctx context.Context, code shipper.Code, origin, destination string, mode shipper.PaymentMode) (bool, error) {
	return call(ctx, s, code, "check_serviceability", func(ctx context.Context, c shipper.Shipper) (bool, error) {
		return c.CheckServiceability(ctx, origin, destination, mode)
	})
}

// SchedulePickup books a pickup with the carrier.
func (s *Service) SchedulePickup(ctx context.Context, code shipper.Code, req *shipper.PickupRequest) (*shipper.PickupResult, error) {
	return call(ctx, s, code, "schedule_pickup", func(ctx context.Context, c shipper.Shipper) (*shipper.PickupResult, error) {
		return c.SchedulePickup(ctx, req)
	})
}

// GetLabel fetches the label of a booked shipment.
func (s *Service) GetLabel(ctx context.Context, code shipper.Code, trackingNumber string) (*shipper.Label, error) {
	return call(ctx, s, code, "get_label", func(ctx context.Context, c shipper.Shipper) (*shipper.Label, error) {
		return c.GetLabel(ctx, trackingNumber)
	})
}

// ValidateCredentials checks one carrier. Configuration problems are
// reported as missing_configuration without contacting the carrier.
func (s *Service) ValidateCredentials(ctx context.Context, code shipper.Code) shipper.CredentialCheck {
	ctx, span := s.tracer.Start(ctx, "dispatch.ValidateCredentials",
		trace.WithAttributes(attribute.String("carrier", string(code))))
	defer span.End()

	start := s.now()
	c, err := s.maker.Make(ctx, code)
	if err != nil {
		s.observe("validate_credentials", code, err, s.now().Sub(start))
		check := wire.CheckResult(code, err)
		if shipper.Classify(err) == shipper.ClassConfig {
			check.Failure = shipper.CheckMissingConfiguration
		}
		return check
	}

	check := c.ValidateCredentials(ctx)
	check.Carrier = code
	outcome := "success"
	if !check.Success {
		outcome = string(check.Failure)
		span.SetStatus(codes.Error, check.Detail)
	}
	if s.observer != nil {
		s.observer.ObserveCarrierCall("validate_credentials", code, outcome, s.now().Sub(start))
	}
	s.logger.Ctx(ctx).Info("Validated carrier credentials",
		zap.String("carrier", string(code)),
		zap.Bool("success", check.Success),
		zap.String("failure", string(check.Failure)),
	)
	return check
}

// ValidateAll checks every enabled carrier concurrently and returns the
// checks in catalog order.
func (s *Service) ValidateAll(ctx context.Context) []shipper.CredentialCheck {
	codes := s.enabledCodes(ctx)
	checks := make([]shipper.CredentialCheck, len(codes))

	var g errgroup.Group
	for i, code := range codes {
		g.Go(func() error {
			checks[i] = s.ValidateCredentials(ctx, code)
			return nil
		})
	}
	_ = g.Wait()
	return checks
}

// CarrierInfo summarises a catalogued carrier for listings.
type CarrierInfo struct {
	Code        shipper.Code      `json:"code"`
	DisplayName string            `json:"display_name"`
	Enabled     bool              `json:"enabled"`
	Primary     bool              `json:"primary"`
	Mode        shipper.Mode      `json:"mode"`
	BaseURL     string            `json:"base_url"`
	Features    []shipper.Feature `json:"features"`
	Missing     []string          `json:"missing_credentials,omitempty"`
}

// Configured reports whether every required credential is present.
func (i CarrierInfo) Configured() bool {
	return len(i.Missing) == 0
}

// Carriers lists every catalogued carrier, disabled ones included.
func (s *Service) Carriers(ctx context.Context) ([]CarrierInfo, error) {
	codes := s.directory.Catalog().Codes()
	out := make([]CarrierInfo, 0, len(codes))
	for _, code := range codes {
		cfg, err := s.directory.Inspect(ctx, code)
		if err != nil {
			return nil, err
		}
		out = append(out, CarrierInfo{
			Code:        cfg.Code,
			DisplayName: cfg.DisplayName,
			Enabled:     cfg.Enabled,
			Primary:     cfg.Primary,
			Mode:        cfg.Mode,
			BaseURL:     cfg.BaseURL,
			Features:    cfg.Features,
			Missing:     cfg.MissingCredentials(),
		})
	}
	return out, nil
}

func (s *Service) enabledCodes(ctx context.Context) []shipper.Code {
	if s.directory == nil {
		return shipper.KnownCodes()
	}
	var out []shipper.Code
	for _, code := range s.directory.Catalog().Codes() {
		cfg, err := s.directory.Inspect(ctx, code)
		if err != nil {
			s.logger.Ctx(ctx).Warn("Skipping carrier", zap.String("carrier", string(code)), zap.Error(err))
			continue
		}
		if cfg.Enabled {
			out = append(out, code)
		}
	}
	return out
}

// call builds the adapter for code and runs op inside a span, recording the
// outcome. Configuration errors are returned as-is.
func call[T any](ctx context.Context, s *Service, code shipper.Code, op string, fn func(context.Context, shipper.Shipper) (T, error)) (out T, err error) {
	ctx, span := s.tracer.Start(ctx, "dispatch."+op,
		trace.WithAttributes(attribute.String("carrier", string(code))))
	start := s.now()
	defer func() {
		s.observe(op, code, err, s.now().Sub(start))
		wire.EndSpan(span, err)
	}()

	c, err := s.maker.Make(ctx, code)
	if err != nil {
		s.logger.Ctx(ctx).Warn("Carrier not available",
			zap.String("carrier", string(code)),
			zap.String("operation", op),
			zap.Error(err),
		)
		return out, err
	}

	out, err = fn(ctx, c)
	if err != nil {
		s.logger.Ctx(ctx).Warn("Carrier operation failed",
			zap.String("carrier", string(code)),
			zap.String("operation", op),
			zap.String("error_class", string(shipper.Classify(err))),
			zap.Error(err),
		)
		return out, err
	}
	return out, nil
}

func (s *Service) observe(op string, code shipper.Code, err error, elapsed time.Duration) {
	if s.observer != nil {
		s.observer.ObserveCarrierCall(op, code, shipper.Outcome(err), elapsed)
	}
}
