package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tournevent/courierhub/internal/graphql"
	"github.com/tournevent/courierhub/internal/server"
	"github.com/tournevent/courierhub/internal/telemetry"
	"github.com/tournevent/courierhub/internal/webhook"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/factory"
	"github.com/tournevent/courierhub/pkg/shipper/secrets"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "courierhub",
	Short:        "CourierHub - multi-carrier shipping gateway for Indian couriers",
	Version:      version,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GraphQL and webhook server",
	RunE:  runServe,
}

var carriersCmd = &cobra.Command{
	Use:   "carriers",
	Short: "Inspect configured carriers",
}

var carriersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued carriers and their configuration state",
	RunE:  runCarriersList,
}

var carriersCheckCmd = &cobra.Command{
	Use:   "check [carrier...]",
	Short: "Validate credentials against the live carrier APIs",
	RunE:  runCarriersCheck,
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Shop rates for a parcel across carriers",
	RunE:  runRates,
}

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage encrypted carrier credentials",
}

var secretsEncryptCmd = &cobra.Command{
	Use:   "encrypt <value>",
	Short: "Encrypt a credential with SECRET_KEY for storage in overrides",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretsEncrypt,
}

var rateFlags struct {
	origin      string
	destination string
	weight      float64
	length      float64
	width       float64
	height      float64
	cod         float64
	declared    float64
	carriers    []string
	asJSON      bool
}

func init() {
	f := ratesCmd.Flags()
	f.StringVar(&rateFlags.origin, "from", "", "origin pincode")
	f.StringVar(&rateFlags.destination, "to", "", "destination pincode")
	f.Float64Var(&rateFlags.weight, "weight", 0.5, "dead weight in kg")
	f.Float64Var(&rateFlags.length, "length", 10, "length in cm")
	f.Float64Var(&rateFlags.width, "width", 10, "width in cm")
	f.Float64Var(&rateFlags.height, "height", 10, "height in cm")
	f.Float64Var(&rateFlags.cod, "cod", -1, "amount to collect on delivery; omit for prepaid")
	f.Float64Var(&rateFlags.declared, "declared", 0, "declared value in INR")
	f.StringSliceVar(&rateFlags.carriers, "carrier", nil, "carriers to quote (default all)")
	f.BoolVar(&rateFlags.asJSON, "json", false, "print the result as JSON")
	_ = ratesCmd.MarkFlagRequired("from")
	_ = ratesCmd.MarkFlagRequired("to")

	carriersCmd.AddCommand(carriersListCmd, carriersCheckCmd)
	secretsCmd.AddCommand(secretsEncryptCmd)
	rootCmd.AddCommand(serveCmd, carriersCmd, ratesCmd, secretsCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(context.WithoutCancel(ctx))
	}

	a, err := initApp(ctx, cfg, logger, tracer)
	if err != nil {
		return err
	}
	defer a.Close()

	exec, err := graphql.NewExecutor(graphql.NewResolver(a.service, logger))
	if err != nil {
		return err
	}
	hooks := webhook.NewHandler(webhook.Config{
		Lookup:    factory.Webhook,
		Publisher: a.publisher(),
		Logger:    logger,
		Observer:  a.metrics,
		Token:     cfg.WebhookToken,
	})

	logger.Info("Starting CourierHub",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Strings("carriers", codeStrings(a.resolver.Catalog().Codes())),
	)

	srv := server.New(server.Config{
		Port:     cfg.Port,
		Executor: exec,
		Webhooks: hooks,
		Gatherer: a.registry,
		Logger:   logger,
	})
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cliApp builds the application for one-shot commands, logging to stderr.
func cliApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := telemetry.NewCLILogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return initApp(ctx, cfg, logger, nil)
}

func runCarriersList(cmd *cobra.Command, args []string) error {
	a, err := cliApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	infos, err := a.service.Carriers(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CARRIER\tENABLED\tPRIMARY\tMODE\tCONFIGURED\tMISSING")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%t\t%t\t%s\t%t\t%s\n",
			info.Code, info.Enabled, info.Primary, info.Mode, info.Configured(), strings.Join(info.Missing, ","))
	}
	return w.Flush()
}

func runCarriersCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := cliApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var checks []shipper.CredentialCheck
	if len(args) == 0 {
		checks = a.service.ValidateAll(ctx)
	} else {
		for _, name := range args {
			code, ok := shipper.ParseCode(name)
			if !ok {
				return fmt.Errorf("unknown carrier %q", name)
			}
			checks = append(checks, a.service.ValidateCredentials(ctx, code))
		}
	}

	failed := 0
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CARRIER\tRESULT\tDETAIL")
	for _, c := range checks {
		result := "ok"
		if !c.Success {
			result = string(c.Failure)
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Carrier, result, c.Detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d carriers failed validation", failed, len(checks))
	}
	return nil
}

func runRates(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := cliApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	req := &shipper.ShipmentRequest{
		OriginPincode:      rateFlags.origin,
		DestinationPincode: rateFlags.destination,
		Weight:             rateFlags.weight,
		Length:             rateFlags.length,
		Width:              rateFlags.width,
		Height:             rateFlags.height,
		PaymentMode:        shipper.PaymentPrepaid,
		DeclaredValue:      rateFlags.declared,
	}
	if rateFlags.cod >= 0 {
		amount := rateFlags.cod
		req.PaymentMode = shipper.PaymentCOD
		req.CODAmount = &amount
	}

	codes := make([]shipper.Code, 0, len(rateFlags.carriers))
	for _, name := range rateFlags.carriers {
		code, ok := shipper.ParseCode(name)
		if !ok {
			return fmt.Errorf("unknown carrier %q", name)
		}
		codes = append(codes, code)
	}

	res, err := a.service.ShopRates(ctx, req, codes)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if rateFlags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Quotes)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CARRIER\tSERVICE\tTOTAL\tDAYS")
	for _, q := range res.Quotes {
		days := "-"
		if q.DeliveryDays > 0 {
			days = fmt.Sprint(q.DeliveryDays)
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f %s\t%s\n", q.Carrier, q.ServiceName, q.TotalCharge, q.Currency, days)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for _, f := range res.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", f.Carrier, f.Err)
	}
	if len(res.Quotes) == 0 {
		return errors.New("no carrier returned a quote")
	}
	return nil
}

func runSecretsEncrypt(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.SecretKey == "" {
		return errors.New("SECRET_KEY is not set")
	}
	box, err := secrets.NewBox(cfg.SecretKey)
	if err != nil {
		return err
	}
	sealed, err := box.Encrypt(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sealed)
	return nil
}

func codeStrings(codes []shipper.Code) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}
