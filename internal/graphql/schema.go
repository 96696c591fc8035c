package graphql

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	gql "github.com/graph-gophers/graphql-go"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

//go:embed schema.graphqls
var schemaSDL string

const maxQueryDepth = 8

// Request is a GraphQL-over-HTTP request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Executor runs documents against the schema bound to a Resolver.
type Executor struct {
	schema *gql.Schema
}

// NewExecutor parses the schema and binds it to r. Binding fails when a
// schema field has no matching resolver method or struct field.
func NewExecutor(r *Resolver) (*Executor, error) {
	schema, err := gql.ParseSchema(schemaSDL, r,
		gql.UseFieldResolvers(),
		gql.MaxDepth(maxQueryDepth),
		gql.Logger(panicLogger{r.Logger}),
	)
	if err != nil {
		return nil, fmt.Errorf("loading graphql schema: %w", err)
	}
	return &Executor{schema: schema}, nil
}

// Execute runs one operation of req.Query. Data is null when a non-null
// root field failed.
func (e *Executor) Execute(ctx context.Context, req Request) *gql.Response {
	return e.schema.Exec(ctx, req.Query, req.OperationName, req.Variables)
}

// fieldError carries the error classification into the response extensions.
type fieldError struct {
	err error
}

func (e *fieldError) Error() string { return e.err.Error() }

func (e *fieldError) Unwrap() error { return e.err }

// Extensions is read by the GraphQL runtime when building the error entry.
func (e *fieldError) Extensions() map[string]any {
	return errorExtensions(e.err)
}

func errorExtensions(err error) map[string]any {
	ext := map[string]any{"class": string(shipper.Classify(err))}

	var serr *shipper.ShipperError
	var cerr *shipper.ConfigError
	switch {
	case errors.As(err, &cerr):
		ext["carrier"] = string(cerr.Carrier)
	case errors.As(err, &serr):
		ext["carrier"] = string(serr.Carrier)
		ext["code"] = serr.Code
	}
	if errors.Is(err, shipper.ErrInvalidRequest) || errors.Is(err, shipper.ErrInvalidPackage) {
		ext["code"] = "BAD_USER_INPUT"
	}
	return ext
}

type panicLogger struct {
	logger *otelzap.Logger
}

func (l panicLogger) LogPanic(ctx context.Context, value any) {
	l.logger.Ctx(ctx).Error("GraphQL resolver panicked", zap.Any("panic", value))
}
