package kproc

import (
	"github.com/viant/kproc/proc"
	"github.com/viant/kproc/service/dao/acct"
	"github.com/viant/kproc/service/event"
	"github.com/viant/kproc/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Service.
type Option func(s *Service)

// WithConfig sets the configuration; nil keeps the defaults.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithPolicy overrides the policy named by the configuration.
func WithPolicy(policy proc.Policy) Option {
	return func(s *Service) { s.policy = policy }
}

// WithAccountingDAO sets the store for reaped process records.
func WithAccountingDAO(dao acct.Service) Option {
	return func(s *Service) { s.accounting = dao }
}

// WithEventListener adds a handler run on the event consumer for every
// lifecycle event, after accounting.
func WithEventListener(handler event.Handler[proc.Event]) Option {
	return func(s *Service) { s.handlers = append(s.handlers, handler) }
}

// WithTracing configures OpenTelemetry tracing with the stdout exporter,
// writing to outputFile when it is not empty. The first successful
// initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing with a custom
// exporter. The first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
