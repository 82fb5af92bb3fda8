// Package instrumentation provides OpenTelemetry instrumentation for the
// token server: counters for issued tokens, grant executions and bearer
// token validations, plus a histogram for storage operation duration.
//
// Providers are no-op until an exporter wiring lands, so the default
// configuration has zero record-time overhead:
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "my-token-server",
//		ServiceVersion: "1.0.0",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
// Never record actual token, code or secret values in telemetry; only
// metadata such as grant types, client identifiers and outcomes.
package instrumentation
