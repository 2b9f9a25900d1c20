// Package telemetry provides observability instrumentation for pixelgate.
//
// It integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry) and Prometheus metrics into a unified system, and ships
// a track.Recorder implementation that turns lifecycle and resolution
// records into log lines and metric samples.
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = version
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Component loggers carry a stable "component" field:
//
//	log := tel.Logger.NewComponentLogger("resolver")
//	log.WithField("key", key).Debug("resolving")
package telemetry
