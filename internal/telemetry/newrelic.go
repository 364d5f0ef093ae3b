package telemetry

import (
	"example.com/fleetops/config"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// InitNewRelic initializes the New Relic application. It returns nil when
// tracing is disabled or no license key is configured.
func InitNewRelic(cfg config.NewRelicConfig, log *logrus.Logger) (*newrelic.Application, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		log.Info("New Relic tracing disabled")
		return nil, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize New Relic")
	}

	log.WithField("app_name", cfg.AppName).Info("New Relic tracing enabled")
	return app, nil
}
