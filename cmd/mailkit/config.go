package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/mailkit/pkg/logger"
	"github.com/dmitrymomot/mailkit/pkg/mailer"
	"github.com/dmitrymomot/mailkit/pkg/mailer/logtransport"
	"github.com/dmitrymomot/mailkit/pkg/mailer/resend"
	"github.com/dmitrymomot/mailkit/pkg/mailer/sendgrid"
	"github.com/dmitrymomot/mailkit/pkg/mailer/ses"
	"github.com/dmitrymomot/mailkit/pkg/mailer/sparkpost"
)

// Supported MAILER_TRANSPORT values.
const (
	transportLog       = "log"
	transportSendGrid  = "sendgrid"
	transportSparkPost = "sparkpost"
	transportResend    = "resend"
	transportSES       = "ses"
)

// Config is the full command configuration, read from the environment.
type Config struct {
	Transport    string `env:"MAILER_TRANSPORT" envDefault:"log"`
	TemplatesDir string `env:"MAILER_TEMPLATES_DIR" envDefault:"templates"`
	LayoutsDir   string `env:"MAILER_LAYOUTS_DIR" envDefault:"layouts"`

	Log       logger.Config
	Sentry    logger.SentryConfig
	Mailer    mailer.Config
	SendGrid  sendgrid.Config
	SparkPost sparkpost.Config
	Resend    resend.Config
	SES       ses.Config
}

func loadConfig(environ map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: environ})
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	return cfg, nil
}

// newTransport builds the configured transport. Its hooks log every send
// and then run extra in order.
func newTransport(ctx context.Context, cfg Config, log *slog.Logger, extra ...mailer.Hooks) (mailer.Transport, error) {
	hooks := mailer.MergeHooks(append([]mailer.Hooks{mailer.LogHooks(log)}, extra...)...)

	switch cfg.Transport {
	case transportLog:
		return logtransport.New(log, logtransport.WithHooks(hooks)), nil
	case transportSendGrid:
		if cfg.SendGrid.APIKey == "" {
			return nil, fmt.Errorf("%s: SENDGRID_API_KEY is required", cfg.Transport)
		}
		return sendgrid.New(cfg.SendGrid, sendgrid.WithHooks(hooks)), nil
	case transportSparkPost:
		if cfg.SparkPost.APIKey == "" {
			return nil, fmt.Errorf("%s: SPARKPOST_API_KEY is required", cfg.Transport)
		}
		return sparkpost.New(cfg.SparkPost, sparkpost.WithHooks(hooks)), nil
	case transportResend:
		if cfg.Resend.APIKey == "" {
			return nil, fmt.Errorf("%s: RESEND_API_KEY is required", cfg.Transport)
		}
		return resend.New(cfg.Resend, resend.WithHooks(hooks)), nil
	case transportSES:
		return ses.New(ctx, cfg.SES, ses.WithHooks(hooks))
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
