// Command mailkit renders one template and sends it through the transport
// selected by MAILER_TRANSPORT.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"

	"github.com/dmitrymomot/mailkit/pkg/logger"
	"github.com/dmitrymomot/mailkit/pkg/mailer"
)

const usageText = `Usage:
  mailkit --to ADDRESS --template NAME [OPTIONS]

Options:
%s
Environment:
  MAILER_TRANSPORT   log, sendgrid, sparkpost, resend or ses (default: log)
`

type options struct {
	to       []string
	cc       []string
	bcc      []string
	template string
	data     string
	subject  string
	layout   string
	replyTo  string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d := deps{stdout: os.Stdout, newLogger: newLogger}
	if _, err := run(ctx, os.Args[1:], env.ToMap(os.Environ()), d); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// deps are the process-level collaborators of run.
type deps struct {
	stdout    io.Writer
	newLogger func(logger.Config, logger.SentryConfig) (*slog.Logger, func())
}

func newLogger(cfg logger.Config, scfg logger.SentryConfig) (*slog.Logger, func()) {
	return logger.NewWithSentry(cfg, scfg, logger.MessageIDExtractor())
}

// printIDHooks writes the ID of every accepted message to w.
func printIDHooks(w io.Writer) mailer.Hooks {
	return mailer.Hooks{
		SendPerformed: func(_ context.Context, msg *mailer.Message, _ int) {
			fmt.Fprintln(w, msg.ID)
		},
	}
}

func parseFlags(args []string) (options, error) {
	var opts options

	flags := pflag.NewFlagSet("mailkit", pflag.ContinueOnError)
	flags.StringSliceVar(&opts.to, "to", nil, "Recipient address (repeatable or comma separated)")
	flags.StringSliceVar(&opts.cc, "cc", nil, "Carbon copy address")
	flags.StringSliceVar(&opts.bcc, "bcc", nil, "Blind carbon copy address")
	flags.StringVarP(&opts.template, "template", "t", "", "Template file name, e.g. welcome.md")
	flags.StringVarP(&opts.data, "data", "d", "", "Template data as a JSON object")
	flags.StringVarP(&opts.subject, "subject", "s", "", "Subject override")
	flags.StringVar(&opts.layout, "layout", "", "Layout override")
	flags.StringVar(&opts.replyTo, "reply-to", "", "Reply-to address")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, usageText, flags.FlagUsages())
	}

	if err := flags.Parse(args); err != nil {
		return options{}, err
	}
	if len(opts.to) == 0 {
		return options{}, errors.New("--to is required")
	}
	if opts.template == "" {
		return options{}, errors.New("--template is required")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, environ map[string]string, d deps) (int, error) {
	opts, err := parseFlags(args)
	if err != nil {
		return 0, err
	}

	cfg, err := loadConfig(environ)
	if err != nil {
		return 0, err
	}

	log, flush := d.newLogger(cfg.Log, cfg.Sentry)
	defer flush()

	data := map[string]any{}
	if opts.data != "" {
		if err := json.Unmarshal([]byte(opts.data), &data); err != nil {
			return 0, fmt.Errorf("parse --data: %w", err)
		}
	}

	transport, err := newTransport(ctx, cfg, log, printIDHooks(d.stdout))
	if err != nil {
		return 0, err
	}

	renderer := mailer.NewRendererWithConfig(os.DirFS(cfg.TemplatesDir), mailer.RendererConfig{
		LayoutDir: cfg.LayoutsDir,
	})
	m := mailer.New(transport, renderer, cfg.Mailer, mailer.WithLogger(log))

	n, err := m.Send(ctx, mailer.SendParams{
		Template: opts.template,
		Data:     data,
		Subject:  opts.subject,
		Layout:   opts.layout,
		Build: func(msg *mailer.Message) {
			for _, to := range opts.to {
				msg.AddTo(to, "")
			}
			for _, cc := range opts.cc {
				msg.AddCc(cc, "")
			}
			for _, bcc := range opts.bcc {
				msg.AddBcc(bcc, "")
			}
			if opts.replyTo != "" {
				msg.SetReplyTo(opts.replyTo, "")
			}
		},
	})
	if err != nil {
		return 0, err
	}

	log.InfoContext(ctx, "email sent",
		slog.String("transport", cfg.Transport),
		slog.Int("recipients", n),
	)
	return n, nil
}
