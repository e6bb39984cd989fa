package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"url2pdf/internal/config"
	"url2pdf/internal/domain"
	"url2pdf/internal/gateway"
	"url2pdf/internal/infra/logging"
)

type options struct {
	config string
	lambda bool
	target string
	out    string
	policy string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("url2pdf", pflag.ContinueOnError)
	fs.StringVarP(&o.config, "config", "c", "", "path to config YAML (default: $CONFIG_PATH or config.yaml)")
	fs.BoolVar(&o.lambda, "lambda", false, "serve AWS Lambda API Gateway events")
	fs.StringVarP(&o.target, "target", "t", "", "render this URL once and exit")
	fs.StringVarP(&o.out, "out", "o", "", "output file for --target (default: <title>.pdf)")
	fs.StringVarP(&o.policy, "policy", "p", "robust", "render policy for --target: robust or simple")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.target == "" && o.out != "" {
		return options{}, fmt.Errorf("--out requires --target")
	}
	return o, nil
}

// renderOnce renders opts.target with the chosen policy and writes the PDF.
func renderOnce(ctx context.Context, cfg config.Config, r gateway.Renderer, opts options) error {
	p, ok := cfg.Policy(opts.policy)
	if !ok {
		return fmt.Errorf("unknown policy %q", opts.policy)
	}
	target, err := domain.ParseTarget(opts.target)
	if err != nil {
		return err
	}

	res, err := r.Render(ctx, p, target)
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = res.Filename + ".pdf"
	}
	if err := os.WriteFile(out, res.PDF, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logging.Info("PDF written", "file", out, "bytes", len(res.PDF))
	return nil
}
