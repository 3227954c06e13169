package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/browserwing/actionrunner/config"
	"github.com/browserwing/actionrunner/executor"
	"github.com/browserwing/actionrunner/export"
	"github.com/browserwing/actionrunner/models"
	"github.com/browserwing/actionrunner/pkg/logger"
	"github.com/browserwing/actionrunner/services/browser"
	"github.com/browserwing/actionrunner/services/runner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type runFlags struct {
	template string
	params   []string
	engine   string
	headless bool
	stealth  bool
	proxy    string
	export   string
	output   string
	stream   bool
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Execute a run from a JSON/YAML file or a template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActions(cmd, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.template, "template", "t", "", "Built-in template to expand")
	cmd.Flags().StringArrayVarP(&f.params, "param", "p", nil, "Template parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&f.engine, "engine", "", "Browser engine: chromium, firefox, webkit")
	cmd.Flags().BoolVar(&f.headless, "headless", true, "Run the browser headless")
	cmd.Flags().BoolVar(&f.stealth, "stealth", false, "Enable anti-detection measures")
	cmd.Flags().StringVar(&f.proxy, "proxy", "", "Custom proxy URL")
	cmd.Flags().StringVar(&f.export, "export", "", "Also export per-action rows: csv, table, xlsx")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Export destination (default stdout)")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "Stream each result as a JSON line to stderr")
	return cmd
}

func runActions(cmd *cobra.Command, f *runFlags, args []string) error {
	var format export.Format
	if f.export != "" {
		parsed, err := export.ParseFormat(strings.ToLower(f.export))
		if err != nil {
			return err
		}
		format = parsed
	}
	if format == export.FormatXLSX && f.output == "" {
		return errors.New("xlsx export needs --output")
	}

	in, err := buildRunInput(cmd, f, args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(&cfg.Log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := []runner.Sink{runner.NewLogSink(log)}
	if f.stream {
		sinks = append(sinks, runner.NewJSONLinesSink(cmd.ErrOrStderr()))
	}
	if cfg.Runner.SaveScreenshots {
		prefix := time.Now().Format("20060102-150405")
		sinks = append(sinks, runner.NewScreenshotSink(cfg.Runner.ScreenshotDir, prefix))
	}

	provisioner := browser.NewProvisioner(cfg.Browser, cfg.Proxy, log)
	r := runner.New(provisioner, log,
		runner.WithSinks(sinks...),
		runner.WithExecutorOptions(executor.Options{
			TypeDelay: time.Duration(cfg.Runner.TypeDelayMS) * time.Millisecond,
		}),
	)

	summary, runErr := r.Run(ctx, in)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return errors.Wrap(err, "write summary")
	}

	if f.export != "" {
		if err := writeExport(cmd.OutOrStdout(), f.output, format, summary, cfg.Runner.ExportMaxOutput); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	if summary.Stats.FailedActions > 0 {
		return fmt.Errorf("%d of %d actions failed", summary.Stats.FailedActions, summary.Stats.TotalActions)
	}
	return nil
}

// buildRunInput reads the optional input file and applies flag overrides.
func buildRunInput(cmd *cobra.Command, f *runFlags, args []string) (models.RunInput, error) {
	var in models.RunInput
	if len(args) == 1 {
		loaded, err := loadRunInput(args[0])
		if err != nil {
			return in, err
		}
		in = loaded
	}

	if f.template != "" {
		in.Template = f.template
	}
	if len(f.params) > 0 {
		params, err := parseParams(f.params)
		if err != nil {
			return in, err
		}
		if in.TemplateParams == nil {
			in.TemplateParams = map[string]any{}
		}
		for k, v := range params {
			in.TemplateParams[k] = v
		}
	}

	if f.engine != "" {
		in.Engine = models.Engine(strings.ToLower(f.engine))
	}
	if in.Engine != "" && !in.Engine.IsValid() {
		return in, fmt.Errorf("unknown engine: %s", in.Engine)
	}
	if cmd.Flags().Changed("headless") {
		headless := f.headless
		in.Headless = &headless
	}
	if f.stealth {
		in.Stealth = true
	}
	if f.proxy != "" {
		if in.Proxy == nil {
			in.Proxy = &models.ProxySettings{}
		}
		in.Proxy.URL = f.proxy
	}
	return in, nil
}

// loadRunInput decodes a run file, YAML for .yaml/.yml and JSON otherwise.
func loadRunInput(path string) (models.RunInput, error) {
	var in models.RunInput
	data, err := os.ReadFile(path)
	if err != nil {
		return in, errors.Wrapf(err, "read run file %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &in)
	default:
		err = json.Unmarshal(data, &in)
	}
	if err != nil {
		return in, models.WrapError(models.KindInvalidInput, err, "decode run file %s", path)
	}
	return in, nil
}

func parseParams(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

func writeExport(stdout io.Writer, output string, format export.Format, summary *models.RunSummary, maxOutput int) error {
	w := stdout
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return errors.Wrapf(err, "create export file %s", output)
		}
		defer file.Close()
		w = file
	}
	return export.Write(w, format, export.Rows(summary, maxOutput))
}
