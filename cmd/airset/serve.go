package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/airset-dev/airset/internal/config"
	"github.com/airset-dev/airset/internal/document"
	airerrors "github.com/airset-dev/airset/internal/errors"
	"github.com/airset-dev/airset/pkg/middleware"
	"github.com/airset-dev/airset/pkg/server"
	"github.com/airset-dev/airset/pkg/store"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type serveOptions struct {
	configPath string
	addr       string
	debug      bool
	trace      bool
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve [FILE...]",
		Short: "Serve documents as stores through the inspector",
		Long: `Load each document into a store and serve the inspector API.

Documents come from the "documents" list of airset.json and from the
command line. A store is named after its file without the extension.

Routes:
  GET  /stores               list stores
  GET  /stores/{name}        read a store
  PUT  /stores/{name}        merge a JSON document into a store
  GET  /stores/{name}/diff   paths changed by the last commit
  GET  /stores/{name}/watch  WebSocket stream of commits
  GET  /metrics              Prometheus metrics

Examples:
  airset serve state.json
  airset serve --addr=:8080 session.yaml cart.json
  airset serve --config=deploy/airset.json --trace`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to airset.json (default: ./airset.json if present)")
	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "Address to listen on (default from airset.json)")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "Log every store event")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Print run spans to stderr")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions, files []string) error {
	cfg, err := loadServeConfig(opts)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Store.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	var tp trace.TracerProvider
	if cfg.Telemetry.Tracing {
		sdk, err := newTracerProvider(cmd.ErrOrStderr(), cfg.Name)
		if err != nil {
			return err
		}
		defer sdk.Shutdown(context.Background())
		tp = sdk
	}

	insp, stores, err := buildInspector(cfg, files, tp)
	if err != nil {
		return err
	}
	defer func() {
		for _, st := range stores {
			st.Destroy()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := cmd.OutOrStdout()
	success(w, "serving %d stores on http://%s", len(stores), cfg.Inspector.Address)
	for _, name := range insp.Names() {
		info(w, "/stores/%s", name)
	}
	if cfg.MetricsEnabled() {
		info(w, "metrics at %s", cfg.Inspector.MetricsPath)
	}
	if tp != nil {
		warn(w, "tracing is on: run spans are written to stderr")
	}

	return insp.ListenAndServe(ctx)
}

// loadServeConfig reads the config file, falling back to defaults when no
// --config is given and ./airset.json does not exist, then applies flags.
func loadServeConfig(opts serveOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(".")
		if airerrors.Code(err) == "E140" {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if opts.addr != "" {
		cfg.Inspector.Address = opts.addr
	}
	if opts.debug {
		cfg.Store.Debug = true
	}
	if opts.trace {
		cfg.Telemetry.Tracing = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildInspector loads every document into a mounted store and registers
// it. tp may be nil to leave runs untraced.
func buildInspector(cfg *config.Config, files []string, tp trace.TracerProvider) (*server.Server, []*store.Store, error) {
	docs := make([]config.DocumentConfig, 0, len(cfg.Documents)+len(files))
	for _, d := range cfg.Documents {
		docs = append(docs, config.DocumentConfig{Name: d.Name, File: cfg.DocumentPath(d)})
	}
	for _, f := range files {
		docs = append(docs, config.DocumentConfig{Name: config.DocumentName(f), File: f})
	}
	if len(docs) == 0 {
		return nil, nil, airerrors.New("E142").
			WithSuggestion("Pass files on the command line or list them under \"documents\" in airset.json")
	}

	insp := server.New(&server.Config{
		Address:        cfg.Inspector.Address,
		MetricsPath:    cfg.Inspector.MetricsPath,
		DisableMetrics: !cfg.MetricsEnabled(),
		AllowedOrigins: cfg.Inspector.AllowedOrigins,
	})

	mw := runMiddleware(cfg, tp)
	stores := make([]*store.Store, 0, len(docs))
	cleanup := func() {
		for _, st := range stores {
			st.Destroy()
		}
	}

	for _, d := range docs {
		data, err := document.Load(d.File)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		st := store.New(data,
			store.WithName(d.Name),
			store.WithDebug(cfg.Store.Debug),
			store.WithCompareMode(cfg.CompareMode()),
			store.WithMiddleware(mw...),
		)
		stores = append(stores, st)
		if err := st.Mount(); err != nil {
			cleanup()
			return nil, nil, err
		}
		if err := insp.Register(d.Name, st); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return insp, stores, nil
}

func runMiddleware(cfg *config.Config, tp trace.TracerProvider) []store.Middleware {
	var mw []store.Middleware
	if cfg.MetricsEnabled() {
		mw = append(mw, middleware.Prometheus(
			middleware.WithNamespace(cfg.Telemetry.Namespace),
			middleware.WithSubsystem(cfg.Telemetry.Subsystem),
		))
	}
	if tp != nil {
		mw = append(mw, middleware.OpenTelemetry(
			middleware.WithTracerName(cfg.Telemetry.TracerName),
			middleware.WithTracerProvider(tp),
		))
	}
	return mw
}

// newTracerProvider exports spans as pretty JSON to w.
func newTracerProvider(w io.Writer, service string) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, airerrors.Newf(airerrors.CategoryCLI, "cannot create trace exporter").Wrap(err)
	}
	if service == "" {
		service = "airset"
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", service))),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}
