package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/scope-dorker/config"
	"github.com/aluiziolira/scope-dorker/fetch"
	"github.com/aluiziolira/scope-dorker/metrics"
	"github.com/aluiziolira/scope-dorker/models"
	"github.com/aluiziolira/scope-dorker/output"
	"github.com/aluiziolira/scope-dorker/quota"
	"github.com/aluiziolira/scope-dorker/scope"
	"github.com/aluiziolira/scope-dorker/search"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		var fatal *models.FatalError
		switch {
		case errors.Is(err, config.ErrCreated):
			fmt.Fprintln(os.Stderr, err)
		case errors.As(err, &fatal):
			slog.Error("run aborted", slog.Any("error", err))
		default:
			slog.Error("scope-dorker failed", slog.Any("error", err))
		}
		os.Exit(1)
	}
}

func newApp() *cli.App {
	programsFlag := &cli.StringSliceFlag{
		Name:    "programs",
		Aliases: []string{"p"},
		Usage:   "HackerOne program handles; all open bounty programs when omitted",
	}
	oosFlag := &cli.BoolFlag{
		Name:    "include-oos",
		Aliases: []string{"oos"},
		Usage:   "include assets that are not eligible for bounty",
	}
	outputFlag := &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output file, stdout when omitted",
	}

	return &cli.App{
		Name:  "scope-dorker",
		Usage: "Generate search dorks from bug-bounty program scopes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path (default ~/.config/scope-dorker/config.yaml)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Prometheus metrics listen address (e.g. :9090)",
			},
		},
		Before: func(c *cli.Context) error {
			logger, level := newLogger(c.Bool("verbose"))
			slog.SetDefault(logger)
			slog.SetLogLoggerLevel(level.Level())
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "dork",
				Usage: "search program scopes with a query",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "query ANDed with the scope's site: clauses",
						Required: true,
					},
					programsFlag,
					oosFlag,
					outputFlag,
					&cli.StringFlag{
						Name:  "scopes-file",
						Usage: "read scopes from a dump instead of the HackerOne API",
					},
					&cli.StringFlag{
						Name:  "format",
						Value: "text",
						Usage: "output format: text, json, csv or xlsx",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "do not echo results to stdout when writing to a file",
					},
				},
				Action: runDork,
			},
			{
				Name:   "scopes",
				Usage:  "fetch program scopes and dump them as JSON",
				Flags:  []cli.Flag{programsFlag, oosFlag, outputFlag},
				Action: runScopes,
			},
		},
	}
}

func runDork(c *cli.Context) error {
	ctx := c.Context
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.ValidateGoogle(); err != nil {
		return err
	}

	m := metrics.New()
	shutdown := serveMetrics(c.String("metrics-addr"), m)
	defer shutdown()

	store, err := quota.Open(cfg.Quota.Backend, cfg.Quota.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	counter, err := quota.NewCounter(ctx, store, cfg.Google.SearchLimit, time.Now())
	if err != nil {
		return err
	}
	m.SetDailyCount(counter.Count())
	defer func() {
		// The count is written back even when the run aborts.
		if err := counter.Flush(context.Background()); err != nil {
			slog.Error("persist search count", slog.Any("error", err))
		}
	}()

	scopes, err := resolveScopes(c, cfg, m)
	if err != nil {
		return err
	}

	writer, err := newResultWriter(strings.ToLower(c.String("format")), c.String("output"), c.Bool("quiet"))
	if err != nil {
		return err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	// The search client must not retry 429s itself; per-minute quota
	// errors are retried by search.Client and anything else is fatal.
	searchHTTP := fetch.New(fetch.Options{
		API:       "search",
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	}, m)
	provider := search.NewGoogle(searchHTTP, search.GoogleOptions{
		BaseURL: cfg.Google.BaseURL,
		APIKey:  cfg.Google.APIKey,
		CSEID:   cfg.Google.CSEID,
	})
	client := search.NewClient(provider, counter, search.Options{
		ResultLimit: cfg.Google.ProgramResultLimit,
		BackoffBase: cfg.Google.BackoffBase,
		MaxAttempts: cfg.Google.MaxAttempts,
		Window:      search.NewWindow(cfg.Google.RequestsPerMinute, search.WindowSpan, search.SystemClock{}, m),
	}, m)

	query := c.String("query")
	start := time.Now()
	found := 0
	for _, s := range scopes {
		result, err := client.Dork(ctx, query, s)
		if err != nil {
			return err
		}
		if result == nil {
			continue
		}
		found++
		if err := writer.Write(result); err != nil {
			return fmt.Errorf("write result for %s: %w", s.Name, err)
		}
	}

	slog.Info("dorking complete",
		slog.Int("programs", len(scopes)),
		slog.Int("with_results", found),
		slog.Int("daily_searches", counter.Count()),
		slog.Int("daily_limit", counter.Limit()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func runScopes(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	m := metrics.New()
	shutdown := serveMetrics(c.String("metrics-addr"), m)
	defer shutdown()

	scopes, err := resolveScopes(c, cfg, m)
	if err != nil {
		return err
	}
	return output.SaveScopes(c.String("output"), scopes)
}

// newResultWriter echoes results to stdout as text unless they already go
// there or quiet is set.
func newResultWriter(format, filename string, quiet bool) (output.ResultWriter, error) {
	primary, err := output.NewWriter(format, filename)
	if err != nil {
		return nil, err
	}
	if quiet || filename == "" || filename == "-" {
		return primary, nil
	}

	echo, err := output.NewTextWriter("")
	if err != nil {
		_ = primary.Close()
		return nil, err
	}
	return output.NewMultiWriter(echo, primary), nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolveScopes(c *cli.Context, cfg *config.Config, m *metrics.Metrics) ([]*models.Scope, error) {
	if path := c.String("scopes-file"); path != "" {
		scopes, err := output.LoadScopes(path)
		if err != nil {
			return nil, err
		}
		slog.Info("loaded scopes from dump", slog.String("path", path), slog.Int("programs", len(scopes)))
		return scopes, nil
	}

	if err := cfg.ValidateHackerOne(); err != nil {
		return nil, err
	}

	h1HTTP := fetch.New(fetch.Options{
		API:             "hackerone",
		Timeout:         cfg.HTTP.Timeout,
		UserAgent:       cfg.HTTP.UserAgent,
		MaxRetries:      cfg.HTTP.MaxRetries,
		RetryBackoff:    cfg.HTTP.RetryBackoff,
		RetryBackoffMax: cfg.HTTP.RetryBackoffMax,
	}, m)
	src, err := scope.NewHackerOne(h1HTTP, scope.HackerOneOptions{
		BaseURL:           cfg.HackerOne.BaseURL,
		PageSize:          cfg.HackerOne.PageSize,
		RequestsPerMinute: cfg.HackerOne.RequestsPerMinute,
		CacheSize:         cfg.HackerOne.CacheSize,
	})
	if err != nil {
		return nil, err
	}

	credential := scope.BasicCredential(cfg.HackerOne.Username, cfg.HackerOne.APIKey)
	includeOOS := c.Bool("include-oos")
	if handles := c.StringSlice("programs"); len(handles) > 0 {
		return scope.FetchHandles(c.Context, src, credential, handles, includeOOS)
	}
	return scope.FetchAll(c.Context, src, credential, includeOOS)
}

func serveMetrics(addr string, m *metrics.Metrics) func() {
	if addr == "" {
		return func() {}
	}

	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
