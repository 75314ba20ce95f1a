package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/poiesic/clausematch"
	"github.com/poiesic/clausematch/config"
	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/metrics"
	"github.com/poiesic/clausematch/search"
	"github.com/poiesic/clausematch/verify"
	"github.com/urfave/cli/v2"
)

func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory (overrides storage.path)",
		},
		&cli.BoolFlag{
			Name:  "in-memory",
			Usage: "Keep results in memory only",
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Verify a user contract against a standard contract",
		Action:    verifyAction,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "standard",
				Aliases:  []string{"s"},
				Usage:    "JSON file with the standard contract clauses",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "JSON file with the user contract clauses",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the result JSON here instead of stdout",
			},
			&cli.StringFlag{
				Name:  "granularity",
				Usage: "Matching unit: article or clause (overrides verify.granularity)",
			},
			&cli.Float64Flag{
				Name:  "min-confidence",
				Usage: "Minimum judge confidence for a match (overrides verify.min_confidence)",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address while running",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Report embedding progress on stderr",
			},
		}, storageFlags()...),
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Run one hybrid query against a clause file",
		ArgsUsage: "<query text>",
		Action:    searchAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "clauses",
				Usage:    "JSON file with the clauses to search",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Optional title matched against clause titles",
			},
			&cli.IntFlag{
				Name:    "top-k",
				Aliases: []string{"k"},
				Usage:   "Number of results",
				Value:   5,
			},
		},
	}
}

func resultsCommand() *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "Inspect stored verification results",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List stored results, most recent first",
				Action: resultsListAction,
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results (0 for all)",
						Value: 20,
					},
				}, storageFlags()...),
			},
			{
				Name:      "show",
				Usage:     "Print one stored result as JSON",
				ArgsUsage: "<run-id>",
				Action:    resultsShowAction,
				Flags:     storageFlags(),
			},
		},
	}
}

// loadConfig reads the configuration file and applies command flags on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}
	if c.IsSet("in-memory") {
		cfg.Storage.InMemory = c.Bool("in-memory")
	}
	if c.IsSet("granularity") {
		g, err := verify.ParseGranularity(c.String("granularity"))
		if err != nil {
			return nil, err
		}
		cfg.Verify.Granularity = g
	}
	if c.IsSet("min-confidence") {
		cfg.Verify.MinConfidence = c.Float64("min-confidence")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openEngine(cfg *config.Config, opts ...clausematch.EngineOption) (*clausematch.Engine, error) {
	provider, err := newProvider(&cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI provider: %w", err)
	}
	engine, err := clausematch.NewEngine(cfg, append(opts, clausematch.WithProvider(provider))...)
	if err != nil {
		provider.Close()
		return nil, err
	}
	return engine, nil
}

func verifyAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	standard, err := readClauses(c.String("standard"))
	if err != nil {
		return err
	}
	user, err := readClauses(c.String("user"))
	if err != nil {
		return err
	}

	var opts []clausematch.EngineOption
	if c.Bool("progress") {
		opts = append(opts, clausematch.WithProgress(c.App.ErrWriter))
	}
	if cfg.MetricsAddr != "" {
		collector := metrics.NewCollector(true)
		opts = append(opts, clausematch.WithMetrics(collector))
		_, shutdown, err := serveMetrics(cfg.MetricsAddr, collector)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	engine, err := openEngine(cfg, opts...)
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.Verify(ctx, standard, user)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	out := c.App.Writer
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}
	if err := writeJSON(out, result); err != nil {
		return err
	}

	s := result.Summary()
	fmt.Fprintf(c.App.ErrWriter, "Run: %s\n", result.RunID)
	fmt.Fprintf(c.App.ErrWriter, "Matched: %d/%d standard units\n", s.MatchedUnits, s.TotalStandardUnits)
	fmt.Fprintf(c.App.ErrWriter, "Missing: %d (%d truly missing)\n", s.MissingCount, s.TrulyMissingCount)
	fmt.Fprintf(c.App.ErrWriter, "Duplicates: %d\n", s.DuplicateCount)
	fmt.Fprintf(c.App.ErrWriter, "Completion: %.2f%%\n", s.CompletionRate)
	return nil
}

// serveMetrics starts an HTTP server for collector and returns the address it
// listens on together with its shutdown function.
func serveMetrics(addr string, collector *metrics.Collector) (net.Addr, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "err", err)
		}
	}()
	slog.Info("serving metrics", "addr", listener.Addr().String())

	return listener.Addr(), func() { stopServer(server, 5*time.Second) }, nil
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// stopServer shuts server down within timeout. A failed shutdown is logged.
func stopServer(server shutdowner, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down metrics server", "err", err)
	}
}

func searchAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("query text is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	// Searching never stores anything.
	cfg.Storage = config.StorageConfig{}

	records, err := readClauses(c.String("clauses"))
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	q := search.Query{Text: c.Args().First(), Title: c.String("title")}
	results, err := engine.Search(c.Context, records, q, c.Int("top-k"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tCLAUSE\tPARENT\tFUSED\tDENSE\tSPARSE")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%.4f\t%.4f\n", i+1, r.ClauseID, r.ParentID, r.FusedScore, r.DenseScore, r.SparseScore)
	}
	return w.Flush()
}

func openResults(c *cli.Context) (*clausematch.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if !cfg.Storage.Persistent() {
		return nil, errors.New("no result database: set --db or storage.path")
	}
	return openEngine(cfg)
}

func resultsListAction(c *cli.Context) error {
	engine, err := openResults(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	results, err := engine.ListResults(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	return printResults(c.App.Writer, results)
}

func resultsShowAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one run id is required")
	}
	engine, err := openResults(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.GetResult(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, result)
}

func printResults(out io.Writer, results []*core.VerificationResult) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tCREATED\tMATCHED\tMISSING\tDUPLICATES\tCOMPLETION")
	for _, r := range results {
		s := r.Summary()
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%d\t%.2f%%\n",
			r.RunID, r.CreatedAt.Format(time.RFC3339), s.MatchedUnits, s.TotalStandardUnits,
			s.MissingCount, s.DuplicateCount, s.CompletionRate)
	}
	return w.Flush()
}
