package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"LevRecon/internal/domain/models"
	internalrepo "LevRecon/internal/repository"
	"LevRecon/internal/services/aggregate"
	"LevRecon/internal/services/classify"
	"LevRecon/internal/services/normalize"
	"LevRecon/internal/services/rows"
	"LevRecon/internal/services/suggest"
	"LevRecon/internal/usecase"
	"LevRecon/pkg/cache"
	"LevRecon/pkg/config"
	applogger "LevRecon/pkg/logger"
	"LevRecon/pkg/util"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a snapshot file once and print the reports",
	Long: `Reconcile loads a snapshot file holding the symbol universe and raw venue
tier envelopes, runs one reconciliation in memory and prints the result.

Example:
  levrecon reconcile --file snapshot.json --format table`,
	RunE: runReconcile,
}

var (
	rcFile   string
	rcFormat string
	rcOut    string
	rcSymbol string
)

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&rcFile, "file", "f", "", "snapshot JSON file (required)")
	reconcileCmd.Flags().StringVar(&rcFormat, "format", "json", "output format (json, table)")
	reconcileCmd.Flags().StringVarP(&rcOut, "out", "o", "", "write output to a file instead of stdout")
	reconcileCmd.Flags().StringVarP(&rcSymbol, "symbol", "s", "", "print only this symbol")

	_ = reconcileCmd.MarkFlagRequired("file")
}

// offline is the in-memory pipeline behind the reconcile command.
type offline struct {
	tiers      *usecase.TiersHandler
	universe   *usecase.UniverseHandler
	reconciler *usecase.Reconciler
	reports    *internalrepo.CacheReportStore
	cache      *cache.MemoryCache
}

func newOffline(cfg *config.Config, log *applogger.Logger) (*offline, error) {
	participants, err := cfg.ParticipantVenues()
	if err != nil {
		return nil, err
	}
	synth, err := suggest.New(cfg.Policy)
	if err != nil {
		return nil, err
	}
	ref, _ := cfg.ReferenceVenue()

	snapshots := internalrepo.NewMemorySnapshotStore()
	prices := internalrepo.NewMemoryPriceBook()
	mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(100000))
	reports := internalrepo.NewCacheReportStore(mc, 0)

	rec := usecase.NewReconciler(snapshots, reports, nil, mc,
		classify.New(cfg.Classify.Quote, cfg.Classify.Exclude, cfg.Classify.Groups),
		aggregate.New(participants, cfg.Policy.UnionPrecision),
		synth, nil, log,
		usecase.ReconcilerConfig{Workers: cfg.Reconcile.Workers, Reference: ref})

	return &offline{
		tiers:      usecase.NewTiersHandler("", normalize.NewRegistry(prices), snapshots, prices, nil, log),
		universe:   usecase.NewUniverseHandler("", snapshots, log),
		reconciler: rec,
		reports:    reports,
		cache:      mc,
	}, nil
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}

	off, err := newOffline(cfg, log)
	if err != nil {
		return err
	}
	defer off.cache.Close()

	f, err := os.Open(rcFile)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := usecase.LoadSnapshot(ctx, f, off.tiers, off.universe, log)
	if err != nil {
		return err
	}
	log.Info("snapshot loaded", applogger.Int("loaded", res.Loaded), applogger.Int("skipped", res.Skipped))

	sum, err := off.reconciler.Run(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if rcOut != "" {
		out, err := os.Create(rcOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer out.Close()
		w = out
	}

	reports, err := off.collect(ctx)
	if err != nil {
		return err
	}
	switch rcFormat {
	case "table":
		return writeTables(w, sum, reports)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Summary models.RunSummary     `json:"summary"`
			Reports []models.SymbolReport `json:"reports"`
		}{sum, reports})
	default:
		return fmt.Errorf("unknown format %q", rcFormat)
	}
}

func (o *offline) collect(ctx context.Context) ([]models.SymbolReport, error) {
	cl := o.reconciler.Classification(ctx)
	symbols := cl.Symbols()
	if rcSymbol != "" {
		symbols = []string{util.NormalizeSymbol(rcSymbol)}
	}
	out := make([]models.SymbolReport, 0, len(symbols))
	for _, s := range symbols {
		rep, err := o.reports.Report(ctx, s)
		if err != nil {
			// symbols without data were not reconciled
			continue
		}
		out = append(out, *rep)
	}
	return out, nil
}

func writeTables(w io.Writer, sum models.RunSummary, reports []models.SymbolReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s\tsymbols %d\tuncovered %d\tfallbacks %d\n\n", sum.RunID, sum.Symbols, sum.Uncovered, sum.Fallbacks)
	for i := range reports {
		rep := &reports[i]
		fmt.Fprintf(tw, "%s (%s)\n", rep.Symbol, rep.Group)
		for _, r := range rows.ForReport(rep) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Venue, r.Leverage, capCell(r.NotionalCap), r.MMR)
		}
		fmt.Fprintln(tw, "position\tleverage\tsource\tmmr\tsource\tim")
		for _, r := range rows.Suggested(rep.Suggested) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Position, r.Leverage, r.LeverageSource, r.MMR, r.MMRSource, r.IM)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func capCell(c *float64) string {
	if c == nil {
		return ""
	}
	return rows.Position(*c)
}
