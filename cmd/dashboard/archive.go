package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stockdash/config"
	"stockdash/internal/dashboard"
	"stockdash/internal/logger"
	"stockdash/internal/model"
	"stockdash/internal/source"
	"stockdash/internal/store/sqlite"
)

func newArchiveCmd(configPath *string) *cobra.Command {
	var (
		symbols []string
		days    int
		dbPath  string
		full    bool
	)
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Copy daily bars from TCBS into the SQLite archive",
		Long: `Fetch daily bars from TCBS and upsert them into the SQLite archive, which
"serve" can then read with source.kind=sqlite. Each symbol resumes the day
after its last archived bar unless --full is given.
Example: dashboard archive --symbols VNM,FPT --days 730`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.Init("dashboard-archive", cfg.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync()

			if len(symbols) == 0 {
				for _, s := range cfg.Symbols {
					symbols = append(symbols, s.Value)
				}
			}
			if days <= 0 {
				days = cfg.LookbackDays
			}
			if dbPath == "" {
				dbPath = cfg.SQLitePath
			}
			if cfg.Source.BaseURL == "" {
				return errors.New("archive needs source.base_url for TCBS")
			}

			w, err := sqlite.NewWriter(sqlite.WriterConfig{DBPath: dbPath}, log)
			if err != nil {
				return errors.Wrap(err, "open sqlite archive")
			}
			defer w.Close()

			src := source.NewTCBS(source.TCBSConfig{
				BaseURL: cfg.Source.BaseURL,
				Timeout: cfg.Source.Timeout,
				Proxy:   cfg.Source.Proxy,
			}, log)

			end := model.TradingDay(time.Now())
			start := end.AddDate(0, 0, -days)
			ctx := logger.WithTraceID(cmd.Context(), logger.GenerateTraceID("archive", time.Now()))
			log.Info("archiving",
				zap.Strings("symbols", symbols),
				zap.String("from", model.DateKey(start)),
				zap.String("to", model.DateKey(end)),
				zap.String("db", dbPath))

			results, err := dashboard.Archive(ctx, src, w, dashboard.ArchiveRequest{
				Symbols: symbols,
				Start:   start,
				End:     end,
				Full:    full,
			}, log)
			writeArchiveResults(cmd.OutOrStdout(), results)
			return err
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "comma-separated symbols (default: configured symbols)")
	cmd.Flags().IntVar(&days, "days", 0, "days of history to fetch (default: lookback_days)")
	cmd.Flags().StringVar(&dbPath, "db", "", "archive path (default: sqlite_path)")
	cmd.Flags().BoolVar(&full, "full", false, "re-fetch the whole window instead of resuming")
	return cmd
}

func writeArchiveResults(out io.Writer, results []dashboard.ArchiveResult) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tFROM\tROWS\tSTATUS")
	for _, r := range results {
		from, status := "-", "ok"
		switch {
		case r.Err != nil:
			status = r.Err.Error()
		case r.UpToDate():
			status = "up to date"
		}
		if !r.From.IsZero() {
			from = model.DateKey(r.From)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Symbol, from, r.Rows, status)
	}
	tw.Flush()
}
