package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
	optional "github.com/moznion/go-optional"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"stockdash/config"
	"stockdash/internal/dashboard"
	"stockdash/internal/logger"
	"stockdash/internal/model"
)

func newComputeCmd(configPath *string) *cobra.Command {
	var (
		symbol string
		format string
	)
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Fetch one symbol and print its Bollinger Bands and RSI",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "table" {
				return errors.Errorf("unknown format %q (want json or table)", format)
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.Init("dashboard-compute", cfg.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync()

			src, err := openSource(cfg, log, nil, nil)
			if err != nil {
				return err
			}
			defer src.close()

			svc, err := dashboard.NewService(src, dashboard.Config{
				Symbols:      cfg.Symbols,
				LookbackDays: cfg.LookbackDays,
				Settings:     dashboard.Settings{DefaultSymbol: cfg.DefaultSymbol, Params: cfg.Indicators},
			}, dashboard.WithLogger(log))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Source.Timeout+5*time.Second)
			defer cancel()
			ctx = logger.WithTraceID(ctx, logger.GenerateTraceID("cli-"+symbol, time.Now()))

			resp, err := svc.Indicators(ctx, symbol)
			if err != nil {
				return err
			}
			if format == "json" {
				return writeIndicatorsJSON(cmd.OutOrStdout(), resp)
			}
			return writeIndicatorsTable(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol to compute (default: configured default symbol)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: json or table")
	return cmd
}

func writeIndicatorsJSON(w io.Writer, resp *dashboard.IndicatorsResponse) error {
	data, err := sonic.ConfigStd.MarshalIndent(resp, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode indicators")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeIndicatorsTable(w io.Writer, resp *dashboard.IndicatorsResponse) error {
	if len(resp.Bars) == 0 {
		_, err := fmt.Fprintf(w, "no data for %s\n", resp.Symbol)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "DATE\tCLOSE\tSMA%d\tUPPER\tLOWER\tRSI%d\t\n",
		resp.Params.BollingerWindow, resp.Params.RSIWindow)
	for i, bar := range resp.Bars {
		p := resp.Indicators[i]
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\t%s\t\n",
			model.DateKey(bar.Date), bar.Close,
			cell(p.SMA), cell(p.UpperBand), cell(p.LowerBand), cell(p.RSI))
	}
	return tw.Flush()
}

func cell(v optional.Option[float64]) string {
	if v.IsNone() {
		return "-"
	}
	return fmt.Sprintf("%.2f", v.Unwrap())
}
