package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"StockCharts/internal/di"
	"StockCharts/internal/usecase"
	"StockCharts/pkg/config"
	"StockCharts/pkg/metrics"
	xutil "StockCharts/pkg/util"
)

type rootOptions struct {
	configPath string
	envFiles   []string
	cfg        *config.Config
}

// NewRootCmd creates the stockcharts command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "stockcharts",
		Short: "Daily stock charts with technical indicators",
		Long: `stockcharts fetches daily price history, cuts it to a range and overlays
moving averages, Bollinger bands, RSI and MACD. Run "serve" for the HTTP API
or "chart" for a one-off summary in the terminal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(opts.envFiles...); err != nil {
				return err
			}
			cfg, err := config.LoadWithEnv(opts.configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "config/config.yaml", "configuration file path, empty for defaults")
	rootCmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, ".env files loaded before the config")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newChartCmd(opts))
	rootCmd.AddCommand(newRangesCmd(opts))
	rootCmd.AddCommand(newIndicatorsCmd(opts))

	return rootCmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chart API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := di.InitializeApp(opts.cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			return app.Run()
		},
	}
}

type chartFlags struct {
	rng        string
	indicators string
	scope      string
	today      string
	asJSON     bool
	timeout    time.Duration
}

func newChartCmd(opts *rootOptions) *cobra.Command {
	f := &chartFlags{}
	cmd := &cobra.Command{
		Use:   "chart [SYMBOL]",
		Short: "Build one chart and print a summary",
		Long: `Build the chart bundle for a symbol and print a summary, or the full
bundle with --json. Without a symbol the configured default is used.
Example: stockcharts chart AAPL --range "6 months" --indicators rsi,macd`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := opts.cfg.Pipeline.DefaultSymbol
			if len(args) == 1 {
				symbol = args[0]
			}
			return runChart(cmd.Context(), cmd.OutOrStdout(), opts.cfg, symbol, f)
		},
	}

	cmd.Flags().StringVarP(&f.rng, "range", "r", "", "range selector such as ytd, month or \"5 years\"")
	cmd.Flags().StringVarP(&f.indicators, "indicators", "i", "", "comma separated indicators, or none")
	cmd.Flags().StringVar(&f.scope, "scope", "", "compute scope: window or history")
	cmd.Flags().StringVar(&f.today, "today", "", "anchor date in YYYY-MM-DD format (today if not provided)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the full bundle as JSON")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "overall timeout")

	return cmd
}

func runChart(ctx context.Context, out io.Writer, cfg *config.Config, symbol string, f *chartFlags) error {
	var today time.Time
	if f.today != "" {
		t, err := time.Parse(xutil.DayLayout, f.today)
		if err != nil {
			return fmt.Errorf("--today: %w", err)
		}
		today = t
	}

	// keep stdout for the rendered chart
	if cfg.Log.Output == "stdout" {
		cfg.Log.Output = "stderr"
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer app.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	bundle, err := app.Charts().GetChart(ctx, usecase.ChartParams{
		Symbol:     symbol,
		Range:      f.rng,
		Indicators: f.indicators,
		Scope:      f.scope,
		Today:      today,
	})
	if err != nil {
		return err
	}

	if f.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	}
	_, err = fmt.Fprintln(out, RenderChart(bundle))
	return err
}

// catalog builds a use case that can only answer the static listings.
func catalog(cfg *config.Config) (*usecase.ChartsUseCase, error) {
	pipeline, err := di.ProvidePipeline(cfg)
	if err != nil {
		return nil, err
	}
	return usecase.NewChartsUseCase(nil, pipeline, nil, metrics.Nop{}, nil), nil
}

func newRangesCmd(opts *rootOptions) *cobra.Command {
	var today string
	cmd := &cobra.Command{
		Use:   "ranges",
		Short: "List range selectors and their lookbacks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := catalog(opts.cfg)
			if err != nil {
				return err
			}
			t, _ := xutil.ParseTime(today)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), RenderRanges(uc.Ranges(t)))
			return err
		},
	}
	cmd.Flags().StringVar(&today, "today", "", "anchor date in YYYY-MM-DD format")
	return cmd
}

func newIndicatorsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "indicators",
		Short: "List supported indicators with the configured parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := catalog(opts.cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), RenderIndicators(uc.Indicators()))
			return err
		},
	}
}
