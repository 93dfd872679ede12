// Command exchange is the CLI front door onto pipeline.Core: start the
// engine, optionally drive it from a replayed journal, and run the
// synthetic order workload the teacher's cmd/benchmark tool used to run
// directly against a single MatchingEngine.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"clob-engine/config"
	"clob-engine/domain"
	"clob-engine/journal"
	"clob-engine/logging"
	"clob-engine/pipeline"
	"clob-engine/workload"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "exchange",
		Short: "Run and exercise the matching engine core",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newBenchCmd(&configPath))
	return root
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRunCmd(configPath *string) *cobra.Command {
	var replayDir string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the pipeline, optionally replaying a journal directory first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Config{Development: true})
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer logger.Sync()

			core, err := pipeline.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("start core: %w", err)
			}
			core.AddSymbol(&domain.CoreSymbolSpecification{
				SymbolID: 1, Type: domain.CurrencyExchangePair,
				BaseCurrency: 1, QuoteCurrency: 2, BaseScaleK: 1, QuoteScaleK: 1,
			})

			if replayDir != "" {
				files, err := journalFilesIn(replayDir)
				if err != nil {
					return fmt.Errorf("list journal files: %w", err)
				}
				logger.Sugar().Infof("replaying %d journal file(s) from %s", len(files), replayDir)
				if err := journal.Replay(files, func(c *domain.OrderCommand) error {
					<-core.Submit(c)
					return nil
				}, func(msg string) { logger.Sugar().Warn(msg) }); err != nil {
					return fmt.Errorf("replay: %w", err)
				}
			}

			core.Start()
			defer core.Stop()

			if duration <= 0 {
				logger.Info("engine running, press ctrl-c to stop")
				select {}
			}
			time.Sleep(duration)
			return nil
		},
	}
	cmd.Flags().StringVar(&replayDir, "replay", "", "journal directory to replay before accepting new commands")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long instead of running forever (0 = forever)")
	return cmd
}

func journalFilesIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// newBenchCmd drives the shared workload.Run generator against a freshly
// started pipeline.Core, the same generator cmd/benchmark and cmd/profile
// run standalone.
func newBenchCmd(configPath *string) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the synthetic overlapping buy/sell workload and report throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			core, err := pipeline.New(cfg, nil)
			if err != nil {
				return fmt.Errorf("start core: %w", err)
			}
			core.AddSymbol(&domain.CoreSymbolSpecification{
				SymbolID: 1, Type: domain.CurrencyExchangePair,
				BaseCurrency: 1, QuoteCurrency: 2, BaseScaleK: 1, QuoteScaleK: 1,
			})
			core.Start()
			defer core.Stop()

			stats := workload.Run(core, 1, duration)
			fmt.Println("\n=== workload summary ===")
			fmt.Printf("duration:      %v\n", stats.Duration)
			fmt.Printf("orders:        %d\n", stats.Orders)
			fmt.Printf("trades:        %d\n", stats.Trades)
			fmt.Printf("order rate:    %.0f/s\n", stats.OrdersPerS)
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to drive the synthetic workload")
	return cmd
}
