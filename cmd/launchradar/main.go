package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/launchradar/internal/config"
)

const (
	appName = "launchradar"
	version = "v1.2.0"
)

var (
	flagConfig string
	flagJSON   bool
	flagDebug  bool
)

func main() {
	// Secrets (API keys, DSNs, bot tokens) come from the environment; a
	// local .env is a development convenience.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Solana token launch scanner",
		Version: version,
		Long: `LaunchRadar watches pump.fun, Raydium, DexScreener and Birdeye for
new token launches, correlates sightings across sources, scores momentum
and safety, and alerts on high-conviction candidates.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file path (defaults apply when omitted)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Structured JSON logs instead of console output")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan cycle and print the summary",
		RunE:  runScan,
	}

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run continuous scan cycles until interrupted",
		RunE:  runMonitor,
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Query a running instance's health endpoint",
		RunE:  runHealth,
	}
	healthCmd.Flags().String("addr", "127.0.0.1:8087", "Address of the running instance")

	rootCmd.AddCommand(scanCmd, monitorCmd, healthCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	if !flagJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if flagDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func loadConfig() (*config.Config, error) {
	if flagConfig == "" {
		return config.Default(), nil
	}
	return config.Load(flagConfig)
}

// runScan executes one cycle and prints its summary as JSON.
func runScan(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := a.pipeline.RunCycle(ctx)
	if err != nil {
		return err
	}
	a.snapshot(context.Background())

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	return nil
}

// runMonitor runs cycles on the configured interval with the stream and
// HTTP interface attached, until SIGINT/SIGTERM.
func runMonitor(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.firehose != nil {
		go func() {
			if err := a.firehose.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Launch event stream stopped")
			}
		}()
	}
	if a.server != nil {
		go func() {
			if err := a.server.Start(); err != nil {
				log.Error().Err(err).Msg("HTTP interface stopped")
			}
		}()
	}

	log.Info().
		Str("version", version).
		Int("interval_secs", cfg.Scanner.CycleIntervalSecs).
		Msg("Monitor started")
	err = a.pipeline.Run(ctx)

	// Graceful teardown: snapshot the registry, drain the server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.snapshot(shutdownCtx)
	if a.server != nil {
		if serr := a.server.Shutdown(shutdownCtx); serr != nil {
			log.Warn().Err(serr).Msg("HTTP shutdown incomplete")
		}
	}
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("Monitor stopped")
		return nil
	}
	return err
}

// runHealth hits a running instance and relays its health JSON.
func runHealth(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/health")
	if err != nil {
		return fmt.Errorf("instance unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, body)
	}
	fmt.Println(string(body))
	return nil
}
