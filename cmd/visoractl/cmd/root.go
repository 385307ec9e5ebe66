package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/your-org/visora/internal/app"
	"github.com/your-org/visora/internal/assistant"
	"github.com/your-org/visora/internal/config"
	"github.com/your-org/visora/internal/observability"
)

var (
	configPath string
	roomName   string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "visoractl",
	Short: "Run Visora assistant tools from the command line",
	Long: `visoractl runs the same tools the voice agent calls, against the
backends named in the config file. Every command prints the text the
assistant would speak.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to config file (empty to use defaults and environment)")
	rootCmd.PersistentFlags().StringVar(&roomName, "room", "", "Room name the session is derived from")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// runTool builds the toolkit from config, runs fn and prints its reply.
// Camera events are only logged since no front end is attached.
func runTool(cmd *cobra.Command, fn func(ctx context.Context, tk *assistant.Toolkit) string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.SetupLogger(logLevel, "text")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.LogPublisher)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	fmt.Fprintln(cmd.OutOrStdout(), fn(ctx, a.Tools))
	return nil
}
