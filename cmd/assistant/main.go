package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pi-assistant/internal/config"
	"pi-assistant/internal/logging"
)

var (
	// Global flags
	verbose    bool
	noTerminal bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Pi desk assistant: web chat, terminal chat and OLED face",
	Long: `Runs the assistant's web server and terminal chat side by side.

Both front-ends share one response pipeline: typo correction, a knowledge-base
lookup, then the language model. An optional SSD1306 display shows the
assistant's face as it listens, thinks and speaks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = logging.New(level, cfg.IsDevelopment())
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal without starting the web server",
	RunE:  runChat,
}

var faceCmd = &cobra.Command{
	Use:   "face",
	Short: "Cycle through every expression on the display",
	RunE:  runFace,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&noTerminal, "no-terminal", false, "serve HTTP only, without the terminal chat")
	faceCmd.Flags().Duration("hold", 2*time.Second, "how long to hold each expression")

	rootCmd.AddCommand(chatCmd, faceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
