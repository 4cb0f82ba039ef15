// Command joy boots the kernel core on a simulated board, with its serial
// console on this terminal or on a real serial device.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hallway/src/anticipation"
	"hallway/src/config"
	"hallway/src/debug/hallway"
	"hallway/src/hardware/sim"
	"hallway/src/joy/fatal"
	"hallway/src/lib/trust"
)

var (
	verbose    bool
	configPath string
	logFile    string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "joy",
	Short: "joy - a heap-less kernel core with the Hallway Monitor",
	Long: `joy runs the kernel core on a simulated board. The board's serial
console is this terminal unless a device is configured, and the Hallway
Monitor can be used on it to look around memory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		zc := zap.NewProductionConfig()
		if err := zc.Level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
			return fmt.Errorf("bad log level %q: %w", cfg.Logging.Level, err)
		}
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		if logFile != "" {
			zc.OutputPaths = []string{logFile}
			zc.ErrorOutputPaths = []string{logFile}
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		setLoggers(logger)

		level, _ := cfg.KernelLevel()
		trust.SetLevel(level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func setLoggers(l *zap.Logger) {
	hallway.SetLogger(l.Named("hallway"))
	fatal.SetLogger(l.Named("fatal"))
	sim.SetLogger(l.Named("sim"))
	anticipation.SetLogger(l.Named("anticipation"))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "hallway.yaml", "Config file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write the host log here instead of stderr")

	loadCmd.Flags().Uint32Var(&dumpFrom, "dump-from", 0, "Dump memory starting here after loading")
	loadCmd.Flags().Uint32Var(&dumpLen, "dump-len", 0, "Number of bytes to dump (0 for none)")

	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(panicCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		// a second ^C kills the process, panicked kernels never return
		<-ctx.Done()
		stop()
	}()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
