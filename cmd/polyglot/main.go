package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"polyglot/internal/config"
	"polyglot/internal/logging"
)

var (
	// Global flags
	verbose bool
	homeDir string
	offline bool
	noAudio bool

	// Per-run overrides of the learner settings
	flagLanguage string
	flagLevel    string
	flagTopic    string

	// Logger
	logger *zap.Logger

	// Loaded by PersistentPreRunE
	env *environment
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:     "polyglot",
	Short:   "Polyglot AI Storyteller - Cloud-Powered Language Learning",
	Version: config.Version,
	Long: `Polyglot AI Storyteller writes a short story in the language you are
learning, explains its vocabulary and quizzes you on it.

Run without arguments to open the interactive menu. With --topic a single
lesson is generated for the current language and level.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cmd.Annotations["bootstrap"] == "skip" {
			return nil
		}
		env, err = bootstrap(homeDir)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagTopic != "" {
			return runSingleLesson(cmd.Context(), flagTopic)
		}
		return runInteractive(cmd.Context())
	},
}

func init() {
	rootCmd.SetVersionTemplate(config.AppName + " {{.Version}}\n")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Application home (default $POLYGLOT_HOME or ~/.local/share/polyglot-stories)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Do not contact the story service; use practice stories")
	rootCmd.PersistentFlags().BoolVar(&noAudio, "no-audio", false, "Do not narrate lessons")
	rootCmd.PersistentFlags().StringVarP(&flagLanguage, "language", "l", "", "Language for this run (russian, urdu, english)")
	rootCmd.PersistentFlags().StringVar(&flagLevel, "level", "", "Level for this run (beginner, intermediate, advanced)")
	rootCmd.PersistentFlags().StringVarP(&flagTopic, "topic", "t", "", "Story topic; runs one lesson without the menu")

	rootCmd.AddCommand(
		startCmd,
		lessonCmd,
		historyCmd,
		configCmd,
		versionCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
