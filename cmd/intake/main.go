package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"intake/internal/catalog"
	"intake/internal/config"
	"intake/internal/engine"
	"intake/internal/logging"
	"intake/internal/scorer"
	"intake/internal/store"
)

var (
	// Global flags
	verbose     bool
	workspace   string
	scorerURL   string
	scorerKey   string
	localScorer bool
	userID      string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "intake - conversational onboarding assistant",
	Long: `intake walks a founder through a staged onboarding conversation,
scores each answer for clarity and completeness, and hands the finished
brief to the downstream analysis workflow.

Run without arguments to start (or resume) an interactive session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("file logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

// statusCmd shows the progress of a stored session.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stage progress for a stored session",
	RunE:  runStatus,
}

// resumeCmd reopens the newest active session for a user.
var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the most recent active session",
	RunE:  runResume,
}

var statusSessionID string

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory holding .intake/")
	rootCmd.PersistentFlags().StringVar(&scorerURL, "scorer-url", "", "override the scoring service base URL")
	rootCmd.PersistentFlags().StringVar(&scorerKey, "scorer-key", "", "override the scoring service API key")
	rootCmd.PersistentFlags().BoolVar(&localScorer, "local", false, "use the in-process heuristic scorer (no network)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user identifier (defaults to $USER)")

	statusCmd.Flags().StringVar(&statusSessionID, "session", "", "session id (defaults to the newest active session)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resumeCmd)
}

// runtime is the wired-up dependency set shared by all commands.
type runtime struct {
	cfg    *config.Config
	cat    *catalog.Catalog
	store  *store.SessionStore
	client scorer.Client
}

func (r *runtime) close() {
	if r.store != nil {
		_ = r.store.Close()
	}
}

// buildRuntime loads config, opens the store, and picks the scorer client.
func buildRuntime() (*runtime, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if scorerURL != "" {
		cfg.Scorer.BaseURL = scorerURL
	}
	if scorerKey != "" {
		cfg.Scorer.APIKey = scorerKey
	}
	if localScorer {
		cfg.Scorer.Local = true
	}

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load stage catalog: %w", err)
		}
	}

	st, err := store.NewSessionStore(cfg.Store.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	var client scorer.Client
	if cfg.Scorer.Local || cfg.Scorer.BaseURL == "" {
		client = scorer.NewLocalScorer(cat, st)
	} else {
		client = scorer.NewHTTPClient(scorer.HTTPConfig{
			BaseURL: cfg.Scorer.BaseURL,
			APIKey:  cfg.Scorer.APIKey,
			Timeout: cfg.Scorer.TimeoutDuration(),
		})
	}

	return &runtime{cfg: cfg, cat: cat, store: st, client: client}, nil
}

func (r *runtime) newEngine() *engine.Engine {
	return engine.NewEngine(r.client, r.cat, r.store)
}

func resolveUserID() string {
	if userID != "" {
		return userID
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "anonymous"
}

// presentError translates collaborator error codes into plain language for
// the terminal; everything else is shown as-is.
func presentError(err error) string {
	return scorer.Describe(err)
}

func main() {
	start := time.Now()
	defer func() {
		logging.Boot("intake exited after %s", time.Since(start).Round(time.Millisecond))
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+presentError(err))
		os.Exit(1)
	}
}
