package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	postmuse "github.com/thinkscotty/postmuse"
	"github.com/thinkscotty/postmuse/internal/ai"
	"github.com/thinkscotty/postmuse/internal/config"
	"github.com/thinkscotty/postmuse/internal/database"
	"github.com/thinkscotty/postmuse/internal/history"
	"github.com/thinkscotty/postmuse/internal/keystore"
	"github.com/thinkscotty/postmuse/internal/knowledge"
	"github.com/thinkscotty/postmuse/internal/mode"
	"github.com/thinkscotty/postmuse/internal/pipeline"
	"github.com/thinkscotty/postmuse/internal/prefs"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

type (
	appFunc   func(cmd *cobra.Command, a *app, args []string) error
	cobraFunc func(cmd *cobra.Command, args []string) error
	withAppFn func(run appFunc) cobraFunc
)

// app holds every service a command may need.
type app struct {
	cfg      config.Config
	db       *database.DB
	prefs    *prefs.Prefs
	keys     *keystore.Store
	topics   *knowledge.Store
	history  *history.History
	mode     *mode.Resolver
	llm      *ai.Client
	pipeline *pipeline.Pipeline
}

func openApp(cfg config.Config) (*app, error) {
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	slog.Debug("Database initialized", "path", cfg.Database.Path)

	masterKey, err := keystore.MasterKey(cfg.Keystore, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load master key: %w", err)
	}
	keys, err := keystore.New(db, masterKey)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := keys.MigrateLegacy(db); err != nil {
		slog.Warn("Failed to migrate legacy API key", "error", err)
	}

	topics := knowledge.NewStore(cfg.Storage.TopicsDir())
	p := prefs.New(db, cfg.LLM)
	hist := history.New(db)
	llm := ai.NewClient(p, keys, cfg.LLM)

	return &app{
		cfg:      cfg,
		db:       db,
		prefs:    p,
		keys:     keys,
		topics:   topics,
		history:  hist,
		mode:     mode.NewResolver(p),
		llm:      llm,
		pipeline: pipeline.New(llm, topics, hist),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// seedSamples fills an empty knowledge base with the starter topics. It runs
// where the knowledge base is browsed, not before a scan.
func (a *app) seedSamples() {
	n, err := a.topics.SeedSamples(postmuse.SamplesFS, knowledge.DefaultSamples)
	if err != nil {
		slog.Warn("Failed to seed sample topics", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Seeded sample topics", "count", n, "dir", a.topics.Dir())
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "postmuse",
		Short:         "Find reply opportunities in social posts and draft promotional content",
		Version:       fmt.Sprintf("%s (built %s)", version, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to configuration file")

	// withApp loads config, configures logging and opens the services for one command.
	withApp := func(run appFunc) cobraFunc {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Logging.SlogLevel()})))

			a, err := openApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd, a, args)
		}
	}

	root.AddCommand(
		serveCmd(withApp),
		analyzeCmd(withApp),
		createPostCmd(withApp),
		topicsCmd(withApp),
		historyCmd(withApp),
		settingsCmd(withApp),
		keysCmd(withApp),
		modeCmd(withApp),
	)

	return root
}
