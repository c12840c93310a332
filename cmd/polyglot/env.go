package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"polyglot/internal/completion"
	"polyglot/internal/config"
	"polyglot/internal/logging"
	"polyglot/internal/narration"
	"polyglot/internal/session"
	"polyglot/internal/store"
)

const preflightTimeout = 5 * time.Second

// environment is everything a command needs after startup.
type environment struct {
	paths    config.Paths
	cfg      *config.Config
	settings *config.Settings
	manager  *config.SettingsManager
}

// bootstrap lays out the home directory and loads the app config and the
// learner settings. Per-run --language/--level overrides are applied to the
// loaded settings but never saved.
func bootstrap(override string) (*environment, error) {
	home, err := config.ResolveHome(override)
	if err != nil {
		return nil, err
	}
	paths := config.NewPaths(home)
	if err := paths.Ensure(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(paths.ConfigFile())
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(paths.ConfigFile()); os.IsNotExist(err) {
		if err := cfg.Save(paths.ConfigFile()); err != nil {
			logger.Warn("could not write default config", zap.Error(err))
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", paths.ConfigFile(), err)
	}

	if err := logging.Initialize(paths.LogsDir, cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logging.InitAudit(); err != nil {
		logger.Warn("audit log unavailable", zap.Error(err))
	}
	logging.Boot("%s v%s starting (home=%s)", config.AppName, config.Version, home)

	manager := config.NewSettingsManager(paths.SettingsFile())
	settings, err := manager.Load()
	if err != nil {
		return nil, err
	}
	if flagLanguage != "" {
		if err := settings.Set("language", flagLanguage); err != nil {
			return nil, err
		}
	}
	if flagLevel != "" {
		if err := settings.Set("level", flagLevel); err != nil {
			return nil, err
		}
	}

	logger.Debug("environment ready",
		zap.String("home", home),
		zap.String("provider", cfg.Completion.Provider),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("language", settings.Language),
		zap.String("level", settings.Level))

	return &environment{paths: paths, cfg: cfg, settings: settings, manager: manager}, nil
}

// saveSetting persists a changed setting. --language/--level overrides are
// not written back.
func (e *environment) saveSetting(key, value string) error {
	stored, err := e.manager.Load()
	if err != nil {
		return err
	}
	if err := stored.Set(key, value); err != nil {
		return err
	}
	if err := e.settings.Set(key, value); err != nil {
		return err
	}
	if err := e.manager.Save(stored); err != nil {
		return err
	}
	logging.Config("Setting %s changed to %s", key, value)
	logging.Audit().SettingsChanged(key, value)
	return nil
}

// openStore opens the configured lesson store.
func (e *environment) openStore() (store.Store, error) {
	st, err := store.Open(e.cfg.Storage, e.paths)
	if err != nil {
		return nil, err
	}
	logging.Boot("Store opened (backend=%s)", e.cfg.Storage.Backend)
	return st, nil
}

// newFetcher builds the completion fetcher and, when the config requires it,
// checks that the service answers. --offline yields a nil fetcher.
func (e *environment) newFetcher(ctx context.Context) (completion.Fetcher, error) {
	if offline {
		logging.Boot("Offline mode: practice stories only")
		return nil, nil
	}
	f, err := completion.NewFetcher(ctx, e.cfg)
	if err != nil {
		return nil, err
	}
	if !e.cfg.Completion.RequireReachable {
		return f, nil
	}

	pctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()
	if err := completion.Ping(pctx, f); err != nil {
		logging.BootError("Story service %s unreachable: %v", f.Name(), err)
		return nil, fmt.Errorf("story service (%s) is not reachable: %w\nHint: start it, fix completion.endpoint in %s, or run with --offline",
			f.Name(), err, e.paths.ConfigFile())
	}
	logging.Boot("Story service %s reachable", f.Name())
	return f, nil
}

// openService wires the fetcher and the store into a session service. The
// returned close function releases the store.
func (e *environment) openService(ctx context.Context) (*session.Service, func(), error) {
	f, err := e.newFetcher(ctx)
	if err != nil {
		return nil, nil, err
	}
	st, err := e.openStore()
	if err != nil {
		return nil, nil, err
	}
	svc := session.NewService(session.Config{Fetcher: f, Store: st, User: e.cfg.User})
	closeFn := func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}
	return svc, closeFn, nil
}

// newSpeaker returns nil when narration is off or cannot run here.
func (e *environment) newSpeaker(ctx context.Context) *narration.Speaker {
	if noAudio || !e.cfg.Narration.Enabled {
		return nil
	}
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" && e.cfg.Completion.Provider == config.ProviderGemini {
		apiKey = e.cfg.Completion.APIKey
	}
	sp, err := narration.NewSpeaker(ctx, e.cfg.Narration, e.cfg.GetNarrationTimeout(), apiKey, e.paths.AudioDir)
	if err != nil {
		if !errors.Is(err, narration.ErrUnavailable) {
			logger.Warn("narration disabled", zap.Error(err))
		}
		logging.NarrationWarn("Narration off: %v", err)
		return nil
	}
	return sp
}

// locale returns the narration locale of the current language.
func (e *environment) locale() string {
	if l, ok := config.LookupLanguage(e.settings.Language); ok {
		return l.Code
	}
	return "en"
}
