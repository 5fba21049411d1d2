package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/savestash/internal/capture"
	"github.com/dyluth/savestash/internal/config"
	"github.com/dyluth/savestash/internal/games"
	"github.com/dyluth/savestash/internal/printer"
	"github.com/dyluth/savestash/internal/resolver"
	"github.com/dyluth/savestash/pkg/store"
)

// newClipboard is replaced in tests.
var newClipboard = func() capture.Clipboard {
	return capture.NewSystemClipboard()
}

// loadConfig resolves the effective configuration and applies global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(configPath, envFile)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Fix %s, or remove it to use the defaults", configPath)},
		)
	}

	if redisURL != "" {
		cfg.Store.RedisURL = redisURL
	}
	if profile != "" {
		cfg.Profile = profile
	}
	if err := cfg.Validate(); err != nil {
		return nil, printer.Error("invalid flags", err.Error(), nil)
	}
	return cfg, nil
}

// connect opens the configured store and checks it is reachable.
func connect(ctx context.Context) (*store.RedisArea, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	opts, err := cfg.RedisOptions()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	area, err := store.NewRedisArea(opts, cfg.Profile)
	if err != nil {
		return nil, nil, err
	}

	if err := area.Ping(ctx); err != nil {
		area.Close()
		return nil, nil, printer.ErrorWithContext(
			"store not reachable",
			fmt.Sprintf("Could not connect to Redis: %v", err),
			map[string]string{"Redis": cfg.Store.RedisURL, "Profile": cfg.Profile},
			[]string{
				"Start a local store:\n     savestash store up",
				"Point at a running Redis:\n     savestash --redis-url redis://host:6379 <command>",
			},
		)
	}

	return area, cfg, nil
}

// resolveGame turns a URL or URL fragment into the key of a stored game.
func resolveGame(ctx context.Context, area store.Area, ref string) (string, error) {
	all, err := area.GetAll(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list games: %w", err)
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}

	key, err := resolver.ResolveGame(keys, ref)
	if err != nil {
		return "", reportResolveError(err)
	}
	return key, nil
}

// resolveSave turns a 1-based position or name prefix into a 0-based index.
func resolveSave(gs games.GameSettings, key, ref string) (int, error) {
	i, err := resolver.ResolveSave(gs.Saves, ref)
	if err != nil {
		var notFound *resolver.NotFoundError
		if errors.As(err, &notFound) {
			return 0, printer.Error(
				fmt.Sprintf("save '%s' not found", ref),
				fmt.Sprintf("%s has %d saves and none matches.", gs.DisplayName(key), len(gs.Saves)),
				[]string{fmt.Sprintf("List the saves:\n  savestash saves list %s", key)},
			)
		}
		return 0, reportResolveError(err)
	}
	return i, nil
}

func reportResolveError(err error) error {
	var notFound *resolver.NotFoundError
	if errors.As(err, &notFound) {
		return printer.Error(
			fmt.Sprintf("%s '%s' not found", notFound.Kind, notFound.Ref),
			"",
			[]string{"List tracked games:\n  savestash games"},
		)
	}

	var ambiguous *resolver.AmbiguousError
	if errors.As(err, &ambiguous) {
		return printer.Error(
			fmt.Sprintf("ambiguous %s reference", ambiguous.Kind),
			resolver.FormatAmbiguousError(ambiguous),
			nil,
		)
	}
	return err
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
