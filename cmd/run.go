package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanducng/goclaw-bridge/internal/chat/telegram"
	"github.com/vanducng/goclaw-bridge/internal/config"
	"github.com/vanducng/goclaw-bridge/internal/coordinator"
	"github.com/vanducng/goclaw-bridge/internal/llm"
	"github.com/vanducng/goclaw-bridge/internal/notify"
	"github.com/vanducng/goclaw-bridge/internal/permission"
	"github.com/vanducng/goclaw-bridge/internal/providers"
	"github.com/vanducng/goclaw-bridge/internal/ratelimit"
	"github.com/vanducng/goclaw-bridge/internal/sessions"
	"github.com/vanducng/goclaw-bridge/internal/stt"
	"github.com/vanducng/goclaw-bridge/internal/timer"
	"github.com/vanducng/goclaw-bridge/internal/tmux"
	"github.com/vanducng/goclaw-bridge/internal/tracing"
	"github.com/vanducng/goclaw-bridge/internal/tts"
	"github.com/vanducng/goclaw-bridge/internal/watch"
)

// app is the process-wide state object built once by runBridge:
// every other component is constructed from it via explicit
// constructor injection. Nothing here is a package-level global.
type app struct {
	cfg         *config.Config
	coordinator *coordinator.Coordinator
	channel     *telegram.Channel
	shutdown    tracing.Shutdown
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bridge: connect Telegram, watch agent transcripts, inject turns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge()
		},
	}
}

func configureLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if v := os.Getenv("GOCLAW_BRIDGE_LOG_LEVEL"); v != "" {
		_ = level.UnmarshalText([]byte(v))
	}

	var handler slog.Handler
	if isTTY(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func runBridge() error {
	configureLogging()

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("config load failed, cannot start", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.shutdown(context.Background())

	if err := a.channel.Start(ctx); err != nil {
		slog.Error("telegram channel failed to start", "error", err)
		os.Exit(1)
	}

	watchReloads(ctx, cfgPath, cfg)

	slog.Info("goclaw-bridge running", "repos_folder", cfg.ReposFolder, "config_dir", cfg.ConfigDir)
	<-ctx.Done()

	slog.Info("shutting down")
	a.coordinator.Manager.Clear()
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.channel.Stop(stopCtx); err != nil {
		slog.Warn("telegram channel stop failed", "error", err)
	}
	return nil
}

// watchReloads re-reads the config file on SIGHUP, swapping it into
// cfg in place so every collaborator holding *cfg sees fresh values.
func watchReloads(ctx context.Context, cfgPath string, cfg *config.Config) {
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				signal.Stop(sighup)
				return
			case <-sighup:
				if err := cfg.Reload(cfgPath); err != nil {
					slog.Warn("config reload failed", "error", err)
					continue
				}
				slog.Info("config reloaded")
			}
		}
	}()
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("cmd: telegram token not configured (set GOCLAW_BRIDGE_TELEGRAM_TOKEN)")
	}

	tracer, shutdown, err := tracing.New(ctx, tracing.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		Protocol:    cfg.Telemetry.Protocol,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
		Headers:     cfg.Telemetry.Headers,
	})
	if err != nil {
		return nil, fmt.Errorf("cmd: build tracer: %w", err)
	}

	locator := tmux.NewLocator()
	injector := tmux.NewInjector(locator)

	idx := sessions.New(cfg.ProjectsRoot)
	home, _ := os.UserHomeDir()
	marker := sessions.Marker{ConfigDir: cfg.ConfigDir, HomeCwd: home}
	chatIDFile := sessions.ChatIDFile{ConfigDir: cfg.ConfigDir}

	limiter := ratelimit.New(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	downloadDir := cfg.ConfigDir + "/downloads"
	channel, err := telegram.New(cfg.Telegram.Token, downloadDir, limiter)
	if err != nil {
		return nil, fmt.Errorf("cmd: build telegram channel: %w", err)
	}

	notifier := notify.New(channel)
	manager := watch.New(idx, marker, notifier)

	allowedChatID := ""
	if cfg.AllowedChatID != 0 {
		allowedChatID = strconv.FormatInt(cfg.AllowedChatID, 10)
	}

	coord := coordinator.New(coordinator.Config{
		ConfigDir:     cfg.ConfigDir,
		AllowedChatID: allowedChatID,
	}, locator, injector, manager, idx, marker, channel)
	coord.ChatIDFile = chatIDFile
	coord.Tracer = tracer

	coord.Timer = timer.New(marker, locator, injector, manager, func() string {
		if chatID, ok := chatIDFile.Get(); ok {
			return chatID
		}
		return allowedChatID
	})

	bridge := &permission.Bridge{ConfigDir: cfg.ConfigDir, OnRequest: coord.OnPermissionRequest}
	if err := bridge.Start(ctx); err != nil {
		return nil, fmt.Errorf("cmd: start permission bridge: %w", err)
	}
	coord.Permission = bridge

	if cfg.LLM.APIKey != "" {
		var opts []providers.AnthropicOption
		if cfg.LLM.Model != "" {
			opts = append(opts, providers.WithAnthropicModel(cfg.LLM.Model))
		}
		client := llm.New(cfg.LLM.APIKey, opts...)
		coord.Polish = client
		coord.Summary = client
	}
	if cfg.STT.BaseURL != "" {
		coord.STT = stt.NewHTTPClient(cfg.STT.BaseURL, cfg.STT.APIKey)
	}
	if cfg.TTS.BaseURL != "" {
		coord.TTS = tts.NewHTTPClient(cfg.TTS.BaseURL, cfg.TTS.APIKey)
	}

	channel.SetRouter(coord)

	return &app{cfg: cfg, coordinator: coord, channel: channel, shutdown: shutdown}, nil
}
