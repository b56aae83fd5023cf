package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clawft/clawft/internal/agent"
	agentcontext "github.com/clawft/clawft/internal/agent/context"
	"github.com/clawft/clawft/internal/agent/providers"
	"github.com/clawft/clawft/internal/bus"
	"github.com/clawft/clawft/internal/channels"
	"github.com/clawft/clawft/internal/channels/discord"
	"github.com/clawft/clawft/internal/channels/slack"
	"github.com/clawft/clawft/internal/channels/telegram"
	"github.com/clawft/clawft/internal/config"
	"github.com/clawft/clawft/internal/observability"
	"github.com/clawft/clawft/internal/pipeline"
	"github.com/clawft/clawft/internal/security"
	"github.com/clawft/clawft/internal/sessions"
	"github.com/clawft/clawft/pkg/models"
)

func clawftConfigPath() string {
	return security.DefaultConfigPath()
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

// runServe wires configuration, channel adapters, LLM providers, the
// classify/route pipeline, the message bus, and the agent runtime into a
// running assistant, and blocks until a shutdown signal arrives.
func runServe(ctx context.Context, configPath string, debug bool) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("starting clawft", "version", version, "commit", commit, "config", configPath, "debug", debug)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := cfg.Logging.Level
	logFormat := cfg.Logging.Format
	if debug {
		logLevel = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:     logLevel,
		Format:    logFormat,
		AddSource: debug,
	})

	stateDir := security.DefaultStateDir()
	store, err := sessions.NewFileStore(filepath.Join(stateDir, "sessions"))
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	providerMap, err := buildProviders(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize providers: %w", err)
	}

	runtimes := buildRuntimes(cfg, providerMap, store)

	router := buildRouter(cfg, providerMap)
	classifier := pipeline.NewHeuristicClassifier()

	// The remaining pipeline stages (assembler, transport, scorer, learner)
	// complete the six-stage contract for direct, tool-free completions;
	// channel messages route through the agent runtime below for full tool
	// execution, selecting a provider via the same classifier/router pair.
	_ = pipeline.NewContextAssembler(agentcontext.DefaultPackOptions())
	_ = pipeline.NewProviderTransport(providerMap)

	registry := channels.NewRegistry()
	if err := registerChannels(registry, cfg); err != nil {
		return fmt.Errorf("failed to register channels: %w", err)
	}

	b := bus.New(bus.Config{
		InboundBuffer:         cfg.Bus.InboundBuffer,
		OutboundBuffer:        cfg.Bus.OutboundBuffer,
		MaxConcurrentSessions: cfg.Bus.MaxConcurrentSessions,
	}, sessions.NewLocalLocker(30*time.Second), logger)

	h := &messageHandler{
		store:           store,
		classifier:      classifier,
		router:          router,
		runtimes:        runtimes,
		defaultProvider: strings.ToLower(strings.TrimSpace(cfg.LLM.DefaultProvider)),
		defaultAgentID:  cfg.Session.DefaultAgentID,
		bus:             b,
		logger:          logger,
	}

	ctx, cancel := signalContext(ctx)
	defer cancel()

	b.Start(ctx, h.handle)
	go deliverOutbound(ctx, b, registry, logger)

	if err := registry.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start channel adapters: %w", err)
	}

	pushCancel, err := registry.StartPush(ctx, busHost{b})
	if err != nil {
		return fmt.Errorf("failed to start channel push loops: %w", err)
	}
	defer pushCancel()

	httpServer, httpErrCh := startMetricsServer(cfg)
	if httpServer != nil {
		defer httpServer.Close()
	}

	slog.Info("clawft started", "metrics_addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort))

	select {
	case <-ctx.Done():
	case err := <-httpErrCh:
		if err != nil {
			return err
		}
	}

	slog.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := b.Stop(shutdownCtx); err != nil {
		slog.Warn("bus shutdown timed out", "error", err)
	}
	if err := registry.StopAll(shutdownCtx); err != nil {
		slog.Warn("channel shutdown error", "error", err)
	}

	slog.Info("clawft stopped gracefully")
	return nil
}

// buildProviders constructs one agent.LLMProvider per configured entry in
// providers.providers, keyed by the same name used in routing decisions.
func buildProviders(cfg *config.Config) (map[string]agent.LLMProvider, error) {
	out := make(map[string]agent.LLMProvider, len(cfg.LLM.Providers))
	for name, pc := range cfg.LLM.Providers {
		key := strings.ToLower(strings.TrimSpace(name))
		switch key {
		case "anthropic":
			p, err := providers.NewAnthropicProvider(providers.AnthropicConfig{
				APIKey:  pc.APIKey,
				BaseURL: pc.BaseURL,
			})
			if err != nil {
				return nil, fmt.Errorf("anthropic provider: %w", err)
			}
			out[key] = p
		case "openai":
			out[key] = providers.NewOpenAIProvider(pc.APIKey)
		case "bedrock":
			p, err := providers.NewBedrockProvider(providers.BedrockConfig{
				Region:       cfg.LLM.Bedrock.Region,
				DefaultModel: pc.DefaultModel,
			})
			if err != nil {
				return nil, fmt.Errorf("bedrock provider: %w", err)
			}
			out[key] = p
		default:
			slog.Warn("unrecognized provider, skipping", "provider", name)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no LLM providers configured")
	}
	return out, nil
}

// buildRuntimes wraps each configured provider in its own agent.Runtime
// sharing the session store, so the bus handler can select a runtime by the
// provider name the router picked.
func buildRuntimes(cfg *config.Config, providerMap map[string]agent.LLMProvider, store sessions.Store) map[string]*agent.Runtime {
	exec := cfg.Tools.Execution
	opts := agent.DefaultRuntimeOptions()
	if exec.MaxIterations > 0 {
		opts.MaxIterations = exec.MaxIterations
	}
	if exec.Parallelism > 0 {
		opts.ToolParallelism = exec.Parallelism
	}
	if exec.Timeout > 0 {
		opts.ToolTimeout = exec.Timeout
	}
	if exec.MaxAttempts > 0 {
		opts.ToolMaxAttempts = exec.MaxAttempts
	}
	if exec.RetryBackoff > 0 {
		opts.ToolRetryBackoff = exec.RetryBackoff
	}
	opts.DisableToolEvents = exec.DisableEvents
	opts.MaxToolCalls = exec.MaxToolCalls
	opts.RequireApproval = exec.RequireApproval
	opts.ToolResultGuard = agent.ToolResultGuard{
		Enabled:         exec.ResultGuard.Enabled,
		MaxChars:        exec.ResultGuard.MaxChars,
		Denylist:        exec.ResultGuard.Denylist,
		RedactPatterns:  exec.ResultGuard.RedactPatterns,
		RedactionText:   exec.ResultGuard.RedactionText,
		TruncateSuffix:  exec.ResultGuard.TruncateSuffix,
		SanitizeSecrets: exec.ResultGuard.SanitizeSecrets,
	}

	runtimes := make(map[string]*agent.Runtime, len(providerMap))
	for name, provider := range providerMap {
		rt := agent.NewRuntimeWithOptions(provider, store, opts)
		for _, agentCfg := range cfg.Agents {
			if strings.EqualFold(agentCfg.Provider, name) && agentCfg.SystemPrompt != "" {
				rt.SetSystemPrompt(agentCfg.SystemPrompt)
				break
			}
		}
		runtimes[name] = rt
	}
	return runtimes
}

// buildRouter builds a complexity-tiered router across every configured
// provider, weakest/cheapest first, falling back to the default provider.
func buildRouter(cfg *config.Config, providerMap map[string]agent.LLMProvider) *pipeline.TieredRouter {
	names := make([]string, 0, len(providerMap))
	for name := range providerMap {
		if name == cfg.LLM.DefaultProvider {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var tiers []pipeline.Tier
	step := 1.0 / float64(len(names)+1)
	for i, name := range names {
		tiers = append(tiers, pipeline.Tier{
			Name:          name,
			MaxComplexity: step * float64(i+1),
			Provider:      name,
			Model:         cfg.LLM.Providers[name].DefaultModel,
		})
	}

	fallback := pipeline.Tier{
		Name:     "default",
		Provider: cfg.LLM.DefaultProvider,
		Model:    cfg.LLM.Providers[cfg.LLM.DefaultProvider].DefaultModel,
	}

	cooldown := cfg.LLM.Routing.UnhealthyCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	return pipeline.NewTieredRouter(pipeline.Config{
		Tiers:    tiers,
		Fallback: fallback,
		Availability: pipeline.AvailabilityFunc(func(provider string) bool {
			_, ok := providerMap[provider]
			return ok
		}),
		FailureCooldown: cooldown,
	})
}

// registerChannels constructs and registers every enabled channel adapter.
func registerChannels(registry *channels.Registry, cfg *config.Config) error {
	if cfg.Channels.Telegram.Enabled {
		adapter, err := telegram.NewAdapter(telegram.Config{
			Token: cfg.Channels.Telegram.BotToken,
			Mode:  telegram.ModeLongPolling,
		})
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		registry.Register(adapter)
	}
	if cfg.Channels.Discord.Enabled {
		adapter, err := discord.NewAdapter(discord.Config{
			Token:  cfg.Channels.Discord.BotToken,
			Logger: slog.Default(),
		})
		if err != nil {
			return fmt.Errorf("discord: %w", err)
		}
		registry.Register(adapter)
	}
	if cfg.Channels.Slack.Enabled {
		adapter, err := slack.NewAdapter(slack.Config{
			BotToken:          cfg.Channels.Slack.BotToken,
			AppToken:          cfg.Channels.Slack.AppToken,
			UploadAttachments: cfg.Channels.Slack.UploadAttachments,
			Logger:            slog.Default(),
		})
		if err != nil {
			return fmt.Errorf("slack: %w", err)
		}
		registry.Register(adapter)
	}
	return nil
}

// busHost adapts a Bus to the channels.Host contract so adapters (or the
// registry's pull-adapter bridge) can deliver inbound messages without
// knowing anything about the bus.
type busHost struct {
	b *bus.Bus
}

func (h busHost) DeliverInbound(ctx context.Context, msg *models.Message) error {
	return h.b.PublishInbound(msg)
}

// deliverOutbound drains the bus's outbound queue and hands each message to
// the channel adapter registered for it.
func deliverOutbound(ctx context.Context, b *bus.Bus, registry *channels.Registry, logger *observability.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-b.ConsumeOutbound():
			if !ok {
				return
			}
			adapter, ok := registry.GetOutbound(msg.Channel)
			if !ok {
				logger.Warn(ctx, "no outbound adapter for channel", "channel", msg.Channel)
				continue
			}
			if err := adapter.Send(ctx, msg); err != nil {
				logger.Error(ctx, "failed to send outbound message", "channel", msg.Channel, "error", err)
			}
		}
	}
}

// messageHandler classifies, routes, and processes one inbound message per
// bus.Handler invocation, persisting history via the shared session store
// and dispatching the assistant's reply back onto the bus.
type messageHandler struct {
	store           sessions.Store
	classifier      pipeline.Classifier
	router          pipeline.Router
	runtimes        map[string]*agent.Runtime
	defaultProvider string
	defaultAgentID  string
	bus             *bus.Bus
	logger          *observability.Logger
}

func (h *messageHandler) handle(ctx context.Context, msg *models.Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	key := sessions.SessionKey(msg.Channel, msg.ChannelID)
	session, err := h.store.GetOrCreate(ctx, key, h.defaultAgentID, msg.Channel, msg.ChannelID)
	if err != nil {
		h.logger.Error(ctx, "failed to get or create session", "error", err)
		return
	}
	msg.SessionID = session.ID

	history, err := h.store.GetHistory(ctx, session.ID, 60)
	if err != nil {
		h.logger.Warn(ctx, "failed to load session history", "error", err)
	}

	chatReq := &pipeline.ChatRequest{SessionKey: key, History: history, Incoming: msg}
	class, err := h.classifier.Classify(ctx, chatReq)
	if err != nil {
		h.logger.Warn(ctx, "classification failed, using default routing", "error", err)
	}

	decision, err := h.router.Route(ctx, chatReq, class)
	if err != nil {
		decision = pipeline.RoutingDecision{Provider: h.defaultProvider}
	}

	runtime, ok := h.runtimes[decision.Provider]
	if !ok {
		runtime, ok = h.runtimes[h.defaultProvider]
	}
	if !ok {
		h.logger.Error(ctx, "no runtime available for message", "provider", decision.Provider)
		return
	}

	runCtx := ctx
	if decision.Model != "" {
		runCtx = agent.WithModel(runCtx, decision.Model)
	}

	chunks, err := runtime.Process(runCtx, session, msg)
	if err != nil {
		h.logger.Error(ctx, "runtime processing failed", "error", err)
		return
	}

	var text strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			h.logger.Error(ctx, "runtime stream error", "error", chunk.Error)
			return
		}
		text.WriteString(chunk.Text)
	}
	if text.Len() == 0 {
		return
	}

	reply := &models.Message{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Channel:   msg.Channel,
		ChannelID: msg.ChannelID,
		Direction: models.DirectionOutbound,
		Role:      models.RoleAssistant,
		Content:   text.String(),
		CreatedAt: time.Now(),
	}
	if err := h.bus.DispatchOutbound(reply); err != nil {
		h.logger.Warn(ctx, "failed to dispatch reply, backpressure", "error", err)
	}
}

// startMetricsServer serves /metrics and /healthz on the configured port.
// It returns a nil server and a never-sending channel when no port is set.
func startMetricsServer(cfg *config.Config) (*http.Server, <-chan error) {
	errCh := make(chan error, 1)
	if cfg.Server.MetricsPort == 0 {
		return nil, errCh
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		errCh <- fmt.Errorf("metrics listen: %w", err)
		return nil, errCh
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return server, errCh
}
