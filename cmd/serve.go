package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/docker/docker/client"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openaisdk "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/teamatoi/meetcore/internal/agentsvc"
	"github.com/teamatoi/meetcore/internal/config"
	mcontext "github.com/teamatoi/meetcore/internal/context"
	"github.com/teamatoi/meetcore/internal/contextsvc"
	"github.com/teamatoi/meetcore/internal/controlapi"
	"github.com/teamatoi/meetcore/internal/credential"
	"github.com/teamatoi/meetcore/internal/kgfixture"
	"github.com/teamatoi/meetcore/internal/llmclient"
	"github.com/teamatoi/meetcore/internal/orchestration"
	"github.com/teamatoi/meetcore/internal/restapi"
	"github.com/teamatoi/meetcore/internal/signaling"
	"github.com/teamatoi/meetcore/internal/store/pg"
	"github.com/teamatoi/meetcore/internal/telemetry"
	"github.com/teamatoi/meetcore/internal/tools"
	"github.com/teamatoi/meetcore/internal/workermanager"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the meeting intelligence core (signaling hub, control plane, agent service)",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	metrics := telemetry.NewMetrics()

	shutdownTracing, err := telemetry.InitTracing(context.Background(), "meetcore", telemetry.TracingConfig{})
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer shutdownTracing(context.Background())

	db, err := pg.Open(cfg.Postgres.DSN)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	snapshots := pg.NewSnapshotStore(db)
	transcripts := pg.NewTranscriptStore(db)

	credentials, err := buildCredentialPool(cfg)
	if err != nil {
		slog.Error("failed to build credential pool", "error", err)
		os.Exit(1)
	}

	workers, err := buildWorkerManager(cfg)
	if err != nil {
		slog.Error("failed to build worker manager", "error", err)
		os.Exit(1)
	}

	llm := llmclient.New(cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)

	contextRegistry := contextsvc.NewRegistry(
		contextManagerConfig(cfg),
		llm,
		cfg.Context.TopicTransitionHints,
		cfg.Context.L1SummaryMaxTokens,
		snapshots,
		transcripts,
		metrics,
	)

	kg := kgfixture.New().Seed()

	toolRegistry := tools.NewRegistry()
	tools.RegisterAll(toolRegistry, kg, kg)
	optionsResolver := tools.NewKGOptionsResolver(kg)

	runner := buildOrchestrationRunner(cfg, toolRegistry, optionsResolver, pg.NewCheckpointStore(db), metrics)

	registry := signaling.NewRegistry()
	dispatcher := signaling.NewDispatcher(registry, signaling.NewMemoryChatStore())
	signalingServer := signaling.NewServer(registry, dispatcher, nil, cfg.Gateway.AllowedOrigins, cfg.Gateway.RateLimitRPM)

	controlServer := controlapi.NewServer(credentials, workers, registry, metrics)

	agentServer := agentsvc.NewServer(runner, contextRegistry, metrics)
	agentMux := http.NewServeMux()
	agentServer.RegisterRoutes(agentMux)
	agentMux.Handle("/metrics", promhttp.Handler())

	backendServer := restapi.NewServer(transcripts, contextRegistry.OnContextUpdate, contextRegistry.OnMeetingComplete)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("graceful shutdown initiated", "signal", sig)
		cancel()
	}()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return signalingServer.Start(gctx, addr(cfg.Gateway.Host, cfg.Gateway.Port))
	})
	group.Go(func() error {
		return serveHTTP(gctx, "control plane", addr(cfg.Gateway.Host, cfg.Gateway.ControlPort), controlServer.Engine())
	})
	group.Go(func() error {
		return serveHTTP(gctx, "agent service", addr(cfg.Gateway.Host, cfg.Gateway.AgentPort), agentMux)
	})
	group.Go(func() error {
		return serveHTTP(gctx, "backend collaborator", addr(cfg.Gateway.Host, cfg.Gateway.BackendPort), backendServer.Engine())
	})

	slog.Info("meetcore serving",
		"version", Version,
		"gateway_port", cfg.Gateway.Port,
		"agent_port", cfg.Gateway.AgentPort,
		"control_port", cfg.Gateway.ControlPort,
		"backend_port", cfg.Gateway.BackendPort,
	)

	if err := group.Wait(); err != nil {
		slog.Error("meetcore exited with error", "error", err)
		os.Exit(1)
	}
}

func addr(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}

// serveHTTP runs an *http.Server over handler until ctx is cancelled,
// matching signaling.Server.Start's shutdown shape for the three mux/
// gin-backed surfaces that don't own their own lifecycle method.
func serveHTTP(ctx context.Context, name, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info(name+" starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func contextManagerConfig(cfg *config.Config) mcontext.ManagerConfig {
	c := cfg.Context
	return mcontext.ManagerConfig{
		L0MaxTurns:                       c.L0MaxTurns,
		L0TopicBufferMaxTurns:            c.L0TopicBufferMaxTurns,
		TopicQuickCheckEnabled:           c.TopicQuickCheckEnabled,
		TopicCheckIntervalTurns:          c.TopicCheckIntervalTurns,
		L1UpdateTurnThreshold:            c.L1UpdateTurnThreshold,
		L1UpdateTokenBudget:              c.L1UpdateTokenBudget,
		L1UpdateInterval:                 c.L1UpdateIntervalMinutes,
		L1MinNewUtterancesForTimeTrigger: c.L1MinNewUtterancesForTimeTrigger,
		DBSyncUtteranceThreshold:         c.DBSyncUtteranceThreshold,
		DBSyncInterval:                   c.DBSyncIntervalSeconds,
		SpeakerBufferMaxPerSpeaker:       c.SpeakerBufferMaxPerSpeaker,
	}
}

func buildCredentialPool(cfg *config.Config) (credential.Pool, error) {
	switch cfg.Credential.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		return credential.NewRedisPool(rdb, "meetcore:credential:", cfg.Credential.TotalKeys, cfg.Credential.MaxMeetingsPerKey, int64(cfg.Credential.TTL.Seconds())), nil
	default:
		return credential.NewLocalPool(cfg.Credential.TotalKeys, cfg.Credential.MaxMeetingsPerKey, cfg.Credential.TTL), nil
	}
}

func buildWorkerManager(cfg *config.Config) (workermanager.Manager, error) {
	switch cfg.Worker.Backend {
	case "kubernetes":
		restCfg, err := rest.InClusterConfig()
		if err != nil {
			return nil, err
		}
		clientset, err := kubernetes.NewForConfig(restCfg)
		if err != nil {
			return nil, err
		}
		return workermanager.NewKubernetesManager(clientset, workermanager.KubernetesManagerConfig{
			Namespace:          cfg.Worker.Namespace,
			Image:              cfg.Worker.Image,
			ImagePullSecret:    cfg.Worker.ImagePullSecret,
			TTLAfterCompletion: int32(cfg.Worker.TTLAfterCompletion.Seconds()),
			BackendAPIURL:      cfg.Worker.BackendAPIURL,
			TTSServerURL:       cfg.Worker.TTSServerURL,
			ControlAPIURL:      cfg.Worker.ControlAPIURL,
			AgentServiceURL:    cfg.Worker.AgentServiceURL,
			AgentEnabled:       cfg.Worker.AgentEnabled,
			AgentWakeWord:      cfg.Worker.AgentWakeWord,
		}), nil
	default:
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return nil, err
		}
		return workermanager.NewDockerManager(cli, workermanager.DockerManagerConfig{
			Image:            cfg.Worker.Image,
			BackendAPIURL:    cfg.Worker.BackendAPIURL,
			TTSServerURL:     cfg.Worker.TTSServerURL,
			ControlAPIURL:    cfg.Worker.ControlAPIURL,
			AgentServiceURL:  cfg.Worker.AgentServiceURL,
			LiveKitURL:       cfg.Worker.LiveKitURL,
			LiveKitAPIKey:    cfg.Worker.LiveKitAPIKey,
			LiveKitAPISecret: cfg.Worker.LiveKitAPISecret,
			AgentEnabled:     cfg.Worker.AgentEnabled,
			AgentWakeWord:    cfg.Worker.AgentWakeWord,
			LogLevel:         cfg.Worker.LogLevel,
		}), nil
	}
}

// callerIDFunc adapts tools.CallerUserID's (string, bool) return to the
// bare string ToolExecutor.CallerID expects (an absent caller id
// resolves to "", which OptionsResolver/tool handlers already treat as
// "unauthenticated").
func callerIDFunc(ctx context.Context) string {
	id, _ := tools.CallerUserID(ctx)
	return id
}

func buildOrchestrationRunner(cfg *config.Config, registry *tools.Registry, resolver orchestration.OptionsResolver, checkpointer orchestration.Checkpointer, metrics *telemetry.Metrics) *orchestration.Runner {
	var planner orchestration.PlannerLLM
	var evaluator orchestration.EvaluatorLLM
	var generator orchestration.GeneratorLLM
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey != "" {
		oaiCfg := openaisdk.DefaultConfig(cfg.LLM.APIKey)
		if cfg.LLM.BaseURL != "" {
			oaiCfg.BaseURL = cfg.LLM.BaseURL
		}
		client := openaisdk.NewClientWithConfig(oaiCfg)
		llm := orchestration.NewOpenAILLM(client, cfg.LLM.Model)
		planner, evaluator, generator = llm, llm, llm
	}

	composite := orchestration.CompositeConfig{
		AssignmentHints:  cfg.Context.CompositeQuery.AssignmentHints,
		TeamHints:        cfg.Context.CompositeQuery.TeamHints,
		ReferentialHints: cfg.Context.CompositeQuery.ReferentialHints,
	}

	return &orchestration.Runner{
		Planner: &orchestration.Planner{
			LLM:       planner,
			Registry:  registry,
			Composite: composite,
			MaxRetry:  cfg.Orchestration.PlannerMaxRetry,
		},
		ToolExecutor: &orchestration.ToolExecutor{
			Registry: registry,
			Resolver: resolver,
			CallerID: callerIDFunc,
			Metrics:  metrics,
		},
		Evaluator: &orchestration.Evaluator{
			LLM:       evaluator,
			MaxRounds: cfg.Orchestration.EvaluatorMaxRounds,
			Composite: composite,
		},
		Generator: &orchestration.ResponseGenerator{
			LLM: generator,
		},
		Checkpointer: checkpointer,
	}
}
