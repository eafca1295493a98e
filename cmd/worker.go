package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teamatoi/meetcore/internal/agentstream"
	"github.com/teamatoi/meetcore/internal/controlapi"
	"github.com/teamatoi/meetcore/internal/realtimeworker"
	"github.com/teamatoi/meetcore/internal/realtimeworker/stub"
	"github.com/teamatoi/meetcore/internal/restapi"
)

// workerCmd runs one meeting's RealtimeWorker process, configured
// entirely from environment variables. This is the process the
// WorkerManager backends (docker.go, kubernetes.go) launch per
// meeting, not a long-lived service.
func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run one meeting's RealtimeWorker bot process",
		Run: func(cmd *cobra.Command, args []string) {
			runWorker()
		},
	}
}

func runWorker() {
	logLevel := slog.LevelInfo
	if lvl := os.Getenv("LOG_LEVEL"); lvl == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	meetingID := os.Getenv("MEETING_ID")
	if meetingID == "" {
		slog.Error("MEETING_ID is required")
		os.Exit(1)
	}

	credentialIndex, _ := strconv.Atoi(os.Getenv("CLOVA_STT_SECRET"))
	agentEnabled, _ := strconv.ParseBool(os.Getenv("AGENT_ENABLED"))

	cfg := realtimeworker.Config{
		MeetingID:           meetingID,
		CredentialIndex:     credentialIndex,
		AgentEnabled:        agentEnabled,
		WakeWord:            os.Getenv("AGENT_WAKE_WORD"),
		TTSFailureThreshold: 3,
		CompletionGrace:     5 * time.Second,
	}

	backend := restapi.NewClient(requireURL("BACKEND_API_URL"))
	control := controlapi.NewClient(requireURL("CONTROL_API_URL"))
	stream := agentstream.New(requireURL("AGENT_SERVICE_URL"))

	media := stub.MediaTransport{}
	stt := stub.STTProvider{}
	tts := stub.TTSSynthesizer{}

	ttsQueue := realtimeworker.NewTTSQueue(meetingID, tts, media, cfg.TTSFailureThreshold, 32)

	agentPipelineFactory := func(ctx context.Context) *realtimeworker.AgentPipeline {
		return realtimeworker.NewAgentPipeline(meetingID, stream, control, ttsQueue)
	}

	w := realtimeworker.NewRealtimeWorker(cfg, media, stt, backend, backend, control, control, ttsQueue, agentPipelineFactory)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("worker shutdown initiated", "signal", sig, "meeting_id", meetingID)
		cancel()
	}()

	slog.Info("realtime worker starting", "meeting_id", meetingID, "credential_index", credentialIndex, "agent_enabled", agentEnabled)

	if err := w.Run(ctx); err != nil {
		slog.Error("realtime worker exited with error", "meeting_id", meetingID, "error", err)
		os.Exit(1)
	}
}

// requireURL reads an environment variable expected to hold a
// collaborator base URL, logging and exiting if it's unset: a worker
// process with no backend/control/agent endpoint can't do anything
// useful.
func requireURL(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error(key + " is required")
		os.Exit(1)
	}
	return v
}
