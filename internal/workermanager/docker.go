package workermanager

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// containerNamePrefix deterministically names a meeting's worker
// container so start is idempotent: a second StartWorker call for the
// same meeting finds the existing container instead of creating a
// duplicate.
const containerNamePrefix = "meetcore-realtime-worker-"

// DockerManager runs one worker container per meeting via the local
// (or remote) Docker daemon.
type DockerManager struct {
	cli              *client.Client
	image            string
	backendAPIURL    string
	ttsServerURL     string
	controlAPIURL    string
	agentServiceURL  string
	liveKitURL       string
	liveKitAPIKey    string
	liveKitAPISecret string
	agentEnabled     bool
	agentWakeWord    string
	logLevel         string
}

// DockerManagerConfig configures NewDockerManager.
type DockerManagerConfig struct {
	Image            string
	BackendAPIURL    string
	TTSServerURL     string
	ControlAPIURL    string
	AgentServiceURL  string
	LiveKitURL       string
	LiveKitAPIKey    string
	LiveKitAPISecret string
	AgentEnabled     bool
	AgentWakeWord    string
	LogLevel         string
}

func NewDockerManager(cli *client.Client, cfg DockerManagerConfig) *DockerManager {
	return &DockerManager{
		cli:              cli,
		image:            cfg.Image,
		backendAPIURL:    cfg.BackendAPIURL,
		ttsServerURL:     cfg.TTSServerURL,
		controlAPIURL:    cfg.ControlAPIURL,
		agentServiceURL:  cfg.AgentServiceURL,
		liveKitURL:       cfg.LiveKitURL,
		liveKitAPIKey:    cfg.LiveKitAPIKey,
		liveKitAPISecret: cfg.LiveKitAPISecret,
		agentEnabled:     cfg.AgentEnabled,
		agentWakeWord:    cfg.AgentWakeWord,
		logLevel:         cfg.LogLevel,
	}
}

func containerName(meetingID string) string {
	return containerNamePrefix + meetingID
}

func (m *DockerManager) StartWorker(ctx context.Context, meetingID string, credentialIndex int) (string, error) {
	name := containerName(meetingID)

	existing, err := m.findByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("start worker: %w", err)
	}
	if existing != "" {
		slog.Info("worker already running, returning existing id", "meeting_id", meetingID, "worker_id", existing)
		return existing, nil
	}

	env := []string{
		"MEETING_ID=" + meetingID,
		"CLOVA_STT_SECRET=" + strconv.Itoa(credentialIndex),
		"BACKEND_API_URL=" + m.backendAPIURL,
		"TTS_SERVER_URL=" + m.ttsServerURL,
		"CONTROL_API_URL=" + m.controlAPIURL,
		"AGENT_SERVICE_URL=" + m.agentServiceURL,
		"LIVEKIT_URL=" + m.liveKitURL,
		"LIVEKIT_API_KEY=" + m.liveKitAPIKey,
		"LIVEKIT_API_SECRET=" + m.liveKitAPISecret,
		"AGENT_ENABLED=" + strconv.FormatBool(m.agentEnabled),
		"AGENT_WAKE_WORD=" + m.agentWakeWord,
		"LOG_LEVEL=" + m.logLevel,
	}

	resp, err := m.cli.ContainerCreate(ctx,
		&container.Config{
			Image: m.image,
			Env:   env,
			Labels: map[string]string{
				"app":              "realtime-worker",
				"meeting-id":       meetingID,
				"credential-index": strconv.Itoa(credentialIndex),
			},
		},
		&container.HostConfig{
			AutoRemove: false,
		},
		nil, nil, name,
	)
	if err != nil {
		return "", &StartError{Meeting: meetingID, Cause: err}
	}

	if err := m.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", &StartError{Meeting: meetingID, Cause: err}
	}

	return resp.ID, nil
}

func (m *DockerManager) StopWorker(ctx context.Context, workerID string) (bool, error) {
	timeout := 10
	if err := m.cli.ContainerStop(ctx, workerID, container.StopOptions{Timeout: &timeout}); err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stop worker %s: %w", workerID, err)
	}
	return true, nil
}

func (m *DockerManager) GetStatus(ctx context.Context, workerID string) (WorkerStatus, error) {
	inspect, err := m.cli.ContainerInspect(ctx, workerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return WorkerStatus{WorkerID: workerID, Status: StatusNotFound}, nil
		}
		return WorkerStatus{}, fmt.Errorf("inspect worker %s: %w", workerID, err)
	}

	st := WorkerStatus{
		WorkerID:  workerID,
		MeetingID: inspect.Config.Labels["meeting-id"],
	}

	switch {
	case inspect.State.Running:
		st.Status = StatusRunning
	case inspect.State.Status == "created":
		st.Status = StatusPending
	case inspect.State.ExitCode == 0:
		st.Status = StatusStopped
	default:
		st.Status = StatusFailed
		code := inspect.State.ExitCode
		st.ExitCode = &code
		st.ErrorMessage = lastLine(inspect.State.Error)
	}
	return st, nil
}

func (m *DockerManager) ListWorkers(ctx context.Context, meetingID string) ([]WorkerStatus, error) {
	f := filters.NewArgs(filters.Arg("label", "app=realtime-worker"))
	if meetingID != "" {
		f.Add("label", "meeting-id="+meetingID)
	}
	containers, err := m.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}

	out := make([]WorkerStatus, 0, len(containers))
	for _, c := range containers {
		st, err := m.GetStatus(ctx, c.ID)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (m *DockerManager) findByName(ctx context.Context, name string) (string, error) {
	f := filters.NewArgs(filters.Arg("name", "^/"+name+"$"))
	containers, err := m.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
	if err != nil {
		return "", err
	}
	if len(containers) == 0 {
		return "", nil
	}
	return containers[0].ID, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return s
	}
	return lines[len(lines)-1]
}
