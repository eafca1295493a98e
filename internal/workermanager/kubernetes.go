package workermanager

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const workerJobPrefix = "realtime-worker"

var jobNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9-]`)
var labelSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// KubernetesManager runs one Job per meeting in a cluster. The
// assigned credential index is passed directly as CLOVA_STT_SECRET,
// matching DockerManager; the worker resolves the actual key material
// from its own environment.
type KubernetesManager struct {
	client           kubernetes.Interface
	namespace        string
	image            string
	imagePullSecret  string
	ttlAfterComplete int32
	backendAPIURL    string
	ttsServerURL     string
	controlAPIURL    string
	agentServiceURL  string
	agentEnabled     bool
	agentWakeWord    string
}

type KubernetesManagerConfig struct {
	Namespace          string
	Image              string
	ImagePullSecret    string
	TTLAfterCompletion int32
	BackendAPIURL      string
	TTSServerURL       string
	ControlAPIURL      string
	AgentServiceURL    string
	AgentEnabled       bool
	AgentWakeWord      string
}

func NewKubernetesManager(client kubernetes.Interface, cfg KubernetesManagerConfig) *KubernetesManager {
	return &KubernetesManager{
		client:           client,
		namespace:        cfg.Namespace,
		image:            cfg.Image,
		imagePullSecret:  cfg.ImagePullSecret,
		ttlAfterComplete: cfg.TTLAfterCompletion,
		backendAPIURL:    cfg.BackendAPIURL,
		ttsServerURL:     cfg.TTSServerURL,
		controlAPIURL:    cfg.ControlAPIURL,
		agentServiceURL:  cfg.AgentServiceURL,
		agentEnabled:     cfg.AgentEnabled,
		agentWakeWord:    cfg.AgentWakeWord,
	}
}

func jobName(meetingID string) string {
	return workerJobPrefix + "-" + jobNameSanitizer.ReplaceAllString(meetingID, "")
}

func meetingIDFromJobName(name string) string {
	if len(name) > len(workerJobPrefix)+1 {
		return name[len(workerJobPrefix)+1:]
	}
	return name
}

func (m *KubernetesManager) StartWorker(ctx context.Context, meetingID string, credentialIndex int) (string, error) {
	name := jobName(meetingID)

	existing, err := m.GetStatus(ctx, name)
	if err != nil {
		return "", fmt.Errorf("start worker: %w", err)
	}
	if existing.Status == StatusRunning {
		slog.Info("worker job already running", "meeting_id", meetingID, "job", name)
		return name, nil
	}
	if existing.Status == StatusStopped || existing.Status == StatusFailed || existing.Status == StatusPending {
		if err := m.deleteJob(ctx, name); err != nil {
			return "", fmt.Errorf("start worker: replace stale job: %w", err)
		}
	}

	job := m.buildJob(name, meetingID, credentialIndex)
	_, err = m.client.BatchV1().Jobs(m.namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsAlreadyExists(err) {
			slog.Info("worker job already exists, created by another instance", "job", name)
			return name, nil
		}
		return "", &StartError{Meeting: meetingID, Cause: err}
	}
	return name, nil
}

func (m *KubernetesManager) buildJob(name, meetingID string, credentialIndex int) *batchv1.Job {
	ttl := m.ttlAfterComplete
	backoff := int32(0)
	labels := map[string]string{
		"app":              "realtime-worker",
		"managed-by":       "meetcore",
		"meeting-id":       labelSanitizer.ReplaceAllString(meetingID, ""),
		"credential-index": fmt.Sprintf("%d", credentialIndex),
	}

	var pullSecrets []corev1.LocalObjectReference
	if m.imagePullSecret != "" {
		pullSecrets = []corev1.LocalObjectReference{{Name: m.imagePullSecret}}
	}

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: m.namespace,
			Labels:    labels,
		},
		Spec: batchv1.JobSpec{
			TTLSecondsAfterFinished: &ttl,
			BackoffLimit:            &backoff,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					ImagePullSecrets: pullSecrets,
					RestartPolicy:    corev1.RestartPolicyNever,
					Containers: []corev1.Container{
						{
							Name:            "worker",
							Image:           m.image,
							ImagePullPolicy: corev1.PullAlways,
							Env: []corev1.EnvVar{
								{Name: "MEETING_ID", Value: meetingID},
								{Name: "BACKEND_API_URL", Value: m.backendAPIURL},
								{Name: "TTS_SERVER_URL", Value: m.ttsServerURL},
								{Name: "CONTROL_API_URL", Value: m.controlAPIURL},
								{Name: "AGENT_SERVICE_URL", Value: m.agentServiceURL},
								{Name: "CLOVA_STT_SECRET", Value: fmt.Sprintf("%d", credentialIndex)},
								{Name: "AGENT_ENABLED", Value: fmt.Sprintf("%t", m.agentEnabled)},
								{Name: "AGENT_WAKE_WORD", Value: m.agentWakeWord},
							},
							Resources: corev1.ResourceRequirements{
								Requests: corev1.ResourceList{
									corev1.ResourceMemory: resource.MustParse("128Mi"),
									corev1.ResourceCPU:    resource.MustParse("100m"),
								},
								Limits: corev1.ResourceList{
									corev1.ResourceMemory: resource.MustParse("512Mi"),
									corev1.ResourceCPU:    resource.MustParse("500m"),
								},
							},
						},
					},
				},
			},
		},
	}
}

func (m *KubernetesManager) StopWorker(ctx context.Context, workerID string) (bool, error) {
	return m.deleteJobReportingFound(ctx, workerID)
}

func (m *KubernetesManager) deleteJob(ctx context.Context, name string) error {
	policy := metav1.DeletePropagationBackground
	err := m.client.BatchV1().Jobs(m.namespace).Delete(ctx, name, metav1.DeleteOptions{PropagationPolicy: &policy})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete job %s: %w", name, err)
	}
	return nil
}

func (m *KubernetesManager) deleteJobReportingFound(ctx context.Context, name string) (bool, error) {
	policy := metav1.DeletePropagationBackground
	err := m.client.BatchV1().Jobs(m.namespace).Delete(ctx, name, metav1.DeleteOptions{PropagationPolicy: &policy})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete job %s: %w", name, err)
	}
	return true, nil
}

func (m *KubernetesManager) GetStatus(ctx context.Context, workerID string) (WorkerStatus, error) {
	job, err := m.client.BatchV1().Jobs(m.namespace).Get(ctx, workerID, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return WorkerStatus{WorkerID: workerID, MeetingID: meetingIDFromJobName(workerID), Status: StatusNotFound}, nil
		}
		return WorkerStatus{}, fmt.Errorf("get job status %s: %w", workerID, err)
	}
	return jobToWorkerStatus(job), nil
}

func jobToWorkerStatus(job *batchv1.Job) WorkerStatus {
	name := job.Name
	st := WorkerStatus{WorkerID: name, MeetingID: meetingIDFromJobName(name)}
	st.Status = jobStatusEnum(job)

	switch st.Status {
	case StatusFailed:
		code := 1
		st.ExitCode = &code
		st.ErrorMessage = extractFailureMessage(job)
	case StatusStopped:
		code := 0
		st.ExitCode = &code
	}
	return st
}

func jobStatusEnum(job *batchv1.Job) Status {
	s := job.Status
	if s.Succeeded > 0 {
		return StatusStopped
	}
	if s.Failed > 0 {
		return StatusFailed
	}
	if s.Active > 0 {
		return StatusRunning
	}
	return StatusPending
}

func extractFailureMessage(job *batchv1.Job) string {
	for _, c := range job.Status.Conditions {
		if c.Type == batchv1.JobFailed {
			return c.Message
		}
	}
	return ""
}

func (m *KubernetesManager) ListWorkers(ctx context.Context, meetingID string) ([]WorkerStatus, error) {
	selector := "app=realtime-worker,managed-by=meetcore"
	if meetingID != "" {
		selector += ",meeting-id=" + labelSanitizer.ReplaceAllString(meetingID, "")
	}
	list, err := m.client.BatchV1().Jobs(m.namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, fmt.Errorf("list worker jobs: %w", err)
	}
	out := make([]WorkerStatus, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, jobToWorkerStatus(&list.Items[i]))
	}
	return out, nil
}
