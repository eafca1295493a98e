package workermanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func newTestKubernetesManager() (*KubernetesManager, *fake.Clientset) {
	cs := fake.NewSimpleClientset()
	m := NewKubernetesManager(cs, KubernetesManagerConfig{
		Namespace:          "mit",
		Image:              "ghcr.io/teamatoi/meetcore-worker:latest",
		TTLAfterCompletion: 300,
		BackendAPIURL:      "http://backend:8080",
	})
	return m, cs
}

func TestKubernetesManager_StartWorkerCreatesJob(t *testing.T) {
	ctx := context.Background()
	m, cs := newTestKubernetesManager()

	id, err := m.StartWorker(ctx, "meeting-1", 2)
	require.NoError(t, err)
	require.Equal(t, "realtime-worker-meeting-1", id)

	job, err := cs.BatchV1().Jobs("mit").Get(ctx, id, metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, "2", job.Labels["credential-index"])
}

func TestKubernetesManager_StartWorkerIsIdempotentWhileRunning(t *testing.T) {
	ctx := context.Background()
	m, cs := newTestKubernetesManager()

	id, err := m.StartWorker(ctx, "meeting-1", 0)
	require.NoError(t, err)

	job, err := cs.BatchV1().Jobs("mit").Get(ctx, id, metav1.GetOptions{})
	require.NoError(t, err)
	job.Status.Active = 1
	_, err = cs.BatchV1().Jobs("mit").UpdateStatus(ctx, job, metav1.UpdateOptions{})
	require.NoError(t, err)

	second, err := m.StartWorker(ctx, "meeting-1", 0)
	require.NoError(t, err)
	require.Equal(t, id, second)
}

func TestKubernetesManager_GetStatusNotFound(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestKubernetesManager()

	st, err := m.GetStatus(ctx, "realtime-worker-unknown")
	require.NoError(t, err)
	require.Equal(t, StatusNotFound, st.Status)
}

func TestKubernetesManager_StopWorkerDeletesJob(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestKubernetesManager()

	id, err := m.StartWorker(ctx, "meeting-2", 1)
	require.NoError(t, err)

	stopped, err := m.StopWorker(ctx, id)
	require.NoError(t, err)
	require.True(t, stopped)

	stoppedAgain, err := m.StopWorker(ctx, id)
	require.NoError(t, err)
	require.False(t, stoppedAgain)
}

func TestJobStatusEnum(t *testing.T) {
	cases := []struct {
		name   string
		status batchv1.JobStatus
		want   Status
	}{
		{"pending", batchv1.JobStatus{}, StatusPending},
		{"active", batchv1.JobStatus{Active: 1}, StatusRunning},
		{"succeeded", batchv1.JobStatus{Succeeded: 1}, StatusStopped},
		{"failed", batchv1.JobStatus{Failed: 1}, StatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := &batchv1.Job{Status: tc.status}
			require.Equal(t, tc.want, jobStatusEnum(job))
		})
	}
}
