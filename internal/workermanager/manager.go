// Package workermanager starts, stops, and inspects per-meeting
// RealtimeWorker processes through a pluggable backend: a local Docker
// daemon or a Kubernetes Job per meeting.
package workermanager

import "context"

// Status is one of the lifecycle states a worker can be in.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusFailed   Status = "failed"
	StatusNotFound Status = "not_found"
)

// WorkerStatus is the full status record returned by GetStatus/ListWorkers.
type WorkerStatus struct {
	WorkerID     string
	MeetingID    string
	Status       Status
	ExitCode     *int
	ErrorMessage string
}

// Manager starts, stops, and inspects realtime workers.
// Implementations must be idempotent under concurrent start requests
// for the same meeting: status check first, and on a collision return
// the existing worker id.
type Manager interface {
	StartWorker(ctx context.Context, meetingID string, credentialIndex int) (workerID string, err error)
	StopWorker(ctx context.Context, workerID string) (bool, error)
	GetStatus(ctx context.Context, workerID string) (WorkerStatus, error)
	ListWorkers(ctx context.Context, meetingID string) ([]WorkerStatus, error)
}

// StartError indicates worker creation failed; callers must release
// the meeting's credential on this error.
type StartError struct {
	Meeting string
	Cause   error
}

func (e *StartError) Error() string {
	return "start worker for meeting " + e.Meeting + ": " + e.Cause.Error()
}

func (e *StartError) Unwrap() error { return e.Cause }
