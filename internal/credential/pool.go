// Package credential implements the STT credential pool: a
// capacity-bounded least-loaded allocator mapping meeting_id to a
// credential index, shared across controller instances.
package credential

import (
	"context"

	"github.com/teamatoi/meetcore/internal/apperr"
)

// ErrExhausted is returned by Allocate when every credential is at
// max_meetings_per_key capacity. Classified QUOTA_EXHAUSTED so HTTP
// surfaces can map it without string matching.
var ErrExhausted error = apperr.New(apperr.QuotaExhausted, "credential pool exhausted")

// Status describes one credential's current load for Status().
type Status struct {
	Index     int  `json:"index"`
	Meetings  int  `json:"meetings"`
	Available bool `json:"available"`
}

// Pool assigns and releases STT credentials to meetings.
// Implementations must make Allocate/Release atomic and idempotent.
type Pool interface {
	// Allocate returns the credential index assigned to meetingID,
	// creating a new least-loaded assignment if none exists yet.
	// Returns ErrExhausted if no credential has spare capacity.
	Allocate(ctx context.Context, meetingID string) (int, error)

	// Release removes meetingID's assignment, if any, and returns
	// whether an assignment was actually removed.
	Release(ctx context.Context, meetingID string) (bool, error)

	// Status reports per-credential load, ordered by index.
	Status(ctx context.Context) ([]Status, error)
}
