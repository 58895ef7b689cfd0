package punch

import "context"

// Gateway is the real-time check-in/out endpoint.
type Gateway interface {
	// Status reports today's state and the expected next action.
	Status(ctx context.Context, employeeID string) (StatusResponse, error)

	// Submit validates and records one check-in or check-out.
	Submit(ctx context.Context, req CheckInRequest) (CheckInResponse, error)
}
