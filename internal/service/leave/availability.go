package leave

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/api"
)

// AvailabilityChecker asks the backend whether enough paid balance exists
// for a requested duration. The check has no server-side side effects and is
// safe to repeat.
type AvailabilityChecker struct {
	api    *api.Client
	logger *slog.Logger
}

func NewAvailabilityChecker(client *api.Client, logger *slog.Logger) *AvailabilityChecker {
	return &AvailabilityChecker{api: client, logger: logger}
}

func (c *AvailabilityChecker) Check(ctx context.Context, employeeID string, duration float64) (leave.Availability, error) {
	path := fmt.Sprintf("/leave/availability?employeeId=%s&duration=%s",
		url.QueryEscape(employeeID),
		strconv.FormatFloat(duration, 'f', -1, 64),
	)

	var availability leave.Availability
	if err := c.api.Get(ctx, path, &availability); err != nil {
		return leave.Availability{}, fmt.Errorf("failed to check leave availability: %w", err)
	}
	return availability, nil
}
