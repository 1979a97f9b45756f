package jobs

import (
	"context"
	"fmt"
	"time"

	"crm/internal/joblog"
)

// heartbeat lines use day-first timestamps, unlike the other jobs.
const heartbeatFormat = "02/01/2006-15:04:05"

type Heartbeat struct {
	log *joblog.Writer
	now func() time.Time
}

func NewHeartbeat(log *joblog.Writer) *Heartbeat {
	return &Heartbeat{log: log, now: time.Now}
}

func (h *Heartbeat) Run(ctx context.Context) error {
	line := fmt.Sprintf("%s CRM is alive", h.now().Format(heartbeatFormat))
	return h.log.Append(line)
}
