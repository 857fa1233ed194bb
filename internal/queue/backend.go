// Package queue is the single point through which work is submitted to the
// durable queues. It knows the queue names and the payload shape of every job.
package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Queue names.
const (
	SiteBuildQueue  = "site-build-queue"
	BuildTasksQueue = "build-tasks-queue"
	MailQueue       = "mail-queue"
)

// Job is a named unit of work. It is written to a queue and never read back here.
type Job struct {
	ID        string          `json:"id"`
	Queue     string          `json:"queue"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	Priority  int             `json:"priority"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Backend is the durable priority queue. Lower priorities are consumed first.
//
//go:generate mockgen -destination=../../mocks/mock_backend.go -package=mocks . Backend
type Backend interface {
	Submit(ctx context.Context, queueName string, job Job) error
	IsReady(ctx context.Context, queueName string) (bool, error)
}
