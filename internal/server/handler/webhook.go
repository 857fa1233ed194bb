// Package handler provides HTTP handlers for the build orchestration service.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/cloud-gov/pages-core-sub005/internal/builds"
	"github.com/cloud-gov/pages-core-sub005/internal/core"
)

// Ingester turns code-host events into builds and user records.
type Ingester interface {
	IngestPush(ctx context.Context, ev *core.PushEvent) (builds.Result, error)
	IngestOrganizationMembership(ctx context.Context, ev *core.MembershipEvent) error
}

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	secret   []byte
	ingester Ingester
	logger   *slog.Logger
}

// NewWebhookHandler creates a webhook handler verifying signatures with secret.
func NewWebhookHandler(secret string, ingester Ingester, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:   []byte(secret),
		ingester: ingester,
		logger:   logger,
	}
}

// Handle processes GitHub webhook requests.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, h.secret)
	if err != nil {
		h.logger.Error("invalid webhook payload signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		h.logger.Error("could not parse webhook", "error", err)
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	case *github.PushEvent:
		h.handlePush(r.Context(), w, e)
	case *github.OrganizationEvent:
		h.handleOrganization(r.Context(), w, e)
	case *github.PingEvent:
		_, _ = fmt.Fprint(w, "pong")
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", github.WebHookType(r))
		_, _ = fmt.Fprint(w, "Event type not handled")
	}
}

func (h *WebhookHandler) handlePush(ctx context.Context, w http.ResponseWriter, event *github.PushEvent) {
	push, err := core.EventFromPush(event)
	if err != nil {
		h.writeError(w, err, event.GetRepo().GetFullName())
		return
	}

	res, err := h.ingester.IngestPush(ctx, push)
	if err != nil {
		h.writeError(w, err, event.GetRepo().GetFullName())
		return
	}

	if res.Build != nil {
		h.logger.Info("push ingested", "action", res.Action, "repo", push.RepoOwner+"/"+push.RepoName, "build_id", res.Build.ID)
	}
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprintf(w, "Push %s", res.Action)
}

func (h *WebhookHandler) handleOrganization(ctx context.Context, w http.ResponseWriter, event *github.OrganizationEvent) {
	switch event.GetAction() {
	case core.MemberAdded, core.MemberRemoved:
	default:
		_, _ = fmt.Fprint(w, "Organization action not handled")
		return
	}

	membership, err := core.EventFromOrganization(event)
	if err != nil {
		h.writeError(w, err, event.GetOrganization().GetLogin())
		return
	}
	if err := h.ingester.IngestOrganizationMembership(ctx, membership); err != nil {
		h.writeError(w, err, membership.Organization)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprint(w, "Membership event accepted")
}

// writeError rejects malformed payloads with 400 so the provider does not
// redeliver them. Anything else is a 500 and is redelivered.
func (h *WebhookHandler) writeError(w http.ResponseWriter, err error, subject string) {
	if errors.Is(err, core.ErrValidation) {
		h.logger.Warn("rejecting webhook payload", "subject", subject, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.logger.Error("failed to ingest webhook", "subject", subject, "error", err)
	http.Error(w, "Failed to process event", http.StatusInternalServerError)
}
