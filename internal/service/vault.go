// Package service exposes the credential vault over HTTP.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"VaultLane/internal/biz"
	pkgerrors "VaultLane/pkg/errors"
	pkglog "VaultLane/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewVaultService)

const (
	eventBufferSize   = 16
	heartbeatInterval = 15 * time.Second
)

// VaultService serves completions and pool status.
type VaultService struct {
	invoker *biz.Invoker
	monitor *biz.VaultMonitor
	logger  *pkglog.LogHelper
	now     func() time.Time
}

// NewVaultService creates a new VaultService instance.
func NewVaultService(invoker *biz.Invoker, monitor *biz.VaultMonitor, logger log.Logger) *VaultService {
	return &VaultService{
		invoker: invoker,
		monitor: monitor,
		logger:  pkglog.NewLogHelper(logger),
		now:     time.Now,
	}
}

// Complete performs one logical call through the credential pool.
func (s *VaultService) Complete(ctx context.Context, req *CompleteRequest) (*CompleteReply, error) {
	s.logger.Debugw("msg", "Complete called",
		"request_id", pkglog.GetRequestID(ctx),
		"json_mode", req.JSONMode)

	completion, err := s.invoker.Invoke(ctx, req.SystemPrompt, req.UserPrompt, req.JSONMode)
	if err != nil {
		return nil, toServiceError(err)
	}

	return &CompleteReply{
		Content:         completion.Content,
		Data:            completion.Data,
		Attempts:        completion.Attempts,
		CredentialIndex: completion.CredentialIndex,
	}, nil
}

// GetVault returns the current pool report.
func (s *VaultService) GetVault(ctx context.Context, _ *GetVaultRequest) (*GetVaultReply, error) {
	report := s.monitor.Report(ctx)

	keys := make([]KeyInfo, 0, len(report.Keys))
	for _, k := range report.Keys {
		keys = append(keys, KeyInfo{
			Index:     k.Index,
			KeyHint:   k.KeyHint,
			Status:    string(k.Status),
			Throttles: k.Throttles,
			Current:   k.Current,
		})
	}

	return &GetVaultReply{
		Size:        report.Size,
		Cursor:      report.Cursor,
		Idle:        report.Idle,
		Active:      report.Active,
		Cooldown:    report.Cooldown,
		Keys:        keys,
		Degraded:    report.Degraded,
		GeneratedAt: report.GeneratedAt,
	}, nil
}

// StreamEvents streams status snapshots as Server-Sent Events. The first
// event carries the current state; one event follows every status change.
// Slow clients miss intermediate snapshots rather than blocking the pool.
func (s *VaultService) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := make(chan biz.VaultState, eventBufferSize)
	unsubscribe := s.invoker.Pool().Subscribe(func(state biz.VaultState) {
		select {
		case events <- state:
		default:
		}
	})
	defer unsubscribe()

	s.logger.Vault("Status stream opened", "remote_addr", r.RemoteAddr)
	defer s.logger.Vault("Status stream closed", "remote_addr", r.RemoteAddr)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case state := <-events:
			if err := s.writeEvent(w, state); err != nil {
				s.logger.Warnf("Failed to write status event: %v", err)
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *VaultService) writeEvent(w http.ResponseWriter, state biz.VaultState) error {
	statuses := make(map[int]string, len(state))
	for index, status := range state {
		statuses[index] = string(status)
	}

	payload, err := json.Marshal(&StatusEvent{Statuses: statuses, At: s.now()})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: status\ndata: %s\n\n", payload)
	return err
}

// toServiceError maps invoker failures onto Kratos errors so the HTTP layer
// reports a meaningful status code.
func toServiceError(err error) error {
	if upErr, ok := pkgerrors.AsUpstreamError(err); ok {
		return errors.New(http.StatusBadGateway, "VAULT_UPSTREAM_"+strings.ToUpper(upErr.Type.String()), upErr.Error()).
			WithCause(err).
			WithMetadata(map[string]string{
				"upstream_status": strconv.Itoa(upErr.StatusCode),
			})
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.GatewayTimeout("VAULT_TIMEOUT", "completion timed out").WithCause(err)
	}
	if errors.Is(err, context.Canceled) {
		return errors.ClientClosed("VAULT_CANCELED", "completion canceled").WithCause(err)
	}
	// biz 层的 Kratos 错误原样返回，其余错误由 errors.FromError 归为 500
	return err
}
