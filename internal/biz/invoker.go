package biz

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strconv"
	"time"

	"VaultLane/internal/conf"
	"VaultLane/internal/model"
	pkgerrors "VaultLane/pkg/errors"
	"VaultLane/pkg/groq"
	pkglog "VaultLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	// MinBackoff and MaxBackoff bound the wait before each retry: [MinBackoff, MaxBackoff).
	MinBackoff = 300 * time.Millisecond
	MaxBackoff = 600 * time.Millisecond
)

// ChatCompleter issues one chat completion request with the given credential.
// A non-2xx response is returned without error; err is reserved for requests
// that never produced a response.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, apiKey string, req *groq.ChatCompletionRequest) (*groq.RawResponse, error)
}

// Completion is the result of a successful logical call.
type Completion struct {
	// Content 模型生成的原始文本（JSON 模式下空内容会被替换为 "{}"）
	Content string
	// Data JSON 模式下解析后的内容
	Data            interface{}
	Attempts        int
	CredentialIndex int
}

// JitterBackoff returns a duration drawn uniformly from [MinBackoff, MaxBackoff).
func JitterBackoff() time.Duration {
	return MinBackoff + rand.N(MaxBackoff-MinBackoff)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Invoker performs logical calls against the upstream service, rotating
// credentials on rate limiting. A logical call makes at most pool size
// attempts.
type Invoker struct {
	pool        *CredentialPool
	completer   ChatCompleter
	model       string
	temperature float64
	metrics     *VaultMetrics
	auditor     InvocationAuditor
	logger      *pkglog.LogHelper

	backoff func() time.Duration
	wait    func(ctx context.Context, d time.Duration) error
}

// NewInvoker creates an Invoker. metrics and auditor may be nil.
func NewInvoker(pool *CredentialPool, completer ChatCompleter, vc *conf.Vault, metrics *VaultMetrics, auditor InvocationAuditor, logger log.Logger) *Invoker {
	modelName := groq.DefaultModel
	temperature := groq.DefaultTemperature
	if vc != nil {
		if vc.Model != "" {
			modelName = vc.Model
		}
		temperature = vc.Temperature
	}

	return &Invoker{
		pool:        pool,
		completer:   completer,
		model:       modelName,
		temperature: temperature,
		metrics:     metrics,
		auditor:     auditor,
		logger:      pkglog.NewLogHelper(logger),
		backoff:     JitterBackoff,
		wait:        sleepContext,
	}
}

// Pool returns the credential pool used by the invoker.
func (uc *Invoker) Pool() *CredentialPool {
	return uc.pool
}

// Invoke performs one logical call.
//
// The current credential is marked ACTIVE for each attempt. A 429 response
// marks it COOLDOWN; the cursor then rotates and the next attempt starts after
// a jittered backoff, until every credential has been tried once and
// ErrPoolExhausted is returned. Any other failure marks the credential IDLE
// and returns an *errors.UpstreamError without retrying. On success the
// credential is marked IDLE; in JSON mode the content is decoded into
// Completion.Data and a decode failure returns ErrResponseParse.
//
// Cancelling ctx stops the call before the next attempt or during backoff and
// returns ctx.Err().
func (uc *Invoker) Invoke(ctx context.Context, systemPrompt, userPrompt string, jsonMode bool) (*Completion, error) {
	start := time.Now()
	req := groq.NewChatCompletionRequest(uc.model, uc.temperature, systemPrompt, userPrompt, jsonMode)
	size := uc.pool.Size()

	inv := &model.Invocation{
		RequestID: pkglog.GetRequestID(ctx),
		Model:     uc.model,
		JSONMode:  jsonMode,
	}

	for attempt := 1; attempt <= size; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, uc.finish(ctx, inv, start, OutcomeCanceled, err)
		}

		index, key := uc.pool.Current()
		inv.Attempts = attempt
		inv.CredentialIndex = index
		inv.KeyHint = pkglog.MaskCredential(key)

		_ = uc.pool.MarkActive(index)
		uc.metrics.RecordAttempt(ctx, index)

		resp, err := uc.completer.CreateChatCompletion(ctx, key, req)
		if err != nil {
			_ = uc.pool.MarkIdle(index)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, uc.finish(ctx, inv, start, OutcomeCanceled, ctxErr)
			}
			uc.logger.Upstream(ctx, index, 0, "error", err.Error(), "key_hint", inv.KeyHint)
			return nil, uc.finish(ctx, inv, start, OutcomeUpstream, pkgerrors.NewTransportError(err))
		}
		inv.UpstreamStatus = resp.StatusCode

		if pkgerrors.IsRateLimited(resp.StatusCode) {
			_ = uc.pool.MarkCooldown(index)
			uc.metrics.RecordThrottle(ctx, index)
			uc.logger.Cooldown(ctx, index, "key_hint", inv.KeyHint, "attempt", attempt)

			if attempt >= size {
				uc.logger.Exhausted(ctx, attempt, "pool_size", size)
				exhausted := ErrPoolExhausted.WithMetadata(map[string]string{
					"attempts": strconv.Itoa(attempt),
				})
				return nil, uc.finish(ctx, inv, start, OutcomeExhausted, exhausted)
			}

			next := uc.pool.Rotate()
			uc.metrics.RecordRotation(ctx)
			uc.logger.Rotation(ctx, index, next, attempt)

			if err := uc.wait(ctx, uc.backoff()); err != nil {
				return nil, uc.finish(ctx, inv, start, OutcomeCanceled, err)
			}
			continue
		}

		if !resp.OK() {
			_ = uc.pool.MarkIdle(index)
			uc.logger.Upstream(ctx, index, resp.StatusCode,
				"error", groq.ErrorMessage(resp.Body), "key_hint", inv.KeyHint)
			return nil, uc.finish(ctx, inv, start, OutcomeUpstream, pkgerrors.NewStatusError(resp.StatusCode, resp.Body))
		}

		parsed, err := groq.ParseChatCompletion(resp.Body)
		_ = uc.pool.MarkIdle(index)
		if err != nil {
			uc.logger.Upstream(ctx, index, resp.StatusCode, "error", err.Error(), "key_hint", inv.KeyHint)
			return nil, uc.finish(ctx, inv, start, OutcomeUpstream, pkgerrors.NewMalformedError(resp.StatusCode, resp.Body, err))
		}

		completion := &Completion{
			Content:         parsed.Content(),
			Attempts:        attempt,
			CredentialIndex: index,
		}
		if jsonMode {
			if completion.Content == "" {
				completion.Content = "{}"
			}
			if err := json.Unmarshal([]byte(completion.Content), &completion.Data); err != nil {
				return nil, uc.finish(ctx, inv, start, OutcomeParse, ErrResponseParse.WithCause(err))
			}
		}

		_ = uc.finish(ctx, inv, start, OutcomeSuccess, nil)
		return completion, nil
	}

	// size >= 1 保证循环内必定返回
	return nil, ErrPoolExhausted
}

// Generate returns the generated text for one logical call.
func (uc *Invoker) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	completion, err := uc.Invoke(ctx, systemPrompt, userPrompt, false)
	if err != nil {
		return "", err
	}
	return completion.Content, nil
}

// GenerateJSON requests a JSON object and decodes it into out.
func (uc *Invoker) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, out interface{}) error {
	completion, err := uc.Invoke(ctx, systemPrompt, userPrompt, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(completion.Content), out); err != nil {
		return ErrResponseParse.WithCause(err)
	}
	return nil
}

// finish records metrics and the audit entry for a logical call and returns err.
func (uc *Invoker) finish(ctx context.Context, inv *model.Invocation, start time.Time, outcome string, err error) error {
	inv.Duration = time.Since(start)
	inv.Outcome = invocationOutcome(outcome)
	if err != nil {
		inv.Error = err.Error()
	}

	uc.metrics.RecordCall(ctx, outcome, inv.Attempts, inv.Duration)

	if outcome == OutcomeSuccess {
		uc.logger.Success("Completion succeeded",
			"request_id", inv.RequestID,
			"credential_index", inv.CredentialIndex,
			"attempts", inv.Attempts,
			"duration_ms", inv.Duration.Milliseconds())
	} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		uc.logger.Warnw("msg", "Completion canceled",
			"request_id", inv.RequestID,
			"attempts", inv.Attempts,
			"error", err.Error())
	}

	if uc.auditor != nil {
		uc.auditor.LogInvocation(ctx, inv)
	}
	return err
}

func invocationOutcome(outcome string) string {
	switch outcome {
	case OutcomeSuccess:
		return model.InvocationSuccess
	case OutcomeExhausted:
		return model.InvocationExhausted
	case OutcomeParse:
		return model.InvocationParse
	case OutcomeCanceled:
		return model.InvocationCanceled
	default:
		return model.InvocationUpstream
	}
}
