package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/tripflow-core/server/internal/planner/model"
	"github.com/tripflow-core/server/internal/planner/parsers"
	logx "github.com/tripflow-core/server/pkg/logger"
)

const defaultRoleAttempts = 2

func normalizeAttempts(n int) int {
	if n <= 0 {
		return defaultRoleAttempts
	}
	return n
}

// completeJSON runs one role call and decodes the reply into v. A
// malformed reply or backend failure is retried within the role's own
// attempt budget, independent of task retry budgets.
func completeJSON(ctx context.Context, c model.Completer, attempts int, prompt string, v any) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := c.Complete(ctx, []*schema.Message{schema.UserMessage(prompt)})
		if err != nil {
			lastErr = err
			logx.Warn().Err(err).Int("attempt", attempt).Msg("Role call failed")
			continue
		}
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			lastErr = fmt.Errorf("empty role reply")
			continue
		}
		if err := parsers.DecodeJSON(msg.Content, v); err != nil {
			lastErr = err
			logx.Warn().Err(err).Int("attempt", attempt).Msg("Role reply not decodable")
			continue
		}
		return nil
	}
	return fmt.Errorf("role output unusable after %d attempts: %w", attempts, lastErr)
}

// completeText runs one role call expecting free text.
func completeText(ctx context.Context, c model.Completer, attempts int, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		msg, err := c.Complete(ctx, []*schema.Message{schema.UserMessage(prompt)})
		if err != nil {
			lastErr = err
			logx.Warn().Err(err).Int("attempt", attempt).Msg("Role call failed")
			continue
		}
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			lastErr = fmt.Errorf("empty role reply")
			continue
		}
		return strings.TrimSpace(msg.Content), nil
	}
	return "", fmt.Errorf("role output unusable after %d attempts: %w", attempts, lastErr)
}
