package services

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/internal/config"
	"github.com/hyperjump/medscribe/internal/models"
	"github.com/hyperjump/medscribe/pkg/utils"
)

// ChatInput is everything the chat model sees for one turn.
type ChatInput struct {
	Report  string
	Sources string
	History []models.ChatMessage
	Message string
}

// Chatter answers questions about a report and proposes revisions.
type Chatter struct {
	base
	window       int
	contextChars int
}

// NewChatter returns a chat adapter.
func NewChatter(cfg config.ChatConfig, opts ...Option) *Chatter {
	return &Chatter{base: newBase(cfg.ServiceConfig, opts), window: cfg.HistoryWindow, contextChars: cfg.SourceContextChars}
}

// Reply sends one doctor message. Only the most recent messages of History and a
// prefix of Sources are included in the prompt.
func (c *Chatter) Reply(ctx context.Context, in ChatInput) ChatReply {
	if strings.TrimSpace(in.Message) == "" {
		return ChatReply{Result: failed("", apperr.Validation("empty message"))}
	}
	if strings.TrimSpace(in.Report) == "" {
		return ChatReply{Result: failed("", apperr.Conflict("no report to discuss"))}
	}
	history := in.History
	if c.window > 0 && len(history) > c.window {
		history = history[len(history)-c.window:]
	}
	prompt := chatPrompt(in.Report, utils.Clip(in.Sources, c.contextChars), history, in.Message)

	text, err := c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
	if err != nil {
		c.logger.Warn("chat reply failed", zap.String("kind", string(apperr.KindOf(err))), zap.Error(err))
		return ChatReply{Result: failed("", err)}
	}
	reply := ChatReply{Result: succeeded("", text, 0), Replacement: LooksLikeReport(text)}
	c.logger.Debug("chat replied", zap.Int("reply_chars", len(text)), zap.Bool("replacement", reply.Replacement))
	return reply
}
