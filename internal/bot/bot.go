// Package bot is the Telegram approval front-end: it notifies the approver
// about pipeline runs, renders suspended posts with decision buttons, and
// translates button presses and text replies into pipeline decisions.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kgarbacinski/AutoViralAI/internal/config"
	"github.com/kgarbacinski/AutoViralAI/internal/content"
	"github.com/kgarbacinski/AutoViralAI/internal/graph"
	"github.com/kgarbacinski/AutoViralAI/internal/orchestrator"
	"github.com/kgarbacinski/AutoViralAI/internal/pipeline"
)

// Controller is the orchestrator surface the bot drives.
type Controller interface {
	ResumeCreation(ctx context.Context, threadID string, decision pipeline.HumanDecision) (graph.Execution[pipeline.CreationState], error)
	ForceCreation(ctx context.Context) error
	ForceLearning(ctx context.Context) error
	PauseAll(ctx context.Context)
	ResumeAll(ctx context.Context)
	IsPaused() bool
	Jobs() []orchestrator.JobInfo
	PendingApprovals() []orchestrator.PendingInterrupt
	CycleCounts() (creation, learning int)
	ReschedulePostingTimes(times []string) error
}

// Knowledge is the read surface for /history and /metrics.
type Knowledge interface {
	GetRecentPosts(ctx context.Context, limit int) ([]content.PublishedPost, error)
	GetMetricsHistory(ctx context.Context, limit int) ([]content.PostMetrics, error)
}

// Bot wraps the Telegram client for one approver chat.
type Bot struct {
	api    *bot.Bot
	chatID int64
	ctrl   Controller
	kb     Knowledge
	logger *slog.Logger

	// pendingReplies maps a chat awaiting a follow-up message (edited
	// text or rejection feedback) to the thread and action it completes.
	mu             sync.Mutex
	pendingReplies map[int64]pendingReply
}

type pendingReply struct {
	threadID string
	action   string
}

var _ orchestrator.Notifier = (*Bot)(nil)

// Option configures the bot.
type Option func(*Bot)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) { b.logger = l }
}

// New builds the bot from the Telegram config.
func New(cfg config.TelegramConfig, ctrl Controller, kb Knowledge, opts ...Option) (*Bot, error) {
	b := &Bot{
		chatID:         cfg.ChatID,
		ctrl:           ctrl,
		kb:             kb,
		logger:         slog.Default(),
		pendingReplies: make(map[int64]pendingReply),
	}
	for _, opt := range opts {
		opt(b)
	}

	api, err := bot.New(cfg.BotToken, bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	b.api = api
	return b, nil
}

// Start begins long polling until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("telegram bot starting", "chat_id", b.chatID)
	b.api.Start(ctx)
}

// SendPipelineReport sends a plain-text run summary. Best effort.
func (b *Bot) SendPipelineReport(ctx context.Context, report string) error {
	return b.send(ctx, b.chatID, report)
}

// SendApprovalRequest renders the suspended post with decision buttons.
func (b *Bot) SendApprovalRequest(ctx context.Context, threadID string, payload pipeline.ApprovalPayload) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Cycle %d needs a decision (%d followers).\n\n", payload.CycleNumber, payload.FollowerCount)
	fmt.Fprintf(&sb, "Top post (score %.1f, pattern %s):\n%s\n",
		payload.SelectedPost.CompositeScore, payload.SelectedPost.PatternUsed, payload.SelectedPost.Content)
	for i, alt := range payload.Alternatives {
		fmt.Fprintf(&sb, "\nAlternative %d (score %.1f):\n%s\n", i+1, alt.CompositeScore, alt.Content)
	}

	rows := [][]models.InlineKeyboardButton{
		{
			{Text: "✅ Approve", CallbackData: callbackData{Action: actionApprove, ThreadID: threadID}.encode()},
			{Text: "❌ Reject", CallbackData: callbackData{Action: actionReject, ThreadID: threadID}.encode()},
			{Text: "✏️ Edit", CallbackData: callbackData{Action: actionEdit, ThreadID: threadID}.encode()},
		},
		{
			{Text: "💬 Reject with feedback", CallbackData: callbackData{Action: actionRejectFeedback, ThreadID: threadID}.encode()},
		},
	}
	var altRow []models.InlineKeyboardButton
	for i := range payload.Alternatives {
		altRow = append(altRow, models.InlineKeyboardButton{
			Text:         fmt.Sprintf("Use Alt %d", i+1),
			CallbackData: callbackData{Action: actionAlt, ThreadID: threadID, Extra: fmt.Sprintf("%d", i+1)}.encode(),
		})
	}
	if len(altRow) > 0 {
		rows = append(rows, altRow)
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "🕑 Publish in 2h", CallbackData: callbackData{Action: actionLater, ThreadID: threadID, Extra: laterPlus2h}.encode()},
		{Text: "🌙 Publish tonight", CallbackData: callbackData{Action: actionLater, ThreadID: threadID, Extra: laterTonight}.encode()},
	})

	_, err := b.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      b.chatID,
		Text:        sb.String(),
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	return err
}

func (b *Bot) handleUpdate(ctx context.Context, api *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, api, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleCallback(ctx context.Context, api *bot.Bot, callback *models.CallbackQuery) {
	chatID := callback.Message.Message.Chat.ID
	if chatID != b.chatID {
		b.logger.Warn("callback from unexpected chat", "chat_id", chatID)
		return
	}

	api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callback.ID})

	cb, err := parseCallback(callback.Data)
	if err != nil {
		b.send(ctx, chatID, fmt.Sprintf("Could not read that button press: %v", err))
		return
	}

	decision, awaitText := decisionFor(cb, time.Now())
	if awaitText {
		b.mu.Lock()
		b.pendingReplies[chatID] = pendingReply{threadID: cb.ThreadID, action: cb.Action}
		b.mu.Unlock()
		if cb.Action == actionRejectFeedback {
			b.send(ctx, chatID, "Send your feedback as your next message; it guides the regeneration.")
		} else {
			b.send(ctx, chatID, "Send the edited post text as your next message.")
		}
		return
	}

	b.resume(ctx, chatID, cb.ThreadID, decision)
}

func (b *Bot) handleMessage(ctx context.Context, message *models.Message) {
	chatID := message.Chat.ID
	if chatID != b.chatID {
		return
	}
	text := strings.TrimSpace(message.Text)

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, chatID, text)
		return
	}

	b.mu.Lock()
	reply, waiting := b.pendingReplies[chatID]
	delete(b.pendingReplies, chatID)
	b.mu.Unlock()

	if !waiting {
		return
	}
	if text == "" {
		b.send(ctx, chatID, "Empty message; nothing applied, the post is still pending.")
		return
	}
	b.resume(ctx, chatID, reply.threadID, awaitedDecision(reply.action, text))
}

// resume applies the decision and reports what happened.
func (b *Bot) resume(ctx context.Context, chatID int64, threadID string, decision pipeline.HumanDecision) {
	exec, err := b.ctrl.ResumeCreation(ctx, threadID, decision)
	if err != nil {
		b.send(ctx, chatID, fmt.Sprintf("Resume failed: %v", err))
		return
	}

	switch {
	case decision.PublishAt != nil:
		b.send(ctx, chatID, fmt.Sprintf("Scheduled for %s.", decision.PublishAt.Format("15:04 MST")))
	case exec.Status == graph.StatusAwaitingApproval:
		// The new approval request was already sent by the orchestrator.
		b.send(ctx, chatID, "Regenerated a new batch, see the next approval request.")
	case exec.State.PublishedPost != nil:
		b.send(ctx, chatID, fmt.Sprintf("Published as %s.", exec.State.PublishedPost.PostID))
	default:
		b.send(ctx, chatID, "Cycle closed without publishing.")
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "/start":
		b.send(ctx, chatID, "AutoViralAI approval bot.\n"+
			"/status - cycles, schedule, pending approvals\n"+
			"/force - run a creation cycle now\n"+
			"/learn - run a learning cycle now\n"+
			"/pause, /resume - toggle the schedule\n"+
			"/schedule [HH:MM ...] - show or replace posting times\n"+
			"/history - recent published posts\n"+
			"/metrics - recent post metrics")
	case "/status":
		b.send(ctx, chatID, b.statusText())
	case "/pause":
		b.ctrl.PauseAll(ctx)
		b.send(ctx, chatID, "Schedule paused.")
	case "/resume":
		b.ctrl.ResumeAll(ctx)
		b.send(ctx, chatID, "Schedule resumed.")
	case "/force":
		if err := b.ctrl.ForceCreation(ctx); err != nil {
			b.send(ctx, chatID, fmt.Sprintf("Refused: %v", err))
			return
		}
		b.send(ctx, chatID, "Creation cycle started.")
	case "/learn":
		if err := b.ctrl.ForceLearning(ctx); err != nil {
			b.send(ctx, chatID, fmt.Sprintf("Refused: %v", err))
			return
		}
		b.send(ctx, chatID, "Learning cycle started.")
	case "/schedule":
		b.handleSchedule(ctx, chatID, args)
	case "/history":
		b.send(ctx, chatID, b.historyText(ctx))
	case "/metrics":
		b.send(ctx, chatID, b.metricsText(ctx))
	default:
		b.send(ctx, chatID, fmt.Sprintf("Unknown command %s.", cmd))
	}
}

func (b *Bot) handleSchedule(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		jobs := b.ctrl.Jobs()
		if len(jobs) == 0 {
			b.send(ctx, chatID, "No jobs scheduled.")
			return
		}
		var sb strings.Builder
		sb.WriteString("Schedule:\n")
		for _, j := range jobs {
			fmt.Fprintf(&sb, "- %s (%s) next %s\n", j.ID, j.Spec, j.NextRun.Format("Mon 15:04"))
		}
		b.send(ctx, chatID, sb.String())
		return
	}

	if err := b.ctrl.ReschedulePostingTimes(args); err != nil {
		b.send(ctx, chatID, fmt.Sprintf("Schedule unchanged: %v", err))
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("Posting times set to %s.", strings.Join(args, ", ")))
}

func (b *Bot) statusText() string {
	creation, learning := b.ctrl.CycleCounts()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Cycles: %d creation, %d learning\n", creation, learning)
	if b.ctrl.IsPaused() {
		sb.WriteString("Schedule: paused\n")
	} else {
		sb.WriteString("Schedule: running\n")
	}
	pending := b.ctrl.PendingApprovals()
	if len(pending) == 0 {
		sb.WriteString("No approvals pending.")
	} else {
		for _, p := range pending {
			fmt.Fprintf(&sb, "Pending: %s since %s\n", p.ThreadID, p.CreatedAt.Format("15:04"))
		}
	}
	return sb.String()
}

func (b *Bot) historyText(ctx context.Context) string {
	posts, err := b.kb.GetRecentPosts(ctx, 5)
	if err != nil {
		return fmt.Sprintf("History unavailable: %v", err)
	}
	if len(posts) == 0 {
		return "No posts published yet."
	}
	var sb strings.Builder
	sb.WriteString("Recent posts:\n")
	for _, p := range posts {
		snippet := p.Content
		if runes := []rune(snippet); len(runes) > 80 {
			snippet = string(runes[:80]) + "…"
		}
		fmt.Fprintf(&sb, "- [%s] %s\n", p.PublishedAt.Format("Jan 2"), snippet)
	}
	return sb.String()
}

func (b *Bot) metricsText(ctx context.Context) string {
	metrics, err := b.kb.GetMetricsHistory(ctx, 5)
	if err != nil {
		return fmt.Sprintf("Metrics unavailable: %v", err)
	}
	if len(metrics) == 0 {
		return "No metrics collected yet."
	}
	var sb strings.Builder
	sb.WriteString("Recent metrics:\n")
	for _, m := range metrics {
		fmt.Fprintf(&sb, "- %s: %d views, %.1f%% engagement, %+d followers\n",
			m.PostID, m.Views, m.EngagementRate*100, m.FollowerDelta)
	}
	return sb.String()
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) error {
	_, err := b.api.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		b.logger.Warn("failed to send telegram message", "error", err)
	}
	return err
}
