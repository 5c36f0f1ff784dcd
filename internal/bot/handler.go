package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"moodboard/internal/config"
	"moodboard/internal/domain"
	"moodboard/internal/service"
)

// Handler is the Telegram surface over the service layer. It owns no
// domain rules; it parses commands, calls the service and renders results.
type Handler struct {
	bot *tgbot.Bot
	cfg config.Config
	svc *service.Service
	log logrus.FieldLogger

	// current project per chat, in memory only
	mu      sync.Mutex
	current map[int64]string
}

// NewHandler creates a new bot handler instance.
func NewHandler(cfg config.Config, svc *service.Service, logger logrus.FieldLogger) (*Handler, error) {
	log := logger.WithField("component", "bot_handler")

	b, err := tgbot.New(cfg.TelegramBotToken)
	if err != nil {
		log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	h := &Handler{
		bot:     b,
		cfg:     cfg,
		svc:     svc,
		log:     log,
		current: make(map[int64]string),
	}
	h.registerHandlers()
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "", tgbot.MatchTypeContains, h.defaultHandler)

	log.Info("Telegram bot handler initialized")
	return h, nil
}

func (h *Handler) registerHandlers() {
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, h.startHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/projects", tgbot.MatchTypeExact, h.projectsHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/newproject", tgbot.MatchTypePrefix, h.newProjectHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/use", tgbot.MatchTypePrefix, h.useHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/delproject", tgbot.MatchTypePrefix, h.deleteProjectHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/inspirations", tgbot.MatchTypeExact, h.inspirationsHandler)
}

// Start begins polling for updates. Blocks until the context is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped.")
}

func (h *Handler) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	h.reply(ctx, update,
		"Welcome to Moodboard! Collect design inspiration into projects.\n\n"+
			"/projects — list your projects\n"+
			"/newproject <name> | <description> — create a project\n"+
			"/use <name or id> — pick the current project\n"+
			"/inspirations — list the current project's inspirations\n"+
			"/delproject <name or id> — delete a project and its inspirations\n\n"+
			"Send me any URL and I'll scrape it, screenshot it and file it "+
			"under the current project.")
}

func (h *Handler) projectsHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	summaries, err := h.svc.ListProjectSummaries(ctx)
	if err != nil {
		h.replyError(ctx, update, err)
		return
	}
	if len(summaries) == 0 {
		h.reply(ctx, update, "No projects yet. Create one with /newproject <name>.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Your projects (newest first):\n")
	for _, s := range summaries {
		fmt.Fprintf(&sb, "• %s — %d inspiration(s)\n  id: %s\n", s.Name, s.InspirationCount, s.ID)
	}
	h.reply(ctx, update, sb.String())
}

func (h *Handler) newProjectHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	arg := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/newproject"))
	name, description := arg, ""
	if i := strings.Index(arg, "|"); i >= 0 {
		name = strings.TrimSpace(arg[:i])
		description = strings.TrimSpace(arg[i+1:])
	}

	p, err := h.svc.CreateProject(ctx, name, description)
	if err != nil {
		h.replyError(ctx, update, err)
		return
	}
	h.setCurrent(update.Message.Chat.ID, p.ID)
	h.reply(ctx, update, fmt.Sprintf("Project %q created and selected.", p.Name))
}

func (h *Handler) useHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	query := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/use"))
	p, err := h.resolveProject(ctx, query)
	if err != nil {
		h.replyError(ctx, update, err)
		return
	}
	h.setCurrent(update.Message.Chat.ID, p.ID)
	h.reply(ctx, update, fmt.Sprintf("Now saving into %q.", p.Name))
}

func (h *Handler) deleteProjectHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	query := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/delproject"))
	p, err := h.resolveProject(ctx, query)
	if err != nil {
		h.replyError(ctx, update, err)
		return
	}
	if err := h.svc.DeleteProject(ctx, p.ID); err != nil {
		h.replyError(ctx, update, err)
		return
	}
	h.mu.Lock()
	if h.current[update.Message.Chat.ID] == p.ID {
		delete(h.current, update.Message.Chat.ID)
	}
	h.mu.Unlock()
	h.reply(ctx, update, fmt.Sprintf("Project %q and all its inspirations deleted.", p.Name))
}

func (h *Handler) inspirationsHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	projectID, ok := h.getCurrent(update.Message.Chat.ID)
	if !ok {
		h.reply(ctx, update, "No project selected. Pick one with /use <name>.")
		return
	}
	inspirations, err := h.svc.ListInspirationsByProject(ctx, projectID)
	if err != nil {
		h.replyError(ctx, update, err)
		return
	}
	if len(inspirations) == 0 {
		h.reply(ctx, update, "This project has no inspirations yet. Send me a URL!")
		return
	}
	var sb strings.Builder
	sb.WriteString("Inspirations (oldest first):\n")
	for _, insp := range inspirations {
		title := insp.Metadata.URL
		if insp.Metadata.Title != nil && *insp.Metadata.Title != "" {
			title = *insp.Metadata.Title
		}
		fmt.Fprintf(&sb, "• %s\n  %s\n", title, insp.Metadata.URL)
		if insp.Notes != "" {
			fmt.Fprintf(&sb, "  notes: %s\n", insp.Notes)
		}
	}
	h.reply(ctx, update, sb.String())
}

// defaultHandler treats any message starting with a URL as "save this".
// Text after the URL becomes the inspiration's notes.
func (h *Handler) defaultHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	text := strings.TrimSpace(update.Message.Text)
	if !strings.HasPrefix(text, "http://") && !strings.HasPrefix(text, "https://") {
		return
	}

	url, notes := text, ""
	if i := strings.IndexAny(text, " \n"); i >= 0 {
		url = text[:i]
		notes = strings.TrimSpace(text[i:])
	}

	chatID := update.Message.Chat.ID
	projectID, ok := h.getCurrent(chatID)
	if !ok {
		h.reply(ctx, update, "No project selected. Create one with /newproject or pick one with /use first.")
		return
	}

	h.log.WithFields(logrus.Fields{
		"chat_id": chatID,
		"url":     url,
	}).Info("Saving inspiration from URL")
	h.reply(ctx, update, "Saving that one, give me a moment...")

	insp, err := h.svc.SaveInspirationFromURL(ctx, projectID, url, notes)
	if err != nil {
		h.replyError(ctx, update, err)
		return
	}

	title := insp.Metadata.URL
	if insp.Metadata.Title != nil && *insp.Metadata.Title != "" {
		title = *insp.Metadata.Title
	}
	msg := fmt.Sprintf("Saved %q.", title)
	if insp.ScreenshotURI == "" {
		msg += " (no screenshot this time)"
	}
	h.reply(ctx, update, msg)
}

// resolveProject finds a project by exact id or case-insensitive name.
func (h *Handler) resolveProject(ctx context.Context, query string) (domain.Project, error) {
	if query == "" {
		return domain.Project{}, &domain.ValidationError{Field: "project", Reason: "name or id required"}
	}
	projects, err := h.svc.ListProjects(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	for _, p := range projects {
		if p.ID == query || strings.EqualFold(p.Name, query) {
			return p, nil
		}
	}
	return domain.Project{}, fmt.Errorf("%w: project %q", domain.ErrNotFound, query)
}

func (h *Handler) setCurrent(chatID int64, projectID string) {
	h.mu.Lock()
	h.current[chatID] = projectID
	h.mu.Unlock()
}

func (h *Handler) getCurrent(chatID int64) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.current[chatID]
	return id, ok
}

func (h *Handler) reply(ctx context.Context, update *models.Update, text string) {
	if update.Message == nil {
		return
	}
	_, err := h.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		h.log.WithError(err).Error("Failed to send message")
	}
}

// replyError renders the error taxonomy as user-facing text.
func (h *Handler) replyError(ctx context.Context, update *models.Update, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		h.reply(ctx, update, "That doesn't look right: "+ve.Reason+".")
	case errors.Is(err, domain.ErrNotFound):
		h.reply(ctx, update, "I couldn't find that. /projects shows what exists.")
	default:
		h.log.WithError(err).Error("Operation failed")
		h.reply(ctx, update, "Something went wrong while talking to storage. Please try again.")
	}
}
