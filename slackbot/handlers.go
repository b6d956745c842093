package slackbot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"paperwhale/services"
)

func (b *Bot) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	text := strings.TrimSpace(cmd.Text)

	switch cmd.Command {
	case "/paper-add":
		b.openModal(ctx, cmd.TriggerID, addPaperModal())
	case "/paper-search":
		if text == "" {
			b.openModal(ctx, cmd.TriggerID, searchPaperModal())
			return
		}
		b.runSearch(ctx, cmd.ChannelID, cmd.UserID, text)
	case "/paper-summarize":
		b.openModal(ctx, cmd.TriggerID, summarizePaperModal())
	case "/summarize":
		if text == "" {
			b.ephemeral(ctx, cmd.ChannelID, cmd.UserID, "Usage: /summarize <text>")
			return
		}
		go b.runTextSummary(ctx, cmd.UserID, text)
		b.ephemeral(ctx, cmd.ChannelID, cmd.UserID, "Summarizing, I'll DM you the result.")
	case "/apikey-register":
		b.openModal(ctx, cmd.TriggerID, registerKeyModal())
	case "/keyword-subscribe":
		b.handleSubscribe(ctx, cmd, text, true, true)
	case "/keyword-unsubscribe":
		b.handleSubscribe(ctx, cmd, text, true, false)
	case "/author-subscribe":
		b.handleSubscribe(ctx, cmd, text, false, true)
	case "/author-unsubscribe":
		b.handleSubscribe(ctx, cmd, text, false, false)
	default:
		b.Logger.Warn("Unbekanntes Kommando", zap.String("command", cmd.Command))
	}
}

func (b *Bot) handleSubscribe(ctx context.Context, cmd slack.SlashCommand, term string, keyword, subscribe bool) {
	kind := "author"
	if keyword {
		kind = "keyword"
	}
	if term == "" {
		b.ephemeral(ctx, cmd.ChannelID, cmd.UserID, fmt.Sprintf("Usage: %s <%s>", cmd.Command, kind))
		return
	}

	var msg string
	if subscribe {
		var err error
		var created bool
		if keyword {
			sub, subErr := b.Subscriptions.SubscribeKeyword(cmd.UserID, term)
			created, err = sub != nil, subErr
		} else {
			sub, subErr := b.Subscriptions.SubscribeAuthor(cmd.UserID, term)
			created, err = sub != nil, subErr
		}
		switch {
		case err != nil:
			b.Logger.Error("Abo fehlgeschlagen", zap.String("term", term), zap.Error(err))
			msg = "Something went wrong, please try again."
		case !created:
			msg = fmt.Sprintf("You are already subscribed to %s '%s'.", kind, term)
		default:
			msg = fmt.Sprintf("Subscribed to %s '%s'.", kind, term)
		}
	} else {
		var removed bool
		var err error
		if keyword {
			removed, err = b.Subscriptions.UnsubscribeKeyword(cmd.UserID, term)
		} else {
			removed, err = b.Subscriptions.UnsubscribeAuthor(cmd.UserID, term)
		}
		switch {
		case err != nil:
			b.Logger.Error("Abo-Kündigung fehlgeschlagen", zap.String("term", term), zap.Error(err))
			msg = "Something went wrong, please try again."
		case !removed:
			msg = fmt.Sprintf("You were not subscribed to %s '%s'.", kind, term)
		default:
			msg = fmt.Sprintf("Unsubscribed from %s '%s'.", kind, term)
		}
	}
	b.ephemeral(ctx, cmd.ChannelID, cmd.UserID, msg)
}

func (b *Bot) handleInteraction(ctx context.Context, evt socketmode.Event, callback slack.InteractionCallback) {
	if callback.Type != slack.InteractionTypeViewSubmission {
		b.Socket.Ack(*evt.Request)
		return
	}

	switch callback.View.CallbackID {
	case addPaperCallbackID:
		b.handleAddPaperSubmission(ctx, evt, callback)
	case searchPaperCallbackID:
		b.Socket.Ack(*evt.Request)
		query := stateValue(callback, "search_query_block", "search_query_input")
		b.runSearch(ctx, callback.User.ID, callback.User.ID, query)
	case registerKeyCallbackID:
		b.handleRegisterKeySubmission(ctx, evt, callback)
	case summarizePaperCallbackID:
		b.handleSummarizePaperSubmission(ctx, evt, callback)
	default:
		b.Socket.Ack(*evt.Request)
	}
}

// handleAddPaperSubmission validiert die Eingabe synchron, damit Feldfehler
// im Modal landen. Persistenz und Auto-Zusammenfassung laufen danach
// asynchron; das Ergebnis kommt als DM.
func (b *Bot) handleAddPaperSubmission(ctx context.Context, evt socketmode.Event, callback slack.InteractionCallback) {
	sub := submissionFromView(callback)
	userID := callback.User.ID

	data, err := services.Reconcile(sub, time.Now().UTC())
	if err != nil {
		b.Socket.Ack(*evt.Request, errorAck(err))
		return
	}
	existing, err := b.Papers.GetPaperByURLOrArxivID(data.URL, data.ArxivID)
	if err == nil && existing != nil {
		b.Socket.Ack(*evt.Request, errorAck(&services.DuplicateError{ExistingTitle: existing.Title}))
		return
	}
	b.Socket.Ack(*evt.Request)

	go func() {
		msg, err := b.Submission.AddPaper(ctx, userID, sub)
		if err != nil {
			b.Logger.Error("Paper-Einreichung fehlgeschlagen", zap.String("slack_user_id", userID), zap.Error(err))
			msg = fmt.Sprintf("Adding the paper failed: %s", err)
		}
		if err := b.Notifier.SendMessage(ctx, userID, msg); err != nil {
			b.Logger.Error("DM konnte nicht zugestellt werden", zap.String("slack_user_id", userID), zap.Error(err))
		}
	}()
}

func (b *Bot) handleRegisterKeySubmission(ctx context.Context, evt socketmode.Event, callback slack.InteractionCallback) {
	apiKey := stateValue(callback, "api_key_block", "api_key_input")
	if apiKey == "" {
		b.Socket.Ack(*evt.Request, errorsPayload("api_key_block", "Please provide an API key."))
		return
	}
	b.Socket.Ack(*evt.Request)

	userID := callback.User.ID
	if _, err := b.Users.UpdateAPIKey(userID, apiKey); err != nil {
		b.Logger.Error("API-Key konnte nicht gespeichert werden", zap.String("slack_user_id", userID), zap.Error(err))
		b.dm(ctx, userID, "Storing your API key failed, please try again.")
		return
	}
	b.dm(ctx, userID, "Your Gemini API key has been registered.")
}

func (b *Bot) handleSummarizePaperSubmission(ctx context.Context, evt socketmode.Event, callback slack.InteractionCallback) {
	raw := stateValue(callback, "summarize_paper_block", "summarize_paper_input")
	paperID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		b.Socket.Ack(*evt.Request, errorsPayload("summarize_paper_block", "Paper ID must be a number."))
		return
	}
	b.Socket.Ack(*evt.Request)

	userID := callback.User.ID
	go func() {
		summary, err := b.Submission.SummarizePaper(ctx, userID, uint(paperID))
		if err != nil {
			var validation *services.ValidationError
			if errors.As(err, &validation) {
				b.dm(ctx, userID, validation.Message)
				return
			}
			b.Logger.Error("Paper-Zusammenfassung fehlgeschlagen", zap.Uint64("paper_id", paperID), zap.Error(err))
			b.dm(ctx, userID, "Summarization failed, please try again later.")
			return
		}
		b.dm(ctx, userID, fmt.Sprintf("*Summary for paper %d:*\n%s", paperID, summary))
	}()
}

func (b *Bot) runSearch(ctx context.Context, channelID, userID, query string) {
	papers, err := b.Papers.SearchPapers(query)
	if err != nil {
		b.Logger.Error("Suche fehlgeschlagen", zap.String("query", query), zap.Error(err))
		b.ephemeral(ctx, channelID, userID, "The search failed, please try again.")
		return
	}
	if len(papers) == 0 {
		b.ephemeral(ctx, channelID, userID, fmt.Sprintf("No papers found for '%s'.", query))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*%d paper(s) found for '%s':*\n", len(papers), query)
	for _, p := range papers {
		fmt.Fprintf(&sb, "• #%d <%s|%s>", p.ID, p.URL, p.Title)
		if names := authorNames(&p); names != "" {
			fmt.Fprintf(&sb, " — %s", names)
		}
		sb.WriteString("\n")
	}
	b.ephemeral(ctx, channelID, userID, sb.String())
}

func (b *Bot) runTextSummary(ctx context.Context, userID, text string) {
	summary, err := b.Submission.SummarizeText(ctx, userID, text)
	if err != nil {
		var validation *services.ValidationError
		if errors.As(err, &validation) {
			b.dm(ctx, userID, validation.Message)
			return
		}
		b.Logger.Error("Text-Zusammenfassung fehlgeschlagen", zap.String("slack_user_id", userID), zap.Error(err))
		b.dm(ctx, userID, "Summarization failed, please try again later.")
		return
	}
	b.dm(ctx, userID, fmt.Sprintf("*Summary:*\n%s", summary))
}

func (b *Bot) openModal(ctx context.Context, triggerID string, view slack.ModalViewRequest) {
	if _, err := b.API.OpenViewContext(ctx, triggerID, view); err != nil {
		b.Logger.Error("Modal konnte nicht geöffnet werden", zap.String("callback_id", view.CallbackID), zap.Error(err))
	}
}

func (b *Bot) ephemeral(ctx context.Context, channelID, userID, text string) {
	if _, err := b.API.PostEphemeralContext(ctx, channelID, userID, slack.MsgOptionText(text, false)); err != nil {
		b.Logger.Error("Ephemeral-Nachricht fehlgeschlagen", zap.String("slack_user_id", userID), zap.Error(err))
	}
}

func (b *Bot) dm(ctx context.Context, userID, text string) {
	if err := b.Notifier.SendMessage(ctx, userID, text); err != nil {
		b.Logger.Error("DM konnte nicht zugestellt werden", zap.String("slack_user_id", userID), zap.Error(err))
	}
}

// errorAck übersetzt die typisierten Service-Fehler in die
// response_action=errors Antwort, damit Slack sie am richtigen Block zeigt.
func errorAck(err error) map[string]any {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		return errorsPayload(validation.Field, validation.Message)
	}
	var parse *services.ParseError
	if errors.As(err, &parse) {
		return errorsPayload("bibtex_block", parse.Error())
	}
	var duplicate *services.DuplicateError
	if errors.As(err, &duplicate) {
		return errorsPayload("paper_url_block", duplicate.Error())
	}
	return errorsPayload("paper_title_block", err.Error())
}

func errorsPayload(blockID, message string) map[string]any {
	return map[string]any{
		"response_action": "errors",
		"errors":          map[string]string{blockID: message},
	}
}
