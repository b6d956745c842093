package slackbot

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"paperwhale/models"
)

// Notifier stellt Nachrichten über die Slack Web-API zu. Benachrichtigungen
// gehen als DM direkt an die User-ID.
type Notifier struct {
	API    *slack.Client
	Logger *zap.Logger
}

// NewNotifier erstellt eine neue Instanz des Notifier.
func NewNotifier(api *slack.Client, logger *zap.Logger) *Notifier {
	return &Notifier{API: api, Logger: logger}
}

// SendMessage schickt eine einfache Textnachricht an einen Channel oder User.
func (n *Notifier) SendMessage(ctx context.Context, channelID, text string) error {
	_, _, err := n.API.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	return err
}

// SendNewPaperNotification baut die Block-Kit-Nachricht für ein neues Paper
// und schickt sie an den Abonnenten.
func (n *Notifier) SendNewPaperNotification(ctx context.Context, slackUserID, keyword string, paper *models.Paper) error {
	blocks := newPaperBlocks(keyword, paper)
	_, _, err := n.API.PostMessageContext(ctx, slackUserID,
		slack.MsgOptionText(fmt.Sprintf("New paper for '%s': %s", keyword, paper.Title), false),
		slack.MsgOptionBlocks(blocks...))
	if err != nil {
		return err
	}
	n.Logger.Info("Paper-Benachrichtigung verschickt",
		zap.String("slack_user_id", slackUserID),
		zap.Uint("paper_id", paper.ID))
	return nil
}

func newPaperBlocks(keyword string, paper *models.Paper) []slack.Block {
	header := slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, ":page_facing_up: New paper found", false, false))

	title := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*<%s|%s>*", paper.URL, paper.Title), false, false),
		nil, nil)

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*Matched keyword:*\n%s", keyword), false, false),
	}
	if names := authorNames(paper); names != "" {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*Authors:*\n%s", names), false, false))
	}
	meta := slack.NewSectionBlock(nil, fields, nil)

	blocks := []slack.Block{header, title, meta}
	if paper.Summary != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*Abstract:*\n%s", truncate(paper.Summary, 2500)), false, false),
			nil, nil))
	}

	button := slack.NewButtonBlockElement("view_paper", paper.URL,
		slack.NewTextBlockObject(slack.PlainTextType, "View paper", false, false))
	button.URL = paper.URL
	blocks = append(blocks, slack.NewActionBlock("paper_actions", button))
	return blocks
}

func authorNames(paper *models.Paper) string {
	names := make([]string, 0, len(paper.Authors))
	for _, a := range paper.Authors {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// truncate kürzt auf die Block-Kit-Textgrenze, ohne mitten in einer
// UTF-8-Rune abzuschneiden.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
