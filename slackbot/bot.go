package slackbot

import (
	"context"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"paperwhale/services"
)

// Bot ist der Socket-Mode-Client: Slash-Commands, Modal-Submissions und
// App-Home-Events laufen hier zusammen.
type Bot struct {
	API           *slack.Client
	Socket        *socketmode.Client
	Logger        *zap.Logger
	Papers        *services.PaperService
	Subscriptions *services.SubscriptionService
	Users         *services.UserService
	Submission    *services.SubmissionService
	Notifier      *Notifier
}

// NewBot erstellt den Bot samt Socket-Mode-Client.
func NewBot(api *slack.Client, logger *zap.Logger, papers *services.PaperService, subs *services.SubscriptionService, users *services.UserService, submission *services.SubmissionService, notifier *Notifier) *Bot {
	return &Bot{
		API:           api,
		Socket:        socketmode.New(api),
		Logger:        logger,
		Papers:        papers,
		Subscriptions: subs,
		Users:         users,
		Submission:    submission,
		Notifier:      notifier,
	}
}

// Run verbindet den Socket-Mode-Client und verarbeitet Events bis der
// Context endet.
func (b *Bot) Run(ctx context.Context) error {
	go b.dispatch(ctx)
	return b.Socket.RunContext(ctx)
}

func (b *Bot) dispatch(ctx context.Context) {
	for evt := range b.Socket.Events {
		switch evt.Type {
		case socketmode.EventTypeConnecting:
			b.Logger.Info("Verbinde mit Slack (Socket Mode)")
		case socketmode.EventTypeConnectionError:
			b.Logger.Error("Slack-Verbindung fehlgeschlagen")
		case socketmode.EventTypeConnected:
			b.Logger.Info("Mit Slack verbunden")
		case socketmode.EventTypeSlashCommand:
			cmd, ok := evt.Data.(slack.SlashCommand)
			if !ok {
				continue
			}
			b.Socket.Ack(*evt.Request)
			b.handleSlashCommand(ctx, cmd)
		case socketmode.EventTypeInteractive:
			callback, ok := evt.Data.(slack.InteractionCallback)
			if !ok {
				continue
			}
			b.handleInteraction(ctx, evt, callback)
		case socketmode.EventTypeEventsAPI:
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			b.Socket.Ack(*evt.Request)
			b.handleEventsAPI(ctx, apiEvent)
		}
	}
}

func (b *Bot) handleEventsAPI(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}
	switch inner := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.AppHomeOpenedEvent:
		if _, err := b.API.PublishViewContext(ctx, slack.PublishViewContextRequest{
			UserID: inner.User,
			View:   b.buildHomeView(inner.User),
		}); err != nil {
			b.Logger.Error("App-Home konnte nicht veröffentlicht werden",
				zap.String("slack_user_id", inner.User), zap.Error(err))
		}
	}
}

// buildHomeView sammelt die Abos des Users für den Home-Tab. Fehler beim
// Laden kosten nur die Abo-Sektion, nicht den ganzen Tab.
func (b *Bot) buildHomeView(slackUserID string) slack.HomeTabViewRequest {
	var keywords, authors []string
	if subs, err := b.Subscriptions.ListKeywords(slackUserID); err == nil {
		for _, sub := range subs {
			keywords = append(keywords, sub.Keyword.Name)
		}
	} else {
		b.Logger.Error("Keyword-Abos konnten nicht geladen werden", zap.Error(err))
	}
	if subs, err := b.Subscriptions.ListAuthors(slackUserID); err == nil {
		for _, sub := range subs {
			authors = append(authors, sub.Author.Name)
		}
	} else {
		b.Logger.Error("Autor-Abos konnten nicht geladen werden", zap.Error(err))
	}
	return homeView(keywords, authors)
}
