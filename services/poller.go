package services

import (
	"context"

	"go.uber.org/zap"

	"paperwhale/models"
)

// PaperSearcher liefert Kandidaten aus einem externen Archiv. Fehler werden
// vom Fetcher selbst geloggt; ein leeres Ergebnis ist kein Fehler.
type PaperSearcher interface {
	Name() string
	SearchNewPapers(ctx context.Context, keyword string) []models.PaperCreate
}

// Notifier stellt neue Papers den Abonnenten zu.
type Notifier interface {
	SendNewPaperNotification(ctx context.Context, slackUserID, keyword string, paper *models.Paper) error
}

// PollService ist der periodische Abgleich: pro abonniertem Keyword das
// Archiv befragen, Neues persistieren und die Abonnenten benachrichtigen.
type PollService struct {
	Logger        *zap.Logger
	Papers        *PaperService
	Subscriptions *SubscriptionService
	Searcher      PaperSearcher
	Notifier      Notifier
}

// NewPollService erstellt eine neue Instanz des PollService.
func NewPollService(logger *zap.Logger, papers *PaperService, subs *SubscriptionService, searcher PaperSearcher, notifier Notifier) *PollService {
	return &PollService{
		Logger:        logger,
		Papers:        papers,
		Subscriptions: subs,
		Searcher:      searcher,
		Notifier:      notifier,
	}
}

// RunOnce führt einen kompletten Poll-Lauf aus. Jedes Keyword, jeder
// Kandidat und jede Benachrichtigung scheitert für sich allein; der Lauf
// geht danach weiter. Rückgabe ist die Zahl neuer Papers und die Zahl der
// fehlgeschlagenen Einheiten.
func (s *PollService) RunOnce(ctx context.Context) (newPapers, failures int) {
	subscribers, err := s.Subscriptions.KeywordSubscribers()
	if err != nil {
		s.Logger.Error("Abo-Liste konnte nicht geladen werden", zap.Error(err))
		return 0, 1
	}
	if len(subscribers) == 0 {
		s.Logger.Info("Keine Keyword-Abos vorhanden, Poll-Lauf übersprungen")
		return 0, 0
	}

	for keyword, userIDs := range subscribers {
		candidates := s.Searcher.SearchNewPapers(ctx, keyword)
		for _, candidate := range candidates {
			paper, created, err := s.storeCandidate(candidate, keyword)
			if err != nil {
				s.Logger.Error("Kandidat konnte nicht verarbeitet werden",
					zap.String("keyword", keyword),
					zap.String("url", candidate.URL),
					zap.Error(err))
				failures++
				continue
			}
			if !created {
				continue
			}
			newPapers++
			for _, userID := range userIDs {
				if err := s.Notifier.SendNewPaperNotification(ctx, userID, keyword, paper); err != nil {
					s.Logger.Error("Benachrichtigung fehlgeschlagen",
						zap.String("slack_user_id", userID),
						zap.Uint("paper_id", paper.ID),
						zap.Error(err))
					failures++
				}
			}
		}
	}

	s.Logger.Info("Poll-Lauf abgeschlossen",
		zap.String("source", s.Searcher.Name()),
		zap.Int("new_papers", newPapers),
		zap.Int("failures", failures))
	return newPapers, failures
}

// storeCandidate persistiert einen Kandidaten, falls er noch nicht bekannt
// ist, und markiert ihn mit dem auslösenden Keyword.
func (s *PollService) storeCandidate(candidate models.PaperCreate, keyword string) (*models.Paper, bool, error) {
	existing, err := s.Papers.GetPaperByURLOrArxivID(candidate.URL, candidate.ArxivID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	tagged := false
	for _, name := range candidate.KeywordNames {
		if name == keyword {
			tagged = true
			break
		}
	}
	if !tagged {
		candidate.KeywordNames = append(candidate.KeywordNames, keyword)
	}

	paper, err := s.Papers.CreatePaper(candidate)
	if err != nil {
		return nil, false, err
	}
	return paper, true, nil
}
