package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"paperwhale/bibtex"
	"paperwhale/models"
)

// PaperSubmission ist die rohe Eingabe aus dem Add-Paper-Modal. Alle Felder
// sind optional; Reconcile entscheidet, was daraus wird.
type PaperSubmission struct {
	Title         string
	URL           string
	BibTeX        string
	AuthorNames   []string
	KeywordNames  []string
	Summary       string
	PublishedDate string
	ArxivID       string
}

// Summarizer wird nach dem Anlegen für die automatische Zusammenfassung
// gebraucht. Implementiert vom Gemini-Client.
type Summarizer interface {
	SummarizeText(ctx context.Context, apiKey, text string) (string, error)
}

// AbstractFetcher löst eine arXiv-ID zum Abstract auf. Implementiert vom
// arXiv-Fetcher.
type AbstractFetcher interface {
	FetchByID(ctx context.Context, arxivID string) (*models.PaperCreate, error)
}

// SubmissionService verdrahtet Eingabe-Abgleich, Duplikat-Prüfung,
// Persistenz und optionale Auto-Zusammenfassung zu einem Ablauf.
type SubmissionService struct {
	Logger     *zap.Logger
	Papers     *PaperService
	Users      *UserService
	Summarizer Summarizer
	Abstracts  AbstractFetcher

	// DefaultAPIKey greift, wenn ein User keinen eigenen Key hinterlegt hat.
	DefaultAPIKey string
}

// NewSubmissionService erstellt eine neue Instanz des SubmissionService.
func NewSubmissionService(logger *zap.Logger, papers *PaperService, users *UserService, summarizer Summarizer, abstracts AbstractFetcher, defaultAPIKey string) *SubmissionService {
	return &SubmissionService{
		Logger:        logger,
		Papers:        papers,
		Users:         users,
		Summarizer:    summarizer,
		Abstracts:     abstracts,
		DefaultAPIKey: defaultAPIKey,
	}
}

// apiKeyFor liefert den Key des Users, sonst den konfigurierten Fallback.
func (s *SubmissionService) apiKeyFor(user *models.User) string {
	if user.GeminiAPIKey != "" {
		return user.GeminiAPIKey
	}
	return s.DefaultAPIKey
}

// Reconcile gleicht manuelle Felder und BibTeX zu einem PaperCreate ab.
// Manuelle Eingaben gewinnen feldweise gegen geparste Werte. Fehlt am Ende
// Titel oder URL, kommt eine ValidationError zurück.
func Reconcile(sub PaperSubmission, now time.Time) (models.PaperCreate, error) {
	data := models.PaperCreate{
		Title:        sub.Title,
		URL:          sub.URL,
		Summary:      sub.Summary,
		ArxivID:      sub.ArxivID,
		AuthorNames:  sub.AuthorNames,
		KeywordNames: sub.KeywordNames,
	}

	// Parse-Fehler sind terminal, noch bevor irgendein Feld geprüft wird.
	if sub.BibTeX != "" {
		entries, err := bibtex.Parse(sub.BibTeX)
		if err != nil {
			return models.PaperCreate{}, &ParseError{Detail: err.Error()}
		}
		entry := entries[0]

		if data.Title == "" {
			data.Title = entry.Field("title")
		}
		if data.URL == "" {
			data.URL = entry.Field("url")
		}
		if data.ArxivID == "" {
			data.ArxivID = entry.Field("eprint")
		}
		if data.Summary == "" {
			if abstract := entry.Field("abstract"); abstract != "" {
				data.Summary = abstract
			} else {
				data.Summary = entry.Field("note")
			}
		}
		if len(data.AuthorNames) == 0 {
			data.AuthorNames = bibtex.SplitAuthors(entry.Field("author"))
		}
		if len(data.KeywordNames) == 0 {
			data.KeywordNames = bibtex.SplitKeywords(entry.Field("keywords"))
		}
		if sub.PublishedDate == "" {
			date := yearToDate(entry.Field("year"), now)
			data.PublishedDate = &date
		}
	}

	// Das manuelle Datum gewinnt; anders als das BibTeX-Jahr wird es strikt
	// geprüft statt zu defaulten.
	if sub.PublishedDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", sub.PublishedDate, time.UTC)
		if err != nil {
			return models.PaperCreate{}, &ValidationError{
				Field:   "paper_published_date_block",
				Message: "Published date must be in YYYY-MM-DD format.",
			}
		}
		data.PublishedDate = &parsed
	}

	// eprint ohne URL: PDF-Link auf arXiv synthetisieren.
	if data.URL == "" && data.ArxivID != "" {
		data.URL = fmt.Sprintf("https://arxiv.org/pdf/%s.pdf", data.ArxivID)
	}

	if data.Title == "" || data.URL == "" {
		return models.PaperCreate{}, &ValidationError{
			Field:   "paper_title_block",
			Message: "Either bibtex must be provided, or both title and url must be provided.",
		}
	}
	return data, nil
}

// yearToDate macht aus einem BibTeX-Jahr den 1. Januar dieses Jahres.
// Unbrauchbare Jahresangaben fallen auf den aktuellen Zeitpunkt zurück.
func yearToDate(year string, now time.Time) time.Time {
	y, err := strconv.Atoi(year)
	if err != nil {
		return now
	}
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// AddPaper führt den kompletten Ablauf einer Paper-Einreichung aus und
// liefert die Bestätigungsnachricht für den einreichenden User. Fehler,
// die der User beheben kann, kommen als typisierte Errors zurück.
func (s *SubmissionService) AddPaper(ctx context.Context, slackUserID string, sub PaperSubmission) (string, error) {
	user, err := s.Users.GetOrCreateUser(slackUserID)
	if err != nil {
		return "", err
	}

	data, err := Reconcile(sub, time.Now().UTC())
	if err != nil {
		return "", err
	}

	existing, err := s.Papers.GetPaperByURLOrArxivID(data.URL, data.ArxivID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", &DuplicateError{ExistingTitle: existing.Title}
	}

	paper, err := s.Papers.CreatePaper(data)
	if err != nil {
		return "", err
	}
	s.Logger.Info("Paper hinzugefügt",
		zap.Uint("paper_id", paper.ID),
		zap.String("title", paper.Title),
		zap.String("slack_user_id", slackUserID))

	ack := fmt.Sprintf("Paper '%s' successfully added!", paper.Title)
	if !s.needsAutoSummary(paper) {
		return ack, nil
	}

	// Der Hinweis auf den fehlenden Key kommt nur, wenn eine automatische
	// Zusammenfassung überhaupt möglich gewesen wäre.
	apiKey := s.apiKeyFor(user)
	if apiKey == "" {
		return fmt.Sprintf("Paper '%s' successfully added. To enable AI summarization, please register your Gemini API key.", paper.Title), nil
	}
	if summary, ok := s.autoSummarize(ctx, apiKey, paper); ok {
		update := models.PaperUpdate{Summary: &summary}
		if _, err := s.Papers.UpdatePaper(paper.ID, update); err != nil {
			s.Logger.Error("Summary konnte nicht gespeichert werden", zap.Uint("paper_id", paper.ID), zap.Error(err))
			return ack + " (automatic summarization failed)", nil
		}
		return ack + " An AI summary has been attached.", nil
	}
	return ack + " (automatic summarization failed)", nil
}

// needsAutoSummary meldet, ob die Einreichung für die automatische
// Zusammenfassung in Frage kommt: kein Abstract vorhanden, aber eine
// arXiv-ID zum Nachschlagen. Ein mitgeliefertes Abstract bleibt unberührt.
func (s *SubmissionService) needsAutoSummary(paper *models.Paper) bool {
	return paper.Summary == "" && paper.ArxivID != nil && s.Abstracts != nil
}

// autoSummarize besorgt den Quelltext für die Zusammenfassung (vorhandenes
// Abstract, sonst arXiv-Lookup) und ruft das Modell auf. Fehler werden
// geloggt, nicht propagiert; die Einreichung selbst ist schon persistiert.
func (s *SubmissionService) autoSummarize(ctx context.Context, apiKey string, paper *models.Paper) (string, bool) {
	text := paper.Summary
	if text == "" && paper.ArxivID != nil && s.Abstracts != nil {
		fetched, err := s.Abstracts.FetchByID(ctx, *paper.ArxivID)
		if err != nil {
			s.Logger.Warn("Abstract-Lookup fehlgeschlagen", zap.String("arxiv_id", *paper.ArxivID), zap.Error(err))
			return "", false
		}
		text = fetched.Summary
	}
	if text == "" {
		s.Logger.Warn("Kein Text für Zusammenfassung vorhanden", zap.Uint("paper_id", paper.ID))
		return "", false
	}
	summary, err := s.Summarizer.SummarizeText(ctx, apiKey, text)
	if err != nil {
		s.Logger.Error("Zusammenfassung fehlgeschlagen", zap.Uint("paper_id", paper.ID), zap.Error(err))
		return "", false
	}
	return summary, true
}

// SummarizePaper fasst ein bereits gespeichertes Paper auf Anfrage zusammen
// und persistiert das Ergebnis.
func (s *SubmissionService) SummarizePaper(ctx context.Context, slackUserID string, paperID uint) (string, error) {
	user, err := s.Users.GetOrCreateUser(slackUserID)
	if err != nil {
		return "", err
	}
	apiKey := s.apiKeyFor(user)
	if apiKey == "" {
		return "", &ValidationError{
			Field:   "summarize_paper_block",
			Message: "Please register your Gemini API key first.",
		}
	}
	paper, err := s.Papers.GetPaper(paperID)
	if err != nil {
		return "", err
	}
	if paper == nil {
		return "", &ValidationError{
			Field:   "summarize_paper_block",
			Message: "Paper not found.",
		}
	}
	summary, ok := s.autoSummarize(ctx, apiKey, paper)
	if !ok {
		return "", fmt.Errorf("summarization failed for paper %d", paperID)
	}
	if _, err := s.Papers.UpdatePaper(paper.ID, models.PaperUpdate{Summary: &summary}); err != nil {
		return "", err
	}
	return summary, nil
}

// SummarizeText fasst freien Text für den User zusammen, ohne etwas zu
// speichern.
func (s *SubmissionService) SummarizeText(ctx context.Context, slackUserID, text string) (string, error) {
	user, err := s.Users.GetOrCreateUser(slackUserID)
	if err != nil {
		return "", err
	}
	apiKey := s.apiKeyFor(user)
	if apiKey == "" {
		return "", &ValidationError{
			Field:   "summarize_text_block",
			Message: "Please register your Gemini API key first.",
		}
	}
	return s.Summarizer.SummarizeText(ctx, apiKey, text)
}
