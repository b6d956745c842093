package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"paperwhale/config"
	"paperwhale/models"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Fetcher ist der Such-Client für die arXiv-API.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen arXiv-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "arxiv"
}

// SearchNewPapers sucht die neuesten Treffer für ein Keyword (Titel oder
// Abstract). Fehler werden geloggt und als leere Liste zurückgegeben, damit
// ein fehlgeschlagenes Keyword nicht den ganzen Poll-Lauf abbricht.
func (f *Fetcher) SearchNewPapers(ctx context.Context, keyword string) []models.PaperCreate {
	log := f.Logger.With(zap.String("keyword", keyword))

	query := fmt.Sprintf(`ti:"%s" OR abs:"%s"`, keyword, keyword)
	entries, err := f.query(ctx, url.Values{
		"search_query": []string{query},
		"start":        []string{"0"},
		"max_results":  []string{fmt.Sprintf("%d", f.Config.ArxivMaxResults)},
		"sortBy":       []string{"submittedDate"},
		"sortOrder":    []string{"descending"},
	})
	if err != nil {
		log.Error("arXiv-Suche fehlgeschlagen", zap.Error(err))
		return nil
	}

	papers := make([]models.PaperCreate, 0, len(entries))
	for _, e := range entries {
		papers = append(papers, mapEntry(e))
	}
	log.Info("arXiv-Suche abgeschlossen", zap.Int("found_papers", len(papers)))
	return papers
}

// FetchByID holt die Metadaten eines einzelnen Papers über seine arXiv-ID.
func (f *Fetcher) FetchByID(ctx context.Context, arxivID string) (*models.PaperCreate, error) {
	entries, err := f.query(ctx, url.Values{
		"id_list":     []string{arxivID},
		"max_results": []string{"1"},
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("arxiv: no entry for id %s", arxivID)
	}
	paper := mapEntry(entries[0])
	return &paper, nil
}

func (f *Fetcher) query(ctx context.Context, params url.Values) ([]entry, error) {
	reqURL := fmt.Sprintf("%s?%s", f.Config.ArxivBaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to create request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to read response: %w", err)
	}

	var parsed feed
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("arxiv: failed to parse XML: %w", err)
	}
	return parsed.Entries, nil
}

// mapEntry konvertiert einen Atom-Eintrag in unsere Paper-Eingabeform.
func mapEntry(e entry) models.PaperCreate {
	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	// PDF-Link bevorzugen, sonst den alternate-Link, sonst die Entry-ID.
	var paperURL string
	for _, l := range e.Links {
		if l.Title == "pdf" {
			paperURL = l.Href
			break
		}
		if l.Rel == "alternate" && paperURL == "" {
			paperURL = l.Href
		}
	}
	if paperURL == "" {
		paperURL = e.ID
	}

	var published *time.Time
	if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
		published = &t
	}

	return models.PaperCreate{
		Title:         strings.Join(strings.Fields(e.Title), " "),
		URL:           paperURL,
		Summary:       strings.TrimSpace(e.Summary),
		AuthorNames:   authors,
		PublishedDate: published,
		ArxivID:       idFromEntryURL(e.ID),
	}
}

// idFromEntryURL extrahiert die arXiv-ID aus der kanonischen Entry-URL
// (http://arxiv.org/abs/2301.00001v1 -> 2301.00001v1).
func idFromEntryURL(entryURL string) string {
	entryURL = strings.TrimSuffix(entryURL, "/")
	if idx := strings.LastIndex(entryURL, "/"); idx >= 0 {
		return entryURL[idx+1:]
	}
	return entryURL
}
