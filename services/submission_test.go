package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paperwhale/models"
)

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
	gotKey  string
	gotText string
}

func (f *fakeSummarizer) SummarizeText(_ context.Context, apiKey, text string) (string, error) {
	f.calls++
	f.gotKey = apiKey
	f.gotText = text
	return f.summary, f.err
}

type fakeAbstractFetcher struct {
	abstract string
	err      error
}

func (f *fakeAbstractFetcher) FetchByID(_ context.Context, arxivID string) (*models.PaperCreate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.PaperCreate{ArxivID: arxivID, Summary: f.abstract}, nil
}

func newSubmissionService(t *testing.T, summarizer Summarizer, abstracts AbstractFetcher) (*SubmissionService, *PaperService, *UserService) {
	t.Helper()
	papers, users, _ := newTestServices(t)
	svc := NewSubmissionService(zap.NewNop(), papers, users, summarizer, abstracts, "")
	return svc, papers, users
}

var testNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func TestReconcileManualFieldsOnly(t *testing.T) {
	data, err := Reconcile(PaperSubmission{
		Title:        "My Paper",
		URL:          "https://example.com/my.pdf",
		AuthorNames:  []string{"Jane Smith"},
		KeywordNames: []string{"testing"},
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "My Paper", data.Title)
	assert.Equal(t, "https://example.com/my.pdf", data.URL)
	assert.Equal(t, []string{"Jane Smith"}, data.AuthorNames)
	assert.Nil(t, data.PublishedDate)
}

func TestReconcileBibtexOnly(t *testing.T) {
	data, err := Reconcile(PaperSubmission{
		BibTeX: `@article{vaswani2017,
			title = {Attention Is All You Need},
			author = {Vaswani, Ashish and Shazeer, Noam},
			year = {2017},
			url = {https://arxiv.org/abs/1706.03762},
			keywords = {transformers, attention},
			abstract = {The dominant models.},
		}`,
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "Attention Is All You Need", data.Title)
	assert.Equal(t, "https://arxiv.org/abs/1706.03762", data.URL)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, data.AuthorNames)
	assert.Equal(t, []string{"transformers", "attention"}, data.KeywordNames)
	assert.Equal(t, "The dominant models.", data.Summary)
	require.NotNil(t, data.PublishedDate)
	assert.Equal(t, time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC), *data.PublishedDate)
}

func TestReconcileManualWinsOverBibtex(t *testing.T) {
	data, err := Reconcile(PaperSubmission{
		Title:       "Manual Title",
		AuthorNames: []string{"Manual Author"},
		BibTeX: `@article{x,
			title = {Bibtex Title},
			author = {Bibtex, Author},
			url = {https://example.com/bib.pdf},
			year = {2020},
		}`,
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "Manual Title", data.Title)
	assert.Equal(t, "https://example.com/bib.pdf", data.URL)
	assert.Equal(t, []string{"Manual Author"}, data.AuthorNames)
}

func TestReconcileSynthesizesURLFromEprint(t *testing.T) {
	data, err := Reconcile(PaperSubmission{
		BibTeX: `@article{x, title = {Eprint Paper}, eprint = {2301.00001}, year = {2023} }`,
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "2301.00001", data.ArxivID)
	assert.Equal(t, "https://arxiv.org/pdf/2301.00001.pdf", data.URL)
}

func TestReconcileNoteFallsBackToSummary(t *testing.T) {
	data, err := Reconcile(PaperSubmission{
		BibTeX: `@misc{x, title = {Note Paper}, url = {https://example.com/n}, note = {Some note.} }`,
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "Some note.", data.Summary)
}

func TestReconcileUnparsableYearFallsBackToNow(t *testing.T) {
	data, err := Reconcile(PaperSubmission{
		BibTeX: `@article{x, title = {T}, url = {https://example.com/t}, year = {in press} }`,
	}, testNow)
	require.NoError(t, err)
	require.NotNil(t, data.PublishedDate)
	assert.Equal(t, testNow, *data.PublishedDate)
}

func TestReconcileManualDate(t *testing.T) {
	data, err := Reconcile(PaperSubmission{
		Title:         "Dated",
		URL:           "https://example.com/dated",
		PublishedDate: "2023-05-17",
	}, testNow)
	require.NoError(t, err)
	require.NotNil(t, data.PublishedDate)
	assert.Equal(t, time.Date(2023, time.May, 17, 0, 0, 0, 0, time.UTC), *data.PublishedDate)
}

func TestReconcileMalformedManualDate(t *testing.T) {
	_, err := Reconcile(PaperSubmission{
		Title:         "Dated",
		URL:           "https://example.com/dated",
		PublishedDate: "17.05.2023",
	}, testNow)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "paper_published_date_block", validation.Field)
}

func TestReconcileMissingTitleAndURL(t *testing.T) {
	_, err := Reconcile(PaperSubmission{AuthorNames: []string{"Jane Smith"}}, testNow)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "paper_title_block", validation.Field)
	assert.Equal(t, "Either bibtex must be provided, or both title and url must be provided.", validation.Message)
}

func TestReconcileInvalidBibtex(t *testing.T) {
	_, err := Reconcile(PaperSubmission{BibTeX: "not bibtex at all"}, testNow)

	var parse *ParseError
	require.ErrorAs(t, err, &parse)
	assert.Contains(t, parse.Error(), "BibTeX parse error")
}

func TestReconcileParseErrorBeatsMalformedDate(t *testing.T) {
	// Kaputter Record und kaputtes Datum zugleich: der Parse-Fehler ist
	// terminal, das Datum wird gar nicht erst geprüft.
	_, err := Reconcile(PaperSubmission{
		BibTeX:        "not bibtex at all",
		PublishedDate: "17.05.2023",
	}, testNow)

	var parse *ParseError
	require.ErrorAs(t, err, &parse)
}

func TestReconcileManualDateWinsOverBibtexYear(t *testing.T) {
	data, err := Reconcile(PaperSubmission{
		PublishedDate: "2023-05-17",
		BibTeX:        `@article{x, title = {T}, url = {https://example.com/t}, year = {2020} }`,
	}, testNow)
	require.NoError(t, err)
	require.NotNil(t, data.PublishedDate)
	assert.Equal(t, time.Date(2023, time.May, 17, 0, 0, 0, 0, time.UTC), *data.PublishedDate)
}

func TestAddPaperManualWithoutAPIKey(t *testing.T) {
	summarizer := &fakeSummarizer{}
	svc, papers, _ := newSubmissionService(t, summarizer, &fakeAbstractFetcher{})

	// Ohne arXiv-ID gibt es nichts zusammenzufassen; der Key-Hinweis
	// entfällt, der Ack bleibt blank.
	ack, err := svc.AddPaper(context.Background(), "U1", PaperSubmission{
		Title:       "Manual Paper",
		URL:         "http://manual.com",
		AuthorNames: []string{"Author One"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Paper 'Manual Paper' successfully added!", ack)
	assert.Zero(t, summarizer.calls)

	found, err := papers.GetPaperByURLOrArxivID("http://manual.com", "")
	require.NoError(t, err)
	require.NotNil(t, found)

	stored, err := papers.GetPaper(found.ID)
	require.NoError(t, err)
	require.Len(t, stored.Authors, 1)
	assert.Equal(t, "Author One", stored.Authors[0].Name)
}

func TestAddPaperEprintWithoutAPIKeyAsksForKey(t *testing.T) {
	summarizer := &fakeSummarizer{}
	svc, _, _ := newSubmissionService(t, summarizer, &fakeAbstractFetcher{abstract: "Fetched."})

	ack, err := svc.AddPaper(context.Background(), "U1", PaperSubmission{
		BibTeX: `@article{x, title = {Eprint Paper}, eprint = {2301.00001}, year = {2023} }`,
	})
	require.NoError(t, err)
	assert.Equal(t, "Paper 'Eprint Paper' successfully added. To enable AI summarization, please register your Gemini API key.", ack)
	assert.Zero(t, summarizer.calls)
}

func TestAddPaperDuplicate(t *testing.T) {
	svc, papers, _ := newSubmissionService(t, &fakeSummarizer{}, &fakeAbstractFetcher{})

	_, err := papers.CreatePaper(models.PaperCreate{
		Title: "Existing",
		URL:   "https://example.com/dup",
	})
	require.NoError(t, err)

	_, err = svc.AddPaper(context.Background(), "U1", PaperSubmission{
		Title: "Existing Again",
		URL:   "https://example.com/dup",
	})

	var duplicate *DuplicateError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, "Existing", duplicate.ExistingTitle)
}

func TestAddPaperKeepsSuppliedAbstract(t *testing.T) {
	summarizer := &fakeSummarizer{summary: "unused"}
	svc, papers, users := newSubmissionService(t, summarizer, &fakeAbstractFetcher{})

	_, err := users.UpdateAPIKey("U1", "user-key")
	require.NoError(t, err)

	// Mitgeliefertes Abstract wird nicht überschrieben.
	ack, err := svc.AddPaper(context.Background(), "U1", PaperSubmission{
		Title:   "With Abstract",
		URL:     "https://example.com/abs",
		Summary: "Original abstract text.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Paper 'With Abstract' successfully added!", ack)
	assert.Zero(t, summarizer.calls)

	stored, err := papers.GetPaperByURLOrArxivID("https://example.com/abs", "")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Original abstract text.", stored.Summary)
}

func TestAddPaperSummarizesViaArxivID(t *testing.T) {
	summarizer := &fakeSummarizer{summary: "A concise summary."}
	svc, papers, users := newSubmissionService(t, summarizer, &fakeAbstractFetcher{abstract: "Fetched abstract."})

	_, err := users.UpdateAPIKey("U1", "user-key")
	require.NoError(t, err)

	ack, err := svc.AddPaper(context.Background(), "U1", PaperSubmission{
		Title:   "Arxiv Paper",
		URL:     "https://arxiv.org/pdf/2301.00001.pdf",
		ArxivID: "2301.00001",
	})
	require.NoError(t, err)
	assert.Equal(t, "Paper 'Arxiv Paper' successfully added! An AI summary has been attached.", ack)
	assert.Equal(t, "user-key", summarizer.gotKey)
	assert.Equal(t, "Fetched abstract.", summarizer.gotText)

	stored, err := papers.GetPaperByURLOrArxivID("", "2301.00001")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "A concise summary.", stored.Summary)
}

func TestAddPaperFetchesAbstractForSummarization(t *testing.T) {
	summarizer := &fakeSummarizer{summary: "Summary from fetched abstract."}
	svc, _, users := newSubmissionService(t, summarizer, &fakeAbstractFetcher{abstract: "Fetched abstract."})

	_, err := users.UpdateAPIKey("U1", "user-key")
	require.NoError(t, err)

	ack, err := svc.AddPaper(context.Background(), "U1", PaperSubmission{
		BibTeX: `@article{x, title = {Eprint Only}, eprint = {2301.00001}, year = {2023} }`,
	})
	require.NoError(t, err)
	assert.Contains(t, ack, "An AI summary has been attached.")
	assert.Equal(t, "Fetched abstract.", summarizer.gotText)
}

func TestAddPaperSummarizationFailureKeepsPaper(t *testing.T) {
	summarizer := &fakeSummarizer{err: errors.New("model unavailable")}
	svc, papers, users := newSubmissionService(t, summarizer, &fakeAbstractFetcher{abstract: "Fetched."})

	_, err := users.UpdateAPIKey("U1", "user-key")
	require.NoError(t, err)

	ack, err := svc.AddPaper(context.Background(), "U1", PaperSubmission{
		Title:   "Fails To Summarize",
		URL:     "https://example.com/fail",
		ArxivID: "2301.00009",
	})
	require.NoError(t, err)
	assert.Equal(t, "Paper 'Fails To Summarize' successfully added! (automatic summarization failed)", ack)

	// Die Einreichung selbst bleibt persistiert.
	stored, err := papers.GetPaperByURLOrArxivID("https://example.com/fail", "")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Empty(t, stored.Summary)
}

func TestAddPaperWithoutSummarySource(t *testing.T) {
	summarizer := &fakeSummarizer{summary: "unused"}
	svc, _, users := newSubmissionService(t, summarizer, &fakeAbstractFetcher{})

	_, err := users.UpdateAPIKey("U1", "user-key")
	require.NoError(t, err)

	// Kein Abstract, keine arXiv-ID: es gibt nichts zusammenzufassen.
	ack, err := svc.AddPaper(context.Background(), "U1", PaperSubmission{
		Title:       "Manual Paper",
		URL:         "http://manual.com",
		AuthorNames: []string{"Author One"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Paper 'Manual Paper' successfully added!", ack)
	assert.Zero(t, summarizer.calls)
}

func TestAddPaperFallsBackToDefaultAPIKey(t *testing.T) {
	summarizer := &fakeSummarizer{summary: "Via default key."}
	svc, _, _ := newSubmissionService(t, summarizer, &fakeAbstractFetcher{abstract: "Fetched."})
	svc.DefaultAPIKey = "workspace-key"

	ack, err := svc.AddPaper(context.Background(), "U1", PaperSubmission{
		Title:   "Default Key Paper",
		URL:     "https://example.com/default",
		ArxivID: "2301.00010",
	})
	require.NoError(t, err)
	assert.Contains(t, ack, "An AI summary has been attached.")
	assert.Equal(t, "workspace-key", summarizer.gotKey)
}

func TestSummarizePaperRequiresAPIKey(t *testing.T) {
	svc, papers, _ := newSubmissionService(t, &fakeSummarizer{summary: "S"}, &fakeAbstractFetcher{})

	paper, err := papers.CreatePaper(models.PaperCreate{
		Title:   "Stored",
		URL:     "https://example.com/stored",
		Summary: "Text.",
	})
	require.NoError(t, err)

	_, err = svc.SummarizePaper(context.Background(), "U1", paper.ID)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "Please register your Gemini API key first.", validation.Message)
}

func TestSummarizePaperStoresResult(t *testing.T) {
	svc, papers, users := newSubmissionService(t, &fakeSummarizer{summary: "Fresh summary."}, &fakeAbstractFetcher{})

	_, err := users.UpdateAPIKey("U1", "user-key")
	require.NoError(t, err)

	paper, err := papers.CreatePaper(models.PaperCreate{
		Title:   "Stored",
		URL:     "https://example.com/stored",
		Summary: "Old text.",
	})
	require.NoError(t, err)

	summary, err := svc.SummarizePaper(context.Background(), "U1", paper.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fresh summary.", summary)

	stored, err := papers.GetPaper(paper.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fresh summary.", stored.Summary)
}

func TestSummarizeTextRequiresAPIKey(t *testing.T) {
	svc, _, _ := newSubmissionService(t, &fakeSummarizer{summary: "S"}, &fakeAbstractFetcher{})

	_, err := svc.SummarizeText(context.Background(), "U1", "free text")

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}
