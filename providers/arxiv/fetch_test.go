package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paperwhale/config"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.00001v1</id>
    <title>Deep Learning for
      Protein Folding</title>
    <summary>  We present a new approach.  </summary>
    <published>2023-01-02T18:30:00Z</published>
    <author><name>Jane Smith</name></author>
    <author><name>John Doe</name></author>
    <link href="http://arxiv.org/abs/2301.00001v1" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/2301.00001v1" rel="related" type="application/pdf" title="pdf"/>
  </entry>
</feed>`

func testFetcher(t *testing.T, handler http.HandlerFunc) *Fetcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		ArxivBaseURL:    server.URL,
		ArxivMaxResults: 10,
	}
	return NewFetcher(cfg, zap.NewNop())
}

func TestSearchNewPapers(t *testing.T) {
	var gotQuery map[string]string
	fetcher := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"search_query": r.URL.Query().Get("search_query"),
			"max_results":  r.URL.Query().Get("max_results"),
			"sortBy":       r.URL.Query().Get("sortBy"),
			"sortOrder":    r.URL.Query().Get("sortOrder"),
		}
		w.Write([]byte(sampleFeed))
	})

	papers := fetcher.SearchNewPapers(context.Background(), "protein folding")
	require.Len(t, papers, 1)

	assert.Equal(t, `ti:"protein folding" OR abs:"protein folding"`, gotQuery["search_query"])
	assert.Equal(t, "10", gotQuery["max_results"])
	assert.Equal(t, "submittedDate", gotQuery["sortBy"])
	assert.Equal(t, "descending", gotQuery["sortOrder"])

	paper := papers[0]
	assert.Equal(t, "Deep Learning for Protein Folding", paper.Title)
	assert.Equal(t, "http://arxiv.org/pdf/2301.00001v1", paper.URL)
	assert.Equal(t, "We present a new approach.", paper.Summary)
	assert.Equal(t, "2301.00001v1", paper.ArxivID)
	assert.Equal(t, []string{"Jane Smith", "John Doe"}, paper.AuthorNames)
	require.NotNil(t, paper.PublishedDate)
	assert.Equal(t, 2023, paper.PublishedDate.Year())
}

func TestSearchNewPapersSwallowsServerError(t *testing.T) {
	fetcher := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	papers := fetcher.SearchNewPapers(context.Background(), "anything")
	assert.Empty(t, papers)
}

func TestFetchByID(t *testing.T) {
	fetcher := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2301.00001v1", r.URL.Query().Get("id_list"))
		w.Write([]byte(sampleFeed))
	})

	paper, err := fetcher.FetchByID(context.Background(), "2301.00001v1")
	require.NoError(t, err)
	assert.Equal(t, "Deep Learning for Protein Folding", paper.Title)
	assert.Equal(t, "We present a new approach.", paper.Summary)
}

func TestFetchByIDNoEntry(t *testing.T) {
	fetcher := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	})

	_, err := fetcher.FetchByID(context.Background(), "9999.99999")
	require.Error(t, err)
}

func TestMapEntryFallsBackToAlternateLink(t *testing.T) {
	e := entry{
		ID:    "http://arxiv.org/abs/2301.00002v1",
		Title: "No PDF Link",
		Links: []link{{Href: "http://arxiv.org/abs/2301.00002v1", Rel: "alternate"}},
	}
	paper := mapEntry(e)
	assert.Equal(t, "http://arxiv.org/abs/2301.00002v1", paper.URL)
	assert.Equal(t, "2301.00002v1", paper.ArxivID)
}
