package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/techposter/internal/logger"
	"github.com/deusflow/techposter/internal/news"
)

const samplePage = `<html><body>
<header><h1>Site name</h1></header>
<main>
  <article><h2 class="headline">  AI chips get   faster </h2></article>
  <article><h2 class="headline">New phone launch</h2></article>
  <article><h2 class="headline">New phone launch</h2></article>
  <article><h2 class="headline"></h2></article>
  <article><h2 class="headline">Robotics startup raises funds</h2></article>
</main>
</body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractHeadlines_Selector(t *testing.T) {
	got := ExtractHeadlines(mustDoc(t, samplePage), "h2.headline", 10)
	assert.Equal(t, []string{"AI chips get faster", "New phone launch", "Robotics startup raises funds"}, got)
}

func TestExtractHeadlines_Limit(t *testing.T) {
	got := ExtractHeadlines(mustDoc(t, samplePage), "h2.headline", 2)
	assert.Equal(t, []string{"AI chips get faster", "New phone launch"}, got)
}

func TestExtractHeadlines_GenericFallback(t *testing.T) {
	got := ExtractHeadlines(mustDoc(t, samplePage), "", 10)
	assert.Equal(t, "AI chips get faster", got[0])
	assert.NotContains(t, got, "Site name")
}

func TestExtractHeadlines_NoMatch(t *testing.T) {
	assert.Empty(t, ExtractHeadlines(mustDoc(t, "<html><body><p>x</p></body></html>"), "", 10))
}

func TestFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	s := NewSource([]Page{
		{URL: srv.URL + "/down"},
		{URL: srv.URL + "/news", Selector: "h2.headline"},
	}, 2, 5*time.Second, "techposter/1.0", logger.Discard())

	got := s.Fetch(context.Background())
	assert.Equal(t, []string{"AI chips get faster", "New phone launch"}, news.Texts(got))
	assert.Equal(t, SourceName, got[0].Source)
	assert.Equal(t, srv.URL+"/news", got[0].Link)
	assert.Equal(t, "techposter/1.0", gotUA)
}

func TestFetch_UnreachableYieldsEmpty(t *testing.T) {
	s := NewSource([]Page{{URL: "http://127.0.0.1:1/nothing"}}, 0, time.Second, "", logger.Discard())
	assert.Empty(t, s.Fetch(context.Background()))
}
