package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/techposter/internal/logger"
	"github.com/deusflow/techposter/internal/news"
)

func TestFetch_ReturnsPostTexts(t *testing.T) {
	var gotQuery, gotMax, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/tweets/search/recent", r.URL.Path)
		gotQuery = r.URL.Query().Get("query")
		gotMax = r.URL.Query().Get("max_results")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"1","text":"AI news today"},{"id":"2","text":"  "},{"id":"3","text":"tech gadgets"}],"meta":{"result_count":3}}`))
	}))
	defer srv.Close()

	s := NewSource(srv.URL, "bearer-abc", "technology", 5, 5*time.Second, logger.Discard())
	got := s.Fetch(context.Background())

	assert.Equal(t, []string{"AI news today", "tech gadgets"}, news.Texts(got))
	assert.Equal(t, "https://x.com/i/web/status/1", got[0].Link)
	assert.Equal(t, SourceName, got[0].Source)
	assert.Equal(t, "technology -is:retweet lang:en", gotQuery)
	assert.Equal(t, "10", gotMax)
	assert.Equal(t, "Bearer bearer-abc", gotAuth)
}

func TestFetch_ErrorsYieldEmpty(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		s := NewSource(srv.URL, "t", "ai", 10, 5*time.Second, logger.Discard())
		assert.Empty(t, s.Fetch(context.Background()), "status %d", status)
		srv.Close()
	}
}

func TestFetch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	}))
	defer srv.Close()

	s := NewSource(srv.URL, "t", "ai", 10, 5*time.Second, logger.Discard())
	assert.Empty(t, s.Fetch(context.Background()))
}

func TestFetch_EmptyKeywordSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	s := NewSource(srv.URL, "t", "  ", 10, 5*time.Second, logger.Discard())
	assert.Empty(t, s.Fetch(context.Background()))
	assert.False(t, called)
}

func TestClampResults(t *testing.T) {
	assert.Equal(t, 10, clampResults(0))
	assert.Equal(t, 50, clampResults(50))
	assert.Equal(t, 100, clampResults(500))
}
