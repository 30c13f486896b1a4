package marketplace

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/feed"
)

// fakeFeeds stands in for the feeds API and the upload/report storage.
type fakeFeeds struct {
	srv *httptest.Server

	throttle     int32 // number of create-feed calls answered with 429
	uploadStatus int
	statuses     []string
	resultDoc    string
	report       []byte
	gzipReport   bool

	createFeedCalls atomic.Int32
	getFeedCalls    atomic.Int32
	uploaded        []byte
	uploadedType    string
	registered      createFeedRequest
}

func newFakeFeeds(t *testing.T) *fakeFeeds {
	t.Helper()

	f := &fakeFeeds{uploadStatus: http.StatusOK}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /feeds/2021-06-30/documents", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-1", r.Header.Get("x-amz-access-token"))

		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		f.uploadedType = in["contentType"]

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(DocumentTarget{DocumentID: "doc-1", URL: f.srv.URL + "/upload/doc-1"})
	})

	mux.HandleFunc("PUT /upload/doc-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, f.uploadedType, r.Header.Get("Content-Type"))
		f.uploaded, _ = io.ReadAll(r.Body)
		if f.uploadStatus != http.StatusOK {
			w.WriteHeader(f.uploadStatus)
			_, _ = w.Write([]byte("<Error>AccessDenied</Error>"))
		}
	})

	mux.HandleFunc("POST /feeds/2021-06-30/feeds", func(w http.ResponseWriter, r *http.Request) {
		n := f.createFeedCalls.Add(1)
		if n <= f.throttle {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"errors":[{"code":"QuotaExceeded"}]}`))
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.registered))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"feedId":"feed-42"}`))
	})

	mux.HandleFunc("GET /feeds/2021-06-30/feeds/feed-42", func(w http.ResponseWriter, r *http.Request) {
		n := int(f.getFeedCalls.Add(1))
		st := f.statuses[len(f.statuses)-1]
		if n <= len(f.statuses) {
			st = f.statuses[n-1]
		}
		out := map[string]string{"feedId": "feed-42", "feedType": "POST_FLAT_FILE_LISTINGS_DATA", "processingStatus": st}
		if st == "DONE" && f.resultDoc != "" {
			out["resultFeedDocumentId"] = f.resultDoc
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("GET /feeds/2021-06-30/documents/report-1", func(w http.ResponseWriter, r *http.Request) {
		ref := DocumentRef{DocumentID: "report-1", URL: f.srv.URL + "/reports/report-1"}
		if f.gzipReport {
			ref.CompressionAlgorithm = "GZIP"
		}
		_ = json.NewEncoder(w).Encode(ref)
	})

	mux.HandleFunc("GET /reports/report-1", func(w http.ResponseWriter, r *http.Request) {
		if !f.gzipReport {
			_, _ = w.Write(f.report)
			return
		}
		zw := gzip.NewWriter(w)
		_, _ = zw.Write(f.report)
		_ = zw.Close()
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeFeeds) client(retries int, onRetry func(int)) *Client {
	return New(Config{
		Endpoint:          f.srv.URL,
		MarketplaceID:     "ATVPDKIKX0DER",
		RequestsPerSecond: 1000,
		Burst:             100,
		RegisterRetries:   retries,
		RegisterBackoff:   NoWait{},
		OnRetry:           onRetry,
	}, StaticToken("token-1"))
}

func testPayload() feed.Payload {
	return feed.Payload{
		Encoding:    "tabular",
		FeedType:    domain.FeedTypeFlatFileListings,
		ContentType: "text/tab-separated-values; charset=UTF-8",
		Body:        []byte("item_sku\nFunnyDog-Parent\n"),
		Records:     1,
	}
}

func TestSubmit_RunsCreateUploadRegister(t *testing.T) {
	f := newFakeFeeds(t)

	h, err := f.client(0, nil).Submit(context.Background(), testPayload())
	require.NoError(t, err)

	assert.Equal(t, StateRegistered, h.State)
	assert.Equal(t, "doc-1", h.DocumentID)
	assert.Equal(t, "feed-42", h.FeedID)
	assert.Equal(t, testPayload().Body, f.uploaded)
	assert.Equal(t, createFeedRequest{
		FeedType:            domain.FeedTypeFlatFileListings,
		MarketplaceIDs:      []string{"ATVPDKIKX0DER"},
		InputFeedDocumentID: "doc-1",
	}, f.registered)
}

func TestSubmit_UploadFailureNeverRegisters(t *testing.T) {
	f := newFakeFeeds(t)
	f.uploadStatus = http.StatusForbidden

	h, err := f.client(0, nil).Submit(context.Background(), testPayload())
	require.Error(t, err)

	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusForbidden, ue.StatusCode)
	assert.Contains(t, ue.Body, "AccessDenied")

	assert.Equal(t, StateCreated, h.State)
	assert.Empty(t, h.FeedID)
	assert.Equal(t, int32(0), f.createFeedCalls.Load())
}

func TestCreateFeed_RetriesAfterRateLimit(t *testing.T) {
	f := newFakeFeeds(t)
	f.throttle = 2

	var retries []int
	id, err := f.client(3, func(n int) { retries = append(retries, n) }).
		CreateFeed(context.Background(), domain.FeedTypeFlatFileListings, "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "feed-42", id)
	assert.Equal(t, int32(3), f.createFeedCalls.Load())
	assert.Equal(t, []int{1, 2}, retries)
}

func TestCreateFeed_RetryBudgetExhausted(t *testing.T) {
	f := newFakeFeeds(t)
	f.throttle = 100

	_, err := f.client(3, nil).CreateFeed(context.Background(), domain.FeedTypeFlatFileListings, "doc-1")

	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, domain.StatusOf(err))
	assert.Equal(t, int32(4), f.createFeedCalls.Load())
}

func TestCreateFeed_NoRetriesWhenDisabled(t *testing.T) {
	f := newFakeFeeds(t)
	f.throttle = 1

	_, err := f.client(-1, nil).CreateFeed(context.Background(), domain.FeedTypeFlatFileListings, "doc-1")

	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), f.createFeedCalls.Load())
}

func TestReport_DoneWithResultDocument(t *testing.T) {
	f := newFakeFeeds(t)
	f.statuses = []string{"DONE"}
	f.resultDoc = "report-1"
	f.report = []byte("Feed Processing Summary:\n\tNumber of records processed\t\t28\n")

	c := f.client(0, nil)
	st, err := c.GetFeed(context.Background(), "feed-42")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, st.Status)

	text, ok, err := c.Report(context.Background(), st)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, string(f.report), text)
}

func TestReport_DoneWithoutResultDocument(t *testing.T) {
	f := newFakeFeeds(t)
	f.statuses = []string{"DONE"}

	c := f.client(0, nil)
	st, err := c.GetFeed(context.Background(), "feed-42")
	require.NoError(t, err)

	text, ok, err := c.Report(context.Background(), st)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, ReportNotAvailable, text)
}

func TestReport_Gzip(t *testing.T) {
	f := newFakeFeeds(t)
	f.resultDoc = "report-1"
	f.report = []byte("all good")
	f.gzipReport = true

	text, ok, err := f.client(0, nil).Report(context.Background(), FeedStatus{
		FeedID:           "feed-42",
		Status:           domain.StatusDone,
		ResultDocumentID: "report-1",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "all good", text)
}

func TestWaitForFeed_StopsAtTerminal(t *testing.T) {
	f := newFakeFeeds(t)
	f.statuses = []string{"IN_QUEUE", "IN_PROGRESS", "DONE"}

	st, err := f.client(0, nil).WaitForFeed(context.Background(), "feed-42", Poll{Attempts: 10})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, st.Status)
	assert.Equal(t, int32(3), f.getFeedCalls.Load())
}

func TestWaitForFeed_BudgetExhausted(t *testing.T) {
	f := newFakeFeeds(t)
	f.statuses = []string{"IN_PROGRESS"}

	st, err := f.client(0, nil).WaitForFeed(context.Background(), "feed-42", Poll{Attempts: 2})
	require.ErrorIs(t, err, ErrPollBudgetExhausted)
	assert.Equal(t, domain.StatusInProgress, st.Status)
	assert.Equal(t, int32(2), f.getFeedCalls.Load())
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.ProcessingStatus
	}{
		{"IN_QUEUE", domain.StatusSubmitted},
		{"IN_PROGRESS", domain.StatusInProgress},
		{"DONE", domain.StatusDone},
		{"FATAL", domain.StatusError},
		{"CANCELLED", domain.StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := MapStatus(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := MapStatus("PAUSED")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestFixedBackoff_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := FixedBackoff{Interval: time.Hour}.Wait(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenSource_CachesUntilExpiry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))

		n := hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "Atza|" + string(rune('0'+n)),
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := &TokenSource{
		TokenURL:     srv.URL,
		ClientID:     "cid",
		ClientSecret: "secret",
		RefreshToken: "rt",
		now:          func() time.Time { return now },
	}

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Atza|1", tok)

	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Atza|1", tok)

	now = now.Add(time.Hour)
	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Atza|2", tok)
	assert.Equal(t, int32(2), hits.Load())
}

func TestTokenSource_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	_, err := (&TokenSource{TokenURL: srv.URL}).Token(context.Background())

	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "lwa", ue.Service)
	assert.True(t, bytes.Contains([]byte(ue.Body), []byte("invalid_grant")))
}
