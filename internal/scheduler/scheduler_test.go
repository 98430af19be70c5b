package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	competitionDto "codedepartament.ru/sbp/internal/modules/competition/dto"
	contentDto "codedepartament.ru/sbp/internal/modules/content/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name     string
	schedule string
	runs     atomic.Int32
	block    chan struct{}
	err      error
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		<-j.block
	}
	return j.err
}

func TestRegisterRejectsBadSchedule(t *testing.T) {
	s := New()
	err := s.Register(&stubJob{name: "bad", schedule: "every tuesday"})
	assert.Error(t, err)
}

func TestRunByName(t *testing.T) {
	s := New()
	job := &stubJob{name: "sync"}
	require.NoError(t, s.Register(job))
	assert.Equal(t, []string{"sync"}, s.Jobs())

	require.NoError(t, s.RunByName(context.Background(), "sync"))
	assert.Equal(t, int32(1), job.runs.Load())

	assert.Error(t, s.RunByName(context.Background(), "missing"))

	job.err = errors.New("boom")
	assert.EqualError(t, s.RunByName(context.Background(), "sync"), "boom")
}

func TestRunSkipsOverlappingExecution(t *testing.T) {
	s := New()
	job := &stubJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(job))

	done := make(chan error)
	go func() { done <- s.RunByName(context.Background(), "slow") }()
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.RunByName(context.Background(), "slow"))
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.block)
	require.NoError(t, <-done)
}

func TestStartStop(t *testing.T) {
	s := New()
	require.NoError(t, s.Register(&stubJob{name: "tick", schedule: "@every 1h"}))
	s.Start()
	s.Stop()
}

type fakeRefresher struct {
	at time.Time
}

func (f *fakeRefresher) RefreshStatuses(_ context.Context, t time.Time) (*competitionDto.StatusReport, error) {
	f.at = t
	return &competitionDto.StatusReport{CompetitionsUpdated: 2}, nil
}

func TestStatusRefreshJobUsesUTC(t *testing.T) {
	svc := &fakeRefresher{}
	job := NewStatusRefreshJob(svc, "*/5 * * * *").(*statusRefreshJob)
	local := time.Date(2025, 5, 1, 12, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	job.now = func() time.Time { return local }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, time.UTC, svc.at.Location())
	assert.True(t, svc.at.Equal(local))
}

type fakeSyncer struct{ err error }

func (f fakeSyncer) SyncLeaderboard(context.Context) (int, error) { return 3, f.err }

func TestLeaderboardSyncJob(t *testing.T) {
	assert.NoError(t, NewLeaderboardSyncJob(fakeSyncer{}, "").Run(context.Background()))
	assert.Error(t, NewLeaderboardSyncJob(fakeSyncer{err: errors.New("redis down")}, "").Run(context.Background()))
}

type fakeImporter struct {
	items []contentDto.FeedItem
}

func (f *fakeImporter) ImportNews(_ context.Context, items []contentDto.FeedItem) (int, error) {
	f.items = items
	return len(items), nil
}

const rss = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Federation</title>
<item><title>First</title><link>https://example.org/1</link><description>&lt;b&gt;one&lt;/b&gt;</description><pubDate>Mon, 02 Jun 2025 10:00:00 +0000</pubDate></item>
<item><title>Second</title><link>https://example.org/2</link><description>two</description></item>
<item><title>Third</title><link>https://example.org/3</link><description>three</description></item>
</channel></rss>`

func TestNewsFeedJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rss))
	}))
	defer srv.Close()

	importer := &fakeImporter{}
	job := NewNewsFeedJob(NewFeedFetcher(), importer, srv.URL, 2, "")
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, importer.items, 2)
	assert.Equal(t, "First", importer.items[0].Title)
	assert.Equal(t, "https://example.org/1", importer.items[0].Link)
	assert.Equal(t, "<b>one</b>", importer.items[0].Description)
	require.NotNil(t, importer.items[0].Published)
	assert.Equal(t, 2025, importer.items[0].Published.Year())
	assert.Nil(t, importer.items[1].Published)
}

func TestNewsFeedJobFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	job := NewNewsFeedJob(NewFeedFetcher(), &fakeImporter{}, srv.URL, 0, "")
	assert.Error(t, job.Run(context.Background()))
}
