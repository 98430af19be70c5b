package scheduler

import (
	"context"
	"log"
	"time"

	competitionDto "codedepartament.ru/sbp/internal/modules/competition/dto"
	contentDto "codedepartament.ru/sbp/internal/modules/content/dto"
)

const (
	JobStatusRefresh   = "competition-status-refresh"
	JobLeaderboardSync = "leaderboard-sync"
	JobNewsFeed        = "news-feed-import"
)

type StatusRefresher interface {
	RefreshStatuses(ctx context.Context, t time.Time) (*competitionDto.StatusReport, error)
}

type LeaderboardSyncer interface {
	SyncLeaderboard(ctx context.Context) (int, error)
}

type NewsImporter interface {
	ImportNews(ctx context.Context, items []contentDto.FeedItem) (int, error)
}

type Feed interface {
	Fetch(ctx context.Context, url string, limit int) ([]contentDto.FeedItem, error)
}

type statusRefreshJob struct {
	svc      StatusRefresher
	schedule string
	now      func() time.Time
}

func NewStatusRefreshJob(svc StatusRefresher, schedule string) Job {
	return &statusRefreshJob{svc: svc, schedule: schedule, now: time.Now}
}

func (j *statusRefreshJob) Name() string     { return JobStatusRefresh }
func (j *statusRefreshJob) Schedule() string { return j.schedule }

func (j *statusRefreshJob) Run(ctx context.Context) error {
	report, err := j.svc.RefreshStatuses(ctx, j.now().UTC())
	if err != nil {
		return err
	}
	if report.CompetitionsUpdated > 0 {
		log.Printf("🔄 %d competition statuses changed", report.CompetitionsUpdated)
	}
	return nil
}

type leaderboardSyncJob struct {
	svc      LeaderboardSyncer
	schedule string
}

func NewLeaderboardSyncJob(svc LeaderboardSyncer, schedule string) Job {
	return &leaderboardSyncJob{svc: svc, schedule: schedule}
}

func (j *leaderboardSyncJob) Name() string     { return JobLeaderboardSync }
func (j *leaderboardSyncJob) Schedule() string { return j.schedule }

func (j *leaderboardSyncJob) Run(ctx context.Context) error {
	n, err := j.svc.SyncLeaderboard(ctx)
	if err != nil {
		return err
	}
	log.Printf("🏆 Leaderboard cache rebuilt with %d entries", n)
	return nil
}

type newsFeedJob struct {
	feed     Feed
	importer NewsImporter
	url      string
	limit    int
	schedule string
}

func NewNewsFeedJob(feed Feed, importer NewsImporter, url string, limit int, schedule string) Job {
	return &newsFeedJob{feed: feed, importer: importer, url: url, limit: limit, schedule: schedule}
}

func (j *newsFeedJob) Name() string     { return JobNewsFeed }
func (j *newsFeedJob) Schedule() string { return j.schedule }

func (j *newsFeedJob) Run(ctx context.Context) error {
	items, err := j.feed.Fetch(ctx, j.url, j.limit)
	if err != nil {
		return err
	}
	n, err := j.importer.ImportNews(ctx, items)
	if err != nil {
		return err
	}
	log.Printf("📰 Imported %d of %d feed items from %s", n, len(items), j.url)
	return nil
}
