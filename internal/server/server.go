package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"codedepartament.ru/sbp/internal/config"
	"codedepartament.ru/sbp/internal/middleware"
	"codedepartament.ru/sbp/internal/scheduler"
	"codedepartament.ru/sbp/internal/worker"
	"codedepartament.ru/sbp/pkg/database"
	"codedepartament.ru/sbp/pkg/ratelimiter"
	"codedepartament.ru/sbp/pkg/sheets"
	"codedepartament.ru/sbp/pkg/storage"

	catalogHttp "codedepartament.ru/sbp/internal/modules/catalog/delivery/http"
	catalogRepo "codedepartament.ru/sbp/internal/modules/catalog/repository"
	catalogService "codedepartament.ru/sbp/internal/modules/catalog/service"

	competitionHttp "codedepartament.ru/sbp/internal/modules/competition/delivery/http"
	competitionRepo "codedepartament.ru/sbp/internal/modules/competition/repository"
	competitionService "codedepartament.ru/sbp/internal/modules/competition/service"

	contentHttp "codedepartament.ru/sbp/internal/modules/content/delivery/http"
	contentRepo "codedepartament.ru/sbp/internal/modules/content/repository"
	contentService "codedepartament.ru/sbp/internal/modules/content/service"

	exportHttp "codedepartament.ru/sbp/internal/modules/export/delivery/http"
	exportRepo "codedepartament.ru/sbp/internal/modules/export/repository"
	exportService "codedepartament.ru/sbp/internal/modules/export/service"

	notiHttp "codedepartament.ru/sbp/internal/modules/notification/delivery/http"
	notifRepo "codedepartament.ru/sbp/internal/modules/notification/repository"
	notifSender "codedepartament.ru/sbp/internal/modules/notification/sender"
	notifService "codedepartament.ru/sbp/internal/modules/notification/service"

	ratingHttp "codedepartament.ru/sbp/internal/modules/rating/delivery/http"
	ratingRepo "codedepartament.ru/sbp/internal/modules/rating/repository"
	ratingService "codedepartament.ru/sbp/internal/modules/rating/service"

	searchHttp "codedepartament.ru/sbp/internal/modules/search/delivery/http"
	searchService "codedepartament.ru/sbp/internal/modules/search/service"

	teamHttp "codedepartament.ru/sbp/internal/modules/team/delivery/http"
	teamRepo "codedepartament.ru/sbp/internal/modules/team/repository"
	teamService "codedepartament.ru/sbp/internal/modules/team/service"

	userHttp "codedepartament.ru/sbp/internal/modules/user/delivery/http"
	userRepo "codedepartament.ru/sbp/internal/modules/user/repository"
	userService "codedepartament.ru/sbp/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const notificationJobTimeout = 30 * time.Second

type Server struct {
	engine      *gin.Engine
	http        *http.Server
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   *scheduler.Scheduler
	pool        *worker.Pool
	search      searchService.SearchService
}

// NewServer builds every module. redisClient may be nil; caching, rate limits
// and live notification fan-out are then disabled.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	tx := database.NewTransactor(db)

	var images storage.ImageStorage
	if cfg.CloudinaryURL != "" || cfg.CloudinaryCloudName != "" {
		s, err := storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryCloudName)
		if err != nil {
			return nil, err
		}
		images = s
	} else {
		log.Println("⚠️ Cloudinary is not configured, news images are disabled")
	}

	meiliHost := cfg.MeiliSearchHost
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}
	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	searchSvc := searchService.NewSearchService(meiliClient)
	searchHandler := searchHttp.NewSearchHandler(searchSvc)

	// Notification Module
	pool := worker.NewPool(cfg.NotificationWorkers, cfg.NotificationQueue, notificationJobTimeout)
	accountRepository := notifRepo.NewAccountRepository(db)
	var sender notifSender.Sender
	if cfg.TelegramToken != "" {
		s, err := notifSender.NewTelegramSender(cfg.TelegramToken, accountRepository)
		if err != nil {
			log.Printf("⚠️ Telegram delivery disabled: %v", err)
		} else {
			sender = s
		}
	}
	notificationRepository := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notificationRepository, redisClient, sender, pool)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, redisClient)

	catalogRepository := catalogRepo.NewCatalogRepository(db)
	catalogSvc := catalogService.NewCatalogService(catalogRepository)
	catalogHandler := catalogHttp.NewCatalogHandler(catalogSvc)

	var leaderboardCache ratingRepo.LeaderboardCache
	if redisClient != nil {
		leaderboardCache = ratingRepo.NewLeaderboardCache(redisClient)
	}
	ratingSvc := ratingService.NewRatingService(ratingRepo.NewRatingRepository(db), leaderboardCache)
	ratingHandler := ratingHttp.NewRatingHandler(ratingSvc)

	userRepository := userRepo.NewUserRepository(db)
	authSvc := userService.NewAuthService(userRepository, catalogSvc, notificationSvc, cfg.JWTSecret, cfg.JWTTTL)
	userSvc := userService.NewUserService(userRepository, notificationSvc)
	userHandler := userHttp.NewUserHandler(authSvc, userSvc)

	competitionRepository := competitionRepo.NewCompetitionRepository(db)
	competitionSvc := competitionService.NewCompetitionService(competitionService.Deps{
		Competitions:    competitionRepository,
		Applications:    competitionRepo.NewApplicationRepository(db),
		Users:           userRepository,
		Catalog:         catalogSvc,
		Ratings:         ratingSvc,
		Tx:              tx,
		Notifier:        notificationSvc,
		Indexer:         searchSvc,
		FullRegionCount: cfg.FullRegionCount,
	})
	competitionHandler := competitionHttp.NewCompetitionHandler(competitionSvc)

	teamSvc := teamService.NewTeamService(teamService.Deps{
		Teams:           teamRepo.NewTeamRepository(db),
		Invitations:     teamRepo.NewInvitationRepository(db),
		Applications:    teamRepo.NewTeamApplicationRepository(db),
		Vacancies:       teamRepo.NewVacancyRepository(db),
		Competitions:    competitionRepository,
		Users:           userRepository,
		Ratings:         ratingSvc,
		Tx:              tx,
		Notifier:        notificationSvc,
		FullRegionCount: cfg.FullRegionCount,
	})
	teamHandler := teamHttp.NewTeamHandler(teamSvc)

	contentSvc := contentService.NewContentService(contentRepo.NewContentRepository(db), images, searchSvc, cfg.CloudinaryUploadFolder)
	contentHandler := contentHttp.NewContentHandler(contentSvc)

	var sheetWriter exportService.SheetWriter
	if cfg.GoogleServiceAccountJSON != "" && cfg.SpreadsheetID != "" {
		client, err := sheets.New(context.Background(), cfg.GoogleServiceAccountJSON, cfg.SpreadsheetID)
		if err != nil {
			log.Printf("⚠️ Google Sheets export disabled: %v", err)
		} else {
			sheetWriter = client
		}
	}
	exportSvc := exportService.NewExportService(exportRepo.NewExportRepository(db), sheetWriter)
	exportHandler := exportHttp.NewExportHandler(exportSvc)

	sched := scheduler.New()
	jobs := []scheduler.Job{
		scheduler.NewStatusRefreshJob(competitionSvc, cfg.StatusRefreshSchedule),
		scheduler.NewLeaderboardSyncJob(ratingSvc, cfg.LeaderboardSyncSchedule),
	}
	if cfg.NewsFeedURL != "" {
		jobs = append(jobs, scheduler.NewNewsFeedJob(scheduler.NewFeedFetcher(), contentSvc, cfg.NewsFeedURL, cfg.NewsFeedLimit, cfg.NewsFeedSchedule))
	}
	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			return nil, err
		}
	}

	limiter := ratelimiter.New(redisClient)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/notifications/ws"},
	}))

	authMiddleware := middleware.NewAuthMiddleware(userRepository, cfg.JWTSecret)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	auth.Use(limiter.PerClient("auth", cfg.RateLimitAuth))
	{
		auth.POST("/register", userHandler.Register)
		auth.POST("/login", userHandler.Login)
	}

	api.GET("/regions", catalogHandler.ListRegions)
	api.GET("/disciplines", catalogHandler.ListDisciplines)
	api.GET("/roles", catalogHandler.ListRoles)
	api.GET("/faq", contentHandler.ListFAQ)
	api.GET("/news", contentHandler.ListNews)
	api.GET("/news/search", searchHandler.SearchNews)
	api.GET("/news/:id", contentHandler.GetNews)
	api.GET("/competitions", competitionHandler.List)
	api.GET("/competitions/search", searchHandler.SearchCompetitions)
	api.GET("/competitions/export", exportHandler.DownloadCSV)
	api.GET("/competitions/region/:region_id", competitionHandler.ListForRegion)
	api.GET("/competitions/:id", competitionHandler.Get)
	api.GET("/competitions/:id/participants", competitionHandler.ListParticipants)
	api.GET("/leaderboard", ratingHandler.GetLeaderboard)
	api.GET("/users", userHandler.ListByRating)
	api.GET("/regional-representatives", userHandler.ListRegionalRepresentatives)
	api.GET("/teams/public", teamHandler.ListPublicTeams)

	// Protected routes
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/profile", userHandler.GetProfile)
		protected.PUT("/profile", userHandler.UpdateProfile)
		protected.GET("/users/history", userHandler.GetHistory)
		protected.GET("/users/rank", ratingHandler.GetMyRank)

		// Competition routes
		protected.POST("/competitions", competitionHandler.Create)
		protected.GET("/competitions/organized", competitionHandler.ListOrganized)
		protected.POST("/competitions/:id/complete", competitionHandler.Complete)
		protected.POST("/competitions/:id/results", competitionHandler.DistributeResults)

		// Application routes
		applications := limiter.PerClient("application", cfg.RateLimitApplication)
		protected.POST("/user-applications", applications, competitionHandler.SubmitApplication)
		protected.GET("/user-applications", competitionHandler.ListMyApplications)
		protected.POST("/user-applications/:id/decision", competitionHandler.DecideApplication)
		protected.GET("/organizer/user-applications", competitionHandler.ListOrganizerApplications)

		// Team routes
		protected.POST("/teams", teamHandler.CreateTeam)
		protected.GET("/user/teams", teamHandler.ListUserTeams)
		protected.POST("/invitations", teamHandler.Invite)
		protected.GET("/user/invitations", teamHandler.ListInvitations)
		protected.POST("/invitations/:id/respond", teamHandler.RespondToInvitation)
		protected.POST("/team-applications", applications, teamHandler.SubmitTeamApplication)
		protected.POST("/team-applications/:id/decision", teamHandler.DecideTeamApplication)
		protected.GET("/organizer/team-applications", teamHandler.ListOrganizerTeamApplications)
		protected.POST("/vacancy-responses", applications, teamHandler.RespondToVacancy)
		protected.GET("/vacancy-responses", teamHandler.ListCaptainVacancyResponses)
		protected.GET("/user/vacancy-responses", teamHandler.ListUserVacancyResponses)
		protected.POST("/vacancy-responses/:id/decision", teamHandler.DecideVacancyResponse)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		// Moderator routes
		moderator := protected.Group("")
		moderator.Use(authMiddleware.RequireModerator())
		{
			moderator.GET("/competitions/pending", competitionHandler.ListPending)
			moderator.POST("/competitions/:id/decision", competitionHandler.Decide)
			moderator.POST("/competitions/status", competitionHandler.RefreshStatuses)
			moderator.POST("/competitions/:id/export/sheets", exportHandler.PushToSheets)
			moderator.GET("/approvals", userHandler.ListPendingApprovals)
			moderator.POST("/approvals/:user_id", userHandler.DecideApproval)
			moderator.POST("/faq", contentHandler.CreateFAQ)
			moderator.DELETE("/faq/:id", contentHandler.DeleteFAQ)
			moderator.POST("/news", contentHandler.CreateNews)
			moderator.DELETE("/news/:id", contentHandler.DeleteNews)
			moderator.POST("/notifications/broadcast", notificationHandler.Broadcast)
		}
	}

	return &Server{
		engine: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		db:          db,
		redisClient: redisClient,
		scheduler:   sched,
		pool:        pool,
		search:      searchSvc,
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start launches the background machinery: notification workers, search
// index settings and scheduled jobs.
func (s *Server) Start() {
	s.pool.Start()
	go s.search.Init()
	s.scheduler.Start()
}

// Run serves HTTP until Shutdown is called.
func (s *Server) Run() error {
	log.Printf("🚀 Server listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.scheduler.Stop()

	err := s.http.Shutdown(ctx)

	timeout := 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if perr := s.pool.Shutdown(timeout); perr != nil {
		log.Printf("⚠️ Notification workers did not drain: %v", perr)
	}
	return err
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
