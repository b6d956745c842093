package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"paperwhale/ai"
	"paperwhale/config"
	"paperwhale/models"
	"paperwhale/providers/arxiv"
	"paperwhale/services"
	"paperwhale/slackbot"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	newPapersCounter     prometheus.Counter
	notificationsCounter prometheus.Counter
)

func init() {
	newPapersCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "new_papers_added_total",
			Help: "Total number of new papers added to the database.",
		},
	)
	notificationsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paper_notifications_sent_total",
			Help: "Total number of paper notifications sent to subscribers.",
		},
	)
	prometheus.MustRegister(newPapersCounter, notificationsCounter)
}

// countingNotifier zählt erfolgreich zugestellte Benachrichtigungen mit.
type countingNotifier struct {
	inner *slackbot.Notifier
}

func (n *countingNotifier) SendNewPaperNotification(ctx context.Context, slackUserID, keyword string, paper *models.Paper) error {
	if err := n.inner.SendNewPaperNotification(ctx, slackUserID, keyword, paper); err != nil {
		return err
	}
	notificationsCounter.Inc()
	return nil
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	db.AutoMigrate(&models.Paper{}, &models.Author{}, &models.Keyword{},
		&models.User{}, &models.UserKeyword{}, &models.UserAuthor{})

	// Setup Services
	paperService := services.NewPaperService(db, logging)
	userService := services.NewUserService(db, logging)
	subscriptionService := services.NewSubscriptionService(db, logging, userService)
	arxivFetcher := arxiv.NewFetcher(cfg, logging)
	geminiClient := ai.NewClient(cfg, logging)
	submissionService := services.NewSubmissionService(logging, paperService, userService, geminiClient, arxivFetcher, cfg.GeminiAPIKey)

	slackAPI := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))
	notifier := slackbot.NewNotifier(slackAPI, logging)
	pollService := services.NewPollService(logging, paperService, subscriptionService,
		arxivFetcher, &countingNotifier{inner: notifier})

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to PaperWhale API!"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupPaperRoutes(router, paperService, logging)
	setupSlackRoutes(router, cfg, logging)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled poll job...")
		newPapers, failures := pollService.RunOnce(context.Background())
		logging.Info("Poll job completed",
			zap.Int("new_papers", newPapers),
			zap.Int("failures", failures))
		newPapersCounter.Add(float64(newPapers))
	})
	cronScheduler.Start()

	// Socket-Mode-Bot parallel zum HTTP-Server
	bot := slackbot.NewBot(slackAPI, logging, paperService, subscriptionService,
		userService, submissionService, notifier)
	go func() {
		if err := bot.Run(context.Background()); err != nil {
			logging.Fatal("Slack bot stopped", zap.Error(err))
		}
	}()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupPaperRoutes(router *gin.Engine, papers *services.PaperService, log *zap.Logger) {
	rg := router.Group("/papers")

	rg.GET("/", func(c *gin.Context) {
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		result, err := papers.GetPapers(offset, limit)
		if err != nil {
			log.Error("Database query for papers failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	rg.GET("/search", func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
			return
		}
		result, err := papers.SearchPapers(query)
		if err != nil {
			log.Error("Paper search failed", zap.String("query", query), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paper id"})
			return
		}
		paper, err := papers.GetPaper(uint(id))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if paper == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
			return
		}
		c.JSON(http.StatusOK, paper)
	})

	rg.POST("/", func(c *gin.Context) {
		var req models.PaperCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.Title == "" || req.URL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title and url are required"})
			return
		}
		existing, err := papers.GetPaperByURLOrArxivID(req.URL, req.ArxivID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "paper already exists", "id": existing.ID})
			return
		}
		paper, err := papers.CreatePaper(req)
		if err != nil {
			log.Error("Paper creation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusCreated, paper)
	})

	rg.PATCH("/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paper id"})
			return
		}
		var req models.PaperUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		paper, err := papers.UpdatePaper(uint(id), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if paper == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
			return
		}
		c.JSON(http.StatusOK, paper)
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paper id"})
			return
		}
		deleted, err := papers.DeletePaper(uint(id))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

// setupSlackRoutes registriert den Events-Webhook. Der Bot läuft im Socket
// Mode; der Webhook beantwortet die URL-Verifikation und nimmt Events
// signaturgeprüft entgegen.
func setupSlackRoutes(router *gin.Engine, cfg *config.Config, log *zap.Logger) {
	router.POST("/slack/events", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}

		verifier, err := slack.NewSecretsVerifier(c.Request.Header, cfg.SlackSigningSecret)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		if _, err := verifier.Write(body); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		if err := verifier.Ensure(); err != nil {
			log.Warn("Slack-Signatur ungültig", zap.Error(err))
			c.Status(http.StatusUnauthorized)
			return
		}

		event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}

		if event.Type == slackevents.URLVerification {
			var challenge slackevents.ChallengeResponse
			if err := json.Unmarshal(body, &challenge); err != nil {
				c.Status(http.StatusBadRequest)
				return
			}
			c.String(http.StatusOK, challenge.Challenge)
			return
		}

		c.Status(http.StatusOK)
	})
}
