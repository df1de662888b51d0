package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"theme-miner/config"
	"theme-miner/oracle"
	"theme-miner/services"
	"theme-miner/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	themesMergedCounter    prometheus.Counter
	subthemesMergedCounter prometheus.Counter
)

func init() {
	themesMergedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "themes_merged_total",
			Help: "Total number of themes merged by consolidation runs.",
		},
	)
	subthemesMergedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subthemes_merged_total",
			Help: "Total number of subthemes merged by consolidation runs.",
		},
	)
	prometheus.MustRegister(themesMergedCounter, subthemesMergedCounter)
}

// registerCountGauges exportiert die aktuellen Tabellen-Größen, damit das
// Dashboard den Korpus-Stand ohne DB-Zugriff sieht.
func registerCountGauges(st *store.Store) {
	gauges := []struct {
		name string
		help string
		read func(store.Counts) int64
	}{
		{"papers_analyzed", "Number of papers in the result set.", func(c store.Counts) int64 { return c.Papers }},
		{"themes_current", "Current number of themes.", func(c store.Counts) int64 { return c.Themes }},
		{"subthemes_current", "Current number of subthemes.", func(c store.Counts) int64 { return c.Subthemes }},
		{"codes_current", "Current number of codes.", func(c store.Counts) int64 { return c.Codes }},
	}
	for _, g := range gauges {
		read := g.read
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 {
				counts, err := st.CountAll()
				if err != nil {
					return -1
				}
				return float64(read(counts))
			},
		))
	}
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
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

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to thematic analysis database.")

	st := store.New(db, logging)
	// Nur fehlende Tabellen anlegen; der destruktive Reset gehört allein in
	// die Pipeline (cmd/pipeline).
	if err := st.AutoMigrate(); err != nil {
		logging.Fatal("Database auto-migration failed", zap.Error(err))
	}
	registerCountGauges(st)

	oracleClient, err := oracle.NewClient(cfg, logging)
	if err != nil {
		logging.Fatal("Oracle client creation failed", zap.Error(err))
	}

	consolidator := services.NewConsolidator(cfg, st, oracleClient, logging)
	reporter := services.NewReporter(db, st, logging)

	router := gin.Default()
	router.Use(gin.Recovery())
	// Das Dashboard läuft auf einem anderen Origin
	router.Use(cors.Default())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupAnalysisRoutes(router, reporter, logging)
	setupConsolidationRoutes(router, consolidator, logging)
	setupHealthRoutes(router)

	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled consolidation job...")
		stats, err := consolidator.Run(context.Background())
		if err != nil {
			logging.Error("Scheduled consolidation failed", zap.Error(err))
			return
		}
		themesMergedCounter.Add(float64(stats.ThemesMerged))
		subthemesMergedCounter.Add(float64(stats.SubthemesMerged))
		logging.Info("Scheduled consolidation completed",
			zap.Int("themes_merged", stats.ThemesMerged),
			zap.Int("subthemes_merged", stats.SubthemesMerged))
	})
	cronScheduler.Start()

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

func setupAnalysisRoutes(router *gin.Engine, reporter *services.Reporter, log *zap.Logger) {
	rg := router.Group("/api")

	// Kompletter Report: Themes → Subthemes → Codes/Zitate + Referenzen
	rg.GET("/thematic-analysis", func(c *gin.Context) {
		report, err := reporter.ThematicAnalysis()
		if err != nil {
			log.Error("Building thematic analysis report failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch thematic analysis data"})
			return
		}
		c.JSON(http.StatusOK, report)
	})

	// Einzelnes Paper über die Referenznummer
	rg.GET("/papers/:referenceNumber", func(c *gin.Context) {
		refNum, err := strconv.Atoi(c.Param("referenceNumber"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reference number"})
			return
		}
		paper, err := reporter.PaperByReference(refNum)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Paper not found"})
				return
			}
			log.Error("Paper lookup failed", zap.Int("reference_number", refNum), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, paper)
	})
}

func setupConsolidationRoutes(router *gin.Engine, consolidator *services.Consolidator, log *zap.Logger) {
	rg := router.Group("/api/consolidation")

	// Konsolidierung asynchron anstoßen; der Fortschritt steht im Log.
	rg.POST("/run", func(c *gin.Context) {
		go func() {
			stats, err := consolidator.Run(context.Background())
			if err != nil {
				log.Error("Async consolidation failed", zap.Error(err))
				return
			}
			themesMergedCounter.Add(float64(stats.ThemesMerged))
			subthemesMergedCounter.Add(float64(stats.SubthemesMerged))
			log.Info("Async consolidation completed",
				zap.Int("themes_merged", stats.ThemesMerged),
				zap.Int("subthemes_merged", stats.SubthemesMerged))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Consolidation triggered."})
	})
}

func setupHealthRoutes(router *gin.Engine) {
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
}
