package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"3001"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Oracle (OpenAI-kompatibler Endpunkt mit Function Calling)
	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIBaseURL      string `envconfig:"OPENAI_BASE_URL"`
	ExtractionModel    string `envconfig:"EXTRACTION_MODEL" default:"gpt-4o-mini"`
	ConsolidationModel string `envconfig:"CONSOLIDATION_MODEL" default:"gpt-4o-mini"`

	// Verzeichnis mit den zu analysierenden PDFs
	PapersDir string `envconfig:"PAPERS_DIR" default:"research-papers"`

	// Rate-Limits gegenüber dem Oracle (Millisekunden)
	ExtractDelayMS int `envconfig:"EXTRACT_DELAY_MS" default:"4000"`
	ChunkDelayMS   int `envconfig:"CHUNK_DELAY_MS" default:"3000"`
	PassDelayMS    int `envconfig:"PASS_DELAY_MS" default:"2000"`

	// Chunk-Größen für die Konsolidierung. Themes tragen mehr Kontext pro
	// Eintrag und bekommen deshalb kleinere Chunks.
	ThemeChunkSize    int `envconfig:"THEME_CHUNK_SIZE" default:"30"`
	SubthemeChunkSize int `envconfig:"SUBTHEME_CHUNK_SIZE" default:"40"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 3 * * *"`

	// Unpaywall-API für freie Volltext-Links (optional)
	UnpaywallBaseURL string `envconfig:"UNPAYWALL_BASE_URL" default:"https://api.unpaywall.org/v2"`
	UnpaywallEmail   string `envconfig:"UNPAYWALL_EMAIL"`

	// S3-Archiv für analysierte Quell-PDFs (optional; leerer Bucket = aus)
	ArchiveS3Key    string `envconfig:"ARCHIVE_S3_KEY"`
	ArchiveS3Secret string `envconfig:"ARCHIVE_S3_SECRET"`
	ArchiveS3URL    string `envconfig:"ARCHIVE_S3_URL"`
	ArchiveS3Region string `envconfig:"ARCHIVE_S3_REGION"`
	ArchiveS3Bucket string `envconfig:"ARCHIVE_S3_BUCKET"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// ArchiveEnabled meldet, ob das S3-Archiv konfiguriert ist.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveS3Bucket != ""
}

// ExtractDelay ist die Mindestpause zwischen zwei Extraktions-Anfragen.
func (c *Config) ExtractDelay() time.Duration {
	return time.Duration(c.ExtractDelayMS) * time.Millisecond
}

// ChunkDelay ist die Pause zwischen zwei Konsolidierungs-Chunks.
func (c *Config) ChunkDelay() time.Duration {
	return time.Duration(c.ChunkDelayMS) * time.Millisecond
}

// PassDelay ist die Pause zwischen zwei Konsolidierungs-Durchläufen.
func (c *Config) PassDelay() time.Duration {
	return time.Duration(c.PassDelayMS) * time.Millisecond
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
