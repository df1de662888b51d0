package store

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"theme-miner/models"
)

// Store kapselt alle Schreib- und Ladeoperationen auf dem relationalen
// Schema. Alle Upserts arbeiten idempotent über den natürlichen Schlüssel
// (Name bzw. Titel); Link-Zeilen werden per Conflict-Ignore angelegt.
type Store struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// New erstellt einen neuen Store.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{DB: db, Logger: logger}
}

// allTables in Abhängigkeits-Reihenfolge (Links zuletzt).
func allTables() []interface{} {
	return []interface{}{
		&models.Paper{},
		&models.Theme{},
		&models.Subtheme{},
		&models.Code{},
		&models.ThemeSubtheme{},
		&models.ArticleSubtheme{},
		&models.ArticleCode{},
	}
}

// AutoMigrate legt fehlende Tabellen an, ohne bestehende Daten anzufassen.
func (s *Store) AutoMigrate() error {
	return s.DB.AutoMigrate(allTables()...)
}

// Reset verwirft ALLE Tabellen und legt sie neu an. Das ist ein kompletter
// Neustart der Extraktion, keine Migration.
func (s *Store) Reset() error {
	s.Logger.Warn("Setze Schema destruktiv zurück, alle bisherigen Ergebnisse gehen verloren.")
	tables := allTables()
	// Links zuerst droppen, dann die Entitäten
	for i := len(tables) - 1; i >= 0; i-- {
		if err := s.DB.Migrator().DropTable(tables[i]); err != nil {
			return err
		}
	}
	return s.DB.AutoMigrate(tables...)
}

// NextReferenceNumber liefert max(reference_number)+1 über alle Papers.
func (s *Store) NextReferenceNumber() (int, error) {
	var maxRef *int
	if err := s.DB.Model(&models.Paper{}).Select("MAX(reference_number)").Scan(&maxRef).Error; err != nil {
		return 0, err
	}
	if maxRef == nil {
		return 1, nil
	}
	return *maxRef + 1, nil
}

// InsertPaperResult persistiert ein Extraktionsergebnis: Paper, Themes,
// Subthemes, Codes und alle Links, jeweils find-or-create. Existiert bereits
// ein Paper mit demselben Titel, wird nur der Paper-Insert übersprungen;
// Themes aus dem Ergebnis werden weiterhin angelegt und verknüpft.
func (s *Store) InsertPaperResult(res *models.PaperExtraction) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var paper models.Paper
		err := tx.Where("paper_title = ?", res.PaperTitle).First(&paper).Error
		switch {
		case err == nil:
			s.Logger.Info("Paper existiert bereits, Insert wird übersprungen.",
				zap.String("title", res.PaperTitle))
		case errors.Is(err, gorm.ErrRecordNotFound):
			paper = models.Paper{
				PaperTitle:      res.PaperTitle,
				Authors:         res.Authors,
				Year:            res.Year,
				DOI:             res.DOI,
				Abstract:        res.Abstract,
				KeyFindings:     res.KeyFindings,
				Methodology:     res.Methodology,
				ReferenceNumber: res.ReferenceNumber,
			}
			if err := tx.Create(&paper).Error; err != nil {
				return err
			}
			s.Logger.Info("Paper angelegt",
				zap.Uint("id", paper.ID),
				zap.Int("reference_number", paper.ReferenceNumber))
		default:
			return err
		}

		for _, theme := range res.Themes {
			themeID, err := findOrCreateTheme(tx, s.Logger, theme.Name, theme.Description)
			if err != nil {
				return err
			}
			for _, sub := range theme.Subthemes {
				subthemeID, err := findOrCreateSubtheme(tx, s.Logger, sub.Name, sub.Description)
				if err != nil {
					return err
				}
				if err := linkThemeSubtheme(tx, themeID, subthemeID); err != nil {
					return err
				}
				if err := linkArticleSubtheme(tx, paper.ID, subthemeID); err != nil {
					return err
				}
				for _, code := range sub.Codes {
					codeID, err := findOrCreateCode(tx, s.Logger, code.Name)
					if err != nil {
						return err
					}
					if err := linkArticleCode(tx, paper.ID, codeID, subthemeID, code.Quote); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

// findOrCreateTheme sucht nach Name, legt sonst neu an. Bestehende
// Beschreibungen werden bei der Extraktion nie überschrieben, das darf nur
// die Konsolidierung.
func findOrCreateTheme(tx *gorm.DB, log *zap.Logger, name, description string) (uint, error) {
	var theme models.Theme
	err := tx.Where("name = ?", name).First(&theme).Error
	if err == nil {
		return theme.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	theme = models.Theme{Name: name, Description: description}
	if err := tx.Create(&theme).Error; err != nil {
		return 0, err
	}
	log.Info("Neues Theme angelegt", zap.String("name", name), zap.Uint("id", theme.ID))
	return theme.ID, nil
}

func findOrCreateSubtheme(tx *gorm.DB, log *zap.Logger, name, description string) (uint, error) {
	var sub models.Subtheme
	err := tx.Where("name = ?", name).First(&sub).Error
	if err == nil {
		return sub.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	sub = models.Subtheme{Name: name, Description: description}
	if err := tx.Create(&sub).Error; err != nil {
		return 0, err
	}
	log.Info("Neues Subtheme angelegt", zap.String("name", name), zap.Uint("id", sub.ID))
	return sub.ID, nil
}

func findOrCreateCode(tx *gorm.DB, log *zap.Logger, name string) (uint, error) {
	var code models.Code
	err := tx.Where("name = ?", name).First(&code).Error
	if err == nil {
		return code.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	code = models.Code{Name: name}
	if err := tx.Create(&code).Error; err != nil {
		return 0, err
	}
	log.Debug("Neuer Code angelegt", zap.String("name", name), zap.Uint("id", code.ID))
	return code.ID, nil
}

// linkThemeSubtheme legt das Paar an, falls es noch fehlt. Das Duplikat wird
// vom Unique-Constraint abgefangen und ist kein Fehler.
func linkThemeSubtheme(tx *gorm.DB, themeID, subthemeID uint) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ThemeSubtheme{ThemeID: themeID, SubthemeID: subthemeID}).Error
}

func linkArticleSubtheme(tx *gorm.DB, articleID, subthemeID uint) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ArticleSubtheme{ArticleID: articleID, SubthemeID: subthemeID}).Error
}

func linkArticleCode(tx *gorm.DB, articleID, codeID, subthemeID uint, quote *string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ArticleCode{
			ArticleID:     articleID,
			CodeID:        codeID,
			SubthemeID:    subthemeID,
			EvidenceQuote: quote,
		}).Error
}

// SetPaperPublicURL trägt den Unpaywall-Link nachträglich am Paper ein.
func (s *Store) SetPaperPublicURL(paperTitle, url string) error {
	return s.DB.Model(&models.Paper{}).
		Where("paper_title = ?", paperTitle).
		Update("public_url", url).Error
}

// SetPaperArchiveLink trägt den S3-Archiv-Link nachträglich am Paper ein.
func (s *Store) SetPaperArchiveLink(paperTitle, link string) error {
	return s.DB.Model(&models.Paper{}).
		Where("paper_title = ?", paperTitle).
		Update("archive_link", link).Error
}

// LoadThemes lädt alle Themes als konsolidierbare Entities, nach Name
// sortiert (deterministische Chunk-Reihenfolge).
func (s *Store) LoadThemes() ([]models.Entity, error) {
	var entities []models.Entity
	err := s.DB.Model(&models.Theme{}).
		Select("id, name, description").
		Order("name").
		Scan(&entities).Error
	return entities, err
}

// LoadSubthemes lädt alle Subthemes als konsolidierbare Entities.
func (s *Store) LoadSubthemes() ([]models.Entity, error) {
	var entities []models.Entity
	err := s.DB.Model(&models.Subtheme{}).
		Select("id, name, description").
		Order("name").
		Scan(&entities).Error
	return entities, err
}

// Counts sind die Zeilenzahlen aller sieben Tabellen.
type Counts struct {
	Papers               int64 `json:"papers"`
	Themes               int64 `json:"themes"`
	Subthemes            int64 `json:"subthemes"`
	Codes                int64 `json:"codes"`
	ThemeSubthemeLinks   int64 `json:"theme_subtheme_links"`
	ArticleSubthemeLinks int64 `json:"article_subtheme_links"`
	ArticleCodeLinks     int64 `json:"article_code_links"`
}

// CountAll zählt alle Tabellen durch.
func (s *Store) CountAll() (Counts, error) {
	var c Counts
	counters := []struct {
		model interface{}
		dst   *int64
	}{
		{&models.Paper{}, &c.Papers},
		{&models.Theme{}, &c.Themes},
		{&models.Subtheme{}, &c.Subthemes},
		{&models.Code{}, &c.Codes},
		{&models.ThemeSubtheme{}, &c.ThemeSubthemeLinks},
		{&models.ArticleSubtheme{}, &c.ArticleSubthemeLinks},
		{&models.ArticleCode{}, &c.ArticleCodeLinks},
	}
	for _, counter := range counters {
		if err := s.DB.Model(counter.model).Count(counter.dst).Error; err != nil {
			return c, err
		}
	}
	return c, nil
}
