package services

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"theme-miner/models"
	"theme-miner/store"
)

// Reporter materialisiert die Lese-Sichten: die konsolidierte
// Theme→Subtheme→Code→Paper-Hierarchie und die Einzel-Paper-Abfrage über die
// Referenznummer. Es wird ausschließlich gelesen.
type Reporter struct {
	DB     *gorm.DB
	Store  *store.Store
	Logger *zap.Logger
}

// NewReporter erstellt einen neuen Reporter.
func NewReporter(db *gorm.DB, st *store.Store, logger *zap.Logger) *Reporter {
	return &Reporter{DB: db, Store: st, Logger: logger}
}

// Summary sind die Gesamtzahlen für den Dashboard-Kopf.
type Summary struct {
	TotalPapers    int64 `json:"totalPapers"`
	TotalThemes    int64 `json:"totalThemes"`
	TotalSubthemes int64 `json:"totalSubthemes"`
	TotalCodes     int64 `json:"totalCodes"`
}

// ReportCode ist ein Code mit allen belegten Zitaten unter einem Subtheme.
type ReportCode struct {
	Name   string   `json:"name"`
	Quotes []string `json:"quotes"`
}

// ReportSubtheme ist ein Subtheme samt Codes und Paper-Referenznummern.
type ReportSubtheme struct {
	ID          uint         `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Codes       []ReportCode `json:"codes"`
	References  []int        `json:"references"`
}

// ReportTheme ist ein Theme samt untergeordneter Subthemes.
type ReportTheme struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Subthemes   []ReportSubtheme `json:"subthemes"`
}

// Report ist die komplette Dashboard-Antwort.
type Report struct {
	Summary Summary       `json:"summary"`
	Themes  []ReportTheme `json:"themes"`
}

// ThematicAnalysis baut den kompletten Report auf: alle Themes nach Name,
// darunter die Subthemes, darunter Codes mit Zitaten und die
// Referenznummern der zugeordneten Papers.
func (r *Reporter) ThematicAnalysis() (*Report, error) {
	counts, err := r.Store.CountAll()
	if err != nil {
		return nil, err
	}
	report := &Report{
		Summary: Summary{
			TotalPapers:    counts.Papers,
			TotalThemes:    counts.Themes,
			TotalSubthemes: counts.Subthemes,
			TotalCodes:     counts.Codes,
		},
		Themes: []ReportTheme{},
	}

	var themes []models.Theme
	if err := r.DB.Order("name").Find(&themes).Error; err != nil {
		return nil, err
	}

	for _, theme := range themes {
		subthemes, err := r.subthemesForTheme(theme.ID)
		if err != nil {
			return nil, err
		}
		report.Themes = append(report.Themes, ReportTheme{
			ID:          theme.ID,
			Name:        theme.Name,
			Description: theme.Description,
			Subthemes:   subthemes,
		})
	}
	return report, nil
}

func (r *Reporter) subthemesForTheme(themeID uint) ([]ReportSubtheme, error) {
	var subthemes []models.Subtheme
	err := r.DB.
		Joins("JOIN theme_subthemes ts ON ts.subtheme_id = subthemes.id").
		Where("ts.theme_id = ?", themeID).
		Order("subthemes.name").
		Find(&subthemes).Error
	if err != nil {
		return nil, err
	}

	result := make([]ReportSubtheme, 0, len(subthemes))
	for _, sub := range subthemes {
		codes, err := r.codesForSubtheme(sub.ID)
		if err != nil {
			return nil, err
		}
		refs, err := r.referencesForSubtheme(sub.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, ReportSubtheme{
			ID:          sub.ID,
			Name:        sub.Name,
			Description: sub.Description,
			Codes:       codes,
			References:  refs,
		})
	}
	return result, nil
}

// codesForSubtheme sammelt pro Code die belegten Zitate unter diesem
// Subtheme ein; Duplikate und NULL-Zitate fliegen raus.
func (r *Reporter) codesForSubtheme(subthemeID uint) ([]ReportCode, error) {
	var rows []struct {
		Name  string
		Quote *string
	}
	err := r.DB.Table("article_codes ac").
		Select("codes.name AS name, ac.evidence_quote AS quote").
		Joins("JOIN codes ON codes.id = ac.code_id").
		Where("ac.subtheme_id = ?", subthemeID).
		Order("codes.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	codes := []ReportCode{}
	index := map[string]int{}
	seenQuote := map[string]bool{}
	for _, row := range rows {
		pos, ok := index[row.Name]
		if !ok {
			pos = len(codes)
			index[row.Name] = pos
			codes = append(codes, ReportCode{Name: row.Name, Quotes: []string{}})
		}
		if row.Quote == nil || *row.Quote == "" {
			continue
		}
		key := row.Name + "\x00" + *row.Quote
		if seenQuote[key] {
			continue
		}
		seenQuote[key] = true
		codes[pos].Quotes = append(codes[pos].Quotes, *row.Quote)
	}
	return codes, nil
}

func (r *Reporter) referencesForSubtheme(subthemeID uint) ([]int, error) {
	refs := []int{}
	err := r.DB.Table("research_results rr").
		Select("DISTINCT rr.reference_number").
		Joins("JOIN article_subthemes asub ON asub.article_id = rr.id").
		Where("asub.subtheme_id = ?", subthemeID).
		Order("rr.reference_number").
		Scan(&refs).Error
	return refs, err
}

// PaperByReference sucht ein Paper über seine Referenznummer.
func (r *Reporter) PaperByReference(referenceNumber int) (*models.Paper, error) {
	var paper models.Paper
	err := r.DB.Where("reference_number = ?", referenceNumber).First(&paper).Error
	if err != nil {
		return nil, err
	}
	return &paper, nil
}
