package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"theme-miner/models"
)

// newTestStore öffnet eine frische SQLite-Datenbank mit aktivierten
// Foreign Keys und migriertem Schema.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	st := New(db, zap.NewNop())
	require.NoError(t, st.AutoMigrate())
	return st
}

func strPtr(s string) *string { return &s }

func sampleExtraction(title string, ref int) *models.PaperExtraction {
	return &models.PaperExtraction{
		PaperTitle:      title,
		Authors:         "Doe, J.; Roe, R.",
		Year:            "2023",
		DOI:             "10.1000/xyz123",
		ReferenceNumber: ref,
		Themes: []models.ExtractedTheme{
			{
				Name:        "Coping Strategies",
				Description: "How participants deal with stress.",
				Subthemes: []models.ExtractedSubtheme{
					{
						Name:        "Social Support",
						Description: "Leaning on peers and family.",
						Codes: []models.CodeEntry{
							{Name: "peer support", Quote: strPtr("my friends carried me through")},
							{Name: "family help", Quote: strPtr("my parents stepped in")},
						},
					},
				},
			},
		},
	}
}

func TestInsertPaperResultCreatesFullGraph(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.InsertPaperResult(sampleExtraction("Paper One", 1)))

	counts, err := st.CountAll()
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Papers)
	assert.Equal(t, int64(1), counts.Themes)
	assert.Equal(t, int64(1), counts.Subthemes)
	assert.Equal(t, int64(2), counts.Codes)
	assert.Equal(t, int64(1), counts.ThemeSubthemeLinks)
	assert.Equal(t, int64(1), counts.ArticleSubthemeLinks)
	assert.Equal(t, int64(2), counts.ArticleCodeLinks)

	var paper models.Paper
	require.NoError(t, st.DB.Where("paper_title = ?", "Paper One").First(&paper).Error)
	assert.Equal(t, 1, paper.ReferenceNumber)
	assert.Equal(t, "Doe, J.; Roe, R.", paper.Authors)
}

func TestInsertPaperResultDuplicateTitleSkipsPaperButLinksThemes(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertPaperResult(sampleExtraction("Paper One", 1)))

	// Gleicher Titel, diesmal mit einem zusätzlichen Theme: das Paper darf
	// nicht doppelt angelegt werden, das neue Theme aber schon.
	second := sampleExtraction("Paper One", 2)
	second.Themes = append(second.Themes, models.ExtractedTheme{
		Name:        "Barriers to Care",
		Description: "Obstacles to accessing treatment.",
		Subthemes: []models.ExtractedSubtheme{
			{Name: "Cost", Description: "Financial barriers.", Codes: []models.CodeEntry{{Name: "insurance gaps"}}},
		},
	})
	require.NoError(t, st.InsertPaperResult(second))

	counts, err := st.CountAll()
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Papers)
	assert.Equal(t, int64(2), counts.Themes)
	assert.Equal(t, int64(2), counts.Subthemes)

	// Die Referenznummer des Erst-Inserts bleibt stehen.
	var paper models.Paper
	require.NoError(t, st.DB.Where("paper_title = ?", "Paper One").First(&paper).Error)
	assert.Equal(t, 1, paper.ReferenceNumber)
}

func TestInsertPaperResultIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertPaperResult(sampleExtraction("Paper One", 1)))

	before, err := st.CountAll()
	require.NoError(t, err)

	require.NoError(t, st.InsertPaperResult(sampleExtraction("Paper One", 7)))

	after, err := st.CountAll()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestInsertPaperResultSharesEntitiesAcrossPapers(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertPaperResult(sampleExtraction("Paper One", 1)))
	require.NoError(t, st.InsertPaperResult(sampleExtraction("Paper Two", 2)))

	counts, err := st.CountAll()
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Papers)
	// Gleiche Namen, geteilte Zeilen
	assert.Equal(t, int64(1), counts.Themes)
	assert.Equal(t, int64(1), counts.Subthemes)
	assert.Equal(t, int64(2), counts.Codes)
	assert.Equal(t, int64(1), counts.ThemeSubthemeLinks)
	// Aber pro Paper eigene Zuordnungen
	assert.Equal(t, int64(2), counts.ArticleSubthemeLinks)
	assert.Equal(t, int64(4), counts.ArticleCodeLinks)
}

func TestNextReferenceNumber(t *testing.T) {
	st := newTestStore(t)

	next, err := st.NextReferenceNumber()
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	require.NoError(t, st.InsertPaperResult(sampleExtraction("Paper One", 1)))
	// Lücken sind erlaubt: das Maximum zählt, nicht die Anzahl.
	require.NoError(t, st.InsertPaperResult(sampleExtraction("Paper Five", 5)))

	next, err = st.NextReferenceNumber()
	require.NoError(t, err)
	assert.Equal(t, 6, next)
}

func TestSetPaperLinks(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertPaperResult(sampleExtraction("Paper One", 1)))

	require.NoError(t, st.SetPaperPublicURL("Paper One", "https://example.org/oa.pdf"))
	require.NoError(t, st.SetPaperArchiveLink("Paper One", "https://archive.example.org/paper1.pdf"))

	var paper models.Paper
	require.NoError(t, st.DB.Where("paper_title = ?", "Paper One").First(&paper).Error)
	assert.Equal(t, "https://example.org/oa.pdf", paper.PublicURL)
	assert.Equal(t, "https://archive.example.org/paper1.pdf", paper.ArchiveLink)
}

func TestLoadThemesOrderedByName(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.DB.Create(&models.Theme{Name: "Zeta", Description: "z"}).Error)
	require.NoError(t, st.DB.Create(&models.Theme{Name: "Alpha", Description: "a"}).Error)

	entities, err := st.LoadThemes()
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "Alpha", entities[0].Name)
	assert.Equal(t, "Zeta", entities[1].Name)
}

func TestResetDropsAllData(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertPaperResult(sampleExtraction("Paper One", 1)))

	require.NoError(t, st.Reset())

	counts, err := st.CountAll()
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)

	next, err := st.NextReferenceNumber()
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}
