package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"theme-miner/config"
	"theme-miner/models"
	"theme-miner/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	st := store.New(db, zap.NewNop())
	require.NoError(t, st.AutoMigrate())
	return st
}

// fakeOracle spielt vorbereitete Antworten ab. Merge-Vorschläge werden pro
// Art in Aufruf-Reihenfolge konsumiert; ist das Skript leer, kommt nichts
// mehr zurück und der Fixpunkt-Loop terminiert.
type fakeOracle struct {
	extractions    map[string]*models.PaperExtraction
	extractErr     map[string]error
	themeGroups    [][]models.MergeGroup
	subthemeGroups [][]models.MergeGroup
	themeCalls     int
	subthemeCalls  int
}

func (f *fakeOracle) ExtractPaper(_ context.Context, input models.ExtractionInput) (*models.PaperExtraction, error) {
	if err := f.extractErr[input.Filename]; err != nil {
		return nil, err
	}
	return f.extractions[input.Filename], nil
}

func (f *fakeOracle) ProposeThemeMerges(_ context.Context, _ []models.Entity, _, _ int) ([]models.MergeGroup, error) {
	f.themeCalls++
	if len(f.themeGroups) == 0 {
		return nil, nil
	}
	groups := f.themeGroups[0]
	f.themeGroups = f.themeGroups[1:]
	return groups, nil
}

func (f *fakeOracle) ProposeSubthemeMerges(_ context.Context, _ []models.Entity, _, _ int) ([]models.MergeGroup, error) {
	f.subthemeCalls++
	if len(f.subthemeGroups) == 0 {
		return nil, nil
	}
	groups := f.subthemeGroups[0]
	f.subthemeGroups = f.subthemeGroups[1:]
	return groups, nil
}

func testConfig() *config.Config {
	return &config.Config{
		ThemeChunkSize:    30,
		SubthemeChunkSize: 40,
	}
}

func seedThemes(t *testing.T, st *store.Store, names ...string) map[string]uint {
	t.Helper()
	ids := make(map[string]uint, len(names))
	for _, name := range names {
		theme := models.Theme{Name: name, Description: "about " + name}
		require.NoError(t, st.DB.Create(&theme).Error)
		ids[name] = theme.ID
	}
	return ids
}

func TestConsolidatorReachesFixpoint(t *testing.T) {
	st := newTestStore(t)
	ids := seedThemes(t, st, "Coping", "Coping Strategies", "Coping Mechanisms", "Barriers")

	oracle := &fakeOracle{
		themeGroups: [][]models.MergeGroup{
			{
				{
					Primary: models.MergePrimary{ID: ids["Coping"], Name: "Coping", Description: "merged"},
					Merge: []models.MergeEntity{
						{ID: ids["Coping Strategies"]},
						{ID: ids["Coping Mechanisms"]},
					},
				},
			},
			// Zweiter Durchlauf findet nichts mehr, das beendet den Loop.
		},
	}

	c := NewConsolidator(testConfig(), st, oracle, zap.NewNop())
	stats, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ThemesMerged)
	assert.Equal(t, 0, stats.SubthemesMerged)
	// Durchlauf 1 mit Merges plus Durchlauf 2 als Fixpunkt-Nachweis
	assert.Equal(t, 2, oracle.themeCalls)

	remaining, err := st.LoadThemes()
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "Barriers", remaining[0].Name)
	assert.Equal(t, "Coping", remaining[1].Name)
}

func TestConsolidatorSkipsWithOneEntity(t *testing.T) {
	st := newTestStore(t)
	seedThemes(t, st, "Coping")

	oracle := &fakeOracle{}
	c := NewConsolidator(testConfig(), st, oracle, zap.NewNop())
	stats, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.ThemesMerged)
	// Bei höchstens einem Eintrag wird das Orakel gar nicht erst gefragt.
	assert.Equal(t, 0, oracle.themeCalls)
	assert.Equal(t, 0, oracle.subthemeCalls)
}

func TestConsolidatorFailedGroupDoesNotBlockOthers(t *testing.T) {
	st := newTestStore(t)
	ids := seedThemes(t, st, "Alpha", "Beta", "Gamma", "Delta")

	oracle := &fakeOracle{
		themeGroups: [][]models.MergeGroup{
			{
				{
					// Selbst-Merge: die Gruppe schlägt fehl und rollt zurück.
					Primary: models.MergePrimary{ID: ids["Alpha"], Description: "x"},
					Merge:   []models.MergeEntity{{ID: ids["Alpha"]}},
				},
				{
					Primary: models.MergePrimary{ID: ids["Gamma"], Description: "merged"},
					Merge:   []models.MergeEntity{{ID: ids["Delta"]}},
				},
			},
			{},
		},
	}

	c := NewConsolidator(testConfig(), st, oracle, zap.NewNop())
	stats, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ThemesMerged)

	remaining, err := st.LoadThemes()
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func TestConsolidatorThemesBeforeSubthemes(t *testing.T) {
	st := newTestStore(t)
	ids := seedThemes(t, st, "Alpha", "Beta")

	sub1 := models.Subtheme{Name: "One", Description: "d"}
	sub2 := models.Subtheme{Name: "Two", Description: "d"}
	require.NoError(t, st.DB.Create(&sub1).Error)
	require.NoError(t, st.DB.Create(&sub2).Error)

	oracle := &fakeOracle{
		themeGroups: [][]models.MergeGroup{
			{
				{
					Primary: models.MergePrimary{ID: ids["Alpha"], Description: "merged"},
					Merge:   []models.MergeEntity{{ID: ids["Beta"]}},
				},
			},
			{},
		},
		subthemeGroups: [][]models.MergeGroup{
			{
				{
					Primary: models.MergePrimary{ID: sub1.ID, Description: "merged"},
					Merge:   []models.MergeEntity{{ID: sub2.ID}},
				},
			},
			{},
		},
	}

	c := NewConsolidator(testConfig(), st, oracle, zap.NewNop())
	stats, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ThemesMerged)
	assert.Equal(t, 1, stats.SubthemesMerged)
	// Themes laufen komplett bis zum Fixpunkt, bevor die Subthemes starten.
	assert.Equal(t, 2, oracle.themeCalls)
	assert.Equal(t, 2, oracle.subthemeCalls)
}

func TestConsolidatorCancelledContextKeepsProgress(t *testing.T) {
	st := newTestStore(t)
	seedThemes(t, st, "Alpha", "Beta")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewConsolidator(testConfig(), st, &fakeOracle{}, zap.NewNop())
	stats, err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.ThemesMerged)
}

func TestChunkEntities(t *testing.T) {
	entities := make([]models.Entity, 7)
	for i := range entities {
		entities[i] = models.Entity{ID: uint(i + 1)}
	}

	chunks := chunkEntities(entities, 3)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 3)
	assert.Len(t, chunks[1], 3)
	assert.Len(t, chunks[2], 1)

	// Chunk-Größe 0 heißt alles auf einmal.
	chunks = chunkEntities(entities, 0)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0], 7)
}
