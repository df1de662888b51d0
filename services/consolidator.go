package services

import (
	"context"

	"go.uber.org/zap"

	"theme-miner/config"
	"theme-miner/models"
	"theme-miner/store"
)

// Consolidator schrumpft die Theme- und Subtheme-Mengen durch iterative,
// vom Orakel vorgeschlagene Merges bis zum Fixpunkt: erst die Themes
// vollständig, dann die Subthemes, sequenziell und nicht verschränkt.
type Consolidator struct {
	Config *config.Config
	Store  *store.Store
	Oracle Oracle
	Logger *zap.Logger
}

// NewConsolidator erstellt eine neue Consolidator-Instanz.
func NewConsolidator(cfg *config.Config, st *store.Store, oracle Oracle, logger *zap.Logger) *Consolidator {
	return &Consolidator{Config: cfg, Store: st, Oracle: oracle, Logger: logger}
}

// ConsolidationStats zählen die entfernten Entitäten pro Art.
type ConsolidationStats struct {
	ThemesMerged    int `json:"themes_merged"`
	SubthemesMerged int `json:"subthemes_merged"`
}

// mergeKind parametrisiert den generischen Fixpunkt-Loop für eine
// Entitäts-Art.
type mergeKind struct {
	label     string
	chunkSize int
	load      func() ([]models.Entity, error)
	propose   func(ctx context.Context, chunk []models.Entity, pass, chunkNo int) ([]models.MergeGroup, error)
	apply     func(group models.MergeGroup) (int, error)
}

// Run konsolidiert erst alle Themes bis zum Fixpunkt, dann alle Subthemes.
// Bereits committete Merges bleiben bei Abbruch oder Fehler bestehen.
func (c *Consolidator) Run(ctx context.Context) (ConsolidationStats, error) {
	var stats ConsolidationStats

	before, err := c.Store.CountAll()
	if err != nil {
		return stats, err
	}
	c.Logger.Info("Starte Konsolidierung",
		zap.Int64("themes", before.Themes),
		zap.Int64("subthemes", before.Subthemes))

	stats.ThemesMerged, err = c.consolidate(ctx, mergeKind{
		label:     "themes",
		chunkSize: c.Config.ThemeChunkSize,
		load:      c.Store.LoadThemes,
		propose:   c.Oracle.ProposeThemeMerges,
		apply:     c.Store.MergeThemes,
	})
	if err != nil {
		return stats, err
	}

	stats.SubthemesMerged, err = c.consolidate(ctx, mergeKind{
		label:     "subthemes",
		chunkSize: c.Config.SubthemeChunkSize,
		load:      c.Store.LoadSubthemes,
		propose:   c.Oracle.ProposeSubthemeMerges,
		apply:     c.Store.MergeSubthemes,
	})
	if err != nil {
		return stats, err
	}

	after, err := c.Store.CountAll()
	if err != nil {
		return stats, err
	}
	c.Logger.Info("Konsolidierung abgeschlossen",
		zap.Int64("themes_before", before.Themes),
		zap.Int64("themes_after", after.Themes),
		zap.Int64("subthemes_before", before.Subthemes),
		zap.Int64("subthemes_after", after.Subthemes),
		zap.Int("themes_merged", stats.ThemesMerged),
		zap.Int("subthemes_merged", stats.SubthemesMerged))
	return stats, nil
}

// consolidate ist der Fixpunkt-Loop für eine Entitäts-Art: laden, chunked
// dem Orakel vorlegen, Gruppen als atomare Merges anwenden, wiederholen.
// Ein Durchlauf ohne erfolgreichen Merge beendet den Loop; das Kriterium
// gilt pro Durchlauf, nicht pro Chunk. Chunk-übergreifende Duplikate
// erwischt erst der nächste Durchlauf.
func (c *Consolidator) consolidate(ctx context.Context, kind mergeKind) (int, error) {
	log := c.Logger.With(zap.String("kind", kind.label))
	total := 0

	for pass := 1; ; pass++ {
		if ctx.Err() != nil {
			log.Warn("Konsolidierung unterbrochen, committete Merges bleiben bestehen.")
			return total, ctx.Err()
		}

		entities, err := kind.load()
		if err != nil {
			return total, err
		}
		if len(entities) <= 1 {
			log.Info("Höchstens ein Eintrag übrig, Konsolidierung beendet.")
			return total, nil
		}

		log.Info("Konsolidierungs-Durchlauf",
			zap.Int("pass", pass),
			zap.Int("count", len(entities)))

		chunks := chunkEntities(entities, kind.chunkSize)
		passMerges := 0
		for i, chunk := range chunks {
			if ctx.Err() != nil {
				log.Warn("Konsolidierung unterbrochen, keine weiteren Chunks.")
				return total + passMerges, ctx.Err()
			}

			merged := c.processChunk(ctx, kind, chunk, pass, i+1, len(chunks), log)
			passMerges += merged

			if i+1 < len(chunks) {
				sleepCtx(ctx, c.Config.ChunkDelay())
			}
		}

		total += passMerges
		if passMerges == 0 {
			log.Info("Fixpunkt erreicht, keine Merges in diesem Durchlauf.", zap.Int("passes", pass))
			return total, nil
		}
		log.Info("Durchlauf abgeschlossen",
			zap.Int("pass", pass),
			zap.Int("merged", passMerges))

		sleepCtx(ctx, c.Config.PassDelay())
	}
}

// processChunk holt Vorschläge für einen Chunk und wendet sie in der vom
// Orakel gelieferten Reihenfolge an. Fehler bleiben lokal: Ein kaputter
// Chunk oder eine zurückgerollte Gruppe blockiert die übrigen nicht.
func (c *Consolidator) processChunk(ctx context.Context, kind mergeKind, chunk []models.Entity, pass, chunkNo, totalChunks int, log *zap.Logger) int {
	chunkLog := log.With(zap.Int("pass", pass), zap.Int("chunk", chunkNo), zap.Int("total_chunks", totalChunks))

	groups, err := kind.propose(ctx, chunk, pass, chunkNo)
	if err != nil {
		chunkLog.Error("Merge-Vorschlag fehlgeschlagen", zap.Error(err))
		return 0
	}
	if len(groups) == 0 {
		chunkLog.Info("Keine Merge-Gruppen in diesem Chunk.")
		return 0
	}

	merged := 0
	for _, group := range groups {
		if len(group.Merge) == 0 {
			continue
		}
		n, err := kind.apply(group)
		if err != nil {
			// Die Gruppe ist zurückgerollt; weiter mit der nächsten.
			continue
		}
		merged += n
	}
	chunkLog.Info("Chunk verarbeitet", zap.Int("merged", merged))
	return merged
}

// chunkEntities zerlegt die Liste in zusammenhängende Chunks fester Größe.
func chunkEntities(entities []models.Entity, size int) [][]models.Entity {
	if size <= 0 {
		size = len(entities)
	}
	var chunks [][]models.Entity
	for start := 0; start < len(entities); start += size {
		end := start + size
		if end > len(entities) {
			end = len(entities)
		}
		chunks = append(chunks, entities[start:end])
	}
	return chunks
}
