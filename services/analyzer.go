package services

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"theme-miner/config"
	"theme-miner/models"
	"theme-miner/providers/unpaywall"
	"theme-miner/reader"
	"theme-miner/storage"
	"theme-miner/store"
)

// Oracle ist das semantische Orakel: Extraktion pro Dokument plus
// Merge-Vorschläge pro Entity-Chunk. (nil, nil) bei ExtractPaper heißt
// "Paper nicht relevant", eine leere Gruppenliste "nichts zu verschmelzen".
type Oracle interface {
	ExtractPaper(ctx context.Context, input models.ExtractionInput) (*models.PaperExtraction, error)
	ProposeThemeMerges(ctx context.Context, chunk []models.Entity, pass, chunkNo int) ([]models.MergeGroup, error)
	ProposeSubthemeMerges(ctx context.Context, chunk []models.Entity, pass, chunkNo int) ([]models.MergeGroup, error)
}

// DocumentSource liefert den Korpus: Dokument-Namen plus Rohbytes und
// extrahierten Text pro Dokument.
type DocumentSource interface {
	List() ([]string, error)
	Read(name string) (*reader.Document, error)
}

// AnalysisStats sind die laufenden Zähler eines Extraktions-Batches.
type AnalysisStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// SuccessRate in Prozent, 0 bei leerem Batch.
func (s AnalysisStats) SuccessRate() int {
	if s.Processed == 0 {
		return 0
	}
	return s.Succeeded * 100 / s.Processed
}

// Analyzer orchestriert die Extraktion: ein Dokument nach dem anderen, eine
// Oracle-Anfrage gleichzeitig, feste Mindestpause zwischen den Anfragen.
type Analyzer struct {
	Config    *config.Config
	Store     *store.Store
	Oracle    Oracle
	Source    DocumentSource
	Unpaywall *unpaywall.Fetcher
	S3Client  *s3.Client
	Logger    *zap.Logger
}

// NewAnalyzer erstellt eine neue Analyzer-Instanz.
func NewAnalyzer(cfg *config.Config, st *store.Store, oracle Oracle, source DocumentSource, uw *unpaywall.Fetcher, s3Client *s3.Client, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		Config:    cfg,
		Store:     st,
		Oracle:    oracle,
		Source:    source,
		Unpaywall: uw,
		S3Client:  s3Client,
		Logger:    logger,
	}
}

// Run verarbeitet den gesamten Korpus. Fehler an einzelnen Dokumenten werden
// gezählt, nie propagiert; nur das Auflisten des Korpus selbst ist fatal.
// Eine Unterbrechung über den Context stoppt vor dem nächsten Dokument.
func (a *Analyzer) Run(ctx context.Context) (AnalysisStats, error) {
	var stats AnalysisStats

	files, err := a.Source.List()
	if err != nil {
		return stats, err
	}
	a.Logger.Info("Starte Paper-Analyse", zap.Int("files", len(files)))

	// Referenznummern werden als High-Water-Mark vergeben: vor der
	// Validierung reserviert, nie wiederverwendet. Abgelehnte Dokumente
	// hinterlassen dauerhafte Lücken in der Sequenz.
	nextRef, err := a.Store.NextReferenceNumber()
	if err != nil {
		return stats, err
	}

	for i, file := range files {
		if ctx.Err() != nil {
			a.Logger.Warn("Analyse unterbrochen, keine weiteren Dokumente.",
				zap.Int("remaining", len(files)-i))
			break
		}

		stats.Processed++
		refNum := nextRef
		nextRef++

		if a.processDocument(ctx, file, refNum) {
			stats.Succeeded++
		} else {
			stats.Failed++
		}

		// Mindestpause gilt unbedingt, auch nach einem Fehlschlag
		sleepCtx(ctx, a.Config.ExtractDelay())
	}

	a.Logger.Info("Paper-Analyse abgeschlossen",
		zap.Int("processed", stats.Processed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("success_rate_percent", stats.SuccessRate()))
	return stats, nil
}

// processDocument verarbeitet genau ein Dokument. false = gezählter
// Fehlschlag (Lesefehler, nicht relevant, Pflichtfelder fehlen, DB-Fehler).
func (a *Analyzer) processDocument(ctx context.Context, file string, refNum int) bool {
	log := a.Logger.With(zap.String("file", file), zap.Int("reference_number", refNum))

	doc, err := a.Source.Read(file)
	if err != nil {
		log.Error("Dokument nicht lesbar", zap.Error(err))
		return false
	}

	result, err := a.Oracle.ExtractPaper(ctx, models.ExtractionInput{
		Filename:        doc.Filename,
		Text:            doc.Text,
		Raw:             doc.Raw,
		ReferenceNumber: refNum,
	})
	if err != nil {
		log.Error("Oracle-Extraktion fehlgeschlagen", zap.Error(err))
		return false
	}
	if result == nil {
		log.Info("Paper nicht relevant, kein strukturiertes Ergebnis.")
		return false
	}
	if !result.Valid() {
		log.Warn("Pflichtfelder fehlen (Titel, Autoren oder Themes), Dokument wird verworfen.")
		return false
	}

	// Die Referenznummer des Orakels ist nur beratend; die des Aufrufers
	// gewinnt.
	if result.ReferenceNumber != refNum {
		log.Warn("Oracle lieferte abweichende Referenznummer, verwende die reservierte.",
			zap.Int("oracle_reference_number", result.ReferenceNumber))
	}
	result.ReferenceNumber = refNum

	if err := a.Store.InsertPaperResult(result); err != nil {
		log.Error("Persistieren fehlgeschlagen", zap.Error(err))
		return false
	}

	a.enrichPaper(result, log)
	a.archivePaper(result.PaperTitle, doc, log)

	log.Info("Paper erfolgreich analysiert",
		zap.String("title", result.PaperTitle),
		zap.Int("themes", len(result.Themes)))
	return true
}

// enrichPaper versucht, über Unpaywall einen freien Volltext-Link zu finden.
// Fehlschläge sind Warnungen, keine Fehler.
func (a *Analyzer) enrichPaper(result *models.PaperExtraction, log *zap.Logger) {
	if a.Unpaywall == nil || !a.Unpaywall.Enabled() || result.DOI == "" {
		return
	}
	url, err := a.Unpaywall.ResolvePublicURL(result.DOI)
	if err != nil {
		log.Warn("Unpaywall-Anreicherung fehlgeschlagen", zap.Error(err))
		return
	}
	if url == "" {
		return
	}
	if err := a.Store.SetPaperPublicURL(result.PaperTitle, url); err != nil {
		log.Warn("Konnte Public-URL nicht speichern", zap.Error(err))
	}
}

// archivePaper legt die Quell-PDF im S3-Archiv ab, falls konfiguriert.
func (a *Analyzer) archivePaper(title string, doc *reader.Document, log *zap.Logger) {
	if a.S3Client == nil {
		return
	}
	link, err := storage.ArchivePDF(a.S3Client, a.Config, doc.Filename, doc.Raw)
	if err != nil {
		log.Warn("S3-Archivierung fehlgeschlagen", zap.Error(err))
		return
	}
	if err := a.Store.SetPaperArchiveLink(title, link); err != nil {
		log.Warn("Konnte Archiv-Link nicht speichern", zap.Error(err))
	}
}

// sleepCtx wartet die Dauer ab, bricht aber bei Context-Abbruch sofort ab.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
