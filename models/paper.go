package models

import (
	"time"
)

// Paper repräsentiert ein analysiertes Forschungspaper samt Metadaten.
// Zeilen werden einmal bei der Extraktion angelegt und nie zusammengeführt.
type Paper struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	PaperTitle  string `json:"paper_title" gorm:"uniqueIndex;not null"`
	Authors     string `json:"authors"`
	Year        string `json:"year,omitempty"`
	DOI         string `json:"doi,omitempty"`
	Abstract    string `json:"abstract,omitempty" gorm:"type:text"`
	KeyFindings string `json:"key_findings,omitempty" gorm:"type:text"`
	Methodology string `json:"methodology,omitempty" gorm:"type:text"`

	// Fortlaufende Referenznummer, vom Analyzer vergeben (max+1), nie doppelt.
	ReferenceNumber int `json:"reference_number" gorm:"uniqueIndex"`

	// Freier Volltext-Link via Unpaywall, falls gefunden
	PublicURL string `json:"public_url,omitempty"`

	// Link ins S3-Archiv der Quell-PDF, falls konfiguriert
	ArchiveLink string `json:"archive_link,omitempty"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Paper) TableName() string {
	return "research_results"
}
