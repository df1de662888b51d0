package models

import (
	"encoding/json"
)

// ExtractionInput ist das Dokument-Payload für einen Extraktions-Aufruf.
// Raw sind die Original-Bytes der PDF (fürs Archiv), Text der extrahierte
// Volltext, ReferenceNumber die vorab reservierte Referenznummer.
type ExtractionInput struct {
	Filename        string
	Text            string
	Raw             []byte
	ReferenceNumber int
}

// PaperExtraction ist das strukturierte Ergebnis des insert_paper-Aufrufs.
type PaperExtraction struct {
	PaperTitle      string           `json:"paper_title"`
	Authors         string           `json:"authors"`
	Year            string           `json:"year,omitempty"`
	DOI             string           `json:"doi,omitempty"`
	Abstract        string           `json:"abstract,omitempty"`
	KeyFindings     string           `json:"key_findings,omitempty"`
	Methodology     string           `json:"methodology,omitempty"`
	ReferenceNumber int              `json:"reference_number"`
	Themes          []ExtractedTheme `json:"themes"`
}

// Valid prüft die Pflichtfelder. Fehlen sie, zählt das ganze Dokument als
// Fehlschlag und es wird nichts persistiert.
func (p *PaperExtraction) Valid() bool {
	return p.PaperTitle != "" && p.Authors != "" && len(p.Themes) > 0
}

// ExtractedTheme ist ein Theme aus der Extraktion samt Subthemes.
type ExtractedTheme struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Subthemes   []ExtractedSubtheme `json:"subthemes"`
}

// ExtractedSubtheme ist ein Subtheme aus der Extraktion samt Codes.
type ExtractedSubtheme struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Codes       []CodeEntry `json:"codes"`
}

// CodeEntry ist ein Code-Vorkommen mit optionalem Beleg-Zitat. Ältere
// Extraktionen liefern Codes als nackte Strings; die werden ohne Zitat
// übernommen.
type CodeEntry struct {
	Name  string
	Quote *string
}

// UnmarshalJSON akzeptiert sowohl "code" als auch {"name": ..., "quote": ...}.
func (c *CodeEntry) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		c.Name = name
		c.Quote = nil
		return nil
	}

	var obj struct {
		Name  string  `json:"name"`
		Quote *string `json:"quote"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.Name = obj.Name
	c.Quote = obj.Quote
	return nil
}

// MarshalJSON schreibt immer die Objekt-Form.
func (c CodeEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string  `json:"name"`
		Quote *string `json:"quote,omitempty"`
	}{Name: c.Name, Quote: c.Quote})
}
