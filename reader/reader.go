// Package reader zählt die Quell-PDFs eines Verzeichnisses auf und
// extrahiert deren Klartext. Fehler an einzelnen Dokumenten brechen den
// Batch nie ab, sie werden pro Dokument gemeldet.
package reader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// Document ist ein gelesenes Quell-Dokument: Rohbytes plus extrahierter
// Klartext (best effort).
type Document struct {
	Filename string
	Raw      []byte
	Text     string
}

// Reader liest PDFs aus einem Korpus-Verzeichnis.
type Reader struct {
	Dir    string
	Logger *zap.Logger
}

// New erstellt einen Reader für das gegebene Verzeichnis.
func New(dir string, logger *zap.Logger) *Reader {
	return &Reader{Dir: dir, Logger: logger}
}

// List gibt die Dateinamen aller PDFs im Verzeichnis zurück, alphabetisch
// sortiert für eine deterministische Batch-Reihenfolge.
func (r *Reader) List() ([]string, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return nil, fmt.Errorf("korpus-verzeichnis %s nicht lesbar: %w", r.Dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Read liest eine einzelne PDF und extrahiert den Klartext.
func (r *Reader) Read(name string) (*Document, error) {
	path := filepath.Join(r.Dir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("datei %s nicht lesbar: %w", name, err)
	}

	text, err := extractText(raw)
	if err != nil {
		return nil, fmt.Errorf("pdf %s nicht parsebar: %w", name, err)
	}
	r.Logger.Debug("PDF gelesen",
		zap.String("file", name),
		zap.Int("bytes", len(raw)),
		zap.Int("chars", len(text)))

	return &Document{Filename: name, Raw: raw, Text: text}, nil
}

func extractText(raw []byte) (string, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
