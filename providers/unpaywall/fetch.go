// Package unpaywall reichert extrahierte Papers um einen freien
// Volltext-Link an, aufgelöst über die DOI.
package unpaywall

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"theme-miner/config"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Response ist der relevante Ausschnitt der Unpaywall-JSON-Antwort.
type Response struct {
	BestOALocation struct {
		URLForPDF string `json:"url_for_pdf"`
		URL       string `json:"url"`
	} `json:"best_oa_location"`
}

// Fetcher kapselt die Unpaywall-Anbindung.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen Unpaywall-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Enabled meldet, ob die Anreicherung konfiguriert ist. Unpaywall verlangt
// eine Kontakt-E-Mail; ohne sie bleibt der Schritt aus.
func (f *Fetcher) Enabled() bool {
	return f.Config.UnpaywallEmail != ""
}

// ResolvePublicURL löst eine DOI zu einem frei zugänglichen Volltext-Link
// auf. Leerer String ohne Fehler heißt: kein freier Volltext bekannt.
func (f *Fetcher) ResolvePublicURL(doi string) (string, error) {
	if !f.Enabled() {
		return "", fmt.Errorf("unpaywall email ist nicht konfiguriert")
	}
	if doi == "" {
		return "", nil
	}

	url := fmt.Sprintf("%s/%s?email=%s", f.Config.UnpaywallBaseURL, doi, f.Config.UnpaywallEmail)
	log := f.Logger.With(zap.String("doi", doi))
	log.Debug("Rufe Unpaywall API auf.")

	resp, err := httpClient.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Unbekannte DOI ist kein Fehler, nur kein Treffer
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unpaywall request failed with status: %d", resp.StatusCode)
	}

	var ur Response
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", err
	}

	if ur.BestOALocation.URLForPDF != "" {
		log.Info("Freien PDF-Link über Unpaywall gefunden.")
		return ur.BestOALocation.URLForPDF, nil
	}
	if ur.BestOALocation.URL != "" {
		return ur.BestOALocation.URL, nil
	}

	log.Debug("Kein freier Volltext in Unpaywall-Antwort gefunden.")
	return "", nil
}
