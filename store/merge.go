package store

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"theme-miner/models"
)

// Merge-Transaktionen für die Konsolidierung. Reihenfolge pro Gruppe:
// Description des Primary überschreiben, dann pro Merge-Kandidat Links
// geschützt umhängen (update-before-delete, guard-before-insert), Reste
// löschen, zuletzt die Entitätszeile selbst. Schlägt ein Schritt fehl, rollt
// die ganze Gruppe zurück; andere Gruppen bleiben davon unberührt.

// MergeThemes wendet eine Merge-Gruppe auf die Themes an und gibt die Zahl
// der entfernten Themes zurück.
func (s *Store) MergeThemes(group models.MergeGroup) (int, error) {
	if len(group.Merge) == 0 {
		return 0, nil
	}
	log := s.Logger.With(
		zap.String("primary", group.Primary.Name),
		zap.Uint("primary_id", group.Primary.ID))
	log.Info("Verschmelze Themes",
		zap.Int("count", len(group.Merge)),
		zap.String("justification", group.Justification))

	merged := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Theme{}).
			Where("id = ?", group.Primary.ID).
			Update("description", group.Primary.Description).Error; err != nil {
			return err
		}

		for _, victim := range group.Merge {
			if victim.ID == group.Primary.ID {
				return fmt.Errorf("theme %d kann nicht in sich selbst verschmolzen werden", victim.ID)
			}
			// Umhängen nur, wenn der Primary das Subtheme nicht schon führt;
			// verhindert doppelte Kanten.
			if err := tx.Exec(`UPDATE theme_subthemes SET theme_id = ?
				WHERE theme_id = ?
				AND NOT EXISTS (
					SELECT 1 FROM theme_subthemes existing
					WHERE existing.theme_id = ?
					AND existing.subtheme_id = theme_subthemes.subtheme_id
				)`, group.Primary.ID, victim.ID, group.Primary.ID).Error; err != nil {
				return err
			}
			if err := tx.Exec(`DELETE FROM theme_subthemes WHERE theme_id = ?`, victim.ID).Error; err != nil {
				return err
			}
			if err := tx.Exec(`DELETE FROM themes WHERE id = ?`, victim.ID).Error; err != nil {
				return err
			}
			log.Info("Theme verschmolzen", zap.String("name", victim.Name), zap.Uint("id", victim.ID))
			merged++
		}
		return nil
	})
	if err != nil {
		log.Error("Theme-Merge fehlgeschlagen, Gruppe zurückgerollt", zap.Error(err))
		return 0, err
	}
	return merged, nil
}

// MergeSubthemes wendet eine Merge-Gruppe auf die Subthemes an. Hier müssen
// zwei Link-Arten umgehängt werden: theme_subthemes und article_subthemes.
// article_codes-Zeilen des verschmolzenen Subthemes werden NICHT umgehängt;
// sie fallen mit der Subtheme-Zeile der Cascade zum Opfer.
func (s *Store) MergeSubthemes(group models.MergeGroup) (int, error) {
	if len(group.Merge) == 0 {
		return 0, nil
	}
	log := s.Logger.With(
		zap.String("primary", group.Primary.Name),
		zap.Uint("primary_id", group.Primary.ID))
	log.Info("Verschmelze Subthemes",
		zap.Int("count", len(group.Merge)),
		zap.String("justification", group.Justification))

	merged := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Subtheme{}).
			Where("id = ?", group.Primary.ID).
			Update("description", group.Primary.Description).Error; err != nil {
			return err
		}

		for _, victim := range group.Merge {
			if victim.ID == group.Primary.ID {
				return fmt.Errorf("subtheme %d kann nicht in sich selbst verschmolzen werden", victim.ID)
			}
			if err := tx.Exec(`UPDATE theme_subthemes SET subtheme_id = ?
				WHERE subtheme_id = ?
				AND NOT EXISTS (
					SELECT 1 FROM theme_subthemes existing
					WHERE existing.theme_id = theme_subthemes.theme_id
					AND existing.subtheme_id = ?
				)`, group.Primary.ID, victim.ID, group.Primary.ID).Error; err != nil {
				return err
			}
			if err := tx.Exec(`UPDATE article_subthemes SET subtheme_id = ?
				WHERE subtheme_id = ?
				AND NOT EXISTS (
					SELECT 1 FROM article_subthemes existing
					WHERE existing.article_id = article_subthemes.article_id
					AND existing.subtheme_id = ?
				)`, group.Primary.ID, victim.ID, group.Primary.ID).Error; err != nil {
				return err
			}
			if err := tx.Exec(`DELETE FROM theme_subthemes WHERE subtheme_id = ?`, victim.ID).Error; err != nil {
				return err
			}
			if err := tx.Exec(`DELETE FROM article_subthemes WHERE subtheme_id = ?`, victim.ID).Error; err != nil {
				return err
			}
			if err := tx.Exec(`DELETE FROM subthemes WHERE id = ?`, victim.ID).Error; err != nil {
				return err
			}
			log.Info("Subtheme verschmolzen", zap.String("name", victim.Name), zap.Uint("id", victim.ID))
			merged++
		}
		return nil
	})
	if err != nil {
		log.Error("Subtheme-Merge fehlgeschlagen, Gruppe zurückgerollt", zap.Error(err))
		return 0, err
	}
	return merged, nil
}
