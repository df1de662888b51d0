package models

import (
	"time"
)

// Theme ist eine thematische Oberkategorie. Der Name ist der natürliche
// Schlüssel; die Beschreibung wird von der Konsolidierung überschrieben.
type Theme struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
}

func (Theme) TableName() string { return "themes" }

// Subtheme ist eine feinere Kategorie unterhalb eines oder mehrerer Themes.
// Subthemes tragen die Paper-Zuordnungen und die Evidenz-Zitate.
type Subtheme struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
}

func (Subtheme) TableName() string { return "subthemes" }
