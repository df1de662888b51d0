package models

import (
	"time"
)

// Code ist ein Stichwort bzw. eine Taktik, die als Evidenz innerhalb eines
// Subthemes extrahiert wurde. Codes sind unveränderlich und werden nie
// zusammengeführt; gleichnamige Vorkommen teilen sich eine Zeile.
type Code struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
}

func (Code) TableName() string { return "codes" }
