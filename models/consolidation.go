package models

// Entity ist die konsolidierbare Sicht auf ein Theme oder Subtheme, so wie
// sie dem Oracle in Chunks vorgelegt wird.
type Entity struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MergeEntity referenziert einen zu verschmelzenden Eintrag.
type MergeEntity struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// MergePrimary ist der beizubehaltende Eintrag einer Merge-Gruppe. Die
// Description ist die vom Oracle konsolidierte Fassung und überschreibt die
// bisherige.
type MergePrimary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MergeGroup ist ein Konsolidierungs-Vorschlag des Oracles: ein Primary plus
// die Einträge, die in ihn aufgehen sollen. Die Justification wird nur
// geloggt.
type MergeGroup struct {
	Primary       MergePrimary  `json:"primary"`
	Merge         []MergeEntity `json:"merge"`
	Justification string        `json:"justification"`
}
