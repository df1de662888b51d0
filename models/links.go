package models

// ThemeSubtheme ordnet ein Subtheme einem Theme zu. Ein Subtheme kann unter
// mehreren Themes hängen; das Paar ist eindeutig.
type ThemeSubtheme struct {
	ThemeID    uint `json:"theme_id" gorm:"primaryKey"`
	SubthemeID uint `json:"subtheme_id" gorm:"primaryKey"`

	Theme    Theme    `json:"-" gorm:"foreignKey:ThemeID;constraint:OnDelete:CASCADE"`
	Subtheme Subtheme `json:"-" gorm:"foreignKey:SubthemeID;constraint:OnDelete:CASCADE"`
}

func (ThemeSubtheme) TableName() string { return "theme_subthemes" }

// ArticleSubtheme ordnet den Inhalt eines Papers einem Subtheme zu.
type ArticleSubtheme struct {
	ArticleID  uint `json:"article_id" gorm:"primaryKey"`
	SubthemeID uint `json:"subtheme_id" gorm:"primaryKey"`

	Paper    Paper    `json:"-" gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE"`
	Subtheme Subtheme `json:"-" gorm:"foreignKey:SubthemeID;constraint:OnDelete:CASCADE"`
}

func (ArticleSubtheme) TableName() string { return "article_subthemes" }

// ArticleCode ist das Vorkommen eines Codes in einem Paper, qualifiziert durch
// das Subtheme. Derselbe Code kann für dasselbe Paper unter verschiedenen
// Subthemes mit unterschiedlichen Zitaten belegt sein.
type ArticleCode struct {
	ArticleID  uint `json:"article_id" gorm:"primaryKey"`
	CodeID     uint `json:"code_id" gorm:"primaryKey"`
	SubthemeID uint `json:"subtheme_id" gorm:"primaryKey"`

	EvidenceQuote *string `json:"evidence_quote,omitempty" gorm:"type:text"`

	Paper    Paper    `json:"-" gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE"`
	Code     Code     `json:"-" gorm:"foreignKey:CodeID;constraint:OnDelete:CASCADE"`
	Subtheme Subtheme `json:"-" gorm:"foreignKey:SubthemeID;constraint:OnDelete:CASCADE"`
}

func (ArticleCode) TableName() string { return "article_codes" }
