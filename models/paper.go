package models

import (
	"time"
)

// Paper repräsentiert ein wissenschaftliches Paper im Archiv.
type Paper struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title         string     `json:"title" gorm:"index;not null"`
	URL           string     `json:"url" gorm:"uniqueIndex;not null"`
	Summary       string     `json:"summary,omitempty" gorm:"type:text"`
	PublishedDate *time.Time `json:"published_date,omitempty"`

	// ArxivID ist optional; wenn gesetzt, global eindeutig.
	ArxivID *string `json:"arxiv_id,omitempty" gorm:"uniqueIndex"`

	Authors  []Author  `json:"authors" gorm:"many2many:paper_authors;"`
	Keywords []Keyword `json:"keywords" gorm:"many2many:paper_keywords;"`
}

// TableName gibt explizit den Tabellennamen an.
func (Paper) TableName() string {
	return "papers"
}
