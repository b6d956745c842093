package models

// Keyword repräsentiert ein Schlagwort, unter dem Papers abgelegt und
// Abos geführt werden.
type Keyword struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Keyword) TableName() string {
	return "keywords"
}
