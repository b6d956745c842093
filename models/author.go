package models

// Author repräsentiert einen Paper-Autor. Namen werden über Get-or-Create
// wiederverwendet statt dupliziert.
type Author struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Author) TableName() string {
	return "authors"
}
