package models

import "time"

// UserKeyword verknüpft einen User mit einem abonnierten Keyword.
// Pro (user, keyword) existiert höchstens eine aktive Verknüpfung.
type UserKeyword struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	UserID    uint `json:"user_id" gorm:"index:idx_user_keywords_pair,unique;not null"`
	KeywordID uint `json:"keyword_id" gorm:"index:idx_user_keywords_pair,unique;not null"`

	User    User    `json:"-" gorm:"foreignKey:UserID"`
	Keyword Keyword `json:"keyword" gorm:"foreignKey:KeywordID"`
}

// TableName gibt explizit den Tabellennamen an.
func (UserKeyword) TableName() string {
	return "user_keywords"
}

// UserAuthor verknüpft einen User mit einem abonnierten Autor.
// Spiegelt UserKeyword ohne strukturellen Unterschied.
type UserAuthor struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	UserID   uint `json:"user_id" gorm:"index:idx_user_authors_pair,unique;not null"`
	AuthorID uint `json:"author_id" gorm:"index:idx_user_authors_pair,unique;not null"`

	User   User   `json:"-" gorm:"foreignKey:UserID"`
	Author Author `json:"author" gorm:"foreignKey:AuthorID"`
}

// TableName gibt explizit den Tabellennamen an.
func (UserAuthor) TableName() string {
	return "user_authors"
}
