package models

import "time"

// PaperCreate ist die Eingabeform für das Anlegen eines Papers,
// unabhängig davon, ob sie aus einer Slack-Submission, einem BibTeX-Record
// oder einem arXiv-Treffer stammt.
type PaperCreate struct {
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	Summary       string     `json:"summary,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	ArxivID       string     `json:"arxiv_id,omitempty"`
	AuthorNames   []string   `json:"author_names,omitempty"`
	KeywordNames  []string   `json:"keyword_names,omitempty"`
}

// PaperUpdate trägt nur die Felder, die tatsächlich geändert werden sollen.
// Autor- und Keyword-Listen ersetzen bestehende Verknüpfungen vollständig.
type PaperUpdate struct {
	Title         *string    `json:"title,omitempty"`
	URL           *string    `json:"url,omitempty"`
	Summary       *string    `json:"summary,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	ArxivID       *string    `json:"arxiv_id,omitempty"`
	AuthorNames   *[]string  `json:"author_names,omitempty"`
	KeywordNames  *[]string  `json:"keyword_names,omitempty"`
}
