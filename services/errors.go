package services

import "fmt"

// Die Submission-Pipeline signalisiert ihre Ausgänge über explizite
// Fehlertypen statt über generische Fehlerstrings, damit der Bot jedem
// Ausgang deterministisch eine Nutzer-Nachricht zuordnen kann.

// ValidationError: Pflichtfelder fehlen oder ein Feld ist fehlerhaft.
// Field benennt den Slack-Block, an dem der Fehler angezeigt wird.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DuplicateError: ein Paper mit derselben URL oder arXiv-ID existiert bereits.
type DuplicateError struct {
	ExistingTitle string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("a paper with this URL or arXiv ID already exists: %s", e.ExistingTitle)
}

// ParseError: der BibTeX-Record konnte nicht geparst werden.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("BibTeX parse error: %s", e.Detail)
}
