// Package bibtex parst BibTeX-Records in generische Feld-Maps.
package bibtex

import (
	"fmt"
	"strings"
)

// Entry ist ein einzelner BibTeX-Record.
type Entry struct {
	Type   string
	Key    string
	Fields map[string]string
}

// Field liefert ein Feld (case-insensitiv), leerer String wenn nicht vorhanden.
func (e Entry) Field(name string) string {
	return e.Fields[strings.ToLower(name)]
}

// Parse zerlegt einen BibTeX-String in seine Records. Ein String ohne
// einen einzigen gültigen Record ist ein Fehler.
func Parse(s string) ([]Entry, error) {
	i := 0
	n := len(s)
	var entries []Entry

	skipWS := func() {
		for i < n {
			if s[i] == '%' {
				for i < n && s[i] != '\n' {
					i++
				}
				continue
			}
			if strings.IndexByte(" \t\r\n", s[i]) >= 0 {
				i++
			} else {
				break
			}
		}
	}
	readIdent := func() string {
		start := i
		for i < n && (('a' <= s[i] && s[i] <= 'z') || ('A' <= s[i] && s[i] <= 'Z')) {
			i++
		}
		return s[start:i]
	}

	for {
		skipWS()
		if i >= n {
			break
		}
		if s[i] != '@' {
			return nil, fmt.Errorf("expecting an entry, got '%s'", snippet(s[i:]))
		}
		i++
		skipWS()
		typ := strings.ToLower(readIdent())
		if typ == "" {
			return nil, fmt.Errorf("expecting an entry type after '@'")
		}
		skipWS()
		if i >= n || (s[i] != '{' && s[i] != '(') {
			return nil, fmt.Errorf("expecting '{' after entry type '%s'", typ)
		}
		closer := byte('}')
		if s[i] == '(' {
			closer = ')'
		}
		i++
		skipWS()
		// Key bis zum Komma
		start := i
		for i < n && s[i] != ',' && s[i] != closer {
			i++
		}
		if i >= n {
			return nil, fmt.Errorf("unexpected end of input after entry key")
		}
		key := strings.TrimSpace(s[start:i])
		if s[i] == ',' {
			i++
		}

		fields := map[string]string{}
		for {
			skipWS()
			if i >= n {
				return nil, fmt.Errorf("unexpected end of input in entry '%s'", key)
			}
			if s[i] == closer {
				i++
				break
			}
			fstart := i
			for i < n && ((s[i] >= 'a' && s[i] <= 'z') || (s[i] >= 'A' && s[i] <= 'Z') || (s[i] >= '0' && s[i] <= '9') || s[i] == '_' || s[i] == '-') {
				i++
			}
			fname := strings.ToLower(strings.TrimSpace(s[fstart:i]))
			if fname == "" {
				return nil, fmt.Errorf("expecting a field name in entry '%s'", key)
			}
			skipWS()
			if i >= n || s[i] != '=' {
				return nil, fmt.Errorf("expecting '=' after field '%s'", fname)
			}
			i++
			skipWS()
			val, err := readValue(s, &i)
			if err != nil {
				return nil, err
			}
			fields[fname] = strings.TrimSpace(val)
			skipWS()
			if i < n && s[i] == ',' {
				i++
			}
		}

		entries = append(entries, Entry{Type: typ, Key: key, Fields: fields})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("expecting an entry, got '%s'", snippet(s))
	}
	return entries, nil
}

// readValue liest einen Feldwert: geklammert, in Anführungszeichen oder nackt.
func readValue(s string, i *int) (string, error) {
	n := len(s)
	if *i >= n {
		return "", fmt.Errorf("unexpected end of input in field value")
	}
	switch s[*i] {
	case '{':
		depth := 0
		*i++
		start := *i
		for *i < n {
			switch s[*i] {
			case '\\':
				*i += 2
				continue
			case '{':
				depth++
			case '}':
				if depth == 0 {
					val := s[start:*i]
					*i++
					return val, nil
				}
				depth--
			}
			*i++
		}
		return "", fmt.Errorf("unbalanced braces in field value")
	case '"':
		*i++
		start := *i
		for *i < n {
			if s[*i] == '\\' {
				*i += 2
				continue
			}
			if s[*i] == '"' {
				val := s[start:*i]
				*i++
				return val, nil
			}
			*i++
		}
		return "", fmt.Errorf("unterminated quoted field value")
	default:
		start := *i
		for *i < n && s[*i] != ',' && s[*i] != '}' && s[*i] != ')' && s[*i] != '\n' {
			*i++
		}
		return s[start:*i], nil
	}
}

// SplitAuthors zerlegt ein BibTeX-Autorfeld ("Doe, John and Smith, Jane")
// und normalisiert jeden Namen zu "First Last". Namen ohne Komma bleiben
// unverändert.
func SplitAuthors(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	parts := strings.Split(field, " and ")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if last, first, ok := strings.Cut(p, ","); ok {
			name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
			names = append(names, name)
			continue
		}
		names = append(names, p)
	}
	return names
}

// SplitKeywords zerlegt ein kommasepariertes Keyword-Feld.
func SplitKeywords(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	parts := strings.Split(field, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		s = s[:60] + "..."
	}
	return s
}
