package services

import (
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paperwhale/models"
)

// PaperService kapselt alle Datenbank-Operationen rund um Papers.
type PaperService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewPaperService erstellt eine neue Instanz des PaperService.
func NewPaperService(db *gorm.DB, logger *zap.Logger) *PaperService {
	return &PaperService{DB: db, Logger: logger}
}

// CreatePaper persistiert ein Paper und verknüpft Autoren und Keywords per
// Get-or-Create. Das Paper wird zuerst angelegt, damit die ID für die
// Verknüpfungen existiert. Doppelte URL/arXiv-ID schlägt erst am
// Unique-Constraint fehl.
func (s *PaperService) CreatePaper(data models.PaperCreate) (*models.Paper, error) {
	paper := models.Paper{
		Title:         data.Title,
		URL:           data.URL,
		Summary:       data.Summary,
		PublishedDate: data.PublishedDate,
	}
	if data.ArxivID != "" {
		id := data.ArxivID
		paper.ArxivID = &id
	}

	if err := s.DB.Create(&paper).Error; err != nil {
		s.Logger.Error("Paper konnte nicht angelegt werden", zap.String("url", data.URL), zap.Error(err))
		return nil, err
	}

	if err := s.attachAuthors(&paper, data.AuthorNames); err != nil {
		return nil, err
	}
	if err := s.attachKeywords(&paper, data.KeywordNames); err != nil {
		return nil, err
	}
	return &paper, nil
}

// GetPaper liefert ein Paper inkl. Verknüpfungen; nil wenn nicht vorhanden.
func (s *PaperService) GetPaper(id uint) (*models.Paper, error) {
	var paper models.Paper
	err := s.DB.Preload("Authors").Preload("Keywords").First(&paper, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

// GetPapers liefert eine Seite von Papers in natürlicher Reihenfolge.
func (s *PaperService) GetPapers(offset, limit int) ([]models.Paper, error) {
	var papers []models.Paper
	query := s.DB.Preload("Authors").Preload("Keywords").Order("papers.id")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&papers).Error; err != nil {
		return nil, err
	}
	return papers, nil
}

// GetPaperByURLOrArxivID liefert das erste Paper, das auf eines der beiden
// Felder passt. Sind beide leer, ist das Ergebnis nil.
func (s *PaperService) GetPaperByURLOrArxivID(url, arxivID string) (*models.Paper, error) {
	if url == "" && arxivID == "" {
		return nil, nil
	}
	query := s.DB
	switch {
	case url != "" && arxivID != "":
		query = query.Where("url = ? OR arxiv_id = ?", url, arxivID)
	case url != "":
		query = query.Where("url = ?", url)
	default:
		query = query.Where("arxiv_id = ?", arxivID)
	}

	var paper models.Paper
	err := query.First(&paper).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

// UpdatePaper ersetzt nur die im Update gesetzten Felder. Autor- und
// Keyword-Listen werden vollständig ersetzt, nicht inkrementell abgeglichen.
func (s *PaperService) UpdatePaper(id uint, update models.PaperUpdate) (*models.Paper, error) {
	paper, err := s.GetPaper(id)
	if err != nil || paper == nil {
		return paper, err
	}

	if update.Title != nil {
		paper.Title = *update.Title
	}
	if update.URL != nil {
		paper.URL = *update.URL
	}
	if update.Summary != nil {
		paper.Summary = *update.Summary
	}
	if update.PublishedDate != nil {
		paper.PublishedDate = update.PublishedDate
	}
	if update.ArxivID != nil {
		if *update.ArxivID == "" {
			paper.ArxivID = nil
		} else {
			paper.ArxivID = update.ArxivID
		}
	}
	if err := s.DB.Save(paper).Error; err != nil {
		return nil, err
	}

	if update.AuthorNames != nil {
		if err := s.DB.Model(paper).Association("Authors").Clear(); err != nil {
			return nil, err
		}
		paper.Authors = nil
		if err := s.attachAuthors(paper, *update.AuthorNames); err != nil {
			return nil, err
		}
	}
	if update.KeywordNames != nil {
		if err := s.DB.Model(paper).Association("Keywords").Clear(); err != nil {
			return nil, err
		}
		paper.Keywords = nil
		if err := s.attachKeywords(paper, *update.KeywordNames); err != nil {
			return nil, err
		}
	}
	return paper, nil
}

// DeletePaper entfernt ein Paper samt Verknüpfungszeilen. Geteilte Autoren
// und Keywords bleiben bestehen. Gibt zurück, ob eine Zeile existierte.
func (s *PaperService) DeletePaper(id uint) (bool, error) {
	paper, err := s.GetPaper(id)
	if err != nil {
		return false, err
	}
	if paper == nil {
		return false, nil
	}
	if err := s.DB.Select(clause.Associations).Delete(paper).Error; err != nil {
		return false, err
	}
	return true, nil
}

// SearchPapers sucht case-insensitiv per Substring über Titel, Summary,
// Autor- und Keyword-Namen. Distinct über beide Outer-Join-Pfade, keine
// Ranking-Garantie.
func (s *PaperService) SearchPapers(query string) ([]models.Paper, error) {
	pattern := "%" + strings.ToLower(query) + "%"

	var ids []uint
	err := s.DB.Model(&models.Paper{}).
		Joins("LEFT JOIN paper_authors ON paper_authors.paper_id = papers.id").
		Joins("LEFT JOIN authors ON authors.id = paper_authors.author_id").
		Joins("LEFT JOIN paper_keywords ON paper_keywords.paper_id = papers.id").
		Joins("LEFT JOIN keywords ON keywords.id = paper_keywords.keyword_id").
		Where("LOWER(papers.title) LIKE ? OR LOWER(papers.summary) LIKE ? OR LOWER(authors.name) LIKE ? OR LOWER(keywords.name) LIKE ?",
			pattern, pattern, pattern, pattern).
		Distinct().
		Pluck("papers.id", &ids).Error
	if err != nil {
		s.Logger.Error("Paper-Suche fehlgeschlagen", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Paper{}, nil
	}

	var papers []models.Paper
	if err := s.DB.Preload("Authors").Preload("Keywords").Where("id IN ?", ids).Order("id").Find(&papers).Error; err != nil {
		return nil, err
	}
	return papers, nil
}

func (s *PaperService) attachAuthors(paper *models.Paper, names []string) error {
	for _, name := range names {
		author, err := getOrCreateAuthor(s.DB, name)
		if err != nil {
			return err
		}
		if err := s.DB.Model(paper).Association("Authors").Append(author); err != nil {
			return err
		}
	}
	return nil
}

func (s *PaperService) attachKeywords(paper *models.Paper, names []string) error {
	for _, name := range names {
		keyword, err := getOrCreateKeyword(s.DB, name)
		if err != nil {
			return err
		}
		if err := s.DB.Model(paper).Association("Keywords").Append(keyword); err != nil {
			return err
		}
	}
	return nil
}

// getOrCreateAuthor sucht einen Autor per exaktem Namen, legt ihn sonst an.
func getOrCreateAuthor(db *gorm.DB, name string) (*models.Author, error) {
	var author models.Author
	err := db.Where("name = ?", name).First(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		author = models.Author{Name: name}
		if err := db.Create(&author).Error; err != nil {
			return nil, err
		}
		return &author, nil
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// getOrCreateKeyword sucht ein Keyword per exaktem Namen, legt es sonst an.
func getOrCreateKeyword(db *gorm.DB, name string) (*models.Keyword, error) {
	var keyword models.Keyword
	err := db.Where("name = ?", name).First(&keyword).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		keyword = models.Keyword{Name: name}
		if err := db.Create(&keyword).Error; err != nil {
			return nil, err
		}
		return &keyword, nil
	}
	if err != nil {
		return nil, err
	}
	return &keyword, nil
}
