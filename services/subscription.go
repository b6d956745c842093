package services

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paperwhale/models"
)

// SubscriptionService verwaltet Keyword- und Autor-Abos der User.
type SubscriptionService struct {
	DB     *gorm.DB
	Logger *zap.Logger
	Users  *UserService
}

// NewSubscriptionService erstellt eine neue Instanz des SubscriptionService.
func NewSubscriptionService(db *gorm.DB, logger *zap.Logger, users *UserService) *SubscriptionService {
	return &SubscriptionService{DB: db, Logger: logger, Users: users}
}

// SubscribeKeyword abonniert ein Keyword für den User. Keyword und User
// werden bei Bedarf angelegt. Existiert das Abo bereits, ist das Ergebnis
// (nil, nil) und die Operation ein No-op.
func (s *SubscriptionService) SubscribeKeyword(slackUserID, keywordName string) (*models.UserKeyword, error) {
	user, err := s.Users.GetOrCreateUser(slackUserID)
	if err != nil {
		return nil, err
	}
	keyword, err := getOrCreateKeyword(s.DB, keywordName)
	if err != nil {
		return nil, err
	}

	var existing models.UserKeyword
	err = s.DB.Where("user_id = ? AND keyword_id = ?", user.ID, keyword.ID).First(&existing).Error
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub := models.UserKeyword{UserID: user.ID, KeywordID: keyword.ID}
	if err := s.DB.Create(&sub).Error; err != nil {
		return nil, err
	}
	s.Logger.Info("Keyword abonniert",
		zap.String("slack_user_id", slackUserID),
		zap.String("keyword", keywordName))
	return &sub, nil
}

// UnsubscribeKeyword entfernt ein Keyword-Abo. Gibt zurück, ob eines
// existierte. Das Keyword selbst bleibt erhalten.
func (s *SubscriptionService) UnsubscribeKeyword(slackUserID, keywordName string) (bool, error) {
	user, err := s.Users.GetOrCreateUser(slackUserID)
	if err != nil {
		return false, err
	}
	var keyword models.Keyword
	err = s.DB.Where("name = ?", keywordName).First(&keyword).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	result := s.DB.Where("user_id = ? AND keyword_id = ?", user.ID, keyword.ID).Delete(&models.UserKeyword{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SubscribeAuthor abonniert einen Autor für den User, analog zu
// SubscribeKeyword inklusive (nil, nil) bei bestehendem Abo.
func (s *SubscriptionService) SubscribeAuthor(slackUserID, authorName string) (*models.UserAuthor, error) {
	user, err := s.Users.GetOrCreateUser(slackUserID)
	if err != nil {
		return nil, err
	}
	author, err := getOrCreateAuthor(s.DB, authorName)
	if err != nil {
		return nil, err
	}

	var existing models.UserAuthor
	err = s.DB.Where("user_id = ? AND author_id = ?", user.ID, author.ID).First(&existing).Error
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub := models.UserAuthor{UserID: user.ID, AuthorID: author.ID}
	if err := s.DB.Create(&sub).Error; err != nil {
		return nil, err
	}
	s.Logger.Info("Autor abonniert",
		zap.String("slack_user_id", slackUserID),
		zap.String("author", authorName))
	return &sub, nil
}

// UnsubscribeAuthor entfernt ein Autor-Abo. Gibt zurück, ob eines existierte.
func (s *SubscriptionService) UnsubscribeAuthor(slackUserID, authorName string) (bool, error) {
	user, err := s.Users.GetOrCreateUser(slackUserID)
	if err != nil {
		return false, err
	}
	var author models.Author
	err = s.DB.Where("name = ?", authorName).First(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	result := s.DB.Where("user_id = ? AND author_id = ?", user.ID, author.ID).Delete(&models.UserAuthor{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListKeywords liefert alle Keyword-Abos eines Users.
func (s *SubscriptionService) ListKeywords(slackUserID string) ([]models.UserKeyword, error) {
	user, err := s.Users.GetOrCreateUser(slackUserID)
	if err != nil {
		return nil, err
	}
	var subs []models.UserKeyword
	if err := s.DB.Preload("Keyword").Where("user_id = ?", user.ID).Order("id").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// ListAuthors liefert alle Autor-Abos eines Users.
func (s *SubscriptionService) ListAuthors(slackUserID string) ([]models.UserAuthor, error) {
	user, err := s.Users.GetOrCreateUser(slackUserID)
	if err != nil {
		return nil, err
	}
	var subs []models.UserAuthor
	if err := s.DB.Preload("Author").Where("user_id = ?", user.ID).Order("id").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// KeywordSubscribers liefert pro abonniertem Keyword die Slack-IDs aller
// Abonnenten. Grundlage für den Fan-out des Poll-Jobs.
func (s *SubscriptionService) KeywordSubscribers() (map[string][]string, error) {
	var subs []models.UserKeyword
	if err := s.DB.Preload("User").Preload("Keyword").Order("id").Find(&subs).Error; err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, sub := range subs {
		out[sub.Keyword.Name] = append(out[sub.Keyword.Name], sub.User.SlackUserID)
	}
	return out, nil
}
