package services

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paperwhale/models"
)

// UserService verwaltet Slack-User und deren hinterlegte API-Keys.
type UserService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewUserService erstellt eine neue Instanz des UserService.
func NewUserService(db *gorm.DB, logger *zap.Logger) *UserService {
	return &UserService{DB: db, Logger: logger}
}

// GetOrCreateUser liefert den User zur Slack-ID oder legt ihn implizit an.
func (s *UserService) GetOrCreateUser(slackUserID string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("slack_user_id = ?", slackUserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{SlackUserID: slackUserID}
		if err := s.DB.Create(&user).Error; err != nil {
			return nil, err
		}
		s.Logger.Info("Neuer User angelegt", zap.String("slack_user_id", slackUserID))
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateAPIKey hinterlegt oder ersetzt den Gemini-Key eines Users.
// Der Key selbst landet nie im Log.
func (s *UserService) UpdateAPIKey(slackUserID, apiKey string) (*models.User, error) {
	user, err := s.GetOrCreateUser(slackUserID)
	if err != nil {
		return nil, err
	}
	user.GeminiAPIKey = apiKey
	if err := s.DB.Save(user).Error; err != nil {
		return nil, err
	}
	s.Logger.Info("API-Key aktualisiert", zap.String("slack_user_id", slackUserID))
	return user, nil
}
