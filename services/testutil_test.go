package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paperwhale/models"
)

// newTestDB öffnet eine isolierte In-Memory-Datenbank pro Test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Paper{}, &models.Author{}, &models.Keyword{},
		&models.User{}, &models.UserKeyword{}, &models.UserAuthor{})
	require.NoError(t, err)
	return db
}

func newTestServices(t *testing.T) (*PaperService, *UserService, *SubscriptionService) {
	t.Helper()
	db := newTestDB(t)
	log := zap.NewNop()
	papers := NewPaperService(db, log)
	users := NewUserService(db, log)
	subs := NewSubscriptionService(db, log, users)
	return papers, users, subs
}
