package repos

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/types"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A pooled :memory: DSN would hand each connection its own database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&types.User{},
		&types.CaregiverLink{},
		&types.DailyMetric{},
		&types.ExerciseSession{},
		&types.PatternAlertEpisode{},
		&types.Notification{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *types.User {
	t.Helper()
	u := &types.User{Email: email, FirstName: "Test", LastName: "User"}
	created, err := NewUserRepo(db, testLogger()).Create(context.Background(), nil, []*types.User{u})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return created[0]
}

func seedUsers(t *testing.T, db *gorm.DB, n int) []*types.User {
	t.Helper()
	out := make([]*types.User, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, seedUser(t, db, fmt.Sprintf("user%d@example.com", i)))
	}
	return out
}
