package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openRepositoryTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func createRepoTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		PasswordHash: "hash",
		Role:         constants.UserRoleUser,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s failed: %v", username, err)
	}
	return user
}

func createRepoTestCredit(t *testing.T, db *gorm.DB, userID uint, score string, totalOrders, completed int64) {
	t.Helper()
	credit := models.UserCredit{
		UserID:          userID,
		CreditScore:     decimal.RequireFromString(score),
		TotalOrders:     totalOrders,
		CompletedOrders: completed,
	}
	if err := db.Create(&credit).Error; err != nil {
		t.Fatalf("create credit for user %d failed: %v", userID, err)
	}
}

func TestCreditRepositoryRankingOrder(t *testing.T) {
	db := openRepositoryTestDB(t, "credit_ranking")
	repo := NewCreditRepository(db)

	userA := createRepoTestUser(t, db, "user_a")
	userB := createRepoTestUser(t, db, "user_b")
	userC := createRepoTestUser(t, db, "user_c")
	userD := createRepoTestUser(t, db, "user_d")
	createRepoTestCredit(t, db, userA.ID, "95", 3, 3)
	createRepoTestCredit(t, db, userB.ID, "95", 5, 5)
	createRepoTestCredit(t, db, userC.ID, "80", 1, 1)
	createRepoTestCredit(t, db, userD.ID, "60", 0, 0)

	rows, total, err := repo.Ranking(CreditRankingFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("ranking failed: %v", err)
	}
	if total != 4 {
		t.Fatalf("total want 4 got %d", total)
	}
	want := []string{"user_b", "user_a", "user_c", "user_d"}
	if len(rows) != len(want) {
		t.Fatalf("rows want %d got %d", len(want), len(rows))
	}
	for i, name := range want {
		if rows[i].Username != name {
			t.Fatalf("rank %d want %s got %s", i+1, name, rows[i].Username)
		}
	}
	if !rows[0].CreditScore.Equal(decimal.NewFromInt(95)) {
		t.Fatalf("top score want 95 got %s", rows[0].CreditScore)
	}
}

func TestCreditRepositoryRankingFiltersAndPaging(t *testing.T) {
	db := openRepositoryTestDB(t, "credit_ranking_filter")
	repo := NewCreditRepository(db)

	for i, score := range []string{"91", "85.5", "72", "65", "40"} {
		user := createRepoTestUser(t, db, fmt.Sprintf("filter_user_%d", i))
		createRepoTestCredit(t, db, user.ID, score, int64(5-i), int64(5-i))
	}

	rows, total, err := repo.Ranking(CreditRankingFilter{
		MinOrders: 2,
		MinScore:  decimal.NewFromInt(70),
		Page:      2,
		PageSize:  2,
	})
	if err != nil {
		t.Fatalf("ranking failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("filtered total want 3 got %d", total)
	}
	if len(rows) != 1 {
		t.Fatalf("second page want 1 row got %d", len(rows))
	}
	if rows[0].Username != "filter_user_2" {
		t.Fatalf("second page row want filter_user_2 got %s", rows[0].Username)
	}
}

func TestCreditRepositoryStats(t *testing.T) {
	db := openRepositoryTestDB(t, "credit_stats")
	repo := NewCreditRepository(db)

	cases := []struct {
		score  string
		orders int64
	}{
		{score: "95", orders: 3},
		{score: "85", orders: 2},
		{score: "75", orders: 1},
		{score: "65", orders: 1},
		{score: "50", orders: 4},
		{score: "80", orders: 0},
	}
	for i, tc := range cases {
		user := createRepoTestUser(t, db, fmt.Sprintf("stats_user_%d", i))
		createRepoTestCredit(t, db, user.ID, tc.score, tc.orders, tc.orders)
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalUsers != 6 || stats.ActiveUsers != 5 {
		t.Fatalf("unexpected user counts: total=%d active=%d", stats.TotalUsers, stats.ActiveUsers)
	}
	if !stats.AvgScore.Valid || !stats.AvgScore.Decimal.Round(2).Equal(decimal.NewFromInt(74)) {
		t.Fatalf("avg score want 74 got %+v", stats.AvgScore)
	}
	if stats.Excellent != 1 || stats.Good != 1 || stats.Average != 1 || stats.Poor != 1 || stats.Bad != 1 {
		t.Fatalf("unexpected distribution: %+v", stats)
	}
}

func TestCreditRepositoryStatsEmpty(t *testing.T) {
	db := openRepositoryTestDB(t, "credit_stats_empty")
	stats, err := NewCreditRepository(db).Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalUsers != 0 || stats.AvgScore.Valid {
		t.Fatalf("empty stats unexpected: %+v", stats)
	}
}

func TestCreditRepositoryGetMissingReturnsNil(t *testing.T) {
	db := openRepositoryTestDB(t, "credit_missing")
	credit, err := NewCreditRepository(db).GetByUserIDForUpdate(99)
	if err != nil {
		t.Fatalf("get missing credit failed: %v", err)
	}
	if credit != nil {
		t.Fatalf("expected nil credit, got %+v", credit)
	}
}

func TestCreditRepositoryForUpdateEmitsRowLock(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 port=5432 user=sx dbname=sx sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open postgres dry run failed: %v", err)
	}
	var captured string
	if err := db.Callback().Query().After("gorm:query").Register("test:capture_sql", func(tx *gorm.DB) {
		captured = tx.Statement.SQL.String()
	}); err != nil {
		t.Fatalf("register capture callback failed: %v", err)
	}
	repo := NewCreditRepository(db)

	if _, err := repo.GetByUserIDForUpdate(7); err != nil {
		t.Fatalf("dry run locked read failed: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(captured), "FOR UPDATE") {
		t.Fatalf("locked read should end with FOR UPDATE, got %q", captured)
	}

	if _, err := repo.GetByUserID(7); err != nil {
		t.Fatalf("dry run plain read failed: %v", err)
	}
	if strings.Contains(captured, "FOR UPDATE") {
		t.Fatalf("plain read must not lock, got %q", captured)
	}
}
