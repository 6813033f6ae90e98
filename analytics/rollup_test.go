package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/newsdesk/newsdesk/models"
)

func setupRollupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	// A fresh pool connection would see an empty memory database, so keep
	// everything on a single connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.ReadEvent{}, &models.DailyAggregate{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedRead(t *testing.T, db *gorm.DB, articleID uint, readAt time.Time) {
	t.Helper()
	ev := models.ReadEvent{ArticleID: articleID, ReadAt: readAt}
	require.NoError(t, db.Create(&ev).Error)
}

func loadAggregates(t *testing.T, db *gorm.DB, day time.Time) map[uint]int64 {
	t.Helper()
	var rows []models.DailyAggregate
	require.NoError(t, db.Where("date = ?", day).Find(&rows).Error)
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.ArticleID] = r.ViewCount
	}
	return out
}

func TestDayOf(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "strips time of day",
			in:   time.Date(2024, 1, 2, 15, 4, 5, 123456789, time.UTC),
			want: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "already midnight",
			in:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "uses UTC components not local ones",
			in:   time.Date(2024, 1, 3, 1, 30, 0, 0, time.FixedZone("UTC+3", 3*3600)),
			want: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, DayOf(tc.in).Equal(tc.want), "got %v", DayOf(tc.in))
		})
	}
}

// Scenario: three reads of X and Y on Jan 2, one read of X at midnight Jan 3.
// Rolling up Jan 2 must count X=2, Y=1 and leave Jan 3 untouched.
func TestRunForDayGrouping(t *testing.T) {
	db := setupRollupDB(t)
	seedRead(t, db, 1, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	seedRead(t, db, 1, time.Date(2024, 1, 2, 23, 59, 59, 0, time.UTC))
	seedRead(t, db, 2, time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC))
	seedRead(t, db, 1, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	res, err := NewAggregator(db).RunForDay(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Groups)
	assert.Equal(t, 2, res.Upserted)
	assert.Empty(t, res.Failed)
	assert.NotEmpty(t, res.RunID)
	assert.True(t, res.TargetDay.Equal(day))

	got := loadAggregates(t, db, day)
	assert.Equal(t, map[uint]int64{1: 2, 2: 1}, got)

	// The run for Jan 2 must not have produced any Jan 3 rows.
	nextDay := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, loadAggregates(t, db, nextDay))
}

func TestWindowBoundaries(t *testing.T) {
	db := setupRollupDB(t)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	// Exactly at the lower bound: included. Exactly at the upper bound:
	// excluded here, included in the next day's run.
	seedRead(t, db, 7, day)
	seedRead(t, db, 7, day.AddDate(0, 0, 1))

	agg := NewAggregator(db)
	_, err := agg.RunForDay(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{7: 1}, loadAggregates(t, db, day))

	_, err = agg.RunForDay(context.Background(), day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{7: 1}, loadAggregates(t, db, day.AddDate(0, 0, 1)))
}

func TestIdempotentRerun(t *testing.T) {
	db := setupRollupDB(t)
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	seedRead(t, db, 1, day.Add(2*time.Hour))
	seedRead(t, db, 1, day.Add(3*time.Hour))
	seedRead(t, db, 2, day.Add(4*time.Hour))

	agg := NewAggregator(db)
	for i := 0; i < 2; i++ {
		res, err := agg.RunForDay(context.Background(), day)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Upserted)
	}

	assert.Equal(t, map[uint]int64{1: 2, 2: 1}, loadAggregates(t, db, day))

	// Still exactly one row per (article, day).
	var total int64
	require.NoError(t, db.Model(&models.DailyAggregate{}).Count(&total).Error)
	assert.EqualValues(t, 2, total)
}

func TestOverwriteNotAccumulate(t *testing.T) {
	db := setupRollupDB(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	// A stale row from an earlier run claims 5 views; the log now holds 3.
	require.NoError(t, db.Create(&models.DailyAggregate{ArticleID: 9, Date: day, ViewCount: 5}).Error)
	for i := 0; i < 3; i++ {
		seedRead(t, db, 9, day.Add(time.Duration(i)*time.Hour))
	}

	_, err := NewAggregator(db).RunForDay(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, map[uint]int64{9: 3}, loadAggregates(t, db, day))
}

func TestSparseResult(t *testing.T) {
	db := setupRollupDB(t)
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	// Article 2 has reads only on another day; article 3 has none at all.
	seedRead(t, db, 1, day.Add(time.Hour))
	seedRead(t, db, 2, day.AddDate(0, 0, 3))

	res, err := NewAggregator(db).RunForDay(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Groups)
	got := loadAggregates(t, db, day)
	assert.Equal(t, map[uint]int64{1: 1}, got)
	_, ok := got[2]
	assert.False(t, ok, "no zero-filled row may exist for article 2")
}

func TestRunTargetsYesterday(t *testing.T) {
	db := setupRollupDB(t)
	seedRead(t, db, 4, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))

	// Clock pinned to the scheduled fire time on Jan 3: target day is Jan 2.
	now := time.Date(2024, 1, 3, 0, 10, 0, 0, time.UTC)
	agg := NewAggregator(db).WithClock(func() time.Time { return now })

	res, err := agg.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.TargetDay.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, map[uint]int64{4: 1}, loadAggregates(t, db, res.TargetDay))
}

func TestRunForDayNormalizesInput(t *testing.T) {
	db := setupRollupDB(t)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	seedRead(t, db, 1, day.Add(time.Hour))

	// Passing any instant within the day must hit the same window.
	res, err := NewAggregator(db).RunForDay(context.Background(), day.Add(17*time.Hour+30*time.Minute))
	require.NoError(t, err)
	assert.True(t, res.TargetDay.Equal(day))
	assert.Equal(t, map[uint]int64{1: 1}, loadAggregates(t, db, day))
}

func TestQueryFailureAbortsRun(t *testing.T) {
	db := setupRollupDB(t)
	// Dropping the source table makes the grouped count fail outright.
	require.NoError(t, db.Migrator().DropTable(&models.ReadEvent{}))

	res, err := NewAggregator(db).RunForDay(context.Background(), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Zero(t, res.Upserted)
}

func TestUpsertFailuresCollected(t *testing.T) {
	db := setupRollupDB(t)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	seedRead(t, db, 1, day.Add(time.Hour))
	seedRead(t, db, 2, day.Add(2*time.Hour))

	// With the destination table gone the grouped count still succeeds but
	// every per-group write fails. The run must finish, report each failed
	// article, and not surface an error of its own.
	require.NoError(t, db.Migrator().DropTable(&models.DailyAggregate{}))

	res, err := NewAggregator(db).RunForDay(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Groups)
	assert.Zero(t, res.Upserted)
	assert.ElementsMatch(t, []uint{1, 2}, res.Failed)
}

func TestAnonymousAndRepeatReadsAllCount(t *testing.T) {
	db := setupRollupDB(t)
	day := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	reader := uint(42)
	require.NoError(t, db.Create(&models.ReadEvent{ArticleID: 5, ReaderID: &reader, ReadAt: day.Add(time.Hour)}).Error)
	require.NoError(t, db.Create(&models.ReadEvent{ArticleID: 5, ReaderID: &reader, ReadAt: day.Add(2 * time.Hour)}).Error)
	seedRead(t, db, 5, day.Add(3*time.Hour)) // anonymous

	_, err := NewAggregator(db).RunForDay(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{5: 3}, loadAggregates(t, db, day))
}
