// Package analytics materializes per-article daily view counts from the raw
// read_events log. The rollup is a single pass: one grouped count query over a
// half-open UTC day window, then one overwrite-style upsert per article.
// Re-running a day always converges to the same counts.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/newsdesk/newsdesk/models"
	"github.com/newsdesk/newsdesk/utils"
)

// DayOf normalizes an instant to 00:00:00 UTC of its UTC calendar day.
// Only the UTC year/month/day components matter; the location of t does not.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RunResult summarizes one rollup run.
type RunResult struct {
	RunID     string    `json:"run_id"`
	TargetDay time.Time `json:"target_day"`
	Groups    int       `json:"groups"`
	Upserted  int       `json:"upserted"`
	// Failed lists article IDs whose upsert failed; their rows may be stale
	// or missing for the day until the run is repeated.
	Failed []uint `json:"failed,omitempty"`
}

// Aggregator computes daily view counts. The clock is injectable so tests can
// pin "now" instead of depending on wall-clock time.
type Aggregator struct {
	db  *gorm.DB
	now func() time.Time
	log *zap.SugaredLogger
}

// NewAggregator creates an Aggregator using the real clock.
func NewAggregator(db *gorm.DB) *Aggregator {
	lg := utils.Sugar
	if lg == nil {
		lg = zap.NewNop().Sugar()
	}
	return &Aggregator{db: db, now: time.Now, log: lg}
}

// WithClock overrides the time source. Intended for tests.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Run rolls up yesterday, measured in UTC relative to the injected clock.
// The job keeps no cursor between runs; every invocation recomputes its
// target day from the clock.
func (a *Aggregator) Run(ctx context.Context) (RunResult, error) {
	return a.RunForDay(ctx, a.now().UTC().AddDate(0, 0, -1))
}

// RunForDay computes and persists one DailyAggregate row per article that had
// at least one read event on the given UTC day. The day parameter is
// normalized, so callers may pass any instant within the day; this is also the
// backfill entry point for reprocessing missed days.
//
// A failed count query aborts the run. A failed upsert only skips that
// article: remaining groups are still attempted and the failures are reported
// in the result.
func (a *Aggregator) RunForDay(ctx context.Context, day time.Time) (RunResult, error) {
	targetDay := DayOf(day)
	windowEnd := targetDay.AddDate(0, 0, 1)

	res := RunResult{
		RunID:     uuid.NewString(),
		TargetDay: targetDay,
	}

	type articleCount struct {
		ArticleID uint
		ViewCount int64
	}
	var groups []articleCount
	if err := a.db.WithContext(ctx).
		Model(&models.ReadEvent{}).
		Select("article_id, COUNT(*) AS view_count").
		Where("read_at >= ? AND read_at < ?", targetDay, windowEnd).
		Group("article_id").
		Scan(&groups).Error; err != nil {
		a.log.Errorw("rollup query failed",
			"run_id", res.RunID,
			"target_day", targetDay.Format("2006-01-02"),
			"error", err,
		)
		return res, fmt.Errorf("count read events for %s: %w", targetDay.Format("2006-01-02"), err)
	}
	res.Groups = len(groups)

	for _, g := range groups {
		// Overwrite, never increment: concurrent runs for the same day both
		// compute from the same immutable window, so last writer wins with an
		// identical value.
		row := models.DailyAggregate{
			ArticleID: g.ArticleID,
			Date:      targetDay,
			ViewCount: g.ViewCount,
		}
		err := a.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "article_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"view_count": g.ViewCount, "updated_at": time.Now()}),
		}).Create(&row).Error
		if err != nil {
			a.log.Errorw("rollup upsert failed",
				"run_id", res.RunID,
				"target_day", targetDay.Format("2006-01-02"),
				"article_id", g.ArticleID,
				"error", err,
			)
			res.Failed = append(res.Failed, g.ArticleID)
			continue
		}
		res.Upserted++
	}

	a.log.Infow("rollup completed",
		"run_id", res.RunID,
		"target_day", targetDay.Format("2006-01-02"),
		"groups", res.Groups,
		"upserted", res.Upserted,
		"failed", len(res.Failed),
	)
	return res, nil
}
