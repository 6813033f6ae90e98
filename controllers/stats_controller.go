package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/newsdesk/newsdesk/models"
	"github.com/newsdesk/newsdesk/utils"
)

// StatsController serves reporting endpoints backed by the materialized
// daily aggregates. A missing aggregate row always reads as zero views.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns site-wide counters.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var articleCount int64
	var totalViews int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}

	if err := s.db.Model(&models.Article{}).
		Where("status = ?", models.StatusPublished).
		Count(&articleCount).Error; err != nil {
		articleCount = 0
	}

	if err := s.db.Model(&models.DailyAggregate{}).
		Select("COALESCE(SUM(view_count),0)").
		Scan(&totalViews).Error; err != nil {
		totalViews = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":    userCount,
		"article_count": articleCount,
		"total_views":   totalViews,
	})
}

// GetArticleStats returns the daily view series and total for one article.
// Days without reads have no row; consumers treat the gap as zero.
func (s *StatsController) GetArticleStats(ctx *gin.Context) {
	id := ctx.Param("id")

	var article models.Article
	if err := s.db.First(&article, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40421, "article no longer available")
		return
	}

	var rows []models.DailyAggregate
	if err := s.db.Where("article_id = ?", article.ID).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load article stats")
		return
	}

	type dayViews struct {
		Date      string `json:"date"`
		ViewCount int64  `json:"view_count"`
	}
	daily := make([]dayViews, 0, len(rows))
	var total int64
	for _, r := range rows {
		daily = append(daily, dayViews{Date: r.Date.UTC().Format("2006-01-02"), ViewCount: r.ViewCount})
		total += r.ViewCount
	}

	utils.Success(ctx, gin.H{
		"article_id":  article.ID,
		"total_views": total,
		"daily":       daily,
	})
}

// Dashboard returns the authenticated author's articles with lifetime view
// totals summed across their daily aggregates.
func (s *StatsController) Dashboard(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := s.db.Model(&models.Article{}).
		Where("author_id = ?", userID).
		Order("created_at DESC")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to count articles")
		return
	}

	var articles []models.Article
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&articles).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to list articles")
		return
	}

	ids := make([]uint, 0, len(articles))
	for _, a := range articles {
		ids = append(ids, a.ID)
	}

	views := map[uint]int64{}
	if len(ids) > 0 {
		type viewSum struct {
			ArticleID uint
			Total     int64
		}
		var sums []viewSum
		if err := s.db.Model(&models.DailyAggregate{}).
			Select("article_id, COALESCE(SUM(view_count),0) AS total").
			Where("article_id IN ?", ids).
			Group("article_id").
			Scan(&sums).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to sum views")
			return
		}
		for _, v := range sums {
			views[v.ArticleID] = v.Total
		}
	}

	type dashboardEntry struct {
		ID         uint      `json:"id"`
		Title      string    `json:"title"`
		Status     string    `json:"status"`
		CreatedAt  time.Time `json:"created_at"`
		TotalViews int64     `json:"total_views"`
	}
	items := make([]dashboardEntry, 0, len(articles))
	for _, a := range articles {
		items = append(items, dashboardEntry{
			ID:         a.ID,
			Title:      a.Title,
			Status:     a.Status,
			CreatedAt:  a.CreatedAt,
			TotalViews: views[a.ID],
		})
	}

	utils.Success(ctx, gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}
