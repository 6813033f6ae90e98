package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/newsdesk/newsdesk/middleware"
	"github.com/newsdesk/newsdesk/models"
	"github.com/newsdesk/newsdesk/utils"
)

// ArticleController manages CRUD operations for articles and records reads.
type ArticleController struct {
	db *gorm.DB
}

// NewArticleController creates a new ArticleController instance.
func NewArticleController(db *gorm.DB) *ArticleController {
	return &ArticleController{db: db}
}

// CreateArticle allows authors to create new articles.
func (p *ArticleController) CreateArticle(ctx *gin.Context) {
	var req struct {
		Title    string `json:"title" binding:"required"`
		Content  string `json:"content" binding:"required"`
		Category string `json:"category" binding:"required"`
		Status   string `json:"status"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	if l := len([]rune(title)); l < 1 || l > 150 {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title must be between 1 and 150 characters")
		return
	}

	content := utils.Sanitize(req.Content)
	if len([]rune(content)) < 50 {
		utils.Error(ctx, http.StatusBadRequest, 40022, "content must be at least 50 characters")
		return
	}

	if strings.TrimSpace(req.Category) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40023, "category is required")
		return
	}

	status := req.Status
	if status == "" {
		status = models.StatusDraft
	}
	if !models.ValidStatus(status) {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid status")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	article := models.Article{
		AuthorID: userID,
		Title:    title,
		Content:  content,
		Category: strings.TrimSpace(req.Category),
		Status:   status,
	}

	if err := p.db.Create(&article).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create article")
		return
	}

	utils.InvalidateByPrefix("cache:articles:list:")

	ctx.JSON(http.StatusCreated, utils.JSONResponse{
		Code:    0,
		Message: "article created",
		Data:    gin.H{"article": article},
	})
}

// ListArticles returns paginated published articles with author information.
// Supports category, author-name and title substring filters.
func (p *ArticleController) ListArticles(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	q := strings.TrimSpace(ctx.Query("q"))
	category := strings.TrimSpace(ctx.Query("category"))
	author := strings.TrimSpace(ctx.Query("author"))

	// Cache only unfiltered pages to avoid cache key explosion
	cacheable := q == "" && category == "" && author == ""
	cacheKey := fmt.Sprintf("cache:articles:list:page=%d:size=%d", page, pageSize)
	if cacheable {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	query := p.db.Model(&models.Article{}).
		Preload("Author").
		Where("articles.status = ?", models.StatusPublished).
		Order("articles.created_at DESC")
	if category != "" {
		query = query.Where("articles.category = ?", category)
	}
	if q != "" {
		query = query.Where("articles.title LIKE ?", "%"+q+"%")
	}
	if author != "" {
		query = query.Joins("JOIN users ON users.id = articles.author_id").
			Where("users.name LIKE ?", "%"+author+"%")
	}

	var articles []models.Article
	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count articles")
		return
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Find(&articles).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list articles")
		return
	}

	payload := gin.H{
		"items": articles,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	if cacheable {
		wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
		utils.CacheSetJSON(cacheKey, wrapper, time.Hour)
	}
	utils.Success(ctx, payload)
}

// ListMyArticles returns the authenticated author's own articles, optionally
// including soft-deleted ones.
func (p *ArticleController) ListMyArticles(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	includeDeleted := ctx.Query("include_deleted") == "true"

	query := p.db.Model(&models.Article{})
	if includeDeleted {
		query = query.Unscoped()
	}
	query = query.Where("author_id = ?", userID).Order("created_at DESC")

	var articles []models.Article
	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to count articles")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&articles).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to list articles")
		return
	}

	utils.Success(ctx, gin.H{
		"items": articles,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// UpdateArticle lets an author modify their own non-deleted article.
func (p *ArticleController) UpdateArticle(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Title    *string `json:"title"`
		Content  *string `json:"content"`
		Category *string `json:"category"`
		Status   *string `json:"status"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40025, "invalid request payload")
		return
	}

	var article models.Article
	if err := p.db.Unscoped().First(&article, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40420, "article not found")
		return
	}

	if article.AuthorID != userID {
		utils.Error(ctx, http.StatusForbidden, 40302, "not your article")
		return
	}

	if article.DeletedAt.Valid {
		utils.Error(ctx, http.StatusBadRequest, 40026, "cannot modify deleted article")
		return
	}

	if req.Title != nil {
		title := utils.Sanitize(strings.TrimSpace(*req.Title))
		if l := len([]rune(title)); l < 1 || l > 150 {
			utils.Error(ctx, http.StatusBadRequest, 40021, "title must be between 1 and 150 characters")
			return
		}
		article.Title = title
	}
	if req.Content != nil {
		content := utils.Sanitize(*req.Content)
		if len([]rune(content)) < 50 {
			utils.Error(ctx, http.StatusBadRequest, 40022, "content must be at least 50 characters")
			return
		}
		article.Content = content
	}
	if req.Category != nil {
		if strings.TrimSpace(*req.Category) == "" {
			utils.Error(ctx, http.StatusBadRequest, 40023, "category is required")
			return
		}
		article.Category = strings.TrimSpace(*req.Category)
	}
	if req.Status != nil {
		if !models.ValidStatus(*req.Status) {
			utils.Error(ctx, http.StatusBadRequest, 40024, "invalid status")
			return
		}
		article.Status = *req.Status
	}

	if err := p.db.Save(&article).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to update article")
		return
	}

	utils.InvalidateByPrefix("cache:articles:list:")

	utils.Success(ctx, gin.H{"article": article})
}

// DeleteArticle soft deletes an author's own article.
func (p *ArticleController) DeleteArticle(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var article models.Article
	if err := p.db.First(&article, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40420, "article not found")
		return
	}

	if article.AuthorID != userID {
		utils.Error(ctx, http.StatusForbidden, 40302, "not your article")
		return
	}

	if err := p.db.Delete(&article).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to delete article")
		return
	}

	utils.InvalidateByPrefix("cache:articles:list:")

	utils.Success(ctx, gin.H{"message": "article soft deleted"})
}

// GetArticle returns a single published article and records a read event.
// The read is logged best-effort; a failure never affects the response.
func (p *ArticleController) GetArticle(ctx *gin.Context) {
	var article models.Article
	if err := p.db.Preload("Author").First(&article, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40421, "article no longer available")
		return
	}

	if article.Status != models.StatusPublished {
		utils.Error(ctx, http.StatusNotFound, 40422, "article not available")
		return
	}

	var readerID *uint
	if id, ok := getUserID(ctx); ok {
		readerID = &id
	}
	go p.recordRead(article.ID, readerID)

	utils.Success(ctx, gin.H{"article": article})
}

// recordRead appends one ReadEvent row. ReaderID stays nil for anonymous
// visitors. The nightly rollup counts every row written here.
func (p *ArticleController) recordRead(articleID uint, readerID *uint) {
	ev := models.ReadEvent{
		ArticleID: articleID,
		ReaderID:  readerID,
		ReadAt:    time.Now().UTC(),
	}
	if err := p.db.Create(&ev).Error; err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("failed to record read for article %d: %v", articleID, err)
		}
	}
}

// parsePagination normalizes page and page_size query values.
func parsePagination(pageStr, sizeStr string) (int, int) {
	page, pageSize := 1, 10
	if v := strings.TrimSpace(pageStr); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := strings.TrimSpace(sizeStr); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}
	return page, pageSize
}

// getUserID extracts the authenticated user ID from Gin context.
func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	default:
		return 0, false
	}
}
