package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/newsdesk/newsdesk/controllers"
	"github.com/newsdesk/newsdesk/middleware"
	"github.com/newsdesk/newsdesk/models"
	"github.com/newsdesk/newsdesk/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	// A fresh pool connection would see an empty memory database, so keep
	// everything on a single connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.Article{}, &models.ReadEvent{}, &models.DailyAggregate{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// setupTestRouter wires the API the way routes.SetupRouter does, minus file
// logging and rate limiting.
func setupTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	authController := controllers.NewAuthController(db)
	articleController := controllers.NewArticleController(db)
	statsController := controllers.NewStatsController(db)

	r := gin.New()
	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)

	articles := api.Group("/articles")
	articles.GET("", articleController.ListArticles)
	articles.GET("/:id", middleware.OptionalAuth(), articleController.GetArticle)
	articles.GET("/:id/stats", statsController.GetArticleStats)

	protected := articles.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RequireRole("author"))
	protected.POST("", articleController.CreateArticle)
	protected.PUT("/:id", articleController.UpdateArticle)
	protected.DELETE("/:id", articleController.DeleteArticle)

	api.GET("/users/me/articles", middleware.AuthRequired(), middleware.RequireRole("author"), articleController.ListMyArticles)
	api.GET("/authors/dashboard", middleware.AuthRequired(), middleware.RequireRole("author"), statsController.Dashboard)
	api.GET("/stats", statsController.GetStats)

	return r
}

func createUser(t *testing.T, db *gorm.DB, name, email, role string) models.User {
	t.Helper()
	hash, err := utils.HashPassword("Sup3r$ecret")
	require.NoError(t, err)
	user := models.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Role, time.Hour)
	require.NoError(t, err)
	return token
}

func createArticle(t *testing.T, db *gorm.DB, authorID uint, title, status string) models.Article {
	t.Helper()
	article := models.Article{
		AuthorID: authorID,
		Title:    title,
		Content:  "This is a sufficiently long article body used across the handler tests.",
		Category: "tech",
		Status:   status,
	}
	require.NoError(t, db.Create(&article).Error)
	return article
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Code    int                    `json:"code"`
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp.Data
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	return doJSON(r, http.MethodGet, path, token, nil)
}
