package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/manabi-api/internal/handler"
	"github.com/noah-isme/manabi-api/internal/middleware"
	"github.com/noah-isme/manabi-api/internal/models"
	"github.com/noah-isme/manabi-api/internal/service"
	"github.com/noah-isme/manabi-api/pkg/config"
	"github.com/noah-isme/manabi-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/manabi-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/manabi-api/pkg/middleware/requestid"
)

type routerDeps struct {
	auth        middleware.TokenValidator
	metrics     *service.MetricsService
	materials   *handler.MaterialHandler
	students    *handler.StudentHandler
	visibility  *handler.VisibilityHandler
	completions *handler.CompletionHandler
	quizzes     *handler.QuizHandler
	progress    *handler.ProgressHandler
	chat        *handler.ChatHandler
	previews    *handler.LinkPreviewHandler
	authHandler *handler.AuthHandler
	health      *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", deps.health.Health)
	r.GET("/ready", deps.health.Ready)
	r.GET("/metrics", deps.health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	teacher := middleware.RequireRoles(models.RoleTeacher)
	selfOrTeacher := middleware.TeacherOrSelf()
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(logr.Named("audit"), action, resource)
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/exports/download", deps.progress.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.auth))
	{
		secured.GET("/auth/me", deps.authHandler.Me)
		secured.GET("/metrics/snapshot", teacher, deps.health.Snapshot)

		secured.GET("/materials", teacher, deps.materials.List)
		secured.POST("/materials", teacher, audit("create", "material"), deps.materials.Create)
		secured.GET("/materials/:id", deps.materials.Get)
		secured.PUT("/materials/:id", teacher, audit("update", "material"), deps.materials.Update)
		secured.DELETE("/materials/:id", teacher, audit("delete", "material"), deps.materials.Delete)
		secured.GET("/materials/:id/visibility", teacher, deps.visibility.GetMaterial)
		secured.PUT("/materials/:id/visibility", teacher, audit("update", "material_visibility"), deps.visibility.UpdateMaterial)
		secured.POST("/materials/:id/complete", deps.completions.Complete)
		secured.DELETE("/materials/:id/complete", deps.completions.Uncomplete)

		secured.GET("/students", selfOrTeacher, deps.students.List)
		secured.POST("/students", teacher, audit("create", "student"), deps.students.Create)
		secured.GET("/students/materials", selfOrTeacher, deps.visibility.VisibleMaterials)
		secured.GET("/students/completions", selfOrTeacher, deps.completions.CompletedIDs)
		secured.GET("/students/:id", teacher, deps.students.Get)
		secured.PUT("/students/:id", teacher, audit("update", "student"), deps.students.Update)
		secured.DELETE("/students/:id", teacher, audit("delete", "student"), deps.students.Delete)
		secured.GET("/students/:id/materials", teacher, deps.visibility.GetStudent)
		secured.PUT("/students/:id/materials", teacher, audit("update", "student_visibility"), deps.visibility.UpdateStudent)
		secured.GET("/students/:id/completions", teacher, deps.completions.ForStudent)
		secured.GET("/students/:id/progress", teacher, deps.progress.Progress)
		secured.GET("/students/:id/progress/export", teacher, deps.progress.Export)

		secured.GET("/quizzes", deps.quizzes.List)
		secured.GET("/quizzes/:id", deps.quizzes.Get)
		secured.POST("/quiz-attempts", deps.quizzes.Submit)
		secured.GET("/quiz-attempts", selfOrTeacher, deps.quizzes.Attempts)

		secured.POST("/chat/messages", deps.chat.Send)
		secured.GET("/chat/messages", deps.chat.List)
		secured.POST("/chat/messages/read", deps.chat.MarkRead)
		secured.GET("/chat/unread", deps.chat.Unread)
		secured.GET("/chat/stream", deps.chat.Stream)

		secured.GET("/linkpreview", deps.previews.Preview)
		secured.POST("/linkpreview/batch", deps.previews.Batch)
		secured.DELETE("/linkpreview/cache", teacher, deps.previews.Purge)
	}

	return r
}
