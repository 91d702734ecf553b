package router

import (
	"forumcore/internal/handlers"
	"forumcore/internal/middleware"
	"forumcore/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Deps 路由需要的全部依赖
type Deps struct {
	DB         *gorm.DB
	Tokens     *middleware.Tokens
	Votes      *services.VoteService
	Reports    *services.ReportService
	Feed       *services.FeedService
	Posts      *services.PostService
	Comments   *services.CommentService
	Topics     *services.TopicService
	Reconciler *services.Reconciler
	Log        zerolog.Logger
}

// RegisterRoutes 注册 API 路由。调用前需要已经挂好 sessions 中间件
func RegisterRoutes(r *gin.Engine, d Deps) {
	// Handlers
	authHandler := handlers.NewAuthHandler(d.DB, d.Tokens)
	postHandler := handlers.NewPostHandler(d.Feed, d.Posts)
	commentHandler := handlers.NewCommentHandler(d.Feed, d.Comments)
	voteHandler := handlers.NewVoteHandler(d.Votes)
	reportHandler := handlers.NewReportHandler(d.Reports)
	topicHandler := handlers.NewTopicHandler(d.Topics)
	adminHandler := handlers.NewAdminHandler(d.DB, d.Reconciler, d.Log)

	r.GET("/healthz", adminHandler.Health) // 存活检查

	api := r.Group("/api/v1")
	api.Use(middleware.LoadUser(d.DB, d.Tokens))

	// 公共路由 (Public Routes)，登录后附带自己的投票状态
	api.POST("/auth/login", authHandler.Login)          // 登录
	api.POST("/auth/logout", authHandler.Logout)        // 退出登录
	api.GET("/posts", postHandler.List)                 // 帖子列表 hot/new/top
	api.GET("/posts/search", postHandler.Search)        // 搜索
	api.GET("/posts/:id", postHandler.Detail)           // 帖子详情
	api.GET("/posts/:id/comments", commentHandler.List) // 评论列表
	api.GET("/topics", topicHandler.List)               // 话题列表
	api.GET("/topics/:slug", topicHandler.Get)          // 话题详情

	// 受保护路由 (Protected Routes)
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts", postHandler.Create)                                         // 发帖
		authorized.PUT("/posts/:id", postHandler.Update)                                      // 编辑帖子
		authorized.DELETE("/posts/:id", postHandler.Delete)                                   // 删除帖子
		authorized.POST("/posts/:id/vote", voteHandler.Vote(services.TargetPost))             // 帖子投票
		authorized.POST("/posts/:id/report", reportHandler.Report(services.TargetPost))       // 举报帖子
		authorized.POST("/posts/:id/comments", commentHandler.Create)                         // 发表评论
		authorized.DELETE("/comments/:id", commentHandler.Delete)                             // 删除评论
		authorized.POST("/comments/:id/vote", voteHandler.Vote(services.TargetComment))       // 评论投票
		authorized.POST("/comments/:id/report", reportHandler.Report(services.TargetComment)) // 举报评论
	}

	// 审核路由 (Moderation Routes)
	mod := api.Group("")
	mod.Use(middleware.ModeratorRequired())
	{
		mod.GET("/reports", reportHandler.Pending)                                      // 待处理举报
		mod.GET("/reports/count", reportHandler.Count)                                  // 待处理数量
		mod.PATCH("/reports/:id", reportHandler.Resolve)                                // 处理举报
		mod.GET("/posts/:id/reports", reportHandler.ForItem(services.TargetPost))       // 帖子收到的举报
		mod.GET("/comments/:id/reports", reportHandler.ForItem(services.TargetComment)) // 评论收到的举报
	}

	// 管理路由 (Admin Routes)
	api.POST("/topics", middleware.AdminRequired(), topicHandler.Create) // 新建话题

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/reconcile", adminHandler.Reconcile) // 重算投票计数
	}
}
