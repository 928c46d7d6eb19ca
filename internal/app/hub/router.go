/**
 * 路由:路由管理器
 * @author: sun977
 * @date: 2025.11.09
 * @description: 路由管理器，包含Router结构体、NewRouter函数和SetupRoutes主函数
 * @func:
 */
package hub

import (
	"github.com/gin-gonic/gin"

	"neohub/internal/config"
	hubHandler "neohub/internal/handler/hub"
	"neohub/internal/pkg/utils"
	mongoRepo "neohub/internal/repo/mongo"
	hubService "neohub/internal/service/hub"
)

// Router 路由管理器
type Router struct {
	config            *config.Config
	engine            *gin.Engine
	middlewareManager *MiddlewareManager
	hubHandler        *hubHandler.HubHandler

	// 调度相关服务，供App层启动消息循环使用
	dispatcher *hubService.Dispatcher
	clients    *hubService.ClientRegistry
	tasks      *hubService.TaskRegistry
}

// NewRouter 创建路由管理器实例
// 按 repo -> service -> handler 顺序完成依赖装配
func NewRouter(store *mongoRepo.Manager, transport hubService.Transport,
	clientLog *utils.ClientLogWriter, cfg *config.Config) *Router {
	// 服务层装配
	buffer := hubService.NewOutputBuffer(store)
	tasks := hubService.NewTaskRegistry(store, buffer)
	clients := hubService.NewClientRegistry(store)
	auth := hubService.NewAuthService(store, &cfg.Security.Auth)
	dispatcher := hubService.NewDispatcher(transport, clients, tasks, buffer, auth, store, clientLog)
	tail := hubService.NewTailService(tasks, buffer, store, cfg.Hub.TailPollInterval)

	// 处理器层装配
	handler := hubHandler.NewHubHandler(clients, tasks, buffer, tail,
		dispatcher, store, int64(cfg.Hub.LogQueryLimit))

	return &Router{
		config:            cfg,
		middlewareManager: NewMiddlewareManager(&cfg.Security.CORS),
		hubHandler:        handler,
		dispatcher:        dispatcher,
		clients:           clients,
		tasks:             tasks,
	}
}

// Dispatcher 返回消息调度器(App层用于启动接收循环)
func (r *Router) Dispatcher() *hubService.Dispatcher {
	return r.dispatcher
}

// SetupRoutes 设置所有路由并返回gin引擎
func (r *Router) SetupRoutes() *gin.Engine {
	gin.SetMode(r.config.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// 全局中间件
	engine.Use(r.middlewareManager.GinRequestIDMiddleware())
	engine.Use(r.middlewareManager.GinAccessLogMiddleware())
	engine.Use(r.middlewareManager.GinSecurityHeadersMiddleware())
	if r.config.Security.CORS.Enabled {
		engine.Use(r.middlewareManager.GinCORSMiddleware())
	}

	// 健康检查
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API路由组
	api := engine.Group("/api")
	{
		api.GET("/status", r.hubHandler.Status)
		api.GET("/clients", r.hubHandler.ListClients)
		api.GET("/tasks", r.hubHandler.ListTasks)
		api.POST("/send", r.hubHandler.SendTask)

		api.GET("/client/:client_id/logs", r.hubHandler.ClientLogs)
		api.GET("/client/:client_id/results", r.hubHandler.ClientResults)

		api.GET("/task/:task_id", r.hubHandler.GetTask)
		api.GET("/task/:task_id/chunks", r.hubHandler.TaskChunks)
		api.GET("/task/:task_id/result", r.hubHandler.TaskResult)
		api.GET("/task/:task_id/stream", r.hubHandler.StreamTask)
	}

	r.engine = engine
	return engine
}
