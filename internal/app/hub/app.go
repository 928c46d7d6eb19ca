/**
 * 应用层:应用程序装配
 * @author: sun977
 * @date: 2025.11.09
 * @description: 应用程序结构体，完成配置、日志、存储、传输与路由的装配和生命周期管理
 * @func: NewApp、Start、Stop、GetConfig、GetEngine
 */
package hub

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"neohub/internal/config"
	"neohub/internal/pkg/logger"
	"neohub/internal/pkg/utils"
	mongoRepo "neohub/internal/repo/mongo"
	"neohub/internal/transport"
)

// App 应用程序结构体
type App struct {
	config        *config.Config
	loggerManager *logger.LoggerManager
	configWatcher *config.ConfigWatcher
	store         *mongoRepo.Manager
	routerSocket  *transport.RouterSocket
	router        *Router

	dispatcherCtx    context.Context
	dispatcherCancel context.CancelFunc
}

// NewApp 创建新的应用程序实例
// 装配顺序:配置 -> 日志 -> 存储 -> 传输 -> 路由
func NewApp() (*App, error) {
	configPath := os.Getenv("NEOHUB_CONFIG_PATH")
	env := os.Getenv("NEOHUB_ENV")

	cfg, err := config.LoadConfig(configPath, env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	loggerManager, err := logger.InitLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	// MongoDB连接失败不阻止启动，运行期靠内存缓存降级
	store := mongoRepo.NewManager(&cfg.Database.Mongo)

	clientLog, err := utils.NewClientLogWriter(cfg.Hub.ClientLogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init client log dir: %w", err)
	}

	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	routerSocket := transport.NewRouterSocket(dispatcherCtx)
	if err := routerSocket.Bind(cfg.Hub.BindAddr); err != nil {
		dispatcherCancel()
		return nil, fmt.Errorf("failed to bind router socket on %s: %w", cfg.Hub.BindAddr, err)
	}

	router := NewRouter(store, routerSocket, clientLog, cfg)
	router.SetupRoutes()

	app := &App{
		config:           cfg,
		loggerManager:    loggerManager,
		store:            store,
		routerSocket:     routerSocket,
		router:           router,
		dispatcherCtx:    dispatcherCtx,
		dispatcherCancel: dispatcherCancel,
	}
	app.setupConfigWatcher(configPath, env)
	return app, nil
}

// setupConfigWatcher 启动配置文件热重载(仅日志配置生效)
// 监听器启动失败只告警，不影响应用运行
func (a *App) setupConfigWatcher(configPath, env string) {
	watcher, err := config.NewConfigWatcher(configPath, env)
	if err != nil {
		logger.LogError(err, "app", "setup_config_watcher", nil)
		return
	}
	watcher.AddCallback(func(oldConfig, newConfig *config.Config) error {
		return a.loggerManager.UpdateConfig(&newConfig.Log)
	})
	if err := watcher.Start(); err != nil {
		logger.LogError(err, "app", "start_config_watcher", nil)
		return
	}
	a.configWatcher = watcher
}

// Start 启动消息调度循环
func (a *App) Start() {
	go a.router.Dispatcher().Run(a.dispatcherCtx)
	logger.LogSystemEvent("app", "start", "应用已启动", logrus.InfoLevel, map[string]any{
		"bind_addr": a.config.Hub.BindAddr,
	})
}

// Stop 停止应用程序，释放传输与存储资源
func (a *App) Stop() {
	a.dispatcherCancel()
	if a.configWatcher != nil {
		_ = a.configWatcher.Stop()
	}
	if err := a.routerSocket.Close(); err != nil {
		logger.LogError(err, "app", "close_router_socket", nil)
	}
	if err := a.store.Close(); err != nil {
		logger.LogError(err, "app", "close_store", nil)
	}
	logger.LogSystemEvent("app", "stop", "应用已停止", logrus.InfoLevel, nil)
}

// GetConfig 获取配置实例
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetEngine 获取gin引擎
func (a *App) GetEngine() *gin.Engine {
	return a.router.engine
}
