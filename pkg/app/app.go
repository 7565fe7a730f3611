// Package app 提供应用程序的初始化和配置功能.
package app

import (
	contextPkg "context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/docuvault/pkg/configs"
	"github.com/yeisme/docuvault/pkg/context"
	"github.com/yeisme/docuvault/pkg/internal/classifier"
	"github.com/yeisme/docuvault/pkg/internal/jobs"
	"github.com/yeisme/docuvault/pkg/internal/service"
	"github.com/yeisme/docuvault/pkg/internal/storage"
	"github.com/yeisme/docuvault/pkg/log"
	"github.com/yeisme/docuvault/pkg/metrics"
	"github.com/yeisme/docuvault/pkg/scheduler"
)

// App 聚合运行所需的全部组件：调试/指标引擎、分类引擎、提取器与调度器.
type App struct {
	Engine     *gin.Engine
	Ctx        contextPkg.Context
	Classifier *classifier.Engine
	Extractor  service.TextExtractor
	Scheduler  *scheduler.Scheduler

	config *configs.AppConfig
}

// NewApp 初始化配置、指标、存储与分类引擎.
func NewApp(configPath string) *App {
	ctx := contextPkg.Background()

	if err := configs.InitConfig(configPath); err != nil {
		fmt.Printf("Error initializing config: %v\n", err)
		os.Exit(1)
	}

	config := configs.GetConfig()

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		fmt.Printf("Error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}

	ctx = context.WithStorageManager(ctx, manager)

	engine := classifier.NewEngine(config.Classifier)
	extractor := service.NewBreakerExtractor(service.PlainTextExtractor{}, config.Breaker)

	l := log.Logger()
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	debugEngine := gin.New()
	debugEngine.Use(gin.Recovery())

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, debugEngine)
	}

	app := &App{
		Engine:     debugEngine,
		Ctx:        ctx,
		Classifier: engine,
		Extractor:  extractor,
		config:     config,
	}

	debugEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version": configs.AppVersion,
			"model":   engine.ModelVersion(),
		})
	})

	debugEngine.GET("/jobs", func(c *gin.Context) {
		if app.Scheduler == nil {
			c.JSON(http.StatusOK, []scheduler.JobInfo{})

			return
		}

		c.JSON(http.StatusOK, app.Scheduler.GetJobInfos())
	})

	return app
}

// StartScheduler 创建调度器并注册全部维护任务.
func (a *App) StartScheduler() error {
	s, err := scheduler.NewScheduler()
	if err != nil {
		return err
	}

	if err := jobs.Register(a.Ctx, s, a.Classifier, a.Extractor); err != nil {
		return err
	}

	s.Start()
	a.Scheduler = s

	return nil
}

// Run 启动调度器与调试/指标服务，阻塞直到服务退出.
func (a *App) Run() error {
	if err := a.StartScheduler(); err != nil {
		return err
	}

	defer a.Shutdown()

	return a.Engine.Run(fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port))
}

// Shutdown 停止调度器并释放存储资源.
func (a *App) Shutdown() {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			log.Logger().Warn().Err(err).Msg("scheduler shutdown failed")
		}
	}

	if mgr := context.GetManager(a.Ctx); mgr != nil {
		if err := mgr.Close(); err != nil {
			log.Logger().Warn().Err(err).Msg("storage shutdown failed")
		}
	}
}
