package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teamflow/config"
	"teamflow/internal/handler"
	"teamflow/internal/model"
	"teamflow/internal/service"
	"teamflow/internal/socket"
	dbPkg "teamflow/pkg/db"
	"teamflow/pkg/jwt"
	"teamflow/pkg/keylock"
	"teamflow/pkg/logger"
	"teamflow/pkg/metrics"
	"teamflow/pkg/rag"
	"teamflow/pkg/ratelimit"
	redisPkg "teamflow/pkg/redis"
	"teamflow/pkg/response"
	"teamflow/pkg/upload"
	"teamflow/pkg/websocket"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	log.Info("=== TeamFlow 启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("database_name", cfg.Database.Database),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("rag_enabled", cfg.RAG.Endpoint != ""),
		zap.Bool("presence_track_sessions", cfg.Presence.TrackSessions),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化数据库连接
	orm, err := dbPkg.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if err := dbPkg.CloseDB(); err != nil {
			log.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()
	log.Info("数据库连接成功")

	// 3.1 自动迁移表结构
	if err := dbPkg.AutoMigrate(model.All()...); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}
	log.Info("自动迁移完成")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3.2 Redis在线状态镜像（可选）
	var mirror service.PresenceMirror
	if cfg.Redis.Enabled {
		client, err := redisPkg.NewClient(rootCtx, cfg.Redis)
		if err != nil {
			log.Fatal("Redis连接失败", zap.Error(err))
		}
		defer client.Close()
		store := redisPkg.NewPresenceStore(client)
		mirror = store
		go cleanPresenceLoop(rootCtx, store)
		log.Info("Redis连接成功")
	}

	// 3.3 文件存储与知识库
	sink, err := upload.NewDiskSink(cfg.Upload.Dir)
	if err != nil {
		log.Fatal("初始化上传目录失败", zap.Error(err))
	}
	var ragClient rag.Client
	if cfg.RAG.Endpoint != "" {
		ragClient = rag.NewHTTPClient(cfg.RAG.Endpoint, cfg.RAG.Timeout)
	}

	// 4. 初始化业务服务
	manager := websocket.NewManager()
	locks := keylock.New()
	limiter := ratelimit.NewPool(cfg.Chat.MessageRate, cfg.Chat.MessageBurst)
	jwtSvc := jwt.NewJWTService(cfg.JWT)

	services := socket.Services{
		Users:     service.NewUserService(orm, jwtSvc, manager),
		Presence:  service.NewPresenceService(orm, manager, mirror, cfg.Presence.TrackSessions),
		Channels:  service.NewChannelService(orm, manager),
		Messages:  service.NewMessageService(orm, manager, limiter, locks, sink),
		Threads:   service.NewThreadService(orm, manager),
		Reactions: service.NewReactionService(orm, manager, locks),
		Bookmarks: service.NewBookmarkService(orm, manager, locks),
		Search:    service.NewSearchService(orm),
		Files:     service.NewFileService(sink, ragClient, cfg.Upload.AllowedExtensions, cfg.Upload.MaxSize),
	}

	created, err := services.Channels.EnsureDefault(rootCtx, cfg.Chat.DefaultChannel)
	if err != nil {
		log.Fatal("创建默认频道失败", zap.Error(err))
	}
	if created {
		log.Info("已创建默认频道", zap.String("channel", cfg.Chat.DefaultChannel))
	}

	router := socket.NewRouter(manager, services, socket.Options{
		HistoryLimit:   cfg.Chat.HistoryLimit,
		HandlerTimeout: cfg.Chat.HandlerTimeout,
	})
	wsHandler := websocket.NewHandler(manager, jwtSvc, jwt.TokenFromRequest, router, cfg.WebSocket)

	// 5. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 6. 创建Gin路由
	engine := gin.New()
	engine.MaxMultipartMemory = cfg.Upload.MaxSize
	engine.Use(logger.RequestLogger())
	engine.Use(logger.ErrorLoggerMiddleware())
	engine.Use(metrics.Middleware())

	setupBasicRoutes(engine, manager)
	handler.RegisterRoutes(engine, handler.Handlers{
		Users:     handler.NewUserHandler(services.Users),
		Channels:  handler.NewChannelHandler(services.Channels, services.Messages, services.Files),
		Bookmarks: handler.NewBookmarkHandler(services.Bookmarks),
		Search:    handler.NewSearchHandler(services.Search),
		Files:     handler.NewFileHandler(services.Files, services.Messages, sink),
	}, jwtSvc.AuthMiddleware())

	// WebSocket路由
	engine.GET("/ws", wsHandler.Serve)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", logger.RequestIDHeader},
		ExposedHeaders:   []string{logger.RequestIDHeader},
		AllowCredentials: cfg.CORS.Credentials(),
	})

	// 7. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      corsHandler.Handler(engine),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 8. 启动HTTP服务器
	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP服务器启动失败", zap.Error(err))
			stop()
		}
	}()

	// 9. 优雅关闭
	<-rootCtx.Done()
	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 劫持的WebSocket连接不受 server.Shutdown 管理，需要单独关闭
	manager.Shutdown()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}

// cleanPresenceLoop 定期清理Redis中已过期的在线集合成员
func cleanPresenceLoop(ctx context.Context, store *redisPkg.PresenceStore) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.CleanExpiredPresence(ctx)
			if err != nil {
				logger.Warn("清理过期在线状态失败", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("已清理过期在线状态", zap.Int("count", n))
			}
		}
	}
}

// setupBasicRoutes 设置基础路由
func setupBasicRoutes(router *gin.Engine, manager *websocket.Manager) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := dbPkg.HealthCheck(); err != nil {
			status = "db-down"
		}
		response.Success(c, gin.H{
			"status":       status,
			"online_users": len(manager.OnlineUserIDs()),
			"time":         time.Now().Format(time.RFC3339),
		})
	})

	router.GET("/metrics", metrics.Handler())
}
