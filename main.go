package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"quizserver/broadcast"   //ルーム更新のWebSocket配信
	"quizserver/database"    //PostgreSQLとRedisの初期化
	"quizserver/handlers"    //HTTPリクエストの処理
	"quizserver/middlewares" //JWT認証ミドルウェア
	"quizserver/migrations"  //スキーマのマイグレーション
	"quizserver/questions"   //静的な問題データ
	"quizserver/utils"       //ロガーの初期化とCronジョブ(放置ルームの定期クリーンナップ)

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

func main() {
	var logger *zap.Logger
	var err error
	logger, err = utils.InitLogger() // ロガーの初期化
	if err != nil {
		panic(err) // 失敗した場合はプログラム停止
	}
	defer logger.Sync() // ロガーのクリーンアップ

	// Websocket接続で用いるアップグレーダを初期化
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	// 非同期でPostgreSQLとRedisの初期化
	var db *gorm.DB
	var rdb *redis.Client
	done := make(chan bool)

	go func() {
		config, err := database.LoadConfig("config.json")
		if err != nil {
			logger.Fatal("設定ファイルの読み込みに失敗しました", zap.Error(err))
		}
		db, err = database.InitPostgreSQL(config, logger)
		if err != nil {
			logger.Fatal("PostgreSQLの初期化に失敗しました", zap.Error(err))
		}
		done <- true
	}()

	go func() {
		rdb, err = database.InitRedis(logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		done <- true
	}()

	// 2つの初期化が完了するのを待つ
	<-done
	<-done

	// スキーマのマイグレーション
	if err := migrations.AutoMigrateDB(db); err != nil {
		logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
	}

	// 問題データの読み込み
	store, err := questions.Load("public/questions.json")
	if err != nil {
		logger.Fatal("問題データの読み込みに失敗しました", zap.Error(err))
	}
	logger.Info("問題データを読み込みました", zap.Int("count", store.Len()))

	// ルーム更新の配信ハブ
	hub := broadcast.NewHub(db, logger)

	// クーロンスケジューラのセットアップと呼び出し
	go utils.CronCleaner(db, logger)

	router := gin.Default()
	//リクエストロガーを起動
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	//CORS（Cross-Origin Resource Sharing）ポリシーを設定
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"}, //ここにフロントエンドのオリジンを設定
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	//認証なしのルーティング
	router.POST("/api/auth/register", func(c *gin.Context) {
		handlers.Register(c, db, logger)
	})
	router.POST("/api/auth/login", func(c *gin.Context) {
		handlers.Login(c, db, logger)
	})
	router.GET("/api/leaderboard", func(c *gin.Context) {
		handlers.Leaderboard(c, db, logger)
	})
	router.GET("/api/questions/:questionId", func(c *gin.Context) {
		handlers.GetQuestion(c, store, logger)
	})
	router.POST("/api/cleanup-rooms", func(c *gin.Context) {
		handlers.CleanupRooms(c, db, logger)
	})

	//認証が必要なルーティング
	authorized := router.Group("/api")
	authorized.Use(middlewares.AuthMiddleware(db, logger))
	{
		authorized.POST("/rooms", func(c *gin.Context) {
			handlers.CreateRoom(c, db, logger)
		})
		authorized.GET("/rooms", func(c *gin.Context) {
			handlers.ListRooms(c, db, logger)
		})
		authorized.GET("/rooms/code/:roomCode", func(c *gin.Context) {
			handlers.FindRoomByCode(c, db, logger)
		})
		authorized.POST("/rooms/:roomId/join", func(c *gin.Context) {
			handlers.JoinRoom(c, db, hub, logger)
		})
		authorized.POST("/rooms/:roomId/leave", func(c *gin.Context) {
			handlers.LeaveRoom(c, db, hub, logger)
		})
		authorized.POST("/rooms/:roomId/start", func(c *gin.Context) {
			handlers.StartGame(c, db, hub, logger)
		})
		authorized.GET("/rooms/:roomId/state", func(c *gin.Context) {
			handlers.RoomState(c, db, logger)
		})
		authorized.GET("/rooms/:roomId/scores", func(c *gin.Context) {
			handlers.PlayersScores(c, db, logger)
		})
		authorized.GET("/rooms/:roomId/membership", func(c *gin.Context) {
			handlers.Membership(c, db, logger)
		})
		authorized.GET("/rooms/:roomId/game-access", func(c *gin.Context) {
			handlers.GameAccess(c, db, logger)
		})
		authorized.POST("/rooms/:roomId/score", func(c *gin.Context) {
			handlers.UpdateScore(c, db, logger)
		})
		authorized.GET("/users", func(c *gin.Context) {
			handlers.ListUsers(c, db, logger)
		})
		authorized.GET("/users/:userId", func(c *gin.Context) {
			handlers.GetUser(c, db, logger)
		})
		authorized.GET("/users/:userId/stats", func(c *gin.Context) {
			handlers.GetUserStats(c, db, logger)
		})
		authorized.GET("/game-results", func(c *gin.Context) {
			handlers.ListGameResults(c, db, logger)
		})
		authorized.GET("/game-results/:resultId", func(c *gin.Context) {
			handlers.GetGameResult(c, db, logger)
		})
	}

	router.GET("/ws", func(c *gin.Context) {
		handlers.HandleConnections(c.Request.Context(), c.Writer, c.Request, db, rdb, hub, logger, upgrader)
	})

	// テスト時はHTTPサーバーとして運用。デフォルトポートは ":8080"
	router.Run()

	// // 本番環境ではコメントアウトを解除し、HTTPSサーバーとして運用
	// err = router.RunTLS(":443", "path/to/cert.pem", "path/to/key.pem")
	// if err != nil {
	// 	logger.Fatal("Failed to run HTTPS server: ", zap.Error(err))
	// }
}
