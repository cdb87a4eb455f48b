package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	commonauth "eventgallery/server/common/auth"
	"eventgallery/server/common/infra/cache"
	"eventgallery/server/common/infra/db"
	"eventgallery/server/common/infra/docstore"
	"eventgallery/server/common/infra/mq"
	"eventgallery/server/common/infra/object"
	commonlog "eventgallery/server/common/log"
	"eventgallery/server/common/middleware"
	"eventgallery/server/gallery/api"
	"eventgallery/server/gallery/feed"
	"eventgallery/server/gallery/probe"
	"eventgallery/server/gallery/repository"
	"eventgallery/server/gallery/service"
)

type Server struct {
	HTTPServer *http.Server
	DB         *pgxpool.Pool
	Redis      *redis.Client
	MQConn     *amqp.Connection
	Publisher  *mq.Publisher
	Firestore  *firestore.Client
	Mongo      *mongo.Client
	Hub        *service.FeedHub

	stopBackground context.CancelFunc
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s := &Server{}
	if err := s.connect(ctx, cfg); err != nil {
		s.closeClients()
		return nil, err
	}

	mediaStore, err := s.openMediaStore(ctx, cfg)
	if err != nil {
		s.closeClients()
		return nil, err
	}

	minioClient, err := object.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		s.closeClients()
		return nil, fmt.Errorf("initialize minio: %w", err)
	}
	if err := object.EnsureBucket(ctx, minioClient, cfg.MinioBucket, cfg.MinioPublicRead); err != nil {
		s.closeClients()
		return nil, fmt.Errorf("ensure bucket %s: %w", cfg.MinioBucket, err)
	}
	blobs := service.NewMinioBlobStore(minioClient, cfg.MinioBucket, cfg.MediaPublicBaseURL)

	s.Hub = service.NewFeedHub(s.Redis)
	publishers := service.Publishers{s.Hub}
	if s.Publisher != nil {
		publishers = append(publishers, s.Publisher)
	}

	events := repository.NewEventRepository(s.DB)
	authSvc := commonauth.NewService(cfg.JWTSecret, cfg.JWTTTLMinutes)
	prober := probe.NewHTTPProber(
		&http.Client{Timeout: time.Duration(cfg.ProbeTimeoutMS) * time.Millisecond},
		s.Redis,
		time.Duration(cfg.ProbeCacheTTLSeconds)*time.Second,
		probe.DefaultMaxBytes,
	)

	bgCtx, stop := context.WithCancel(context.Background())
	s.stopBackground = stop
	limiter := middleware.NewIPRateLimiter(cfg.UploadRatePerMinute, cfg.UploadBurst)
	go limiter.Run(bgCtx)

	h := api.NewHandler(api.Deps{
		Events:     service.NewEventService(events, authSvc),
		Uploads:    service.NewUploadService(events, mediaStore, blobs, publishers),
		Moderation: service.NewModerationService(mediaStore, blobs, publishers),
		Memories:   service.NewMemoryService(events, repository.NewMemoryRepository(s.DB), publishers),
		Voices:     service.NewVoiceService(events, repository.NewVoiceRepository(s.DB), blobs, publishers),
		Media:      mediaStore,
		Prober:     prober,
		Hub:        s.Hub,
		Feed: feed.Config{
			PageSize:         cfg.FeedPageSize,
			ProbeConcurrency: cfg.ProbeConcurrency,
		},
		Auth:           authSvc,
		UploadLimiter:  limiter,
		BootstrapToken: cfg.BootstrapToken,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
		Ready:          s.ready,
	})

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	h.RegisterRoutes(r)

	s.HTTPServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	commonlog.Infof("event=server_init action=wire status=ok media_store=%s mq=%t", cfg.MediaStore, s.Publisher != nil)
	return s, nil
}

func (s *Server) connect(ctx context.Context, cfg Config) error {
	pool, err := db.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("initialize postgres: %w", err)
	}
	s.DB = pool
	if err := db.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}

	s.Redis = cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := cache.Ping(ctx, s.Redis); err != nil {
		// Without redis the probe cache is off and the feed hub stays in process.
		commonlog.Warnf("event=server_init action=ping_redis status=failed addr=%s err=%v", cfg.RedisAddr, err)
		_ = s.Redis.Close()
		s.Redis = nil
	}

	if cfg.UseMQ {
		s.MQConn, err = mq.NewConnection(cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("initialize amqp: %w", err)
		}
		s.Publisher, err = mq.NewPublisher(s.MQConn)
		if err != nil {
			return fmt.Errorf("initialize amqp publisher: %w", err)
		}
	}
	return nil
}

func (s *Server) openMediaStore(ctx context.Context, cfg Config) (service.MediaStore, error) {
	switch cfg.MediaStore {
	case MediaStorePostgres, "":
		return repository.NewMediaRepository(s.DB), nil
	case MediaStoreFirestore:
		client, err := docstore.NewFirestore(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, err
		}
		s.Firestore = client
		return repository.NewFirestoreMediaStore(client), nil
	case MediaStoreMongo:
		client, database, err := docstore.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		s.Mongo = client
		store := repository.NewMongoMediaStore(database)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown media store %q", cfg.MediaStore)
	}
}

func (s *Server) ready(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

func (s *Server) closeClients() {
	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.MQConn != nil {
		_ = s.MQConn.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Firestore != nil {
		_ = s.Firestore.Close()
	}
	if s.Mongo != nil {
		_ = s.Mongo.Disconnect(context.Background())
	}
	if s.DB != nil {
		s.DB.Close()
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.HTTPServer.Shutdown(ctx)
	if s.stopBackground != nil {
		s.stopBackground()
	}
	s.closeClients()
	return err
}
