package main

import (
	"context"
	"fmt"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/Abraxas-365/tidal/pkg/cachex/cacheredis"
	"github.com/Abraxas-365/tidal/pkg/chatx"
	"github.com/Abraxas-365/tidal/pkg/config"
	"github.com/Abraxas-365/tidal/pkg/fetchx"
	"github.com/Abraxas-365/tidal/pkg/framex/providers/frameanthropic"
	"github.com/Abraxas-365/tidal/pkg/framex/providers/frameopenai"
	"github.com/Abraxas-365/tidal/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/tidal/pkg/historyx"
	"github.com/Abraxas-365/tidal/pkg/historyx/historymem"
	"github.com/Abraxas-365/tidal/pkg/historyx/historypg"
	"github.com/Abraxas-365/tidal/pkg/logx"
)

// Container holds shared infrastructure and the composed engine pieces.
type Container struct {
	Config *config.Config

	// Infrastructure
	DB       *sqlx.DB
	Redis    *redis.Client
	S3Client *s3.Client

	// Engine
	History   historyx.Store
	Library   *fetchx.Library
	Transport chatx.Transport
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initHistory()
	c.initLibrary()
	c.initTransport()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// History: transcript archive
// ---------------------------------------------------------------------------

func (c *Container) initHistory() {
	switch c.Config.History.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Config.History.DatabaseHost,
			c.Config.History.DatabasePort,
			c.Config.History.DatabaseUser,
			c.Config.History.DatabasePassword,
			c.Config.History.DatabaseName,
			c.Config.History.DatabaseSSLMode,
		)

		db, err := sqlx.Connect("postgres", dsn)
		if err != nil {
			logx.Fatalf("Failed to connect to database: %v", err)
		}
		db.SetMaxOpenConns(c.Config.History.MaxOpenConns)
		db.SetMaxIdleConns(c.Config.History.MaxIdleConns)

		c.DB = db
		c.History = historypg.NewPostgresStore(db)
		logx.Infof("  ✅ Postgres history configured (db: %s)", c.Config.History.DatabaseName)

	case "off":
		logx.Info("  ⏭️ History disabled")

	default:
		c.History = historymem.NewMemoryStore()
		logx.Info("  ✅ In-memory history configured")
	}
}

// ---------------------------------------------------------------------------
// Library: artifact cache (fetcher + optional spool + optional Redis level)
// ---------------------------------------------------------------------------

func (c *Container) initLibrary() {
	var fetcher fetchx.Fetcher

	switch c.Config.Cache.Fetcher {
	case "s3":
		awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO(),
			awsConfig.WithRegion(c.Config.Cache.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.S3Client = s3.NewFromConfig(awsCfg)
		fetcher = fetchx.NewS3Fetcher(c.S3Client, c.Config.Cache.AWSBucket)
		logx.Infof("  ✅ S3 fetcher configured (bucket: %s, region: %s)",
			c.Config.Cache.AWSBucket, c.Config.Cache.AWSRegion)

	default:
		fetcher = fetchx.NewHTTPFetcher()
		logx.Info("  ✅ HTTP fetcher configured")
	}

	var opts []fetchx.LibraryOption

	if c.Config.Cache.RedisAddr != "" {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Cache.RedisAddr,
			Password: c.Config.Cache.RedisPassword,
		})
		backing := cacheredis.NewRedisBacking(c.Redis, c.Config.Cache.RedisTTL)
		opts = append(opts, fetchx.WithBacking(fetchx.NewResourceBacking(backing)))
		logx.Infof("  ✅ Redis cache level configured (addr: %s)", c.Config.Cache.RedisAddr)
	}

	if c.Config.Cache.SpoolDir != "" {
		spool, err := fsxlocal.NewLocalFileSystem(c.Config.Cache.SpoolDir)
		if err != nil {
			logx.Fatalf("Failed to initialize spool directory: %v", err)
		}
		opts = append(opts, fetchx.WithSpool(spool))
		logx.Infof("  ✅ Artifact spool configured (path: %s)", spool.GetBasePath())
	}

	c.Library = fetchx.NewLibrary(fetcher, opts...)
}

// ---------------------------------------------------------------------------
// Transport: where frames come from
// ---------------------------------------------------------------------------

func (c *Container) initTransport() {
	provider := getEnv("STREAM_PROVIDER", "mock")

	switch provider {
	case "anthropic":
		c.Transport = frameanthropic.NewProvider("")
		logx.Info("  ✅ Anthropic transport configured")

	case "openai":
		c.Transport = frameopenai.NewProvider("")
		logx.Info("  ✅ OpenAI transport configured")

	default:
		c.Transport = newMockTransport()
		logx.Info("  ✅ Mock transport configured (scripted responses)")
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}
