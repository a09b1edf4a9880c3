// Package server wires the account service together: storage, the avatar
// blob store, the session pipeline and the HTTP and gRPC listeners. It
// runs until interrupted and shuts the listeners down gracefully.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrijs2005/elnafo/internal/dbx"
	"github.com/dmitrijs2005/elnafo/internal/logging"
	"github.com/dmitrijs2005/elnafo/internal/server/auth"
	"github.com/dmitrijs2005/elnafo/internal/server/blobstore"
	"github.com/dmitrijs2005/elnafo/internal/server/config"
	"github.com/dmitrijs2005/elnafo/internal/server/httpapi"
	"github.com/dmitrijs2005/elnafo/internal/server/metrics"
	"github.com/dmitrijs2005/elnafo/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/elnafo/internal/server/services"
	"github.com/dmitrijs2005/elnafo/internal/server/session"

	gs "github.com/dmitrijs2005/elnafo/internal/server/grpc"
)

const devSecret = "change_this_secret"

type App struct {
	config      *config.Config
	logger      logging.Logger
	pool        *pgxpool.Pool
	db          *sql.DB
	userService *services.UserService
	sessions    *session.Authenticator
	metrics     *metrics.Metrics
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)
	if c.SecretKey == devSecret {
		logger.Warn(ctx, "using the development signing secret; set ELNAFO_SECRET_KEY")
	}

	pool, err := dbx.NewPool(ctx, c.DatabaseDSN, c.DBMaxConns)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	db := dbx.OpenDB(pool)

	um := repomanager.NewPostgresRepositoryManager(db)
	if err := um.RunMigrations(ctx); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	blobs, err := blobstore.New(ctx, c)
	if err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	codec := auth.NewCodec(c.SecretKey, c.TokenLifetime)
	us, err := services.NewUserService(um.Users(), blobs, codec, c, logger)
	if err != nil {
		db.Close()
		pool.Close()
		return nil, err
	}

	return &App{
		config:      c,
		logger:      logger,
		pool:        pool,
		db:          db,
		userService: us,
		sessions:    session.NewAuthenticator(codec, um.Users()),
		metrics:     metrics.New(),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Handlers:    httpapi.NewHandlers(app.userService, app.metrics, app.logger, app.config.AvatarMaxBytes),
		Sessions:    httpapi.NewSessions(app.sessions, app.metrics, app.logger),
		Metrics:     app.metrics,
		Logger:      app.logger,
		CORSOrigins: app.config.CORSOrigins,
	})

	s := httpapi.NewServer(app.config.HTTPAddr, router, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.userService, app.sessions, app.metrics)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves HTTP and gRPC until ctx ends, a signal arrives or either
// listener fails, then releases the database pool.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	if app.config.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.db.Close()
	app.pool.Close()
	app.logger.Info(context.Background(), "App stopped")
}
