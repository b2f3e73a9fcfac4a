package http

import (
	"context"
	"errors"
	"fmt"
	gohttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/itsib/hyper-dex-swap-node/internal/aggregator"
	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/http/httputil"
	"github.com/itsib/hyper-dex-swap-node/internal/http/middlewares"
)

const (
	API_VERSION  = "v1"
	HTTP_SERVICE = "http-service"
)

type HTTPService struct {
	container.BaseDIInstance

	aggregatorSvc QuoteService
	rateLimiter   *middlewares.RateLimiter
	server        *gohttp.Server
	conf          *config.GeneralConfig

	handlers []httputil.IHttpHandler
}

// NewHTTPService builds the service outside of the container.
func NewHTTPService(conf *config.GeneralConfig, aggregatorSvc QuoteService) *HTTPService {
	svc := &HTTPService{conf: conf, aggregatorSvc: aggregatorSvc}
	svc.setup()
	return svc
}

func (svc *HTTPService) ID() string {
	return HTTP_SERVICE
}

func (svc *HTTPService) Configure(c container.IContainer) error {
	svc.conf = c.GetConfig(config.GENERAL_CONFIG_KEY).(*config.GeneralConfig)
	if svc.conf == nil {
		return errors.New("invalid server config")
	}

	svc.aggregatorSvc = c.Instance(aggregator.AGGREGATOR_SERVICE).(*aggregator.Service)
	svc.setup()
	return nil
}

func (svc *HTTPService) setup() {
	svc.rateLimiter = middlewares.NewRateLimiter(svc.conf.RateLimitRPS, svc.conf.RateLimitBurst)
	svc.handlers = []httputil.IHttpHandler{
		NewQuoteHandler(svc.aggregatorSvc),
		NewPoolHandler(svc.aggregatorSvc),
	}
}

// Router builds the gin engine with every middleware and route.
func (svc *HTTPService) Router() *gin.Engine {
	if !svc.conf.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsConf := cors.DefaultConfig()
	corsConf.AllowAllOrigins = true
	corsConf.AddAllowHeaders(middlewares.RequestIDHeader)
	corsConf.AddExposeHeaders(middlewares.RequestIDHeader)
	r.Use(cors.New(corsConf))

	r.Use(middlewares.RequestID())
	r.Use(middlewares.MetricsMiddleware())

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(gohttp.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("api")
	api.Use(svc.rateLimiter.RateLimitMiddleware())
	pub := api.Group(API_VERSION)
	priv := api.Group(API_VERSION)

	admin := api.Group(fmt.Sprintf("%s/admin", API_VERSION))

	svc.setupHandlers(pub, priv, admin)
	return r
}

func (svc *HTTPService) Start() error {
	svc.server = &gohttp.Server{
		Addr:              svc.conf.HTTPHost + ":" + svc.conf.HTTPPort,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("host", svc.conf.HTTPHost).Str("port", svc.conf.HTTPPort).Msg("http server started")

	if err := svc.server.ListenAndServe(); err != nil && err != gohttp.ErrServerClosed {
		return err
	}

	return nil
}

func (svc *HTTPService) Stop() error {
	if svc.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
		return err
	}
	log.Info().Msg("http server stopped gracefully")
	return nil
}

func (svc *HTTPService) setupHandlers(
	rootPub *gin.RouterGroup,
	rootPriv *gin.RouterGroup,
	rootAdmin *gin.RouterGroup,
) {
	for _, h := range svc.handlers {
		pub := rootPub.Group(h.Root())
		priv := rootPriv.Group(h.Root())
		admin := rootAdmin.Group(h.Root())
		h.SetRoutes(pub, priv, admin)
	}
}
