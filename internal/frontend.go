package internal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kisumi/kisumi/internal/core"
	"github.com/kisumi/kisumi/internal/metrics"
)

const (
	// Only the stable client is allowed past the landing page.
	banchoUserAgent = "osu!"

	tokenHeader    = "osu-token"
	choTokenHeader = "cho-token"
	protocolHeader = "cho-protocol"
	noToken        = "no"

	maxBodySize = 1 << 20
)

// frontend serves the Bancho endpoint over HTTP.
//
// Request bodies are read and passed to a backend instance, abstracting the
// HTTP details away from the Backend.
type frontend struct {
	Address string
	Backend Backend
	Config  *core.Config
	Logger  *logrus.Logger
	Metrics *metrics.Metrics

	server *http.Server
}

// Start initializes the server backend and starts listening on the frontend's
// address. The serving loop is spun off in its own goroutine and added to the
// WaitGroup. Context cancellations will stop the server.
func (f *frontend) Start(ctx context.Context, wg *sync.WaitGroup) error {
	if err := f.Backend.Init(ctx); err != nil {
		return fmt.Errorf("error initializing %s server: %v", f.Backend.Identifier(), err)
	}

	f.server = &http.Server{
		Addr:         f.Address,
		Handler:      f.router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	wg.Add(1)
	go f.serve(ctx, wg)
	return nil
}

func (f *frontend) serve(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		f.Logger.Infof("[%v] shutting down (waiting for requests to finish)", f.Backend.Identifier())
		_ = f.server.Shutdown(shutdownCtx)
	}()

	f.Logger.Printf("[%s] waiting for connections on %v", f.Backend.Identifier(), f.Address)
	if err := f.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		f.Logger.Errorf("[%s] error serving: %v", f.Backend.Identifier(), err)
	}
	f.Logger.Infof("[%v] exited", f.Backend.Identifier())
}

func (f *frontend) router() *gin.Engine {
	if f.Logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(f.recoverRequest())
	router.Use(f.logRequest())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{"Origin", "Content-Type", tokenHeader},
		ExposeHeaders: []string{choTokenHeader, protocolHeader},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/", f.handleIndex)
	router.POST("/", f.handleBancho)
	if f.Metrics != nil && f.Config.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(f.Metrics.Handler()))
	}
	return router
}

// handleIndex is what people get when visiting the endpoint from a browser.
func (f *frontend) handleIndex(c *gin.Context) {
	c.String(http.StatusOK, "%s - Powered by Kisumi!", f.Config.ServerName)
}

func (f *frontend) handleBancho(c *gin.Context) {
	if c.GetHeader("User-Agent") != banchoUserAgent {
		f.handleIndex(c)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
	if err != nil {
		f.Logger.Warnf("error reading request body from %s: %v", c.ClientIP(), err)
		c.Status(http.StatusBadRequest)
		return
	}

	c.Header(protocolHeader, strconv.Itoa(int(f.Config.Bancho.ProtocolVersion)))

	ctx := c.Request.Context()
	if token := c.GetHeader(tokenHeader); token != "" {
		c.Data(http.StatusOK, "application/octet-stream", f.Backend.HandlePackets(ctx, token, body))
		return
	}

	resp, token := f.Backend.HandleLogin(ctx, body, c.ClientIP())
	if token == "" {
		token = noToken
	}
	c.Header(choTokenHeader, token)
	c.Data(http.StatusOK, "application/octet-stream", resp)
}

// recoverRequest is the failsafe that catches any panics so that one bad
// request never takes the server down.
func (f *frontend) recoverRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				f.Logger.Errorf("error handling request from %s: error=%s, trace: %s",
					c.ClientIP(), err, debug.Stack())
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

func (f *frontend) logRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		f.Logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
			"ip":       c.ClientIP(),
		}).Debug("handled request")
	}
}
