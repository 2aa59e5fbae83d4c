package internal

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kisumi/kisumi/internal/bancho"
	"github.com/kisumi/kisumi/internal/core"
	"github.com/kisumi/kisumi/internal/core/auth"
	"github.com/kisumi/kisumi/internal/core/data"
	"github.com/kisumi/kisumi/internal/core/debug"
	"github.com/kisumi/kisumi/internal/geo"
	"github.com/kisumi/kisumi/internal/metrics"
	"github.com/kisumi/kisumi/internal/online"
	"github.com/kisumi/kisumi/internal/session"
)

// How often sessions are checked for inactivity.
const reapInterval = 30 * time.Second

// Controller is the main entrypoint for kisumi. It's responsible for initializing
// any shared resources (such as database and logging), defining the server, and
// launching everything.
type Controller struct {
	Config *core.Config

	logger *logrus.Logger
	wg     sync.WaitGroup

	db       *gorm.DB
	geo      *geo.MaxMindResolver
	mqtt     *online.MQTTPublisher
	backend  *bancho.Server
	frontend *frontend
}

func (c *Controller) Start(ctx context.Context) {
	defer c.Shutdown()

	var err error
	// Set up the logger, which will be used by everything else.
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		logrus.Errorf("error initializing logger: %v", err)
		return
	}

	// Start any debug utilities if we're configured to do so.
	debug.StartUtilities(c.Config, c.logger)

	if err := c.declareServer(); err != nil {
		c.logger.Error(err)
		return
	}
	c.run(ctx)
}

// Set up the backend and everything it depends on.
func (c *Controller) declareServer() error {
	source := c.Config.DatabaseURL()
	if c.Config.Database.Engine == "sqlite" {
		source = c.Config.QualifiedPath(c.Config.Database.Filename)
	}
	dialector, err := data.Dialector(c.Config.Database.Engine, source)
	if err != nil {
		return err
	}
	c.db, err = data.Open(dialector, c.Config.Debugging.DatabaseLoggingEnabled)
	if err != nil {
		return err
	}

	registry := online.NewRegistry()
	registry.Subscribe(&online.Broadcaster{Registry: registry})
	if c.Config.MQTT.Enabled {
		c.mqtt, err = online.NewMQTTPublisher(c.Config, c.logger)
		if err != nil {
			return err
		}
		registry.Subscribe(c.mqtt)
	}

	verifier := auth.NewBcryptVerifier(c.Config.Auth.BcryptCost, auth.NewPool(c.Config.Auth.VerifyWorkers))
	signer, err := auth.NewJWTSigner([]byte(c.Config.Auth.JWTSecret), c.Config.Auth.JWTExpiry)
	if err != nil {
		return err
	}

	var resolver geo.Resolver = geo.NopResolver{}
	if path := c.Config.QualifiedPath(c.Config.Geolocation.DatabasePath); path != "" {
		c.geo, err = geo.OpenMaxMind(path, c.Config.Geolocation.CacheSize, c.logger)
		if err != nil {
			return err
		}
		resolver = c.geo
	}

	var packetLogger *debug.PacketLogger
	if c.Config.Debugging.PacketLoggingEnabled {
		packetLogger = &debug.PacketLogger{Logger: c.logger}
	}

	m := metrics.New()
	c.backend = &bancho.Server{
		Name:     "BANCHO",
		Config:   c.Config,
		Logger:   c.logger,
		Accounts: bancho.NewAccountManager(c.db, registry, verifier, c.Config.Cache.AccountTTL),
		Registry: registry,
		Geo:      resolver,
		Metrics:  m,
		AuthDeps: session.AuthDeps{Verifier: verifier, Signer: signer},
		Packets:  packetLogger,
	}
	c.frontend = &frontend{
		Address: c.Config.Address(),
		Backend: c.backend,
		Config:  c.Config,
		Logger:  c.logger,
		Metrics: m,
	}
	return nil
}

func (c *Controller) run(ctx context.Context) {
	// Failure to start the server is considered terminal.
	if err := c.frontend.Start(ctx, &c.wg); err != nil {
		c.logger.Errorf("error starting %s server: %v", c.frontend.Backend.Identifier(), err)
		return
	}

	c.wg.Add(1)
	go c.reapIdleSessions(ctx)

	c.wg.Wait()
}

func (c *Controller) reapIdleSessions(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.backend.ReapIdle(ctx); n > 0 {
				c.logger.Infof("detached %d idle sessions", n)
			}
		}
	}
}

// Shutdown releases the shared resources once the server has stopped.
func (c *Controller) Shutdown() {
	c.wg.Wait()
	if c.mqtt != nil {
		c.mqtt.Close()
	}
	if c.geo != nil {
		if err := c.geo.Close(); err != nil {
			c.logger.Warnf("error closing geolocation database: %v", err)
		}
	}
	if c.db != nil {
		if err := data.Close(c.db); err != nil {
			c.logger.Warnf("error closing database: %v", err)
		}
	}
}
