package app

import (
	"context"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/phonekey/internal/keyaccess"
	"github.com/shandysiswandi/phonekey/internal/pkg/clock"
	"github.com/shandysiswandi/phonekey/internal/pkg/config"
	"github.com/shandysiswandi/phonekey/internal/pkg/goroutine"
	"github.com/shandysiswandi/phonekey/internal/pkg/hash"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/messaging"
	"github.com/shandysiswandi/phonekey/internal/pkg/otp"
	"github.com/shandysiswandi/phonekey/internal/pkg/router"
	"github.com/shandysiswandi/phonekey/internal/pkg/secretbox"
	"github.com/shandysiswandi/phonekey/internal/pkg/sms"
	"github.com/shandysiswandi/phonekey/internal/pkg/storage"
	"github.com/shandysiswandi/phonekey/internal/pkg/uid"
	"github.com/shandysiswandi/phonekey/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	uuid      uid.StringID
	code      otp.Generator
	secretBox secretbox.Box

	// resources, nil when the configuration does not use them
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	messaging messaging.Messaging
	storage   storage.Storage
	sms       sms.SMS

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initDatabase()
	app.initCache()
	app.initStorage()
	app.initMessaging()
	app.initSMS()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}

func (a *App) keyStore() string {
	if v := strings.ToLower(a.config.GetString("modules.keyaccess.key_store")); v != "" {
		return v
	}
	return keyaccess.KeyStoreDB
}

func (a *App) notifier() string {
	if v := strings.ToLower(a.config.GetString("modules.keyaccess.notifier")); v != "" {
		return v
	}
	return keyaccess.NotifierMQ
}

func (a *App) keyAccessEnabled() bool {
	return a.config.GetBool("modules.keyaccess.enabled")
}

func (a *App) notificationEnabled() bool {
	return a.config.GetBool("modules.notification.enabled")
}
