package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/phonekey/internal/keyaccess"
	"github.com/shandysiswandi/phonekey/internal/notification"
)

func (a *App) initModules() {
	if a.keyAccessEnabled() {
		if err := keyaccess.New(keyaccess.Dependency{
			Ctx:        a.ctx,
			CacheConn:  a.cacheConn,
			Router:     a.router,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Clock:      a.clock,
			HMAC:       a.hmac,
			SecretBox:  a.secretBox,
			Code:       a.code,
			Validator:  a.validator,
			DBConn:     a.dbConn,
			Storage:    a.storage,
			Messaging:  a.messaging,
			SMS:        a.sms,
		}); err != nil {
			slog.Error("failed to init module keyaccess", "error", err)
			os.Exit(1)
		}
	}

	if a.notificationEnabled() {
		if err := notification.New(notification.Dependency{
			Ctx:        a.ctx,
			CacheConn:  a.cacheConn,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
			SMS:        a.sms,
		}); err != nil {
			slog.Error("failed to init module notification", "error", err)
			os.Exit(1)
		}
	}
}
