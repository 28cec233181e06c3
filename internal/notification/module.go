package notification

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/phonekey/internal/notification/inbound"
	notifsms "github.com/shandysiswandi/phonekey/internal/notification/outbound/sms"
	"github.com/shandysiswandi/phonekey/internal/notification/usecase"
	"github.com/shandysiswandi/phonekey/internal/pkg/config"
	"github.com/shandysiswandi/phonekey/internal/pkg/goroutine"
	"github.com/shandysiswandi/phonekey/internal/pkg/idempotency"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/messaging"
	"github.com/shandysiswandi/phonekey/internal/pkg/sms"
	"github.com/shandysiswandi/phonekey/internal/pkg/uid"
	"github.com/shandysiswandi/phonekey/internal/pkg/validator"
)

type Dependency struct {
	Ctx        context.Context
	CacheConn  redis.UniversalClient      `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	SMS        sms.SMS                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc := usecase.NewNotification(usecase.Dependency{
		RepoSMS:     notifsms.New(dep.SMS, dep.Instrument),
		Idempotency: idempotency.New(dep.CacheConn),
		Validator:   dep.Validator,
		Instrument:  dep.Instrument,
		Config: usecase.Config{
			Template:       dep.Config.GetString("modules.notification.sms_template"),
			RetryMax:       dep.Config.GetInt("modules.notification.retry_max"),
			RetryBase:      dep.Config.GetMillisecond("modules.notification.retry_base_ms"),
			IdempotencyTTL: dep.Config.GetMinute("modules.notification.idempotency_ttl_minutes"),
		},
	})

	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
	}

	return nil
}
