package keyaccess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/inbound"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/outbound/blob"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/outbound/cache"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/outbound/db"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/outbound/mq"
	keysms "github.com/shandysiswandi/phonekey/internal/keyaccess/outbound/sms"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/usecase"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/verification"
	"github.com/shandysiswandi/phonekey/internal/pkg/clock"
	"github.com/shandysiswandi/phonekey/internal/pkg/config"
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

const (
	KeyStoreDB     = "db"
	KeyStoreObject = "object"

	NotifierMQ     = "mq"
	NotifierDirect = "direct"
)

var (
	ErrUnknownKeyStore = errors.New("keyaccess: unknown key store")
	ErrUnknownNotifier = errors.New("keyaccess: unknown notifier")
)

// Dependency carries everything the module may use. DBConn, Storage,
// Messaging and SMS are only required by the key store and notifier that
// the configuration selects.
type Dependency struct {
	Ctx        context.Context
	CacheConn  redis.UniversalClient      `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	SecretBox  secretbox.Box              `validate:"required"`
	Code       otp.Generator              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`

	DBConn    *pgxpool.Pool
	Storage   storage.Storage
	Messaging messaging.Messaging
	SMS       sms.SMS
}

type keyStore interface {
	CreateKey(ctx context.Context, secret []byte, createdAt time.Time) (*entity.Key, error)
	CreateDummyKey(ctx context.Context) string
	GetKey(ctx context.Context, id string) (*entity.Key, error)
	DeleteKey(ctx context.Context, id string) error
}

type codeSender interface {
	SendCode(ctx context.Context, phone, keyID string, op entity.Operation, code string) error
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoKey, err := newKeyStore(dep)
	if err != nil {
		return err
	}

	notifier, err := newNotifier(dep)
	if err != nil {
		return err
	}

	engine := verification.New(verification.Dependency{
		Store:      cache.NewCache(dep.CacheConn, dep.HMAC, dep.Instrument),
		Clock:      dep.Clock,
		Code:       dep.Code,
		Instrument: dep.Instrument,
		Config: verification.Config{
			LockoutWindow:    dep.Config.GetMinute("modules.keyaccess.lockout_window_minutes"),
			LockoutThreshold: dep.Config.GetInt("modules.keyaccess.lockout_threshold"),
		},
	})

	uc := usecase.New(usecase.Dependency{
		Engine:      engine,
		RepoKey:     repoKey,
		Notifier:    notifier,
		Validator:   dep.Validator,
		Clock:       dep.Clock,
		Instrument:  dep.Instrument,
		SecretBytes: dep.Config.GetInt("modules.keyaccess.secret_bytes"),
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}

func newKeyStore(dep Dependency) (keyStore, error) {
	switch name := strings.ToLower(dep.Config.GetString("modules.keyaccess.key_store")); name {
	case KeyStoreDB, "":
		if dep.DBConn == nil {
			return nil, fmt.Errorf("keyaccess: key store %q needs a database connection", KeyStoreDB)
		}
		store := db.NewDB(dep.DBConn, dep.SecretBox, dep.UUID, dep.Instrument)
		ctx := dep.Ctx
		if ctx == nil {
			ctx = context.Background()
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("keyaccess: migrate key store: %w", err)
		}
		return store, nil
	case KeyStoreObject:
		bucket := dep.Config.GetString("modules.keyaccess.object_bucket")
		if dep.Storage == nil || bucket == "" {
			return nil, fmt.Errorf("keyaccess: key store %q needs object storage and a bucket", KeyStoreObject)
		}
		return blob.NewBlob(dep.Storage, bucket, dep.SecretBox, dep.UUID, dep.Instrument), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeyStore, name)
	}
}

func newNotifier(dep Dependency) (codeSender, error) {
	switch name := strings.ToLower(dep.Config.GetString("modules.keyaccess.notifier")); name {
	case NotifierMQ, "":
		if dep.Messaging == nil {
			return nil, fmt.Errorf("keyaccess: notifier %q needs messaging", NotifierMQ)
		}
		return mq.NewMessaging(dep.Messaging, dep.UUID, dep.Clock, dep.Instrument), nil
	case NotifierDirect:
		if dep.SMS == nil {
			return nil, fmt.Errorf("keyaccess: notifier %q needs an sms client", NotifierDirect)
		}
		return keysms.NewSMS(dep.SMS, dep.Config.GetString("modules.notification.sms_template"), dep.Instrument), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownNotifier, name)
	}
}
