package inbound

import (
	"context"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/usecase"
	"github.com/shandysiswandi/phonekey/internal/pkg/router"
)

type uc interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.RegisterOutput, error)
	RequestCode(ctx context.Context, in usecase.RequestCodeInput) error
	Complete(ctx context.Context, in usecase.CompleteInput) (*usecase.CompleteOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/keys", end.CreateKey)
	r.GET("/api/v1/keys/:keyId", end.GetKey)
	r.DELETE("/api/v1/keys/:keyId", end.RemoveKey)
	r.POST("/api/v1/keys/:keyId/verify", end.VerifyKey)
}
