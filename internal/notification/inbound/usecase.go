package inbound

import (
	"context"

	"github.com/shandysiswandi/phonekey/internal/notification/usecase"
)

type uc interface {
	ConsumeKeyCodeIssued(ctx context.Context, in usecase.ConsumeKeyCodeIssuedInput) error
}
