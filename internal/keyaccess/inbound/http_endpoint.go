package inbound

import (
	"strings"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/usecase"
	"github.com/shandysiswandi/phonekey/internal/pkg/router"
)

// HTTPEndpoint exposes the key access workflow over HTTP.
type HTTPEndpoint struct {
	uc uc
}

// CreateKey registers a phone and creates a key.
// @Summary Create key
// @Description Creates a key for the phone and sends a create code by SMS. A phone that is already verified receives an id that does not exist.
// @Tags Keys
// @Accept json
// @Produce json
// @Param request body CreateKeyRequest true "Create key payload"
// @Success 201 {object} router.successResponse{data=CreateKeyResponse}
// @Failure 400 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/keys [post]
func (h *HTTPEndpoint) CreateKey(r *router.Request) (any, error) {
	var req CreateKeyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Register(r.Context(), usecase.RegisterInput{
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		return nil, err
	}

	return CreateKeyResponse{ID: resp.ID}, nil
}

// GetKey sends a read code for the key.
// @Summary Request read code
// @Tags Keys
// @Produce json
// @Param keyId path string true "Key id"
// @Param phone query string true "Phone number in E.164"
// @Success 200 {object} router.successResponse{data=CodeSentResponse}
// @Failure 400 {object} router.errorResponse "Validation error"
// @Failure 404 {object} router.errorResponse "No matching record"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/keys/{keyId} [get]
func (h *HTTPEndpoint) GetKey(r *router.Request) (any, error) {
	return h.requestCode(r, entity.OperationRead)
}

// RemoveKey sends a remove code for the key.
// @Summary Request remove code
// @Tags Keys
// @Produce json
// @Param keyId path string true "Key id"
// @Param phone query string true "Phone number in E.164"
// @Success 200 {object} router.successResponse{data=CodeSentResponse}
// @Failure 400 {object} router.errorResponse "Validation error"
// @Failure 404 {object} router.errorResponse "No matching record"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/keys/{keyId} [delete]
func (h *HTTPEndpoint) RemoveKey(r *router.Request) (any, error) {
	return h.requestCode(r, entity.OperationRemove)
}

func (h *HTTPEndpoint) requestCode(r *router.Request, op entity.Operation) (any, error) {
	err := h.uc.RequestCode(r.Context(), usecase.RequestCodeInput{
		Phone: r.GetRawQuery("phone"),
		KeyID: r.GetParam("keyId"),
		Op:    op,
	})
	if err != nil {
		return nil, err
	}

	return CodeSentResponse{}, nil
}

// VerifyKey completes an operation with the code received by SMS.
// @Summary Verify code
// @Description Checks the code and performs the operation. Read returns the key secret.
// @Tags Keys
// @Accept json
// @Produce json
// @Param keyId path string true "Key id"
// @Param request body VerifyKeyRequest true "Verify payload"
// @Success 200 {object} router.successResponse{data=VerifyKeyResponse}
// @Failure 400 {object} router.errorResponse "Validation error"
// @Failure 404 {object} router.errorResponse "No matching record"
// @Failure 429 {object} router.errorResponse "Rate limit exceeded"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/keys/{keyId}/verify [post]
func (h *HTTPEndpoint) VerifyKey(r *router.Request) (any, error) {
	var req VerifyKeyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Complete(r.Context(), usecase.CompleteInput{
		Phone: strings.TrimSpace(req.Phone),
		KeyID: r.GetParam("keyId"),
		Op:    entity.Operation(strings.TrimSpace(req.Op)),
		Code:  strings.TrimSpace(req.Code),
	})
	if err != nil {
		return nil, err
	}

	return VerifyKeyResponse{ID: resp.ID, Secret: resp.Secret}, nil
}
