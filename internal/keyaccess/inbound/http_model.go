package inbound

import "net/http"

type CreateKeyRequest struct {
	Phone string `json:"phone"`
}

type CreateKeyResponse struct {
	ID string `json:"id"`
}

func (CreateKeyResponse) StatusCode() int { return http.StatusCreated }

func (CreateKeyResponse) Message() string {
	return "Key created. A verification code has been sent."
}

type CodeSentResponse struct{}

func (CodeSentResponse) Message() string {
	return "A verification code has been sent."
}

type VerifyKeyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
	Op    string `json:"op"`
}

type VerifyKeyResponse struct {
	ID string `json:"id"`
	// Secret is base64 encoded and only present for the read operation.
	Secret []byte `json:"secret,omitempty"`
}
