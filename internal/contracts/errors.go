package contracts

import "errors"

// Sentinel errors shared across the curator packages
// ⭐ SSOT: 도메인 에러는 여기서만 정의
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrSourceUnavailable = errors.New("market data source unavailable")
	ErrInsufficientData  = errors.New("insufficient candle data")
	ErrProofUnverified   = errors.New("resolution proof could not be verified")
	ErrAwaitingProof     = errors.New("no expected outcome declared yet")
	ErrNotEnded          = errors.New("market has not ended")
	ErrInvalidConfig     = errors.New("invalid curator config")
	ErrInvalidDraft      = errors.New("invalid draft")
	ErrPublishFailed     = errors.New("publish failed")
	ErrUnsupportedKind   = errors.New("unsupported market kind")
)
