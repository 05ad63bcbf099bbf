package issuance

import (
	"context"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/tagrush/backend/internal/apperr"
	"github.com/tagrush/backend/internal/models"
	"github.com/tagrush/backend/internal/qr"
)

// MatchCreator is the part of the match store issuance writes through.
type MatchCreator interface {
	CreateMatch(ctx context.Context, durationMs int64) (*models.Match, error)
}

// Issued is the outcome of issuing a match. QRImage and QRDataURL are empty
// when rendering failed.
type Issued struct {
	Match     *models.Match
	ClaimURL  string
	QRImage   []byte
	QRDataURL string
}

// Service creates matches for operators and derives their claim payloads.
type Service struct {
	store    MatchCreator
	renderer qr.Renderer
	qrSize   int
}

func NewService(store MatchCreator, renderer qr.Renderer, qrSize int) *Service {
	if qrSize <= 0 {
		qrSize = qr.DefaultSize
	}
	return &Service{store: store, renderer: renderer, qrSize: qrSize}
}

// ParseDuration parses an operator-entered duration in milliseconds.
func ParseDuration(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperr.Invalid("duration_ms", "Duration is required")
	}

	d, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || d < 0 {
		return 0, apperr.Invalid("duration_ms", "Duration must be a non-negative whole number of milliseconds")
	}
	return d, nil
}

// ClaimURL builds {origin}/claim?token={token}.
func ClaimURL(origin, token string) string {
	return strings.TrimRight(origin, "/") + "/claim?" + url.Values{"token": {token}}.Encode()
}

// IssueMatch persists a new match and renders its claim QR code. A
// rendering failure is returned as *apperr.RenderError together with the
// already persisted match; the match is not rolled back.
func (s *Service) IssueMatch(ctx context.Context, rawDuration, origin string) (*Issued, error) {
	durationMs, err := ParseDuration(rawDuration)
	if err != nil {
		return nil, err
	}

	m, err := s.store.CreateMatch(ctx, durationMs)
	if err != nil {
		return nil, err
	}

	issued := &Issued{Match: m, ClaimURL: ClaimURL(origin, m.SessionToken)}
	log.Printf("[ISSUE] Match %d created (duration=%dms)", m.ID, m.DurationMs)

	img, err := s.Render(issued.ClaimURL)
	if err != nil {
		log.Printf("[ISSUE] QR rendering failed for match %d: %v", m.ID, err)
		return issued, err
	}

	issued.QRImage = img
	issued.QRDataURL = qr.DataURL(img)
	return issued, nil
}

// Render renders claimURL at the configured size.
func (s *Service) Render(claimURL string) ([]byte, error) {
	img, err := s.renderer.Render(claimURL, s.qrSize)
	if err != nil {
		return nil, &apperr.RenderError{Err: err}
	}
	return img, nil
}
