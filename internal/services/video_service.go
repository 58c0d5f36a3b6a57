package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"skillswap-service/internal/realtime"
)

var ErrVideoNotConfigured = errors.New("video provider credentials not configured")

const defaultTokenTTL = 2 * time.Hour

// VideoService signs meeting access tokens against the external video
// provider's API credentials. The provider verifies the signature on join;
// no call leaves the process until a participant actually connects.
type VideoService struct {
	apiKey string
	secret []byte
	ttl    time.Duration
}

func NewVideoService(apiKey, secret string, ttl time.Duration) *VideoService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &VideoService{
		apiKey: apiKey,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// IssueToken mints a signed, time-boxed credential scoped to one meeting
// with join and moderate permissions.
func (v *VideoService) IssueToken(ctx context.Context, meetingID string) (*realtime.VideoToken, error) {
	if v.apiKey == "" || len(v.secret) == 0 {
		return nil, ErrVideoNotConfigured
	}

	now := time.Now()
	expiresAt := now.Add(v.ttl)

	claims := jwt.MapClaims{
		"apikey":      v.apiKey,
		"roomId":      meetingID,
		"permissions": []string{"allow_join", "allow_mod"},
		"version":     2,
		"iat":         now.Unix(),
		"exp":         expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return nil, err
	}

	return &realtime.VideoToken{
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}
