// Package credential supplies the bearer token used towards the dashboard backend.
package credential

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

var (
	ErrMissing = errors.New("no credential configured")
	ErrExpired = errors.New("credential expired")
)

type Provider interface {
	Token(ctx context.Context) (string, error)
}

// Static is a token taken from the config file or the environment.
type Static string

func (s Static) Token(context.Context) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", ErrMissing
	}
	return token, nil
}

// ExpiresAt reads the exp claim of a JWT without verifying its signature,
// the backend does that. Opaque tokens have no expiry and yield a zero time.
func ExpiresAt(token string) (time.Time, error) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, nil
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, errors.Wrap(err, "malformed token")
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// Validate fetches the token from p and rejects it when it already expired at now.
func Validate(ctx context.Context, p Provider, now time.Time) (string, error) {
	token, err := p.Token(ctx)
	if err != nil {
		return "", err
	}
	exp, err := ExpiresAt(token)
	if err != nil {
		return "", err
	}
	if !exp.IsZero() && !now.Before(exp) {
		return "", errors.Wrapf(ErrExpired, "expired at %s", exp.Format(time.RFC3339))
	}
	return token, nil
}
