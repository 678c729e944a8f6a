// Package auth verifies the cashier tokens issued by the POS backend.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/toko-pos/internal/common"
)

// ErrInvalidToken is returned for tokens that fail parsing or validation.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is what handlers learn about the caller.
type Claims struct {
	UserID string
	Role   string
}

// Verifier checks HS256 tokens signed with the backend's shared secret.
type Verifier struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Now       func() time.Time
}

func (v Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Verify parses raw and returns its claims. The user id comes from the
// subject, or from a userId claim when the subject is empty.
func (v Verifier) Verify(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	if len(v.Secret) == 0 {
		return Claims{}, errors.New("auth: secret not configured")
	}
	if err := requireHS256(raw); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	tok, err := jwt.ParseString(raw, jwt.WithKey(jwa.HS256, v.Secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	opts := []jwt.ValidateOption{jwt.WithClock(jwt.ClockFunc(v.now))}
	if v.ClockSkew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	if err := jwt.Validate(tok, opts...); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	c := Claims{UserID: tok.Subject(), Role: claimString(tok, "role")}
	if c.UserID == "" {
		c.UserID = claimString(tok, "userId")
	}
	if c.UserID == "" {
		return Claims{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return c, nil
}

// requireHS256 rejects tokens whose header names any other algorithm,
// including "none", before the signature is checked.
func requireHS256(raw string) error {
	msg, err := jws.ParseString(raw)
	if err != nil {
		return err
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return errors.New("no signatures")
	}
	for _, sig := range sigs {
		headers := sig.ProtectedHeaders()
		if headers == nil || headers.Algorithm() != jwa.HS256 {
			return errors.New("unexpected algorithm")
		}
	}
	return nil
}

func claimString(tok jwt.Token, name string) string {
	v, ok := tok.Get(name)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}

// Sign issues a token for userID. The service never issues tokens itself; it
// is used by the receipt tool and by tests.
func Sign(secret []byte, issuer, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	b := jwt.NewBuilder().Subject(userID).IssuedAt(now).Expiration(now.Add(ttl))
	if issuer != "" {
		b = b.Issuer(issuer)
	}
	tok, err := b.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// ServiceContext returns ctx carrying a freshly signed token for userID, for
// backend calls made outside any cashier request. An empty userID leaves ctx
// anonymous.
func ServiceContext(ctx context.Context, secret []byte, issuer, userID string, ttl time.Duration) (context.Context, error) {
	if userID == "" {
		return ctx, nil
	}
	tok, err := Sign(secret, issuer, userID, ttl)
	if err != nil {
		return ctx, fmt.Errorf("sign service token: %w", err)
	}
	return common.WithBearerToken(ctx, tok), nil
}
