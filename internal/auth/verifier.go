// Package auth turns bearer tokens into caller claims. Tokens are issued by
// an external identity service; this package only verifies them.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/sports-facility-booking/internal/model"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidSubject = errors.New("token subject is not a person id")
)

// Verifier checks HS256 access tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify parses raw and returns the claims it carries. The sub claim may be
// a JSON number or a decimal string.
func (v *Verifier) Verify(raw string) (model.Claims, error) {
	tok, err := v.parser.Parse(raw, func(*jwt.Token) (any, error) { return v.secret, nil })
	if err != nil {
		return model.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return model.Claims{}, ErrInvalidToken
	}
	id, err := subjectID(claims["sub"])
	if err != nil {
		return model.Claims{}, err
	}
	return model.Claims{SubjectID: id}, nil
}

func subjectID(sub any) (int64, error) {
	switch t := sub.(type) {
	case float64:
		if t > 0 && t == float64(int64(t)) {
			return int64(t), nil
		}
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, ErrInvalidSubject
}

// Sign builds an HS256 token for subject valid for ttl. Used by local
// tooling and tests; production tokens come from the identity service.
func Sign(secret string, subject int64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
