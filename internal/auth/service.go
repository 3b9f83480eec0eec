package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrForbidden    = errors.New("token does not grant access to this tree")
)

const scopeEdit = "edit"

// Service issues and checks edit tokens. An edit token is handed out when a
// tree is created and lets its holder change or delete that one tree.
type Service struct {
	jwtSecret []byte
	ttl       time.Duration
}

// NewService creates a Service signing with jwtSecret. Tokens expire after
// ttl, or never when ttl is zero.
func NewService(jwtSecret string, ttl time.Duration) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
	}
}

// IssueEditToken returns a signed token scoped to treeID.
func (s *Service) IssueEditToken(treeID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   treeID,
		"scope": scopeEdit,
		"iat":   now.Unix(),
	}
	if s.ttl != 0 {
		claims["exp"] = now.Add(s.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ValidateToken checks the signature, expiry and scope of tokenString and
// returns the tree it grants access to.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	if scope, _ := claims["scope"].(string); scope != scopeEdit {
		return "", fmt.Errorf("%w: wrong scope", ErrInvalidToken)
	}

	treeID, ok := claims["sub"].(string)
	if !ok || treeID == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return treeID, nil
}

// CanEdit reports whether tokenString is a valid edit token for treeID.
func (s *Service) CanEdit(tokenString, treeID string) bool {
	if tokenString == "" {
		return false
	}
	id, err := s.ValidateToken(tokenString)
	return err == nil && id == treeID
}
