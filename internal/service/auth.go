package service

import (
	"fmt"

	"github.com/chavepixclub/backend/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// SessionVerifier validates access tokens issued by the managed auth provider.
type SessionVerifier struct {
	jwtSecret string
	audience  string
}

func NewSessionVerifier(jwtSecret, audience string) *SessionVerifier {
	return &SessionVerifier{jwtSecret: jwtSecret, audience: audience}
}

// Verify validates a token and returns the identity it carries.
func (s *SessionVerifier) Verify(tokenStr string) (*domain.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, opts...)
	if err != nil {
		return nil, domain.ErrUnauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrUnauthorized("invalid token claims")
	}

	id := &domain.Identity{
		ID:    getClaimString(claims, "sub"),
		Email: getClaimString(claims, "email"),
		Role:  getClaimString(claims, "role"),
	}
	if id.ID == "" {
		return nil, domain.ErrUnauthorized("token has no subject")
	}
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		id.FullName, _ = meta["full_name"].(string)
		id.AvatarURL, _ = meta["avatar_url"].(string)
	}
	return id, nil
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
