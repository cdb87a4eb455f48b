package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin = "admin"
	issuer    = "eventgallery"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims scope an admin session to a single event. The event id doubles as
// the token audience.
type Claims struct {
	AdminID string `json:"admin_id"`
	EventID string `json:"event_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

func NewService(secret string, ttlMinutes int) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    time.Duration(ttlMinutes) * time.Minute,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

func (s *Service) GenerateToken(adminID, eventID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		AdminID: adminID,
		EventID: eventID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   adminID,
			Audience:  jwt.ClaimStrings{eventID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.EventID == "" {
		return nil, ErrInvalidToken
	}
	if aud, _ := claims.GetAudience(); len(aud) != 1 || aud[0] != claims.EventID {
		return nil, fmt.Errorf("%w: audience does not match event", ErrInvalidToken)
	}
	return claims, nil
}

func (s *Service) ParseAuthContext(token string) (string, string, string, error) {
	claims, err := s.ParseToken(token)
	if err != nil {
		return "", "", "", err
	}
	return claims.AdminID, claims.EventID, claims.Role, nil
}

// TTL is how long issued tokens stay valid.
func (s *Service) TTL() time.Duration {
	return s.ttl
}
