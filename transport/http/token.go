package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mirror520/collab"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

func (c *Claims) Actor() collab.Actor {
	return collab.Actor{
		ID:   c.Subject,
		Name: c.Name,
	}
}

func KeyFn(secret []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}
}

// TokenParser validates HS256 bearer tokens issued by issuer.
type TokenParser struct {
	keyFn  jwt.Keyfunc
	issuer string
	leeway time.Duration
}

func NewTokenParser(secret []byte, issuer string, leeway time.Duration) *TokenParser {
	return &TokenParser{
		keyFn:  KeyFn(secret),
		issuer: issuer,
		leeway: leeway,
	}
}

// ParseToken reads the bearer token from the Authorization header, or from
// the access_token query parameter for clients that cannot set headers.
func (p *TokenParser) ParseToken(ctx *gin.Context, claims *Claims) error {
	tokenStr := ctx.GetHeader("Authorization")
	switch {
	case strings.HasPrefix(tokenStr, "Bearer "):
		tokenStr = strings.TrimPrefix(tokenStr, "Bearer ")
	case ctx.Query("access_token") != "":
		tokenStr = ctx.Query("access_token")
	default:
		return ErrInvalidToken
	}

	_, err := jwt.ParseWithClaims(tokenStr, claims, p.keyFn,
		jwt.WithIssuer(p.issuer),
		jwt.WithLeeway(p.leeway),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return err
	}

	if claims.Subject == "" {
		return ErrInvalidToken
	}

	return nil
}

func NewToken(secret []byte, issuer string, actor collab.Actor, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: actor.Name,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
