package auth

import (
	"errors"
	"time"

	"github.com/ayushsoni02/Canvas-Flow/pkg/state"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// signing method, expiry, or a missing userId claim. Callers fail closed on it.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the credential payload shared by the HTTP and WS surfaces.
type Claims struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	jwt.RegisteredClaims
}

// Verifier mints and verifies HS256 credentials.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the token signature and extracts the identity. Any error,
// including a structurally valid token without a userId claim, is rejected.
func (v *Verifier) Verify(tokenString string) (state.Identity, error) {
	if tokenString == "" {
		return state.Identity{}, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return state.Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return state.Identity{}, ErrInvalidToken
	}

	return state.Identity{UserID: claims.UserID, Name: claims.UserName}, nil
}

// Mint issues a credential for the given identity.
func (v *Verifier) Mint(userID, userName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
