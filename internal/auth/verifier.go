// Package auth はIdPが発行したIDトークンの検証を提供する。
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken はトークンが不正・期限切れ・署名不一致であることを表す。
var ErrInvalidToken = errors.New("invalid token")

// Identity は検証済みトークンから取り出した呼び出し元の情報。
type Identity struct {
	ID    string // subクレーム
	Email string
}

// claims はIdPトークンのクレーム。
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier はIDトークンを検証するインターフェース。
type Verifier interface {
	Verify(token string) (*Identity, error)
}

// JWTVerifier はHS256共有シークレットまたはRS256公開鍵でトークンを検証する。
type JWTVerifier struct {
	key     any
	methods []string
	issuer  string
}

// NewJWTVerifier はJWTVerifierを生成する。
// publicKeyPEMが指定されていればRS256、そうでなければsecretによるHS256で検証する。
// issuerが空でなければissクレームも検証する。
func NewJWTVerifier(secret, publicKeyPEM, issuer string) (*JWTVerifier, error) {
	v := &JWTVerifier{issuer: issuer}
	switch {
	case strings.TrimSpace(publicKeyPEM) != "":
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("公開鍵のパースに失敗しました: %w", err)
		}
		v.key = pub
		v.methods = []string{jwt.SigningMethodRS256.Alg()}
	case secret != "":
		v.key = []byte(secret)
		v.methods = []string{jwt.SigningMethodHS256.Alg()}
	default:
		return nil, errors.New("secret or public key is required")
	}
	return v, nil
}

// Verify はトークンを検証し、subをIDとするIdentityを返す。
func (v *JWTVerifier) Verify(token string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	c := &claims{}
	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(c.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{ID: c.Subject, Email: c.Email}, nil
}

// compile-time interface check
var _ Verifier = (*JWTVerifier)(nil)
