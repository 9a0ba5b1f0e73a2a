package jwtinfra

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/campus-chat-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the payload fields of a managed-auth ID token.
// The user id is carried in user_id, falling back to sub.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates RS256 ID tokens issued by the managed auth service.
type Verifier struct {
	keys     map[string]*rsa.PublicKey // kid -> key; "" when the file has a single unlabelled key
	issuer   string
	audience string
}

type Option func(*Verifier)

func WithIssuer(iss string) Option   { return func(v *Verifier) { v.issuer = iss } }
func WithAudience(aud string) Option { return func(v *Verifier) { v.audience = aud } }

// NewVerifier loads public keys from a PEM file. Each block may be a
// PUBLIC KEY or a CERTIFICATE and may carry a "kid" PEM header.
func NewVerifier(keyPath string, opts ...Option) (*Verifier, error) {
	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read public keys: %w", err)
	}
	keys, err := parseKeys(raw)
	if err != nil {
		return nil, err
	}
	v := &Verifier{keys: keys}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func parseKeys(raw []byte) (map[string]*rsa.PublicKey, error) {
	keys := make(map[string]*rsa.PublicKey)
	for {
		var block *pem.Block
		block, raw = pem.Decode(raw)
		if block == nil {
			break
		}
		var (
			key *rsa.PublicKey
			err error
		)
		switch block.Type {
		case "PUBLIC KEY", "RSA PUBLIC KEY":
			key, err = jwt.ParseRSAPublicKeyFromPEM(pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: block.Bytes}))
		case "CERTIFICATE":
			key, err = certKey(block.Bytes)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("parse public key %q: %w", block.Headers["kid"], err)
		}
		kid := block.Headers["kid"]
		if _, dup := keys[kid]; dup {
			return nil, fmt.Errorf("duplicate key id %q", kid)
		}
		keys[kid] = key
	}
	if len(keys) == 0 {
		return nil, errors.New("no RSA public keys found")
	}
	return keys, nil
}

func certKey(der []byte) (*rsa.PublicKey, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("certificate key is %T, not RSA", cert.PublicKey)
	}
	return key, nil
}

// Verify checks signature, expiry and (when configured) issuer and audience.
// Every rejection wraps domain.ErrInvalidCredential.
func (v *Verifier) Verify(_ context.Context, tokenStr string) (domain.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, v.keyFor, opts...)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", domain.ErrInvalidCredential, err)
	}
	uid := claims.UserID
	if uid == "" {
		uid = claims.Subject
	}
	return domain.Identity{UserID: uid, Email: claims.Email}, nil
}

func (v *Verifier) keyFor(t *jwt.Token) (interface{}, error) {
	kid, _ := t.Header["kid"].(string)
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	// a single configured key verifies tokens regardless of kid
	if len(v.keys) == 1 {
		for _, key := range v.keys {
			return key, nil
		}
	}
	return nil, fmt.Errorf("unknown key id %q", kid)
}
