package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/campus-chat-api/internal/domain"
)

const (
	codeMin = 1000
	codeMax = 9999
)

// Generator produces 4-digit codes with an absolute expiry. It persists nothing.
type Generator struct {
	validity time.Duration
	now      func() time.Time
	rand     io.Reader
}

func NewGenerator(validity time.Duration) *Generator {
	return &Generator{
		validity: validity,
		now:      func() time.Time { return time.Now().UTC() },
		rand:     rand.Reader,
	}
}

// Generate returns a code uniform in [1000, 9999] that expires validity from now.
func (g *Generator) Generate() (domain.OTPCode, error) {
	n, err := rand.Int(g.rand, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return domain.OTPCode{}, fmt.Errorf("generate otp: %w", err)
	}
	return domain.OTPCode{
		Code:      fmt.Sprintf("%04d", n.Int64()+codeMin),
		ExpiresAt: g.now().Add(g.validity),
	}, nil
}
