package infrastructure

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CryptoEntropy draws from the operating system CSPRNG
type CryptoEntropy struct{}

// NewCryptoEntropy creates a new crypto entropy source
func NewCryptoEntropy() CryptoEntropy {
	return CryptoEntropy{}
}

// Intn returns a uniform integer in [0, n)
func (CryptoEntropy) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid entropy bound %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random number: %w", err)
	}
	return int(v.Int64()), nil
}
