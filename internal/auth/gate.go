// Package auth exchanges the daemon's PIN for a bearer token. The
// signing key is random per daemon run, so tokens die with the daemon.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/agentdeck/agentdeck/errors"
)

const keySize = 32

// Gate validates PINs and mints bearer tokens.
type Gate struct {
	pin      string
	key      []byte
	disabled bool
}

// NewGate builds a gate for pin. An empty pin generates a random
// six-digit one; read it back with PIN().
func NewGate(pin string) (*Gate, error) {
	if pin == "" {
		generated, err := generatePIN()
		if err != nil {
			return nil, err
		}
		pin = generated
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating token key: %w", err)
	}
	return &Gate{pin: pin, key: key}, nil
}

// NewDisabledGate accepts every credential and token. For --no-auth.
func NewDisabledGate() *Gate {
	return &Gate{disabled: true}
}

// PIN returns the gate's PIN, empty when auth is disabled.
func (g *Gate) PIN() string { return g.pin }

// Disabled reports whether the gate accepts everything.
func (g *Gate) Disabled() bool { return g.disabled }

// IssueToken exchanges a correct PIN for a bearer token.
func (g *Gate) IssueToken(pin string) (string, error) {
	if g.disabled {
		return g.sign("open"), nil
	}
	if subtle.ConstantTimeCompare([]byte(pin), []byte(g.pin)) != 1 {
		return "", errors.InvalidCredential()
	}
	return g.sign(g.pin), nil
}

// Validate reports whether token was issued by this gate in this run.
func (g *Gate) Validate(token string) bool {
	if g.disabled {
		return true
	}
	expected := g.sign(g.pin)
	return hmac.Equal([]byte(token), []byte(expected))
}

func (g *Gate) sign(input string) string {
	mac := hmac.New(sha256.New, g.key)
	mac.Write([]byte(input))
	return hex.EncodeToString(mac.Sum(nil))
}

func generatePIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generating PIN: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
