package generator

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type CodeGenerator struct{}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

// GenerateOrderReference returns the merchant reference sent to the payment
// gateway, e.g. ORD-20261015-9f2c41d07a.
func (g *CodeGenerator) GenerateOrderReference(now time.Time) (string, error) {
	randomBytes := make([]byte, 5)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}

	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), hex.EncodeToString(randomBytes)), nil
}

func (g *CodeGenerator) GenerateSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (g *CodeGenerator) GenerateAttemptID() string {
	return uuid.NewString()
}
