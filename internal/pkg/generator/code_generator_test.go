package generator

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderReference(t *testing.T) {
	g := NewCodeGenerator()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	ref, err := g.GenerateOrderReference(now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^ORD-20261015-[0-9a-f]{10}$`), ref)

	other, err := g.GenerateOrderReference(now)
	require.NoError(t, err)
	assert.NotEqual(t, ref, other)
}

func TestGenerateSessionID(t *testing.T) {
	g := NewCodeGenerator()
	id := g.GenerateSessionID()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
}

func TestGenerateAttemptID(t *testing.T) {
	_, err := uuid.Parse(NewCodeGenerator().GenerateAttemptID())
	assert.NoError(t, err)
}
