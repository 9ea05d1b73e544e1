package appointment

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ExistsFunc reports whether a confirmation code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// CodeGenerator mints confirmation codes of the form "APT-XXXX" where XXXX
// are four uppercase hex characters drawn from a fresh random UUID. The
// randomness source is injectable so collision handling can be tested.
type CodeGenerator struct {
	random func() string
}

// NewCodeGenerator returns a generator backed by uuid.NewString.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{random: uuid.NewString}
}

// NewCodeGeneratorWithSource returns a generator drawing raw randomness
// from the given function.
func NewCodeGeneratorWithSource(random func() string) *CodeGenerator {
	return &CodeGenerator{random: random}
}

// Generate produces a confirmation code not yet reported taken by exists.
// Codes stay unique across all appointments ever created, including
// cancelled and completed ones, so exists must consider every record.
func (g *CodeGenerator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for {
		raw := strings.ReplaceAll(g.random(), "-", "")
		code := ConfirmationPrefix + strings.ToUpper(raw[:4])

		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
}
