// Package codegen генерирует короткие публичные коды заказов.
package codegen

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet без I, L, O, 0, 1
	Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	Length   = 6
)

// Generator выдаёт очередной кандидат в коды
type Generator func() (string, error)

// Generate выбирает Length символов из Alphabet равновероятно, с повторами
func Generate() (string, error) {
	code, err := gonanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("codegen.Generate: %w", err)
	}
	return code, nil
}
