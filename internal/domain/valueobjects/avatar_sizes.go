package valueobjects

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrInvalidAvatarSizes = errors.New("invalid avatar sizes")
)

// AvatarSizes é o conjunto ordenado (crescente, sem repetição) de tamanhos
// quadrados permitidos para renditions de avatar.
type AvatarSizes struct {
	values []int
}

// NewAvatarSizes cria o conjunto a partir de uma lista arbitrária
func NewAvatarSizes(sizes ...int) (AvatarSizes, error) {
	if len(sizes) == 0 {
		return AvatarSizes{}, ErrInvalidAvatarSizes
	}

	seen := make(map[int]struct{}, len(sizes))
	values := make([]int, 0, len(sizes))
	for _, s := range sizes {
		if s <= 0 {
			return AvatarSizes{}, fmt.Errorf("%w: size %d must be positive", ErrInvalidAvatarSizes, s)
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		values = append(values, s)
	}
	sort.Ints(values)

	return AvatarSizes{values: values}, nil
}

// ParseAvatarSizes interpreta o formato de configuração "24|45|48|..."
func ParseAvatarSizes(raw string) (AvatarSizes, error) {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '|' || r == ',' || r == ' '
	})

	sizes := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return AvatarSizes{}, fmt.Errorf("%w: %q", ErrInvalidAvatarSizes, p)
		}
		sizes = append(sizes, n)
	}

	return NewAvatarSizes(sizes...)
}

// MustParseAvatarSizes é ParseAvatarSizes que entra em pânico em caso de erro
func MustParseAvatarSizes(raw string) AvatarSizes {
	sizes, err := ParseAvatarSizes(raw)
	if err != nil {
		panic(err)
	}
	return sizes
}

// Values retorna uma cópia dos tamanhos em ordem crescente
func (s AvatarSizes) Values() []int {
	out := make([]int, len(s.values))
	copy(out, s.values)
	return out
}

// Max retorna o maior tamanho configurado (0 se vazio)
func (s AvatarSizes) Max() int {
	if len(s.values) == 0 {
		return 0
	}
	return s.values[len(s.values)-1]
}

// Contains verifica se o tamanho está no conjunto
func (s AvatarSizes) Contains(size int) bool {
	i := sort.SearchInts(s.values, size)
	return i < len(s.values) && s.values[i] == size
}

// ContainsSquare verifica se (width, height) é um quadrado permitido
func (s AvatarSizes) ContainsSquare(width, height int) bool {
	return width == height && s.Contains(width)
}

// NearestAtLeast retorna o menor tamanho configurado >= size.
// Quando size excede todos, retorna o maior.
func (s AvatarSizes) NearestAtLeast(size int) int {
	i := sort.SearchInts(s.values, size)
	if i == len(s.values) {
		return s.Max()
	}
	return s.values[i]
}

// AtLeast retorna, em ordem crescente, os tamanhos configurados >= size
func (s AvatarSizes) AtLeast(size int) []int {
	i := sort.SearchInts(s.values, size)
	out := make([]int, len(s.values)-i)
	copy(out, s.values[i:])
	return out
}

// String retorna o formato de configuração
func (s AvatarSizes) String() string {
	parts := make([]string, len(s.values))
	for i, v := range s.values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "|")
}
