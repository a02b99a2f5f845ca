package entities

import (
	"strconv"
	"strings"
)

// ImageKind diz o que uma ImageReference aponta
type ImageKind string

const (
	ImageKindRendition ImageKind = "rendition"
	ImageKindOriginal  ImageKind = "original"
	ImageKindDefault   ImageKind = "default"
)

// ImageReference é o resultado da resolução de avatar: algo renderizável
type ImageReference struct {
	Kind     ImageKind
	UploadID string
	Width    int
	Height   int
	URL      string
}

// IsDefault indica o sentinela de avatar padrão
func (r ImageReference) IsDefault() bool {
	return r.Kind == ImageKindDefault
}

// DefaultAvatar monta o sentinela de avatar padrão. O template aceita {size}.
func DefaultAvatar(size int, urlTemplate string) ImageReference {
	return ImageReference{
		Kind:   ImageKindDefault,
		Width:  size,
		Height: size,
		URL:    strings.ReplaceAll(urlTemplate, "{size}", strconv.Itoa(size)),
	}
}
