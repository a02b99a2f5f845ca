package testutil

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
)

// PNG gera uma imagem PNG sólida com as dimensões informadas
func PNG(t TB, width, height int) []byte {
	t.Helper()
	return PNGColor(t, width, height, color.RGBA{R: 200, G: 80, B: 40, A: 255})
}

// PNGColor gera uma imagem PNG sólida na cor informada; cores diferentes
// produzem conteúdos (e SHA256) diferentes
func PNGColor(t TB, width, height int, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("falha ao gerar png: %v", err)
	}
	return buf.Bytes()
}

// TinyPNG é um PNG 1x1 válido de 67 bytes, menor que a janela de detecção
// por número mágico
func TinyPNG(t TB) []byte {
	t.Helper()

	data, err := base64.StdEncoding.DecodeString(
		"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAACklEQVR4nGMAAQAABQABDQottAAAAABJRU5ErkJggg==",
	)
	if err != nil {
		t.Fatalf("falha ao decodificar png: %v", err)
	}
	return data
}
