package entities

// OptimizedImage é uma rendition redimensionada de um upload.
// Existe no máximo uma por (upload, largura, altura).
type OptimizedImage struct {
	ID         string
	UploadID   string
	Width      int
	Height     int
	SHA256     string
	StorageKey string
	Extension  string
	Filesize   int64
	URL        string
}

// Matches verifica se a rendition tem as dimensões informadas
func (o *OptimizedImage) Matches(width, height int) bool {
	return o.Width == width && o.Height == height
}
