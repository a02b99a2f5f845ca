package dto

import (
	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	"github.com/rafabene/avantpro-avatars/internal/services"
)

// ImageReferenceResponse é a imagem escolhida para exibição
type ImageReferenceResponse struct {
	Kind     string `json:"kind" example:"rendition"`
	UploadID string `json:"upload_id,omitempty"`
	Width    int    `json:"width" example:"48"`
	Height   int    `json:"height" example:"48"`
	URL      string `json:"url" example:"/uploads/optimized/ab/ab12.png"`
}

// ToImageReferenceResponse converte uma ImageReference
func ToImageReferenceResponse(ref entities.ImageReference) ImageReferenceResponse {
	return ImageReferenceResponse{
		Kind:     string(ref.Kind),
		UploadID: ref.UploadID,
		Width:    ref.Width,
		Height:   ref.Height,
		URL:      ref.URL,
	}
}

// ImportAvatarRequest representa a requisição de importação por URL
type ImportAvatarRequest struct {
	URL              string `json:"url" binding:"required,url,max=2048"`
	OverrideGravatar *bool  `json:"override_gravatar"`
}

// PreferenceRequest representa a escolha entre gravatar e upload próprio
type PreferenceRequest struct {
	PreferGravatar *bool `json:"prefer_gravatar" binding:"required"`
}

// FetchResultResponse representa o desfecho de uma busca remota
type FetchResultResponse struct {
	Outcome  string `json:"outcome" example:"success"`
	UploadID string `json:"upload_id,omitempty"`
	Changed  bool   `json:"changed"`
	Message  string `json:"message"`
}

// MessageResponse é uma confirmação simples
type MessageResponse struct {
	Message string `json:"message"`
}

// ToFetchResultResponse converte um FetchResult; a mensagem vem traduzida
func ToFetchResultResponse(result services.FetchResult, message string) FetchResultResponse {
	return FetchResultResponse{
		Outcome:  string(result.Outcome),
		UploadID: result.UploadID,
		Changed:  result.Changed,
		Message:  message,
	}
}
