package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	"github.com/rafabene/avantpro-avatars/internal/handlers/dto"
	"github.com/rafabene/avantpro-avatars/internal/services"
)

const defaultAvatarSize = 48

// AvatarResolver resolve a imagem de avatar de um usuário
type AvatarResolver interface {
	Resolve(ctx context.Context, userID string, size int) (entities.ImageReference, error)
}

// GravatarRefresher atualiza o gravatar de um usuário
type GravatarRefresher interface {
	Refresh(ctx context.Context, userID string) (services.FetchResult, error)
}

// URLImporter importa um avatar a partir de uma URL
type URLImporter interface {
	Import(ctx context.Context, rawURL, userID string, opts services.ImportOptions) (services.FetchResult, error)
}

// PreferenceSetter grava a preferência de exibição
type PreferenceSetter interface {
	SetPreferGravatar(ctx context.Context, userID string, prefer bool) error
}

// AvatarHandler lida com requisições HTTP de avatar
type AvatarHandler struct {
	resolver    AvatarResolver
	refresher   GravatarRefresher
	importer    URLImporter
	preferences PreferenceSetter
}

// NewAvatarHandler cria um novo AvatarHandler
func NewAvatarHandler(
	resolver AvatarResolver,
	refresher GravatarRefresher,
	importer URLImporter,
	preferences PreferenceSetter,
) *AvatarHandler {
	return &AvatarHandler{
		resolver:    resolver,
		refresher:   refresher,
		importer:    importer,
		preferences: preferences,
	}
}

// Register registra as rotas de avatar no grupo informado
func (h *AvatarHandler) Register(rg *gin.RouterGroup) {
	avatar := rg.Group("/users/:id/avatar")
	{
		avatar.GET("", h.GetAvatar)
		avatar.POST("/gravatar", h.RefreshGravatar)
		avatar.POST("/import", h.ImportAvatar)
		avatar.PUT("/preference", h.SetPreference)
	}
}

// GetAvatar resolve a imagem de avatar do usuário
//
//	@Summary	Resolve o avatar de um usuário
//	@Tags		avatars
//	@Produce	json
//	@Param		id			path		string	true	"ID do usuário"
//	@Param		size		query		int		false	"Tamanho desejado em pixels"	default(48)
//	@Param		redirect	query		bool	false	"Redireciona para a imagem"
//	@Success	200			{object}	dto.ImageReferenceResponse
//	@Success	302
//	@Failure	400			{object}	dto.ErrorResponse
//	@Router		/users/{id}/avatar [get]
func (h *AvatarHandler) GetAvatar(c *gin.Context) {
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultAvatarSize)))
	if err != nil {
		dto.WriteProblem(c, dto.BadRequestErrorResponseI18n(c, "error.invalid_avatar_size"))
		return
	}

	ref, err := h.resolver.Resolve(c.Request.Context(), c.Param("id"), size)
	if err != nil {
		dto.WriteProblem(c, dto.ErrorResponseFor(c, err))
		return
	}

	if redirect, _ := strconv.ParseBool(c.Query("redirect")); redirect {
		c.Redirect(http.StatusFound, ref.URL)
		return
	}

	c.JSON(http.StatusOK, dto.ToImageReferenceResponse(ref))
}

// RefreshGravatar baixa o gravatar atual do usuário
//
//	@Summary	Atualiza o gravatar de um usuário
//	@Tags		avatars
//	@Produce	json
//	@Param		id	path		string	true	"ID do usuário"
//	@Success	200	{object}	dto.FetchResultResponse
//	@Failure	404	{object}	dto.ErrorResponse
//	@Failure	502	{object}	dto.ErrorResponse
//	@Router		/users/{id}/avatar/gravatar [post]
func (h *AvatarHandler) RefreshGravatar(c *gin.Context) {
	result, err := h.refresher.Refresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.WriteProblem(c, dto.ErrorResponseFor(c, err))
		return
	}
	h.writeFetchResult(c, result, "gravatar")
}

// ImportAvatar importa um avatar a partir de uma URL
//
//	@Summary	Importa um avatar por URL
//	@Tags		avatars
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"ID do usuário"
//	@Param		request	body		dto.ImportAvatarRequest	true	"URL da imagem"
//	@Success	200		{object}	dto.FetchResultResponse
//	@Failure	400		{object}	dto.ErrorResponse
//	@Failure	409		{object}	dto.ErrorResponse
//	@Failure	502		{object}	dto.ErrorResponse
//	@Router		/users/{id}/avatar/import [post]
func (h *AvatarHandler) ImportAvatar(c *gin.Context) {
	var req dto.ImportAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.WriteProblem(c, dto.ValidationErrorResponseI18n(c, err))
		return
	}

	result, err := h.importer.Import(c.Request.Context(), req.URL, c.Param("id"), services.ImportOptions{
		OverrideGravatar: req.OverrideGravatar,
	})
	if err != nil {
		dto.WriteProblem(c, dto.ErrorResponseFor(c, err))
		return
	}
	h.writeFetchResult(c, result, req.URL)
}

// SetPreference define se o gravatar tem precedência sobre o upload próprio
//
//	@Summary	Define a preferência de exibição
//	@Tags		avatars
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"ID do usuário"
//	@Param		request	body		dto.PreferenceRequest	true	"Preferência"
//	@Success	200		{object}	dto.MessageResponse
//	@Failure	400		{object}	dto.ErrorResponse
//	@Failure	404		{object}	dto.ErrorResponse
//	@Router		/users/{id}/avatar/preference [put]
func (h *AvatarHandler) SetPreference(c *gin.Context) {
	var req dto.PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.WriteProblem(c, dto.ValidationErrorResponseI18n(c, err))
		return
	}

	if err := h.preferences.SetPreferGravatar(c.Request.Context(), c.Param("id"), *req.PreferGravatar); err != nil {
		dto.WriteProblem(c, dto.ErrorResponseFor(c, err))
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: dto.T(c, "avatar.preference.updated")})
}

// writeFetchResult responde 200 para desfechos esperados e 502 para falha de transporte
func (h *AvatarHandler) writeFetchResult(c *gin.Context, result services.FetchResult, source string) {
	if result.Outcome == services.OutcomeTransportError {
		dto.WriteProblem(c, dto.BadGatewayErrorResponseI18n(c, source))
		return
	}
	message := dto.T(c, "avatar.outcome."+string(result.Outcome))
	c.JSON(http.StatusOK, dto.ToFetchResultResponse(result, message))
}
