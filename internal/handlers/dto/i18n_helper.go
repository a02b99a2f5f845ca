package dto

import (
	"github.com/gin-gonic/gin"

	"github.com/rafabene/avantpro-avatars/internal/handlers/middleware"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/i18n"
)

// T traduz uma chave no idioma da requisição.
// Sem serviço i18n no contexto, devolve a própria chave.
func T(c *gin.Context, key string, params ...map[string]any) string {
	service := i18nService(c)
	if service == nil {
		return key
	}
	return service.T(GetLanguage(c), key, params...)
}

// GetLanguage retorna o idioma detectado pelo middleware, ou o padrão do serviço
func GetLanguage(c *gin.Context) string {
	if lang, ok := c.Get(middleware.LanguageContextKey); ok {
		if s, ok := lang.(string); ok && s != "" {
			return s
		}
	}
	if service := i18nService(c); service != nil {
		return service.GetDefaultLanguage()
	}
	return "en"
}

func i18nService(c *gin.Context) *i18n.Service {
	value, ok := c.Get(middleware.I18nServiceContextKey)
	if !ok {
		return nil
	}
	service, _ := value.(*i18n.Service)
	return service
}
