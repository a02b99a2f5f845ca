package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/rafabene/avantpro-avatars/internal/infrastructure/i18n"
)

const (
	// LanguageContextKey guarda o idioma resolvido no contexto do Gin
	LanguageContextKey = "language"
	// I18nServiceContextKey guarda o serviço i18n no contexto do Gin
	I18nServiceContextKey = "i18n_service"
)

// I18nMiddleware resolve o idioma de cada requisição
type I18nMiddleware struct {
	i18nService *i18n.Service
}

// NewI18nMiddleware cria um novo middleware de i18n
func NewI18nMiddleware(i18nService *i18n.Service) *I18nMiddleware {
	return &I18nMiddleware{i18nService: i18nService}
}

// DetectLanguage escolhe o idioma por ?lang, depois Accept-Language, depois
// o padrão do serviço. O escolhido volta em Content-Language.
func (m *I18nMiddleware) DetectLanguage() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := m.resolve(c.Query("lang"), c.GetHeader("Accept-Language"))

		c.Set(LanguageContextKey, lang)
		c.Set(I18nServiceContextKey, m.i18nService)
		c.Header("Content-Language", lang)

		c.Next()
	}
}

// resolve aceita variantes regionais nos dois canais ("pt" casa com "pt-BR")
func (m *I18nMiddleware) resolve(query, acceptLanguage string) string {
	for _, candidate := range []string{query, acceptLanguage} {
		if candidate == "" {
			continue
		}
		if lang := m.i18nService.MatchAcceptLanguage(candidate); lang != "" {
			return lang
		}
	}
	return m.i18nService.GetDefaultLanguage()
}
