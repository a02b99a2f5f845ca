package i18n

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

// Service traduz mensagens carregadas de arquivos JSON por idioma.
// As traduções são imutáveis depois do carregamento.
type Service struct {
	translations    map[string]map[string]string // [language][key]message
	defaultLanguage string
	languages       []string // mesma ordem das tags do matcher
	matcher         language.Matcher
	templates       sync.Map // message -> *template.Template
}

// NewEmbeddedService cria o serviço com os locales embutidos no binário
func NewEmbeddedService(defaultLang string) (*Service, error) {
	return NewServiceFS(embeddedLocales, "locales", defaultLang)
}

// NewService cria um novo serviço de i18n
// localesDir: diretório contendo os arquivos JSON de tradução
// defaultLang: idioma padrão (fallback)
func NewService(localesDir, defaultLang string) (*Service, error) {
	return NewServiceFS(os.DirFS(localesDir), ".", defaultLang)
}

// NewServiceFS carrega os arquivos *.json de dir dentro de fsys
func NewServiceFS(fsys fs.FS, dir, defaultLang string) (*Service, error) {
	s := &Service{
		translations:    make(map[string]map[string]string),
		defaultLanguage: defaultLang,
	}

	// Carregar todos os arquivos .json do diretório de locales
	files, err := fs.Glob(fsys, path.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to find locale files: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no locale files found in %s", dir)
	}

	// Carregar cada arquivo de tradução
	for _, file := range files {
		lang := strings.TrimSuffix(path.Base(file), ".json")

		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read locale file %s: %w", file, err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse locale file %s: %w", file, err)
		}

		s.translations[lang] = translations
	}

	// Verificar se o idioma padrão existe
	if _, ok := s.translations[defaultLang]; !ok {
		return nil, fmt.Errorf("default language %s not found in locale files", defaultLang)
	}

	// O idioma padrão vem primeiro: é o que o matcher devolve sem correspondência
	s.languages = append(s.languages, defaultLang)
	tags := []language.Tag{language.Make(defaultLang)}
	for lang := range s.translations {
		if lang == defaultLang {
			continue
		}
		s.languages = append(s.languages, lang)
		tags = append(tags, language.Make(lang))
	}
	s.matcher = language.NewMatcher(tags)

	return s, nil
}

// T traduz uma chave no idioma pedido, caindo no idioma padrão e depois na
// própria chave. Parâmetros são interpolados como template ({{.URL}}).
func (s *Service) T(lang, key string, params ...map[string]any) string {
	message, ok := s.lookup(lang, key)
	if !ok {
		message, ok = s.lookup(s.defaultLanguage, key)
	}
	if !ok {
		return key
	}
	if len(params) == 0 || !strings.Contains(message, "{{") {
		return message
	}
	return s.render(message, params[0])
}

// render usa o template compilado em cache; mensagens inválidas voltam cruas
func (s *Service) render(message string, data map[string]any) string {
	cached, ok := s.templates.Load(message)
	if !ok {
		tmpl, err := template.New("msg").Parse(message)
		if err != nil {
			return message
		}
		cached, _ = s.templates.LoadOrStore(message, tmpl)
	}

	var buf bytes.Buffer
	if err := cached.(*template.Template).Execute(&buf, data); err != nil {
		return message
	}
	return buf.String()
}

// MatchAcceptLanguage escolhe o melhor idioma suportado para um header
// Accept-Language. Retorna "" quando nenhum idioma corresponde.
func (s *Service) MatchAcceptLanguage(header string) string {
	if header == "" {
		return ""
	}

	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}

	_, index, confidence := s.matcher.Match(tags...)
	if confidence == language.No {
		return ""
	}
	return s.languages[index]
}

func (s *Service) lookup(lang, key string) (string, bool) {
	msg, ok := s.translations[lang][key]
	return msg, ok && msg != ""
}

// GetDefaultLanguage retorna o idioma padrão configurado
func (s *Service) GetDefaultLanguage() string {
	return s.defaultLanguage
}

// GetSupportedLanguages retorna lista de idiomas suportados
func (s *Service) GetSupportedLanguages() []string {
	langs := make([]string, len(s.languages))
	copy(langs, s.languages)
	return langs
}

// IsLanguageSupported verifica se um idioma é suportado
func (s *Service) IsLanguageSupported(lang string) bool {
	_, ok := s.translations[lang]
	return ok
}
