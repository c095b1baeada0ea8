// Package i18n resuelve claves de mensaje al idioma del usuario con golang.org/x/text.
package i18n

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhoicas/Entregas-api/internal/application/ports"
	"github.com/jhoicas/Entregas-api/internal/domain/repository"
	"github.com/jhoicas/Entregas-api/pkg/logger"
)

var _ ports.Translator = (*Translator)(nil)

const lookupTimeout = 2 * time.Second

// Translator implementa ports.Translator. El idioma sale del usuario; si no se puede
// resolver se usa el idioma por defecto.
type Translator struct {
	users    repository.UserRepository
	fallback language.Tag
	matcher  language.Matcher
	printers map[language.Tag]*message.Printer
	log      *logger.Logger
}

// NewTranslator construye el traductor. users puede ser nil (siempre idioma por defecto).
func NewTranslator(users repository.UserRepository, defaultLocale string, log *logger.Logger) (*Translator, error) {
	cat, err := newCatalog()
	if err != nil {
		return nil, fmt.Errorf("i18n catalog: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	t := &Translator{
		users:    users,
		matcher:  language.NewMatcher(Supported),
		printers: make(map[language.Tag]*message.Printer, len(Supported)),
		log:      log,
	}
	for _, tag := range Supported {
		t.printers[tag] = message.NewPrinter(tag, message.Catalog(cat))
	}
	t.fallback = t.match(defaultLocale, language.Spanish)
	return t, nil
}

// Translate devuelve el texto de key en el idioma de userID. Una clave sin texto se devuelve tal cual.
func (t *Translator) Translate(userID, key string, args ...any) string {
	return t.TranslateLocale(t.localeOf(userID), key, args...)
}

// TranslateLocale igual que Translate con el idioma explícito (p. ej. Accept-Language).
func (t *Translator) TranslateLocale(locale, key string, args ...any) string {
	tag := t.match(locale, t.fallback)
	return t.printers[tag].Sprintf(key, args...)
}

func (t *Translator) localeOf(userID string) string {
	if t.users == nil || userID == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	u, err := t.users.GetByID(ctx, userID)
	if err != nil {
		t.log.Warn().Err(err).Str("user_id", userID).Msg("idioma del usuario no disponible")
		return ""
	}
	if u == nil {
		return ""
	}
	return u.Locale
}

// match elige el idioma soportado más cercano a locale.
func (t *Translator) match(locale string, def language.Tag) language.Tag {
	if locale == "" {
		return def
	}
	parsed, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(parsed) == 0 {
		return def
	}
	_, idx, conf := t.matcher.Match(parsed...)
	if conf == language.No {
		return def
	}
	return Supported[idx]
}
