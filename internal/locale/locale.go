// Package locale translates the strings shown by the terminal clock
package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Message IDs
const (
	KeyWhite    = "White"
	KeyBlack    = "Black"
	KeyReady    = "Ready"
	KeyRunning  = "Running"
	KeyPaused   = "Paused"
	KeyFlagFell = "FlagFell"
	KeyMoves    = "Moves"
	KeyDelay    = "Delay"
	KeyHelp     = "Help"
)

// Keys lists every message ID the clock uses
var Keys = []string{
	KeyWhite, KeyBlack, KeyReady, KeyRunning, KeyPaused,
	KeyFlagFell, KeyMoves, KeyDelay, KeyHelp,
}

type Translator struct {
	lang      language.Tag
	localizer *i18n.Localizer
	logger    *zap.Logger
}

// New loads the embedded locales and returns a translator for lang. Unknown
// languages fall back to English.
func New(lang string, logger *zap.Logger) (*Translator, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("parsing language %q: %w", lang, err)
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("reading locales: %w", err)
	}
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+f.Name()); err != nil {
			return nil, fmt.Errorf("loading locale %s: %w", f.Name(), err)
		}
	}

	return &Translator{
		lang:      tag,
		localizer: i18n.NewLocalizer(bundle, tag.String()),
		logger:    logger,
	}, nil
}

// Languages returns the codes of the embedded locales
func Languages() []string {
	files, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil
	}

	var langs []string
	for _, f := range files {
		name := strings.TrimSuffix(strings.TrimPrefix(f.Name(), "active."), ".json")
		if name != "" {
			langs = append(langs, name)
		}
	}
	sort.Strings(langs)

	return langs
}

// Language returns the requested language
func (t *Translator) Language() language.Tag {
	return t.lang
}

// Msg translates a message ID, the ID itself is returned when it is missing
func (t *Translator) Msg(key string) string {
	return t.Msgf(key, nil)
}

// Msgf translates a message ID that takes template data
func (t *Translator) Msgf(key string, data map[string]interface{}) string {
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		t.logger.Debug("missing translation", zap.String("key", key), zap.Error(err))
		return key
	}

	return msg
}
