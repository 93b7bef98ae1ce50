package i18n

import (
	"context"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Tag parses a language code or Accept-Language value. Unknown input
// yields English.
func Tag(lang string) language.Tag {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return language.English
	}
	if tag, err := language.Parse(lang); err == nil {
		return tag
	}
	tags, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	return tags[0]
}

// LanguageName returns the English name of lang, e.g. "Spanish" for "es".
// It is used inside prompts, which are written in English.
func LanguageName(lang string) string {
	tag := Tag(lang)
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return "English"
}

// SelfName returns the name of lang in lang itself, e.g. "español".
func SelfName(lang string) string {
	tag := Tag(lang)
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return LanguageName(lang)
}

// LanguageDirective returns the sentence asking the model to answer in lang,
// phrased in lang when a translation exists.
func LanguageDirective(lang string) string {
	ctx := WithLocalizer(context.Background(), NewLocalizer(Tag(lang).String()))
	return Td(ctx, "LanguageDirective", map[string]any{"Language": SelfName(lang)})
}
