// Package script renders the narration text for each scene of an ad.
package script

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// Scene keys.
const (
	Showcase = "showcase"
	Install  = "install"
)

// DefaultLanguage is used for languages without templates.
const DefaultLanguage = "en"

// Params fill the templates.
type Params struct {
	Deity      string
	CustomText string
}

var sources = map[string]map[string]string{
	"en": {
		Showcase: "Explore divine {{.Deity}} live wallpapers. Transform your screen with spiritual beauty. {{.CustomText}}",
		Install:  "Download now from Play Store and bring divine presence to your phone.",
	},
	"hi": {
		Showcase: "{{.Deity}} के दिव्य लाइव वॉलपेपर देखें। अपनी स्क्रीन को आध्यात्मिक सुंदरता से सजाएं। {{.CustomText}}",
		Install:  "प्ले स्टोर से अभी डाउनलोड करें और अपने फोन में दिव्यता लाएं।",
	},
}

var templates = parse()

func parse() map[string]*template.Template {
	out := make(map[string]*template.Template)
	for lang, scenes := range sources {
		for key, text := range scenes {
			name := lang + "/" + key
			out[name] = template.Must(template.New(name).Option("missingkey=error").Parse(text))
		}
	}
	return out
}

// Languages lists the languages that have their own templates.
func Languages() []string {
	out := make([]string, 0, len(sources))
	for lang := range sources {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Resolve returns lang if it has templates, DefaultLanguage otherwise.
func Resolve(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := sources[lang]; ok {
		return lang
	}
	return DefaultLanguage
}

// Render produces the narration for one scene. Unknown languages use English.
func Render(key, lang string, p Params) (string, error) {
	tmpl, ok := templates[Resolve(lang)+"/"+key]
	if !ok {
		return "", fmt.Errorf("no script for scene %q", key)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, p); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(b.String()), nil
}

// All renders every scene script in playback order.
func All(lang string, p Params) (map[string]string, error) {
	out := make(map[string]string, 2)
	for _, key := range []string{Showcase, Install} {
		text, err := Render(key, lang, p)
		if err != nil {
			return nil, err
		}
		out[key] = text
	}
	return out, nil
}
