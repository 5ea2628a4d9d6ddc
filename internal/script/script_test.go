package script

import (
	"slices"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	p := Params{Deity: "Ganesha", CustomText: "Free for a week."}

	tests := []struct {
		name     string
		key      string
		lang     string
		contains []string
	}{
		{"english showcase", Showcase, "en", []string{"Explore divine Ganesha live wallpapers.", "Free for a week."}},
		{"hindi showcase", Showcase, "hi", []string{"Ganesha के दिव्य", "Free for a week."}},
		{"hindi install", Install, "HI", []string{"प्ले स्टोर"}},
		{"unknown language falls back", Install, "fr", []string{"Download now from Play Store"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.key, tt.lang, p)
			if err != nil {
				t.Fatal(err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("%q does not contain %q", got, want)
				}
			}
		})
	}
}

func TestRenderTrimsEmptyCustomText(t *testing.T) {
	got, err := Render(Showcase, "en", Params{Deity: "Shiva"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasSuffix(got, " ") {
		t.Errorf("trailing space left in %q", got)
	}
}

func TestRenderUnknownScene(t *testing.T) {
	if _, err := Render("outro", "en", Params{}); err == nil {
		t.Error("expected error for unknown scene")
	}
}

func TestAll(t *testing.T) {
	scripts, err := All("en", Params{Deity: "Krishna"})
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 2 || scripts[Install] == "" || !strings.Contains(scripts[Showcase], "Krishna") {
		t.Errorf("unexpected scripts: %v", scripts)
	}
	if !slices.Equal(Languages(), []string{"en", "hi"}) {
		t.Errorf("languages = %v", Languages())
	}
}
