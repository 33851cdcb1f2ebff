package polygonstore

import (
	_ "embed"
	"fmt"

	"github.com/goccy/go-yaml"
)

//go:embed styles.yaml
var defaultStylesYAML []byte

// Style is the render hint handed to the map layer.
type Style struct {
	Color       string  `yaml:"color" json:"color"`
	FillColor   string  `yaml:"fillColor" json:"fillColor"`
	FillOpacity float64 `yaml:"fillOpacity" json:"fillOpacity"`
	Weight      float64 `yaml:"weight" json:"weight"`
	Opacity     float64 `yaml:"opacity" json:"opacity"`
}

// overlay copies the non-zero fields of o onto s.
func (s Style) overlay(o Style) Style {
	if o.Color != "" {
		s.Color = o.Color
	}
	if o.FillColor != "" {
		s.FillColor = o.FillColor
	}
	if o.FillOpacity != 0 {
		s.FillOpacity = o.FillOpacity
	}
	if o.Weight != 0 {
		s.Weight = o.Weight
	}
	if o.Opacity != 0 {
		s.Opacity = o.Opacity
	}
	return s
}

type StyleSet struct {
	Default  Style              `yaml:"default"`
	Selected Style              `yaml:"selected"`
	Hovered  Style              `yaml:"hovered"`
	Severity map[Severity]Style `yaml:"severity"`
}

// ParseStyles reads a style table. Unset fields fall back to the default style.
func ParseStyles(data []byte) (StyleSet, error) {
	var set StyleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return StyleSet{}, fmt.Errorf("parsing polygon styles: %w", err)
	}
	return set, nil
}

func mustDefaultStyles() StyleSet {
	set, err := ParseStyles(defaultStylesYAML)
	if err != nil {
		panic(err)
	}
	return set
}

// Style resolves the render style of a polygon from its severity and its
// selection and hover state.
func (s *Store) Style(p Polygon) Style {
	st := s.styles.Default
	if sev, ok := s.styles.Severity[p.Properties.Severity]; ok {
		st = st.overlay(sev)
	}
	if p.ID == "" {
		return st
	}
	switch p.ID {
	case s.selectedID:
		st = st.overlay(s.styles.Selected)
	case s.hoveredID:
		st = st.overlay(s.styles.Hovered)
	}
	return st
}
