// Package catalog holds the closed garment taxonomy: canonical categories,
// canonical styles, storage prefixes and object name sanitizing.
package catalog

import (
	_ "embed"
	"fmt"
	"log"

	"wardrobeapi/languageutil"

	"gopkg.in/yaml.v3"
)

type Category string

type Style string

const (
	CategoryTop       Category = "上衣"
	CategoryPants     Category = "褲子"
	CategorySkirt     Category = "裙子"
	CategoryDress     Category = "洋裝"
	CategoryJacket    Category = "外套"
	CategoryShoes     Category = "鞋子"
	CategoryHat       Category = "帽子"
	CategoryBag       Category = "包包"
	CategoryAccessory Category = "配件"
	CategorySocks     Category = "襪子"
	CategorySpecial   Category = "特殊"
)

const (
	StyleCasual      Style = "休閒"
	StyleFormal      Style = "正式"
	StyleSport       Style = "運動"
	StyleCute        Style = "可愛"
	StylePersonality Style = "個性"
	StyleMinimal     Style = "簡約"
	StyleVintage     Style = "復古"
	StyleOther       Style = "其他"
)

type categoryEntry struct {
	Name     string   `yaml:"name"`
	English  string   `yaml:"english"`
	Synonyms []string `yaml:"synonyms"`
}

type styleEntry struct {
	Name     string   `yaml:"name"`
	Synonyms []string `yaml:"synonyms"`
}

type taxonomyFile struct {
	FallbackCategory string            `yaml:"fallback_category"`
	FallbackStyle    string            `yaml:"fallback_style"`
	FallbackPrefix   string            `yaml:"fallback_prefix"`
	Prefixes         map[string]string `yaml:"prefixes"`
	Categories       []categoryEntry   `yaml:"categories"`
	Styles           []styleEntry      `yaml:"styles"`
}

type synonymSet struct {
	canonical string
	keys      []string
}

// Taxonomy is the loaded, immutable lookup table. Safe for concurrent use.
type Taxonomy struct {
	fallbackCategory Category
	fallbackStyle    Style
	fallbackPrefix   string
	prefixes         map[string]string
	english          map[Category]string
	categories       []synonymSet
	styles           []synonymSet
}

//go:embed taxonomy.yaml
var taxonomyYAML []byte

var defaultTaxonomy = mustLoad(taxonomyYAML)

func mustLoad(data []byte) *Taxonomy {
	t, err := LoadTaxonomy(data)
	if err != nil {
		log.Fatalf("[Catalog] embedded taxonomy is invalid: %v", err)
	}
	return t
}

// LoadTaxonomy parses a taxonomy document. Every synonym list is folded
// once here so lookups only fold the input.
func LoadTaxonomy(data []byte) (*Taxonomy, error) {
	var raw taxonomyFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}
	if raw.FallbackCategory == "" || raw.FallbackStyle == "" || raw.FallbackPrefix == "" {
		return nil, fmt.Errorf("taxonomy fallbacks must not be empty")
	}

	t := &Taxonomy{
		fallbackCategory: Category(raw.FallbackCategory),
		fallbackStyle:    Style(raw.FallbackStyle),
		fallbackPrefix:   raw.FallbackPrefix,
		prefixes:         raw.Prefixes,
		english:          make(map[Category]string, len(raw.Categories)),
	}
	if t.prefixes == nil {
		t.prefixes = map[string]string{}
	}
	for _, c := range raw.Categories {
		t.categories = append(t.categories, foldSet(c.Name, c.Synonyms))
		if c.English != "" {
			t.english[Category(c.Name)] = c.English
		}
	}
	for _, s := range raw.Styles {
		t.styles = append(t.styles, foldSet(s.Name, s.Synonyms))
	}
	return t, nil
}

func foldSet(canonical string, synonyms []string) synonymSet {
	set := synonymSet{canonical: canonical, keys: make([]string, 0, len(synonyms)+1)}
	set.keys = append(set.keys, languageutil.FoldKey(canonical))
	for _, s := range synonyms {
		set.keys = append(set.keys, languageutil.FoldKey(s))
	}
	return set
}

func lookup(sets []synonymSet, raw string) (string, bool) {
	key := languageutil.FoldKey(raw)
	if key == "" {
		return "", false
	}
	for _, set := range sets {
		for _, k := range set.keys {
			if k == key {
				return set.canonical, true
			}
		}
	}
	return "", false
}

// DestinationPrefix maps a category to its storage path segment. Unknown
// categories land under the fallback prefix.
func (t *Taxonomy) DestinationPrefix(category string) string {
	if prefix, ok := t.prefixes[category]; ok && prefix != "" {
		return prefix
	}
	return t.fallbackPrefix
}

func (t *Taxonomy) Canonicalize(raw string) Category {
	if name, ok := lookup(t.categories, raw); ok {
		return Category(name)
	}
	return t.fallbackCategory
}

func (t *Taxonomy) CanonicalizeStyle(raw string) Style {
	if name, ok := lookup(t.styles, raw); ok {
		return Style(name)
	}
	return t.fallbackStyle
}

// EnglishLabel is the prompt vocabulary for a category; categories without
// a translation are returned as is.
func (t *Taxonomy) EnglishLabel(category string) string {
	if label, ok := t.english[Category(category)]; ok {
		return label
	}
	return category
}

func (t *Taxonomy) IsCategory(value string) bool {
	if Category(value) == t.fallbackCategory {
		return true
	}
	for _, set := range t.categories {
		if set.canonical == value {
			return true
		}
	}
	return false
}

func (t *Taxonomy) IsStyle(value string) bool {
	if Style(value) == t.fallbackStyle {
		return true
	}
	for _, set := range t.styles {
		if set.canonical == value {
			return true
		}
	}
	return false
}

func Default() *Taxonomy { return defaultTaxonomy }
