package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// DefaultLanguage is the language every LocalizedText is guaranteed to carry.
const DefaultLanguage = "en"

// LocalizedText maps a language code to text.
type LocalizedText map[string]string

// NewLocalizedText wraps a single string as default-language text.
func NewLocalizedText(s string) LocalizedText {
	return LocalizedText{DefaultLanguage: s}
}

// Get returns the text for lang, falling back to the default language.
func (t LocalizedText) Get(lang string) string {
	if v, ok := t[lang]; ok && v != "" {
		return v
	}
	return t[DefaultLanguage]
}

func (t LocalizedText) Default() string {
	return t[DefaultLanguage]
}

// Value stores the text as a JSON object.
func (t LocalizedText) Value() (driver.Value, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]string(t))
}

// Scan reads a JSON object column. A bare JSON string is accepted as
// default-language text so legacy rows load without special casing.
func (t *LocalizedText) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = LocalizedText{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported localized text type %T", src)
	}

	var m map[string]string
	if err := json.Unmarshal(raw, &m); err == nil {
		*t = LocalizedText(m)
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("decode localized text: %w", err)
	}
	*t = NewLocalizedText(s)
	return nil
}

// CategoryRef is either a resolved registry category or an unresolved
// free-text name. The zero value is unresolved with an empty name.
type CategoryRef struct {
	id   string
	name string
}

func ResolvedCategory(id, name string) CategoryRef {
	return CategoryRef{id: id, name: name}
}

func UnresolvedCategory(name string) CategoryRef {
	return CategoryRef{name: name}
}

func (c CategoryRef) IsResolved() bool {
	return c.id != ""
}

// ID returns the registry id, or "" when unresolved.
func (c CategoryRef) ID() string {
	return c.id
}

// Name returns the category name: the canonical registry name when resolved,
// the raw text otherwise.
func (c CategoryRef) Name() string {
	return c.name
}

func (c CategoryRef) String() string {
	if c.IsResolved() {
		return c.id
	}
	return c.name
}

type categoryRefJSON struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

func (c CategoryRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(categoryRefJSON{ID: c.id, Name: c.name})
}

func (c *CategoryRef) UnmarshalJSON(data []byte) error {
	var v categoryRefJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.id = v.ID
	c.name = v.Name
	return nil
}

type NewsStatus string

const (
	NewsStatusScheduled NewsStatus = "scheduled"
	NewsStatusPublished NewsStatus = "published"
)

const (
	CountryIndia  = "IN"
	CountryGlobal = "GLOBAL"
)

// CountryForRegion maps the region reported by the rewrite model to a country code.
func CountryForRegion(region string) string {
	if strings.EqualFold(strings.TrimSpace(region), "india") {
		return CountryIndia
	}
	return CountryGlobal
}

// NewsArticle is a rewritten article queued for publication.
type NewsArticle struct {
	ID          string        `json:"id"`
	Title       LocalizedText `json:"title"`
	Summary     LocalizedText `json:"summary"`
	Content     LocalizedText `json:"content"`
	ImageURL    string        `json:"imageUrl"`
	Images      []string      `json:"images"`
	Videos      []string      `json:"videos"`
	SourceURL   string        `json:"sourceUrl"`
	Source      string        `json:"source"`
	Category    CategoryRef   `json:"category"`
	Country     string        `json:"country"`
	Status      NewsStatus    `json:"status"`
	PublishedAt time.Time     `json:"publishedAt"`
	IsUserPost  bool          `json:"isUserPost"`
	AIFallback  bool          `json:"aiFallback"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Validate checks the fields the store relies on.
func (n *NewsArticle) Validate() error {
	if strings.TrimSpace(n.SourceURL) == "" {
		return errors.New("source url is required")
	}
	if n.Title.Default() == "" {
		return errors.New("title is required")
	}
	if n.Content.Default() == "" {
		return errors.New("content is required")
	}
	if n.PublishedAt.IsZero() {
		return errors.New("publish time is required")
	}
	return nil
}

// StoredText is the minimal projection used for duplicate checks.
type StoredText struct {
	Title   string
	Content string
}

// Category is an entry of the category registry.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Slugify lowercases name and joins its words with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
		default:
			dash = true
		}
	}
	return b.String()
}

// Rewrite is the structured output of the rewrite step.
type Rewrite struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Region   string `json:"region"`
	Fallback bool   `json:"-"`
}

// WordCount counts whitespace separated words of the rewritten content.
func (r Rewrite) WordCount() int {
	return len(strings.Fields(r.Content))
}

// ScrapedPage is what the scraper extracts from an article page.
type ScrapedPage struct {
	Content   string   `json:"content"`
	Images    []string `json:"images"`
	Videos    []string `json:"videos"`
	SourceURL string   `json:"sourceUrl"`
}

// RewriteRunResult summarizes one AI rewrite run.
type RewriteRunResult struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Error   string `json:"error,omitempty"`
}
