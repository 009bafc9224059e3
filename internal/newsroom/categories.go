package newsroom

import (
	"context"
	"strings"

	"github.com/johnrirwin/newsdesk/internal/logging"
	"github.com/johnrirwin/newsdesk/internal/models"
)

// DefaultCategory is used when the rewrite did not name a category.
const DefaultCategory = "General"

// categorySynonyms maps alternative names the model tends to return onto
// registry categories.
var categorySynonyms = []struct {
	canonical string
	names     []string
}{
	{"World", []string{"international", "global", "world"}},
	{"Politics", []string{"government", "politics"}},
	{"Business", []string{"economy", "finance", "business"}},
	{"Technology", []string{"tech", "science", "technology"}},
	{"Entertainment", []string{"movies", "celebrity", "entertainment"}},
	{"General", []string{"other", "india", "general"}},
}

const unsplashParams = "?w=800&q=80"

var fallbackImages = []struct {
	hints []string
	url   string
}{
	{[]string{"tech"}, "https://images.unsplash.com/photo-1518770660439-4636190af475" + unsplashParams},
	{[]string{"polit"}, "https://images.unsplash.com/photo-1529107386315-e1a2ed48a620" + unsplashParams},
	{[]string{"sport"}, "https://images.unsplash.com/photo-1461896836934-ffe607ba8211" + unsplashParams},
	{[]string{"busin"}, "https://images.unsplash.com/photo-1460925895917-afdab827c52f" + unsplashParams},
	{[]string{"world"}, "https://images.unsplash.com/photo-1521295121783-8a321d551ad2" + unsplashParams},
	{[]string{"health"}, "https://images.unsplash.com/photo-1505751172569-e701e62f5500" + unsplashParams},
	{[]string{"entert", "movie"}, "https://images.unsplash.com/photo-1470225620780-dba8ba36b745" + unsplashParams},
}

// GeneralImage is the image used when no category hint matches.
const GeneralImage = "https://images.unsplash.com/photo-1504711434969-e33886168f5c" + unsplashParams

// FallbackImage picks a stock image for a category name.
func FallbackImage(category string) string {
	c := strings.ToLower(category)
	for _, fi := range fallbackImages {
		for _, hint := range fi.hints {
			if strings.Contains(c, hint) {
				return fi.url
			}
		}
	}
	return GeneralImage
}

// CategoryResolver maps a free-text category onto the registry.
type CategoryResolver struct {
	store  CategoryStore
	logger *logging.Logger
}

func NewCategoryResolver(store CategoryStore, logger *logging.Logger) *CategoryResolver {
	return &CategoryResolver{store: store, logger: logger}
}

// Resolve looks name up by name or slug, then through the synonym table.
// Anything that cannot be resolved, including lookup errors, yields an
// unresolved reference carrying the original name.
func (r *CategoryResolver) Resolve(ctx context.Context, name string) models.CategoryRef {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultCategory
	}

	if cat, ok := r.find(ctx, name); ok {
		return models.ResolvedCategory(cat.ID, cat.Name)
	}

	lower := strings.ToLower(name)
	for _, syn := range categorySynonyms {
		for _, candidate := range syn.names {
			if candidate != lower {
				continue
			}
			if cat, ok := r.find(ctx, syn.canonical); ok {
				return models.ResolvedCategory(cat.ID, cat.Name)
			}
			return models.UnresolvedCategory(name)
		}
	}

	return models.UnresolvedCategory(name)
}

func (r *CategoryResolver) find(ctx context.Context, name string) (*models.Category, bool) {
	if r.store == nil {
		return nil, false
	}
	cat, err := r.store.FindByNameOrSlug(ctx, name)
	if err != nil {
		r.logger.Warn("Category lookup failed", logging.WithFields(map[string]interface{}{
			"category": name,
			"error":    err.Error(),
		}))
		return nil, false
	}
	return cat, cat != nil
}
