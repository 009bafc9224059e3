package dedup

import (
	"reflect"
	"testing"

	"github.com/johnrirwin/newsdesk/internal/models"
)

func article(url, title string) models.RawArticle {
	return models.RawArticle{URL: url, Title: title, Source: "test"}
}

func urls(articles []models.RawArticle) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.URL)
	}
	return out
}

func TestBatch_URLKeepFirst(t *testing.T) {
	input := []models.RawArticle{
		{URL: "https://a.example/1", Title: "First story", Source: "one"},
		{URL: "https://a.example/1", Title: "Completely different", Source: "two"},
		{URL: "https://a.example/2", Title: "Second story entirely", Source: "one"},
	}

	got := Batch(input)
	if len(got) != 2 {
		t.Fatalf("Batch() len = %d, want 2", len(got))
	}
	if got[0].Source != "one" || got[0].Title != "First story" {
		t.Errorf("Batch() kept %+v, want the first occurrence", got[0])
	}
}

func TestBatch_NearDuplicateTitles(t *testing.T) {
	input := []models.RawArticle{
		article("https://a/1", "Breaking: PM announces new policy"),
		article("https://b/1", "PM announces new policy today"),
		article("https://c/1", "Football club signs striker"),
	}

	got := Batch(input)
	want := []string{"https://a/1", "https://c/1"}
	if !reflect.DeepEqual(urls(got), want) {
		t.Errorf("Batch() urls = %v, want %v", urls(got), want)
	}
}

func TestBatch_DropsMissingURLOrTitle(t *testing.T) {
	input := []models.RawArticle{
		article("", "No url"),
		article("https://a/1", "   "),
		article("https://a/2", "Kept"),
	}

	got := Batch(input)
	if !reflect.DeepEqual(urls(got), []string{"https://a/2"}) {
		t.Errorf("Batch() urls = %v, want [https://a/2]", urls(got))
	}
}

func TestBatch_Idempotent(t *testing.T) {
	input := []models.RawArticle{
		article("https://a/1", "Storm hits coast"),
		article("https://a/2", "Storm hits coast overnight"),
		article("https://a/1", "Duplicate url"),
		article("https://a/3", "Markets rally as rates fall"),
		article("https://a/4", "Rates fall and markets rally"),
		article("https://a/5", "New vaccine approved"),
	}

	once := Batch(input)
	twice := Batch(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Batch(Batch(x)) = %v, want %v", urls(twice), urls(once))
	}
}

func TestBatch_Empty(t *testing.T) {
	if got := Batch(nil); len(got) != 0 {
		t.Errorf("Batch(nil) len = %d, want 0", len(got))
	}
}
