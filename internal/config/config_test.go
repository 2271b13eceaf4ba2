package config

import "testing"

func TestGetEnv(t *testing.T) {
	t.Run("Returns Default When Unset", func(t *testing.T) {
		if got := GetEnv("EXPLORER_TEST_MISSING", "fallback"); got != "fallback" {
			t.Errorf("expected fallback, got %q", got)
		}
	})

	t.Run("Returns Value When Set", func(t *testing.T) {
		t.Setenv("EXPLORER_TEST_SET", "value")
		if got := GetEnv("EXPLORER_TEST_SET", "fallback"); got != "value" {
			t.Errorf("expected value, got %q", got)
		}
	})

	t.Run("Empty Value Falls Back", func(t *testing.T) {
		t.Setenv("EXPLORER_TEST_EMPTY", "")
		if got := GetEnv("EXPLORER_TEST_EMPTY", "fallback"); got != "fallback" {
			t.Errorf("expected fallback for empty value, got %q", got)
		}
	})
}

func TestCatalogConfig(t *testing.T) {
	t.Setenv("TMDB_BASE_URL", "http://catalog.test/3")
	t.Setenv("TMDB_ACCESS_TOKEN", "token-123")

	baseURL, token, approveURL := CatalogConfig()
	if baseURL != "http://catalog.test/3" {
		t.Errorf("unexpected base URL %q", baseURL)
	}
	if token != "token-123" {
		t.Errorf("unexpected token %q", token)
	}
	if approveURL == "" {
		t.Error("expected a default approval URL")
	}
}
