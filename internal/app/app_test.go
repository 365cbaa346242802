package app

import (
	"context"
	"path/filepath"
	"testing"

	"NewsletterEngine/internal/config"
	"NewsletterEngine/internal/infrastructure/identity"
	"NewsletterEngine/internal/infrastructure/llm"
)

func TestNewGeneratorSelectsProvider(t *testing.T) {
	gen, err := newGenerator(context.Background(), config.LLMConfig{Provider: "openai"})
	if err != nil {
		t.Fatalf("newGenerator: %v", err)
	}
	if _, ok := gen.(*llm.ChatGPTClient); !ok {
		t.Fatalf("expected chatgpt client, got %T", gen)
	}

	if _, err := newGenerator(context.Background(), config.LLMConfig{Provider: "gemini"}); err == nil {
		t.Fatalf("expected error for gemini without key")
	}
	if _, err := newGenerator(context.Background(), config.LLMConfig{Provider: "llama"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNewIdentitySelectsMode(t *testing.T) {
	id, err := newIdentity(config.AuthConfig{Mode: config.AuthModeJWT, JWTSecret: "s"})
	if err != nil {
		t.Fatalf("newIdentity: %v", err)
	}
	if _, ok := id.(*identity.JWTVerifier); !ok {
		t.Fatalf("expected jwt verifier, got %T", id)
	}

	if _, err := newIdentity(config.AuthConfig{Mode: config.AuthModeRemote}); err == nil {
		t.Fatalf("expected error without supabase url")
	}
	if _, err := newIdentity(config.AuthConfig{Mode: "saml"}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestNewAndGenerateWithNoSubscriptions(t *testing.T) {
	cfg := config.Config{
		Database: config.DatabaseConfig{DSN: "sqlite://" + filepath.Join(t.TempDir(), "app.db")},
		LLM:      config.LLMConfig{Provider: "openai", ChatGPT: config.ChatGPTConfig{Endpoint: "http://127.0.0.1:1", Model: "m", APIKey: "k"}},
		Search:   config.SearchConfig{Provider: "rss", Feed: config.FeedSearchConfig{URLTemplate: "http://127.0.0.1:1/?q={query}"}},
		Auth:     config.AuthConfig{Mode: config.AuthModeJWT, JWTSecret: "secret"},
	}

	application, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer application.Close()

	report, err := application.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !report.Empty() {
		t.Fatalf("expected empty report, got %+v", report)
	}
}
