package embeddings

import (
	"context"
	"testing"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ProviderConfig
		wantError bool
	}{
		{
			name: "tei provider with valid config",
			cfg: ProviderConfig{
				Provider: "tei",
				BaseURL:  "http://localhost:8080",
				Model:    "text-embedding-3-small",
			},
			wantError: false,
		},
		{
			name: "tei provider without base URL",
			cfg: ProviderConfig{
				Provider: "tei",
				Model:    "text-embedding-3-small",
			},
			wantError: true,
		},
		{
			name: "static provider",
			cfg: ProviderConfig{
				Provider: "static",
				Model:    "text-embedding-3-small",
			},
			wantError: false,
		},
		{
			name: "unknown provider",
			cfg: ProviderConfig{
				Provider: "unknown",
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.cfg)
			if tt.wantError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider() error = %v", err)
			}
			if provider != nil {
				provider.Close()
			}
		})
	}
}

func TestNewProvider_DefaultsToTEI(t *testing.T) {
	cfg := ProviderConfig{
		Provider: "",
		BaseURL:  "http://localhost:8080",
		Model:    "text-embedding-3-small",
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Close()

	if provider.Dimension() != 1536 {
		t.Errorf("Dimension() = %d, want 1536", provider.Dimension())
	}
}

func TestTEIProvider_Dimension(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		wantDim int
	}{
		{"small model", "text-embedding-3-small", 1536},
		{"large model", "text-embedding-3-large", 3072},
		{"base model", "some-base-model", 768},
		{"mini model", "all-MiniLM-L6-v2", 384},
		{"unknown defaults to 1536", "unknown-model", 1536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ProviderConfig{
				Provider: "tei",
				BaseURL:  "http://localhost:8080",
				Model:    tt.model,
			}

			provider, err := NewProvider(cfg)
			if err != nil {
				t.Fatalf("NewProvider() error = %v", err)
			}
			defer provider.Close()

			if provider.Dimension() != tt.wantDim {
				t.Errorf("Dimension() = %d, want %d", provider.Dimension(), tt.wantDim)
			}
		})
	}
}

func TestStaticProvider_Deterministic(t *testing.T) {
	provider := NewStaticProvider(1536)
	defer provider.Close()

	ctx := context.Background()

	v1, err := provider.EmbedQuery(ctx, "how much is an E33G visa")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	v2, err := provider.EmbedQuery(ctx, "how much is an E33G visa")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}

	if len(v1) != 1536 || len(v2) != 1536 {
		t.Fatalf("expected 1536-dim vectors, got %d and %d", len(v1), len(v2))
	}

	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("expected deterministic vectors, differ at index %d: %f != %f", i, v1[i], v2[i])
		}
	}

	v3, err := provider.EmbedQuery(ctx, "pricing for a KITAS sponsorship")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(v3) != len(v1) {
		t.Fatalf("expected same dimension for different text, got %d", len(v3))
	}

	same := true
	for i := range v1 {
		if v1[i] != v3[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected different texts to produce different vectors")
	}
}

func TestStaticProvider_EmbedDocuments(t *testing.T) {
	provider := NewStaticProvider(0) // defaults to DefaultDimension
	defer provider.Close()

	vectors, err := provider.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for _, v := range vectors {
		if len(v) != DefaultDimension {
			t.Fatalf("expected %d-dim vector, got %d", DefaultDimension, len(v))
		}
	}
}
