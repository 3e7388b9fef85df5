package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/invitation"
)

func TestLoad_Embedded(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Len() == 0 {
		t.Fatal("expected embedded templates")
	}

	w := c.Weights()
	if w.Category != 0.4 || w.Palette != 0.35 || w.Typography != 0.25 || w.MinScore != 0.3 {
		t.Errorf("unexpected weights %+v", w)
	}

	classic, err := c.Get("classic-elegance")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if classic.Required[0] != invitation.BlockHero {
		t.Errorf("expected hero first, got %v", classic.Required)
	}
	if classic.Style.Tokens == nil || classic.Style.Tokens.Palette["accent"] != "#C9A227" {
		t.Errorf("expected token preset, got %+v", classic.Style.Tokens)
	}

	// catalog order is file order
	if c.All()[0].ID != "classic-elegance" {
		t.Errorf("unexpected first template %s", c.All()[0].ID)
	}
}

func TestGet_Unknown(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := c.Get("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "defaults weights",
			yaml: "templates:\n  - id: a\n    required: [hero]\n",
		},
		{
			name:    "unknown block type",
			yaml:    "templates:\n  - id: a\n    required: [guestbook]\n",
			wantErr: true,
		},
		{
			name:    "duplicate id",
			yaml:    "templates:\n  - id: a\n  - id: a\n",
			wantErr: true,
		},
		{
			name:    "missing id",
			yaml:    "templates:\n  - name: nameless\n",
			wantErr: true,
		},
		{
			name:    "negative weight",
			yaml:    "weights:\n  palette: -1\ntemplates: []\n",
			wantErr: true,
		},
		{
			name:    "not yaml",
			yaml:    "templates: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if c.Weights().MinScore != 0.3 {
				t.Errorf("expected default weights, got %+v", c.Weights())
			}
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("templates:\n  - id: only\n    required: [hero, rsvp]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 template, got %d", c.Len())
	}
}
