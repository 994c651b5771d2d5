package msgcat

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/park285/Cheese-Janggi/internal/janggi"
)

func TestEmbeddedCoversEveryRejectReason(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	reasons := []janggi.RejectReason{
		janggi.ReasonNotInGame, janggi.ReasonGameOver, janggi.ReasonNotYourTurn,
		janggi.ReasonPieceNotFound, janggi.ReasonPieceDead, janggi.ReasonNotYourPiece,
		janggi.ReasonInvalidMove,
	}
	for _, r := range reasons {
		if !c.Has("reject." + string(r)) {
			t.Fatalf("no text for %s", r)
		}
	}
}

func TestRenderAndMissingField(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("room.created", map[string]string{"Code": "JG-ABC234", "Prefix": "!장기"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "JG-ABC234") || !strings.Contains(got, "!장기 참가") {
		t.Fatalf("rendered %q", got)
	}
	if _, err := c.Render("room.created", map[string]string{}); err == nil {
		t.Fatalf("missing field should fail")
	}
	if _, err := c.Render("nope.nothing", nil); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("err = %v, want ErrMissingKey", err)
	}
	if s := c.Text("nope.nothing", nil, "fallback"); s != "fallback" {
		t.Fatalf("Text fallback = %q", s)
	}
}

func TestOverrides(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.yaml", "reject:\n  NOT_YOUR_TURN: \"기다려요\"\n")
	write("notes.txt", "ignored")

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s, _ := c.Render("reject.NOT_YOUR_TURN", nil); s != "기다려요" {
		t.Fatalf("override not applied: %q", s)
	}
	if !c.Has("reject.INVALID_MOVE") {
		t.Fatalf("override dropped embedded keys")
	}

	write("b.yml", "reject:\n  NOT_YOUR_TURN: \"again\"\n")
	if _, err := New(dir); err == nil {
		t.Fatalf("duplicate override key accepted")
	}
}

func TestBrokenTemplateFailsAtLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.yaml"), []byte("room:\n  created: \"{{.Code\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("unparsable template accepted")
	}
}
