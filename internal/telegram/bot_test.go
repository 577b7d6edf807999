package telegram

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"smart-pantry/internal/config"
	"smart-pantry/internal/database"
	"smart-pantry/internal/server"
	"smart-pantry/internal/shared"
	"smart-pantry/internal/storage"
)

type stubDetector struct{}

func (stubDetector) Detect(ctx context.Context, image []byte) ([]string, shared.TokenUsage, error) {
	return []string{"carrot"}, shared.TokenUsage{}, nil
}

type outbox struct {
	mu   sync.Mutex
	sent []string
}

func (o *outbox) send(chatID int64, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, text)
}

func newTestBot(t *testing.T) (*Bot, *outbox) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "pantry.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := server.New(storage.NewAccountStore(db.SQL), server.NewTokenManager("secret", "pantryd"), server.WithDetector(stubDetector{}))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	cfg := &config.Config{APIURL: ts.URL, ClientType: "telegram", HTTPTimeout: 5 * time.Second}
	out := &outbox{}
	return newBot(cfg, nil, out.send), out
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input    string
		wantCmd  string
		wantArgs string
	}{
		{"/pantry", "pantry", ""},
		{"/add  olive oil ", "add", "olive oil"},
		{"/Login@PantryBot alice secret", "login", "alice secret"},
		{"hello", "", "hello"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, args := parseCommand(tt.input)
			if cmd != tt.wantCmd || args != tt.wantArgs {
				t.Errorf("parseCommand(%q) = (%q, %q), want (%q, %q)", tt.input, cmd, args, tt.wantCmd, tt.wantArgs)
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	b := newBot(&config.Config{}, nil, nil)
	if !b.allowed(42) {
		t.Error("Expected empty allow-list to admit everyone")
	}
	b.cfg.TelegramAllowedUserIDs = []int64{1, 2}
	if b.allowed(42) || !b.allowed(2) {
		t.Error("Expected allow-list to be enforced")
	}
}

func TestCommandFlow(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()
	const chatID = 7

	steps := []struct {
		text string
		want string
	}{
		{"/help", "/signup"},
		{"/health", "online"},
		{"/signup alice", "Usage: /signup"},
		{"/signup alice alice@example.com secret1", "Welcome, alice!"},
		{"/add milk", "1. milk"},
		{"/add Milk", "already in pantry"},
		{"/add olive oil", "2. olive oil"},
		{"/del milk", "1. olive oil"},
		{"/del milk", "Could not delete item"},
		{"/pantry", "Pantry (1 items)"},
		{"/timer 1", "Usage: /timer"},
		{"/recipes", "Pasta with Tomato Sauce"},
		{"/timer 1", "Boil pasta: 10:00"},
		{"/logout", "Logged out"},
		{"/login alice wrong", "Login failed"},
		{"/login alice secret1", "1. olive oil"},
		{"/bogus", "Unknown command"},
	}

	for _, s := range steps {
		got := b.handleCommand(ctx, chatID, s.text)
		if !strings.Contains(got, s.want) {
			t.Fatalf("%s: expected reply to contain %q, got:\n%s", s.text, s.want, got)
		}
	}
}

func TestChatsAreIsolated(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	b.handleCommand(ctx, 1, "/signup bob bob@example.com secret1")
	b.handleCommand(ctx, 1, "/add rice")

	if got := b.handleCommand(ctx, 2, "/pantry"); got != "Your pantry is empty." {
		t.Errorf("Expected second chat to start anonymous and empty, got %q", got)
	}
}

func TestHandlePhoto(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 20)))

	got := b.handlePhoto(ctx, 3, buf.Bytes())
	if !strings.Contains(got, "• carrot") || !strings.Contains(got, "1. carrot") {
		t.Errorf("Unexpected photo reply:\n%s", got)
	}

	got = b.handlePhoto(ctx, 3, []byte("not an image"))
	if !strings.Contains(got, "could not process image") {
		t.Errorf("Expected invalid image reply, got:\n%s", got)
	}
}

func TestMetricsReportWithoutStore(t *testing.T) {
	b := newBot(&config.Config{}, nil, nil)
	out := b.handleCommand(context.Background(), 1, "/metrics")
	if !strings.Contains(out, "Metrics disabled") || !strings.Contains(out, "Goroutines") {
		t.Errorf("Unexpected report:\n%s", out)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"olive oil", "olive oil"},
		{"olive_oil", `olive\_oil`},
		{"*extra* [virgin] `oil`", "\\*extra\\* \\[virgin] \\`oil\\`"},
	}
	for _, tt := range tests {
		if got := escapeMarkdown(tt.in); got != tt.want {
			t.Errorf("escapeMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRepliesEscapeItemNames(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	got := b.handleCommand(ctx, 9, "/add chili_flakes *hot*")
	if !strings.Contains(got, `Added chili\_flakes \*hot\*.`) || !strings.Contains(got, `1. chili\_flakes \*hot\*`) {
		t.Errorf("Expected escaped item name, got:\n%s", got)
	}

	got = b.handleCommand(ctx, 9, "/add Chili_Flakes *HOT*")
	if strings.Contains(got, "Chili_Flakes") {
		t.Errorf("Expected escaped name in the error reply, got:\n%s", got)
	}
}
