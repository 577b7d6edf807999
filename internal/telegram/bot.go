package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"smart-pantry/internal/apiclient"
	"smart-pantry/internal/app"
	"smart-pantry/internal/config"
	"smart-pantry/internal/cooktimer"
	"smart-pantry/internal/metrics"
	"smart-pantry/internal/recipe"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `🥫 *Smart Pantry*

/signup <username> <email> <password>
/login <username> <password>
/logout
/pantry - list items
/add <item>
/del <item>
/recipes - suggest recipes
/timer <recipe> - start the cook timers of a suggested recipe
/health - check the server
/metrics - usage report

Send a photo to add the food in it.`

// chat is the per-chat session: its own App plus the last suggested recipes.
type chat struct {
	app     *app.App
	recipes []recipe.Recipe
	timers  []context.CancelFunc
}

// Bot wraps the Telegram API and one pantry App per chat.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          *config.Config
	metricsStore *metrics.Store
	opts         []apiclient.Option
	httpClient   *http.Client
	dataDir      string

	// send delivers a Markdown message to a chat.
	send func(chatID int64, text string)

	mu    sync.Mutex
	chats map[int64]*chat
}

// NewBot initializes the Telegram Bot and sets the Webhook. metricsStore may
// be nil, in which case /metrics reports only system health.
func NewBot(cfg *config.Config, metricsStore *metrics.Store) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	webhookURL := cfg.TelegramWebhookURL
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", webhookURL, err)
	}
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	b := newBot(cfg, metricsStore, nil)
	b.api = bot
	b.send = func(chatID int64, text string) {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = "Markdown"
		if _, err := bot.Send(msg); err != nil {
			log.Printf("Warning: failed to send message to chat %d: %v", chatID, err)
		}
	}
	return b, nil
}

func newBot(cfg *config.Config, metricsStore *metrics.Store, send func(int64, string)) *Bot {
	b := &Bot{
		cfg:          cfg,
		metricsStore: metricsStore,
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		dataDir:      "data",
		send:         send,
		chats:        make(map[int64]*chat),
	}
	if cfg.MetricsDBPath != "" {
		b.dataDir = filepath.Dir(cfg.MetricsDBPath)
	}
	if metricsStore != nil {
		b.opts = append(b.opts, apiclient.WithObserver(metricsStore.RequestObserver()))
	}
	return b
}

// RegisterHandlers registers the webhook handler with mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	if !b.allowed(msg.From.ID) {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", msg.From.ID, msg.From.UserName)
		return
	}

	go b.processMessage(msg)
}

// allowed reports whether userID may use the bot. An empty allow-list admits
// everyone.
func (b *Bot) allowed(userID int64) bool {
	if len(b.cfg.TelegramAllowedUserIDs) == 0 {
		return true
	}
	return slices.Contains(b.cfg.TelegramAllowedUserIDs, userID)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if len(msg.Photo) > 0 {
		// Telegram lists sizes smallest first.
		largest := msg.Photo[len(msg.Photo)-1]
		b.send(msg.Chat.ID, "📷 *Analyzing photo...*")
		data, err := b.downloadFile(ctx, largest.FileID)
		if err != nil {
			log.Printf("Error downloading photo: %v", err)
			b.send(msg.Chat.ID, "❌ Could not download the photo.")
			return
		}
		b.send(msg.Chat.ID, b.handlePhoto(ctx, msg.Chat.ID, data))
		return
	}

	b.send(msg.Chat.ID, b.handleCommand(ctx, msg.Chat.ID, msg.Text))
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// session returns the chat's session, creating an anonymous one on first use.
func (b *Bot) session(chatID int64) (*chat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.chats[chatID]; ok {
		return c, nil
	}
	a, err := app.NewApp(b.cfg, b.opts...)
	if err != nil {
		return nil, err
	}
	c := &chat{app: a}
	b.chats[chatID] = c
	return c, nil
}

// parseCommand splits "/cmd@bot arg1 arg2" into "cmd" and the raw argument
// string.
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, args, _ := strings.Cut(text[1:], " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, text string) string {
	cmd, args := parseCommand(text)
	if cmd == "" || cmd == "start" || cmd == "help" {
		return helpText
	}
	if cmd == "metrics" {
		return b.metricsReport()
	}

	c, err := b.session(chatID)
	if err != nil {
		log.Printf("Error creating session for chat %d: %v", chatID, err)
		return "❌ Could not reach the pantry service."
	}
	a := c.app

	switch cmd {
	case "signup":
		f := strings.Fields(args)
		if len(f) != 3 {
			return "Usage: /signup <username> <email> <password>"
		}
		sess, err := a.Auth.Signup(ctx, f[0], f[1], f[2])
		if err != nil {
			return failure("Signup failed", err)
		}
		return fmt.Sprintf("✅ Welcome, %s! Your pantry is empty.", escapeMarkdown(sess.Username))

	case "login":
		f := strings.Fields(args)
		if len(f) != 2 {
			return "Usage: /login <username> <password>"
		}
		sess, err := a.Auth.Login(ctx, f[0], f[1])
		if err != nil {
			return failure("Login failed", err)
		}
		return fmt.Sprintf("✅ Logged in as %s.\n\n%s", escapeMarkdown(sess.Username), formatPantry(a.Store.Items()))

	case "logout":
		a.Auth.Logout()
		b.resetChat(c)
		return "👋 Logged out."

	case "pantry":
		items, err := a.Pantry.LoadItems(ctx)
		if err != nil {
			return failure("Could not load pantry", err)
		}
		return formatPantry(items)

	case "add":
		if args == "" {
			return "Usage: /add <item>"
		}
		if err := a.Pantry.AddItem(ctx, args); err != nil {
			return failure("Could not add item", err)
		}
		return fmt.Sprintf("✅ Added %s.\n\n%s", escapeMarkdown(args), formatPantry(a.Store.Items()))

	case "del", "delete":
		if args == "" {
			return "Usage: /del <item>"
		}
		if err := a.Pantry.DeleteItem(ctx, args); err != nil {
			return failure("Could not delete item", err)
		}
		return fmt.Sprintf("🗑 Removed %s.\n\n%s", escapeMarkdown(args), formatPantry(a.Store.Items()))

	case "recipes":
		recipes, err := a.SuggestForPantry(ctx)
		if err != nil {
			return failure("Could not get recipes", err)
		}
		b.mu.Lock()
		c.recipes = recipes
		b.mu.Unlock()
		return formatRecipes(recipes)

	case "timer":
		return b.startTimers(chatID, c, args)

	case "health":
		if a.Pantry.CheckHealth(ctx) {
			return "🟢 Pantry service is online."
		}
		return "🔴 Pantry service is unreachable."
	}

	return "Unknown command. Send /help for the list."
}

func (b *Bot) handlePhoto(ctx context.Context, chatID int64, data []byte) string {
	c, err := b.session(chatID)
	if err != nil {
		return "❌ Could not reach the pantry service."
	}
	detected, err := c.app.Ingest.UploadPhoto(ctx, data)
	if err != nil {
		return failure("Could not analyze photo", err)
	}
	if len(detected) == 0 {
		return "🤷 No food found in the photo."
	}
	var sb strings.Builder
	sb.WriteString("✅ *Detected:*\n")
	for _, item := range detected {
		fmt.Fprintf(&sb, "• %s\n", escapeMarkdown(item))
	}
	sb.WriteString("\n")
	sb.WriteString(formatPantry(c.app.Store.Items()))
	return sb.String()
}

// startTimers runs every timed step of the chosen recipe and reports each
// completion to the chat.
func (b *Bot) startTimers(chatID int64, c *chat, args string) string {
	n, err := strconv.Atoi(args)
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil || n < 1 || n > len(c.recipes) {
		return fmt.Sprintf("Usage: /timer <1-%d> (run /recipes first)", len(c.recipes))
	}

	r := c.recipes[n-1]
	timers := app.Timers(r, cooktimer.WithOnComplete(func(t *cooktimer.Timer) {
		b.send(chatID, fmt.Sprintf("⏰ %s is done!", escapeMarkdown(t.Label())))
	}))
	if len(timers) == 0 {
		return fmt.Sprintf("%s has no timed steps.", escapeMarkdown(r.Name))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "⏱ Timers for %s\n", escapeMarkdown(r.Name))
	for _, t := range timers {
		ctx, cancel := context.WithCancel(context.Background())
		c.timers = append(c.timers, cancel)
		t.Start()
		go t.RunWithClock(ctx)
		fmt.Fprintf(&sb, "• %s: %s\n", escapeMarkdown(t.Label()), t.Format())
	}
	return sb.String()
}

func (b *Bot) resetChat(c *chat) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cancel := range c.timers {
		cancel()
	}
	c.timers = nil
	c.recipes = nil
}

func (b *Bot) metricsReport() string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Requests*\n")
	if b.metricsStore == nil {
		sb.WriteString("_Metrics disabled_\n")
	} else if usage, err := b.metricsStore.GetDailyUsage(7); err != nil {
		log.Printf("Error fetching metrics: %v", err)
		sb.WriteString("❌ Error fetching metrics.\n")
	} else {
		sb.WriteString(app.FormatUsage(usage))
	}

	health := metrics.GetSysHealth(b.dataDir)
	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Uptime: %s\n", health.Uptime)
	fmt.Fprintf(&sb, "• Disk Data: %s (%d files)\n", health.DataDiskSize, health.DataFiles)
	return sb.String()
}

func formatRecipes(recipes []recipe.Recipe) string {
	if len(recipes) == 0 {
		return "No recipes found."
	}
	var sb strings.Builder
	for i, r := range recipes {
		fmt.Fprintf(&sb, "*%d.* %s\n", i+1, escapeMarkdown(app.FormatRecipe(r)))
	}
	sb.WriteString("Start cooking with /timer <number>.")
	return sb.String()
}

func failure(prefix string, err error) string {
	log.Printf("%s: %v", prefix, err)
	return fmt.Sprintf("❌ *%s:* %s", prefix, escapeMarkdown(apiclient.UserMessage(err)))
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown makes text safe to place outside entities in a legacy
// Markdown message. Escaped text must not be wrapped in *bold* or _italic_.
func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

func formatPantry(items []string) string {
	return escapeMarkdown(app.FormatPantry(items))
}
