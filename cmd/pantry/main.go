package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"smart-pantry/internal/apiclient"
	"smart-pantry/internal/app"
	"smart-pantry/internal/config"
	"smart-pantry/internal/cooktimer"
	"smart-pantry/internal/database"
	"smart-pantry/internal/metrics"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	username := flag.String("u", "", "Username to log in with (anonymous when empty)")
	password := flag.String("p", "", "Password")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []apiclient.Option
	var metricsStore *metrics.Store
	if cfg.MetricsDBPath != "" {
		db, err := database.NewDB(cfg.MetricsDBPath)
		if err != nil {
			log.Fatalf("Failed to initialize metrics database: %v", err)
		}
		metricsStore = metrics.NewStore(db.SQL)
		defer metricsStore.Close()
		opts = append(opts, apiclient.WithObserver(metricsStore.RequestObserver()))
	}

	application, err := app.NewApp(cfg, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "health":
		if !application.Pantry.CheckHealth(ctx) {
			fmt.Printf("%s is unreachable\n", application.BaseURL())
			os.Exit(1)
		}
		fmt.Printf("%s is online\n", application.BaseURL())

	case "signup":
		if len(rest) != 3 {
			log.Fatal("Usage: pantry signup <username> <email> <password>")
		}
		sess, err := application.Auth.Signup(ctx, rest[0], rest[1], rest[2])
		if err != nil {
			log.Fatalf("Signup failed: %s", apiclient.UserMessage(err))
		}
		fmt.Printf("Account %s created.\n", sess.Username)

	case "list":
		signIn(ctx, application, *username, *password)
		fmt.Print(app.FormatPantry(application.Store.Items()))

	case "add":
		requireArg(rest, "add <item>")
		signIn(ctx, application, *username, *password)
		if err := application.Pantry.AddItem(ctx, rest[0]); err != nil {
			log.Fatalf("Add failed: %s", apiclient.UserMessage(err))
		}
		fmt.Print(app.FormatPantry(application.Store.Items()))

	case "delete":
		requireArg(rest, "delete <item>")
		signIn(ctx, application, *username, *password)
		if err := application.Pantry.DeleteItem(ctx, rest[0]); err != nil {
			log.Fatalf("Delete failed: %s", apiclient.UserMessage(err))
		}
		fmt.Print(app.FormatPantry(application.Store.Items()))

	case "upload":
		requireArg(rest, "upload <image file>")
		data, err := os.ReadFile(rest[0])
		if err != nil {
			log.Fatalf("Failed to read %s: %v", rest[0], err)
		}
		signIn(ctx, application, *username, *password)
		detected, err := application.Ingest.UploadPhoto(ctx, data)
		if err != nil {
			log.Fatalf("Upload failed: %s", apiclient.UserMessage(err))
		}
		fmt.Printf("Detected %d items.\n", len(detected))
		fmt.Print(app.FormatPantry(application.Store.Items()))

	case "recipes":
		signIn(ctx, application, *username, *password)
		recipes, err := application.SuggestForPantry(ctx)
		if err != nil {
			log.Fatalf("Recipe suggestion failed: %s", apiclient.UserMessage(err))
		}
		for _, r := range recipes {
			fmt.Println(app.FormatRecipe(r))
		}

	case "timer":
		requireArg(rest, "timer <minutes> [label]")
		minutes, err := strconv.Atoi(rest[0])
		if err != nil || minutes < 0 {
			log.Fatalf("Invalid minutes: %q", rest[0])
		}
		label := "Timer"
		if len(rest) > 1 {
			label = rest[1]
		}
		runTimer(ctx, cooktimer.New(label, minutes*60))

	case "metrics-cleanup":
		if metricsStore == nil {
			log.Fatal("METRICS_DB_PATH is not set")
		}
		days := 30
		if len(rest) > 0 {
			if days, err = strconv.Atoi(rest[0]); err != nil {
				log.Fatalf("Invalid days: %q", rest[0])
			}
		}
		affected, err := metricsStore.Cleanup(days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)

	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func signIn(ctx context.Context, a *app.App, username, password string) {
	if err := a.SignIn(ctx, username, password); err != nil {
		log.Fatalf("Sign in failed: %s", apiclient.UserMessage(err))
	}
}

func requireArg(args []string, usage string) {
	if len(args) < 1 {
		log.Fatalf("Usage: pantry %s", usage)
	}
}

func runTimer(ctx context.Context, t *cooktimer.Timer) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	t.Start()
	fmt.Printf("\r%s %s", t.Label(), t.Format())
	for t.Status() == cooktimer.Running {
		select {
		case <-ctx.Done():
			t.Stop()
			fmt.Println("\nStopped.")
			return
		case <-ticker.C:
			t.Tick()
			fmt.Printf("\r%s %s", t.Label(), t.Format())
		}
	}
	fmt.Printf("\n%s is done!\n", t.Label())
}

func printUsage() {
	fmt.Println("Usage: pantry [-u username -p password] <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  health                              Check that the pantry service is reachable")
	fmt.Println("  signup <username> <email> <pass>    Create an account")
	fmt.Println("  list                                Show the pantry")
	fmt.Println("  add <item>                          Add an item")
	fmt.Println("  delete <item>                       Remove an item")
	fmt.Println("  upload <image file>                 Detect food in a photo and add it")
	fmt.Println("  recipes                             Suggest recipes for the pantry")
	fmt.Println("  timer <minutes> [label]             Run a cook timer")
	fmt.Println("  metrics-cleanup [days]              Remove old request metrics (default 30 days)")
}
