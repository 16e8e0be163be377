package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/doclexa/doclexa/internal/app"
	"github.com/doclexa/doclexa/internal/config"
	"github.com/doclexa/doclexa/internal/export"
	"github.com/doclexa/doclexa/internal/i18n"
	"github.com/doclexa/doclexa/internal/rates"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	version    = "dev"
)

func main() {
	// Handle subcommands before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			// server mode is the default; strip the subcommand so its
			// flags still parse
			os.Args = append(os.Args[:1], os.Args[2:]...)
		case "login":
			handleLogin(os.Args[2:])
			return
		case "logout":
			handleLogout()
			return
		case "signup":
			handleSignup(os.Args[2:])
			return
		case "analyze":
			handleAnalyze(os.Args[2:])
			return
		case "capture":
			handleCapture()
			return
		case "ask":
			handleAsk(os.Args[2:])
			return
		case "history":
			handleHistory(os.Args[2:])
			return
		case "lang":
			handleLang(os.Args[2:])
			return
		case "currency":
			handleCurrency(os.Args[2:])
			return
		case "export":
			handleExport(os.Args[2:])
			return
		case "pricing":
			handlePricing()
			return
		case "repl":
			handleRepl()
			return
		case "status":
			handleStatus()
			return
		case "help", "--help", "-h":
			printHelp()
			return
		case "version", "--version", "-v":
			fmt.Printf("DocLexa version %s\n", version)
			return
		}
	}

	flag.Parse()

	var logger *zap.Logger
	var err error
	if *debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting DocLexa", zap.String("version", version))

	a := mustApp(logger)
	a.RunServer()
}

// mustApp builds an App or exits.
func mustApp(logger *zap.Logger) *app.App {
	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	a, err := app.New(cfg, logger, version)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return a
}

func quietApp() *app.App {
	logger := zap.NewNop()
	cfg, err := config.Load("", "")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	a, err := app.New(cfg, logger, version)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return a
}

func readPassword(prompt string) string {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		os.Exit(1)
	}
	return string(password)
}

func handleLogin(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: doclexa login <email>")
		os.Exit(1)
	}
	email := args[0]
	password := readPassword("Password: ")

	a := quietApp()
	defer a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := a.Backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Signed in as %s\n", session.User.Email)
}

func handleLogout() {
	a := quietApp()
	defer a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.Backend.SignOut(ctx); err != nil {
		fmt.Printf("Logout failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Signed out")
}

func handleSignup(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: doclexa signup <email>")
		os.Exit(1)
	}
	email := args[0]
	password := readPassword("Password: ")
	confirm := readPassword("Confirm password: ")
	if password != confirm {
		fmt.Println("Passwords do not match")
		os.Exit(1)
	}

	a := quietApp()
	defer a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := a.Backend.SignUp(ctx, email, password)
	if err != nil {
		fmt.Printf("Signup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Account created for %s. Check your inbox to confirm.\n", user.Email)
}

func handleAnalyze(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: doclexa analyze <file> [file...]")
		os.Exit(1)
	}

	a := quietApp()
	defer a.Shutdown()

	for _, path := range args {
		doc, err := a.Picker.Pick(path)
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", path, err)
			continue
		}
		a.Session.AddDocument(doc)
		fmt.Printf("Added %s (%s)\n", doc.Name, doc.Kind)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	fmt.Println("\nAnalyzing...")
	result, err := a.Session.Start(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(result.Answer)
}

func handleCapture() {
	a := quietApp()
	defer a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("Capturing...")
	doc, err := a.CaptureDocument(ctx)
	if err != nil {
		fmt.Printf("Capture failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Captured %s, added to the document pool\n", doc.Path)
}

func handleAsk(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: doclexa ask <question>")
		os.Exit(1)
	}
	question := strings.Join(args, " ")

	a := quietApp()
	defer a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	result, err := a.Session.AskFollowUp(ctx, question)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result.Answer)
}

func handleHistory(args []string) {
	limit := 10
	if len(args) > 0 {
		fmt.Sscanf(args[0], "%d", &limit)
	}

	a := quietApp()
	defer a.Shutdown()
	historyIn(a, limit)
}

func historyIn(a *app.App, limit int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := a.Session.PreviousAnalyses(ctx, limit)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(results) == 0 {
		fmt.Println("No previous analyses")
		return
	}

	for _, r := range results {
		fmt.Printf("• %s", r.Question)
		if !r.CreatedAt.IsZero() {
			fmt.Printf("  (%s)", r.CreatedAt.Format("2006-01-02"))
		}
		fmt.Println()
		answer := r.Answer
		if len(answer) > 200 {
			answer = answer[:200] + "..."
		}
		fmt.Printf("  %s\n\n", answer)
	}
}

func handleLang(args []string) {
	a := quietApp()
	defer a.Shutdown()
	langIn(a, args)
}

func langIn(a *app.App, args []string) {
	if len(args) == 0 {
		fmt.Printf("Current language: %s\n", a.Languages.Language())
		fmt.Printf("Supported: %s\n", strings.Join(i18n.SupportedLanguages, ", "))
		return
	}

	code := args[0]
	if !i18n.IsSupported(code) {
		fmt.Printf("Unsupported language: %s\n", code)
		fmt.Printf("Supported: %s\n", strings.Join(i18n.SupportedLanguages, ", "))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.Languages.ChangeLanguage(ctx, code)
	fmt.Printf("Language set to %s\n", a.Languages.Language())
}

func handleCurrency(args []string) {
	a := quietApp()
	defer a.Shutdown()
	currencyIn(a, args)
}

func currencyIn(a *app.App, args []string) {
	if len(args) == 0 {
		selected := a.Currency.Selected()
		fmt.Printf("Current currency: %s\n\n", selected)
		for _, c := range rates.Catalog {
			marker := " "
			if c.Code == selected {
				marker = "*"
			}
			fmt.Printf("%s %s %s (%s)  e.g. %s\n",
				marker, c.Flag, c.Code, c.Name, a.RateManager.FormatPrice(19.99, c.Code))
		}
		return
	}

	code := strings.ToUpper(args[0])
	if !rates.InCatalog(code) {
		fmt.Printf("Unknown currency: %s\n", code)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.Currency.Select(ctx, code)
	fmt.Printf("Currency set to %s\n", a.Currency.Selected())
}

func handleExport(args []string) {
	kind := "pdf"
	if len(args) > 0 {
		kind = args[0]
	}

	a := quietApp()
	defer a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	results, err := a.Session.PreviousAnalyses(ctx, 1)
	if err != nil || len(results) == 0 {
		fmt.Println("No analysis to export")
		os.Exit(1)
	}
	latest := results[0]

	switch kind {
	case "pdf":
		html, err := export.RenderHTML(latest)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		path, err := a.Printer.PrintToPDF(ctx, html)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("PDF written to %s\n", path)
		if err := export.Share(path); err != nil {
			fmt.Printf("Could not open PDF viewer: %v\n", err)
		}
	case "mail":
		link := export.MailtoURL(latest)
		if err := export.Open(link); err != nil {
			fmt.Printf("Could not open email client: %v\n", err)
			fmt.Println(link)
		}
	default:
		fmt.Println("Usage: doclexa export [pdf|mail]")
		os.Exit(1)
	}
}

func handlePricing() {
	cfg, err := config.Load("", "")
	url := export.PricingURL
	if err == nil && cfg.Export.PricingURL != "" {
		url = cfg.Export.PricingURL
	}
	if err := export.Open(url); err != nil {
		fmt.Printf("Could not open the pricing page: %v\n", err)
		fmt.Println(url)
	}
}

// handleStatus shows current configuration and sign-in state
func handleStatus() {
	a := quietApp()
	defer a.Shutdown()

	status := map[string]any{
		"version":  version,
		"language": a.Languages.Language(),
		"currency": a.Currency.Selected(),
		"backend":  a.Config.Backend.URL,
		"engine":   a.Config.Engine.Provider,
		"data_dir": a.Config.Storage.DataDir,
	}
	if session := a.Backend.Session(); session != nil {
		status["signed_in_as"] = session.User.Email
	} else {
		status["signed_in_as"] = "(signed out)"
	}

	out, err := yaml.Marshal(status)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(out))
}

func handleRepl() {
	a := quietApp()
	defer a.Shutdown()

	fmt.Println("📄 DocLexa - Interactive Mode")
	fmt.Println("Type 'help' for commands, 'exit' to quit")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Print("👤 You: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("Error reading input: %v\n", err)
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		fields := strings.Fields(input)
		switch strings.ToLower(fields[0]) {
		case "exit", "quit", "q":
			fmt.Println("👋 Goodbye!")
			return
		case "help", "h":
			fmt.Println("Commands: add <file>, capture, analyze, save, history, lang <code>, currency <code>, exit")
			fmt.Println("Anything else is sent as a follow-up question.")
			continue
		case "add":
			if len(fields) < 2 {
				fmt.Println("Usage: add <file>")
				continue
			}
			doc, err := a.Picker.Pick(fields[1])
			if err != nil {
				fmt.Printf("❌ %v\n", err)
				continue
			}
			a.Session.AddDocument(doc)
			fmt.Printf("✅ Added %s (%s)\n", doc.Name, doc.Kind)
			continue
		case "capture":
			doc, err := a.CaptureDocument(ctx)
			if err != nil {
				fmt.Printf("❌ %v\n", err)
				continue
			}
			fmt.Printf("📷 Captured %s\n", doc.Name)
			continue
		case "analyze":
			fmt.Println("\n🔍 Analyzing...")
			result, err := a.Session.Start(ctx)
			if err != nil {
				fmt.Printf("❌ %v\n", err)
				continue
			}
			fmt.Println()
			fmt.Println(result.Answer)
			continue
		case "save":
			if err := a.Session.SaveAndStartNew(ctx); err != nil {
				fmt.Printf("❌ %v\n", err)
				continue
			}
			fmt.Println("💾 Saved. New session started.")
			continue
		case "history":
			historyIn(a, 10)
			continue
		case "lang":
			langIn(a, fields[1:])
			continue
		case "currency":
			currencyIn(a, fields[1:])
			continue
		}

		result, err := a.Session.AskFollowUp(ctx, input)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			continue
		}
		fmt.Printf("\n📄 DocLexa: %s\n\n", result.Answer)
	}
}

func printHelp() {
	fmt.Println(`DocLexa - document analysis

Usage:
  doclexa                      Run the local API server
  doclexa login <email>        Sign in
  doclexa logout               Sign out
  doclexa signup <email>       Create an account
  doclexa analyze <file>...    Analyze documents (pdf or images)
  doclexa capture              Take a camera photo into the document pool
  doclexa ask <question>       Ask a follow-up question
  doclexa history [n]          Show previous analyses
  doclexa lang [code]          Show or set the language
  doclexa currency [code]      Show or set the display currency
  doclexa export [pdf|mail]    Export the latest analysis
  doclexa pricing              Open the pricing page
  doclexa repl                 Interactive mode
  doclexa status               Show configuration and sign-in state
  doclexa version              Show version

Flags (server mode):
  -config <path>               Config file
  -data <path>                 Data directory
  -debug                       Debug logging`)
}
