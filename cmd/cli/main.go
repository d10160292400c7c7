package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ai-learning-assistant-be/internal/config"
	"ai-learning-assistant-be/internal/pkg/logger"
	"ai-learning-assistant-be/pkg/assistant/conversation"
	"ai-learning-assistant-be/pkg/assistant/document"
	"ai-learning-assistant-be/pkg/assistant/query"
	"ai-learning-assistant-be/pkg/assistant/session"
	"ai-learning-assistant-be/pkg/llm/factory"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

var (
	userColor  = color.New(color.FgCyan, color.Bold)
	modelColor = color.New(color.FgGreen)
	errorColor = color.New(color.FgRed, color.Bold)
	hintColor  = color.New(color.FgYellow)
)

func main() {
	filePath := flag.String("file", "", "path to a .txt or .md document (default: paste on stdin)")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		errorColor.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	baseURL, apiKey := cfg.ProviderEndpoint()
	provider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  baseURL,
		APIKey:   apiKey,
	})
	if err != nil {
		errorColor.Fprintf(os.Stderr, "Failed to initialize LLM provider: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the conversation; logs go to files only.
	sysLogger := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	defer sysLogger.Sync()
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)
	defer llmLogger.Sync()

	ctrl := session.NewController(
		uuid.NewString(),
		query.NewService(provider, sysLogger, llmLogger),
		sysLogger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 64*1024), document.MaxUploadBytes)

	color.Cyan("AI Learning Assistant (%s, %s)", provider.Name(), cfg.Ai.LLMModel)

	if *filePath != "" {
		if err := loadFile(ctx, ctrl, *filePath); err != nil {
			errorColor.Println(err)
			os.Exit(1)
		}
	} else if err := pasteDocument(ctx, ctrl, in); err != nil {
		errorColor.Println(err)
		os.Exit(1)
	}

	hintColor.Println("Ask a question. Commands: :doc <path>, :paste, :state, :quit")
	repl(ctx, ctrl, in)
}

func loadFile(ctx context.Context, ctrl *session.Controller, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	text, err := document.ReadUpload(path, "", f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return submit(ctx, ctrl, text)
}

// pasteDocument reads lines until one holding only ".".
func pasteDocument(ctx context.Context, ctrl *session.Controller, in *bufio.Scanner) error {
	hintColor.Println("Paste your document, then a line with a single '.' to finish:")

	var b strings.Builder
	for in.Scan() {
		line := in.Text()
		if line == "." {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := in.Err(); err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	return submit(ctx, ctrl, b.String())
}

func submit(ctx context.Context, ctrl *session.Controller, text string) error {
	if _, err := ctrl.SubmitDocument(ctx, text); err != nil {
		return err
	}
	printLastTurn(ctrl)
	return nil
}

func repl(ctx context.Context, ctrl *session.Controller, in *bufio.Scanner) {
	for {
		userColor.Print("> ")
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())

		switch {
		case line == ":quit" || line == ":q":
			return
		case line == ":state":
			printState(ctrl.Snapshot())
		case line == ":paste":
			if err := pasteDocument(ctx, ctrl, in); err != nil {
				errorColor.Println(err)
			}
		case strings.HasPrefix(line, ":doc "):
			if err := loadFile(ctx, ctrl, strings.TrimSpace(strings.TrimPrefix(line, ":doc "))); err != nil {
				errorColor.Println(err)
			}
		default:
			ask(ctx, ctrl, line)
		}

		if ctx.Err() != nil {
			return
		}
	}
}

func ask(ctx context.Context, ctrl *session.Controller, question string) {
	hintColor.Println("AI is thinking...")

	exchange, err := ctrl.Ask(ctx, question)
	if err != nil {
		errorColor.Println(err)
		return
	}

	printTurn(exchange.Reply)
	if exchange.Err != nil {
		errorColor.Println(session.ErrorPrefix + exchange.Err.Message)
	}
}

func printLastTurn(ctrl *session.Controller) {
	turns := ctrl.Snapshot().Turns
	if len(turns) > 0 {
		printTurn(turns[len(turns)-1])
	}
}

func printTurn(turn conversation.Turn) {
	if turn.Role == conversation.RoleUser {
		userColor.Printf("You: %s\n", turn.Content)
		return
	}
	modelColor.Printf("AI: %s\n", turn.Content)
}

func printState(state session.State) {
	hintColor.Printf("phase=%s turns=%d pending=%t\n", state.Phase, len(state.Turns), state.Pending)
	if state.Document != nil {
		hintColor.Printf("document: %d chars, submitted %s\n", len(state.Document.Text), state.Document.SubmittedAt.Format("15:04:05"))
	}
	for _, turn := range state.Turns {
		printTurn(turn)
	}
	if state.LastError != "" {
		errorColor.Println(state.LastError)
	}
}
