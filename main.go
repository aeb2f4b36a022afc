package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fabfab/career-agent/advice"
	"github.com/fabfab/career-agent/api"
	"github.com/fabfab/career-agent/chat"
	"github.com/fabfab/career-agent/config"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ask":
		askCmd(cfg, logger, os.Args[2:])
	case "add":
		addCmd(cfg, logger, os.Args[2:])
	case "status":
		statusCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func newService(cfg config.Config, logger *log.Logger, reg prometheus.Registerer) (*chat.Service, *resources) {
	res := &resources{}
	svc := chat.NewService(newBuilder(cfg, logger, res), chat.WithLogger(logger), chat.WithRegisterer(reg))
	return svc, res
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.HTTPAddr, "address to listen on")
	warm := flags.Bool("warm", false, "build the pipeline before accepting requests")
	watch := flags.Bool("watch", false, "reindex documents changed in the documents directory")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, res := newService(cfg, logger, reg)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Printf("close resources: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *warm {
		if err := svc.Initialize(ctx); err != nil {
			logger.Printf("pipeline unavailable: %v", err)
		}
	}
	if *watch {
		if err := watchDocuments(ctx, cfg.RAG.DocumentsPath, svc, logger); err != nil {
			logger.Printf("document watcher disabled: %v", err)
		}
	}

	server := api.New(svc,
		api.WithLogger(logger),
		api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}

func askCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	question := flags.String("question", "", "career question to ask")
	user := flags.String("user", "cli", "user id recorded in the logs")
	comprehensive := flags.Bool("comprehensive", false, "use the multi-agent answer path")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}

	if strings.TrimSpace(*question) == "" {
		fmt.Print("Enter your question: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			*question = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Fatalf("read question: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, res := newService(cfg, logger, nil)
	defer res.Close()

	q := chat.Query{Text: *question, UserID: *user}
	var (
		answer chat.Answer
		err    error
	)
	if *comprehensive {
		answer, err = svc.GetMultiAgentAnswer(ctx, q)
	} else {
		answer, err = svc.Process(ctx, q)
	}
	if err != nil {
		logger.Fatalf("ask failed: %v", err)
	}

	fmt.Println(answer.Response)
	fmt.Println()
	fmt.Printf("Agent: %s (%s)\n", answer.PersonaUsed, answer.Status)
	if len(answer.Sources) > 0 {
		fmt.Println("Sources:")
		for idx, source := range answer.Sources {
			fmt.Printf("%d. %s\n", idx+1, source)
		}
	}
}

func addCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("add", flag.ExitOnError)
	file := flags.String("file", "", "path to a .txt or .md document")
	name := flags.String("name", "", "name to store the document under (defaults to the file name)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse add flags: %v", err)
	}
	if *file == "" {
		logger.Fatalf("--file is required")
	}

	content, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatalf("read document: %v", err)
	}
	filename := *name
	if filename == "" {
		filename = filepath.Base(*file)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, res := newService(cfg, logger, nil)
	defer res.Close()

	result := svc.AddKnowledge(ctx, string(content), filename)
	if result.Status != advice.StatusSuccess {
		logger.Fatalf("%s", result.Message)
	}
	fmt.Printf("%s (%d chunks)\n", result.Message, result.Chunks)
}

func statusCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("status", flag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse status flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, res := newService(cfg, logger, nil)
	defer res.Close()

	if err := svc.Initialize(ctx); err != nil {
		logger.Fatalf("initialize: %v", err)
	}

	health := svc.HealthCheck(ctx)
	status := svc.Status(ctx)
	fmt.Printf("Health: %s (%s)\n", health.Status, health.Message)
	fmt.Printf("Documents indexed: %d\n", status.DocumentCount)
	fmt.Println("Agents:")
	for _, agent := range svc.Agents() {
		fmt.Printf("  - %s: %s\n", agent.Name, agent.Summary)
	}
}

func printUsage() {
	fmt.Println("Usage: career-agent <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP API (use --addr to override the listen address)")
	fmt.Println("  ask      Ask a single career question")
	fmt.Println("  add      Add a document to the knowledge base")
	fmt.Println("  status   Build the pipeline and print component status")
}
