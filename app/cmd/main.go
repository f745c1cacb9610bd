package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wbl65535/Data-Engineering-1/app/api"
	"github.com/wbl65535/Data-Engineering-1/app/server"
	"github.com/wbl65535/Data-Engineering-1/extract"
	"github.com/wbl65535/Data-Engineering-1/model"
	"github.com/wbl65535/Data-Engineering-1/pipeline"
	"github.com/wbl65535/Data-Engineering-1/qa"
	"github.com/wbl65535/Data-Engineering-1/retriever"
	"github.com/wbl65535/Data-Engineering-1/store"
	"github.com/wbl65535/Data-Engineering-1/types"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment as is")
	}
}

func main() {
	forceRebuild := flag.Bool("force-rebuild", false, "re-extract all documents and rebuild the vector index")
	serve := flag.Bool("serve", false, "expose the question-answering API over HTTP instead of the interactive prompt")
	flag.Parse()

	cfg := types.FromEnv()
	ctx := context.Background()

	if cfg.LLMAPIKey == "" {
		log.Println("warning: API_KEY is not set, answers will report a configuration error")
	}

	embedder := model.NewHTTPEmbedder(cfg.EmbeddingURL, cfg.EmbeddingModel, "model_cache")
	embedder.APIKey = cfg.EmbeddingAPIKey

	index, err := store.Open(ctx, cfg, embedder)
	if err != nil {
		log.Fatal("error to connect to the vector store: ", err)
	}
	defer index.Close()

	extractor := extract.NewExtractor(
		extract.NewLayoutClient(cfg.LayoutURL),
		extract.NewSegmenter(cfg.ChunkSize, cfg.ChunkOverlap),
	)
	extractor.CropTop = cfg.CropTop
	extractor.CropBottom = cfg.CropBottom

	p := pipeline.New(cfg, extractor, embedder, index)
	if err := p.Build(ctx, *forceRebuild); err != nil {
		log.Fatal("knowledge base build failed: ", err)
	}

	r := retriever.New(index)
	composer := qa.NewComposer(model.NewCompletionClient(cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMAPIKey))

	if *serve {
		runServer(cfg, index, r, composer)
		return
	}

	runInteractive(ctx, cfg, r, composer)
}

func runServer(cfg types.Config, index store.Index, r *retriever.Retriever, composer *qa.Composer) {
	s := server.New(cfg.ServerAddr, api.NewAskHandler(r, composer, cfg.TopK), api.NewCheckHandler(index))

	go s.Run()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	log.Println("received shutdown signal, shutting down server...")
	s.Stop()
}

func runInteractive(ctx context.Context, cfg types.Config, r *retriever.Retriever, composer *qa.Composer) {
	fmt.Println("Course knowledge base ready. Ask a question, or type 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nquestion: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if q := strings.ToLower(query); q == "exit" || q == "quit" {
			fmt.Println("bye")
			break
		}

		docs, err := r.Search(ctx, query, cfg.TopK)
		if err != nil {
			log.Printf("retrieval failed: %v", err)
			continue
		}

		resp := composer.Answer(ctx, query, docs)
		fmt.Println("\nanswer:")
		fmt.Println(resp.Answer)
	}
}
