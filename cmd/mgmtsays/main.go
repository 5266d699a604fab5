package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/vbhandari/MgmtSays/internal/config"
	"github.com/vbhandari/MgmtSays/internal/database/kafka"
	"github.com/vbhandari/MgmtSays/internal/database/milvus"
	minioconn "github.com/vbhandari/MgmtSays/internal/database/minio"
	mongoconn "github.com/vbhandari/MgmtSays/internal/database/mongo"
	"github.com/vbhandari/MgmtSays/internal/embedding"
	"github.com/vbhandari/MgmtSays/internal/jobs"
	"github.com/vbhandari/MgmtSays/internal/llm"
	"github.com/vbhandari/MgmtSays/internal/rag/chunkers"
	"github.com/vbhandari/MgmtSays/internal/rag/extraction"
	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/parsers"
	"github.com/vbhandari/MgmtSays/internal/rag/rerankers"
	"github.com/vbhandari/MgmtSays/internal/rag/retrieval"
	"github.com/vbhandari/MgmtSays/internal/rag/temporal"
	"github.com/vbhandari/MgmtSays/internal/rag/vectorstore"
	"github.com/vbhandari/MgmtSays/internal/repository"
	"github.com/vbhandari/MgmtSays/internal/service"
	"github.com/vbhandari/MgmtSays/internal/storage"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

const usage = `usage: mgmtsays [-config path] <command> [flags]

commands:
  serve                      run the background worker pool (and kafka source when enabled)
  add-company                register a company
  upload                     upload and index a document
  analyze                    run an analysis over a company's documents
  search                     similarity search over a company's chunks
  ask                        answer a question from a company's documents
  timeline                   per-period insight buckets for a company
  trends                     new/reiterated trend counts for a company
`

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("mgmtsays")
	appLogger.WithField("environment", cfg.App.Environment).Info("starting MgmtSays")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	// The signal context is already cancelled by the time cleanup runs.
	defer app.close(context.Background())

	if err := app.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}

// app holds every wired component of the pipeline.
type app struct {
	cfg *config.AppConfig
	log *logger.Logger

	milvusClient *milvus.Client
	mongoClient  *mongoconn.Client
	kafkaClient  *kafka.Client

	companies *service.CompanyService
	documents *service.DocumentService
	analyses  *service.AnalysisService
	search    *service.SearchService
	timeline  *service.TimelineService
	pool      *jobs.Pool
}

func buildApp(ctx context.Context, cfg *config.AppConfig) (*app, error) {
	milvusClient, err := milvus.Connect(ctx, &cfg.Databases.Milvus)
	if err != nil {
		return nil, fmt.Errorf("milvus: %w", err)
	}
	mongoClient, err := mongoconn.Connect(ctx, &cfg.Databases.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("mongodb: %w", err)
	}

	var store interfaces.Storage
	switch cfg.Storage.Backend {
	case "minio":
		mc, err := minioconn.Connect(ctx, &cfg.Databases.MinIO)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		store = storage.NewMinIOStorage(mc, cfg.Databases.MinIO.Bucket)
	default:
		local, err := storage.NewLocalStorage(cfg.Storage.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("local storage: %w", err)
		}
		store = local
	}

	openaiCfg := cfg.LLM.OpenAI
	embedder := embedding.NewOpenAIModel(openaiCfg.BaseURL, openaiCfg.APIKey, openaiCfg.EmbeddingModel)
	completer := llm.NewOpenAICompleter(openaiCfg.BaseURL, openaiCfg.APIKey, openaiCfg.Model)

	vectorStore, err := vectorstore.NewMilvusStore(milvusClient, embedder, cfg.Pipeline.EmbeddingDimension)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}

	var reranker interfaces.Reranker
	if cfg.Pipeline.Reranker.Enabled {
		if cfg.Pipeline.Reranker.Mode == "model" {
			reranker = rerankers.NewCohereReranker(cfg.Pipeline.Reranker.APIKey, cfg.Pipeline.Reranker.Model)
		} else {
			reranker = rerankers.NewHeuristicReranker()
		}
	}
	retriever := retrieval.NewRetriever(vectorStore, embedder, reranker)

	db := mongoClient.Database
	companyRepo := repository.NewCompanyRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	initiativeRepo := repository.NewInitiativeRepository(db)
	insightRepo := repository.NewInsightRepository(db)
	evidenceRepo := repository.NewEvidenceRepository(db)

	registry := parsers.NewRegistry(logger.New("parsers"))
	semantic := chunkers.NewSemanticChunker(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	structural := chunkers.NewStructuralChunker(cfg.Pipeline.MaxChunkSize)

	documentService := service.NewDocumentService(
		documentRepo, companyRepo, evidenceRepo,
		store, registry, semantic, structural, vectorStore,
	)
	analysisService := service.NewAnalysisService(
		analysisRepo, documentRepo, companyRepo, initiativeRepo, insightRepo, evidenceRepo,
		retriever,
		extraction.NewExtractor(completer),
		extraction.NewDeduplicator(completer, cfg.Pipeline.DedupThreshold, cfg.Pipeline.DedupBatchSize),
		extraction.NewClassifier(completer),
		cfg.Pipeline.ExtractionTopK,
		cfg.Pipeline.ModifiedThreshold,
	)

	a := &app{
		cfg:          cfg,
		log:          logger.New("app"),
		milvusClient: milvusClient,
		mongoClient:  mongoClient,
		companies:    service.NewCompanyService(companyRepo, initiativeRepo, insightRepo, documentService),
		documents:    documentService,
		analyses:     analysisService,
		search:       service.NewSearchService(retriever, completer, cfg.Pipeline.RetrievalTopK),
		timeline:     service.NewTimelineService(insightRepo, initiativeRepo),
		pool:         jobs.NewPool(cfg.Pipeline.WorkerCount, 256),
	}

	a.pool.Register(jobs.KindProcessDocument, func(ctx context.Context, job jobs.Job) error {
		return a.documents.Process(ctx, job.TargetID)
	})
	a.pool.RegisterPerCompany(jobs.KindRunAnalysis, func(ctx context.Context, job jobs.Job) error {
		return a.analyses.Run(ctx, job.TargetID)
	})

	if cfg.Databases.Kafka.Enabled {
		kafkaClient, err := kafka.Connect(&cfg.Databases.Kafka)
		if err != nil {
			return nil, fmt.Errorf("kafka: %w", err)
		}
		a.kafkaClient = kafkaClient
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.kafkaClient != nil {
		if err := a.kafkaClient.Close(); err != nil {
			a.log.WithError(err).Warn("kafka close failed")
		}
	}
	if err := a.mongoClient.Close(ctx); err != nil {
		a.log.WithError(err).Warn("mongodb close failed")
	}
	a.milvusClient.Close()
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "serve":
		return a.serve(ctx)
	case "add-company":
		return a.addCompany(ctx, args)
	case "upload":
		return a.upload(ctx, args)
	case "analyze":
		return a.analyze(ctx, args)
	case "search":
		return a.runSearch(ctx, args)
	case "ask":
		return a.ask(ctx, args)
	case "timeline":
		return a.runTimeline(ctx, args)
	case "trends":
		return a.runTrends(ctx, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// serve runs the worker pool until interrupted, feeding it from Kafka when a
// topic is configured.
func (a *app) serve(ctx context.Context) error {
	a.pool.Start(ctx)
	if a.kafkaClient != nil {
		source := jobs.NewKafkaSource(a.kafkaClient, a.pool)
		go func() {
			if err := source.Run(ctx); err != nil {
				a.log.WithError(err).Error("kafka job source exited")
			}
		}()
	}
	<-ctx.Done()
	a.log.Info("shutting down")
	return a.pool.Wait()
}

func (a *app) addCompany(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-company", flag.ExitOnError)
	name := fs.String("name", "", "company name")
	ticker := fs.String("ticker", "", "ticker symbol")
	industry := fs.String("industry", "", "industry label")
	fs.Parse(args)

	company, err := a.companies.Create(ctx, *name, *ticker, *industry)
	if err != nil {
		return err
	}
	return printJSON(company)
}

func (a *app) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	companyID := fs.String("company", "", "company ID")
	file := fs.String("file", "", "path to the document")
	docType := fs.String("type", "other", "document type (earnings_call, annual_report, ...)")
	title := fs.String("title", "", "document title")
	fs.Parse(args)

	content, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read '%s': %w", *file, err)
	}
	doc, err := a.documents.Upload(ctx, service.UploadRequest{
		CompanyID:    *companyID,
		Filename:     filepath.Base(*file),
		Title:        *title,
		DocumentType: *docType,
		Content:      content,
	})
	if err != nil {
		return err
	}
	if err := a.documents.Process(ctx, doc.ID); err != nil {
		return err
	}
	doc, err = a.documents.Get(ctx, doc.ID)
	if err != nil {
		return err
	}
	return printJSON(doc)
}

func (a *app) analyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	companyID := fs.String("company", "", "company ID")
	enqueue := fs.Bool("enqueue", false, "submit to the job topic instead of running inline")
	fs.Parse(args)

	analysis, err := a.analyses.Start(ctx, *companyID, nil)
	if err != nil {
		return err
	}

	if *enqueue {
		if a.kafkaClient == nil {
			return fmt.Errorf("kafka is not enabled in the config")
		}
		job := jobs.Job{ID: uuid.NewString(), Kind: jobs.KindRunAnalysis, CompanyID: *companyID, TargetID: analysis.ID}
		payload, err := json.Marshal(job)
		if err != nil {
			return err
		}
		if err := a.kafkaClient.Publish(ctx, []byte(*companyID), payload); err != nil {
			return fmt.Errorf("failed to submit job: %w", err)
		}
		return printJSON(analysis)
	}

	// Inline runs take the same per-company lock as the worker pool, so an
	// analysis queued for this company cannot run concurrently with this one.
	unlock := a.pool.LockCompany(*companyID)
	err = a.analyses.Run(ctx, analysis.ID)
	unlock()
	if err != nil {
		return err
	}
	analysis, err = a.analyses.Get(ctx, analysis.ID)
	if err != nil {
		return err
	}
	return printJSON(analysis)
}

func (a *app) runSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	companyID := fs.String("company", "", "company ID")
	query := fs.String("q", "", "query text")
	topK := fs.Int("k", 0, "number of results (0 = config default)")
	fs.Parse(args)

	results, err := a.search.Search(ctx, *companyID, *query, *topK, nil)
	if err != nil {
		return err
	}
	return printJSON(results)
}

func (a *app) ask(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	companyID := fs.String("company", "", "company ID")
	question := fs.String("q", "", "question text")
	fs.Parse(args)

	answer, err := a.search.Ask(ctx, *companyID, *question, 0)
	if err != nil {
		return err
	}
	return printJSON(answer)
}

func (a *app) runTimeline(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("timeline", flag.ExitOnError)
	companyID := fs.String("company", "", "company ID")
	group := fs.String("group", "quarter", "grouping: quarter, year or month")
	fs.Parse(args)

	buckets, err := a.timeline.Timeline(ctx, *companyID, temporal.Grouping(*group))
	if err != nil {
		return err
	}
	return printJSON(buckets)
}

func (a *app) runTrends(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trends", flag.ExitOnError)
	companyID := fs.String("company", "", "company ID")
	fs.Parse(args)

	trends, err := a.timeline.Trends(ctx, *companyID)
	if err != nil {
		return err
	}
	return printJSON(trends)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
