package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"vowcraft/internal/catalog"
	"vowcraft/internal/config"
	"vowcraft/internal/domain/models/invitation"
	invitationSvc "vowcraft/internal/domain/services/invitation"
	"vowcraft/internal/events"
	"vowcraft/internal/metrics"
	"vowcraft/internal/repository/postgres"
	postgresInvitation "vowcraft/internal/repository/postgres/invitation"
	serviceAuth "vowcraft/internal/service/auth"
	"vowcraft/internal/service/commit"
	serviceInvitation "vowcraft/internal/service/invitation"
	"vowcraft/internal/service/patchengine"
	serviceTemplate "vowcraft/internal/service/template"
)

// seedDocument is one invitation created for the seed user, optionally
// restyled with a catalog template afterwards.
type seedDocument struct {
	request  invitationSvc.CreateDocumentRequest
	template string
}

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed documents")
	clearData := flag.Bool("clear-data", false, "Delete all documents, branches and edit logs (keep schema)")
	userID := flag.String("user", "", "Owner id for the seeded documents (required unless --schema-only or --clear-data)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: --drop-tables and --clear-data are not allowed in production")
	}
	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL is required")
	}
	if *userID == "" && !*schemaOnly && !*clearData {
		log.Fatalf("--user is required to seed documents")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	logger.Info("seeding", "environment", cfg.Environment, "table_prefix", cfg.TablePrefix)

	if *dropTables {
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		logger.Info("tables dropped")
	}

	if err := postgres.Migrate(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	logger.Info("schema ready")

	if *schemaOnly {
		return
	}
	if *clearData {
		if err := clearAllData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		logger.Info("data cleared")
		return
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	docRepo := postgresInvitation.NewDocumentRepository(repoConfig)
	branchRepo := postgresInvitation.NewBranchRepository(repoConfig)
	editLog := postgresInvitation.NewEditLogRepository(repoConfig)

	m := metrics.New(nil)
	engine := patchengine.New()
	authorizer := serviceAuth.NewOwnerBasedAuthorizer(docRepo, branchRepo, editLog)
	committer := commit.NewCommitter(engine, docRepo, editLog, postgres.NewTransactionManager(pool, logger), events.NewNoop(), m, logger)
	docService := serviceInvitation.NewDocumentService(docRepo, editLog, committer, authorizer, logger)

	templates, err := catalog.Load(cfg.TemplateCatalogPath)
	if err != nil {
		log.Fatalf("Failed to load template catalog: %v", err)
	}
	templateService := serviceTemplate.NewTemplateService(templates, serviceTemplate.NewApplier(engine, nil), nil,
		docRepo, committer, authorizer, m, logger)

	seeds := seedDocuments(*userID)
	for i, seed := range seeds {
		doc, err := docService.CreateDocument(ctx, &seed.request)
		if err != nil {
			logger.Error("failed to create document", "title", seed.request.Title, "error", err)
			continue
		}

		if seed.template != "" {
			app, err := templateService.ApplyTemplate(ctx, *userID, doc.ID, &invitationSvc.ApplyTemplateRequest{
				TemplateID:  seed.template,
				BaseVersion: doc.Version,
				Confirm:     true,
			})
			if err != nil {
				logger.Error("failed to apply template", "document_id", doc.ID, "template_id", seed.template, "error", err)
				continue
			}
			doc = app.Result.Document
		}

		logger.Info("document seeded",
			"n", fmt.Sprintf("%d/%d", i+1, len(seeds)),
			"document_id", doc.ID,
			"title", doc.Title,
			"version", doc.Version,
			"blocks", len(doc.Blocks),
		)
	}
}

func seedDocuments(userID string) []seedDocument {
	return []seedDocument{
		{request: invitationSvc.CreateDocumentRequest{
			UserID: userID,
			Title:  "Alex & Sam",
			Seed:   invitation.SeedSample,
		}},
		{
			request: invitationSvc.CreateDocumentRequest{
				UserID: userID,
				Title:  "Priya & Jordan",
				Seed:   invitation.SeedSample,
				Wedding: &invitation.WeddingData{
					PartnerOne:   "Priya",
					PartnerTwo:   "Jordan",
					Date:         "2027-05-22",
					Time:         "17:30",
					VenueName:    "Seaside Pavilion",
					VenueAddress: "1 Harbour Walk, Brighton",
					Hashtag:      "#PriyaAndJordan",
				},
			},
			template: "beach-breeze",
		},
		{
			request: invitationSvc.CreateDocumentRequest{
				UserID: userID,
				Title:  "Blank draft",
				Seed:   invitation.SeedBlank,
			},
			template: "photo-journal",
		},
	}
}

// dropAllTables drops the prefixed tables, children first
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	for _, table := range []string{tables.EditLogs, tables.Branches, tables.Documents} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

// clearAllData deletes every row but keeps the schema
func clearAllData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	_, err := pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s, %s, %s", tables.EditLogs, tables.Branches, tables.Documents))
	return err
}
