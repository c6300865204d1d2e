// Command create-superadmin создаёт первого суперадмина, если его ещё нет.
//
//	go run ./cmd/create-superadmin -email root@example.com -name Root
//
// Пароль берётся из -password или SUPERADMIN_PASSWORD.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/Dosada05/inmatch/db"
	"github.com/Dosada05/inmatch/repositories"
	"github.com/Dosada05/inmatch/services"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	name := flag.String("name", envOr("SUPERADMIN_NAME", "Super Admin"), "display name")
	email := flag.String("email", os.Getenv("SUPERADMIN_EMAIL"), "login email")
	password := flag.String("password", os.Getenv("SUPERADMIN_PASSWORD"), "login password")
	dsn := flag.String("database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	flag.Parse()

	if *dsn == "" || *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "database-url, email and password are required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(logger, *dsn, services.RegisterAdminInput{Name: *name, Email: *email, Password: *password}); err != nil {
		logger.Error("failed to create superadmin", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, dsn string, input services.RegisterAdminInput) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.Connect(dsn, 5*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		return err
	}

	svc := services.NewAdminService(repositories.NewPostgresAdminRepository(conn), logger)
	admin, created, err := svc.EnsureSuperAdmin(ctx, input)
	if err != nil {
		return err
	}
	if !created {
		logger.Info("admin already exists, nothing to do",
			slog.Int("admin_id", admin.ID),
			slog.String("role", string(admin.Role)))
		return nil
	}
	logger.Info("superadmin created", slog.Int("admin_id", admin.ID), slog.String("email", admin.Email))
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
