// Command admin performs operator tasks against the user database:
// creating accounts and force-revoking every refresh token of a user.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/config"
	"github.com/dmitrijs2005/authgate/internal/server/password"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authgate/internal/server/services"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  admin create-user -d <dsn> -email <email> -username <name>
  admin revoke-tokens -d <dsn> -user <id>
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "create-user":
		err = createUser(ctx, os.Args[2:])
	case "revoke-tokens":
		err = revokeTokens(ctx, os.Args[2:])
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newAuthService(dsn string) (*services.AuthService, *sql.DB, error) {
	if dsn == "" {
		return nil, nil, fmt.Errorf("database DSN is required (-d or DATABASE_DSN)")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	hasher, err := password.NewHasher(password.DefaultParams())
	if err != nil {
		return nil, nil, err
	}

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = dsn

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := services.NewAuthService(db, repomanager.NewPostgresRepositoryManager(), hasher, cfg, logger)
	return svc, db, nil
}

func createUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	dsn := fs.String("d", os.Getenv("DATABASE_DSN"), "database DSN")
	email := fs.String("email", "", "email address")
	username := fs.String("username", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *username == "" {
		return fmt.Errorf("email and username are required")
	}

	pwd, err := promptPassword()
	if err != nil {
		return err
	}

	svc, db, err := newAuthService(*dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := svc.Register(ctx, *email, *username, pwd)
	if err != nil {
		return err
	}

	fmt.Printf("created user %d (%s)\n", user.ID, user.Email)
	return nil
}

func revokeTokens(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("revoke-tokens", flag.ExitOnError)
	dsn := fs.String("d", os.Getenv("DATABASE_DSN"), "database DSN")
	userID := fs.String("user", "", "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := strconv.ParseInt(*userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", *userID)
	}

	svc, db, err := newAuthService(*dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := svc.RevokeAll(ctx, id); err != nil {
		return err
	}

	fmt.Printf("revoked all refresh tokens for user %d\n", id)
	return nil
}

// promptPassword reads the password twice without echo.
func promptPassword() (string, error) {
	fmt.Print("password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}

	fmt.Print("repeat password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(first) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}
	return string(first), nil
}
