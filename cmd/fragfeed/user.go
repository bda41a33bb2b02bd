package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ernie/fragfeed/internal/auth"
	"github.com/ernie/fragfeed/internal/config"
	"github.com/ernie/fragfeed/internal/storage"
)

func cmdUser(args []string) error {
	if len(args) < 1 {
		return errors.New("user subcommand required: add, remove, list")
	}
	subCmd := args[0]

	fs := flag.NewFlagSet("user "+subCmd, flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "path to configuration file")
	isAdmin := fs.Bool("admin", false, "create as admin user")
	fs.Parse(args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := storage.New(cfg.EventLog.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	switch subCmd {
	case "add":
		return cmdUserAdd(ctx, store, fs.Args(), *isAdmin)
	case "remove":
		return cmdUserRemove(ctx, store, fs.Args())
	case "list":
		return cmdUserList(ctx, store)
	default:
		return fmt.Errorf("unknown user command: %s (use: add, remove, list)", subCmd)
	}
}

func cmdUserAdd(ctx context.Context, store *storage.Store, args []string, isAdmin bool) error {
	if len(args) < 1 {
		return errors.New("usage: fragfeed user add [--admin] <username>")
	}
	username := args[0]

	if _, err := store.GetUserByUsername(ctx, username); err == nil {
		return fmt.Errorf("user '%s' already exists", username)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		return err
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := store.CreateUser(ctx, username, hash, isAdmin); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	role := "user"
	if isAdmin {
		role = "admin"
	}
	fmt.Printf("User '%s' created successfully (role: %s)\n", username, role)
	return nil
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func cmdUserRemove(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: fragfeed user remove <username>")
	}
	username := args[0]

	if err := store.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	fmt.Printf("User '%s' removed\n", username)
	return nil
}

func cmdUserList(ctx context.Context, store *storage.Store) error {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tLAST_LOGIN")
	fmt.Fprintln(w, "--------\t----\t----------")
	for _, user := range users {
		role := "user"
		if user.IsAdmin {
			role = "admin"
		}
		lastLogin := "never"
		if user.LastLogin != nil {
			lastLogin = user.LastLogin.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", user.Username, role, lastLogin)
	}
	return w.Flush()
}
