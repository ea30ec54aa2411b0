// Command createsuperuser provisions a staff account with superuser rights.
//
// Values are taken from flags, then from SUPERUSER_EMAIL, SUPERUSER_PASSWORD
// and SUPERUSER_NAME, and finally prompted for on an interactive terminal.
//
//	createsuperuser -email admin@example.com -name Admin
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/pkordes/recipe-api/internal/config"
	"github.com/pkordes/recipe-api/internal/domain"
	"github.com/pkordes/recipe-api/internal/repo"
	"github.com/pkordes/recipe-api/internal/service"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type input struct {
	Email    string
	Password string
	Name     string
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var in input
	noInput := flag.Bool("no-input", false, "fail instead of prompting for missing values")
	flag.StringVar(&in.Email, "email", "", "email address of the new superuser")
	flag.StringVar(&in.Name, "name", "", "display name of the new superuser")
	flag.Parse()

	interactive := !*noInput && term.IsTerminal(int(os.Stdin.Fd()))
	in, err := collectInput(in, os.Getenv, bufio.NewReader(os.Stdin), os.Stdout, interactive)
	if err != nil {
		logger.Error("invalid input", "error", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := repo.Connect(ctx, cfg.DatabaseURL, cfg.DBWaitTimeout, logger)
	if err != nil {
		logger.Error("database error", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	users := service.NewUserService(repo.NewUserRepo(pool), repo.NewTokenRepo(pool))
	u, err := users.CreateSuperuser(ctx, in.Email, in.Password, in.Name)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			for field, msg := range vErr.Fields {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
			}
			os.Exit(2)
		}
		logger.Error("create superuser", "error", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "Superuser %s created (id %s).\n", u.Email, u.ID)
}

// collectInput fills the blanks in in from the environment, then, when
// interactive, by prompting on w. Without a terminal every value must already
// be known.
func collectInput(in input, getenv func(string) string, r *bufio.Reader, w io.Writer, interactive bool) (input, error) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = getenv(key)
		}
	}
	fill(&in.Email, "SUPERUSER_EMAIL")
	fill(&in.Password, "SUPERUSER_PASSWORD")
	fill(&in.Name, "SUPERUSER_NAME")

	if interactive {
		var err error
		if in.Email == "" {
			if in.Email, err = promptLine(r, w, "Email"); err != nil {
				return input{}, err
			}
		}
		if in.Name == "" {
			if in.Name, err = promptLine(r, w, "Name"); err != nil {
				return input{}, err
			}
		}
		if in.Password == "" {
			if in.Password, err = promptPassword(w); err != nil {
				return input{}, err
			}
		}
	}

	var missing []string
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return input{}, fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return in, nil
}

func promptLine(r *bufio.Reader, w io.Writer, label string) (string, error) {
	if _, err := fmt.Fprintf(w, "%s: ", label); err != nil {
		return "", err
	}
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads the password twice without echo and checks that both
// entries match.
func promptPassword(w io.Writer) (string, error) {
	read := func(label string) (string, error) {
		fmt.Fprintf(w, "%s: ", label)
		pw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}

	first, err := read("Password")
	if err != nil {
		return "", err
	}
	second, err := read("Password (again)")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}
