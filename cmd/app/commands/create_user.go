package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/allisson/sessions/internal/user/domain"
	userUseCase "github.com/allisson/sessions/internal/user/usecase"
)

// RunCreateUser provisions a principal that can log in with email and password.
// When password is empty it is read from io.Reader, so it can be piped instead of
// appearing in the process list. Outputs the user ID in text or JSON format.
//
// Requirements: Database must be migrated and accessible.
func RunCreateUser(
	ctx context.Context,
	useCase userUseCase.UseCase,
	logger *slog.Logger,
	name string,
	email string,
	password string,
	format string,
	io IOTuple,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("creating new user", slog.String("email", email))

	if password == "" {
		var err error
		password, err = promptForPassword(io)
		if err != nil {
			return fmt.Errorf("failed to get password: %w", err)
		}
	}

	user, err := useCase.CreateUser(ctx, userUseCase.CreateUserInput{
		Name:     name,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if format == "json" {
		if err := writeJSON(io.Writer, map[string]any{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		}); err != nil {
			return err
		}
	} else {
		outputUserText(user, io.Writer)
	}

	logger.Info("user created successfully",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// promptForPassword reads a single line from the command input.
func promptForPassword(io IOTuple) (string, error) {
	if io.Reader == nil {
		return "", fmt.Errorf("password is required")
	}

	_, _ = fmt.Fprint(io.Writer, "Enter password: ")
	line, err := bufio.NewReader(io.Reader).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	_, _ = fmt.Fprintln(io.Writer)

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

func outputUserText(user *domain.User, writer io.Writer) {
	_, _ = fmt.Fprintln(writer, "User created successfully!")
	_, _ = fmt.Fprintf(writer, "ID: %d\n", user.ID)
	_, _ = fmt.Fprintf(writer, "Name: %s\n", user.Name)
	_, _ = fmt.Fprintf(writer, "Email: %s\n", user.Email)
}
