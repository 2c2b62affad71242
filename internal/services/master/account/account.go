// Package account creates operator accounts from the master CLI.
package account

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/embervale/nexus/internal/services/master/storage"
)

// bcryptCost matches the work factor used for operator credentials.
const bcryptCost = 12

// gmLevelAdmin grants the created account full operator rights.
const gmLevelAdmin = 9

// Create hashes the password and inserts the account at operator level.
func Create(ctx context.Context, store storage.AccountStore, username, password string) error {
	if store == nil {
		return fmt.Errorf("account store is required")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := store.CreateAccount(ctx, username, string(hash), gmLevelAdmin); err != nil {
		return err
	}
	return nil
}

// RunInteractive prompts for credentials and creates the account. The
// password is read without echo when stdin is a terminal. Meant for the
// sysadmin bootstrapping their first account.
func RunInteractive(ctx context.Context, store storage.AccountStore, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprint(out, "Enter a username: ")
	username, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read username: %w", err)
	}
	username = strings.TrimSpace(username)

	fmt.Fprint(out, "Enter a password: ")
	password, err := readPassword(reader)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	fmt.Fprintln(out)

	if err := Create(ctx, store, username, password); err != nil {
		return err
	}
	fmt.Fprintln(out, "Account created successfully!")
	return nil
}

// readPassword hides input on a real terminal and falls back to a plain
// line read when stdin is piped.
func readPassword(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
