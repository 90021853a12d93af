// Package adminkey generates the admin password hash and session secret.
package adminkey

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ounjeeh/staples/internal/platform/config"
	"github.com/ounjeeh/staples/internal/services/admin"
)

// MinPasswordLength is the shortest accepted admin password.
const MinPasswordLength = 8

// Config holds admin key generation settings.
type Config struct {
	// Password is hashed when set; otherwise the first line of input is used.
	Password    string
	Cost        int
	SecretBytes int
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Cost: bcrypt.DefaultCost, SecretBytes: admin.MinSecretBytes}
	fs.StringVar(&cfg.Password, "password", "", "admin password (read from stdin when empty)")
	fs.IntVar(&cfg.Cost, "cost", cfg.Cost, "bcrypt cost")
	fs.IntVar(&cfg.SecretBytes, "secret-bytes", cfg.SecretBytes, "random bytes in the session secret")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run hashes the password, generates a secret and writes both as env lines.
func Run(cfg Config, in io.Reader, out io.Writer, random io.Reader) error {
	if out == nil {
		return errors.New("output is required")
	}
	if cfg.SecretBytes < admin.MinSecretBytes {
		return fmt.Errorf("secret bytes must be at least %d", admin.MinSecretBytes)
	}
	if cfg.Cost < bcrypt.MinCost || cfg.Cost > bcrypt.MaxCost {
		return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if random == nil {
		random = rand.Reader
	}

	password := cfg.Password
	if password == "" {
		if in == nil {
			return errors.New("password is required")
		}
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.Cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	secret := make([]byte, cfg.SecretBytes)
	if _, err := io.ReadFull(random, secret); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	_, err = fmt.Fprintf(out, "%sADMIN_PASSWORD_HASH=%s\n%sADMIN_SESSION_SECRET=%s\n",
		config.EnvPrefix, hash, config.EnvPrefix, hex.EncodeToString(secret))
	return err
}
