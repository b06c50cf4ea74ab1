// Package migrations embeds the SQL schema migrations and applies them with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/pressly/goose/v3"
)

// FS contains the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS

// NewProvider returns a goose provider over the embedded migrations.
// Closing the provider closes db.
func NewProvider(db *sql.DB) (*goose.Provider, error) {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, FS)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return p, nil
}

// Run applies all pending migrations to the given database.
func Run(ctx context.Context, db *sql.DB) error {
	p, err := NewProvider(db)
	if err != nil {
		return err
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Commands lists the names accepted by Exec.
var Commands = []string{"up", "up-one", "down", "status", "version", "reset"}

// Exec runs the named migration command and reports the outcome to w.
func Exec(ctx context.Context, db *sql.DB, command string, w io.Writer) error {
	p, err := NewProvider(db)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		results, err := p.Up(ctx)
		report(w, results...)
		return err
	case "up-one":
		r, err := p.UpByOne(ctx)
		report(w, r)
		return err
	case "down":
		r, err := p.Down(ctx)
		report(w, r)
		return err
	case "reset":
		results, err := p.DownTo(ctx, 0)
		report(w, results...)
		return err
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			applied := "-"
			if s.State == goose.StateApplied {
				applied = s.AppliedAt.Format(time.DateTime)
			}
			fmt.Fprintf(w, "%-8s %-20s %s\n", s.State, applied, path.Base(s.Source.Path))
		}
		return nil
	case "version":
		v, err := p.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "version %d\n", v)
		return nil
	}
	return fmt.Errorf("unknown command %q", command)
}

func report(w io.Writer, results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		fmt.Fprintf(w, "%-4s %s (%s)\n", r.Direction, path.Base(r.Source.Path), r.Duration.Round(time.Millisecond))
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "no migrations to apply")
	}
}
