// Package storage keeps ledger partitions and the event journal in SQLite.
// Partitions are stored cell by cell and evaluated with the in-process grid,
// so the ledger behaves the same as on a real spreadsheet.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"finsheet/internal/log"
	"finsheet/internal/sheets"
	"finsheet/internal/sheets/grid"
)

type SQLiteRepository struct {
	db     *sqlx.DB
	logger *log.Logger
}

var _ sheets.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens dbPath, creating its directory, and migrates it.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type cellRow struct {
	Row        int            `db:"row_idx"`
	Col        int            `db:"col_idx"`
	Kind       int            `db:"kind"`
	Text       string         `db:"text"`
	Number     float64        `db:"number"`
	Background sql.NullString `db:"background"`
	Bold       bool           `db:"bold"`
}

func (c cellRow) cell() sheets.Cell {
	out := sheets.Cell{
		Kind:   sheets.CellKind(c.Kind),
		Text:   c.Text,
		Number: c.Number,
		Bold:   c.Bold,
	}
	if c.Background.Valid {
		if col, err := sheets.ParseColor(c.Background.String); err == nil {
			out.Background = &col
		}
	}
	return out
}

func (r *SQLiteRepository) ListPartitions(ctx context.Context) ([]string, error) {
	var labels []string
	if err := r.db.SelectContext(ctx, &labels, `SELECT label FROM partitions ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	return labels, nil
}

func (r *SQLiteRepository) CreatePartition(ctx context.Context, label string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO partitions (label) VALUES (?)`, label)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %q", sheets.ErrPartitionExists, label)
		}
		return fmt.Errorf("create partition %q: %w", label, err)
	}
	r.logger.InfoContext(ctx, "Partition created", log.FieldPartition, label)
	return nil
}

func (r *SQLiteRepository) ReadValues(ctx context.Context, partition string) ([][]string, error) {
	g, err := r.load(ctx, r.db, partition)
	if err != nil {
		return nil, err
	}
	return g.Values(), nil
}

func (r *SQLiteRepository) ReadFormatting(ctx context.Context, partition string) ([][]sheets.CellFormat, error) {
	g, err := r.load(ctx, r.db, partition)
	if err != nil {
		return nil, err
	}
	return g.Formats(), nil
}

// BatchWrite applies ops to the stored grid and rewrites the partition's
// cells in one transaction.
func (r *SQLiteRepository) BatchWrite(ctx context.Context, partition string, ops []sheets.Operation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := partitionID(ctx, tx, partition)
	if err != nil {
		return err
	}
	g, err := r.load(ctx, tx, partition)
	if err != nil {
		return err
	}
	if err := g.Apply(ops...); err != nil {
		return fmt.Errorf("apply to %q: %w", partition, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE partition_id = ?`, id); err != nil {
		return fmt.Errorf("clear cells: %w", err)
	}
	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO cells (partition_id, row_idx, col_idx, kind, text, number, background, bold)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for ri, row := range g.Rows() {
		for ci, c := range row {
			if c.IsEmpty() && c.Background == nil && !c.Bold {
				continue
			}
			var bg sql.NullString
			if c.Background != nil {
				bg = sql.NullString{String: c.Background.Hex(), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, id, ri, ci, int(c.Kind), c.Text, c.Number, bg, c.Bold); err != nil {
				return fmt.Errorf("insert cell %d,%d: %w", ri, ci, err)
			}
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) load(ctx context.Context, q sqlx.QueryerContext, partition string) (*grid.Grid, error) {
	id, err := partitionID(ctx, q, partition)
	if err != nil {
		return nil, err
	}
	var stored []cellRow
	err = sqlx.SelectContext(ctx, q, &stored, `
		SELECT row_idx, col_idx, kind, text, number, background, bold
		FROM cells WHERE partition_id = ?
		ORDER BY row_idx, col_idx`, id)
	if err != nil {
		return nil, fmt.Errorf("read cells of %q: %w", partition, err)
	}

	var rows [][]sheets.Cell
	for _, c := range stored {
		for len(rows) <= c.Row {
			rows = append(rows, nil)
		}
		for len(rows[c.Row]) <= c.Col {
			rows[c.Row] = append(rows[c.Row], sheets.Cell{})
		}
		rows[c.Row][c.Col] = c.cell()
	}
	return grid.FromRows(rows), nil
}

func partitionID(ctx context.Context, q sqlx.QueryerContext, label string) (int64, error) {
	var id int64
	err := sqlx.GetContext(ctx, q, &id, `SELECT id FROM partitions WHERE label = ?`, label)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", sheets.ErrPartitionNotFound, label)
	}
	if err != nil {
		return 0, fmt.Errorf("look up partition %q: %w", label, err)
	}
	return id, nil
}
