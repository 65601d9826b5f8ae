package sheets

import (
	"context"
	"errors"
)

var (
	ErrPartitionNotFound = errors.New("partition not found")
	ErrPartitionExists   = errors.New("partition already exists")
)

// Ports for outbound adapters. A partition is one sheet tab, addressed by its title.
type (
	// ValuesReader returns the displayed values of a partition, row-major.
	// Rows are trimmed of trailing empty cells and trailing empty rows are
	// omitted, matching what the Sheets values API returns.
	ValuesReader interface {
		ReadValues(ctx context.Context, partition string) ([][]string, error)
	}

	// FormattingReader returns cell formats aligned with ReadValues.
	FormattingReader interface {
		ReadFormatting(ctx context.Context, partition string) ([][]CellFormat, error)
	}

	// BatchWriter applies operations in order as one request.
	BatchWriter interface {
		BatchWrite(ctx context.Context, partition string, ops []Operation) error
	}

	// PartitionLister lists partition titles in tab order. The last one is active.
	PartitionLister interface {
		ListPartitions(ctx context.Context) ([]string, error)
	}

	// PartitionCreator appends a new, empty partition after the existing ones.
	PartitionCreator interface {
		CreatePartition(ctx context.Context, label string) error
	}

	Reader interface {
		ValuesReader
		FormattingReader
		PartitionLister
	}

	// Store is everything the ledger needs from a spreadsheet.
	Store interface {
		Reader
		BatchWriter
		PartitionCreator
	}
)
