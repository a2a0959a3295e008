package csvexport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"ethtracker/internal/domain"
)

const (
	DefaultDirectory      = "./output"
	DefaultFilenameFormat = "{address}_{timestamp}.csv"
	timestampLayout       = "20060102_150405"
	shortAddressLength    = 10
)

var Header = []string{
	"transaction_hash",
	"date_time",
	"from_address",
	"to_address",
	"transaction_type",
	"asset_contract_address",
	"asset_symbol_name",
	"token_id",
	"value_amount",
	"gas_fee_eth",
	"block_number",
	"status",
	"nonce",
	"transaction_index",
}

type Config struct {
	Directory      string
	FilenameFormat string
	Delimiter      string
}

// Exporter writes unified transactions as CSV files.
type Exporter struct {
	dir       string
	format    string
	delimiter rune
	now       func() time.Time
}

func NewExporter(cfg Config) (*Exporter, error) {
	dir := strings.TrimSpace(cfg.Directory)
	if dir == "" {
		dir = DefaultDirectory
	}
	format := strings.TrimSpace(cfg.FilenameFormat)
	if format == "" {
		format = DefaultFilenameFormat
	}
	delimiter := ','
	if cfg.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(cfg.Delimiter)
		if size != len(cfg.Delimiter) || r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
			return nil, fmt.Errorf("%w: invalid csv delimiter %q", domain.ErrConfiguration, cfg.Delimiter)
		}
		delimiter = r
	}
	return &Exporter{dir: dir, format: format, delimiter: delimiter, now: time.Now}, nil
}

// Export writes transactions to a new file under the output directory and
// returns its path.
func (e *Exporter) Export(transactions []domain.UnifiedTransaction, address string, includeTimestamp bool) (path string, err error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path = filepath.Join(e.dir, e.filename(address, includeTimestamp))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv file: %w", err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	writer := csv.NewWriter(file)
	writer.Comma = e.delimiter
	if err := writer.Write(Header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range transactions {
		if err := writer.Write(Row(tx)); err != nil {
			return "", fmt.Errorf("write csv row %s: %w", tx.Hash, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}

	slog.Info("exported transactions", "count", len(transactions), "file", path)
	return path, nil
}

func (e *Exporter) filename(address string, includeTimestamp bool) string {
	short := strings.ToLower(address)
	if len(short) > shortAddressLength {
		short = short[:shortAddressLength]
	}
	timestamp := ""
	if includeTimestamp {
		timestamp = e.now().Format(timestampLayout)
	}
	name := strings.NewReplacer("{address}", short, "{timestamp}", timestamp).Replace(e.format)
	if !includeTimestamp {
		name = strings.ReplaceAll(name, "_.", ".")
	}
	return name
}

// Row renders one transaction in Header order.
func Row(tx domain.UnifiedTransaction) []string {
	symbol := tx.TokenSymbol
	if symbol == "" {
		symbol = "ETH"
	}
	return []string{
		tx.Hash,
		tx.DateString(),
		tx.From,
		tx.To,
		string(tx.Type),
		tx.ContractAddress,
		symbol,
		tx.TokenID,
		tx.ValueString(),
		tx.FeeInEth().StringFixed(8),
		strconv.FormatUint(tx.BlockNumber, 10),
		string(tx.Status),
		strconv.FormatUint(tx.Nonce, 10),
		strconv.FormatUint(tx.TransactionIndex, 10),
	}
}
