package config

import (
	"fmt"

	"github.com/rustyeddy/scalper/journal"
)

// Open returns the configured journal, nil for type "none".
func (c JournalConfig) Open() (journal.Journal, error) {
	switch c.Type {
	case "sqlite":
		j, err := journal.NewSQLite(c.DBPath)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "csv":
		j, err := journal.NewCSV(c.SignalsFile, c.TradesFile, c.EquityFile)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", c.Type)
	}
}
