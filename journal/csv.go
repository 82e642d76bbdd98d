package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	signals *csv.Writer
	trades  *csv.Writer
	equity  *csv.Writer
	files   []*os.File
}

var (
	signalHeader = []string{"signal_id", "time", "symbol", "side", "action", "price", "pnl", "fast_ema", "slow_ema"}
	tradeHeader  = []string{"trade_id", "symbol", "side", "entry_price", "exit_price", "open_time", "close_time", "realized_pl", "reason"}
	equityHeader = []string{"time", "equity", "wins", "losses"}
)

func NewCSV(signalsPath, tradesPath, equityPath string) (*CSVJournal, error) {
	j := &CSVJournal{}

	open := func(path string, header []string) (*csv.Writer, error) {
		fh, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, fh)

		w := csv.NewWriter(fh)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.signals, err = open(signalsPath, signalHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	if j.trades, err = open(tradesPath, tradeHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	if j.equity, err = open(equityPath, equityHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordSignal(s SignalRecord) error {
	pnl := ""
	if s.PnL != nil {
		pnl = f(*s.PnL)
	}
	return write(j.signals, []string{
		s.SignalID,
		s.Time.Format(time.RFC3339),
		s.Symbol,
		s.Side,
		s.Action,
		f(s.Price),
		pnl,
		f(s.FastEMA),
		f(s.SlowEMA),
	})
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	return write(j.trades, []string{
		t.TradeID,
		t.Symbol,
		t.Side,
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.Format(time.RFC3339),
		t.CloseTime.Format(time.RFC3339),
		f(t.RealizedPL),
		t.Reason,
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return write(j.equity, []string{
		e.Time.Format(time.RFC3339),
		f(e.Equity),
		strconv.Itoa(e.Wins),
		strconv.Itoa(e.Losses),
	})
}

func (j *CSVJournal) Close() error {
	for _, w := range []*csv.Writer{j.signals, j.trades, j.equity} {
		w.Flush()
		if err := w.Error(); err != nil {
			j.closeFiles()
			return err
		}
	}
	return j.closeFiles()
}

func (j *CSVJournal) closeFiles() error {
	var first error
	for _, fh := range j.files {
		if err := fh.Close(); err != nil && first == nil {
			first = err
		}
	}
	j.files = nil
	return first
}

func write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
