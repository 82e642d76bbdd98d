package journal

import (
	"fmt"
	"io"
	"text/template"
	"time"
)

// Session summarizes one engine run, live or simulated.
type Session struct {
	SessionID string
	Created   time.Time
	Symbol    string
	Source    string // "backend" or "synthetic"

	FastPeriod int
	SlowPeriod int

	Trades int
	Wins   int
	Losses int

	StartEquity float64
	EndEquity   float64
}

func (s Session) NetPL() float64 {
	return s.EndEquity - s.StartEquity
}

func (s Session) ReturnPct() float64 {
	if s.StartEquity == 0 {
		return 0
	}
	return s.NetPL() / s.StartEquity * 100
}

func (s Session) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades) * 100
}

var sessionOrgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var sessionOrg = template.Must(template.New("session").Funcs(sessionOrgFuncs).Parse(SessionOrgTemplate))

// WriteOrg renders the session summary as an Org-mode block.
func (s Session) WriteOrg(w io.Writer) error {
	if err := sessionOrg.Execute(w, s); err != nil {
		return fmt.Errorf("render session: %w", err)
	}
	return nil
}

const SessionOrgTemplate = `* SESSION: EMA-Cross {{.Symbol}} ({{.FastPeriod}}/{{.SlowPeriod}})
:PROPERTIES:
:SESSION_ID:  {{if .SessionID}}{{.SessionID}}{{else}}(session-id?){{end}}
:STRATEGY:    ema_cross
:SYMBOL:      {{.Symbol}}
:SOURCE:      {{.Source}}
:START_EQ:    {{printf "%.2f" .StartEquity}}
:END_EQ:      {{printf "%.2f" .EndEquity}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |
`
