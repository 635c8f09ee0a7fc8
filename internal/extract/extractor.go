// Package extract turns free-form channel messages into structured signal fields.
package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"telegram-signal-lab/internal/domain"
)

// Fields holds everything extracted from one message.
type Fields struct {
	Ticker      string
	Direction   domain.Direction
	EntryPrice  decimal.NullDecimal
	TargetPrice decimal.NullDecimal
	StopLoss    decimal.NullDecimal
	RiskLevel   domain.RiskLevel
	Category    domain.Category
}

// IsSignal reports whether the fields carry a ticker, an entry price or a direction.
func (f *Fields) IsSignal() bool {
	return f.Ticker != "" || f.EntryPrice.Valid || f.Direction != ""
}

// ToSignal builds the row stored for a message of the given channel.
func (f *Fields) ToSignal(channel string, msg domain.Message) *domain.Signal {
	s := &domain.Signal{
		ChannelUsername: channel,
		MessageID:       msg.ID,
		MessageText:     domain.TruncateText(msg.Text, domain.MaxMessageTextRunes),
		Ticker:          f.Ticker,
		Direction:       f.Direction,
		EntryPrice:      f.EntryPrice,
		TargetPrice:     f.TargetPrice,
		StopLoss:        f.StopLoss,
		RiskLevel:       f.RiskLevel,
		Category:        f.Category,
	}
	if !msg.Date.IsZero() {
		date := msg.Date.UTC()
		s.MessageDate = &date
	}
	return s
}

// Extractor applies ordered rule tables to message text.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	tickerRules    []Rule
	entryRules     []Rule
	targetRules    []Rule
	stopRules      []Rule
	directionRules []KeywordRule[domain.Direction]
	riskRules      []KeywordRule[domain.RiskLevel]
	categoryRules  []KeywordRule[domain.Category]
	reserved       map[string]struct{}
	phrases        *regexp.Regexp
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithoutRisk disables risk classification; RiskLevel stays at the default.
func WithoutRisk() Option {
	return func(e *Extractor) { e.riskRules = nil }
}

// WithoutCategory disables category classification; Category stays at the default.
func WithoutCategory() Option {
	return func(e *Extractor) { e.categoryRules = nil }
}

// WithReservedWords replaces the set of tokens never accepted as tickers.
func WithReservedWords(words []string) Option {
	return func(e *Extractor) { e.reserved = toSet(words) }
}

// New creates an Extractor over the package rule tables.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		tickerRules:    TickerRules,
		entryRules:     EntryRules,
		targetRules:    TargetRules,
		stopRules:      StopRules,
		directionRules: DirectionRules,
		riskRules:      RiskRules,
		categoryRules:  CategoryRules,
		reserved:       toSet(ReservedWords),
		phrases:        ReservedPhrases,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses text. The second result is false when no signal was found;
// the returned fields are still populated with whatever matched.
func (e *Extractor) Extract(text string) (*Fields, bool) {
	upper := strings.ToUpper(text)

	f := &Fields{
		Ticker:      e.ticker(text),
		Direction:   firstKeyword(upper, e.directionRules, ""),
		EntryPrice:  firstPrice(upper, e.entryRules),
		TargetPrice: firstPrice(upper, e.targetRules),
		StopLoss:    firstPrice(upper, e.stopRules),
		RiskLevel:   firstKeyword(upper, e.riskRules, domain.DefaultRiskLevel),
		Category:    firstKeyword(upper, e.categoryRules, domain.DefaultCategory),
	}

	return f, f.IsSignal()
}

// ExtractMessage is Extract followed by ToSignal. Returns nil for messages
// with empty text or without a signal.
func (e *Extractor) ExtractMessage(channel string, msg domain.Message) *domain.Signal {
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	f, ok := e.Extract(msg.Text)
	if !ok {
		return nil
	}
	return f.ToSignal(channel, msg)
}

// ticker returns the first non-reserved token of the first rule that has one.
// Tokens inside a reserved phrase ("TAKE PROFIT") are skipped.
func (e *Extractor) ticker(text string) string {
	var phrases [][]int
	if e.phrases != nil {
		phrases = e.phrases.FindAllStringIndex(text, -1)
	}

	for _, rule := range e.tickerRules {
		for _, m := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2], m[3]
			token := strings.ToUpper(text[start:end])
			if _, skip := e.reserved[token]; skip {
				continue
			}
			if withinAny(phrases, start, end) {
				continue
			}
			return token
		}
	}
	return ""
}

func withinAny(spans [][]int, start, end int) bool {
	for _, s := range spans {
		if start >= s[0] && end <= s[1] {
			return true
		}
	}
	return false
}

func firstPrice(upper string, rules []Rule) decimal.NullDecimal {
	for _, rule := range rules {
		m := rule.Pattern.FindStringSubmatch(upper)
		if m == nil {
			continue
		}
		if d, err := ParseNumber(m[1]); err == nil {
			return decimal.NewNullDecimal(d)
		}
	}
	return decimal.NullDecimal{}
}

func firstKeyword[T any](upper string, rules []KeywordRule[T], fallback T) T {
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(upper, kw) {
				return rule.Value
			}
		}
	}
	return fallback
}

// ParseNumber parses a captured numeral. A lone comma is a decimal separator
// ("1,5" is 1.5); commas before a decimal point group thousands
// ("1,500.50" is 1500.50).
func ParseNumber(s string) (decimal.Decimal, error) {
	if strings.Contains(s, ".") {
		return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	}
	return decimal.NewFromString(strings.Replace(s, ",", ".", 1))
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToUpper(w)] = struct{}{}
	}
	return set
}
