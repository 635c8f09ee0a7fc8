package extract

import (
	"regexp"

	"telegram-signal-lab/internal/domain"
)

// Rule is one pattern attempt in a first-match-wins chain.
// Pattern must capture the value in group 1.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// KeywordRule maps any of Keywords, found as a substring of the upper-cased
// text, to Value.
type KeywordRule[T any] struct {
	Keywords []string
	Value    T
}

const (
	// labelStart keeps labels from matching inside words ("HTTP 200" is not a TP).
	labelStart = `(?:^|[^\p{L}\p{N}])`
	// labelSep allows "TP: 160", "TP=160", "TP $160".
	labelSep = `[\s:=]*\$?\s*`
	// number takes "1,500.50" whole (comma grouping) before the plain
	// "1,5" / "1.5" forms.
	number = `(\d{1,3}(?:,\d{3})+\.\d+|\d+(?:[.,]\d+)?)`
)

func labelled(labels string) *regexp.Regexp {
	return regexp.MustCompile(labelStart + `(?:` + labels + `)` + labelSep + number)
}

// TickerRules run against the original text. The bare rule is case-sensitive
// so lowercase prose never yields a ticker; prefixed forms accept any case.
var TickerRules = []Rule{
	{Name: "bare", Pattern: regexp.MustCompile(`\b([A-Z]{1,5})\b`)},
	{Name: "hashtag", Pattern: regexp.MustCompile(`#([A-Za-z]{1,5})\b`)},
	{Name: "dollar", Pattern: regexp.MustCompile(`\$([A-Za-z]{1,5})\b`)},
}

// ReservedWords are direction and label tokens that are never tickers.
var ReservedWords = []string{
	"BUY", "SELL", "LONG", "SHORT",
	"TP", "SL", "AT",
	"ENTRY", "STOP", "TARGET", "PRICE",
}

// ReservedPhrases matches multi-word markers. Their words are skipped as
// tickers only inside a match, so a lone LOW or TAKE can still be one.
var ReservedPhrases = regexp.MustCompile(`(?i)\b(?:TAKE[\s-]?PROFIT|STOP[\s-]?LOSS|(?:HIGH|LOW)\s+RISK)\b`)

// EntryRules run against the upper-cased text.
var EntryRules = []Rule{
	{Name: "label", Pattern: labelled(`ENTRY|ВХОД|PRICE|ЦЕНА|BUY|КУПИ`)},
	{Name: "at", Pattern: regexp.MustCompile(`(?:@|` + labelStart + `AT\s)\s*\$?\s*` + number)},
	{Name: "dollar", Pattern: regexp.MustCompile(`\$\s*` + number)},
}

// TargetRules run against the upper-cased text.
var TargetRules = []Rule{
	{Name: "label", Pattern: labelled(`TAKE[\s-]?PROFIT|TARGET|ЦЕЛЬ|TP|ТЕЙК|ТП`)},
}

// StopRules run against the upper-cased text.
var StopRules = []Rule{
	{Name: "label", Pattern: labelled(`STOP[\s-]?LOSS|STOP|SL|СТОП|СЛ`)},
}

// DirectionRules are checked in order; BUY wins over SELL.
var DirectionRules = []KeywordRule[domain.Direction]{
	{Keywords: []string{"BUY", "LONG", "ПОКУПКА", "КУПИТЬ", "ЛОНГ"}, Value: domain.DirectionBuy},
	{Keywords: []string{"SELL", "SHORT", "ПРОДАЖА", "ПРОДАТЬ", "ШОРТ"}, Value: domain.DirectionSell},
}

// RiskRules are checked in order; default is domain.DefaultRiskLevel.
var RiskRules = []KeywordRule[domain.RiskLevel]{
	{Keywords: []string{"ВЫСОКИЙ РИСК", "HIGH RISK", "РИСКОВАННО"}, Value: domain.RiskHigh},
	{Keywords: []string{"НИЗКИЙ РИСК", "LOW RISK", "БЕЗОПАСНО"}, Value: domain.RiskLow},
}

// CategoryRules are checked in order; default is domain.DefaultCategory.
var CategoryRules = []KeywordRule[domain.Category]{
	{Keywords: []string{"КРИПТО", "CRYPTO", "BTC", "ETH", "BITCOIN"}, Value: domain.CategoryCrypto},
	{Keywords: []string{"АКЦИ", "STOCK", "IPO"}, Value: domain.CategoryStocks},
	{Keywords: []string{"НЕДВИЖ", "REAL ESTATE"}, Value: domain.CategoryRealEstate},
	{Keywords: []string{"СТАРТАП", "STARTUP"}, Value: domain.CategoryStartups},
}
