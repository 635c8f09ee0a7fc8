package extract

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-signal-lab/internal/domain"
)

// assertPrice checks a nullable price; want "" means the price must be unset.
func assertPrice(t *testing.T, want string, got decimal.NullDecimal, field string) {
	t.Helper()
	if want == "" {
		assert.False(t, got.Valid, "%s should be unset, got %s", field, got.Decimal)
		return
	}
	require.True(t, got.Valid, "%s should be set", field)
	assert.True(t, decimal.RequireFromString(want).Equal(got.Decimal),
		"%s mismatch: got %s, want %s", field, got.Decimal, want)
}

func TestExtract_FullEnglishSignal(t *testing.T) {
	f, ok := New().Extract("BUY $AAPL @150 TP 160 SL 140")
	require.True(t, ok)

	assert.Equal(t, "AAPL", f.Ticker)
	assert.Equal(t, domain.DirectionBuy, f.Direction)
	assertPrice(t, "150", f.EntryPrice, "entry")
	assertPrice(t, "160", f.TargetPrice, "target")
	assertPrice(t, "140", f.StopLoss, "stop")
	assert.Equal(t, domain.RiskMedium, f.RiskLevel)
	assert.Equal(t, domain.CategoryOther, f.Category)
}

func TestExtract_CyrillicLabels(t *testing.T) {
	f, ok := New().Extract("Вход 100, цель 120, стоп 90")
	require.True(t, ok)

	assert.Empty(t, f.Ticker)
	assert.Empty(t, f.Direction)
	assertPrice(t, "100", f.EntryPrice, "entry")
	assertPrice(t, "120", f.TargetPrice, "target")
	assertPrice(t, "90", f.StopLoss, "stop")
}

func TestExtract_CommaDecimal(t *testing.T) {
	f, ok := New().Extract("цена 1,5")
	require.True(t, ok)
	assertPrice(t, "1.5", f.EntryPrice, "entry")

	f, ok = New().Extract("entry 0,0045 target 0,006")
	require.True(t, ok)
	assertPrice(t, "0.0045", f.EntryPrice, "entry")
	assertPrice(t, "0.006", f.TargetPrice, "target")
}

func TestExtract_ThousandsSeparator(t *testing.T) {
	f, ok := New().Extract("Entry: $1,500.50 target 1,750.00 stop 1,400")
	require.True(t, ok)
	assertPrice(t, "1500.50", f.EntryPrice, "entry")
	assertPrice(t, "1750", f.TargetPrice, "target")
	// Without a decimal point the comma stays a decimal separator.
	assertPrice(t, "1.4", f.StopLoss, "stop")
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"150", "150"},
		{"1.5", "1.5"},
		{"1,5", "1.5"},
		{"1,500", "1.5"},
		{"1,500.50", "1500.5"},
		{"12,345,678.9", "12345678.9"},
	}
	for _, tt := range tests {
		got, err := ParseNumber(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "%s: got %s", tt.in, got)
	}
}

func TestExtract_NoSignal(t *testing.T) {
	tests := []string{
		"hello world",
		"",
		"просто новости рынка без цифр",
		"target 120 stop 90", // neither ticker, entry nor direction
	}

	e := New()
	for _, text := range tests {
		_, ok := e.Extract(text)
		assert.False(t, ok, "expected no signal for %q", text)
	}
}

func TestExtract_BareTickerOnly(t *testing.T) {
	for _, token := range []string{"AA", "NVDA", "TSLA", "MSFT", "GAZP", "ABCDE"} {
		f, ok := New().Extract("watching " + token + " closely")
		require.True(t, ok, token)

		assert.Equal(t, token, f.Ticker)
		assertPrice(t, "", f.EntryPrice, "entry")
		assertPrice(t, "", f.TargetPrice, "target")
		assertPrice(t, "", f.StopLoss, "stop")
	}
}

func TestExtract_TickerRulePriority(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"bare beats hashtag appearing earlier", "#aapl then TSLA", "TSLA"},
		{"hashtag token is also a bare token", "#AAPL and MSFT", "AAPL"},
		{"hashtag when no bare token", "#btc to the moon", "BTC"},
		{"dollar when no bare or hashtag", "grab some $eth", "ETH"},
		{"hashtag beats dollar", "$eth or #sol", "SOL"},
		{"reserved words skipped", "SELL SHORT XYZ", "XYZ"},
		{"six letters is not a ticker", "ABCDEF", ""},
		{"lowercase prose is not a ticker", "buy the dip", ""},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := e.Extract(tt.text)
			assert.Equal(t, tt.want, f.Ticker)
		})
	}
}

func TestExtract_Direction(t *testing.T) {
	tests := []struct {
		text string
		want domain.Direction
	}{
		{"long BTC", domain.DirectionBuy},
		{"Покупка SBER", domain.DirectionBuy},
		{"лонг по эфиру", domain.DirectionBuy},
		{"short TSLA", domain.DirectionSell},
		{"Продажа GAZP", domain.DirectionSell},
		{"шорт нефти", domain.DirectionSell},
		{"buy or sell, your call", domain.DirectionBuy},
		{"neutral on NVDA", ""},
	}

	e := New()
	for _, tt := range tests {
		f, _ := e.Extract(tt.text)
		assert.Equal(t, tt.want, f.Direction, tt.text)
	}
}

func TestExtract_EntryRulePriority(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"AAPL entry: 148 @150 $152", "148"},
		{"AAPL @150 $152", "150"},
		{"SHORT TSLA at 250 stop 270", "250"},
		{"AAPL now $152", "152"},
		{"AAPL entry=$99.5", "99.5"},
		{"купи 42 SBER", "42"},
	}

	e := New()
	for _, tt := range tests {
		f, _ := e.Extract(tt.text)
		assertPrice(t, tt.want, f.EntryPrice, tt.text)
	}
}

func TestExtract_TargetAndStopLabels(t *testing.T) {
	tests := []struct {
		text   string
		target string
		stop   string
	}{
		{"BTC Take profit: 72000 Stop loss 61000", "72000", "61000"},
		{"ETH target=3500 sl=2900", "3500", "2900"},
		{"SBER тп 300 сл 250", "300", "250"},
		{"SBER тейк 300 стоп-лосс", "300", ""},
		{"HTTP 200 OK", "", ""},
	}

	e := New()
	for _, tt := range tests {
		f, _ := e.Extract(tt.text)
		assertPrice(t, tt.target, f.TargetPrice, "target: "+tt.text)
		assertPrice(t, tt.stop, f.StopLoss, "stop: "+tt.text)
	}
}

func TestExtract_RiskAndCategory(t *testing.T) {
	tests := []struct {
		text     string
		risk     domain.RiskLevel
		category domain.Category
	}{
		{"HIGH RISK play on XYZ", domain.RiskHigh, domain.CategoryOther},
		{"Высокий риск, крипто BTC", domain.RiskHigh, domain.CategoryCrypto},
		{"Низкий риск, акции SBER", domain.RiskLow, domain.CategoryStocks},
		{"low risk IPO of ARM", domain.RiskLow, domain.CategoryStocks},
		{"Недвижимость в Дубае, вход 100", domain.RiskMedium, domain.CategoryRealEstate},
		{"STARTUP round, entry 5", domain.RiskMedium, domain.CategoryStartups},
		{"bitcoin and stocks", domain.RiskMedium, domain.CategoryCrypto},
	}

	e := New()
	for _, tt := range tests {
		f, _ := e.Extract(tt.text)
		assert.Equal(t, tt.risk, f.RiskLevel, tt.text)
		assert.Equal(t, tt.category, f.Category, tt.text)
	}
}

func TestExtract_WithoutClassifiers(t *testing.T) {
	e := New(WithoutRisk(), WithoutCategory())

	f, ok := e.Extract("HIGH RISK crypto BTC entry 100")
	require.True(t, ok)

	assert.Equal(t, domain.DefaultRiskLevel, f.RiskLevel)
	assert.Equal(t, domain.DefaultCategory, f.Category)
	assert.Equal(t, "BTC", f.Ticker)
}

func TestExtract_PhraseWordsAreTickersAlone(t *testing.T) {
	for _, token := range []string{"LOW", "HIGH", "TAKE", "LOSS", "RISK", "PROFIT"} {
		f, ok := New().Extract(token)
		require.True(t, ok, token)
		assert.Equal(t, token, f.Ticker)
	}
}

func TestExtract_ReservedPhrasesSkipped(t *testing.T) {
	tests := []struct {
		text   string
		ticker string
	}{
		{"TAKE PROFIT 160 on NVDA", "NVDA"},
		{"STOP LOSS 90 for GAZP", "GAZP"},
		{"HIGH RISK play on XYZ", "XYZ"},
		{"LOW RISK, buy LOW at 210", "LOW"},
		{"TAKE-PROFIT hit", ""},
	}

	e := New()
	for _, tt := range tests {
		f, _ := e.Extract(tt.text)
		assert.Equal(t, tt.ticker, f.Ticker, tt.text)
	}
}

func TestExtract_WithReservedWords(t *testing.T) {
	e := New(WithReservedWords([]string{"CEO"}))

	f, _ := e.Extract("CEO says BUY")
	assert.Equal(t, "BUY", f.Ticker)
}

func TestExtract_Deterministic(t *testing.T) {
	e := New()
	text := "LONG #eth @3100 TP 3400 SL 2950 high risk crypto"

	first, ok1 := e.Extract(text)
	for i := 0; i < 5; i++ {
		again, ok := e.Extract(text)
		assert.Equal(t, ok1, ok)
		assert.Equal(t, first, again)
	}
}

func TestExtractMessage(t *testing.T) {
	e := New()
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("MSK", 3*3600))

	sig := e.ExtractMessage("alpha", domain.Message{ID: 7, Text: "BUY NVDA", Date: date})
	require.NotNil(t, sig)
	assert.Equal(t, "alpha", sig.ChannelUsername)
	assert.Equal(t, int64(7), sig.MessageID)
	assert.Equal(t, "NVDA", sig.Ticker)
	require.NotNil(t, sig.MessageDate)
	assert.True(t, date.Equal(*sig.MessageDate))
	assert.Equal(t, time.UTC, sig.MessageDate.Location())

	assert.Nil(t, e.ExtractMessage("alpha", domain.Message{ID: 8, Text: "   "}))
	assert.Nil(t, e.ExtractMessage("alpha", domain.Message{ID: 9, Text: "hello world"}))

	undated := e.ExtractMessage("alpha", domain.Message{ID: 10, Text: "SELL TSLA"})
	require.NotNil(t, undated)
	assert.Nil(t, undated.MessageDate)
}

func TestExtractMessage_TruncatesText(t *testing.T) {
	text := "BUY SBER " + strings.Repeat("я", 2*domain.MaxMessageTextRunes)

	sig := New().ExtractMessage("alpha", domain.Message{ID: 1, Text: text})
	require.NotNil(t, sig)

	assert.Equal(t, domain.MaxMessageTextRunes, utf8.RuneCountInString(sig.MessageText))
	assert.True(t, utf8.ValidString(sig.MessageText))
}
