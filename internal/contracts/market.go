package contracts

import "time"

// Quote is a point-in-time market snapshot of an underlying
// ⭐ SSOT: Provider → Screener 시세 데이터 전달
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Volume        int64     `json:"volume"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PreviousClose float64   `json:"previous_close"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Timestamp     time.Time `json:"timestamp"`
}

// Bar is one daily OHLCV candle. Series are ordered oldest first.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// TechnicalIndicators holds indicator values computed from a bar series.
// A nil field means the series was too short for that indicator.
type TechnicalIndicators struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`

	SMA20  *float64 `json:"sma_20,omitempty"`
	SMA50  *float64 `json:"sma_50,omitempty"`
	SMA60  *float64 `json:"sma_60,omitempty"`
	SMA200 *float64 `json:"sma_200,omitempty"`

	EMA12 *float64 `json:"ema_12,omitempty"`
	EMA26 *float64 `json:"ema_26,omitempty"`

	RSI14 *float64 `json:"rsi_14,omitempty"`

	MACD          *float64 `json:"macd,omitempty"`
	MACDSignal    *float64 `json:"macd_signal,omitempty"`
	MACDHistogram *float64 `json:"macd_histogram,omitempty"`

	VolumeAvg20 *float64 `json:"volume_avg_20,omitempty"`
	VolumeAvg50 *float64 `json:"volume_avg_50,omitempty"`

	BollingerUpper  *float64 `json:"bollinger_upper,omitempty"`
	BollingerMiddle *float64 `json:"bollinger_middle,omitempty"`
	BollingerLower  *float64 `json:"bollinger_lower,omitempty"`

	ATR14 *float64 `json:"atr_14,omitempty"`
}

// SMA returns the simple moving average for a supported period
func (t *TechnicalIndicators) SMA(period int) *float64 {
	if t == nil {
		return nil
	}
	switch period {
	case 20:
		return t.SMA20
	case 50:
		return t.SMA50
	case 60:
		return t.SMA60
	case 200:
		return t.SMA200
	}
	return nil
}

// EMA returns the exponential moving average for a supported period
func (t *TechnicalIndicators) EMA(period int) *float64 {
	if t == nil {
		return nil
	}
	switch period {
	case 12:
		return t.EMA12
	case 26:
		return t.EMA26
	}
	return nil
}
