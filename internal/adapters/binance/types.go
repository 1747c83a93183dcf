package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// rawKline es una fila de /api/v3/klines:
// [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
type rawKline struct {
	OpenTime int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// UnmarshalJSON decodifica el array heterogéneo de Binance.
func (k *rawKline) UnmarshalJSON(b []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	if len(fields) < 6 {
		return fmt.Errorf("kline: expected >= 6 fields, got %d", len(fields))
	}
	if err := json.Unmarshal(fields[0], &k.OpenTime); err != nil {
		return fmt.Errorf("kline open time: %w", err)
	}

	dst := []*float64{&k.Open, &k.High, &k.Low, &k.Close, &k.Volume}
	for i, p := range dst {
		var s string
		if err := json.Unmarshal(fields[i+1], &s); err != nil {
			return fmt.Errorf("kline field %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("kline field %d: %w", i+1, err)
		}
		*p = v
	}
	return nil
}
