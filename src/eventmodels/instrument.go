package eventmodels

// Instrument identifies a tradable symbol, e.g. "AAPL".
type Instrument string

func (i Instrument) GetTicker() string {
	return string(i)
}

func (i Instrument) String() string {
	return string(i)
}
