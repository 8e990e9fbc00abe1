package models

import "fmt"

var ErrInvalidConfig = fmt.Errorf("invalid configuration")
var ErrInsufficientData = fmt.Errorf("insufficient data")
var ErrDataUnavailable = fmt.Errorf("data unavailable")
var ErrComputation = fmt.Errorf("computation error")

var ErrInvalidHurstExponent = fmt.Errorf("hurst exponent must be between 0 and 1")
var ErrInvalidVolatility = fmt.Errorf("volatility must be non-negative")
var ErrInvalidHealthFactor = fmt.Errorf("health factor must be positive")
var ErrPositionAmountZero = fmt.Errorf("position amount must be non zero")
var ErrInvalidEntryPrice = fmt.Errorf("entry price must be greater than 0")
var ErrTradeAmountZero = fmt.Errorf("trade amount must be non zero")
var ErrInvalidTradePrice = fmt.Errorf("trade price must be greater than 0")
var ErrNoTimestamp = fmt.Errorf("timestamp not set")
