package influxdb

import "errors"

// Sentinel errors, matched with errors.Is. Write failures are not here:
// writes are asynchronous and report through SetOnError.
var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrQueryFailed      = errors.New("influxdb: query failed")
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
)
