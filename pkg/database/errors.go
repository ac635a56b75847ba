package database

import "errors"

// ErrNotReady is reported by Ready until the first successful ping.
var ErrNotReady = errors.New("database not ready")
