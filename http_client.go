package main

import (
	"net/http"
	"time"
)

// sheetHTTPTimeout bounds a single values.get fetch. The advice call
// does not use this client; it carries its own context deadline in the
// Slack layer.
const sheetHTTPTimeout = 30 * time.Second

var sheetHTTPClient = &http.Client{
	Timeout: sheetHTTPTimeout,
}
