// Package obs holds the observability plumbing for the achievio API:
// one JSON-line logger shared by the request middleware and the audit
// trail, plus the Prometheus metrics for HTTP traffic, auth attempts
// and achievement awards.
package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the process-wide line logger. Every log producer in
// the service (request logging, audit entries, award events) writes
// through it so output stays one JSON object per line on stdout.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest marshals the entry to a single JSON line. Entries that
// fail to marshal are replaced, not dropped, so the line count still
// matches the request count.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"ts":"error","level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
