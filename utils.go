package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// AppLogger provides extended diagnostics: per-player prompt logs, provider
// HTTP traffic, database dumps and debug lines. Everything is off by default.
type AppLogger struct {
	outputDir    string
	logPrompts   bool
	logRequests  bool
	logDB        bool
	debug        bool
	requestLog   *os.File
	dbLog        *os.File
	promptLogs   map[string]*os.File
	db           *sqlx.DB
	mu           sync.Mutex
	requestCount int
	promptCount  int
}

// Global application logger
var appLogger *AppLogger

// LogConfig holds logging configuration
type LogConfig struct {
	OutputDir   string
	LogPrompts  bool
	LogRequests bool
	LogDB       bool
	Debug       bool
}

// NewAppLogger creates a new application logger
func NewAppLogger(config LogConfig) (*AppLogger, error) {
	al := &AppLogger{
		outputDir:   config.OutputDir,
		logPrompts:  config.LogPrompts,
		logRequests: config.LogRequests,
		logDB:       config.LogDB,
		debug:       config.Debug,
		promptLogs:  make(map[string]*os.File),
	}

	if al.outputDir == "" {
		return al, nil // No file logging, debug lines only
	}
	if err := os.MkdirAll(al.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	var err error
	if al.logRequests {
		path := filepath.Join(al.outputDir, "requests.log")
		al.requestLog, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open request log: %w", err)
		}
	}
	if al.logDB {
		path := filepath.Join(al.outputDir, "database.log")
		al.dbLog, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open database log: %w", err)
		}
	}

	return al, nil
}

// InitAppLogger initializes the global application logger
func InitAppLogger(config LogConfig) error {
	var err error
	appLogger, err = NewAppLogger(config)
	return err
}

// attachDB sets the database dumped by LogDB.
func (al *AppLogger) attachDB(conn *sqlx.DB) {
	al.mu.Lock()
	defer al.mu.Unlock()
	al.db = conn
}

// Close closes all open log files
func (al *AppLogger) Close() {
	al.mu.Lock()
	defer al.mu.Unlock()
	if al.requestLog != nil {
		al.requestLog.Close()
	}
	if al.dbLog != nil {
		al.dbLog.Close()
	}
	for _, f := range al.promptLogs {
		f.Close()
	}
}

var unsafeLogChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LogPrompt appends one prompt/response exchange to <dir>/<player>_history.log
func (al *AppLogger) LogPrompt(player string, turn int, system, prompt, response string) {
	if !al.logPrompts || al.outputDir == "" {
		return
	}

	al.mu.Lock()
	defer al.mu.Unlock()

	f, ok := al.promptLogs[player]
	if !ok {
		path := filepath.Join(al.outputDir, unsafeLogChars.ReplaceAllString(player, "_")+"_history.log")
		var err error
		f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("Failed to open prompt log for %s: %v", player, err)
			return
		}
		al.promptLogs[player] = f
	}

	al.promptCount++
	timestamp := time.Now().Format("15:04:05.000")

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\n========== TURN %d (#%d) [%s] ==========\n", turn, al.promptCount, timestamp)
	fmt.Fprintf(&buf, "--- System ---\n%s\n", system)
	fmt.Fprintf(&buf, "--- Prompt ---\n%s\n", prompt)
	fmt.Fprintf(&buf, "--- Response ---\n%s\n", response)
	f.Write(buf.Bytes())
}

// LogRequest logs an HTTP request and response
func (al *AppLogger) LogRequest(method, url string, reqBody []byte, resp *http.Response, respBody []byte) {
	if !al.logRequests || al.requestLog == nil {
		return
	}

	al.mu.Lock()
	defer al.mu.Unlock()

	al.requestCount++
	timestamp := time.Now().Format("15:04:05.000")

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\n========== REQUEST #%d [%s] ==========\n", al.requestCount, timestamp)
	fmt.Fprintf(&buf, "%s %s\n", method, url)

	if len(reqBody) > 0 {
		fmt.Fprintf(&buf, "\n--- Request Body ---\n")
		buf.Write(reqBody)
		buf.WriteString("\n")
	}

	if resp != nil {
		fmt.Fprintf(&buf, "\n--- Response [%d %s] ---\n", resp.StatusCode, resp.Status)
	}

	if len(respBody) > 0 {
		fmt.Fprintf(&buf, "\n--- Response Body ---\n")
		if len(respBody) > 5000 {
			buf.Write(respBody[:5000])
			fmt.Fprintf(&buf, "\n... (truncated, %d bytes total)\n", len(respBody))
		} else {
			buf.Write(respBody)
		}
		buf.WriteString("\n")
	}

	al.requestLog.Write(buf.Bytes())
}

// LogDB dumps the current database state
func (al *AppLogger) LogDB(context string) {
	if !al.logDB || al.dbLog == nil || al.db == nil {
		return
	}

	al.mu.Lock()
	defer al.mu.Unlock()

	timestamp := time.Now().Format("15:04:05.000")

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\n========== DATABASE DUMP [%s] ==========\n", timestamp)
	fmt.Fprintf(&buf, "Context: %s\n\n", context)

	var tables []string
	if err := al.db.Select(&tables, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name"); err != nil {
		fmt.Fprintf(&buf, "Error getting tables: %v\n", err)
		al.dbLog.Write(buf.Bytes())
		return
	}

	for _, table := range tables {
		fmt.Fprintf(&buf, "--- Table: %s ---\n", table)

		rows, err := al.db.Queryx("SELECT * FROM " + table)
		if err != nil {
			fmt.Fprintf(&buf, "Error: %v\n\n", err)
			continue
		}

		cols, err := rows.Columns()
		if err != nil {
			fmt.Fprintf(&buf, "Error getting columns: %v\n\n", err)
			rows.Close()
			continue
		}
		fmt.Fprintf(&buf, "Columns: %s\n", strings.Join(cols, " | "))

		rowCount := 0
		for rows.Next() {
			rowCount++
			values, err := rows.SliceScan()
			if err != nil {
				fmt.Fprintf(&buf, "Error scanning row: %v\n", err)
				continue
			}

			var rowStr []string
			for _, v := range values {
				switch val := v.(type) {
				case nil:
					rowStr = append(rowStr, "NULL")
				case []byte:
					rowStr = append(rowStr, string(val))
				default:
					rowStr = append(rowStr, fmt.Sprintf("%v", val))
				}
			}
			fmt.Fprintf(&buf, "Row %d: %s\n", rowCount, strings.Join(rowStr, " | "))
		}
		rows.Close()

		if rowCount == 0 {
			fmt.Fprintf(&buf, "(empty)\n")
		}
		buf.WriteString("\n")
	}

	al.dbLog.Write(buf.Bytes())
}

// Debug logs a debug message if debug mode is enabled
func (al *AppLogger) Debug(format string, args ...any) {
	if !al.debug {
		return
	}
	log.Printf("[DEBUG] "+format, args...)
}

// IsEnabled returns true if any logging is enabled
func (al *AppLogger) IsEnabled() bool {
	return al.logPrompts || al.logRequests || al.logDB || al.debug
}

// ============================================================================
// HTTP Middleware
// ============================================================================

// LoggingRoundTripper wraps http.RoundTripper to log provider requests
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Logger    *AppLogger
}

func (l *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var reqBody []byte
	if req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(reqBody))
	}

	resp, err := l.Transport.RoundTrip(req)
	if err != nil {
		l.Logger.LogRequest(req.Method, req.URL.String(), reqBody, nil, nil)
		return resp, err
	}

	var respBody []byte
	if resp.Body != nil {
		respBody, _ = io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewBuffer(respBody))
	}

	l.Logger.LogRequest(req.Method, req.URL.String(), reqBody, resp, respBody)
	return resp, err
}

// providerHTTPClient returns a client that records provider traffic when
// request logging is on, and nil otherwise (provider default client).
func providerHTTPClient() *http.Client {
	if appLogger == nil || !appLogger.logRequests {
		return nil
	}
	return &http.Client{Transport: &LoggingRoundTripper{Transport: http.DefaultTransport, Logger: appLogger}}
}

// LoggingHandler wraps http.Handler to log spectator requests/responses
// Note: WebSocket requests (/ws) are passed through without recording
// because they require http.Hijacker which ResponseRecorder doesn't support
type LoggingHandler struct {
	Handler http.Handler
	Logger  *AppLogger
}

func (l *LoggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/ws" {
		l.Logger.LogRequest(r.Method, r.URL.String(), nil, nil, []byte("[WebSocket upgrade]"))
		l.Handler.ServeHTTP(w, r)
		return
	}

	rec := httptest.NewRecorder()
	l.Handler.ServeHTTP(rec, r)

	for k, v := range rec.Header() {
		w.Header()[k] = v
	}
	w.WriteHeader(rec.Code)
	respBody := rec.Body.Bytes()
	w.Write(respBody)

	l.Logger.LogRequest(r.Method, r.URL.String(), nil, &http.Response{
		StatusCode: rec.Code,
		Status:     http.StatusText(rec.Code),
		Header:     rec.Header(),
	}, respBody)
}

func disableCaching(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// ============================================================================
// Global helper functions
// ============================================================================

func logError(context string, err error) {
	log.Printf("ERROR [%s]: %v", context, err)
}

// LogPromptExchange logs a prompt/response pair using the global logger
func LogPromptExchange(player string, turn int, system, prompt, response string) {
	if appLogger != nil {
		appLogger.LogPrompt(player, turn, system, prompt, response)
	}
}

// LogDBState logs the database state using the global logger
func LogDBState(context string) {
	if appLogger != nil {
		appLogger.LogDB(context)
	}
}

// DebugLog logs a debug message using the global logger
func DebugLog(where, format string, args ...any) {
	if appLogger != nil {
		appLogger.Debug("["+where+"] "+format, args...)
	}
}

// CloseAppLogger closes the global application logger
func CloseAppLogger() {
	if appLogger != nil {
		appLogger.Close()
	}
}
