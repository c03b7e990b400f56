package logger

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerService struct {
	Config        map[string]interface{}
	file          *os.File
	mu            sync.Mutex
	log           *zap.Logger
	currentLog    string
	level         zapcore.Level
	console       bool
	retentionDays int
	folderPath    string
	now           func() time.Time
}

func NewLoggerService(config map[string]interface{}) *LoggerService {
	retention := toInt(config["retention_days"])
	folder, _ := config["folder_path"].(string)
	if folder == "" {
		folder = "./logs"
	}
	level := zapcore.InfoLevel
	if s, ok := config["level"].(string); ok && s != "" {
		if parsed, err := zapcore.ParseLevel(s); err == nil {
			level = parsed
		}
	}
	console := true
	if b, ok := config["console"].(bool); ok {
		console = b
	}
	return &LoggerService{
		Config:        config,
		level:         level,
		console:       console,
		retentionDays: retention,
		folderPath:    folder,
		now:           time.Now,
	}
}

func (l *LoggerService) Name() string {
	return "logger"
}

// Start opens a fresh JSON log file in the folder, tees it with the console
// and archives logs older than the retention window.
func (l *LoggerService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.folderPath, 0755); err != nil {
		return err
	}
	l.zipAndCleanOldLogs()

	logFile := l.nextLogFileName()
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.currentLog = logFile

	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(file), l.level),
	}
	if l.console {
		consoleEnc := zap.NewDevelopmentEncoderConfig()
		consoleEnc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.Lock(os.Stderr), l.level))
	}
	l.log = zap.New(zapcore.NewTee(cores...))
	l.log.Info("logger started", zap.String("file", logFile))
	return nil
}

func (l *LoggerService) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.log != nil {
		l.log.Info("logger stopping")
		_ = l.log.Sync()
	}
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Logger returns the active logger, or a no-op logger before Start.
func (l *LoggerService) Logger() *zap.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.log == nil {
		return zap.NewNop()
	}
	return l.log
}

func (l *LoggerService) CurrentFile() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentLog
}

func (l *LoggerService) nextLogFileName() string {
	timestamp := l.now().Format("20060102_150405")
	return filepath.Join(l.folderPath, fmt.Sprintf("app_%s.log", timestamp))
}

// zipAndCleanOldLogs moves .log files older than the retention window into a
// dated zip and removes them.
func (l *LoggerService) zipAndCleanOldLogs() {
	if l.retentionDays <= 0 {
		return
	}
	cutoff := l.now().AddDate(0, 0, -l.retentionDays)
	files, err := os.ReadDir(l.folderPath)
	if err != nil {
		return
	}

	var old []string
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".log" {
			continue
		}
		info, err := f.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		old = append(old, f.Name())
	}
	if len(old) == 0 {
		return
	}

	zipName := filepath.Join(l.folderPath, fmt.Sprintf("logs_%s.zip", l.now().Format("20060102")))
	archived, err := writeArchive(zipName, l.folderPath, old)
	if err != nil {
		return
	}
	for _, name := range archived {
		os.Remove(filepath.Join(l.folderPath, name))
	}
}

// writeArchive rewrites zipName with its existing entries plus the named
// files from dir, and returns the files that made it into the archive. The
// new archive replaces the old one only after it is fully written.
func writeArchive(zipName, dir string, names []string) ([]string, error) {
	tmpName := zipName + ".tmp"
	out, err := os.Create(tmpName)
	if err != nil {
		return nil, err
	}
	zw := zip.NewWriter(out)
	fail := func(err error) ([]string, error) {
		zw.Close()
		out.Close()
		os.Remove(tmpName)
		return nil, err
	}

	if prev, err := zip.OpenReader(zipName); err == nil {
		for _, f := range prev.File {
			if err := zw.Copy(f); err != nil {
				prev.Close()
				return fail(err)
			}
		}
		prev.Close()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fail(err)
	}

	var archived []string
	for _, name := range names {
		src, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			src.Close()
			return fail(err)
		}
		_, err = io.Copy(w, src)
		src.Close()
		if err != nil {
			return fail(err)
		}
		archived = append(archived, name)
	}

	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(tmpName)
		return nil, err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpName)
		return nil, err
	}
	if err := os.Rename(tmpName, zipName); err != nil {
		os.Remove(tmpName)
		return nil, err
	}
	return archived, nil
}

// LogAudit records a run-level event, e.g. a load or a sheet append.
func (l *LoggerService) LogAudit(msg string, fields ...zap.Field) {
	l.Logger().Info(msg, append(fields, zap.Bool("audit", true))...)
}

var GlobalLogger *LoggerService

func SetGlobalLogger(l *LoggerService) {
	GlobalLogger = l
}

// L returns the global logger, or a no-op logger when none is running.
func L() *zap.Logger {
	if GlobalLogger == nil {
		return zap.NewNop()
	}
	return GlobalLogger.Logger()
}

func toInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		var parsed int
		if _, err := fmt.Sscanf(strings.TrimSpace(t), "%d", &parsed); err == nil {
			return parsed
		}
	}
	return 0
}
