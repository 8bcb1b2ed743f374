// Package persistence keeps the watchdog's recovery counters on disk so they
// survive process restarts and host reboots.
package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jerkytreats/nwwatchdog/internal/logging"
)

const backupTimeFormat = "20060102-150405.000000000"

// FileStorage is a single durable record with atomic replacement and
// optional rolling backups.
type FileStorage struct {
	filePath    string
	backupCount int
	mutex       sync.RWMutex
}

// NewFileStorage creates storage for filePath keeping at most backupCount
// backups. Zero disables backups.
func NewFileStorage(filePath string, backupCount int) *FileStorage {
	return &FileStorage{
		filePath:    filePath,
		backupCount: backupCount,
	}
}

// Read returns the record contents. A missing file yields (nil, nil); an
// unreadable one falls back to the newest backup.
func (fs *FileStorage) Read() ([]byte, error) {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()

	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Debug("Record %s does not exist yet", fs.filePath)
			return nil, nil
		}

		logging.Warn("Failed to read %s, attempting recovery from backup: %v", fs.filePath, err)
		return fs.recoverFromBackup()
	}

	return data, nil
}

// Write atomically replaces the record: the data goes to a temp file in the
// same directory, is fsynced, then renamed over the target.
func (fs *FileStorage) Write(data []byte) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(fs.filePath), 0755); err != nil {
		return fmt.Errorf("failed to ensure storage directory: %w", err)
	}

	if fs.backupCount > 0 {
		if err := fs.createBackup(); err != nil {
			logging.Warn("Failed to create backup of %s: %v", fs.filePath, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.filePath), filepath.Base(fs.filePath)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions on temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, fs.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move temporary file to target: %w", err)
	}
	syncDir(filepath.Dir(fs.filePath))

	if err := fs.cleanupOldBackups(); err != nil {
		logging.Warn("Failed to cleanup old backups: %v", err)
	}
	return nil
}

// syncDir flushes the directory entry of a rename; best effort.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}

// Exists checks if the record file exists.
func (fs *FileStorage) Exists() bool {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()

	_, err := os.Stat(fs.filePath)
	return err == nil
}

// Path returns the record file path.
func (fs *FileStorage) Path() string {
	return fs.filePath
}

// RecoverFromBackup returns the newest backup's contents.
func (fs *FileStorage) RecoverFromBackup() ([]byte, error) {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()
	return fs.recoverFromBackup()
}

func (fs *FileStorage) createBackup() error {
	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read current file for backup: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup.%s", fs.filePath, time.Now().UTC().Format(backupTimeFormat))
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}

	logging.Debug("Created backup: %s", backupPath)
	return nil
}

func (fs *FileStorage) cleanupOldBackups() error {
	if fs.backupCount <= 0 {
		return nil
	}

	backups, err := fs.listBackups()
	if err != nil {
		return err
	}

	dir := filepath.Dir(fs.filePath)
	for i := fs.backupCount; i < len(backups); i++ {
		backupPath := filepath.Join(dir, backups[i])
		if err := os.Remove(backupPath); err != nil {
			logging.Warn("Failed to remove old backup %s: %v", backupPath, err)
		} else {
			logging.Debug("Removed old backup: %s", backupPath)
		}
	}
	return nil
}

func (fs *FileStorage) recoverFromBackup() ([]byte, error) {
	backups, err := fs.listBackups()
	if err != nil {
		return nil, fmt.Errorf("failed to list backups for recovery: %w", err)
	}
	if len(backups) == 0 {
		return nil, fmt.Errorf("no backup files found for %s", fs.filePath)
	}

	newest := filepath.Join(filepath.Dir(fs.filePath), backups[0])
	data, err := os.ReadFile(newest)
	if err != nil {
		return nil, fmt.Errorf("failed to read most recent backup %s: %w", newest, err)
	}

	logging.Info("Recovered %s from backup %s", fs.filePath, newest)
	return data, nil
}

// ListBackups returns backup file names, newest first.
func (fs *FileStorage) ListBackups() ([]string, error) {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()
	return fs.listBackups()
}

func (fs *FileStorage) listBackups() ([]string, error) {
	dir := filepath.Dir(fs.filePath)
	pattern := filepath.Base(fs.filePath) + ".backup.*"

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		if matched, _ := filepath.Match(pattern, entry.Name()); matched {
			backups = append(backups, entry.Name())
		}
	}

	sort.Slice(backups, func(i, j int) bool {
		return extractTimestamp(backups[i]) > extractTimestamp(backups[j])
	})
	return backups, nil
}

func extractTimestamp(filename string) string {
	parts := strings.Split(filename, ".backup.")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}
