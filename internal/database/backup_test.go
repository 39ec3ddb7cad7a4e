package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"staybook/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	tempDir := t.TempDir()
	logger := zerolog.Nop()

	db, err := NewDB(filepath.Join(tempDir, "source.db"), &logger)
	require.NoError(t, err)
	defer db.Close()
	createTestUser(t, db, "backed-up")

	storagePath := filepath.Join(tempDir, "backups")
	s := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: storagePath, KeepLast: 2}, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(context.Background())
		require.NoError(t, err)
		assert.FileExists(t, path)

		// Open a copy so sqlite side files stay out of the backup directory.
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		copyPath := filepath.Join(t.TempDir(), "restored.db")
		require.NoError(t, os.WriteFile(copyPath, data, 0o644))

		restored, err := NewDB(copyPath, &logger)
		require.NoError(t, err)
		defer restored.Close()
		u, err := restored.GetUserByUsername(context.Background(), "backed-up")
		require.NoError(t, err)
		assert.Equal(t, "backed-up@example.com", u.Email)
	})

	t.Run("CleanupKeepsNewest", func(t *testing.T) {
		base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			stamp := base.Add(time.Duration(i) * time.Hour)
			s.now = func() time.Time { return stamp }
			_, err := s.PerformBackup(context.Background())
			require.NoError(t, err)
		}
		// Unrelated files are left alone.
		require.NoError(t, os.WriteFile(filepath.Join(storagePath, "notes.txt"), []byte("x"), 0o644))

		s.CleanupOldBackups()

		files, err := os.ReadDir(storagePath)
		require.NoError(t, err)
		var names []string
		for _, f := range files {
			names = append(names, f.Name())
		}
		assert.Len(t, names, 3)
		assert.Contains(t, names, "notes.txt")
		assert.Contains(t, names, fmt.Sprintf("%s%s.db", backupPrefix, base.Add(2*time.Hour).Format("20060102_150405.000")))
		assert.NotContains(t, names, fmt.Sprintf("%s%s.db", backupPrefix, base.Format("20060102_150405.000")))
	})
}

func TestBackupService_Disabled(_ *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService(nil, config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
}
