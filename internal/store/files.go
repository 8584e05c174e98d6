package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/evmboard/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HashContent returns the content hash used to recognize re-imported files.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// SaveOriginalFile keeps an imported workbook. A file with the same content
// replaces the earlier copy. The returned record carries the new batch id.
func (s *Store) SaveOriginalFile(name string, content []byte, projects []string) (model.OriginalFile, error) {
	f := model.OriginalFile{
		Name:       name,
		Content:    content,
		Hash:       HashContent(content),
		BatchID:    uuid.NewString(),
		Projects:   projects,
		ImportedAt: time.Now().UTC(),
	}

	err := s.db.QueryRow(`INSERT INTO original_files
		(file_name, file_content, file_hash, batch_id, projects, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_hash) DO UPDATE SET
		 file_name = excluded.file_name,
		 batch_id = excluded.batch_id,
		 projects = excluded.projects,
		 imported_at = excluded.imported_at
		RETURNING id`,
		f.Name, f.Content, f.Hash, f.BatchID, strings.Join(projects, ","), f.ImportedAt.Format(time.RFC3339),
	).Scan(&f.ID)
	if err != nil {
		return f, fmt.Errorf("saving original file %q: %w", name, err)
	}
	s.log.Info("original file saved",
		zap.String("file", name),
		zap.String("batch", f.BatchID),
		zap.Int("projects", len(projects)),
	)
	return f, nil
}

// LatestOriginalFile returns the most recently imported workbook.
func (s *Store) LatestOriginalFile() (model.OriginalFile, error) {
	return s.queryOriginalFile(`SELECT id, file_name, file_content, file_hash, batch_id, projects, imported_at
		FROM original_files ORDER BY imported_at DESC, id DESC LIMIT 1`)
}

// OriginalFileByHash returns the stored workbook with the given content hash.
func (s *Store) OriginalFileByHash(hash string) (model.OriginalFile, error) {
	return s.queryOriginalFile(`SELECT id, file_name, file_content, file_hash, batch_id, projects, imported_at
		FROM original_files WHERE file_hash = ?`, hash)
}

// ClearOriginalFiles removes every stored workbook.
func (s *Store) ClearOriginalFiles() error {
	_, err := s.db.Exec("DELETE FROM original_files")
	return err
}

func (s *Store) queryOriginalFile(query string, args ...any) (model.OriginalFile, error) {
	var f model.OriginalFile
	var projects sql.NullString
	var imported string
	err := s.db.QueryRow(query, args...).Scan(&f.ID, &f.Name, &f.Content, &f.Hash, &f.BatchID, &projects, &imported)
	if errors.Is(err, sql.ErrNoRows) {
		return f, fmt.Errorf("original file: %w", ErrNotFound)
	}
	if err != nil {
		return f, err
	}
	if p := nullString(projects); p != "" {
		f.Projects = strings.Split(p, ",")
	}
	f.ImportedAt = parseTimestamp(imported)
	return f, nil
}
