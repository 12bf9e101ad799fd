// Package files реализует локальное файловое хранилище вложений.
// Файлы раскладываются по пути program/requestID/role и раздаются
// наружу статикой под публичным базовым URL.
package files

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rasbandhu/evaluation-service/internal/models"
)

// Store хранит файлы на локальном диске.
type Store struct {
	root          string
	publicBaseURL string
}

// New создаёт хранилище и гарантирует существование корневого каталога.
func New(root, publicBaseURL string) (*Store, error) {
	const op = "files.New"
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{
		root:          root,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Root возвращает корневой каталог хранилища для раздачи статики.
func (s *Store) Root() string {
	return s.root
}

// Save сохраняет файл под program/requestID/role и возвращает ссылку
// с публичным URL. Имя на диске генерируется заново, исходное имя
// сохраняется только в метаданных.
func (s *Store) Save(program, requestID, role, filename string, src io.Reader) (models.FileRef, error) {
	const op = "files.Save"

	ext := strings.ToLower(filepath.Ext(filename))
	storedName := uuid.NewString() + ext
	relPath := filepath.Join(program, requestID, role)

	if err := os.MkdirAll(filepath.Join(s.root, relPath), 0o755); err != nil {
		return models.FileRef{}, fmt.Errorf("%s: %w", op, err)
	}

	dst, err := os.Create(filepath.Join(s.root, relPath, storedName))
	if err != nil {
		return models.FileRef{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = dst.Close()
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return models.FileRef{}, fmt.Errorf("%s: %w", op, err)
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return models.FileRef{
		Name: filename,
		URL:  s.publicBaseURL + "/" + strings.Join([]string{program, requestID, role, storedName}, "/"),
		Type: contentType,
	}, nil
}
