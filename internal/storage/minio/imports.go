package minio

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/storage"
)

// Put сохраняет файл импорта под ключом
// "imports/<level>/<yyyy-mm-dd>/<uuid>-<filename>" и возвращает ключ.
// Метаданные объекта: actor и parent_id.
func (s *ImportsStorage) Put(ctx context.Context, f models.ImportFile) (string, error) {
	const op = "storage/minio/imports/Put"

	if !f.Level.Valid() || len(f.Data) == 0 {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	key := ObjectKey(f.Level, f.Filename, time.Now().UTC(), uuid.NewString())

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(f.Data), int64(len(f.Data)), mclient.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"actor":     f.Actor,
			"parent-id": strconv.FormatInt(f.ParentID, 10),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return key, nil
}

// ObjectKey строит ключ объекта; имя файла очищается от каталогов.
func ObjectKey(level models.Level, filename string, at time.Time, id string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "import.json"
	}

	return path.Join("imports", level.String(), at.Format("2006-01-02"), id+"-"+name)
}
