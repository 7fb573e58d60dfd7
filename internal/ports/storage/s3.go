package storage

import (
	"context"
)

// IS3Client интерфейс для работы с S3-совместимым хранилищем (MinIO),
// где лежат медиа-артефакты товаров
type IS3Client interface {
	GetFile(ctx context.Context, path string) ([]byte, error)
	ListFiles(ctx context.Context, prefix string) ([]string, error)
}
