// storage определяет контракты хранилищ locations-gateway:
// журнал операций администратора и архив файлов пакетного импорта.
package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/locations-gateway/internal/models"
)

var (
	// ErrDuplicate — запись с таким request_id уже есть в журнале.
	ErrDuplicate = errors.New("duplicate")
	// ErrInvalidArgument — некорректные входные данные хранилища.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Journal — журнал мутирующих операций над иерархией.
type Journal interface {
	// Record сохраняет запись; ID и CreatedAt заполняются хранилищем.
	// Повтор request_id — ErrDuplicate.
	Record(ctx context.Context, e models.JournalEntry) (models.JournalEntry, error)
	// Recent возвращает последние limit записей, новые первыми.
	Recent(ctx context.Context, limit int) ([]models.JournalEntry, error)
	Close()
}

// ImportArchive — хранилище исходных файлов пакетного импорта.
type ImportArchive interface {
	// Put сохраняет файл и возвращает ключ объекта.
	Put(ctx context.Context, f models.ImportFile) (string, error)
}

// NopJournal — журнал-заглушка, когда Postgres не сконфигурирован.
type NopJournal struct{}

func (NopJournal) Record(_ context.Context, e models.JournalEntry) (models.JournalEntry, error) {
	return e, nil
}

func (NopJournal) Recent(context.Context, int) ([]models.JournalEntry, error) { return nil, nil }

func (NopJournal) Close() {}

// NopArchive — архив-заглушка, когда S3 не сконфигурирован.
type NopArchive struct{}

func (NopArchive) Put(context.Context, models.ImportFile) (string, error) { return "", nil }

var (
	_ Journal       = NopJournal{}
	_ ImportArchive = NopArchive{}
)
