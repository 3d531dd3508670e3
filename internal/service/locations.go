package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/locations-gateway/internal/metrics"
	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/storage"
	"github.com/pribylovaa/locations-gateway/internal/upstream/transport"
	"github.com/pribylovaa/locations-gateway/pkg/log"
)

// Входные структуры сервисного слоя.
type AddInput struct {
	Level    models.Level
	ParentID int64
	Name     string
	// Flag — emoji или код флага; только для стран.
	Flag string
}

type BulkImportInput struct {
	Level    models.Level
	ParentID int64
	Filename string
	Data     []byte
}

// maxImportBytes — предел размера файла пакетного импорта.
const maxImportBytes = 10 << 20

// Add создаёт узел в апстриме и перезагружает детей родителя.
//
// Валидация:
//   - level — один из шести уровней;
//   - name нормализуется (TrimSpace) и не должен быть пустым;
//   - ParentID > 0 обязателен для всех уровней, кроме стран;
//   - Flag допустим только для стран.
func (s *Service) Add(ctx context.Context, in AddInput) (models.Location, error) {
	const op = "service/locations/Add"
	lg := log.From(ctx).With("op", op, "level", in.Level.String(), "parent_id", in.ParentID)

	in.Name = strings.TrimSpace(in.Name)
	in.Flag = strings.TrimSpace(in.Flag)

	if err := validateRef(in.Level, in.ParentID); err != nil {
		lg.Warn("invalid argument", "err", err)

		return models.Location{}, fmt.Errorf("%s: %w", op, err)
	}
	if in.Name == "" {
		lg.Warn("invalid argument: empty name")

		return models.Location{}, fmt.Errorf("%s: %w: name is required", op, ErrInvalidArgument)
	}
	if in.Flag != "" && in.Level != models.LevelCountries {
		lg.Warn("invalid argument: flag on non-country")

		return models.Location{}, fmt.Errorf("%s: %w: flag is only allowed for countries", op, ErrInvalidArgument)
	}

	loc, err := s.upstream.Create(ctx, in.Level, in.ParentID, in.Name, in.Flag)
	s.record(ctx, models.JournalEntry{
		Op:       models.OpAdd,
		Level:    in.Level,
		TargetID: loc.ID,
		ParentID: in.ParentID,
		Name:     in.Name,
	}, err)
	if err != nil {
		lg.Warn("upstream create failed", "err", err)

		return models.Location{}, mapUpstream(op, err)
	}

	s.refreshParent(ctx, in.Level, in.ParentID)

	return loc, nil
}

// Edit переименовывает узел в апстриме и перезагружает детей его родителя,
// если узел загружен в сессии.
func (s *Service) Edit(ctx context.Context, level models.Level, id int64, name string) (models.Location, error) {
	const op = "service/locations/Edit"
	lg := log.From(ctx).With("op", op, "level", level.String(), "id", id)

	name = strings.TrimSpace(name)

	if !level.Valid() || id <= 0 {
		lg.Warn("invalid argument: bad node ref")

		return models.Location{}, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}
	if name == "" {
		lg.Warn("invalid argument: empty name")

		return models.Location{}, fmt.Errorf("%s: %w: name is required", op, ErrInvalidArgument)
	}

	parentID, loaded := s.loadedParentID(ctx, level, id)

	loc, err := s.upstream.Rename(ctx, level, id, name)
	s.record(ctx, models.JournalEntry{
		Op:       models.OpEdit,
		Level:    level,
		TargetID: id,
		ParentID: parentID,
		Name:     name,
	}, err)
	if err != nil {
		lg.Warn("upstream rename failed", "err", err)

		return models.Location{}, mapUpstream(op, err)
	}

	if loaded {
		loc.ParentID = parentID
		s.refreshParent(ctx, level, parentID)
	}

	return loc, nil
}

// Delete удаляет узел в апстриме. Загруженный узел сразу убирается из
// списка родителя, затем список родителя перезагружается.
func (s *Service) Delete(ctx context.Context, level models.Level, id int64) error {
	const op = "service/locations/Delete"
	lg := log.From(ctx).With("op", op, "level", level.String(), "id", id)

	if !level.Valid() || id <= 0 {
		lg.Warn("invalid argument: bad node ref")

		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	parentID, loaded := s.loadedParentID(ctx, level, id)

	err := s.upstream.Delete(ctx, level, id)
	s.record(ctx, models.JournalEntry{
		Op:       models.OpDelete,
		Level:    level,
		TargetID: id,
		ParentID: parentID,
	}, err)
	if err != nil {
		lg.Warn("upstream delete failed", "err", err)

		return mapUpstream(op, err)
	}

	if loaded {
		if parent, ok := parentOf(s.treeFor(ctx), level, parentID); ok {
			parent.Forget(id)
		}
		s.refreshParent(ctx, level, parentID)
	}

	return nil
}

// BulkImport загружает JSON-файл пакетного импорта.
//
// Валидация:
//   - имя файла с расширением .json, содержимое — валидный JSON не больше maxImportBytes;
//   - ParentID > 0 обязателен для всех уровней, кроме стран.
//
// Поведение:
//   - исходный файл сохраняется в архив (ошибка архива не прерывает импорт);
//   - после успешного импорта перезагружаются дети родителя.
func (s *Service) BulkImport(ctx context.Context, in BulkImportInput) (models.BulkResult, error) {
	const op = "service/locations/BulkImport"
	lg := log.From(ctx).With("op", op, "level", in.Level.String(), "parent_id", in.ParentID, "filename", in.Filename)

	if err := validateRef(in.Level, in.ParentID); err != nil {
		lg.Warn("invalid argument", "err", err)

		return models.BulkResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if !strings.EqualFold(filepath.Ext(in.Filename), ".json") {
		lg.Warn("invalid argument: not a json file")

		return models.BulkResult{}, fmt.Errorf("%s: %w: a .json file is required", op, ErrInvalidArgument)
	}
	if len(in.Data) == 0 || len(in.Data) > maxImportBytes {
		lg.Warn("invalid argument: bad file size", "size", len(in.Data))

		return models.BulkResult{}, fmt.Errorf("%s: %w: file must be 1 byte to %d bytes", op, ErrInvalidArgument, maxImportBytes)
	}
	if !json.Valid(in.Data) {
		lg.Warn("invalid argument: malformed json")

		return models.BulkResult{}, fmt.Errorf("%s: %w: file is not valid JSON", op, ErrInvalidArgument)
	}

	key, err := s.archive.Put(ctx, models.ImportFile{
		Level:    in.Level,
		ParentID: in.ParentID,
		Filename: in.Filename,
		Data:     in.Data,
		Actor:    transport.ActorFrom(ctx),
	})
	if err != nil {
		lg.Warn("import archive failed", "err", err)
		key = ""
	}

	res, err := s.upstream.BulkCreate(ctx, in.Level, in.ParentID, in.Filename, in.Data)
	s.record(ctx, models.JournalEntry{
		Op:       models.OpBulkImport,
		Level:    in.Level,
		ParentID: in.ParentID,
		Name:     in.Filename,
	}, err)
	if err != nil {
		lg.Warn("upstream bulk create failed", "err", err)

		return models.BulkResult{}, mapUpstream(op, err)
	}
	res.Level, res.ParentID, res.Filename = in.Level, in.ParentID, in.Filename
	res.ArchiveKey = key

	s.refreshParent(ctx, in.Level, in.ParentID)

	lg.Info("bulk_import_done", "imported", res.Imported, "archive_key", key)

	return res, nil
}

// Journal возвращает последние операции.
func (s *Service) Journal(ctx context.Context, limit int) ([]models.JournalEntry, error) {
	const op = "service/locations/Journal"

	if limit < 0 {
		return nil, fmt.Errorf("%s: %w: negative limit", op, ErrInvalidArgument)
	}

	items, err := s.journal.Recent(ctx, limit)
	if err != nil {
		log.From(ctx).Error("journal read failed", "op", op, "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}
	if items == nil {
		items = []models.JournalEntry{}
	}

	return items, nil
}

func validateRef(level models.Level, parentID int64) error {
	if !level.Valid() {
		return fmt.Errorf("%w: unknown level", ErrInvalidArgument)
	}
	if _, hasParent := level.Parent(); hasParent && parentID <= 0 {
		return fmt.Errorf("%w: parent_id is required for %s", ErrInvalidArgument, level.String())
	}
	if level == models.LevelCountries && parentID != 0 {
		return fmt.Errorf("%w: countries have no parent", ErrInvalidArgument)
	}

	return nil
}

// loadedParentID — id родителя узла, если узел загружен в сессии.
func (s *Service) loadedParentID(ctx context.Context, level models.Level, id int64) (int64, bool) {
	n, ok := s.treeFor(ctx).Node(level, id)
	if !ok {
		return 0, false
	}

	return n.Location().ParentID, true
}

// record пишет операцию в журнал и счётчик мутаций. Ошибка журнала не
// влияет на результат операции.
func (s *Service) record(ctx context.Context, e models.JournalEntry, opErr error) {
	s.metrics.Mutations.WithLabelValues(string(e.Op), e.Level.String(), metrics.Outcome(opErr)).Inc()

	e.RequestID = transport.RequestIDFrom(ctx)
	if e.RequestID == "" {
		e.RequestID = uuid.NewString()
	}
	e.Actor = transport.ActorFrom(ctx)
	if e.Actor == "" {
		e.Actor = anonymous
	}
	e.Outcome = models.OutcomeOK
	if opErr != nil {
		e.Outcome = models.OutcomeFailed
		e.Error = opErr.Error()
	}

	if _, err := s.journal.Record(ctx, e); err != nil && !errors.Is(err, storage.ErrDuplicate) {
		log.From(ctx).Warn("journal_record_failed",
			"op", string(e.Op),
			"request_id", e.RequestID,
			"err", err.Error(),
		)
	}
}
