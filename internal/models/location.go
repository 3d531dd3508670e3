// models — доменные типы locations-gateway и DTO HTTP-слоя.
package models

import (
	"strings"
	"time"
)

// Location — узел административной иерархии (страна, район, ..., деревня).
//
// ID уникален в пределах уровня. ParentID == 0 означает «нет родителя»
// (страны). Flag есть только у стран (emoji или код) и префиксует заголовок.
type Location struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Flag     string `json:"flag,omitempty"`
	Level    Level  `json:"level,omitempty"`
	ParentID int64  `json:"parent_id,omitempty"`
}

// Title — отображаемое имя: "<flag> <name>" либо просто name.
func (l Location) Title() string {
	if l.Flag == "" {
		return l.Name
	}

	return l.Flag + " " + l.Name
}

// Page — одна страница дочерних узлов от апстрима.
//
// HasMore заполнен, только если апстрим прислал явный флаг
// (каноничный конверт {items, hasMore}); иначе признак продолжения
// выводится из длины страницы.
type Page struct {
	Items   []Location
	HasMore *bool
}

// FirstNonEmpty возвращает первую непустую (после TrimSpace) строку.
// Апстрим непоследователен: имя приходит то в name, то в title.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}

// SearchResult — объединённый результат поиска по всем уровням.
// Items не дедуплицируются между уровнями; Failed — уровни, чей запрос упал.
type SearchResult struct {
	Query  string     `json:"query"`
	Items  []Location `json:"items"`
	Failed []Level    `json:"failed,omitempty"`
}

// BulkResult — итог пакетного импорта.
type BulkResult struct {
	Level      Level  `json:"level"`
	ParentID   int64  `json:"parent_id,omitempty"`
	Filename   string `json:"filename"`
	Imported   int    `json:"imported"`
	ArchiveKey string `json:"archive_key,omitempty"`
}

// ImportFile — загруженный файл пакетного импорта (JSON).
type ImportFile struct {
	Level    Level
	ParentID int64
	Filename string
	Data     []byte
	Actor    string
}

// Operation — тип мутирующей операции над иерархией.
type Operation string

const (
	OpAdd        Operation = "add"
	OpEdit       Operation = "edit"
	OpDelete     Operation = "delete"
	OpBulkImport Operation = "bulk_import"
)

// Outcome — итог операции в журнале.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

// JournalEntry — запись журнала операций администратора.
type JournalEntry struct {
	ID        int64     `json:"id"`
	RequestID string    `json:"request_id"`
	Actor     string    `json:"actor"`
	Op        Operation `json:"op"`
	Level     Level     `json:"level"`
	TargetID  int64     `json:"target_id,omitempty"`
	ParentID  int64     `json:"parent_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
