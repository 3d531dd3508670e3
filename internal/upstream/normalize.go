package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pribylovaa/locations-gateway/internal/models"
)

// Normalize приводит тело ответа get*/search* к models.Page.
//
// Апстрим отдаёт список в разных конвертах. Порядок проверки:
//  1. голый массив;
//  2. объект: первое поле-массив из items, data, content, <level> (например "districts").
//
// Поле hasMore (bool) учитывается как явный признак продолжения; при его
// отсутствии учитывается last (страница Spring Data). Прочие формы дают
// пустую страницу. Ошибка — только для невалидного JSON.
func Normalize(level models.Level, body []byte) (*models.Page, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return &models.Page{}, nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrBadResponse)
	}

	switch body[0] {
	case '[':
		return &models.Page{Items: decodeItems(level, body)}, nil
	case '{':
	default:
		return &models.Page{}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}

	page := &models.Page{}
	if more, ok := boolField(obj, "hasMore"); ok {
		page.HasMore = &more
	} else if last, ok := boolField(obj, "last"); ok {
		more := !last
		page.HasMore = &more
	}

	for _, key := range []string{"items", "data", "content", level.String()} {
		v := bytes.TrimSpace(obj[key])
		if len(v) == 0 || v[0] != '[' {
			continue
		}
		page.Items = decodeItems(level, v)
		return page, nil
	}

	return page, nil
}

// wireLocation — элемент списка в том виде, в каком его отдаёт апстрим.
type wireLocation struct {
	ID    wireID `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
	Flag  string `json:"flag"`
}

// wireID принимает id числом или строкой; нечисловое значение даёт 0.
type wireID int64

func (id *wireID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*id = 0
		return nil
	}
	*id = wireID(v)
	return nil
}

func (w wireLocation) toModel(level models.Level) models.Location {
	return models.Location{
		ID:    int64(w.ID),
		Name:  models.FirstNonEmpty(w.Name, w.Title),
		Flag:  strings.TrimSpace(w.Flag),
		Level: level,
	}
}

// decodeItems разбирает массив; элементы без id или не-объекты пропускаются.
func decodeItems(level models.Level, arr []byte) []models.Location {
	var raw []json.RawMessage
	if err := json.Unmarshal(arr, &raw); err != nil {
		return nil
	}

	out := make([]models.Location, 0, len(raw))
	for _, r := range raw {
		var w wireLocation
		if err := json.Unmarshal(r, &w); err != nil || w.ID <= 0 {
			continue
		}
		out = append(out, w.toModel(level))
	}

	return out
}

// decodeLocation разбирает одиночный объект ответа add*/update*.
func decodeLocation(level models.Level, body []byte) (models.Location, bool) {
	var w wireLocation
	if err := json.Unmarshal(body, &w); err != nil || w.ID <= 0 {
		// Иногда объект завёрнут в data.
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if json.Unmarshal(body, &env) != nil || len(env.Data) == 0 {
			return models.Location{}, false
		}
		if err := json.Unmarshal(env.Data, &w); err != nil || w.ID <= 0 {
			return models.Location{}, false
		}
	}

	return w.toModel(level), true
}

// countImported — число созданных записей в ответе addBulk*.
func countImported(level models.Level, body []byte) int {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !json.Valid(body) {
		return 0
	}

	var obj map[string]json.RawMessage
	if body[0] == '{' && json.Unmarshal(body, &obj) == nil {
		for _, key := range []string{"imported", "count", "created"} {
			var n int
			if v, ok := obj[key]; ok && json.Unmarshal(v, &n) == nil {
				return n
			}
		}
	}

	page, err := Normalize(level, body)
	if err != nil {
		return 0
	}

	return len(page.Items)
}

func boolField(obj map[string]json.RawMessage, key string) (bool, bool) {
	v, ok := obj[key]
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return false, false
	}

	return b, true
}

// errorMessage достаёт поле message (или error) из тела ошибки.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}

	return models.FirstNonEmpty(e.Message, e.Error)
}
