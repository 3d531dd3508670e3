package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLevel — строка не соответствует ни одному уровню иерархии.
var ErrUnknownLevel = errors.New("unknown level")

// Level — уровень административной иерархии:
// country → district → county → subcounty → parish → village.
//
// Нулевое значение невалидно и используется как «нет уровня»
// (например, у деревень нет дочернего уровня).
type Level uint8

const (
	LevelCountries Level = iota + 1
	LevelDistricts
	LevelCounties
	LevelSubcounties
	LevelParishes
	LevelVillages
)

// Levels возвращает все уровни сверху вниз.
func Levels() []Level {
	return []Level{
		LevelCountries,
		LevelDistricts,
		LevelCounties,
		LevelSubcounties,
		LevelParishes,
		LevelVillages,
	}
}

// String — имя уровня во множественном числе, как в API и JSON-ответах.
func (l Level) String() string {
	switch l {
	case LevelCountries:
		return "countries"
	case LevelDistricts:
		return "districts"
	case LevelCounties:
		return "counties"
	case LevelSubcounties:
		return "subcounties"
	case LevelParishes:
		return "parishes"
	case LevelVillages:
		return "villages"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// Singular — имя сущности уровня в единственном числе.
// Используется как имя query-параметра родителя у дочернего уровня
// (getDistricts?country=1, addCounty?district=7, ...).
func (l Level) Singular() string {
	switch l {
	case LevelCountries:
		return "country"
	case LevelDistricts:
		return "district"
	case LevelCounties:
		return "county"
	case LevelSubcounties:
		return "subcounty"
	case LevelParishes:
		return "parish"
	case LevelVillages:
		return "village"
	default:
		return ""
	}
}

// Valid сообщает, является ли значение одним из шести уровней.
func (l Level) Valid() bool {
	return l >= LevelCountries && l <= LevelVillages
}

// Child — следующий уровень вниз. У деревень дочернего уровня нет.
func (l Level) Child() (Level, bool) {
	switch l {
	case LevelCountries:
		return LevelDistricts, true
	case LevelDistricts:
		return LevelCounties, true
	case LevelCounties:
		return LevelSubcounties, true
	case LevelSubcounties:
		return LevelParishes, true
	case LevelParishes:
		return LevelVillages, true
	default:
		return 0, false
	}
}

// Parent — уровень выше. У стран родителя нет.
func (l Level) Parent() (Level, bool) {
	switch l {
	case LevelDistricts:
		return LevelCountries, true
	case LevelCounties:
		return LevelDistricts, true
	case LevelSubcounties:
		return LevelCounties, true
	case LevelParishes:
		return LevelSubcounties, true
	case LevelVillages:
		return LevelParishes, true
	default:
		return 0, false
	}
}

// ParseLevel разбирает имя уровня (регистр и пробелы не важны).
// Принимаются и множественная, и единственная формы: "districts", "district".
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, l := range Levels() {
		if s == l.String() || s == l.Singular() {
			return l, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, uint8(l))
	}

	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}

	*l = v
	return nil
}
