// Package estimate считает предварительную оценку времени обработки пакета.
//
// Оценка строится по числу кадров и фиксированным скоростям трёх этапов.
// Пакет чистый: не запускает процессы и не трогает файловую систему.
package estimate

import (
	"fmt"
	"time"
)

// Скорости этапов по умолчанию, кадров в секунду.
const (
	DefaultDecodeRate  = 350
	DefaultUpscaleRate = 11
	DefaultRebuildRate = 22
)

// Rates - скорости этапов в кадрах в секунду.
type Rates struct {
	Decode  float64
	Upscale float64
	Rebuild float64
}

// DefaultRates возвращает скорости по умолчанию.
func DefaultRates() Rates {
	return Rates{
		Decode:  DefaultDecodeRate,
		Upscale: DefaultUpscaleRate,
		Rebuild: DefaultRebuildRate,
	}
}

// Validate проверяет, что все скорости положительны.
func (r Rates) Validate() error {
	if r.Decode <= 0 || r.Upscale <= 0 || r.Rebuild <= 0 {
		return fmt.Errorf("скорости этапов должны быть положительными: decode=%v upscale=%v rebuild=%v",
			r.Decode, r.Upscale, r.Rebuild)
	}
	return nil
}

// Seconds возвращает оценку времени обработки одного видео.
func (r Rates) Seconds(frames int64) float64 {
	f := float64(frames)
	return f/r.Decode + f/r.Upscale + f/r.Rebuild
}

// Entry - одно видео для оценки.
type Entry struct {
	// Name - имя файла для отчёта.
	Name string

	// Done - результат уже существует, видео исключается из суммы.
	Done bool

	// Frames - число кадров (имеет смысл только при Err == nil).
	Frames int64

	// Err - ошибка зондирования; такое видео исключается из суммы.
	Err error
}

// Failure - видео, которое не удалось оценить.
type Failure struct {
	Name string
	Err  error
}

// Summary - результат оценки пакета.
type Summary struct {
	// Total - всего видео.
	Total int

	// Done - уже обработано.
	Done int

	// Pending - осталось обработать (Total - Done).
	Pending int

	// Seconds - оценка суммарного времени в секундах.
	Seconds float64

	// Failures - видео, для которых не удалось получить метаданные.
	Failures []Failure
}

// Duration возвращает оценку как time.Duration.
func (s Summary) Duration() time.Duration {
	return time.Duration(s.Seconds * float64(time.Second))
}

// Estimate считает оценку по списку видео.
// Добавление уже обработанных видео не увеличивает результат,
// если все видео обработаны - оценка равна нулю.
func Estimate(entries []Entry, rates Rates) Summary {
	s := Summary{Total: len(entries)}

	for _, e := range entries {
		if e.Done {
			s.Done++
			continue
		}
		if e.Err != nil {
			s.Failures = append(s.Failures, Failure{Name: e.Name, Err: e.Err})
			continue
		}
		s.Seconds += rates.Seconds(e.Frames)
	}

	s.Pending = s.Total - s.Done
	return s
}
