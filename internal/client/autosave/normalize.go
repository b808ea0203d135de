package autosave

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/iudanet/shotsync/internal/models"
)

// Поля борда, которые можно править
const (
	FieldTitle          = "title"
	FieldDescription    = "description"
	FieldShot           = "shot"
	FieldDuration       = "duration"
	FieldTransition     = "transition"
	FieldAspectRatio    = "aspect_ratio"
	FieldCameraAngle    = "camera_angle"
	FieldCameraMovement = "camera_movement"
	FieldLens           = "lens_focal_mm"
	FieldImageURL       = "image_url"
)

// ErrUnknownField поле нельзя править
var ErrUnknownField = errors.New("unknown field")

// BoardFields поля, которые можно править у борда
var BoardFields = []string{
	FieldTitle,
	FieldDescription,
	FieldShot,
	FieldDuration,
	FieldTransition,
	FieldAspectRatio,
	FieldCameraAngle,
	FieldCameraMovement,
	FieldLens,
	FieldImageURL,
}

// ProjectFields поля, которые можно править у проекта
var ProjectFields = []string{FieldTitle, FieldDescription}

// CheckField проверяет, что field входит в allowed
func CheckField(field string, allowed []string) error {
	if slices.Contains(allowed, field) {
		return nil
	}
	return fmt.Errorf("%w %q, expected one of: %s", ErrUnknownField, field, strings.Join(allowed, ", "))
}

// Normalize применяет сырые значения к копии борда.
// Числа разбираются только здесь, в момент записи: shot и duration из строки,
// объектив "35mm" в 35, пустое числовое поле в nil. Пустой shot оставляет прежний номер.
func Normalize(board *models.Board, rec Record) (*models.Board, error) {
	out := board.Clone()

	for field, raw := range rec {
		value := strings.TrimSpace(raw)

		switch field {
		case FieldTitle:
			out.Title = raw
		case FieldDescription:
			out.Description = raw
		case FieldTransition:
			out.Transition = value
		case FieldAspectRatio:
			out.AspectRatio = value
		case FieldCameraAngle:
			out.CameraAngle = value
		case FieldCameraMovement:
			out.CameraMovement = value
		case FieldImageURL:
			out.ImageURL = value
		case FieldShot:
			if value == "" {
				continue
			}
			shot, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid shot %q: %w", raw, err)
			}
			out.Shot = shot
		case FieldDuration:
			if value == "" {
				out.Duration = nil
				continue
			}
			d, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid duration %q: %w", raw, err)
			}
			out.Duration = &d
		case FieldLens:
			value = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(value), "mm"))
			if value == "" {
				out.LensFocalMM = nil
				continue
			}
			lens, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid lens %q: %w", raw, err)
			}
			out.LensFocalMM = &lens
		default:
			return nil, fmt.Errorf("%w %q", ErrUnknownField, field)
		}
	}

	return out, nil
}

// FromBoard возвращает сырые значения полей борда для редактирования
func FromBoard(b *models.Board) Record {
	rec := Record{
		FieldTitle:          b.Title,
		FieldDescription:    b.Description,
		FieldShot:           strconv.Itoa(b.Shot),
		FieldTransition:     b.Transition,
		FieldAspectRatio:    b.AspectRatio,
		FieldCameraAngle:    b.CameraAngle,
		FieldCameraMovement: b.CameraMovement,
		FieldImageURL:       b.ImageURL,
		FieldDuration:       "",
		FieldLens:           "",
	}
	if b.Duration != nil {
		rec[FieldDuration] = strconv.FormatFloat(*b.Duration, 'f', -1, 64)
	}
	if b.LensFocalMM != nil {
		rec[FieldLens] = strconv.Itoa(*b.LensFocalMM) + "mm"
	}
	return rec
}
