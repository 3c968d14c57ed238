package pricing

import (
	"fmt"
	"slices"
	"time"

	"github.com/Leganyst/dance-studio/internal/model"
)

// SerializedQuote: проекция предложения для передачи по сети.
// Время в ISO-8601 (RFC 3339 с долями секунды и смещением).
type SerializedQuote struct {
	GroupID         int64   `json:"group_id"`
	AbonementType   string  `json:"abonement_type"`
	BundleGroupIDs  []int64 `json:"bundle_group_ids"`
	BundleSize      int     `json:"bundle_size"`
	DirectionType   string  `json:"direction_type"`
	LessonsPerGroup int     `json:"lessons_per_group"`
	TotalLessons    int     `json:"total_lessons"`
	Amount          int     `json:"amount"`
	Currency        string  `json:"currency"`
	ValidFrom       string  `json:"valid_from"`
	ValidTo         string  `json:"valid_to"`
	RequiresPayment bool    `json:"requires_payment"`
}

func SerializeQuote(q *GroupBookingQuote) SerializedQuote {
	return SerializedQuote{
		GroupID:         q.GroupID,
		AbonementType:   string(q.AbonementType),
		BundleGroupIDs:  slices.Clone(q.BundleGroupIDs),
		BundleSize:      q.BundleSize,
		DirectionType:   string(q.DirectionType),
		LessonsPerGroup: q.LessonsPerGroup,
		TotalLessons:    q.TotalLessons,
		Amount:          q.Amount,
		Currency:        q.Currency,
		ValidFrom:       q.ValidFrom.Format(time.RFC3339Nano),
		ValidTo:         q.ValidTo.Format(time.RFC3339Nano),
		RequiresPayment: q.RequiresPayment,
	}
}

// ParseSerializedQuote: обратное преобразование с проверкой полей.
func ParseSerializedQuote(s SerializedQuote) (*GroupBookingQuote, error) {
	typ := model.AbonementType(s.AbonementType)
	if !typ.Valid() {
		return nil, fmt.Errorf("quote: unknown abonement_type %q", s.AbonementType)
	}
	dt := model.DirectionType(s.DirectionType)
	if !dt.Valid() {
		return nil, fmt.Errorf("quote: unknown direction_type %q", s.DirectionType)
	}
	if len(s.BundleGroupIDs) == 0 || len(s.BundleGroupIDs) != s.BundleSize {
		return nil, fmt.Errorf("quote: bundle_size %d does not match bundle_group_ids", s.BundleSize)
	}
	if s.TotalLessons != s.LessonsPerGroup*s.BundleSize {
		return nil, fmt.Errorf("quote: total_lessons %d does not match lessons_per_group × bundle_size", s.TotalLessons)
	}
	validFrom, err := time.Parse(time.RFC3339Nano, s.ValidFrom)
	if err != nil {
		return nil, fmt.Errorf("quote: valid_from: %w", err)
	}
	validTo, err := time.Parse(time.RFC3339Nano, s.ValidTo)
	if err != nil {
		return nil, fmt.Errorf("quote: valid_to: %w", err)
	}

	return &GroupBookingQuote{
		GroupID:         s.GroupID,
		AbonementType:   typ,
		BundleGroupIDs:  slices.Clone(s.BundleGroupIDs),
		BundleSize:      s.BundleSize,
		DirectionType:   dt,
		LessonsPerGroup: s.LessonsPerGroup,
		TotalLessons:    s.TotalLessons,
		Amount:          s.Amount,
		Currency:        s.Currency,
		ValidFrom:       validFrom,
		ValidTo:         validTo,
		RequiresPayment: s.RequiresPayment,
	}, nil
}
