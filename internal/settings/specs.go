package settings

import (
	"sort"

	"github.com/Leganyst/dance-studio/internal/model"
)

// Ключи каталога.
const (
	KeySingleVisitPrice      = "abonements.single_visit_price_rub"
	KeyTrialPrice            = "abonements.trial_price_rub"
	KeyCurrency              = "abonements.currency"
	KeyMultiSinglePrices     = "abonements.multi_single_prices_json"
	KeyMultiBundlePrices     = "abonements.multi_bundle_prices_json"
	KeySickLeaveMaxDays      = "sick_leave.max_days"
	KeyAttendanceDebit       = "attendance.debit_enabled"
	KeyHallHourPrice         = "rentals.hall_hour_price_rub"
	KeyAdminTelegramUsername = "contacts.admin_telegram_username"
)

// Spec описывает тип, значение по умолчанию и ограничения одного ключа.
type Spec struct {
	Key         string
	Type        model.SettingValueType
	Default     any
	Description string

	// Границы для int/float, включительно.
	Min *float64
	Max *float64
	// Максимальная длина строки в символах; 0: без ограничения.
	MaxLen int

	// Дополнительная проверка и приведение к каноническому виду
	// после базовой проверки типа.
	normalize func(key string, v any) (any, error)
}

func bound(v float64) *float64 { return &v }

var defaultSinglePrices = SinglePriceMatrix{
	model.DirectionTypeDance: {4: 2400, 8: 4000, 12: 5400},
	model.DirectionTypeSport: {4: 2000, 8: 3400, 12: 4500},
}

var defaultBundlePrices = BundlePriceMatrix{
	model.DirectionTypeDance: {
		2: {4: 4400, 8: 7600, 12: 10200},
		3: {4: 6300, 8: 10800, 12: 14400},
	},
	model.DirectionTypeSport: {
		2: {4: 3600, 8: 6400, 12: 8600},
		3: {4: 5100, 8: 9000, 12: 12000},
	},
}

func catalogue() []Spec {
	return []Spec{
		{
			Key:         KeySingleVisitPrice,
			Type:        model.SettingTypeInt,
			Default:     800,
			Description: "Цена разового посещения группы, руб.",
			Min:         bound(0),
			Max:         bound(1_000_000),
		},
		{
			Key:         KeyTrialPrice,
			Type:        model.SettingTypeInt,
			Default:     0,
			Description: "Цена пробного занятия, руб.",
			Min:         bound(0),
			Max:         bound(1_000_000),
		},
		{
			Key:         KeyCurrency,
			Type:        model.SettingTypeString,
			Default:     "RUB",
			Description: "Валюта цен абонементов.",
			MaxLen:      8,
		},
		{
			Key:         KeyMultiSinglePrices,
			Type:        model.SettingTypeJSON,
			Default:     defaultSinglePrices.raw(),
			Description: "Цены multi-абонемента на одну группу: направление → занятий → цена.",
			normalize:   normalizeSingleMatrix,
		},
		{
			Key:         KeyMultiBundlePrices,
			Type:        model.SettingTypeJSON,
			Default:     defaultBundlePrices.raw(),
			Description: "Цены multi-абонемента на связку групп: направление → групп → занятий → цена.",
			normalize:   normalizeBundleMatrix,
		},
		{
			Key:         KeySickLeaveMaxDays,
			Type:        model.SettingTypeInt,
			Default:     31,
			Description: "Максимальная длина больничного, дней.",
			Min:         bound(1),
			Max:         bound(365),
		},
		{
			Key:         KeyAttendanceDebit,
			Type:        model.SettingTypeBool,
			Default:     true,
			Description: "Списывать занятия с абонемента при отметке посещения.",
		},
		{
			Key:         KeyHallHourPrice,
			Type:        model.SettingTypeFloat,
			Default:     1500.0,
			Description: "Цена часа аренды зала, руб.",
			Min:         bound(0),
			Max:         bound(1_000_000),
		},
		{
			Key:         KeyAdminTelegramUsername,
			Type:        model.SettingTypeString,
			Default:     "",
			Description: "Telegram администратора для связи.",
			MaxLen:      64,
			normalize:   normalizeTelegramSetting,
		},
	}
}

// Catalogue: все известные ключи, отсортированные по имени.
func Catalogue() []Spec {
	specs := catalogue()
	sort.Slice(specs, func(i, j int) bool { return specs[i].Key < specs[j].Key })
	return specs
}

func specIndex() map[string]Spec {
	specs := catalogue()
	out := make(map[string]Spec, len(specs))
	for _, s := range specs {
		out[s.Key] = s
	}
	return out
}
