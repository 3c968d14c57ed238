// Package report выгружает журнал абонемента в Excel для администраторов.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Leganyst/dance-studio/internal/model"
)

const (
	logSheet     = "Журнал"
	summarySheet = "Абонемент"

	timeLayout = "02.01.2006 15:04"
)

var logHeader = []interface{}{
	"Дата",
	"Действие",
	"Изменение",
	"Причина",
	"Отметка",
	"Платёж",
	"Кто",
	"Комментарий",
}

// WriteActionLog пишет xlsx с двумя листами: сводка по абонементу и журнал.
// Время выводится в часовом поясе loc.
func WriteActionLog(w io.Writer, ab *model.GroupAbonement, entries []model.GroupAbonementActionLog, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSummary(f, ab, loc); err != nil {
		return err
	}

	idx, err := f.NewSheet(logSheet)
	if err != nil {
		return fmt.Errorf("create log sheet: %w", err)
	}
	if err := f.SetSheetRow(logSheet, "A1", &logHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		row := []interface{}{
			e.CreatedAt.In(loc).Format(timeLayout),
			string(e.ActionType),
			e.CreditsDelta,
			e.Reason,
			optionalInt(e.AttendanceID),
			optionalString(e.PaymentID),
			actorLabel(e),
			e.Note,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(logSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(logSheet, "A", "A", 18)
	_ = f.SetColWidth(logSheet, "B", "B", 26)
	_ = f.SetColWidth(logSheet, "D", "D", 24)
	f.SetActiveSheet(idx)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, ab *model.GroupAbonement, loc *time.Location) error {
	rows := [][]interface{}{
		{"ID", ab.ID},
		{"Пользователь", ab.UserID},
		{"Группа", ab.GroupID},
		{"Тип", string(ab.AbonementType)},
		{"Статус", string(ab.Status)},
		{"Остаток занятий", ab.BalanceCredits},
		{"Действует с", optionalTime(ab.ValidFrom, loc)},
		{"Действует по", optionalTime(ab.ValidTo, loc)},
		{"Сумма", fmt.Sprintf("%d %s", ab.AmountRub, ab.Currency)},
		{"Бандл", ab.BundleID},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 20)
	return nil
}

func actorLabel(e model.GroupAbonementActionLog) string {
	if e.ActorType == model.ActorTypeStaff && e.ActorID != nil {
		return fmt.Sprintf("сотрудник #%d", *e.ActorID)
	}
	return "система"
}

func optionalInt(v *int64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optionalTime(v *time.Time, loc *time.Location) string {
	if v == nil {
		return "бессрочно"
	}
	return v.In(loc).Format(timeLayout)
}
