package utils

import (
	"fmt"
	"io"
	"sort"
	"time"

	"batball/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	chatSheet  = "Chat"
	infoSheet  = "Info"
	timeLayout = "2006-01-02 15:04:05"
)

var chatHeaders = []string{"ID", "Time (UTC)", "Author", "Author Kind", "Event", "Message"}

// WriteChatTranscript пишет XLSX с историей комнаты в w
func WriteChatTranscript(w io.Writer, room string, messages []models.ChatMessage, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	// переименовываем лист по умолчанию
	if err := f.SetSheetName("Sheet1", chatSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	for i, header := range chatHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(chatSheet, cell, header); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(chatHeaders), 1)
	if err := f.SetCellStyle(chatSheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for rowIdx, msg := range messages {
		row := rowIdx + 2
		values := []any{
			msg.ID,
			msg.CreatedAt.UTC().Format(timeLayout),
			msg.Username,
			msg.AuthorKind(),
			string(msg.EventType),
			msg.Body,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(chatSheet, cell, value); err != nil {
				return err
			}
		}
	}

	widths := []float64{8, 20, 24, 14, 10, 80}
	for i, width := range widths {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(chatSheet, colName, colName, width); err != nil {
			return err
		}
	}

	if err := f.SetPanes(chatSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	if err := writeInfoSheet(f, room, messages, generatedAt); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func writeInfoSheet(f *excelize.File, room string, messages []models.ChatMessage, generatedAt time.Time) error {
	if _, err := f.NewSheet(infoSheet); err != nil {
		return err
	}

	timeRange := "-"
	if len(messages) > 0 {
		timeRange = fmt.Sprintf("%s to %s",
			messages[0].CreatedAt.UTC().Format(timeLayout),
			messages[len(messages)-1].CreatedAt.UTC().Format(timeLayout))
	}

	rows := [][2]any{
		{"Room", room},
		{"Generated At", generatedAt.UTC().Format(timeLayout)},
		{"Total Messages", len(messages)},
		{"Time Range", timeRange},
		{"Guest Messages", countGuests(messages)},
	}

	row := 1
	for _, pair := range rows {
		if err := f.SetSheetRow(infoSheet, fmt.Sprintf("A%d", row), &[]any{pair[0], pair[1]}); err != nil {
			return err
		}
		row++
	}

	// сообщения по авторам, по убыванию
	row++
	if err := f.SetSheetRow(infoSheet, fmt.Sprintf("A%d", row), &[]any{"Author", "Messages"}); err != nil {
		return err
	}
	for _, stat := range authorStats(messages) {
		row++
		if err := f.SetSheetRow(infoSheet, fmt.Sprintf("A%d", row), &[]any{stat.name, stat.count}); err != nil {
			return err
		}
	}

	return f.SetColWidth(infoSheet, "A", "B", 24)
}

func countGuests(messages []models.ChatMessage) int {
	n := 0
	for _, msg := range messages {
		if msg.IsGuest {
			n++
		}
	}
	return n
}

type authorStat struct {
	name  string
	count int
}

func authorStats(messages []models.ChatMessage) []authorStat {
	counts := make(map[string]int)
	for _, msg := range messages {
		if msg.EventType == models.EventMessage {
			counts[msg.Username]++
		}
	}

	stats := make([]authorStat, 0, len(counts))
	for name, count := range counts {
		stats = append(stats, authorStat{name: name, count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].name < stats[j].name
	})
	return stats
}
