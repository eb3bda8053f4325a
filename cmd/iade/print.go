package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"iadetakip/internal"
)

const listTimeLayout = "2006-01-02 15:04"

func render(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...)
	fmt.Println(t)
	fmt.Printf("%d rows\n", len(rows))
}

func printExpected(items []internal.ExpectedItem) {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.Barcode, it.Name, it.Phone, formatTime(it.AddedAt)})
	}
	render([]string{"BARKOD", "ISIM", "TELEFON", "EKLENDI"}, rows)
}

func printReceived(items []internal.ReceivedItem) {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.Barcode, formatTime(it.AddedAt)})
	}
	render([]string{"BARKOD", "OKUNDU"}, rows)
}

func printMissing(items []internal.MissingItem) {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.Barcode, it.Name, it.Phone, strconv.Itoa(it.DaysPending), formatTime(it.AddedAt)})
	}
	render([]string{"BARKOD", "ISIM", "TELEFON", "GUN", "EKLENDI"}, rows)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(listTimeLayout)
}
