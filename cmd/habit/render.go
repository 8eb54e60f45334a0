package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"habit-tracker/model"
)

const (
	colorAccent = "#FFB6C1" // 浅粉红
	colorText   = "#5D4037" // 深褐色
	colorDone   = "#9E9E9E"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorText)).MarginBottom(1)
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorDone))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorDone)).Strikethrough(true)
	idStyle      = lipgloss.NewStyle().Faint(true)
	todayStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent))
	cheerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent))
)

var weekdayNames = []string{"一", "二", "三", "四", "五", "六", "日"}

func dot(color string) string {
	if color == "" {
		color = model.FallbackColor
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
}

func habitLine(h model.Habit, done, showID bool) string {
	name := h.Name
	if done {
		name = doneStyle.Render(name)
	}
	line := fmt.Sprintf("  %s %s", dot(h.Color), name)
	if h.Target != "" {
		line += "  " + sectionStyle.Render(h.Target)
	}
	if showID {
		line += "  " + idStyle.Render(h.ID)
	}
	return line
}

// renderToday 今日任务：待完成在前，已完成在后
func renderToday(view model.DayView, showID bool) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("今日任务 " + view.Date))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("待完成"))
	b.WriteString("\n")
	for _, h := range view.Pending {
		b.WriteString(habitLine(h, false, showID))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("已完成"))
	b.WriteString("\n")
	for _, h := range view.Done {
		b.WriteString(habitLine(h, true, showID))
		b.WriteString("\n")
	}

	if view.AllComplete {
		b.WriteString("\n")
		b.WriteString(cheerStyle.Render(allCompleteMessage))
		b.WriteString("\n")
	}
	return b.String()
}

// renderStats 坚持记录
func renderStats(stats model.Stats) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("坚持记录"))
	b.WriteString("\n")

	width := 0
	for _, st := range stats {
		if w := lipgloss.Width(st.Habit.Name); w > width {
			width = w
		}
	}
	for _, st := range stats {
		pad := strings.Repeat(" ", width-lipgloss.Width(st.Habit.Name))
		count := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(orFallback(st.Habit.Color)))
		fmt.Fprintf(&b, "  %s %s%s  %s\n", dot(st.Habit.Color), st.Habit.Name, pad, count.Render(fmt.Sprintf("累计 %d 天", st.Count)))
	}
	return b.String()
}

func orFallback(color string) string {
	if color == "" {
		return model.FallbackColor
	}
	return color
}

// renderCalendar 周一起始的月历，每天下方列出完成圆点
func renderCalendar(cal model.CalendarMonth) string {
	const cellWidth = 6
	cell := lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d年%d月", cal.Year, cal.Month)))
	b.WriteString("\n")

	header := make([]string, len(weekdayNames))
	for i, name := range weekdayNames {
		header[i] = cell.Render(sectionStyle.Render(name))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, header...))
	b.WriteString("\n")

	for _, week := range cal.Weeks() {
		days := make([]string, len(week))
		dots := make([]string, len(week))
		for i, d := range week {
			if d == nil {
				days[i] = cell.Render("")
				dots[i] = cell.Render("")
				continue
			}
			label := fmt.Sprintf("%d", d.Day)
			if d.IsToday {
				label = todayStyle.Render("[" + label + "]")
			}
			days[i] = cell.Render(label)

			var ds strings.Builder
			for _, dt := range d.Dots {
				ds.WriteString(dot(dt.Color))
			}
			dots[i] = cell.Render(ds.String())
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, days...))
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, dots...))
		b.WriteString("\n")
	}
	return b.String()
}
