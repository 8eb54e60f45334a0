package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habit-tracker/model"
)

func runCLI(t *testing.T, data string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--data", data}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTodayShowsSeeds(t *testing.T) {
	data := filepath.Join(t.TempDir(), "persistence.json")

	out, err := runCLI(t, data)
	require.NoError(t, err)
	assert.Contains(t, out, "今日任务")
	assert.Contains(t, out, "健身")
	assert.Contains(t, out, "哈农练习第1条")

	out, err = runCLI(t, data, "today", "--ids")
	require.NoError(t, err)
	assert.Contains(t, out, "英语口语")
}

func TestAddDoneStats(t *testing.T) {
	data := filepath.Join(t.TempDir(), "persistence.json")

	out, err := runCLI(t, data, "add", "喝水", "--target", "8杯")
	require.NoError(t, err)
	assert.Contains(t, out, "添加成功")

	_, err = runCLI(t, data, "add", "喝水")
	assert.Error(t, err)
	_, err = runCLI(t, data, "add", "   ")
	assert.Error(t, err)

	out, err = runCLI(t, data, "done", "喝水", "--date", "2026-10-01")
	require.NoError(t, err)
	assert.Contains(t, out, "打卡成功")

	out, err = runCLI(t, data, "done", "喝水", "--date", "2026-10-01")
	require.NoError(t, err)
	assert.Contains(t, out, "已经打过卡")

	out, err = runCLI(t, data, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "坚持记录")
	assert.Contains(t, out, "累计 1 天")
	assert.Contains(t, out, "累计 0 天")

	out, err = runCLI(t, data, "undo", "喝水", "--date", "2026-10-01")
	require.NoError(t, err)
	assert.Contains(t, out, "已取消")

	out, err = runCLI(t, data, "undo", "喝水", "--date", "2026-10-01")
	require.NoError(t, err)
	assert.Contains(t, out, "没有打卡记录")
}

func TestDoneErrors(t *testing.T) {
	data := filepath.Join(t.TempDir(), "persistence.json")

	_, err := runCLI(t, data, "done", "不存在")
	assert.Error(t, err)

	_, err = runCLI(t, data, "done", "健身", "--date", "2026/10/01")
	assert.Error(t, err)
}

func TestDoneAllCompleteMessage(t *testing.T) {
	data := filepath.Join(t.TempDir(), "persistence.json")

	for _, name := range []string{"练琴", "英语口语"} {
		_, err := runCLI(t, data, "delete", name)
		require.NoError(t, err)
	}

	out, err := runCLI(t, data, "done", "健身")
	require.NoError(t, err)
	assert.Contains(t, out, allCompleteMessage)
}

func TestRenameAndCalendar(t *testing.T) {
	data := filepath.Join(t.TempDir(), "persistence.json")

	_, err := runCLI(t, data, "done", "练琴", "--date", "2026-02-03")
	require.NoError(t, err)

	_, err = runCLI(t, data, "rename", "no-such-id", "钢琴")
	assert.Error(t, err)

	out, err := runCLI(t, data, "calendar", "--month", "2026-02")
	require.NoError(t, err)
	assert.Contains(t, out, "2026年2月")
	assert.Contains(t, out, "28")

	_, err = runCLI(t, data, "calendar", "--month", "2026-13")
	assert.Error(t, err)
}

func TestRenderToday(t *testing.T) {
	view := model.DayView{
		Date:        "2026-10-14",
		Pending:     []model.Habit{{ID: "a", Name: "健身", Target: "30分钟有氧", Color: "#FF5252"}},
		Done:        []model.Habit{{ID: "b", Name: "练琴", Color: "#448AFF"}},
		AllComplete: false,
	}
	out := renderToday(view, true)
	assert.Contains(t, out, "2026-10-14")
	assert.Contains(t, out, "健身")
	assert.Contains(t, out, "30分钟有氧")
	assert.Contains(t, out, "练琴")
	assert.NotContains(t, out, allCompleteMessage)

	view.Pending = nil
	view.AllComplete = true
	assert.Contains(t, renderToday(view, false), allCompleteMessage)
}

func TestRenderCalendar(t *testing.T) {
	cal := model.CalendarMonth{Year: 2026, Month: int(time.October), Leading: 3}
	for d := 1; d <= 31; d++ {
		cal.Days = append(cal.Days, model.CalendarDay{
			Date:    time.Date(2026, time.October, d, 0, 0, 0, 0, time.Local).Format(model.DateLayout),
			Day:     d,
			Weekday: (d + 2) % 7,
			IsToday: d == 14,
		})
	}
	out := renderCalendar(cal)
	assert.Contains(t, out, "2026年10月")
	assert.Contains(t, out, "[14]")
	assert.Contains(t, out, "31")
	assert.Contains(t, out, "日")
}
