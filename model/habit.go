package model

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout 历史记录日期键格式
const DateLayout = "2006-01-02"

// FallbackColor 习惯缺少颜色时日历圆点使用的颜色
const FallbackColor = "#FFB6C1"

// Palette 高区分度色板，在白色背景上对比明显且相互之间差异大
var Palette = []string{
	"#FF5252", // 鲜红
	"#448AFF", // 亮蓝
	"#00C853", // 鲜绿
	"#FFAB00", // 琥珀黄
	"#AA00FF", // 深紫
	"#00BCD4", // 青色
	"#FF4081", // 玫红
	"#795548", // 棕色
	"#607D8B", // 蓝灰
	"#212121", // 黑色
}

// InPalette 判断颜色是否属于色板
func InPalette(color string) bool {
	for _, c := range Palette {
		if c == color {
			return true
		}
	}
	return false
}

// Habit 表示一个每日坚持的习惯
type Habit struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Target string `json:"target"`
	Color  string `json:"color,omitempty"`
}

// NewHabit 创建一个新的习惯并分配唯一ID
func NewHabit(name, target, color string) Habit {
	return Habit{
		ID:     uuid.NewString(),
		Name:   name,
		Target: target,
		Color:  color,
	}
}

// History 日期 -> 当天已完成的习惯名称列表
type History map[string][]string

// Record 持久化的完整数据
type Record struct {
	Habits  []Habit `json:"habits"`
	History History `json:"history"`
}

// DefaultRecord 返回内置的三个示例习惯和空的历史记录
func DefaultRecord() *Record {
	return &Record{
		Habits: []Habit{
			NewHabit("健身", "30分钟有氧", "#FF5252"),
			NewHabit("练琴", "哈农练习第1条", "#448AFF"),
			NewHabit("英语口语", "跟读一篇VOA", "#00C853"),
		},
		History: History{},
	}
}

// Normalize 补全缺失的字段，nil 的 habits/history 视为空
func (r *Record) Normalize() {
	if r.Habits == nil {
		r.Habits = []Habit{}
	}
	if r.History == nil {
		r.History = History{}
	}
	for date, names := range r.History {
		if names == nil {
			r.History[date] = []string{}
		}
	}
}

// Clone 深拷贝
func (r *Record) Clone() *Record {
	out := &Record{
		Habits:  make([]Habit, len(r.Habits)),
		History: make(History, len(r.History)),
	}
	copy(out.Habits, r.Habits)
	for date, names := range r.History {
		out.History[date] = append([]string{}, names...)
	}
	return out
}

// Names 返回当前习惯名称集合
func (r *Record) Names() map[string]bool {
	names := make(map[string]bool, len(r.Habits))
	for _, h := range r.Habits {
		names[h.Name] = true
	}
	return names
}

// DateKey 将时间格式化为历史记录的日期键（本地日期）
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate 解析 YYYY-MM-DD 日期
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// contains 判断列表中是否包含名称
func contains(list []string, name string) bool {
	for _, item := range list {
		if item == name {
			return true
		}
	}
	return false
}

// Contains 判断某天是否完成了指定习惯
func (h History) Contains(date, name string) bool {
	return contains(h[date], name)
}
