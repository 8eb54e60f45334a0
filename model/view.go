package model

// DayView 某一天的待完成/已完成划分，顺序与习惯列表一致
type DayView struct {
	Date        string  `json:"date"`
	Pending     []Habit `json:"pending"`
	Done        []Habit `json:"done"`
	AllComplete bool    `json:"all_complete"`
}

// HabitStat 单个习惯的累计完成天数
type HabitStat struct {
	Habit Habit `json:"habit"`
	Count int   `json:"count"`
}

// Stats 按习惯列表顺序排列的统计
type Stats []HabitStat

// Counts 名称 -> 累计天数
func (s Stats) Counts() map[string]int {
	counts := make(map[string]int, len(s))
	for _, st := range s {
		counts[st.Habit.Name] = st.Count
	}
	return counts
}

// Dot 日历上的一个完成圆点
type Dot struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CalendarDay 日历中的一天
type CalendarDay struct {
	Date    string `json:"date"`
	Day     int    `json:"day"`
	Weekday int    `json:"weekday"` // 0=周一 ... 6=周日
	IsToday bool   `json:"is_today"`
	Dots    []Dot  `json:"dots"`
}

// CalendarMonth 一个月的日历，Leading 为周一起始网格中1号之前的空格数
type CalendarMonth struct {
	Year    int           `json:"year"`
	Month   int           `json:"month"`
	Leading int           `json:"leading"`
	Days    []CalendarDay `json:"days"`
}

// Weeks 按周一起始切分为网格，空格为 nil
func (m CalendarMonth) Weeks() [][]*CalendarDay {
	var weeks [][]*CalendarDay
	week := make([]*CalendarDay, 0, 7)
	for i := 0; i < m.Leading; i++ {
		week = append(week, nil)
	}
	for i := range m.Days {
		week = append(week, &m.Days[i])
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = make([]*CalendarDay, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, nil)
		}
		weeks = append(weeks, week)
	}
	return weeks
}
