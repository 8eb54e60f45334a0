package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"habit-tracker/logger"
	"habit-tracker/model"
	"habit-tracker/store"
)

// Response 统一响应格式
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// CreateHabitRequest 创建习惯请求体
type CreateHabitRequest struct {
	Name   string `json:"name" example:"喝水"`
	Target string `json:"target" example:"8杯"`
}

// RenameHabitRequest 重命名习惯请求体
type RenameHabitRequest struct {
	Name string `json:"name" example:"多喝水"`
}

// ErrorInfo 错误信息
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler 处理器结构体
type Handler struct {
	store  *store.Store
	logger *zap.Logger
}

// 超时配置
const (
	CreateTimeout = 3 * time.Second // 创建超时
	UpdateTimeout = 3 * time.Second // 更新超时
	DeleteTimeout = 3 * time.Second // 删除超时
)

// AllCompleteMessage 今日任务全部达成时的提示
const AllCompleteMessage = "太棒啦！今日任务全部达成！"

// NewHandler 创建新的处理器
func NewHandler(s *store.Store, l *zap.Logger) *Handler {
	return &Handler{store: s, logger: logger.OrNop(l)}
}

// sendJSON 发送JSON响应
func (h *Handler) sendJSON(w http.ResponseWriter, status int, response Response) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(response); err != nil {
		// JSON编码失败，直接返回纯文本错误，不要再尝试调用sendError（会递归）
		h.logger.Error("Failed to encode response", zap.Error(err))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error: Failed to encode response"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// sendError 发送错误响应
func (h *Handler) sendError(w http.ResponseWriter, status int, code, message string) {
	response := Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
	h.sendJSON(w, status, response)
}

// sendStoreError 区分超时、取消和存储错误
func (h *Handler) sendStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("Request timeout", zap.String("operation", op), zap.Error(err))
		h.sendError(w, http.StatusRequestTimeout, "TIMEOUT", "操作超时，请稍后重试")
	case errors.Is(err, context.Canceled):
		// 客户端取消请求,不需要响应
		h.logger.Debug("Request canceled", zap.String("operation", op))
	case errors.Is(err, store.ErrHabitNotFound):
		h.sendError(w, http.StatusNotFound, "NOT_FOUND", "习惯不存在")
	default:
		h.logger.Error("Store operation failed", zap.String("operation", op), zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, "STORAGE_ERROR", "保存失败")
	}
}

// parseDateParam 解析 ?date=YYYY-MM-DD，未提供时 ok 为 false
func parseDateParam(r *http.Request) (date time.Time, ok bool, err error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Time{}, false, nil
	}
	date, err = model.ParseDate(raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return date, true, nil
}

// HealthCheck 健康检查
// @Summary 健康检查
// @Description 返回应用当前健康状态
// @Tags health
// @Produce json
// @Success 200 {object} handler.Response
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := Response{
		Success: true,
		Data: map[string]interface{}{
			"status":  "ok",
			"backend": h.store.Backend(),
		},
		Message: "服务运行正常",
	}
	h.sendJSON(w, http.StatusOK, response)
}

// ListHabits 获取某天的待完成/已完成习惯
// @Summary 获取今日习惯
// @Description 按习惯列表顺序返回待完成和已完成的习惯
// @Tags habits
// @Param date query string false "日期 YYYY-MM-DD，默认今天"
// @Produce json
// @Success 200 {object} handler.Response
// @Failure 400 {object} handler.Response
// @Router /habits [get]
func (h *Handler) ListHabits(w http.ResponseWriter, r *http.Request) {
	date, ok, err := parseDateParam(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "INVALID_DATE", fmt.Sprintf("无效的日期: %v", err))
		return
	}

	view := h.store.Today()
	if ok {
		view = h.store.Day(date)
	}

	h.sendJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    view,
		Message: "获取习惯成功",
	})
}

// CreateHabit 创建习惯
// @Summary 创建习惯
// @Description 创建一个新的习惯，颜色从色板中随机分配
// @Tags habits
// @Accept json
// @Produce json
// @Param habit body handler.CreateHabitRequest true "习惯内容"
// @Success 201 {object} handler.Response
// @Failure 400 {object} handler.Response
// @Failure 409 {object} handler.Response
// @Failure 500 {object} handler.Response
// @Router /habits [post]
func (h *Handler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), CreateTimeout)
	defer cancel()

	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 限制1MB

	var req CreateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "INVALID_JSON", fmt.Sprintf("JSON解析失败: %v", err))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "习惯名称不能为空")
		return
	}
	if h.store.HasHabit(name) {
		h.sendError(w, http.StatusConflict, "DUPLICATE_NAME", "习惯名称已存在")
		return
	}

	habit, err := h.store.AddHabit(ctx, name, strings.TrimSpace(req.Target))
	if err != nil {
		h.sendStoreError(w, "create", err)
		return
	}

	h.sendJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    habit,
		Message: "创建习惯成功",
	})
}

// RenameHabit 重命名习惯
// @Summary 重命名习惯
// @Description 根据 ID 重命名习惯，历史记录同步更新
// @Tags habits
// @Accept json
// @Produce json
// @Param id path string true "习惯ID"
// @Param habit body handler.RenameHabitRequest true "新名称"
// @Success 200 {object} handler.Response
// @Failure 400 {object} handler.Response
// @Failure 404 {object} handler.Response
// @Failure 409 {object} handler.Response
// @Failure 500 {object} handler.Response
// @Router /habits/{id} [put]
func (h *Handler) RenameHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), UpdateTimeout)
	defer cancel()

	defer r.Body.Close()

	id := r.PathValue("id")
	if id == "" {
		h.sendError(w, http.StatusBadRequest, "INVALID_ID", "无效的ID")
		return
	}

	var req RenameHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "INVALID_JSON", fmt.Sprintf("JSON解析失败: %v", err))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "习惯名称不能为空")
		return
	}
	for _, existing := range h.store.Habits() {
		if existing.Name == name && existing.ID != id {
			h.sendError(w, http.StatusConflict, "DUPLICATE_NAME", "习惯名称已存在")
			return
		}
	}

	habit, err := h.store.RenameHabit(ctx, id, name)
	if err != nil {
		h.sendStoreError(w, "rename", err)
		return
	}

	h.sendJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    habit,
		Message: "重命名习惯成功",
	})
}

// DeleteHabit 删除习惯
// @Summary 删除习惯
// @Description 按名称删除习惯，并从所有历史记录中移除
// @Tags habits
// @Produce json
// @Param name path string true "习惯名称"
// @Success 200 {object} handler.Response
// @Failure 500 {object} handler.Response
// @Router /habits/{name} [delete]
func (h *Handler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), DeleteTimeout)
	defer cancel()

	name := r.PathValue("name")
	if err := h.store.DeleteHabit(ctx, name); err != nil {
		h.sendStoreError(w, "delete", err)
		return
	}

	h.sendJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "删除习惯成功",
	})
}

// MarkDone 打卡
// @Summary 标记完成
// @Description 标记习惯在某天完成，返回今日是否全部达成
// @Tags habits
// @Produce json
// @Param name path string true "习惯名称"
// @Param date query string false "日期 YYYY-MM-DD，默认今天"
// @Success 200 {object} handler.Response
// @Failure 400 {object} handler.Response
// @Failure 404 {object} handler.Response
// @Failure 500 {object} handler.Response
// @Router /habits/{name}/done [post]
func (h *Handler) MarkDone(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), UpdateTimeout)
	defer cancel()

	name := r.PathValue("name")
	if !h.store.HasHabit(name) {
		h.sendError(w, http.StatusNotFound, "NOT_FOUND", "习惯不存在")
		return
	}

	date, ok, err := parseDateParam(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "INVALID_DATE", fmt.Sprintf("无效的日期: %v", err))
		return
	}

	var res store.MarkResult
	if ok {
		res, err = h.store.MarkDoneOn(ctx, name, date)
	} else {
		res, err = h.store.MarkDone(ctx, name)
	}
	if err != nil {
		h.sendStoreError(w, "mark", err)
		return
	}

	message := "打卡成功"
	if res.AllComplete {
		message = AllCompleteMessage
	}
	h.sendJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    res,
		Message: message,
	})
}

// UnmarkDone 取消打卡
// @Summary 取消完成
// @Description 取消习惯在某天的完成标记
// @Tags habits
// @Produce json
// @Param name path string true "习惯名称"
// @Param date query string false "日期 YYYY-MM-DD，默认今天"
// @Success 200 {object} handler.Response
// @Failure 400 {object} handler.Response
// @Failure 500 {object} handler.Response
// @Router /habits/{name}/done [delete]
func (h *Handler) UnmarkDone(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), UpdateTimeout)
	defer cancel()

	name := r.PathValue("name")
	date, ok, err := parseDateParam(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "INVALID_DATE", fmt.Sprintf("无效的日期: %v", err))
		return
	}

	var changed bool
	if ok {
		changed, err = h.store.UnmarkDoneOn(ctx, name, date)
	} else {
		changed, err = h.store.UnmarkDone(ctx, name)
	}
	if err != nil {
		h.sendStoreError(w, "unmark", err)
		return
	}

	h.sendJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]bool{"changed": changed},
		Message: "取消打卡成功",
	})
}

// GetStats 获取累计统计
// @Summary 成就统计
// @Description 当前每个习惯的累计完成天数
// @Tags stats
// @Produce json
// @Success 200 {object} handler.Response
// @Router /stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    h.store.ComputeStats(),
		Message: "获取统计信息成功",
	})
}

// GetCalendar 获取月历
// @Summary 时光足迹
// @Description 指定月份每天完成的习惯颜色点
// @Tags stats
// @Param month query string false "月份 YYYY-MM，默认本月"
// @Produce json
// @Success 200 {object} handler.Response
// @Failure 400 {object} handler.Response
// @Router /calendar [get]
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	month := h.store.Now()
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01", raw, time.Local)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "INVALID_DATE", fmt.Sprintf("无效的月份: %v", err))
			return
		}
		month = parsed
	}

	h.sendJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    h.store.CalendarDots(month.Year(), month.Month()),
		Message: "获取日历成功",
	})
}
