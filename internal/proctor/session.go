package proctor

import (
	"time"

	"examportal/config"
)

// 会话状态
type State string

const (
	StateInProgress             State = "in_progress"
	StateCompleted              State = "completed"
	StateAutoSubmittedTabSwitch State = "auto_submitted_tab_switch"
	StateAutoSubmittedViolation State = "auto_submitted_violation"
)

// IsTerminal 终态后所有事件均为空操作
func (s State) IsTerminal() bool {
	return s != StateInProgress
}

// 监考事件类型
type EventType string

const (
	EventVisibilityHidden   EventType = "visibility_hidden"
	EventWindowBlur         EventType = "window_blur"
	EventFullscreenExit     EventType = "fullscreen_exit"
	EventResize             EventType = "resize"
	EventFullscreenRestored EventType = "fullscreen_restored"
	EventTick               EventType = "tick"
)

// Event 送入状态机的单个事件
// Width/Height 仅 resize 事件携带；At 为事件时刻，由调用方注入
type Event struct {
	Type   EventType
	Width  int
	Height int
	At     time.Time
}

// Outcome 状态机对单个事件的处置结果
type Outcome struct {
	// AutoSubmit 指示调用方立即触发强制提交
	AutoSubmit bool
	// RequestFullscreen 指示客户端静默重新进入全屏（重试预算内）
	RequestFullscreen bool
	// GraceStarted 本事件开启了违规宽限倒计时
	GraceStarted bool
	TabSwitched  bool
	Violation    bool
	State        State
}

// Session 单场考试的监考状态机
//
// 迁移规则：
//   - 切屏（页面隐藏/窗口失焦）立即判切屏强制提交，不设宽限
//   - 退出全屏与窗口缩小到基准尺寸阈值以下共享同一重试预算：
//     预算内只要求客户端静默重进全屏；预算耗尽开启宽限倒计时，
//     期内恢复则撤销，宽限到期判尺寸违规强制提交
//   - 到达截止时刻按正常完成强制提交，不带违规标记
//
// 并发安全由 Manager 的锁保证，Session 本身不加锁。
type Session struct {
	AssessmentID string
	StudentID    string
	State        State

	BaselineWidth  int
	BaselineHeight int
	Deadline       time.Time

	FullscreenRetryLeft int
	TabSwitched         bool
	Violation           bool

	graceUntil *time.Time
	cfg        config.ProctorConfig
}

// NewSession 创建处于进行中状态的监考会话
// 初始窗口尺寸作为后续 resize 判定的基准
func NewSession(assessmentID, studentID string, deadline time.Time, width, height int, cfg config.ProctorConfig) *Session {
	return &Session{
		AssessmentID:        assessmentID,
		StudentID:           studentID,
		State:               StateInProgress,
		BaselineWidth:       width,
		BaselineHeight:      height,
		Deadline:            deadline,
		FullscreenRetryLeft: cfg.FullscreenRetryBudget,
		cfg:                 cfg,
	}
}

// Apply 处理单个事件并返回处置结果
// 终态下恒为空操作，保证强制提交只触发一次
func (s *Session) Apply(ev Event) Outcome {
	if s.State.IsTerminal() {
		return Outcome{State: s.State}
	}

	// 先结算已到期的宽限与截止时刻，再处理事件本身
	if out, done := s.settleDeadlines(ev.At); done {
		return out
	}

	switch ev.Type {
	case EventVisibilityHidden, EventWindowBlur:
		s.TabSwitched = true
		s.State = StateAutoSubmittedTabSwitch
		return Outcome{AutoSubmit: true, TabSwitched: true, State: s.State}

	case EventFullscreenExit:
		return s.violationAttempt(ev.At)

	case EventResize:
		if s.belowThreshold(ev.Width, ev.Height) {
			return s.violationAttempt(ev.At)
		}
		s.graceUntil = nil
		return Outcome{State: s.State}

	case EventFullscreenRestored:
		s.graceUntil = nil
		return Outcome{State: s.State}

	case EventTick:
		return Outcome{State: s.State}
	}

	return Outcome{State: s.State}
}

// Complete 正常交卷后置终态
func (s *Session) Complete() {
	if !s.State.IsTerminal() {
		s.State = StateCompleted
	}
}

// RemainingSeconds 距截止时刻的剩余秒数，非负
func (s *Session) RemainingSeconds(now time.Time) int {
	remaining := int(s.Deadline.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GraceActive 宽限倒计时是否进行中
func (s *Session) GraceActive() bool {
	return s.graceUntil != nil
}

// settleDeadlines 结算宽限到期与考试截止
func (s *Session) settleDeadlines(now time.Time) (Outcome, bool) {
	if s.graceUntil != nil && !now.Before(*s.graceUntil) {
		s.graceUntil = nil
		s.Violation = true
		s.State = StateAutoSubmittedViolation
		return Outcome{AutoSubmit: true, Violation: true, State: s.State}, true
	}
	if !now.Before(s.Deadline) {
		s.State = StateCompleted
		return Outcome{AutoSubmit: true, State: s.State}, true
	}
	return Outcome{}, false
}

// violationAttempt 退出全屏与窗口缩小共享同一重试预算：
// 预算内只要求客户端静默重进全屏，耗尽后开启宽限倒计时
func (s *Session) violationAttempt(now time.Time) Outcome {
	if s.FullscreenRetryLeft > 0 {
		s.FullscreenRetryLeft--
		return Outcome{RequestFullscreen: true, State: s.State}
	}
	return s.startGrace(now)
}

// startGrace 开启宽限倒计时；已在倒计时中则不重置
func (s *Session) startGrace(now time.Time) Outcome {
	if s.graceUntil != nil {
		return Outcome{State: s.State}
	}
	until := now.Add(s.cfg.ViolationGraceDelay)
	s.graceUntil = &until
	return Outcome{GraceStarted: true, State: s.State}
}

// belowThreshold 窗口尺寸是否低于基准的阈值百分比
func (s *Session) belowThreshold(width, height int) bool {
	minW := s.BaselineWidth * s.cfg.ResizeThresholdPercent / 100
	minH := s.BaselineHeight * s.cfg.ResizeThresholdPercent / 100
	return width < minW || height < minH
}
