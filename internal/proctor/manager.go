package proctor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"examportal/config"
)

// ── 监考模块业务错误 ──

var (
	ErrSessionNotFound = errors.New("监考会话不存在")
	ErrSessionFinished = errors.New("监考会话已结束")
)

// AutoSubmitFunc 强制提交回调
// tabSwitched / violation 标记由状态机结论给出，作答内容取服务端暂存
type AutoSubmitFunc func(ctx context.Context, assessmentID, studentID string, tabSwitched, violation bool) error

// Snapshot 会话对外快照
type Snapshot struct {
	AssessmentID        string
	StudentID           string
	State               State
	RemainingSeconds    int
	FullscreenRetryLeft int
	TabSwitched         bool
	Violation           bool
	GraceActive         bool
	RequestFullscreen   bool
}

// Manager 监考会话管理器
//
// 会话保存在内存中，键为 (assessmentID, studentID)；
// 时钟可注入以便测试。Run 驱动周期 Tick，用于宽限到期
// 与考试截止的兜底结算（客户端断连时仍能强制提交）。
type Manager struct {
	mu       sync.Mutex
	sessions map[sessionKey]*Session

	cfg    config.ProctorConfig
	clock  func() time.Time
	submit AutoSubmitFunc
	logger *zap.Logger
}

type sessionKey struct {
	assessmentID string
	studentID    string
}

// NewManager 创建监考会话管理器
// clock 为 nil 时使用系统时钟
func NewManager(cfg config.ProctorConfig, clock func() time.Time, submit AutoSubmitFunc, logger *zap.Logger) *Manager {
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		sessions: make(map[sessionKey]*Session),
		cfg:      cfg,
		clock:    clock,
		submit:   submit,
		logger:   logger,
	}
}

// Start 开始监考会话
// 进行中的会话重复 Start 返回现状（页面刷新场景）；已终结则拒绝
func (m *Manager) Start(assessmentID, studentID string, deadline time.Time, width, height int) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{assessmentID, studentID}
	if existing, ok := m.sessions[key]; ok {
		if existing.State.IsTerminal() {
			return nil, ErrSessionFinished
		}
		return m.snapshotLocked(existing, Outcome{State: existing.State}), nil
	}

	session := NewSession(assessmentID, studentID, deadline, width, height, m.cfg)
	m.sessions[key] = session

	m.logger.Info("监考会话已开始",
		zap.String("assessment_id", assessmentID),
		zap.String("student_id", studentID),
		zap.Time("deadline", deadline))
	return m.snapshotLocked(session, Outcome{State: session.State}), nil
}

// HandleEvent 处理客户端上报的监考事件
// 事件结论要求强制提交时同步调用提交回调（幂等，终态只触发一次）
func (m *Manager) HandleEvent(ctx context.Context, assessmentID, studentID string, evType EventType, width, height int) (*Snapshot, error) {
	m.mu.Lock()
	session, ok := m.sessions[sessionKey{assessmentID, studentID}]
	if !ok {
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	out := session.Apply(Event{Type: evType, Width: width, Height: height, At: m.clock()})
	snap := m.snapshotLocked(session, out)
	m.mu.Unlock()

	if out.AutoSubmit {
		m.dispatchAutoSubmit(ctx, session, out)
	}
	return snap, nil
}

// Get 查询会话快照
func (m *Manager) Get(assessmentID, studentID string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionKey{assessmentID, studentID}]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return m.snapshotLocked(session, Outcome{State: session.State}), nil
}

// Complete 正常交卷后收尾会话
func (m *Manager) Complete(assessmentID, studentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[sessionKey{assessmentID, studentID}]; ok {
		session.Complete()
	}
}

// Run 周期驱动所有会话的 Tick，直到 ctx 取消
// 兜底结算宽限到期与考试截止；强制提交在锁外串行派发
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tickAll(ctx)
		}
	}
}

func (m *Manager) tickAll(ctx context.Context) {
	now := m.clock()

	type pending struct {
		session *Session
		outcome Outcome
	}
	var toSubmit []pending

	m.mu.Lock()
	for key, session := range m.sessions {
		if session.State.IsTerminal() {
			// 终态会话保留一段时间无意义，直接清理
			delete(m.sessions, key)
			continue
		}
		out := session.Apply(Event{Type: EventTick, At: now})
		if out.AutoSubmit {
			toSubmit = append(toSubmit, pending{session, out})
		}
	}
	m.mu.Unlock()

	for _, p := range toSubmit {
		m.dispatchAutoSubmit(ctx, p.session, p.outcome)
	}
}

func (m *Manager) dispatchAutoSubmit(ctx context.Context, session *Session, out Outcome) {
	if m.submit == nil {
		return
	}
	err := m.submit(ctx, session.AssessmentID, session.StudentID, out.TabSwitched, out.Violation)
	if err != nil {
		m.logger.Error("强制提交失败",
			zap.String("assessment_id", session.AssessmentID),
			zap.String("student_id", session.StudentID),
			zap.Error(err))
		return
	}
	m.logger.Info("已触发强制提交",
		zap.String("assessment_id", session.AssessmentID),
		zap.String("student_id", session.StudentID),
		zap.String("state", string(out.State)))
}

// snapshotLocked 生成快照，调用方须持有 m.mu
func (m *Manager) snapshotLocked(session *Session, out Outcome) *Snapshot {
	return &Snapshot{
		AssessmentID:        session.AssessmentID,
		StudentID:           session.StudentID,
		State:               session.State,
		RemainingSeconds:    session.RemainingSeconds(m.clock()),
		FullscreenRetryLeft: session.FullscreenRetryLeft,
		TabSwitched:         session.TabSwitched,
		Violation:           session.Violation,
		GraceActive:         session.GraceActive(),
		RequestFullscreen:   out.RequestFullscreen,
	}
}
