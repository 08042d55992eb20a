package model

import "time"

// Answer 单题作答 — 对应 answers
type Answer struct {
	AnswerID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"answer_id"`
	SubmissionID string `gorm:"type:uuid;not null;index"                       json:"submission_id"`
	QuestionID   string `gorm:"type:uuid;not null"                             json:"question_id"`
	Answer       string `gorm:"type:text;not null;default:''"                  json:"answer"`
}

// TableName 指定表名
func (Answer) TableName() string { return "answers" }

// Submission 提交表 — 对应 submissions
// 每 (assessment_id, student_id) 至多一条，重复提交为原地更新；
// TabSwitched / ScreenSizeViolation 一旦置真不再清除
type Submission struct {
	SubmissionID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"submission_id"`
	AssessmentID        string    `gorm:"type:uuid;not null;uniqueIndex:uq_submission_assessment_student" json:"assessment_id"`
	StudentID           string    `gorm:"type:uuid;not null;uniqueIndex:uq_submission_assessment_student" json:"student_id"`
	SubmittedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"submitted_at"`
	IsCompleted         bool      `gorm:"not null;default:false"             json:"is_completed"`
	AutoGradedMarks     *int      `json:"auto_graded_marks,omitempty"`
	MarksAwarded        *int      `json:"marks_awarded,omitempty"`
	TabSwitched         bool      `gorm:"not null;default:false" json:"tab_switched"`
	ScreenSizeViolation bool      `gorm:"not null;default:false" json:"screen_size_violation"`

	// 关联
	Answers []Answer `gorm:"foreignKey:SubmissionID;references:SubmissionID" json:"answers,omitempty"`
}

// TableName 指定表名
func (Submission) TableName() string { return "submissions" }

// AnswerFor 返回指定题目的作答内容，未作答返回空串
func (s *Submission) AnswerFor(questionID string) (string, bool) {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a.Answer, true
		}
	}
	return "", false
}

// Score 成绩视图（派生，不入库）
// 由已完成且已评分的提交连接考核与学生/归属教师而来
type Score struct {
	StudentID             string  `json:"student_id"`
	StudentName           string  `json:"student_name"`
	AssessmentID          string  `json:"assessment_id"`
	AssessmentTitle       string  `json:"assessment_title"`
	MarksAwarded          int     `json:"marks_awarded"`
	TotalMarks            int     `json:"total_marks"`
	TeacherID             string  `json:"teacher_id"`
	TeacherName           string  `json:"teacher_name"`
	Department            *string `json:"department,omitempty"`
	CreatedBySuperTeacher bool    `json:"created_by_super_teacher"`
}
