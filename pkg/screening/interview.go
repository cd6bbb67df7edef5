package screening

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

// Question is one adaptive interview prompt served by the service.
type Question struct {
	Text         string `json:"text"`
	Type         string `json:"type"`
	Difficulty   string `json:"difficulty"`
	Category     string `json:"category"`
	TimeLimit    int    `json:"time_limit"`
	CodeTemplate string `json:"code_template"`
}

// InterviewSession is the result of starting an interview: the service-minted
// session identifier and the opening question.
type InterviewSession struct {
	SessionID     string   `json:"session_id"`
	FirstQuestion Question `json:"first_question"`
}

// Progress summarizes where an interview session stands after an answer.
type Progress struct {
	QuestionsAsked    int     `json:"questions_asked"`
	MaxQuestions      int     `json:"max_questions"`
	CurrentDifficulty string  `json:"current_difficulty"`
	AverageScore      float64 `json:"average_score"`
	TimeElapsed       float64 `json:"time_elapsed"`
	IntegrityScore    float64 `json:"integrity_score"`
}

// AnswerInput carries one answer submission.
type AnswerInput struct {
	SessionID   string  `json:"session_id"`
	Answer      string  `json:"answer"`
	TimeTaken   float64 `json:"time_taken"`
	CodeSnippet string  `json:"code_snippet,omitempty"`
}

// AnswerResult is the service's verdict on one answer. NextQuestion is set
// while the session continues; Report is set once the session completes.
type AnswerResult struct {
	Score           float64   `json:"answer_score"`
	Feedback        string    `json:"answer_feedback"`
	SessionComplete bool      `json:"session_complete"`
	Progress        Progress  `json:"session_progress"`
	NextQuestion    *Question `json:"next_question,omitempty"`
	Report          *Report   `json:"interview_report,omitempty"`
}

// Report is the final interview assessment.
type Report struct {
	SessionID       string             `json:"session_id"`
	CandidateID     string             `json:"candidate_id"`
	Overall         float64            `json:"overall_score"`
	DomainScores    map[string]float64 `json:"domain_scores"`
	Strengths       []string           `json:"strengths"`
	Weaknesses      []string           `json:"weaknesses"`
	Recommendations []string           `json:"recommendations"`
}

// StartInterview opens an adaptive interview session for a scored candidate.
// categories narrows questioning to specific domains; empty means the service
// chooses.
func (c *Client) StartInterview(ctx context.Context, candidateID, jobID string, categories []string) (InterviewSession, error) {
	if candidateID == "" {
		return InterviewSession{}, fmt.Errorf("screening: candidate id must be provided")
	}
	if categories == nil {
		categories = []string{}
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"candidate_id": candidateID,
			"job_id":       jobID,
			"categories":   categories,
		}).
		Post(c.baseURL + "/start_interview")
	if err != nil {
		return InterviewSession{}, fmt.Errorf("screening: start interview: %w", err)
	}
	if !resp.IsSuccess() {
		return InterviewSession{}, fmt.Errorf("screening: start interview: unexpected status %d", resp.StatusCode())
	}

	body := resp.String()
	return InterviewSession{
		SessionID:     gjson.Get(body, "session_id").String(),
		FirstQuestion: parseQuestion(gjson.Get(body, "first_question")),
	}, nil
}

// SubmitAnswer sends one answer and returns the score, feedback, and either
// the next question or the final report when the session completes.
func (c *Client) SubmitAnswer(ctx context.Context, input AnswerInput) (AnswerResult, error) {
	if input.SessionID == "" {
		return AnswerResult{}, fmt.Errorf("screening: session id must be provided")
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"session_id":   input.SessionID,
			"answer":       input.Answer,
			"time_taken":   input.TimeTaken,
			"code_snippet": input.CodeSnippet,
		}).
		Post(c.baseURL + "/submit_answer")
	if err != nil {
		return AnswerResult{}, fmt.Errorf("screening: submit answer: %w", err)
	}
	if !resp.IsSuccess() {
		return AnswerResult{}, fmt.Errorf("screening: submit answer: unexpected status %d", resp.StatusCode())
	}

	body := resp.String()
	result := AnswerResult{
		Score:           gjson.Get(body, "answer_score").Float(),
		Feedback:        gjson.Get(body, "answer_feedback").String(),
		SessionComplete: gjson.Get(body, "session_complete").Bool(),
		Progress:        parseProgress(gjson.Get(body, "session_progress")),
	}
	if next := gjson.Get(body, "next_question"); next.Exists() {
		question := parseQuestion(next)
		result.NextQuestion = &question
	}
	if report := gjson.Get(body, "interview_report"); report.Exists() {
		parsed := parseReport(report)
		result.Report = &parsed
	}
	return result, nil
}

// InterviewReport fetches the final assessment for a completed session.
func (c *Client) InterviewReport(ctx context.Context, sessionID string) (Report, error) {
	if sessionID == "" {
		return Report{}, fmt.Errorf("screening: session id must be provided")
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("session_id", sessionID).
		Get(c.baseURL + "/interview_report")
	if err != nil {
		return Report{}, fmt.Errorf("screening: interview report: %w", err)
	}
	if !resp.IsSuccess() {
		return Report{}, fmt.Errorf("screening: interview report: unexpected status %d", resp.StatusCode())
	}
	return parseReport(gjson.Parse(resp.String())), nil
}

func parseQuestion(node gjson.Result) Question {
	return Question{
		Text:         node.Get("text").String(),
		Type:         node.Get("type").String(),
		Difficulty:   node.Get("difficulty").String(),
		Category:     node.Get("category").String(),
		TimeLimit:    int(node.Get("time_limit").Int()),
		CodeTemplate: node.Get("code_template").String(),
	}
}

func parseProgress(node gjson.Result) Progress {
	return Progress{
		QuestionsAsked:    int(node.Get("questions_asked").Int()),
		MaxQuestions:      int(node.Get("max_questions").Int()),
		CurrentDifficulty: node.Get("current_difficulty").String(),
		AverageScore:      node.Get("average_score").Float(),
		TimeElapsed:       node.Get("time_elapsed").Float(),
		IntegrityScore:    node.Get("integrity_score").Float(),
	}
}

func parseReport(node gjson.Result) Report {
	report := Report{
		SessionID:   node.Get("session_id").String(),
		CandidateID: node.Get("candidate_id").String(),
		Overall:     node.Get("overall_score").Float(),
	}
	if scores := node.Get("domain_scores"); scores.Exists() {
		report.DomainScores = map[string]float64{}
		scores.ForEach(func(key, value gjson.Result) bool {
			report.DomainScores[key.String()] = value.Float()
			return true
		})
	}
	for _, item := range node.Get("strengths").Array() {
		report.Strengths = append(report.Strengths, item.String())
	}
	for _, item := range node.Get("weaknesses").Array() {
		report.Weaknesses = append(report.Weaknesses, item.String())
	}
	for _, item := range node.Get("recommendations").Array() {
		report.Recommendations = append(report.Recommendations, item.String())
	}
	return report
}
