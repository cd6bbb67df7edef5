package screening_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-formstate/pkg/screening"
)

func TestStartInterviewParsesSessionAndFirstQuestion(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/start_interview" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"session_id": "sess-1",
			"first_question": {
				"text": "Explain the bias-variance tradeoff.",
				"type": "conceptual",
				"difficulty": "medium",
				"category": "machine_learning",
				"time_limit": 300,
				"code_template": ""
			}
		}`))
	}))
	defer server.Close()

	client, err := screening.NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	session, err := client.StartInterview(context.Background(), "cand-1", "job-1", []string{"machine_learning"})
	if err != nil {
		t.Fatalf("start interview: %v", err)
	}
	if !strings.Contains(gotBody, `"candidate_id":"cand-1"`) {
		t.Fatalf("expected candidate id forwarded, got %s", gotBody)
	}
	if !strings.Contains(gotBody, `"categories":["machine_learning"]`) {
		t.Fatalf("expected categories forwarded, got %s", gotBody)
	}
	if session.SessionID != "sess-1" {
		t.Fatalf("unexpected session id %q", session.SessionID)
	}
	if session.FirstQuestion.Category != "machine_learning" || session.FirstQuestion.TimeLimit != 300 {
		t.Fatalf("unexpected first question: %+v", session.FirstQuestion)
	}
}

func TestStartInterviewRequiresCandidateID(t *testing.T) {
	client, err := screening.NewClient("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.StartInterview(context.Background(), "", "job-1", nil); err == nil {
		t.Fatalf("expected error for empty candidate id")
	}
}

func TestSubmitAnswerMidSessionCarriesNextQuestion(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submit_answer" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"answer_score": 72.5,
			"answer_feedback": "solid, missed regularization",
			"session_complete": false,
			"session_progress": {
				"questions_asked": 3,
				"max_questions": 10,
				"current_difficulty": "hard",
				"average_score": 68.2,
				"time_elapsed": 540.5,
				"integrity_score": 98
			},
			"next_question": {
				"text": "Implement a moving average.",
				"type": "coding",
				"difficulty": "hard",
				"category": "python_programming",
				"time_limit": 600,
				"code_template": "def moving_average(xs, n):"
			}
		}`))
	}))
	defer server.Close()

	client, err := screening.NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.SubmitAnswer(context.Background(), screening.AnswerInput{
		SessionID: "sess-1",
		Answer:    "use cross-validation",
		TimeTaken: 42,
	})
	if err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	if !strings.Contains(gotBody, `"session_id":"sess-1"`) {
		t.Fatalf("expected session id forwarded, got %s", gotBody)
	}
	if result.Score != 72.5 || result.SessionComplete {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Progress.QuestionsAsked != 3 || result.Progress.CurrentDifficulty != "hard" {
		t.Fatalf("unexpected progress: %+v", result.Progress)
	}
	if result.NextQuestion == nil || result.NextQuestion.CodeTemplate != "def moving_average(xs, n):" {
		t.Fatalf("unexpected next question: %+v", result.NextQuestion)
	}
	if result.Report != nil {
		t.Fatalf("expected no report mid-session, got %+v", result.Report)
	}
}

func TestSubmitAnswerCompletionCarriesReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"answer_score": 88,
			"answer_feedback": "complete",
			"session_complete": true,
			"session_progress": {"questions_asked": 10, "max_questions": 10},
			"interview_report": {
				"session_id": "sess-1",
				"candidate_id": "cand-1",
				"overall_score": 75.5,
				"domain_scores": {"python_programming": 85, "machine_learning": 70},
				"strengths": ["strong programming skills"],
				"weaknesses": ["limited agentic AI experience"],
				"recommendations": ["study multi-agent coordination"]
			}
		}`))
	}))
	defer server.Close()

	client, err := screening.NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.SubmitAnswer(context.Background(), screening.AnswerInput{SessionID: "sess-1", Answer: "done"})
	if err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	if !result.SessionComplete {
		t.Fatalf("expected completed session, got %+v", result)
	}
	if result.NextQuestion != nil {
		t.Fatalf("expected no next question, got %+v", result.NextQuestion)
	}
	if result.Report == nil {
		t.Fatal("expected report on completion")
	}
	if result.Report.Overall != 75.5 || result.Report.DomainScores["python_programming"] != 85 {
		t.Fatalf("unexpected report: %+v", result.Report)
	}
	if len(result.Report.Strengths) != 1 || len(result.Report.Recommendations) != 1 {
		t.Fatalf("unexpected report lists: %+v", result.Report)
	}
}

func TestSubmitAnswerRequiresSessionID(t *testing.T) {
	client, err := screening.NewClient("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.SubmitAnswer(context.Background(), screening.AnswerInput{Answer: "x"}); err == nil {
		t.Fatalf("expected error for empty session id")
	}
}

func TestInterviewReportFetchesBySession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/interview_report" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("session_id"); got != "sess-1" {
			t.Errorf("expected session id query, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"session_id": "sess-1",
			"candidate_id": "cand-1",
			"overall_score": 75.5,
			"domain_scores": {"data_science_fundamentals": 80},
			"weaknesses": ["needs improvement in advanced ML concepts"]
		}`))
	}))
	defer server.Close()

	client, err := screening.NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	report, err := client.InterviewReport(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("interview report: %v", err)
	}
	if report.CandidateID != "cand-1" || report.Overall != 75.5 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.DomainScores["data_science_fundamentals"] != 80 {
		t.Fatalf("unexpected domain scores: %v", report.DomainScores)
	}
}

func TestInterviewReportNonSuccessStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"Failed to generate report"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := screening.NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.InterviewReport(context.Background(), "sess-1"); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}
