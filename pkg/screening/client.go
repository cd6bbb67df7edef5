package screening

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// ErrBaseURLRequired is returned when a client is built without a service URL.
var ErrBaseURLRequired = errors.New("screening: base url must be provided")

// Client calls the screening service over HTTP. Responses are parsed
// leniently: fields the service omits stay at their zero values.
type Client struct {
	http    *resty.Client
	baseURL string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// ClientWithHTTPClient swaps the underlying resty client.
func ClientWithHTTPClient(rc *resty.Client) ClientOption {
	return func(c *Client) {
		if rc != nil {
			c.http = rc
		}
	}
}

// ClientWithTimeout bounds each request.
func ClientWithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// NewClient builds a screening client for the given service URL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, ErrBaseURLRequired
	}
	client := &Client{
		http:    resty.New().SetTimeout(30 * time.Second),
		baseURL: trimmed,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Score uploads a resume document plus a job description and returns the
// service's scoring verdict.
func (c *Client) Score(ctx context.Context, filename string, resume io.Reader, jobDescription string) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if resume == nil {
		return Result{}, errors.New("screening: resume document is required")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("resume", filename, resume).
		SetFormData(map[string]string{"job_description": jobDescription}).
		Post(c.baseURL + "/upload_resume")
	if err != nil {
		return Result{}, fmt.Errorf("screening: score: %w", err)
	}
	if !resp.IsSuccess() {
		return Result{}, fmt.Errorf("screening: score: unexpected status %d", resp.StatusCode())
	}

	return parseResult(resp.String()), nil
}

// CheckBias submits text to the compliance check endpoint and returns the
// bias verdict unchanged.
func (c *Client) CheckBias(ctx context.Context, text, kind string) (BiasReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(kind) == "" {
		kind = "general"
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"text": text, "type": kind}).
		Post(c.baseURL + "/api/compliance_check")
	if err != nil {
		return BiasReport{}, fmt.Errorf("screening: compliance check: %w", err)
	}
	if !resp.IsSuccess() {
		return BiasReport{}, fmt.Errorf("screening: compliance check: unexpected status %d", resp.StatusCode())
	}

	body := resp.String()
	report := BiasReport{
		Score:     gjson.Get(body, "bias_score").Float(),
		RiskLevel: gjson.Get(body, "risk_level").String(),
	}
	for _, item := range gjson.Get(body, "recommendations").Array() {
		report.Recommendations = append(report.Recommendations, item.String())
	}
	return report, nil
}

func parseResult(body string) Result {
	result := Result{
		Overall:     gjson.Get(body, "overall_score").Float(),
		Explanation: gjson.Get(body, "explanation").String(),
		Breakdown: Breakdown{
			SkillMatch:     gjson.Get(body, "skill_match_score").Float(),
			Experience:     gjson.Get(body, "experience_score").Float(),
			Education:      gjson.Get(body, "education_score").Float(),
			Certifications: gjson.Get(body, "certification_score").Float(),
		},
	}
	for _, item := range gjson.Get(body, "matched_skills").Array() {
		result.MatchedSkills = append(result.MatchedSkills, item.String())
	}
	for _, item := range gjson.Get(body, "missing_skills").Array() {
		result.MissingSkills = append(result.MissingSkills, item.String())
	}
	for _, item := range gjson.Get(body, "compliance_flags").Array() {
		result.ComplianceFlags = append(result.ComplianceFlags, item.String())
	}
	if result.Overall == 0 {
		result.Overall = result.Breakdown.Overall()
	}
	return result
}
