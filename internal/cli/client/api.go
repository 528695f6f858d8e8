package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/reasoned-dev/reasoned/internal/cli/session"
)

// Login authenticates the user and persists the returned session
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	username = normalizeUsername(username)
	password = strings.TrimSpace(password)
	if err := validateCredentials(loginCredentials{Username: username, Password: password}); err != nil {
		return nil, err
	}
	return c.authenticate(ctx, "/api/login", username, password)
}

// Register creates an account and persists the returned session
func (c *Client) Register(ctx context.Context, username, password string) (*AuthResponse, error) {
	username = normalizeUsername(username)
	password = strings.TrimSpace(password)
	if err := validateCredentials(registerCredentials{Username: username, Password: password}); err != nil {
		return nil, err
	}
	return c.authenticate(ctx, "/api/register", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (*AuthResponse, error) {
	resp, err := c.Request(ctx, path, &RequestOptions{
		Method: http.MethodPost,
		Body:   AuthRequest{Username: username, Password: password},
	})
	if err != nil {
		return nil, err
	}

	var authResp AuthResponse
	if err := resp.Decode(&authResp); err != nil {
		return nil, err
	}
	if authResp.Token == "" {
		return nil, fmt.Errorf("server returned no token")
	}

	isPaid := authResp.IsPaid
	if err := c.session.Save(session.Session{
		Token:    authResp.Token,
		Username: authResp.User,
		Role:     authResp.Role,
		IsPaid:   &isPaid,
	}); err != nil {
		return nil, err
	}

	return &authResp, nil
}

// FetchCurrentUser returns the logged in user and their quota
func (c *Client) FetchCurrentUser(ctx context.Context) (*Me, error) {
	var me Me
	if err := c.getJSON(ctx, "/api/me", &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// Materials lists the chapters of a subject
func (c *Client) Materials(ctx context.Context, subject string) ([]MaterialSummary, error) {
	path := "/api/materials?subject=" + url.QueryEscape(subject)

	var materials []MaterialSummary
	if err := c.getJSON(ctx, path, &materials); err != nil {
		return nil, err
	}
	return materials, nil
}

// Material returns the full material of a chapter
func (c *Client) Material(ctx context.Context, id int) (*Material, error) {
	var m Material
	if err := c.getJSON(ctx, fmt.Sprintf("/api/material/%d", id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// TutorChat asks the tutor a question about a chapter
func (c *Client) TutorChat(ctx context.Context, chapterID int, subject, question string) (*Answer, error) {
	var answer Answer
	err := c.postJSON(ctx, "/api/tutor_chat", TutorChatRequest{
		Mode:      "by_chapter",
		ChapterID: chapterID,
		Subject:   subject,
		Question:  question,
	}, &answer)
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

// Meta returns the subjects available per exam and track
func (c *Client) Meta(ctx context.Context) (*Meta, error) {
	var meta Meta
	if err := c.getJSON(ctx, "/api/meta", &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// GenerateSet generates a quiz and caches it for later submission
func (c *Client) GenerateSet(ctx context.Context, req GenerateSetRequest) (*QuizSet, error) {
	resp, err := c.Request(ctx, "/api/generate_set", &RequestOptions{
		Method: http.MethodPost,
		Body:   req,
	})
	if err != nil {
		return nil, err
	}

	var set QuizSet
	if err := resp.Decode(&set); err != nil {
		return nil, err
	}
	if err := c.session.CacheQuizSet(resp.Body); err != nil {
		return nil, err
	}
	return &set, nil
}

// CheckSet submits quiz answers and records the score
func (c *Client) CheckSet(ctx context.Context, answers []AnswerItem) (*CheckResult, error) {
	var result CheckResult
	if err := c.postJSON(ctx, "/api/check_set", CheckSetRequest{Answers: answers}, &result); err != nil {
		return nil, err
	}
	if err := c.session.RecordScore(result.Score, result.Total); err != nil {
		return nil, err
	}
	return &result, nil
}

// Explain asks the tutor about a generated question
func (c *Client) Explain(ctx context.Context, questionToken, question string) (*Answer, error) {
	var answer Answer
	err := c.postJSON(ctx, "/api/explain", ExplainRequest{
		Token:    questionToken,
		Question: question,
	}, &answer)
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Request(ctx, path, nil)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	resp, err := c.Request(ctx, path, &RequestOptions{
		Method: http.MethodPost,
		Body:   body,
	})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}
