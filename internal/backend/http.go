package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/selfeval/selfeval/internal/auth"
	"github.com/selfeval/selfeval/internal/model"
)

// HTTPClient talks to the REST backend. The injected *http.Client is
// expected to authenticate requests (see auth.Transport).
type HTTPClient struct {
	rest rest
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the backend at baseURL.
func NewHTTPClient(baseURL string, hc *http.Client) (*HTTPClient, error) {
	r, err := newRest(baseURL, hc)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{rest: r}, nil
}

func (c *HTTPClient) CreateEvaluation(ctx context.Context, sectionID string) (*model.Evaluation, error) {
	in := struct {
		SectionID string `json:"sectionId"`
	}{sectionID}
	var out model.Evaluation
	if err := c.rest.do(ctx, OpCreateEvaluation, http.MethodPost, "/evaluations", in, &out, schemaEvaluation); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListEvaluations(ctx context.Context, sectionID string) ([]model.Evaluation, error) {
	path := "/evaluations"
	if sectionID != "" {
		path += "?" + url.Values{"sectionId": {sectionID}}.Encode()
	}
	var out []model.Evaluation
	if err := c.rest.do(ctx, OpListEvaluations, http.MethodGet, path, nil, &out, schemaEvaluationList); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) StartEvaluation(ctx context.Context, evaluationID string) (*model.Evaluation, error) {
	return c.transition(ctx, OpStartEvaluation, evaluationID, "start")
}

func (c *HTTPClient) CompleteEvaluation(ctx context.Context, evaluationID string) (*model.Evaluation, error) {
	return c.transition(ctx, OpCompleteEvaluation, evaluationID, "complete")
}

func (c *HTTPClient) transition(ctx context.Context, op, evaluationID, action string) (*model.Evaluation, error) {
	path := fmt.Sprintf("/evaluations/%s/%s", url.PathEscape(evaluationID), action)
	var out model.Evaluation
	if err := c.rest.do(ctx, op, http.MethodPatch, path, nil, &out, schemaEvaluation); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAck, error) {
	path := fmt.Sprintf("/evaluations/%s/answers", url.PathEscape(req.EvaluationID))
	var out SubmitAck
	if err := c.rest.do(ctx, OpSubmitAnswer, http.MethodPost, path, req, &out, schemaSubmitAck); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) FetchQuestions(ctx context.Context, questionnaireID string) ([]model.Question, error) {
	path := fmt.Sprintf("/questionnaires/%s/questions", url.PathEscape(questionnaireID))
	var out []model.Question
	if err := c.rest.do(ctx, OpFetchQuestions, http.MethodGet, path, nil, &out, schemaQuestionList); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ListSections(ctx context.Context) ([]model.Section, error) {
	var out []model.Section
	if err := c.rest.do(ctx, OpListSections, http.MethodGet, "/sections", nil, &out, schemaSectionList); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetSection(ctx context.Context, sectionID string) (*model.Section, error) {
	var out model.Section
	path := "/sections/" + url.PathEscape(sectionID)
	if err := c.rest.do(ctx, OpGetSection, http.MethodGet, path, nil, &out, schemaSection); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthClient exchanges credentials for tokens. It must use a client that
// does not itself attach tokens.
type AuthClient struct {
	rest rest
}

var _ auth.Authenticator = (*AuthClient)(nil)

// NewAuthClient creates the login/refresh client for the backend at baseURL.
func NewAuthClient(baseURL string, hc *http.Client) (*AuthClient, error) {
	r, err := newRest(baseURL, hc)
	if err != nil {
		return nil, err
	}
	return &AuthClient{rest: r}, nil
}

func (c *AuthClient) Login(ctx context.Context, username, password string) (auth.Tokens, error) {
	in := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{username, password}
	var out auth.Tokens
	if err := c.rest.do(ctx, OpLogin, http.MethodPost, "/auth/login", in, &out, schemaTokens); err != nil {
		return auth.Tokens{}, err
	}
	return out, nil
}

func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (auth.Tokens, error) {
	in := struct {
		RefreshToken string `json:"refreshToken"`
	}{refreshToken}
	var out auth.Tokens
	if err := c.rest.do(ctx, OpRefresh, http.MethodPost, "/auth/refresh", in, &out, schemaTokens); err != nil {
		return auth.Tokens{}, err
	}
	return out, nil
}
