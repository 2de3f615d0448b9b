package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfeval/selfeval/internal/auth"
	"github.com/selfeval/selfeval/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(srv.URL+"/api/", srv.Client())
	require.NoError(t, err)
	return c
}

func TestHTTPClient_CreateEvaluation(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/evaluations", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get(HeaderRequestID))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		io.WriteString(w, `{"id":"ev-1","status":"pending","section":"s1","user":{"id":"u1","name":"Ana"}}`)
	})

	e, err := c.CreateEvaluation(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"sectionId": "s1"}, gotBody)
	assert.Equal(t, "ev-1", e.ID)
	assert.Equal(t, model.StatusPending, e.Status)
	assert.Equal(t, "s1", e.Section.ID())
	u, ok := e.User.Inlined()
	require.True(t, ok)
	assert.Equal(t, "Ana", u.Name)
}

func TestHTTPClient_UsesRequestIDFromContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-42", r.Header.Get(HeaderRequestID))
		io.WriteString(w, `[]`)
	})
	_, err := c.ListSections(WithRequestID(context.Background(), "req-42"))
	require.NoError(t, err)
}

func TestHTTPClient_ListEvaluationsFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/evaluations", r.URL.Path)
		assert.Equal(t, "soft skills", r.URL.Query().Get("sectionId"))
		io.WriteString(w, `[{"id":"ev-1","status":"completed","totalScore":15,"maxScore":20,"level":"high"}]`)
	})

	list, err := c.ListEvaluations(context.Background(), "soft skills")
	require.NoError(t, err)
	require.Len(t, list, 1)
	p, ok := list[0].Percent()
	require.True(t, ok)
	assert.InDelta(t, 75, p, 1e-9)
	assert.Equal(t, model.LevelHigh, list[0].Level)
}

func TestHTTPClient_Transitions(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		paths = append(paths, r.URL.Path)
		status := "in_progress"
		if r.URL.Path == "/api/evaluations/ev-1/complete" {
			status = "completed"
		}
		io.WriteString(w, `{"id":"ev-1","status":"`+status+`"}`)
	})

	e, err := c.StartEvaluation(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, e.Status)

	e, err = c.CompleteEvaluation(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, e.Status)
	assert.Equal(t, []string{"/api/evaluations/ev-1/start", "/api/evaluations/ev-1/complete"}, paths)
}

func TestHTTPClient_SubmitAnswer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/evaluations/ev-1/answers", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"questionId":"q1","value":7}`, string(body))
		io.WriteString(w, `{"accepted":true,"score":6.5}`)
	})

	ack, err := c.SubmitAnswer(context.Background(), SubmitAnswerRequest{
		EvaluationID: "ev-1", QuestionID: "q1", Value: model.Int(7),
	})
	require.NoError(t, err)
	assert.True(t, ack.Accepted)
	require.NotNil(t, ack.Score)
	assert.Equal(t, 6.5, *ack.Score)
}

func TestHTTPClient_FetchQuestions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/questionnaires/qn-1/questions", r.URL.Path)
		io.WriteString(w, `[
			{"id":"q2","order":2,"type":"multiple-choice","points":1,"options":["A","B","C"]},
			{"id":"q1","order":1,"type":"scale","points":2,"min":1,"max":10,"questionnaire":"qn-1"}
		]`)
	})

	qs, err := c.FetchQuestions(context.Background(), "qn-1")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, model.KindMultipleChoice, qs[0].Kind)
	assert.Equal(t, 10, qs[1].Max)
	assert.Equal(t, "qn-1", qs[1].Questionnaire.ID())
}

func TestHTTPClient_InvalidResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>`},
		{"unknown status", `{"id":"ev-1","status":"archived"}`},
		{"missing id", `{"status":"pending"}`},
		{"ref of wrong type", `{"id":"ev-1","status":"pending","section":12}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})
			_, err := c.StartEvaluation(context.Background(), "ev-1")
			var inv *ErrInvalidResponse
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, OpStartEvaluation, inv.Op)
		})
	}
}

func TestHTTPClient_QuestionConstraintsChecked(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":"q1","order":1,"type":"scale","points":1,"min":10,"max":1}]`)
	})
	_, err := c.FetchQuestions(context.Background(), "qn-1")
	var inv *ErrInvalidResponse
	assert.ErrorAs(t, err, &inv)
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		header map[string]string
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", 401, `{}`, nil, func(t *testing.T, err error) {
			assert.True(t, IsUnauthorized(err))
		}},
		{"forbidden", 403, `{}`, nil, func(t *testing.T, err error) {
			assert.True(t, IsUnauthorized(err))
		}},
		{"conflict with message", 409, `{"message":"evaluation already started"}`, nil, func(t *testing.T, err error) {
			var rej *ErrRejected
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, 409, rej.Status)
			assert.Equal(t, "evaluation already started", rej.Message)
		}},
		{"validation message list", 400, `{"message":["value must be an integer","questionId is required"]}`, nil, func(t *testing.T, err error) {
			var rej *ErrRejected
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, "value must be an integer; questionId is required", rej.Message)
		}},
		{"error field", 404, `{"error":"not found"}`, nil, func(t *testing.T, err error) {
			var rej *ErrRejected
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, "not found", rej.Message)
		}},
		{"rate limited", 429, ``, map[string]string{"Retry-After": "3"}, func(t *testing.T, err error) {
			var u *ErrUnavailable
			require.ErrorAs(t, err, &u)
			assert.Equal(t, 3*time.Second, u.RetryAfter)
		}},
		{"server error", 502, `bad gateway`, nil, func(t *testing.T, err error) {
			var u *ErrUnavailable
			require.ErrorAs(t, err, &u)
			assert.Equal(t, 502, u.Status)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := c.StartEvaluation(context.Background(), "ev-1")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestHTTPClient_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, nil)
	require.NoError(t, err)
	_, err = c.ListSections(context.Background())
	assert.True(t, IsUnavailable(err))
}

type noToken struct{}

func (noToken) Token(context.Context) (string, error) { return "", auth.ErrNotLoggedIn }

func TestHTTPClient_MissingTokenIsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, &http.Client{Transport: auth.NewTransport(noToken{}, nil)})
	require.NoError(t, err)
	_, err = c.ListSections(context.Background())
	assert.True(t, IsUnauthorized(err))
	assert.True(t, errors.Is(err, auth.ErrNotLoggedIn))
}

func TestAuthClient_LoginAndRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		switch r.URL.Path {
		case "/auth/login":
			if in["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			io.WriteString(w, `{"accessToken":"a1","refreshToken":"r1"}`)
		case "/auth/refresh":
			assert.Equal(t, "r1", in["refreshToken"])
			io.WriteString(w, `{"accessToken":"a2"}`)
		}
	}))
	defer srv.Close()

	c, err := NewAuthClient(srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "ana", "nope")
	assert.True(t, IsUnauthorized(err))

	tok, err := c.Login(context.Background(), "ana", "secret")
	require.NoError(t, err)
	assert.Equal(t, auth.Tokens{Access: "a1", Refresh: "r1"}, tok)

	tok, err = c.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "a2", tok.Access)
	assert.Empty(t, tok.Refresh)
}

func TestNewHTTPClient_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPClient("", nil)
	assert.Error(t, err)
}
