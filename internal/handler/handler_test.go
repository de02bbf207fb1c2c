package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"socialmedia_api/internal/config"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/transport/http/middleware"
)

// withURLParam attaches a chi route param the way the router would.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func asUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), userID))
}

func TestHandlers_RequireActor(t *testing.T) {
	// Services are nil: each handler must stop before reaching them.
	follow := NewFollowHandler(nil)
	posts := NewPostHandler(nil)
	notifications := NewNotificationHandler(nil)
	feed := NewFeedHandler(nil)

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"follow", follow.Follow},
		{"unfollow", follow.Unfollow},
		{"like", posts.Like},
		{"unlike", posts.Unlike},
		{"feed", feed.GetFeed},
		{"notifications", notifications.List},
		{"mark read", notifications.MarkRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withURLParam(httptest.NewRequest(http.MethodPost, "/", nil), "id", "1")
			rec := httptest.NewRecorder()

			tt.handler(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

// errorCode decodes the {"error":{"code"}} envelope.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error.Code
}

func TestHandlers_BadPathID(t *testing.T) {
	follow := NewFollowHandler(nil)
	posts := NewPostHandler(nil)

	for _, id := range []string{"abc", "0", "-3"} {
		req := asUser(withURLParam(httptest.NewRequest(http.MethodPost, "/", nil), "id", id), 1)

		rec := httptest.NewRecorder()
		follow.Follow(rec, req)
		if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "VALIDATION_ERROR" {
			t.Errorf("follow id=%q = %d %s, want 400 VALIDATION_ERROR", id, rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		posts.Like(rec, req)
		if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "VALIDATION_ERROR" {
			t.Errorf("like id=%q = %d %s, want 400 VALIDATION_ERROR", id, rec.Code, rec.Body.String())
		}
	}
}

func TestFeedHandler_BadLimit(t *testing.T) {
	h := NewFeedHandler(nil)
	req := asUser(httptest.NewRequest(http.MethodGet, "/feed?limit=zero", nil), 1)
	rec := httptest.NewRecorder()

	h.GetFeed(rec, req)

	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "VALIDATION_ERROR" {
		t.Errorf("response = %d %s, want 400 VALIDATION_ERROR", rec.Code, rec.Body.String())
	}
}

// stubFollowService answers Follow and Unfollow with fixed outcomes.
type stubFollowService struct {
	FollowService
	created bool
	removed bool
	err     error
}

func (s stubFollowService) Follow(ctx context.Context, followerID, followeeID int64) (*model.FollowResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.FollowResult{Created: s.created}, nil
}

func (s stubFollowService) Unfollow(ctx context.Context, followerID, followeeID int64) (*model.UnfollowResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.UnfollowResult{Removed: s.removed}, nil
}

// stubPostService answers Like and Unlike with fixed outcomes and records
// the filter List was called with.
type stubPostService struct {
	PostService
	created bool
	removed bool
	err     error
	filter  *model.PostFilter
}

func (s stubPostService) Like(ctx context.Context, actorID, postID int64) (*model.LikeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.LikeResult{Created: s.created}, nil
}

func (s stubPostService) Unlike(ctx context.Context, actorID, postID int64) (*model.UnlikeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.UnlikeResult{Removed: s.removed}, nil
}

func (s stubPostService) List(ctx context.Context, filter model.PostFilter, cursor *string, limit int, viewerID *int64) (*model.PostListResponse, error) {
	*s.filter = filter
	return &model.PostListResponse{Posts: []model.Post{}}, nil
}

func TestFollowHandler_StatusReflectsOutcome(t *testing.T) {
	tests := []struct {
		name       string
		svc        stubFollowService
		unfollow   bool
		wantStatus int
		wantBody   string
		wantCode   string
	}{
		{"new follow", stubFollowService{created: true}, false, http.StatusCreated, `"created":true`, ""},
		{"already following", stubFollowService{}, false, http.StatusOK, `"created":false`, ""},
		{"self follow", stubFollowService{err: model.ErrCannotFollowSelf}, false, http.StatusBadRequest, "", "SELF_FOLLOW"},
		{"unknown user", stubFollowService{err: model.ErrUserNotFound}, false, http.StatusNotFound, "", "NOT_FOUND"},
		{"unfollow edge", stubFollowService{removed: true}, true, http.StatusOK, `"removed":true`, ""},
		{"unfollow without edge", stubFollowService{}, true, http.StatusOK, `"removed":false`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// ARRANGE
			h := NewFollowHandler(tt.svc)
			req := asUser(withURLParam(httptest.NewRequest(http.MethodPost, "/", nil), "id", "2"), 1)
			rec := httptest.NewRecorder()

			// ACT
			if tt.unfollow {
				h.Unfollow(rec, req)
			} else {
				h.Follow(rec, req)
			}

			// ASSERT
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want %s", rec.Body.String(), tt.wantBody)
			}
			if tt.wantCode != "" && errorCode(t, rec) != tt.wantCode {
				t.Errorf("code = %s, want %s", errorCode(t, rec), tt.wantCode)
			}
		})
	}
}

func TestPostHandler_LikeStatusReflectsOutcome(t *testing.T) {
	tests := []struct {
		name       string
		svc        stubPostService
		unlike     bool
		wantStatus int
		wantCode   string
	}{
		{"new like", stubPostService{created: true}, false, http.StatusCreated, ""},
		{"already liked", stubPostService{}, false, http.StatusOK, ""},
		{"like missing post", stubPostService{err: model.ErrPostNotFound}, false, http.StatusNotFound, "NOT_FOUND"},
		{"unlike liked", stubPostService{removed: true}, true, http.StatusOK, ""},
		{"unlike never liked", stubPostService{}, true, http.StatusBadRequest, "NOT_LIKED"},
		{"unlike missing post", stubPostService{err: model.ErrPostNotFound}, true, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPostHandler(tt.svc)
			req := asUser(withURLParam(httptest.NewRequest(http.MethodPost, "/", nil), "id", "5"), 1)
			rec := httptest.NewRecorder()

			if tt.unlike {
				h.Unlike(rec, req)
			} else {
				h.Like(rec, req)
			}

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" && errorCode(t, rec) != tt.wantCode {
				t.Errorf("code = %s, want %s", errorCode(t, rec), tt.wantCode)
			}
		})
	}
}

func TestPostHandler_List_Filters(t *testing.T) {
	var got model.PostFilter
	h := NewPostHandler(stubPostService{filter: &got})
	req := httptest.NewRequest(http.MethodGet, "/posts?title=Go+tips&search=tip", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got != (model.PostFilter{Title: "Go tips", Search: "tip"}) {
		t.Errorf("filter = %+v", got)
	}
}

func TestPostHandler_Create_ValidatesBody(t *testing.T) {
	h := NewPostHandler(nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"title":`},
		{"missing content", `{"title":"hello"}`},
		{"title too long", `{"title":"` + strings.Repeat("x", 201) + `","content":"c"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := asUser(httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(tt.body)), 1)
			rec := httptest.NewRecorder()

			h.Create(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "VALIDATION_ERROR") {
				t.Errorf("body = %s, want VALIDATION_ERROR", rec.Body.String())
			}
		})
	}
}

func TestAuthHandler_Register_RequiresMultipart(t *testing.T) {
	h := NewAuthHandler(nil, nil, nil, &config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"username":"a"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "1.1.1.1, 10.0.0.1"}, "10.0.0.2:1234", "1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": "2.2.2.2"}, "10.0.0.2:1234", "2.2.2.2"},
		{"remote addr", nil, "3.3.3.3:5555", "3.3.3.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
