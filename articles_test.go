package paperdash

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_ListArticles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != articlesAPIPath {
			t.Errorf("path = %v, want %v", r.URL.Path, articlesAPIPath)
		}
		query := r.URL.Query()
		if query.Get("status") != "new" {
			t.Errorf("status = %v, want new", query.Get("status"))
		}
		if query.Get("limit") != "250" {
			t.Errorf("limit = %v, want 250", query.Get("limit"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"article_id":"a1","site_name":"Go Blog","title":"Range over func","url":"https://go.dev/blog/range-functions","timestamp":"2024-08-20T10:00:00Z","status":"new","is_it_related":true}
		]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL)
	page, err := c.ListArticles(context.Background(), ListQuery{Status: StatusNew, Limit: 250})
	if err != nil {
		t.Fatalf("ListArticles failed: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(page.Items))
	}
	a := page.Items[0]
	if a.ArticleID != "a1" || a.Status != StatusNew || !a.IsITRelated {
		t.Errorf("article = %+v", a)
	}
}

func TestClient_ListWebSites(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != webSitesAPIPath {
			t.Errorf("path = %v, want %v", r.URL.Path, webSitesAPIPath)
		}
		if r.URL.Query().Has("keyword") {
			t.Error("keyword sent to the sites endpoint")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(WebSitePage{Items: []WebSite{{SiteID: "s1", Name: "Go Blog", URL: "https://go.dev/blog"}}})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	page, err := c.ListWebSites(context.Background(), ListQuery{Keyword: "ignored", Limit: 50})
	if err != nil {
		t.Fatalf("ListWebSites failed: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "Go Blog" {
		t.Errorf("items = %+v", page.Items)
	}
}

func TestClient_UpdateArticleStatus(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != "POST" {
				t.Errorf("method = %v, want POST", r.Method)
			}
			if r.URL.Path != articleStatusAPIPath {
				t.Errorf("path = %v", r.URL.Path)
			}
			var body articleStatusRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode: %v", err)
				return
			}
			if body.ArticleID != "a1" || body.Status != StatusArchived {
				t.Errorf("body = %+v", body)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		c := NewClient(server.URL)
		if err := c.UpdateArticleStatus(context.Background(), "a1", StatusArchived); err != nil {
			t.Fatalf("UpdateArticleStatus failed: %v", err)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL)
		err := c.UpdateArticleStatus(context.Background(), "a1", StatusArchived)
		apiErr, ok := err.(*Error)
		if !ok {
			t.Fatalf("expected *Error, got %T", err)
		}
		if apiErr.Op != "UpdateArticleStatus" {
			t.Errorf("op = %q", apiErr.Op)
		}
	})

	t.Run("validation", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1")
		tests := []struct {
			name   string
			id     string
			status Status
		}{
			{name: "empty id", id: "", status: StatusNew},
			{name: "unknown status", id: "a1", status: "read"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := c.UpdateArticleStatus(context.Background(), tt.id, tt.status); !IsValidation(err) {
					t.Errorf("expected validation error, got %v", err)
				}
			})
		}
	})
}
