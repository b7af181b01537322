package pagecontext

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestLocate(t *testing.T) {
	text := "昨日は雨でした。\n  今日は友達に会う。明日も会う！"
	s, offset, ok := Locate(text, "会う")
	if !ok {
		t.Fatal("expected a sentence")
	}
	if s != "今日は友達に会う。" {
		t.Fatalf("unexpected sentence %q", s)
	}
	if offset != 6 {
		t.Fatalf("expected rune offset 6, got %d", offset)
	}

	if _, _, ok := Locate(text, "猫"); ok {
		t.Fatal("expected no sentence for a missing term")
	}
	if _, _, ok := Locate(text, ""); ok {
		t.Fatal("expected no sentence for an empty term")
	}
}

func TestFetchBuildsContext(t *testing.T) {
	body, err := os.ReadFile("testdata/article.html")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
	}))
	defer srv.Close()

	f := &Fetcher{HTTPClient: srv.Client()}
	page, err := f.Fetch(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !strings.Contains(userAgent, "Mozilla/5.0") {
		t.Errorf("expected a browser user agent, got %q", userAgent)
	}
	if !strings.Contains(page.Title, "友達と会う約束") {
		t.Errorf("expected title to contain the headline, got %q", page.Title)
	}
	// ruby text is stripped before extraction
	if strings.Contains(page.Text, "会あわせる") {
		t.Errorf("furigana leaked into extracted text")
	}

	c := page.Context("会わせる")
	if c.URL != srv.URL+"/article" || c.Query != "会わせる" {
		t.Fatalf("unexpected context %+v", c)
	}
	if !strings.HasPrefix(c.Sentence.Text, "母が私たちを") {
		t.Fatalf("unexpected sentence %q", c.Sentence.Text)
	}
	if c.Sentence.Offset != 6 {
		t.Fatalf("expected offset 6, got %d", c.Sentence.Offset)
	}
}

func TestFetchRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := &Fetcher{HTTPClient: srv.Client()}
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "status code 403") {
		t.Fatalf("expected status error, got %v", err)
	}
}
