package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/reviewer/internal/model"
)

func testDocs() model.Documents {
	return model.Documents{
		model.DocAnswerSheet:   {Kind: model.DocAnswerSheet, Filename: "answers.pdf", MediaType: "application/pdf", Data: []byte("%PDF")},
		model.DocQuestionPaper: {Kind: model.DocQuestionPaper, Filename: "paper.png", MediaType: "image/png", Data: []byte("png")},
	}
}

func TestNewFolder(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	folder := NewFolder(now)
	assert.Regexp(t, regexp.MustCompile(`^20260304_050607_[0-9a-f]{8}$`), folder)
	assert.NotEqual(t, folder, NewFolder(now), "folders should not collide")
}

func TestPath(t *testing.T) {
	doc := model.Document{Kind: model.DocAnswerKey, Filename: "key.pdf"}
	assert.Equal(t, "database/20260304_050607_abcd1234/answer_key_key.pdf", Path("20260304_050607_abcd1234", doc))

	doc.Filename = `..\..\etc/passwd`
	assert.Equal(t, "database/f/answer_key_passwd", Path("f", doc))

	doc.Filename = ""
	assert.Equal(t, "database/f/answer_key_document", Path("f", doc))
}

type failingSink struct{ fail model.DocumentKind }

func (failingSink) Name() string { return "failing" }

func (f failingSink) Archive(_ context.Context, folder string, doc model.Document) (string, error) {
	if doc.Kind == f.fail {
		return "", errors.New("denied")
	}
	return Path(folder, doc), nil
}

func TestAllContinuesAfterFailure(t *testing.T) {
	results := All(context.Background(), failingSink{fail: model.DocAnswerSheet}, "f", testDocs())
	require.Len(t, results, 2)
	assert.Equal(t, model.DocAnswerSheet, results[0].Kind)
	assert.Error(t, results[0].Err)
	assert.Equal(t, model.DocQuestionPaper, results[1].Kind)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, "database/f/question_paper_paper.png", results[1].Location)
}

func TestLocalSink(t *testing.T) {
	dir := t.TempDir()
	results := All(context.Background(), LocalSink{Dir: dir}, "f", testDocs())
	for _, r := range results {
		require.NoError(t, r.Err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "database", "f", "answer_sheet_answers.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
}

func TestGitHubSink(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body struct {
			Message string `json:"message"`
			Content []byte `json:"content"`
			Branch  string `json:"branch"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Archive Session: f1", body.Message)
		assert.Equal(t, "archive", body.Branch)
		assert.NotEmpty(t, body.Content)

		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"content": {"html_url": "https://github.example/blob/`+r.URL.Path+`"}}`)
	}))
	defer srv.Close()

	client := github.NewClient(nil)
	client.BaseURL, _ = url.Parse(srv.URL + "/")
	sink, err := newGitHubSink(client, "school/exams", "archive")
	require.NoError(t, err)

	results := All(context.Background(), sink, "f1", testDocs())
	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.True(t, strings.HasPrefix(r.Location, "https://github.example/blob/"))
	}
	assert.Equal(t, []string{
		"/repos/school/exams/contents/database/f1/answer_sheet_answers.pdf",
		"/repos/school/exams/contents/database/f1/question_paper_paper.png",
	}, paths)
}

func TestGitHubSinkRepoFormat(t *testing.T) {
	for _, repo := range []string{"", "exams", "/exams", "school/", "a/b/c"} {
		_, err := NewGitHubSink("token", repo, "")
		assert.Error(t, err, "repo %q", repo)
	}
	_, err := NewGitHubSink("", "school/exams", "")
	assert.Error(t, err, "token is required")
}

func TestMinioSink(t *testing.T) {
	var gotPath, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewMinioSink(MinioConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "exams",
		Region:    "us-east-1",
	})
	require.NoError(t, err)

	doc := *testDocs()[model.DocQuestionPaper]
	loc, err := sink.Archive(context.Background(), "f2", doc)
	require.NoError(t, err)
	assert.Equal(t, "exams/database/f2/question_paper_paper.png", loc)
	assert.Equal(t, "/exams/database/f2/question_paper_paper.png", gotPath)
	assert.Equal(t, "image/png", gotType)
}

func TestNew(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, "none", s.Name())

	_, err = New(Config{Kind: "local"})
	assert.Error(t, err)

	_, err = New(Config{Kind: "minio"})
	assert.Error(t, err)

	_, err = New(Config{Kind: "ftp"})
	assert.Error(t, err)

	s, err = New(Config{Kind: "github", GitHubToken: "t", GitHubRepo: "school/exams"})
	require.NoError(t, err)
	assert.Equal(t, "github", s.Name())
}
