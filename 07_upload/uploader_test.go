package upload

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"news-shorts-pipeline/config"
	"news-shorts-pipeline/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildVideoDefaultsAndLimits(t *testing.T) {
	uc := config.Default().Upload
	tags := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		tags = append(tags, "SomeLongHashtag")
	}
	md := &types.VideoMetadata{
		Title:       strings.Repeat("x", 150),
		Description: "desc",
		Tags:        tags,
	}

	v := buildVideo(md, uc)
	assert.Len(t, []rune(v.Snippet.Title), maxTitleChars)
	assert.True(t, strings.HasSuffix(v.Snippet.Title, "..."))
	assert.Equal(t, "desc", v.Snippet.Description)
	assert.Equal(t, "25", v.Snippet.CategoryId)
	assert.Equal(t, "private", v.Status.PrivacyStatus)
	assert.Equal(t, "en", v.Snippet.DefaultLanguage)

	total := 0
	for _, tag := range v.Snippet.Tags {
		total += len(tag) + 1
	}
	assert.LessOrEqual(t, total, maxTagChars)
	assert.NotEmpty(t, v.Snippet.Tags)
}

func TestBuildVideoKeepsMetadataOverrides(t *testing.T) {
	v := buildVideo(&types.VideoMetadata{Title: "Tech News Briefing", CategoryID: "28", Visibility: "unlisted"}, config.Default().Upload)
	assert.Equal(t, "Tech News Briefing", v.Snippet.Title)
	assert.Equal(t, "28", v.Snippet.CategoryId)
	assert.Equal(t, "unlisted", v.Status.PrivacyStatus)
}

func TestRunRequiresCredentials(t *testing.T) {
	u := New(config.Default())
	_, _, err := u.Run(context.Background(), "missing.mp4", &types.VideoMetadata{Title: "t"})
	assert.ErrorContains(t, err, "YOUTUBE_REFRESH_TOKEN")
}

func TestLogUpload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LogUpload("abc", "https://www.youtube.com/shorts/abc", "news_Tech.mp4", dir, &types.VideoMetadata{Title: "Tech News Briefing"}))

	matches, err := filepath.Glob(filepath.Join(dir, "upload_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	var entry map[string]string
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "abc", entry["video_id"])
	assert.Equal(t, "Tech News Briefing", entry["title"])
}
