package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"news-shorts-pipeline/config"
	"news-shorts-pipeline/types"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTube rejects snippets beyond these
const (
	maxTitleChars = 100
	maxTagChars   = 500
)

// Uploader handles YouTube video upload via Data API v3
type Uploader struct {
	uc    config.UploadConfig
	creds config.CredentialsConfig
}

// New creates a new Uploader
func New(cfg *config.Config) *Uploader {
	return &Uploader{uc: cfg.Upload, creds: cfg.Credentials}
}

// Run uploads the final video with its metadata and returns the video ID and URL
func (u *Uploader) Run(ctx context.Context, videoFile string, md *types.VideoMetadata) (string, string, error) {
	log.Println("[upload] Authenticating with YouTube API...")

	client, err := u.oauthClient(ctx)
	if err != nil {
		return "", "", fmt.Errorf("youtube auth: %w", err)
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	video := buildVideo(md, u.uc)
	log.Printf("[upload] Uploading: %q", video.Snippet.Title)

	f, err := os.Open(videoFile)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		log.Printf("[upload] File size: %.1f MB", float64(fi.Size())/1024/1024)
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, video).
		NotifySubscribers(u.uc.NotifySubscribers).
		Media(f).
		Context(ctx)
	uploaded, err := call.Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	videoURL := fmt.Sprintf("https://www.youtube.com/shorts/%s", uploaded.Id)
	log.Printf("[upload] ✅ Uploaded successfully!")
	log.Printf("[upload] Video URL: %s", videoURL)
	return uploaded.Id, videoURL, nil
}

// buildVideo maps metadata onto the API resource, trimming to YouTube's limits
func buildVideo(md *types.VideoMetadata, uc config.UploadConfig) *youtube.Video {
	title := md.Title
	if r := []rune(title); len(r) > maxTitleChars {
		title = string(r[:maxTitleChars-3]) + "..."
	}

	var tags []string
	total := 0
	for _, t := range md.Tags {
		if total+len(t)+1 > maxTagChars {
			break
		}
		total += len(t) + 1
		tags = append(tags, t)
	}

	categoryID := md.CategoryID
	if categoryID == "" {
		categoryID = uc.CategoryID
	}
	visibility := md.Visibility
	if visibility == "" {
		visibility = uc.Visibility
	}

	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                title,
			Description:          md.Description,
			Tags:                 tags,
			CategoryId:           categoryID,
			DefaultLanguage:      uc.DefaultLanguage,
			DefaultAudioLanguage: uc.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           visibility,
			SelfDeclaredMadeForKids: uc.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
}

// oauthClient exchanges the stored refresh token for an authorized client
func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	c := u.creds
	if c.YouTubeClientID == "" || c.YouTubeClientSecret == "" || c.YouTubeRefreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     c.YouTubeClientID,
		ClientSecret: c.YouTubeClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	token := &oauth2.Token{
		RefreshToken: c.YouTubeRefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return conf.Client(ctx, token), nil
}

// LogUpload saves the upload result to the logs directory
func LogUpload(videoID, videoURL, videoFile, logsDir string, md *types.VideoMetadata) error {
	entry := map[string]interface{}{
		"video_id":    videoID,
		"video_url":   videoURL,
		"title":       md.Title,
		"uploaded_at": time.Now().UTC().Format(time.RFC3339),
		"video_file":  videoFile,
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return err
	}
	logFile := filepath.Join(logsDir, fmt.Sprintf("upload_%s.json", time.Now().Format("20060102_150405")))
	data, _ := json.MarshalIndent(entry, "", "  ")
	if err := os.WriteFile(logFile, data, 0644); err != nil {
		return err
	}

	log.Printf("[upload] Upload log saved: %s", logFile)
	return nil
}
