package media

import (
	"context"

	"ai-interview-session-service/internal/backend"
	"ai-interview-session-service/internal/models"
)

// FrameUploader posts frames as multipart forms to the backend.
type FrameUploader struct {
	client *backend.Client
	path   string
}

func NewFrameUploader(client *backend.Client, path string) *FrameUploader {
	return &FrameUploader{client: client, path: path}
}

// Upload sends the frame with its identifiers and ISO timestamp.
func (u *FrameUploader) Upload(ctx context.Context, f models.FrameSample) error {
	fields := map[string]string{
		"job_id":       f.JobID,
		"candidate_id": f.CandidateID,
		"timestamp":    f.TimestampISO(),
	}
	return u.client.PostMultipart(ctx, u.path, fields, &backend.File{
		Field:       "frame",
		Name:        f.Filename(),
		ContentType: "image/jpeg",
		Data:        f.Image,
	})
}
