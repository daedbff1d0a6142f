package images

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
)

type (
	// Service archives the receipt photo of each session.
	Service interface {
		Store(ctx context.Context, sessionID, mimeType string, image []byte) (objectName string, err error)
		Delete(ctx context.Context, sessionID string) error
		Close()
	}

	service struct {
		bucket *storage.BucketHandle
		close  func()
	}

	noopService struct{}
)

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/heic": "heic",
}

// NewService returns a Service backed by a Cloud Storage bucket, or one that
// does nothing when bucket is empty.
func NewService(ctx context.Context, bucket string) (Service, error) {
	if bucket == "" {
		return noopService{}, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating cloud storage client: %w", err)
	}
	return &service{
		bucket: client.Bucket(bucket),
		close:  func() { client.Close() },
	}, nil
}

// ObjectName is where the receipt photo of a session is stored.
func ObjectName(sessionID, mimeType string) string {
	ext, ok := extensions[strings.ToLower(mimeType)]
	if !ok {
		ext = "bin"
	}
	return fmt.Sprintf("sessions/%s/receipt.%s", sessionID, ext)
}

func (s *service) Close() {
	s.close()
}

func (s *service) Store(ctx context.Context, sessionID, mimeType string, image []byte) (string, error) {
	name := ObjectName(sessionID, mimeType)
	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = mimeType
	if _, err := w.Write(image); err != nil {
		w.Close()
		return "", fmt.Errorf("error writing receipt image: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("error closing receipt image writer: %w", err)
	}
	return name, nil
}

func (s *service) Delete(ctx context.Context, sessionID string) error {
	names := make([]string, 0, len(extensions)+1)
	for mimeType := range extensions {
		names = append(names, ObjectName(sessionID, mimeType))
	}
	names = append(names, ObjectName(sessionID, ""))
	for _, name := range names {
		err := s.bucket.Object(name).Delete(ctx)
		if err == nil {
			logrus.WithField("object", name).Debug("receipt image deleted")
			continue
		}
		if !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("error deleting receipt image '%s': %w", name, err)
		}
	}
	return nil
}

func (noopService) Store(context.Context, string, string, []byte) (string, error) {
	return "", nil
}

func (noopService) Delete(context.Context, string) error {
	return nil
}

func (noopService) Close() {}
