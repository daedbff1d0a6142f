package secrets

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strconv"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"github.com/sirupsen/logrus"
	secretmanagerpb "google.golang.org/genproto/googleapis/cloud/secretmanager/v1"
)

type (
	// Service ...
	Service interface {
		Read(ctx context.Context, id string) (string, error)
		ReadBinary(ctx context.Context, id string) ([]byte, error)
		Rotate(ctx context.Context, id string) error
		Close()
	}

	service struct {
		client *secretmanager.Client
	}
)

const (
	numBytesLabel   = "num-bytes"
	defaultNumBytes = 32
)

var (
	// ErrNilSecretPayload ...
	ErrNilSecretPayload = errors.New("nil secret payload")

	// ErrSecretNumBytesInvalid ...
	ErrSecretNumBytesInvalid = errors.New("secret label 'num-bytes' is not a positive integer")

	crc32cTable = crc32.MakeTable(crc32.Castagnoli)
)

// NewService ...
func NewService(ctx context.Context) (Service, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating secret manager client: %w", err)
	}
	return &service{client}, nil
}

func (s *service) Close() {
	s.client.Close()
}

func (s *service) Read(ctx context.Context, id string) (string, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("%s/versions/latest", id),
	})
	if err != nil {
		return "", fmt.Errorf("error accessing secret version: %w", err)
	}
	payload := resp.GetPayload()
	if payload == nil {
		return "", ErrNilSecretPayload
	}
	if payload.DataCrc32C != nil {
		want := payload.GetDataCrc32C()
		got := int64(crc32.Checksum(payload.Data, crc32cTable))
		if want != got {
			return "", fmt.Errorf("secret checksum mismatch, want %v, got %v", want, got)
		}
	}
	return string(payload.GetData()), nil
}

func (s *service) ReadBinary(ctx context.Context, id string) ([]byte, error) {
	secret, err := s.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	return readBinary(secret)
}

// Rotate adds a fresh random version to the secret and destroys the previous
// one. The size comes from the secret's 'num-bytes' label, 32 when absent.
func (s *service) Rotate(ctx context.Context, id string) error {
	secret, err := s.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{
		Name: id,
	})
	if err != nil {
		return fmt.Errorf("error getting secret '%s': %w", id, err)
	}
	numBytes := defaultNumBytes
	if v, ok := secret.GetLabels()[numBytesLabel]; ok {
		numBytes, err = strconv.Atoi(v)
		if err != nil || numBytes <= 0 {
			return fmt.Errorf("%w: secret '%s' has '%s'", ErrSecretNumBytesInvalid, id, v)
		}
	}

	// generate random secret
	buf := make([]byte, numBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Errorf("error reading %d bytes from crypto/rand: %w", numBytes, err)
	}
	payload := []byte(base64.StdEncoding.EncodeToString(buf))
	checksum := int64(crc32.Checksum(payload, crc32cTable))

	// find previous version
	latest, err := s.client.GetSecretVersion(ctx, &secretmanagerpb.GetSecretVersionRequest{
		Name: fmt.Sprintf("%s/versions/latest", id),
	})
	if err != nil {
		logrus.Warnf("error fetching latest version of secret '%s': %v", id, err)
		latest = nil
	}

	// add version
	newVersion, err := s.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent: id,
		Payload: &secretmanagerpb.SecretPayload{
			Data:       payload,
			DataCrc32C: &checksum,
		},
	})
	if err != nil {
		return fmt.Errorf("error adding secret version: %w", err)
	}

	// destroy previous version
	if latest != nil {
		_, err = s.client.DestroySecretVersion(ctx, &secretmanagerpb.DestroySecretVersionRequest{
			Name: latest.Name,
		})
		if err != nil {
			return fmt.Errorf("error destroying previous secret version: %w", err)
		}
	}

	logrus.Infof("secret rotated: %s", newVersion.Name)
	return nil
}
