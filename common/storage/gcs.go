package storage

import (
	"context"
	b64 "encoding/base64"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

const signedUrlValidity = 180 * time.Second

var (
	ErrUnsupportedFileFormat = errors.New("unsupported file format, only base64 jpeg and png images are accepted")
	ErrInvalidEncoding       = errors.New("image is not valid base64")
)

var imageFormats = map[string]string{
	"data:image/jpeg;base64,": ".jpg",
	"data:image/jpg;base64,":  ".jpg",
	"data:image/png;base64,":  ".png",
}

type Storage interface {
	Store(ctx context.Context, b64image string, folder string) (string, error)
	Get(ctx context.Context, fileName string) (string, error)
	Delete(ctx context.Context, fileName string) error
}

type Options struct {
	CredentialsFile string
	BucketName      string
}

type serviceAccountDetails struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// New opens the bucket. Without a credentials file the application default credentials are used
// and urls are signed through the IAM credentials API.
func New(ctx context.Context, options Options) (*GoogleStorage, error) {
	var opts []option.ClientOption
	if options.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(options.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %v", err)
	}
	gs := &GoogleStorage{
		client: client,
		bucket: options.BucketName,
	}
	if options.CredentialsFile == "" {
		return gs, nil
	}

	b, err := ioutil.ReadFile(options.CredentialsFile)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(b, &gs.serviceAccountDetails); err != nil {
		return nil, err
	}

	return gs, nil
}

type GoogleStorage struct {
	client                *storage.Client
	bucket                string
	serviceAccountDetails serviceAccountDetails
	StringGenerator       interface {
		GenerateObjectName(folder, extension string) string
	} `inject:""`
}

// IsEncodedImage tells a data URI apart from the name of an object already in the bucket.
func IsEncodedImage(value string) bool {
	return strings.HasPrefix(value, "data:")
}

// DecodeImage returns the raw bytes of a base64 data URI and the file extension of its format.
func DecodeImage(b64image string) ([]byte, string, error) {
	for prefix, extension := range imageFormats {
		if strings.HasPrefix(b64image, prefix) {
			decoded, err := b64.StdEncoding.DecodeString(strings.TrimPrefix(b64image, prefix))
			if err != nil {
				return nil, "", ErrInvalidEncoding
			}
			return decoded, extension, nil
		}
	}
	return nil, "", ErrUnsupportedFileFormat
}

// Store uploads the image under folder and returns the object name.
func (s *GoogleStorage) Store(ctx context.Context, b64image string, folder string) (string, error) {
	if b64image == "" {
		return "", nil
	}
	decoded, extension, err := DecodeImage(b64image)
	if err != nil {
		return "", err
	}

	fileName := s.StringGenerator.GenerateObjectName(folder, extension)
	w := s.client.Bucket(s.bucket).Object(fileName).NewWriter(ctx)

	if _, err = w.Write(decoded); err != nil {
		w.Close()
		return "", errors.Wrap(err, "failed to upload image")
	}

	return fileName, w.Close()
}

// Get returns a short lived signed url of the object.
func (s *GoogleStorage) Get(ctx context.Context, fileName string) (string, error) {
	if fileName == "" {
		return "", nil
	}
	signOptions := &storage.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(signedUrlValidity),
		Scheme:  storage.SigningSchemeV4,
	}
	if s.serviceAccountDetails.PrivateKey != "" {
		signOptions.GoogleAccessID = s.serviceAccountDetails.ClientEmail
		signOptions.PrivateKey = []byte(s.serviceAccountDetails.PrivateKey)
	}
	url, err := s.client.Bucket(s.bucket).SignedURL(fileName, signOptions)
	if err != nil {
		return "", err
	}
	return url, nil
}

func (s *GoogleStorage) Delete(ctx context.Context, fileName string) error {
	if fileName == "" {
		return nil
	}

	return s.client.Bucket(s.bucket).Object(fileName).Delete(ctx)
}

// LogFolder is where the photos of a daily log are stored.
func LogFolder(daycareId, childId, date string) string {
	return fmt.Sprintf("daycares/%s/children/%s/logs/%s", daycareId, childId, date)
}
