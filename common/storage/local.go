package storage

import (
	"context"
	b64 "encoding/base64"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidObjectName = errors.New("invalid object name")

var mimeTypes = map[string]string{
	".jpg": "image/jpeg",
	".png": "image/png",
}

// LocalStorage keeps images on disk under Root. Get returns the image as a data uri.
type LocalStorage struct {
	Root            string
	StringGenerator interface {
		GenerateObjectName(folder, extension string) string
	} `inject:""`
}

func (s *LocalStorage) Store(ctx context.Context, b64image string, folder string) (string, error) {
	if b64image == "" {
		return "", nil
	}
	decoded, extension, err := DecodeImage(b64image)
	if err != nil {
		return "", err
	}

	fileName := s.StringGenerator.GenerateObjectName(folder, extension)
	filePath, err := s.path(fileName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", errors.Wrap(err, "failed to create folder")
	}
	if err := ioutil.WriteFile(filePath, decoded, 0644); err != nil {
		return "", errors.Wrap(err, "failed to write image")
	}
	return fileName, nil
}

func (s *LocalStorage) Get(ctx context.Context, fileName string) (string, error) {
	if fileName == "" {
		return "", nil
	}
	filePath, err := s.path(fileName)
	if err != nil {
		return "", err
	}
	b, err := ioutil.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	mimeType, ok := mimeTypes[filepath.Ext(fileName)]
	if !ok {
		return "", ErrUnsupportedFileFormat
	}
	return "data:" + mimeType + ";base64," + b64.StdEncoding.EncodeToString(b), nil
}

func (s *LocalStorage) Delete(ctx context.Context, fileName string) error {
	if fileName == "" {
		return nil
	}
	filePath, err := s.path(fileName)
	if err != nil {
		return err
	}
	return os.Remove(filePath)
}

func (s *LocalStorage) path(fileName string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(fileName))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidObjectName
	}
	return filepath.Join(s.Root, clean), nil
}
