package services

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"golang.org/x/image/draw"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

var allowedImageExt = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

// ImageStore keeps uploaded images and returns the URL they are served at.
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// ImageUploader validates, shrinks and stores images embedded in posts.
type ImageUploader struct {
	Store    ImageStore
	MaxBytes int64
	MaxWidth int
}

// Upload stores the image read from r under a unique name derived from
// filename and returns its URL.
func (u *ImageUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExt[ext] {
		return "", errors.BadRequestf("invalid file type, allowed types: png, jpg, jpeg, gif")
	}
	data, err := io.ReadAll(io.LimitReader(r, u.MaxBytes+1))
	if err != nil {
		return "", errors.Annotate(err, "reading upload")
	}
	if int64(len(data)) > u.MaxBytes {
		return "", errors.BadRequestf("file too large, maximum size: %dMB", u.MaxBytes>>20)
	}
	if ext != ".gif" {
		if data, err = shrinkImage(data, ext, u.MaxWidth); err != nil {
			return "", err
		}
	}
	return u.Store.Save(ctx, uniqueName(filename), data)
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

func uniqueName(filename string) string {
	base := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(base))
	name := unsafeNameChars.ReplaceAllString(strings.TrimSuffix(base, filepath.Ext(base)), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "image"
	}
	return name + "_" + strings.ReplaceAll(uuid.NewString(), "-", "") + ext
}

// shrinkImage scales images wider than maxWidth down, keeping the aspect.
func shrinkImage(data []byte, ext string, maxWidth int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.BadRequestf("invalid image: %v", err)
	}
	b := src.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return data, nil
	}
	height := b.Dy() * maxWidth / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	switch ext {
	case ".png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, errors.Annotate(err, "encoding resized image")
	}
	return buf.Bytes(), nil
}

// LocalImageStore writes images under Dir, served below BaseURL.
type LocalImageStore struct {
	Dir     string
	BaseURL string
}

func (s *LocalImageStore) Save(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", errors.Annotate(err, "creating upload dir")
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", errors.Annotatef(err, "writing %s", name)
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + name, nil
}

// DriveImageStore uploads images to a Google Drive folder with a service
// account.
type DriveImageStore struct {
	service  *drive.Service
	folderID string
}

func NewDriveImageStore(ctx context.Context, credentialsFile, folderID string) (*DriveImageStore, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.Annotate(err, "reading drive credentials")
	}
	cfg, err := google.JWTConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, errors.Annotate(err, "parsing drive credentials")
	}
	service, err := drive.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, errors.Annotate(err, "creating drive service")
	}
	return &DriveImageStore{service: service, folderID: folderID}, nil
}

func (s *DriveImageStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	f := &drive.File{Name: name}
	if s.folderID != "" {
		f.Parents = []string{s.folderID}
	}
	uploaded, err := s.service.Files.Create(f).
		Media(bytes.NewReader(data)).
		Fields("id", "webViewLink", "webContentLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", errors.Annotatef(err, "uploading %s to drive", name)
	}
	logger.Debugf("uploaded %s to drive as %s", name, uploaded.Id)
	if uploaded.WebContentLink != "" {
		return uploaded.WebContentLink, nil
	}
	return uploaded.WebViewLink, nil
}
