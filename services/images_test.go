package services_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"stackit-backend/services"
)

type memStore struct {
	saved map[string][]byte
}

func (m *memStore) Save(_ context.Context, name string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[name] = data
	return "/uploads/" + name, nil
}

type ImageSuite struct {
	store    *memStore
	uploader *services.ImageUploader
}

var _ = gc.Suite(&ImageSuite{})

func (s *ImageSuite) SetUpTest(c *gc.C) {
	s.store = &memStore{}
	s.uploader = &services.ImageUploader{Store: s.store, MaxBytes: 1 << 20, MaxWidth: 100}
}

func pngOf(c *gc.C, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	c.Assert(png.Encode(&buf, img), jc.ErrorIsNil)
	return buf.Bytes()
}

func (s *ImageSuite) TestUploadResizesWideImages(c *gc.C) {
	url, err := s.uploader.Upload(context.Background(), "my diagram.PNG", bytes.NewReader(pngOf(c, 400, 200)))
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(url, gc.Matches, `/uploads/my_diagram_[0-9a-f]{32}\.png`)

	name := strings.TrimPrefix(url, "/uploads/")
	img, err := png.Decode(bytes.NewReader(s.store.saved[name]))
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(img.Bounds().Dx(), gc.Equals, 100)
	c.Assert(img.Bounds().Dy(), gc.Equals, 50)
}

func (s *ImageSuite) TestUploadKeepsSmallImages(c *gc.C) {
	data := pngOf(c, 50, 20)
	url, err := s.uploader.Upload(context.Background(), "small.png", bytes.NewReader(data))
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.store.saved[strings.TrimPrefix(url, "/uploads/")], jc.DeepEquals, data)
}

func (s *ImageSuite) TestUploadRejects(c *gc.C) {
	ctx := context.Background()
	_, err := s.uploader.Upload(ctx, "notes.txt", strings.NewReader("hello"))
	c.Assert(err, jc.Satisfies, errors.IsBadRequest)

	s.uploader.MaxBytes = 10
	_, err = s.uploader.Upload(ctx, "big.gif", bytes.NewReader(make([]byte, 11)))
	c.Assert(err, jc.Satisfies, errors.IsBadRequest)
	c.Assert(err, gc.ErrorMatches, "file too large.*")

	s.uploader.MaxBytes = 1 << 20
	_, err = s.uploader.Upload(ctx, "broken.jpg", strings.NewReader("not really a jpeg"))
	c.Assert(err, jc.Satisfies, errors.IsBadRequest)
	c.Assert(s.store.saved, gc.HasLen, 0)
}

func (s *ImageSuite) TestLocalImageStore(c *gc.C) {
	dir := filepath.Join(c.MkDir(), "uploads")
	store := &services.LocalImageStore{Dir: dir, BaseURL: "http://localhost:8080/uploads/"}
	url, err := store.Save(context.Background(), "a.png", []byte("data"))
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(url, gc.Equals, "http://localhost:8080/uploads/a.png")

	got, err := os.ReadFile(filepath.Join(dir, "a.png"))
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(string(got), gc.Equals, "data")
}
