package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	_ "image/gif" // decoders for image.Decode
	"image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Storage errors, mapped to business errors by the creative flow
var (
	ErrFileTooLarge     = errors.New("file exceeds the upload limit")
	ErrEmptyFile        = errors.New("file is empty")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrInvalidPath      = errors.New("invalid storage path")
	ErrImageTooLarge    = errors.New("image dimensions exceed the pixel limit")
)

var allowedCreativeExts = map[string]models.CreativeType{
	".jpg":  models.CreativeTypeImage,
	".jpeg": models.CreativeTypeImage,
	".png":  models.CreativeTypeImage,
	".gif":  models.CreativeTypeImage,
	".webp": models.CreativeTypeImage,
	".mp4":  models.CreativeTypeVideo,
	".mov":  models.CreativeTypeVideo,
	".webm": models.CreativeTypeVideo,
}

// StoredFile describes a file written by CreativeStorage. Paths are relative to the upload dir.
type StoredFile struct {
	Path          string
	ThumbnailPath *string
	ContentType   string
	Type          models.CreativeType
	Size          int64
	Width         *int
	Height        *int
}

// CreativeStorage keeps creative uploads on the local disk under dated directories
type CreativeStorage struct {
	baseDir   string
	maxBytes  int64
	maxPixels int64
	thumbSize int
}

// NewCreativeStorage creates the upload dir if needed. maxPixels caps width*height
// of image uploads; zero or less means no cap.
func NewCreativeStorage(baseDir string, maxBytes, maxPixels int64, thumbSize int) (*CreativeStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	if thumbSize <= 0 {
		thumbSize = 320
	}
	return &CreativeStorage{baseDir: baseDir, maxBytes: maxBytes, maxPixels: maxPixels, thumbSize: thumbSize}, nil
}

// MaxBytes is the upload size limit
func (s *CreativeStorage) MaxBytes() int64 { return s.maxBytes }

// Save sniffs, stores and (for images) thumbnails the upload
func (s *CreativeStorage) Save(reader io.Reader, filename string) (*StoredFile, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	creativeType, ok := allowedCreativeExts[ext]
	if !ok {
		return nil, ErrUnsupportedMedia
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(reader, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	if n == 0 {
		return nil, ErrEmptyFile
	}
	head = head[:n]

	detected := http.DetectContentType(head)
	if detected == "application/octet-stream" {
		if fromExt := mime.TypeByExtension(ext); fromExt != "" {
			detected = fromExt
		}
	}
	if !strings.HasPrefix(detected, string(creativeType)+"/") {
		return nil, ErrUnsupportedMedia
	}
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}

	dateDir := utils.UTCNow().Format("2006-01-02")
	if err := os.MkdirAll(filepath.Join(s.baseDir, dateDir), 0o755); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	rel := filepath.ToSlash(filepath.Join(dateDir, id+ext))
	full := filepath.Join(s.baseDir, filepath.FromSlash(rel))

	written, err := s.write(full, io.MultiReader(bytes.NewReader(head), reader))
	if err != nil {
		return nil, err
	}

	stored := &StoredFile{
		Path:        rel,
		ContentType: detected,
		Type:        creativeType,
		Size:        written,
	}

	if creativeType == models.CreativeTypeImage {
		thumbRel := filepath.ToSlash(filepath.Join(dateDir, id+"_thumb.jpg"))
		w, h, err := s.thumbnail(full, filepath.Join(s.baseDir, filepath.FromSlash(thumbRel)))
		if err != nil {
			_ = os.Remove(full)
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedMedia, err)
		}
		stored.ThumbnailPath = &thumbRel
		stored.Width = &w
		stored.Height = &h
	}

	return stored, nil
}

func (s *CreativeStorage) write(path string, r io.Reader) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	written, err := io.Copy(dst, src)
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		_ = os.Remove(path)
		return 0, ErrFileTooLarge
	}
	return written, nil
}

func (s *CreativeStorage) thumbnail(srcPath, dstPath string) (int, int, error) {
	file, err := os.Open(srcPath)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	// the header alone gives the canvas size, checked before any pixel buffer is allocated
	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if s.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > s.maxPixels {
		return 0, 0, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}

	img, _, err := image.Decode(file)
	if err != nil {
		return 0, 0, err
	}

	b := img.Bounds()
	thumb := resizeImage(img, s.thumbSize)

	out, err := os.Create(dstPath)
	if err != nil {
		return 0, 0, err
	}
	defer out.Close()

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 75}); err != nil {
		_ = os.Remove(dstPath)
		return 0, 0, err
	}
	return b.Dx(), b.Dy(), nil
}

// Open returns the absolute path of a stored file after checking it stays inside the upload dir
func (s *CreativeStorage) Open(rel string) (string, error) {
	if rel == "" {
		return "", ErrInvalidPath
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	full := filepath.Join(s.baseDir, cleaned)
	if _, err := os.Stat(full); err != nil {
		return "", err
	}
	return full, nil
}

// Remove deletes stored files, ignoring ones already gone
func (s *CreativeStorage) Remove(paths ...string) error {
	var errs []error
	for _, rel := range paths {
		if rel == "" {
			continue
		}
		full, err := s.Open(rel)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// resizeImage scales src to fit in a maxDim square over a white background
func resizeImage(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = max(1, int(float64(h)*float64(maxDim)/float64(w)))
	} else {
		nh = maxDim
		nw = max(1, int(float64(w)*float64(maxDim)/float64(h)))
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	imagedraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, imagedraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
