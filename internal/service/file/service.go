package file

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoding
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/storage"
)

const (
	maxPhotoSize = 150 * 1024
	minPhotoSize = 50 * 1024
)

type FileService interface {
	// UploadPunchPhoto compresses a check-in proof photo and stores it as JPEG. Returns the storage key.
	UploadPunchPhoto(ctx context.Context, employeeKey string, date time.Time, direction string, file io.Reader, filename string) (string, error)

	DeleteFile(ctx context.Context, path string) error

	GetFileURL(path string) string
}

type fileServiceImpl struct {
	storage storage.FileStorage
}

func NewFileService(storage storage.FileStorage) FileService {
	return &fileServiceImpl{
		storage: storage,
	}
}

func (s *fileServiceImpl) UploadPunchPhoto(ctx context.Context, employeeKey string, date time.Time, direction string, file io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		return "", fmt.Errorf("invalid file type: only jpg, jpeg, png allowed")
	}

	buffer, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	compressed, err := compressImage(buffer, maxPhotoSize, minPhotoSize)
	if err != nil {
		return "", fmt.Errorf("failed to compress image: %w", err)
	}

	// punches/{date}/{employeeKey}-{direction}-{uuid}.jpg; always JPEG after compression
	name := fmt.Sprintf("%s-%s-%s.jpg", employeeKey, strings.ToUpper(direction), uuid.New().String())
	path := filepath.Join("punches", date.Format("2006-01-02"), name)

	key, err := s.storage.Upload(ctx, bytes.NewReader(compressed), path, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("failed to upload punch photo: %w", err)
	}

	return key, nil
}

func (s *fileServiceImpl) DeleteFile(ctx context.Context, path string) error {
	return s.storage.Delete(ctx, path)
}

func (s *fileServiceImpl) GetFileURL(path string) string {
	return s.storage.URL(path)
}

// ==================== HELPER FUNCTIONS ====================

// compressImage re-encodes an image until it lands between minSize and maxSize.
// Quality drops first, then the image is downscaled.
func compressImage(buffer []byte, maxSize int, minSize int) ([]byte, error) {
	if len(buffer) <= maxSize && len(buffer) >= minSize {
		return buffer, nil
	}

	img, _, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	quality := 85
	var compressed []byte

	for quality >= 50 {
		buf := new(bytes.Buffer)
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
		compressed = buf.Bytes()

		if len(compressed) <= maxSize {
			return compressed, nil
		}
		quality -= 5
	}

	// still too large: scale towards the middle of the range
	ratio := math.Sqrt(float64((maxSize+minSize)/2) / float64(len(compressed)))
	width := max(int(float64(bounds.Dx())*ratio), 600)
	height := max(int(float64(bounds.Dy())*ratio), 400)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, resizeImage(img, width, height), &jpeg.Options{Quality: 70}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeImage scales with CatmullRom.
func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
