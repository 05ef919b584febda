package test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sort"
	"strings"
	"sync"
	"time"

	"wardrobeapi/catalog"
	"wardrobeapi/models"
	"wardrobeapi/services"
)

const MockBucket = "test-bucket"

type StoredObject struct {
	Data     []byte
	MimeType string
}

// StorageMock keeps uploads in memory and signs gs:// locations with a fake host.
type StorageMock struct {
	mu        sync.Mutex
	Objects   map[string]StoredObject
	UploadErr error
	SignErr   error
	SignCalls int
}

func NewStorageMock() *StorageMock {
	return &StorageMock{Objects: map[string]StoredObject{}}
}

func (s *StorageMock) UploadBytes(ctx context.Context, data []byte, objectName string, mimeType string) (string, error) {
	if s.UploadErr != nil {
		return "", s.UploadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[objectName] = StoredObject{Data: append([]byte{}, data...), MimeType: mimeType}
	return fmt.Sprintf("gs://%s/%s", MockBucket, objectName), nil
}

func (s *StorageMock) SignedReadURL(ctx context.Context, location string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	s.SignCalls++
	s.mu.Unlock()
	if s.SignErr != nil {
		return "", s.SignErr
	}
	loc, err := services.ParseStorageURI(location)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://signed.example.com/%s/%s?ttl=%d", loc.Bucket, loc.Object, int(ttl.Seconds())), nil
}

// ObjectNames lists stored keys in sorted order.
func (s *StorageMock) ObjectNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.Objects))
	for name := range s.Objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *StorageMock) Object(name string) (StoredObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.Objects[name]
	return obj, ok
}

type URLCacheMock struct {
	MockUrl string
	Err     error
}

func (m *URLCacheMock) GetReadURL(ctx context.Context, location string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.MockUrl, nil
}

// RemoverMock returns Result, or a transparent PNG of the input when Result is nil.
type RemoverMock struct {
	Result *services.BackgroundRemovalResult
	Calls  int
}

func (m *RemoverMock) RemoveBackground(ctx context.Context, data []byte) services.BackgroundRemovalResult {
	m.Calls++
	if m.Result != nil {
		return *m.Result
	}
	return services.BackgroundRemovalResult{Data: TransparentPNG(), Removed: true, Engine: "mock"}
}

type ClassifierMock struct {
	mu       sync.Mutex
	Result   services.ClassificationResult
	Calls    int
	Received []byte
	Filename string
}

func (m *ClassifierMock) Classify(ctx context.Context, data []byte, filename string) services.ClassificationResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Received = append([]byte{}, data...)
	m.Filename = filename
	return m.Result
}

// DerivedAnalysis builds a classifier result the way the vision model would.
func DerivedAnalysis(category, colour, style string) services.ClassificationResult {
	analysis := services.DefaultClothingAnalysis()
	analysis.Category = catalog.Category(category)
	analysis.Colors = []string{colour}
	analysis.Style = catalog.Style(style)
	analysis.Name = "AI辨識的" + category
	return services.ClassificationResult{Analysis: analysis, Derived: true}
}

type AnalyzerMock struct {
	Enhancement *services.PhotoEnhancement
	Err         error
	Calls       int
	BasePrompt  string
}

func (m *AnalyzerMock) EnhanceWithPhoto(ctx context.Context, photo []byte, basePrompt string) (*services.PhotoEnhancement, error) {
	m.Calls++
	m.BasePrompt = basePrompt
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Enhancement, nil
}

type GeneratorMock struct {
	Image   []byte
	Err     error
	Prompts []string
}

func (m *GeneratorMock) GenerateTryOn(ctx context.Context, prompt string, width, height int) (*services.TryOnImage, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return nil, m.Err
	}
	return &services.TryOnImage{Data: m.Image, MIMEType: "image/png", Prompt: prompt, Service: "mock"}, nil
}

// MemoryWardrobeStore is an in-memory services.WardrobeStore.
type MemoryWardrobeStore struct {
	mu        sync.Mutex
	users     map[uint]models.UserAccount
	Items     []models.WardrobeItem
	CreateErr error
	nextID    uint
}

func NewMemoryWardrobeStore() *MemoryWardrobeStore {
	return &MemoryWardrobeStore{users: map[uint]models.UserAccount{}}
}

func (s *MemoryWardrobeStore) AddUser(user models.UserAccount) models.UserAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = user
	return user
}

func (s *MemoryWardrobeStore) FindUser(ctx context.Context, id uint) (*models.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	return &user, nil
}

func (s *MemoryWardrobeStore) CreateItem(ctx context.Context, item *models.WardrobeItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.nextID++
	item.ID = s.nextID
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	if user, ok := s.users[item.UserAccountID]; ok {
		item.UserAccount = user
	}
	s.Items = append(s.Items, *item)
	return nil
}

func (s *MemoryWardrobeStore) ListItems(ctx context.Context, userID uint, filter services.WardrobeFilter) ([]models.WardrobeItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.WardrobeItem
	for i := len(s.Items) - 1; i >= 0; i-- {
		item := s.Items[i]
		if item.UserAccountID != userID {
			continue
		}
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		if filter.Style != "" && item.Style != filter.Style {
			continue
		}
		if filter.Tag != "" && !Contains(item.Tags, filter.Tag) {
			continue
		}
		items = append(items, item)
		if filter.Limit > 0 && len(items) == filter.Limit {
			break
		}
	}
	return items, nil
}

func FakeUser(store *MemoryWardrobeStore) models.UserAccount {
	return store.AddUser(models.UserAccount{
		Name:        "OurName",
		Email:       "email@example.com",
		DisplayName: "小美",
		AvatarURL:   "pictureurl",
	})
}

// GarmentJPEG is a white photo with a red square in the middle.
func GarmentJPEG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if x >= 16 && x < 48 && y >= 16 && y < 48 {
				img.Set(x, y, color.RGBA{R: 200, G: 20, B: 20, A: 255})
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95})
	return buf.Bytes()
}

func TransparentPNG() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func IsPNG(data []byte) bool {
	return strings.HasPrefix(string(data), "\x89PNG\r\n\x1a\n")
}
