package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"

	"wardrobeapi/catalog"
	"wardrobeapi/models"
)

const (
	DefaultUploadCategory  = "top"
	DefaultGeneralCategory = "general"
	DefaultExtension       = ".jpg"
	AnonymousOwner         = "anonymous"
)

var (
	ErrStorageUpload = errors.New("storage upload failed")
	ErrPersistence   = errors.New("failed to save wardrobe item")
	ErrFileTooLarge  = errors.New("file is too large")
)

// brandKeys are checked in priority order; every variant is removed from the
// attributes once a brand has been extracted.
var brandKeys = []string{"brand", "Brand", "品牌"}

type UploadRequest struct {
	File     io.Reader
	Filename string

	Name           string
	Category       string
	Color          string
	TagsJSON       string
	AttributesJSON string
	Style          string
	SizeLabel      string
	PriceNTD       *int

	RemoveBackground bool
	AIDetect         bool

	Owner models.UserAccount
}

type UploadResult struct {
	Item       models.WardrobeItem
	DisplayURL string
	// Set when AIDetect was requested; Derived=false means the form values were kept.
	Classification *ClassificationResult
}

type GeneralUploadRequest struct {
	File        io.Reader
	Filename    string
	ContentType string
	DBCategory  string
	OwnerID     *uint
}

type GeneralUploadResult struct {
	StorageLocation string
	ImageURL        string
}

// ResolvedItem is a stored item with a URL the client can open.
type ResolvedItem struct {
	Item       models.WardrobeItem
	DisplayURL string
}

type ClothingUploadService struct {
	Storage    StorageProvider
	Remover    BackgroundRemover
	Classifier ClothingClassifier
	Store      WardrobeStore
	Resolver   *ImageURLResolver
	Taxonomy   *catalog.Taxonomy
	// Zero means unlimited.
	MaxBytes int64
}

// ParseTagsField decodes a JSON array; anything else yields an empty list.
func ParseTagsField(raw string) []string {
	tags := []string{}
	if strings.TrimSpace(raw) == "" {
		return tags
	}
	var values []interface{}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return tags
	}
	for _, v := range values {
		switch t := v.(type) {
		case nil:
		case string:
			tags = append(tags, t)
		default:
			tags = append(tags, fmt.Sprint(t))
		}
	}
	return tags
}

// ParseAttributesField decodes a JSON object; anything else yields an empty map.
func ParseAttributesField(raw string) map[string]interface{} {
	attrs := map[string]interface{}{}
	if strings.TrimSpace(raw) == "" {
		return attrs
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil || decoded == nil {
		return attrs
	}
	return decoded
}

// ExtractBrand removes every brand key from attrs and returns the value of
// the first one present.
func ExtractBrand(attrs map[string]interface{}) string {
	brand := ""
	found := false
	for _, key := range brandKeys {
		value, ok := attrs[key]
		if !ok {
			continue
		}
		delete(attrs, key)
		if found || value == nil {
			continue
		}
		brand = strings.TrimSpace(fmt.Sprint(value))
		found = true
	}
	return brand
}

// MergeTags appends extras that are non-empty and not yet present.
func MergeTags(tags []string, extras ...string) []string {
	merged := append([]string{}, tags...)
	for _, extra := range extras {
		if extra == "" {
			continue
		}
		present := false
		for _, t := range merged {
			if t == extra {
				present = true
				break
			}
		}
		if !present {
			merged = append(merged, extra)
		}
	}
	return merged
}

func isEmptyAttribute(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

func (s *ClothingUploadService) taxonomy() *catalog.Taxonomy {
	if s.Taxonomy == nil {
		return catalog.Default()
	}
	return s.Taxonomy
}

func (s *ClothingUploadService) readAll(r io.Reader) ([]byte, error) {
	if s.MaxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, s.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.MaxBytes {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// workingItem is the metadata assembled from the form before persistence.
type workingItem struct {
	name       string
	category   catalog.Category
	color      string
	style      catalog.Style
	brand      string
	tags       []string
	attributes map[string]interface{}
}

func (w *workingItem) applyAnalysis(analysis ClothingAnalysis) {
	if analysis.Name != "" {
		w.name = analysis.Name
	}
	if analysis.Category != "" {
		w.category = analysis.Category
	}
	if len(analysis.Colors) > 0 && analysis.Colors[0] != "" {
		w.color = analysis.Colors[0]
	}
	if analysis.Style != "" {
		w.style = analysis.Style
	}
	if analysis.Brand != "" {
		w.brand = analysis.Brand
	}
	for key, value := range analysis.Attributes {
		if isEmptyAttribute(value) {
			continue
		}
		w.attributes[key] = value
	}
}

// Upload stores one garment photo and records its metadata. Background
// removal and classification degrade silently; storage and persistence
// failures are returned wrapped in ErrStorageUpload / ErrPersistence.
func (s *ClothingUploadService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	taxonomy := s.taxonomy()
	logPrefix := fmt.Sprintf("[Upload: user %d]", req.Owner.ID)

	tags := ParseTagsField(req.TagsJSON)
	attributes := ParseAttributesField(req.AttributesJSON)

	original, err := s.readAll(req.File)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	// Classification only reads the original bytes, so it can run while the
	// photo is matted and stored.
	var classified chan ClassificationResult
	if req.AIDetect && s.Classifier != nil {
		classifyCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		classified = make(chan ClassificationResult, 1)
		go func() {
			classified <- s.Classifier.Classify(classifyCtx, original, req.Filename)
		}()
	}

	finalBytes := original
	extension := filepath.Ext(req.Filename)
	if extension == "" {
		extension = DefaultExtension
	}
	removed := false
	if req.RemoveBackground && s.Remover != nil {
		result := s.Remover.RemoveBackground(ctx, original)
		if result.Removed {
			finalBytes = result.Data
			extension = ".png"
			removed = true
			log.Printf("%s background removed with %s", logPrefix, result.Engine)
		} else {
			log.Printf("%s background removal failed, storing original", logPrefix)
		}
	}

	var stem string
	if strings.TrimSpace(req.Name) != "" {
		stem = catalog.ObjectStem(req.Name)
	} else {
		stem = catalog.ObjectStem(catalog.FileStem(req.Filename))
	}

	formCategory := req.Category
	if strings.TrimSpace(formCategory) == "" {
		formCategory = DefaultUploadCategory
	}
	category := taxonomy.Canonicalize(formCategory)
	objectName := fmt.Sprintf("%s/%s%s", taxonomy.DestinationPrefix(string(category)), stem, extension)

	location, err := s.Storage.UploadBytes(ctx, finalBytes, objectName, MimeTypeForExtension(extension))
	if err != nil {
		log.Printf("%s upload of %s failed: %v", logPrefix, objectName, err)
		return nil, fmt.Errorf("%w: %v", ErrStorageUpload, err)
	}

	working := workingItem{
		name:       req.Name,
		category:   category,
		color:      req.Color,
		style:      catalog.StyleCasual,
		tags:       tags,
		attributes: attributes,
	}
	if strings.TrimSpace(working.name) == "" {
		working.name = catalog.SanitizeName(catalog.FileStem(req.Filename))
	}
	if strings.TrimSpace(req.Style) != "" {
		working.style = taxonomy.CanonicalizeStyle(req.Style)
	}
	working.brand = ExtractBrand(working.attributes)

	result := &UploadResult{}
	if classified != nil {
		var classification ClassificationResult
		select {
		case classification = <-classified:
		case <-ctx.Done():
			classification = defaulted(ctx.Err().Error())
		}
		result.Classification = &classification
		if classification.Derived {
			working.applyAnalysis(classification.Analysis)
		} else {
			log.Printf("%s classification defaulted: %s", logPrefix, classification.Reason)
		}
	}
	working.attributes[models.AttrBackgroundRemoved] = removed

	item := models.WardrobeItem{
		UserAccountID: req.Owner.ID,
		UserAccount:   req.Owner,
		Name:          working.name,
		Category:      string(working.category),
		Color:         working.color,
		ImageURL:      location,
		Tags:          pq.StringArray(MergeTags(working.tags, string(working.style), working.brand)),
		Attributes:    datatypes.JSONMap(working.attributes),
		Brand:         working.brand,
		Style:         string(working.style),
		SizeLabel:     req.SizeLabel,
		PriceNTD:      req.PriceNTD,
	}
	if err := s.Store.CreateItem(ctx, &item); err != nil {
		sentry.CaptureException(fmt.Errorf("%s persist %s: %w", logPrefix, location, err))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	displayURL, err := s.Resolver.Resolve(ctx, item.ImageURL)
	if err != nil {
		return nil, err
	}
	log.Printf("%s stored item %d at %s", logPrefix, item.ID, location)
	result.Item = item
	result.DisplayURL = displayURL
	return result, nil
}

// UploadGeneral stores a non-garment asset under
// {category}/{owner|anonymous}/{token}{ext} without touching the database.
func (s *ClothingUploadService) UploadGeneral(ctx context.Context, req GeneralUploadRequest) (*GeneralUploadResult, error) {
	data, err := s.readAll(req.File)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	extension := filepath.Ext(req.Filename)
	if extension == "" {
		extension = DefaultExtension
	}
	category := DefaultGeneralCategory
	if strings.TrimSpace(req.DBCategory) != "" {
		category = catalog.ObjectStem(req.DBCategory)
	}
	owner := AnonymousOwner
	if req.OwnerID != nil {
		owner = fmt.Sprint(*req.OwnerID)
	}
	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	objectName := fmt.Sprintf("%s/%s/%s%s", category, owner, token, extension)

	mimeType := req.ContentType
	if mimeType == "" {
		mimeType = "image/" + strings.TrimPrefix(extension, ".")
	}
	location, err := s.Storage.UploadBytes(ctx, data, objectName, mimeType)
	if err != nil {
		log.Printf("[Upload: general] upload of %s failed: %v", objectName, err)
		return nil, fmt.Errorf("%w: %v", ErrStorageUpload, err)
	}
	imageURL, err := s.Resolver.Resolve(ctx, location)
	if err != nil {
		return nil, err
	}
	return &GeneralUploadResult{StorageLocation: location, ImageURL: imageURL}, nil
}

// ListItems returns the owner's items with display URLs resolved
// concurrently. An item whose URL cannot be signed is returned with an
// empty URL rather than failing the listing.
func (s *ClothingUploadService) ListItems(ctx context.Context, owner models.UserAccount, filter WardrobeFilter) ([]ResolvedItem, error) {
	items, err := s.Store.ListItems(ctx, owner.ID, filter)
	if err != nil {
		return nil, err
	}
	resolved := make([]ResolvedItem, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(index int, item models.WardrobeItem) {
			defer wg.Done()
			url, err := s.Resolver.Resolve(ctx, item.ImageURL)
			if err != nil {
				log.Printf("CRITICAL: could not sign %s for item %d: %v", item.ImageURL, item.ID, err)
				sentry.CaptureException(err)
			}
			resolved[index] = ResolvedItem{Item: item, DisplayURL: url}
		}(i, item)
	}
	wg.Wait()
	return resolved, nil
}
